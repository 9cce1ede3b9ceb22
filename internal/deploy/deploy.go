package deploy

import (
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/common"
	"github.com/omnikdao/governance/internal/chain"
	"github.com/omnikdao/governance/internal/config"
	"github.com/omnikdao/governance/internal/governor"
	"github.com/omnikdao/governance/internal/timelock"
	"github.com/omnikdao/governance/internal/treasury"
	"github.com/omnikdao/governance/internal/votes"
)

// Deployment holds the contracts of a deployed governance system
type Deployment struct {
	Chain    *chain.Chain
	Deployer common.Address
	Accounts map[string]common.Address

	Token    *votes.Ledger
	Timelock *timelock.Timelock
	Governor *governor.Governor
	Treasury *treasury.Treasury
}

// Deploy sets up the token, timelock, governor and treasury described by g. Every step is
// a call of its own: distribution, treasury ownership handed to the timelock and the
// governor granted the proposer, executor and canceller roles.
func Deploy(c *chain.Chain, g *config.Genesis) (*Deployment, error) {
	deployer, err := g.Address(g.Deployer)
	if err != nil {
		return nil, fmt.Errorf("deployer: %w", err)
	}

	d := &Deployment{
		Chain:    c,
		Deployer: deployer,
		Accounts: g.Accounts,
	}

	for _, a := range g.Alloc {
		addr, err := g.Address(a.Account)
		if err != nil {
			return nil, fmt.Errorf("alloc: %w", err)
		}

		v, err := config.Ether(a.Amount)
		if err != nil {
			return nil, err
		}

		c.Fund(addr, v)
	}

	if err := d.deployToken(g); err != nil {
		return nil, err
	}

	if err := d.deployTimelock(g); err != nil {
		return nil, err
	}

	if err := d.deployGovernor(g); err != nil {
		return nil, err
	}

	if err := d.deployTreasury(g); err != nil {
		return nil, err
	}

	if err := d.wire(); err != nil {
		return nil, err
	}

	log.Default().Printf("deployed token %s, timelock %s, governor %s, treasury %s at height %d\n",
		d.Token.Address().Hex(), d.Timelock.Address().Hex(), d.Governor.Address().Hex(), d.Treasury.Address().Hex(), c.Height())

	return d, nil
}

func (d *Deployment) deployToken(g *config.Genesis) error {
	supply, err := config.Ether(g.Token.Supply)
	if err != nil {
		return err
	}

	ct, err := d.Chain.Deploy(d.Deployer, nil, func(tx *chain.Tx, addr common.Address) (chain.Contract, error) {
		l := votes.New(addr, d.Chain, g.Token.Name, g.Token.Symbol)
		return l, l.Mint(tx, d.Deployer, supply)
	})
	if err != nil {
		return fmt.Errorf("failed to deploy token: %w", err)
	}
	d.Token = ct.(*votes.Ledger)

	for _, a := range g.Token.Distribution {
		to, err := g.Address(a.Account)
		if err != nil {
			return fmt.Errorf("distribution: %w", err)
		}

		amount, err := config.Ether(a.Amount)
		if err != nil {
			return err
		}

		_, err = d.Chain.Transact(d.Deployer, func(tx *chain.Tx) error {
			return d.Token.Transfer(tx, to, amount)
		})
		if err != nil {
			return fmt.Errorf("failed to distribute to %s: %w", a.Account, err)
		}
	}

	return nil
}

func (d *Deployment) deployTimelock(g *config.Genesis) error {
	proposers, err := g.Addresses(g.Timelock.Proposers)
	if err != nil {
		return fmt.Errorf("proposers: %w", err)
	}

	executors, err := g.Addresses(g.Timelock.Executors)
	if err != nil {
		return fmt.Errorf("executors: %w", err)
	}

	ct, err := d.Chain.Deploy(d.Deployer, nil, func(tx *chain.Tx, addr common.Address) (chain.Contract, error) {
		return timelock.New(tx, addr, d.Chain, g.Timelock.MinDelay, proposers, executors, d.Deployer), nil
	})
	if err != nil {
		return fmt.Errorf("failed to deploy timelock: %w", err)
	}
	d.Timelock = ct.(*timelock.Timelock)

	return nil
}

func (d *Deployment) deployGovernor(g *config.Genesis) error {
	threshold, err := config.Ether(g.Governor.ProposalThreshold)
	if err != nil {
		return err
	}

	var guardian common.Address
	if g.Governor.Guardian != "" {
		guardian, err = g.Address(g.Governor.Guardian)
		if err != nil {
			return fmt.Errorf("guardian: %w", err)
		}
	}

	cfg := governor.Config{
		Name:              g.Governor.Name,
		QuorumNumerator:   g.Governor.Quorum,
		VotingDelay:       g.Governor.VotingDelay,
		VotingPeriod:      g.Governor.VotingPeriod,
		ProposalThreshold: threshold,
		GracePeriod:       g.Governor.GracePeriod,
		Guardian:          guardian,
	}

	ct, err := d.Chain.Deploy(d.Deployer, nil, func(tx *chain.Tx, addr common.Address) (chain.Contract, error) {
		return governor.New(tx, addr, d.Chain, d.Token, d.Timelock, cfg)
	})
	if err != nil {
		return fmt.Errorf("failed to deploy governor: %w", err)
	}
	d.Governor = ct.(*governor.Governor)

	return nil
}

func (d *Deployment) deployTreasury(g *config.Genesis) error {
	funds, err := config.Ether(g.Treasury.Funds)
	if err != nil {
		return err
	}

	var beneficiary common.Address
	if g.Treasury.Beneficiary != "" {
		beneficiary, err = g.Address(g.Treasury.Beneficiary)
		if err != nil {
			return fmt.Errorf("beneficiary: %w", err)
		}
	}

	ct, err := d.Chain.Deploy(d.Deployer, funds, func(tx *chain.Tx, addr common.Address) (chain.Contract, error) {
		return treasury.New(tx, addr, d.Chain, d.Deployer, beneficiary), nil
	})
	if err != nil {
		return fmt.Errorf("failed to deploy treasury: %w", err)
	}
	d.Treasury = ct.(*treasury.Treasury)

	return nil
}

func (d *Deployment) wire() error {
	_, err := d.Chain.Transact(d.Deployer, func(tx *chain.Tx) error {
		return d.Treasury.TransferOwnership(tx, d.Timelock.Address())
	})
	if err != nil {
		return fmt.Errorf("failed to transfer treasury ownership: %w", err)
	}

	for _, role := range []common.Hash{timelock.ProposerRole, timelock.ExecutorRole, timelock.CancellerRole} {
		_, err := d.Chain.Transact(d.Deployer, func(tx *chain.Tx) error {
			return d.Timelock.GrantRole(tx, role, d.Governor.Address())
		})
		if err != nil {
			return fmt.Errorf("failed to grant %s: %w", timelock.RoleName(role), err)
		}
	}

	return nil
}

// Account resolves a named account of the deployment
func (d *Deployment) Account(name string) (common.Address, error) {
	addr, ok := d.Accounts[name]
	if !ok {
		return common.Address{}, fmt.Errorf("unknown account %q", name)
	}
	return addr, nil
}

// Contract returns the contract registered under a well known name
func (d *Deployment) Contract(name string) (chain.Contract, bool) {
	switch name {
	case "token":
		return d.Token, true
	case "timelock":
		return d.Timelock, true
	case "governor":
		return d.Governor, true
	case "treasury":
		return d.Treasury, true
	}
	return nil, false
}

func (d *Deployment) Addresses() map[string]common.Address {
	return map[string]common.Address{
		"token":    d.Token.Address(),
		"timelock": d.Timelock.Address(),
		"governor": d.Governor.Address(),
		"treasury": d.Treasury.Address(),
	}
}
