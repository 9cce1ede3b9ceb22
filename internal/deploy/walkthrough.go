package deploy

import (
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/omnikdao/governance/internal/chain"
	com "github.com/omnikdao/governance/internal/common"
	"github.com/omnikdao/governance/pkg/contracts"
	gov "github.com/omnikdao/governance/pkg/governor"
)

const ReleaseDescription = "Release Funds from Treasury"

// Result summarises a walkthrough run
type Result struct {
	ProposalID common.Hash
	Snapshot   uint64
	Deadline   uint64
	Quorum     *big.Int
	Votes      gov.ProposalVotes
	States     []gov.ProposalState
	Released   bool
	Funds      *big.Int
}

// Walkthrough delegates the voters, proposes to release the treasury, votes
// 3 for, 1 against and 1 abstain, then queues and executes the proposal,
// printing progress to out
func Walkthrough(d *Deployment, out io.Writer) (*Result, error) {
	c := d.Chain
	res := &Result{}

	names := []string{"voter1", "voter2", "voter3", "voter4", "voter5"}
	voters := make([]common.Address, 0, len(names))
	for _, n := range names {
		addr, err := d.Account(n)
		if err != nil {
			return nil, err
		}
		voters = append(voters, addr)
	}

	proposer, err := d.Account("proposer")
	if err != nil {
		return nil, err
	}

	executor, err := d.Account("executor")
	if err != nil {
		return nil, err
	}

	for _, v := range voters {
		if err := send(c, v, d.Token.Address(), contracts.TokenContract, "delegate", v); err != nil {
			return nil, fmt.Errorf("delegate: %w", err)
		}
	}

	printTreasury(d, out)

	calldata, err := contracts.Calldata(contracts.TreasuryContract, "releaseFunds")
	if err != nil {
		return nil, err
	}

	desc := gov.NewDescriptor([]common.Address{d.Treasury.Address()}, []*big.Int{big.NewInt(0)}, [][]byte{calldata})

	r, err := c.Send(proposer, d.Governor.Address(), nil, mustCalldata(contracts.GovernorContract, "propose", desc.Targets, desc.Values, desc.Calldatas, ReleaseDescription))
	if err != nil {
		return nil, fmt.Errorf("propose: %w", err)
	}

	out2, err := contracts.Decode(contracts.GovernorContract, "propose", r.Return)
	if err != nil {
		return nil, err
	}
	res.ProposalID = common.BigToHash(out2[0].(*big.Int))
	fmt.Fprintf(out, "Created Proposal: %s\n\n", res.ProposalID.Big())

	if err := res.state(d, out, "Pending"); err != nil {
		return nil, err
	}

	err = c.View(func() error {
		var err error
		res.Snapshot, err = d.Governor.ProposalSnapshot(res.ProposalID)
		if err != nil {
			return err
		}

		res.Deadline, err = d.Governor.ProposalDeadline(res.ProposalID)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Proposal created on block %d\n", res.Snapshot)
		fmt.Fprintf(out, "Proposal deadline on block %d\n\n", res.Deadline)

		height := c.Position()
		fmt.Fprintf(out, "Current block number: %d\n\n", height)

		res.Quorum, err = d.Governor.Quorum(height - 1)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Number of votes required to pass: %s\n\n", com.FormatEther(res.Quorum))
		return nil
	})
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(out, "Casting votes...\n\n")

	support := []gov.VoteType{gov.VoteFor, gov.VoteFor, gov.VoteFor, gov.VoteAgainst, gov.VoteAbstain}
	for i, v := range voters {
		if err := send(c, v, d.Governor.Address(), contracts.GovernorContract, "castVote", res.ProposalID.Big(), uint8(support[i])); err != nil {
			return nil, fmt.Errorf("castVote: %w", err)
		}
	}

	if err := res.state(d, out, "Active"); err != nil {
		return nil, err
	}

	if err := send(c, executor, d.Token.Address(), contracts.TokenContract, "transfer", proposer, mustEther("5")); err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}

	err = c.View(func() error {
		var err error
		res.Votes, err = d.Governor.ProposalVotes(res.ProposalID)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Votes For: %s\n", com.FormatEther(res.Votes.For))
		fmt.Fprintf(out, "Votes Against: %s\n", com.FormatEther(res.Votes.Against))
		fmt.Fprintf(out, "Votes Neutral: %s\n\n", com.FormatEther(res.Votes.Abstain))
		fmt.Fprintf(out, "Current block number: %d\n\n", c.Position())
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := res.state(d, out, "Succeeded"); err != nil {
		return nil, err
	}

	descHash := gov.DescriptionHash(ReleaseDescription)

	if err := send(c, executor, d.Governor.Address(), contracts.GovernorContract, "queue", desc.Targets, desc.Values, desc.Calldatas, [32]byte(descHash)); err != nil {
		return nil, fmt.Errorf("queue: %w", err)
	}

	if err := res.state(d, out, "Queued"); err != nil {
		return nil, err
	}

	if err := send(c, executor, d.Governor.Address(), contracts.GovernorContract, "execute", desc.Targets, desc.Values, desc.Calldatas, [32]byte(descHash)); err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	if err := res.state(d, out, "Executed"); err != nil {
		return nil, err
	}

	res.Released, res.Funds = printTreasury(d, out)

	return res, nil
}

func (res *Result) state(d *Deployment, out io.Writer, label string) error {
	return d.Chain.View(func() error {
		st, err := d.Governor.State(res.ProposalID)
		if err != nil {
			return err
		}

		res.States = append(res.States, st)
		fmt.Fprintf(out, "Current state of proposal: %d (%s) \n\n", st, label)
		return nil
	})
}

func printTreasury(d *Deployment, out io.Writer) (bool, *big.Int) {
	var (
		released bool
		funds    *big.Int
	)

	d.Chain.View(func() error {
		released = d.Treasury.IsReleased()
		funds = d.Treasury.Balance()
		return nil
	})

	fmt.Fprintf(out, "Funds released? %t\n", released)
	fmt.Fprintf(out, "Funds inside of treasury: %s ETH\n\n", com.FormatEther(funds))

	return released, funds
}

func send(c *chain.Chain, from, to common.Address, contract, method string, args ...any) error {
	data, err := contracts.Calldata(contract, method, args...)
	if err != nil {
		return err
	}

	_, err = c.Send(from, to, nil, data)
	return err
}

func mustCalldata(contract, method string, args ...any) []byte {
	data, err := contracts.Calldata(contract, method, args...)
	if err != nil {
		panic(err)
	}
	return data
}

func mustEther(amount string) *big.Int {
	v, ok := com.ParseEther(amount)
	if !ok {
		panic("invalid ether amount " + amount)
	}
	return v
}
