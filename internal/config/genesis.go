package config

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	com "github.com/omnikdao/governance/internal/common"
	"github.com/omnikdao/governance/internal/storage"
)

// Genesis describes the accounts and contracts a chain starts from.
// Accounts are referenced by name or by hex address; amounts are decimal ether.
type Genesis struct {
	ChainID  int64                     `json:"chain_id"`
	Deployer string                    `json:"deployer"`
	Accounts map[string]common.Address `json:"accounts"`
	Alloc    []Allocation              `json:"alloc"`

	Token    TokenGenesis    `json:"token"`
	Timelock TimelockGenesis `json:"timelock"`
	Governor GovernorGenesis `json:"governor"`
	Treasury TreasuryGenesis `json:"treasury"`
}

type Allocation struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type TokenGenesis struct {
	Name         string       `json:"name"`
	Symbol       string       `json:"symbol"`
	Supply       string       `json:"supply"`
	Distribution []Allocation `json:"distribution"`
}

type TimelockGenesis struct {
	MinDelay  uint64   `json:"min_delay"`
	Proposers []string `json:"proposers"`
	Executors []string `json:"executors"`
}

type GovernorGenesis struct {
	Name              string `json:"name"`
	Quorum            uint64 `json:"quorum"`
	VotingDelay       uint64 `json:"voting_delay"`
	VotingPeriod      uint64 `json:"voting_period"`
	ProposalThreshold string `json:"proposal_threshold"`
	GracePeriod       uint64 `json:"grace_period"`
	Guardian          string `json:"guardian"`
}

type TreasuryGenesis struct {
	Funds       string `json:"funds"`
	Beneficiary string `json:"beneficiary"`
}

var devAccounts = []string{"executor", "proposer", "voter1", "voter2", "voter3", "voter4", "voter5"}

// DevKey derives the well known development key of a named account
func DevKey(name string) (*ecdsa.PrivateKey, error) {
	return crypto.ToECDSA(crypto.Keccak256([]byte("omnik-dao:" + name)))
}

// DefaultGenesis reproduces the reference deployment: 10000 OMNIK, 50 to each of five
// voters, a timelock with a delay of 1, 5% quorum, no voting delay, a voting period of 5
// and a treasury holding 25 ether
func DefaultGenesis() (*Genesis, error) {
	g := &Genesis{
		ChainID:  1337,
		Deployer: "executor",
		Accounts: map[string]common.Address{},
		Alloc:    []Allocation{{Account: "executor", Amount: "100"}},
		Token: TokenGenesis{
			Name:   "Omnik DAO",
			Symbol: "OMNIK",
			Supply: "10000",
		},
		Timelock: TimelockGenesis{
			MinDelay:  1,
			Proposers: []string{"proposer"},
			Executors: []string{"executor"},
		},
		Governor: GovernorGenesis{
			Name:         "Governance",
			Quorum:       5,
			VotingDelay:  0,
			VotingPeriod: 5,
		},
		Treasury: TreasuryGenesis{
			Funds:       "25",
			Beneficiary: "executor",
		},
	}

	for _, name := range devAccounts {
		k, err := DevKey(name)
		if err != nil {
			return nil, err
		}
		g.Accounts[name] = crypto.PubkeyToAddress(k.PublicKey)
	}

	for _, v := range devAccounts[2:] {
		g.Token.Distribution = append(g.Token.Distribution, Allocation{Account: v, Amount: "50"})
	}

	return g, nil
}

// LoadGenesis parses a genesis file, falling back to the defaults when it does not exist
func LoadGenesis(path string) (*Genesis, error) {
	g, err := DefaultGenesis()
	if err != nil {
		return nil, err
	}

	if !storage.Exists(path) {
		return g, nil
	}

	b, err := storage.Read(path)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(b, g)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return g, nil
}

// Address resolves an account name or a hex address
func (g *Genesis) Address(ref string) (common.Address, error) {
	if common.IsHexAddress(ref) {
		return common.HexToAddress(ref), nil
	}

	addr, ok := g.Accounts[ref]
	if !ok {
		return common.Address{}, fmt.Errorf("unknown account %q", ref)
	}
	return addr, nil
}

// Addresses resolves a list of account references
func (g *Genesis) Addresses(refs []string) ([]common.Address, error) {
	addrs := make([]common.Address, 0, len(refs))
	for _, ref := range refs {
		addr, err := g.Address(ref)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// Ether parses a decimal ether amount into wei, an empty amount is 0
func Ether(amount string) (*big.Int, error) {
	if amount == "" {
		return new(big.Int), nil
	}

	v, ok := com.ParseEther(amount)
	if !ok {
		return nil, fmt.Errorf("invalid ether amount %q", amount)
	}
	return v, nil
}
