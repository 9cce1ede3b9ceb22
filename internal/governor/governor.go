package governor

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/omnikdao/governance/internal/chain"
	"github.com/omnikdao/governance/internal/votes"
	gov "github.com/omnikdao/governance/pkg/governor"
)

const QuorumDenominator = 100

// Token is the read-only view of the voting power ledger
type Token interface {
	Address() common.Address
	GetPastVotes(account common.Address, position uint64) (*big.Int, error)
	GetPastTotalVotes(position uint64) (*big.Int, error)
}

// Timelock is the executor proposals are handed to once they succeed
type Timelock interface {
	Address() common.Address
	MinDelay() uint64
	ScheduleBatch(tx *chain.Tx, d gov.Descriptor, predecessor, salt common.Hash, delay uint64) (common.Hash, error)
	ExecuteBatch(tx *chain.Tx, d gov.Descriptor, predecessor, salt common.Hash) error
	Cancel(tx *chain.Tx, id common.Hash) error
	GetOperationState(id common.Hash) gov.OperationState
}

type Config struct {
	Name              string
	QuorumNumerator   uint64
	VotingDelay       uint64
	VotingPeriod      uint64
	ProposalThreshold *big.Int

	// GracePeriod is how many positions a succeeded or queued proposal stays executable, 0 never expires
	GracePeriod uint64

	// Guardian may cancel proposals up to execution
	Guardian common.Address
}

// Governor owns the proposal lifecycle: creation, voting, tally, and hand-off to the timelock
type Governor struct {
	address  common.Address
	clock    chain.Clock
	name     string
	token    Token
	timelock Timelock
	grace    uint64
	guardian common.Address

	s *state
}

type state struct {
	votingDelay  uint64
	votingPeriod uint64
	threshold    *big.Int
	quorum       *votes.Trace

	proposals map[common.Hash]*gov.Proposal
	order     []common.Hash
}

func (s *state) copy() *state {
	cp := &state{
		votingDelay:  s.votingDelay,
		votingPeriod: s.votingPeriod,
		threshold:    new(big.Int).Set(s.threshold),
		quorum:       s.quorum.Copy(),
		proposals:    make(map[common.Hash]*gov.Proposal, len(s.proposals)),
		order:        append([]common.Hash(nil), s.order...),
	}
	for id, p := range s.proposals {
		cp.proposals[id] = p.Clone()
	}
	return cp
}

func New(tx *chain.Tx, addr common.Address, clock chain.Clock, token Token, timelock Timelock, cfg Config) (*Governor, error) {
	if cfg.QuorumNumerator > QuorumDenominator {
		return nil, errQuorumNumerator(cfg.QuorumNumerator)
	}

	threshold := new(big.Int)
	if cfg.ProposalThreshold != nil {
		threshold.Set(cfg.ProposalThreshold)
	}

	g := &Governor{
		address:  addr,
		clock:    clock,
		name:     cfg.Name,
		token:    token,
		timelock: timelock,
		grace:    cfg.GracePeriod,
		guardian: cfg.Guardian,
		s: &state{
			votingDelay:  cfg.VotingDelay,
			votingPeriod: cfg.VotingPeriod,
			threshold:    threshold,
			quorum:       &votes.Trace{},
			proposals:    map[common.Hash]*gov.Proposal{},
		},
	}

	if _, _, err := g.s.quorum.Push(tx.Position, new(big.Int).SetUint64(cfg.QuorumNumerator)); err != nil {
		return nil, err
	}

	tx.Emit(gov.NewLog(addr, gov.EventVotingDelaySet, map[string]any{
		"oldVotingDelay": new(big.Int),
		"newVotingDelay": new(big.Int).SetUint64(cfg.VotingDelay),
	}))
	tx.Emit(gov.NewLog(addr, gov.EventVotingPeriodSet, map[string]any{
		"oldVotingPeriod": new(big.Int),
		"newVotingPeriod": new(big.Int).SetUint64(cfg.VotingPeriod),
	}))
	tx.Emit(gov.NewLog(addr, gov.EventQuorumNumeratorUpdated, map[string]any{
		"oldQuorumNumerator": new(big.Int),
		"newQuorumNumerator": new(big.Int).SetUint64(cfg.QuorumNumerator),
	}))

	return g, nil
}

func (g *Governor) Address() common.Address {
	return g.address
}

func (g *Governor) Snapshot() any {
	return g.s.copy()
}

func (g *Governor) Restore(snapshot any) {
	g.s = snapshot.(*state)
}

func (g *Governor) Name() string {
	return g.name
}

func (g *Governor) Token() common.Address {
	return g.token.Address()
}

func (g *Governor) Timelock() common.Address {
	return g.timelock.Address()
}

func (g *Governor) Guardian() common.Address {
	return g.guardian
}

func (g *Governor) GracePeriod() uint64 {
	return g.grace
}
