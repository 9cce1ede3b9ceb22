package governor

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/omnikdao/governance/internal/chain"
	gov "github.com/omnikdao/governance/pkg/governor"
)

func errQuorumNumerator(n uint64) error {
	return fmt.Errorf("%w: quorum numerator %d over denominator %d", gov.ErrInvalidArguments, n, QuorumDenominator)
}

// onlyGovernance restricts parameter changes to calls coming out of the timelock
func (g *Governor) onlyGovernance(tx *chain.Tx) error {
	if tx.Sender() != g.timelock.Address() {
		return fmt.Errorf("%w: caller %s is not the executor", gov.ErrUnauthorized, tx.Sender().Hex())
	}
	return nil
}

func (g *Governor) VotingDelay() uint64 {
	return g.s.votingDelay
}

func (g *Governor) VotingPeriod() uint64 {
	return g.s.votingPeriod
}

func (g *Governor) ProposalThreshold() *big.Int {
	return new(big.Int).Set(g.s.threshold)
}

// QuorumNumerator returns the current quorum percentage
func (g *Governor) QuorumNumerator() uint64 {
	return g.s.quorum.Latest().Uint64()
}

// Quorum is the participation required at position: total delegated votes times the
// numerator in force at position, divided by 100 and rounded down
func (g *Governor) Quorum(position uint64) (*big.Int, error) {
	total, err := g.token.GetPastTotalVotes(position)
	if err != nil {
		return nil, err
	}

	q := total.Mul(total, g.s.quorum.UpperLookup(position))
	return q.Div(q, big.NewInt(QuorumDenominator)), nil
}

// GetVotes returns the voting power of account at a past position
func (g *Governor) GetVotes(account common.Address, position uint64) (*big.Int, error) {
	return g.token.GetPastVotes(account, position)
}

func (g *Governor) SetVotingDelay(tx *chain.Tx, delay uint64) error {
	if err := g.onlyGovernance(tx); err != nil {
		return err
	}

	tx.Emit(gov.NewLog(g.address, gov.EventVotingDelaySet, map[string]any{
		"oldVotingDelay": new(big.Int).SetUint64(g.s.votingDelay),
		"newVotingDelay": new(big.Int).SetUint64(delay),
	}))

	g.s.votingDelay = delay
	return nil
}

func (g *Governor) SetVotingPeriod(tx *chain.Tx, period uint64) error {
	if err := g.onlyGovernance(tx); err != nil {
		return err
	}

	if period == 0 {
		return fmt.Errorf("%w: voting period too low", gov.ErrInvalidArguments)
	}

	tx.Emit(gov.NewLog(g.address, gov.EventVotingPeriodSet, map[string]any{
		"oldVotingPeriod": new(big.Int).SetUint64(g.s.votingPeriod),
		"newVotingPeriod": new(big.Int).SetUint64(period),
	}))

	g.s.votingPeriod = period
	return nil
}

func (g *Governor) SetProposalThreshold(tx *chain.Tx, threshold *big.Int) error {
	if err := g.onlyGovernance(tx); err != nil {
		return err
	}

	if threshold == nil || threshold.Sign() < 0 {
		return fmt.Errorf("%w: negative proposal threshold", gov.ErrInvalidArguments)
	}

	tx.Emit(gov.NewLog(g.address, gov.EventProposalThresholdSet, map[string]any{
		"oldProposalThreshold": new(big.Int).Set(g.s.threshold),
		"newProposalThreshold": new(big.Int).Set(threshold),
	}))

	g.s.threshold = new(big.Int).Set(threshold)
	return nil
}

// UpdateQuorumNumerator changes the quorum for proposals whose snapshot is from now on
func (g *Governor) UpdateQuorumNumerator(tx *chain.Tx, numerator uint64) error {
	if err := g.onlyGovernance(tx); err != nil {
		return err
	}

	if numerator > QuorumDenominator {
		return errQuorumNumerator(numerator)
	}

	old := g.QuorumNumerator()
	if _, _, err := g.s.quorum.Push(tx.Position, new(big.Int).SetUint64(numerator)); err != nil {
		return err
	}

	tx.Emit(gov.NewLog(g.address, gov.EventQuorumNumeratorUpdated, map[string]any{
		"oldQuorumNumerator": new(big.Int).SetUint64(old),
		"newQuorumNumerator": new(big.Int).SetUint64(numerator),
	}))

	return nil
}

func (g *Governor) HashProposal(d gov.Descriptor, descHash common.Hash) (common.Hash, error) {
	return gov.HashProposal(d, descHash)
}

func (g *Governor) ProposalSnapshot(id common.Hash) (uint64, error) {
	p, err := g.proposal(id)
	if err != nil {
		return 0, err
	}
	return p.Snapshot, nil
}

func (g *Governor) ProposalDeadline(id common.Hash) (uint64, error) {
	p, err := g.proposal(id)
	if err != nil {
		return 0, err
	}
	return p.Deadline, nil
}

func (g *Governor) ProposalProposer(id common.Hash) (common.Address, error) {
	p, err := g.proposal(id)
	if err != nil {
		return common.Address{}, err
	}
	return p.Proposer, nil
}

// ProposalEta returns the position the queued operation becomes ready at, 0 if not queued
func (g *Governor) ProposalEta(id common.Hash) (uint64, error) {
	p, err := g.proposal(id)
	if err != nil {
		return 0, err
	}
	return p.Eta, nil
}

func (g *Governor) ProposalVotes(id common.Hash) (gov.ProposalVotes, error) {
	p, err := g.proposal(id)
	if err != nil {
		return gov.ProposalVotes{}, err
	}
	return p.Votes.Copy(), nil
}

func (g *Governor) HasVoted(id common.Hash, account common.Address) bool {
	p, ok := g.s.proposals[id]
	return ok && p.Voters[account]
}

// Proposal returns a copy of a proposal
func (g *Governor) Proposal(id common.Hash) (*gov.Proposal, error) {
	p, err := g.proposal(id)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// Proposals returns copies of all proposals in creation order
func (g *Governor) Proposals() []*gov.Proposal {
	ps := make([]*gov.Proposal, 0, len(g.s.order))
	for _, id := range g.s.order {
		ps = append(ps, g.s.proposals[id].Clone())
	}
	return ps
}
