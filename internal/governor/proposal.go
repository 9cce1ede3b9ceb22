package governor

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/omnikdao/governance/internal/chain"
	gov "github.com/omnikdao/governance/pkg/governor"
)

func (g *Governor) proposal(id common.Hash) (*gov.Proposal, error) {
	p, ok := g.s.proposals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", gov.ErrUnknownProposal, id.Hex())
	}
	return p, nil
}

// Propose registers a new proposal. Its id is derived from the descriptor and the description,
// so the same proposal can only be made once.
func (g *Governor) Propose(tx *chain.Tx, d gov.Descriptor, description string) (common.Hash, error) {
	proposer := tx.Sender()

	descHash := gov.DescriptionHash(description)
	id, err := gov.HashProposal(d, descHash)
	if err != nil {
		return common.Hash{}, err
	}

	if g.s.threshold.Sign() > 0 {
		v, err := g.token.GetPastVotes(proposer, tx.Position-1)
		if err != nil {
			return common.Hash{}, err
		}

		if v.Cmp(g.s.threshold) < 0 {
			return common.Hash{}, fmt.Errorf("%w: proposer votes %s below threshold %s", gov.ErrUnauthorized, v, g.s.threshold)
		}
	}

	if _, ok := g.s.proposals[id]; ok {
		return common.Hash{}, fmt.Errorf("%w: %s", gov.ErrDuplicateProposal, id.Hex())
	}

	if g.s.votingDelay > math.MaxUint64-tx.Position || g.s.votingPeriod > math.MaxUint64-tx.Position-g.s.votingDelay {
		return common.Hash{}, fmt.Errorf("%w: voting window overflows the position", gov.ErrInvalidArguments)
	}

	snapshot := tx.Position + g.s.votingDelay
	deadline := snapshot + g.s.votingPeriod

	g.s.proposals[id] = &gov.Proposal{
		ID:              id,
		Proposer:        proposer,
		Descriptor:      d.Copy(),
		Description:     description,
		DescriptionHash: descHash,
		Snapshot:        snapshot,
		Deadline:        deadline,
		Votes:           gov.NewProposalVotes(),
		Voters:          map[common.Address]bool{},
	}
	g.s.order = append(g.s.order, id)

	tx.Emit(gov.NewLog(g.address, gov.EventProposalCreated, map[string]any{
		"proposalId":  id.Big(),
		"proposer":    proposer,
		"targets":     d.Targets,
		"values":      d.Values,
		"signatures":  make([]string, d.Len()),
		"calldatas":   d.Calldatas,
		"voteStart":   snapshot,
		"voteEnd":     deadline,
		"description": description,
	}))

	return id, nil
}

// State computes the lifecycle state of a proposal from the current position and its flags
func (g *Governor) State(id common.Hash) (gov.ProposalState, error) {
	p, err := g.proposal(id)
	if err != nil {
		return 0, err
	}

	if p.Executed {
		return gov.ProposalStateExecuted, nil
	}

	if p.Canceled {
		return gov.ProposalStateCanceled, nil
	}

	position := g.clock.Position()

	if position <= p.Snapshot {
		return gov.ProposalStatePending, nil
	}

	if position <= p.Deadline {
		return gov.ProposalStateActive, nil
	}

	reached, err := g.quorumReached(p)
	if err != nil {
		return 0, err
	}

	if !reached || !voteSucceeded(p) {
		return gov.ProposalStateDefeated, nil
	}

	if !p.Queued {
		if g.grace > 0 && position-p.Deadline > g.grace {
			return gov.ProposalStateExpired, nil
		}
		return gov.ProposalStateSucceeded, nil
	}

	switch g.timelock.GetOperationState(p.OpID) {
	case gov.OperationExecuted:
		return gov.ProposalStateExecuted, nil
	case gov.OperationScheduled, gov.OperationReady:
		if g.grace > 0 && position > p.Eta && position-p.Eta > g.grace {
			return gov.ProposalStateExpired, nil
		}
		return gov.ProposalStateQueued, nil
	}

	// canceled directly on the timelock
	return gov.ProposalStateCanceled, nil
}

func (g *Governor) quorumReached(p *gov.Proposal) (bool, error) {
	q, err := g.Quorum(p.Snapshot)
	if err != nil {
		return false, err
	}
	return p.Votes.Total().Cmp(q) >= 0, nil
}

// a tie is not a success
func voteSucceeded(p *gov.Proposal) bool {
	return p.Votes.For.Cmp(p.Votes.Against) > 0
}

// CastVote records the caller's voting power at the proposal snapshot and returns it
func (g *Governor) CastVote(tx *chain.Tx, id common.Hash, support gov.VoteType, reason string) (*big.Int, error) {
	if !support.Valid() {
		return nil, fmt.Errorf("%w: invalid vote type %d", gov.ErrInvalidArguments, support)
	}

	st, err := g.State(id)
	if err != nil {
		return nil, err
	}

	if st != gov.ProposalStateActive {
		return nil, fmt.Errorf("%w: %s is %s", gov.ErrProposalNotActive, id.Hex(), st)
	}

	p := g.s.proposals[id]
	voter := tx.Sender()

	if p.Voters[voter] {
		return nil, fmt.Errorf("%w: %s on %s", gov.ErrAlreadyVoted, voter.Hex(), id.Hex())
	}

	weight, err := g.token.GetPastVotes(voter, p.Snapshot)
	if err != nil {
		return nil, err
	}

	switch support {
	case gov.VoteAgainst:
		p.Votes.Against.Add(p.Votes.Against, weight)
	case gov.VoteFor:
		p.Votes.For.Add(p.Votes.For, weight)
	case gov.VoteAbstain:
		p.Votes.Abstain.Add(p.Votes.Abstain, weight)
	}
	p.Voters[voter] = true

	tx.Emit(gov.NewLog(g.address, gov.EventVoteCast, map[string]any{
		"voter":      voter,
		"proposalId": id.Big(),
		"support":    uint8(support),
		"weight":     new(big.Int).Set(weight),
		"reason":     reason,
	}))

	return weight, nil
}

// Queue schedules a succeeded proposal on the timelock with the minimum delay
func (g *Governor) Queue(tx *chain.Tx, d gov.Descriptor, descHash common.Hash) (common.Hash, error) {
	id, err := gov.HashProposal(d, descHash)
	if err != nil {
		return common.Hash{}, err
	}

	st, err := g.State(id)
	if err != nil {
		return common.Hash{}, err
	}

	if st != gov.ProposalStateSucceeded {
		return common.Hash{}, fmt.Errorf("%w: %s is %s", gov.ErrProposalNotSucceeded, id.Hex(), st)
	}

	delay := g.timelock.MinDelay()

	opID, err := g.timelock.ScheduleBatch(tx.As(g.address), d, common.Hash{}, descHash, delay)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to schedule %s: %w", id.Hex(), err)
	}

	p := g.s.proposals[id]
	p.Queued = true
	p.OpID = opID
	p.Eta = tx.Position + delay

	tx.Emit(gov.NewLog(g.address, gov.EventProposalQueued, map[string]any{
		"proposalId": id.Big(),
		"eta":        new(big.Int).SetUint64(p.Eta),
	}))

	return id, nil
}

// Execute runs a queued proposal through the timelock once its delay has elapsed
func (g *Governor) Execute(tx *chain.Tx, d gov.Descriptor, descHash common.Hash) (common.Hash, error) {
	id, err := gov.HashProposal(d, descHash)
	if err != nil {
		return common.Hash{}, err
	}

	st, err := g.State(id)
	if err != nil {
		return common.Hash{}, err
	}

	if st != gov.ProposalStateQueued {
		return common.Hash{}, fmt.Errorf("%w: %s is %s", gov.ErrProposalNotQueued, id.Hex(), st)
	}

	p := g.s.proposals[id]
	if s := g.timelock.GetOperationState(p.OpID); s != gov.OperationReady {
		return common.Hash{}, fmt.Errorf("%w: %s is %s, ready at %d", gov.ErrOperationNotReady, p.OpID.Hex(), s, p.Eta)
	}

	if err := g.timelock.ExecuteBatch(tx.As(g.address), d, common.Hash{}, descHash); err != nil {
		return common.Hash{}, fmt.Errorf("failed to execute %s: %w", id.Hex(), err)
	}

	p.Executed = true

	tx.Emit(gov.NewLog(g.address, gov.EventProposalExecuted, map[string]any{
		"proposalId": id.Big(),
	}))

	return id, nil
}

// Cancel withdraws a proposal. The proposer may cancel until voting ends,
// the guardian until execution.
func (g *Governor) Cancel(tx *chain.Tx, id common.Hash) error {
	st, err := g.State(id)
	if err != nil {
		return err
	}

	p := g.s.proposals[id]
	sender := tx.Sender()
	guardian := g.guardian != (common.Address{}) && sender == g.guardian

	switch st {
	case gov.ProposalStatePending, gov.ProposalStateActive:
		if sender != p.Proposer && !guardian {
			return fmt.Errorf("%w: only the proposer or guardian can cancel %s", gov.ErrUnauthorized, id.Hex())
		}
	case gov.ProposalStateSucceeded, gov.ProposalStateQueued:
		if !guardian {
			if sender == p.Proposer {
				return fmt.Errorf("%w: %s is %s", gov.ErrProposalNotCancelable, id.Hex(), st)
			}
			return fmt.Errorf("%w: only the guardian can cancel %s", gov.ErrUnauthorized, id.Hex())
		}
	default:
		return fmt.Errorf("%w: %s is %s", gov.ErrProposalNotCancelable, id.Hex(), st)
	}

	if st == gov.ProposalStateQueued {
		if err := g.timelock.Cancel(tx.As(g.address), p.OpID); err != nil {
			return fmt.Errorf("failed to cancel operation %s: %w", p.OpID.Hex(), err)
		}
	}

	p.Canceled = true

	tx.Emit(gov.NewLog(g.address, gov.EventProposalCanceled, map[string]any{
		"proposalId": id.Big(),
	}))

	return nil
}
