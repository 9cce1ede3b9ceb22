package governor_test

import (
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/omnikdao/governance/internal/chain"
	com "github.com/omnikdao/governance/internal/common"
	"github.com/omnikdao/governance/internal/config"
	"github.com/omnikdao/governance/internal/deploy"
	"github.com/omnikdao/governance/pkg/contracts"
	gov "github.com/omnikdao/governance/pkg/governor"
	"github.com/stretchr/testify/require"
)

type env struct {
	c *chain.Chain
	d *deploy.Deployment

	voters   []common.Address
	proposer common.Address
	executor common.Address
}

func ether(t *testing.T, s string) *big.Int {
	v, ok := com.ParseEther(s)
	require.True(t, ok)
	return v
}

// setup deploys the default system, lets mutate adjust the genesis first, and has
// every voter delegate to itself
func setup(t *testing.T, mutate func(g *config.Genesis)) *env {
	g, err := config.DefaultGenesis()
	require.NoError(t, err)

	if mutate != nil {
		mutate(g)
	}

	d, err := deploy.Deploy(chain.New(big.NewInt(g.ChainID)), g)
	require.NoError(t, err)

	e := &env{c: d.Chain, d: d}

	for _, n := range []string{"voter1", "voter2", "voter3", "voter4", "voter5"} {
		v, err := d.Account(n)
		require.NoError(t, err)
		e.voters = append(e.voters, v)

		_, err = e.c.Transact(v, func(tx *chain.Tx) error {
			return d.Token.Delegate(tx, v)
		})
		require.NoError(t, err)
	}

	e.proposer, err = d.Account("proposer")
	require.NoError(t, err)

	e.executor, err = d.Account("executor")
	require.NoError(t, err)

	return e
}

func (e *env) call(t *testing.T, target common.Address, contract, method string, args ...any) gov.Descriptor {
	data, err := contracts.Calldata(contract, method, args...)
	require.NoError(t, err)

	return gov.NewDescriptor([]common.Address{target}, []*big.Int{big.NewInt(0)}, [][]byte{data})
}

func (e *env) release(t *testing.T) gov.Descriptor {
	return e.call(t, e.d.Treasury.Address(), contracts.TreasuryContract, "releaseFunds")
}

func (e *env) propose(from common.Address, d gov.Descriptor, description string) (common.Hash, error) {
	var id common.Hash
	_, err := e.c.Transact(from, func(tx *chain.Tx) error {
		var err error
		id, err = e.d.Governor.Propose(tx, d, description)
		return err
	})
	return id, err
}

func (e *env) vote(from common.Address, id common.Hash, support gov.VoteType) (*big.Int, error) {
	var weight *big.Int
	_, err := e.c.Transact(from, func(tx *chain.Tx) error {
		var err error
		weight, err = e.d.Governor.CastVote(tx, id, support, "")
		return err
	})
	return weight, err
}

func (e *env) queue(from common.Address, d gov.Descriptor, description string) error {
	_, err := e.c.Transact(from, func(tx *chain.Tx) error {
		_, err := e.d.Governor.Queue(tx, d, gov.DescriptionHash(description))
		return err
	})
	return err
}

func (e *env) execute(from common.Address, d gov.Descriptor, description string) error {
	_, err := e.c.Transact(from, func(tx *chain.Tx) error {
		_, err := e.d.Governor.Execute(tx, d, gov.DescriptionHash(description))
		return err
	})
	return err
}

func (e *env) cancel(from common.Address, id common.Hash) error {
	_, err := e.c.Transact(from, func(tx *chain.Tx) error {
		return e.d.Governor.Cancel(tx, id)
	})
	return err
}

func (e *env) state(t *testing.T, id common.Hash) gov.ProposalState {
	st, err := e.d.Governor.State(id)
	require.NoError(t, err)
	return st
}

// endVoting mines until the deadline of id has passed
func (e *env) endVoting(t *testing.T, id common.Hash) {
	deadline, err := e.d.Governor.ProposalDeadline(id)
	require.NoError(t, err)

	if h := e.c.Height(); h <= deadline {
		e.c.Mine(deadline - h + 1)
	}
}

// pass proposes d and carries it to Succeeded with three votes for
func (e *env) pass(t *testing.T, d gov.Descriptor, description string) common.Hash {
	id, err := e.propose(e.proposer, d, description)
	require.NoError(t, err)

	for _, v := range e.voters[:3] {
		_, err := e.vote(v, id, gov.VoteFor)
		require.NoError(t, err)
	}

	e.endVoting(t, id)
	require.Equal(t, gov.ProposalStateSucceeded, e.state(t, id))

	return id
}

func TestProposeStartsPending(t *testing.T) {
	e := setup(t, nil)
	d := e.release(t)

	id, err := e.propose(e.proposer, d, "release")
	require.NoError(t, err)

	expected, err := gov.HashProposal(d, gov.DescriptionHash("release"))
	require.NoError(t, err)
	require.Equal(t, expected, id)

	h := e.c.Height()
	snapshot, err := e.d.Governor.ProposalSnapshot(id)
	require.NoError(t, err)
	require.Equal(t, h, snapshot)

	deadline, err := e.d.Governor.ProposalDeadline(id)
	require.NoError(t, err)
	require.Equal(t, h+5, deadline)

	proposer, err := e.d.Governor.ProposalProposer(id)
	require.NoError(t, err)
	require.Equal(t, e.proposer, proposer)

	require.Equal(t, gov.ProposalStatePending, e.state(t, id))

	_, err = e.propose(e.voters[0], d, "release")
	require.ErrorIs(t, err, gov.ErrDuplicateProposal)

	// a different description is a different proposal
	_, err = e.propose(e.proposer, d, "release again")
	require.NoError(t, err)
	require.Len(t, e.d.Governor.Proposals(), 2)

	_, err = e.propose(e.proposer, gov.Descriptor{}, "empty")
	require.ErrorIs(t, err, gov.ErrInvalidArguments)

	_, err = e.d.Governor.State(common.HexToHash("0x01"))
	require.ErrorIs(t, err, gov.ErrUnknownProposal)
}

func TestProposalThreshold(t *testing.T) {
	e := setup(t, func(g *config.Genesis) {
		g.Governor.ProposalThreshold = "10"
	})

	_, err := e.propose(e.proposer, e.release(t), "release")
	require.ErrorIs(t, err, gov.ErrUnauthorized)

	_, err = e.propose(e.voters[0], e.release(t), "release")
	require.NoError(t, err)
}

func TestVotingDelay(t *testing.T) {
	e := setup(t, func(g *config.Genesis) {
		g.Governor.VotingDelay = 2
	})

	id, err := e.propose(e.proposer, e.release(t), "release")
	require.NoError(t, err)

	snapshot, err := e.d.Governor.ProposalSnapshot(id)
	require.NoError(t, err)
	require.Equal(t, e.c.Height()+2, snapshot)

	_, err = e.vote(e.voters[0], id, gov.VoteFor)
	require.ErrorIs(t, err, gov.ErrProposalNotActive)

	// voting opens at the first position after the snapshot
	e.c.Mine(2)
	require.Equal(t, gov.ProposalStatePending, e.state(t, id))

	w, err := e.vote(e.voters[0], id, gov.VoteFor)
	require.NoError(t, err)
	require.Equal(t, ether(t, "50"), w)
}

func TestCastVote(t *testing.T) {
	e := setup(t, nil)

	id, err := e.propose(e.proposer, e.release(t), "release")
	require.NoError(t, err)

	_, err = e.vote(e.voters[0], id, gov.VoteType(3))
	require.ErrorIs(t, err, gov.ErrInvalidArguments)

	w, err := e.vote(e.voters[0], id, gov.VoteFor)
	require.NoError(t, err)
	require.Equal(t, ether(t, "50"), w)
	require.True(t, e.d.Governor.HasVoted(id, e.voters[0]))
	require.False(t, e.d.Governor.HasVoted(id, e.voters[1]))

	_, err = e.vote(e.voters[0], id, gov.VoteAgainst)
	require.ErrorIs(t, err, gov.ErrAlreadyVoted)

	// the deployer holds tokens but never delegated
	w, err = e.vote(e.executor, id, gov.VoteAgainst)
	require.NoError(t, err)
	require.Equal(t, 0, w.Sign())

	votes, err := e.d.Governor.ProposalVotes(id)
	require.NoError(t, err)
	require.Equal(t, ether(t, "50"), votes.For)
	require.Equal(t, 0, votes.Against.Sign())

	e.endVoting(t, id)

	_, err = e.vote(e.voters[1], id, gov.VoteFor)
	require.ErrorIs(t, err, gov.ErrProposalNotActive)
}

func TestVotesAreWeighedAtSnapshot(t *testing.T) {
	e := setup(t, nil)

	id, err := e.propose(e.proposer, e.release(t), "release")
	require.NoError(t, err)

	// voter5 moves its whole balance to voter1 after the snapshot
	_, err = e.c.Transact(e.voters[4], func(tx *chain.Tx) error {
		return e.d.Token.Transfer(tx, e.voters[0], ether(t, "50"))
	})
	require.NoError(t, err)
	require.Equal(t, ether(t, "100"), e.d.Token.GetVotes(e.voters[0]))

	w, err := e.vote(e.voters[0], id, gov.VoteFor)
	require.NoError(t, err)
	require.Equal(t, ether(t, "50"), w)

	w, err = e.vote(e.voters[4], id, gov.VoteAgainst)
	require.NoError(t, err)
	require.Equal(t, ether(t, "50"), w)
}

func TestTieIsDefeated(t *testing.T) {
	e := setup(t, nil)

	id, err := e.propose(e.proposer, e.release(t), "release")
	require.NoError(t, err)

	_, err = e.vote(e.voters[0], id, gov.VoteFor)
	require.NoError(t, err)
	_, err = e.vote(e.voters[1], id, gov.VoteAgainst)
	require.NoError(t, err)

	require.Equal(t, gov.ProposalStateActive, e.state(t, id))

	e.endVoting(t, id)
	require.Equal(t, gov.ProposalStateDefeated, e.state(t, id))

	err = e.queue(e.executor, e.release(t), "release")
	require.ErrorIs(t, err, gov.ErrProposalNotSucceeded)
}

func TestQuorumCountsAbstain(t *testing.T) {
	e := setup(t, func(g *config.Genesis) {
		g.Governor.Quorum = 50
	})

	q, err := e.d.Governor.Quorum(e.c.Height() - 1)
	require.NoError(t, err)
	require.Equal(t, ether(t, "125"), q)

	short, err := e.propose(e.proposer, e.release(t), "short")
	require.NoError(t, err)

	enough, err := e.propose(e.proposer, e.release(t), "enough")
	require.NoError(t, err)

	for _, v := range e.voters[:2] {
		_, err := e.vote(v, short, gov.VoteFor)
		require.NoError(t, err)

		_, err = e.vote(v, enough, gov.VoteFor)
		require.NoError(t, err)
	}

	_, err = e.vote(e.voters[2], enough, gov.VoteAbstain)
	require.NoError(t, err)

	e.endVoting(t, enough)

	require.Equal(t, gov.ProposalStateDefeated, e.state(t, short))
	require.Equal(t, gov.ProposalStateSucceeded, e.state(t, enough))
}

func TestQueueAndExecute(t *testing.T) {
	e := setup(t, func(g *config.Genesis) {
		g.Timelock.MinDelay = 3
	})
	d := e.release(t)

	id, err := e.propose(e.proposer, d, "release")
	require.NoError(t, err)

	err = e.queue(e.executor, d, "release")
	require.ErrorIs(t, err, gov.ErrProposalNotSucceeded)

	for _, v := range e.voters[:3] {
		_, err := e.vote(v, id, gov.VoteFor)
		require.NoError(t, err)
	}
	e.endVoting(t, id)

	err = e.execute(e.executor, d, "release")
	require.ErrorIs(t, err, gov.ErrProposalNotQueued)

	require.NoError(t, e.queue(e.executor, d, "release"))
	require.Equal(t, gov.ProposalStateQueued, e.state(t, id))

	queuedAt := e.c.Height()
	eta, err := e.d.Governor.ProposalEta(id)
	require.NoError(t, err)
	require.Equal(t, queuedAt+3, eta)

	p, err := e.d.Governor.Proposal(id)
	require.NoError(t, err)
	require.Equal(t, gov.OperationScheduled, e.d.Timelock.GetOperationState(p.OpID))

	err = e.execute(e.executor, d, "release")
	require.ErrorIs(t, err, gov.ErrOperationNotReady)

	e.c.Mine(2)
	require.Equal(t, gov.ProposalStateQueued, e.state(t, id))

	require.NoError(t, e.execute(e.voters[0], d, "release"))
	require.Equal(t, gov.ProposalStateExecuted, e.state(t, id))
	require.True(t, e.d.Treasury.IsReleased())
	require.True(t, e.d.Timelock.IsOperationDone(p.OpID))

	err = e.execute(e.executor, d, "release")
	require.ErrorIs(t, err, gov.ErrProposalNotQueued)
}

func TestFailedExecutionStaysQueued(t *testing.T) {
	e := setup(t, nil)
	d := e.call(t, e.d.Governor.Address(), contracts.GovernorContract, "setVotingPeriod", big.NewInt(0))

	id := e.pass(t, d, "no voting")
	require.NoError(t, e.queue(e.executor, d, "no voting"))

	err := e.execute(e.executor, d, "no voting")
	require.ErrorIs(t, err, gov.ErrInvalidArguments)

	require.Equal(t, gov.ProposalStateQueued, e.state(t, id))
	require.Equal(t, uint64(5), e.d.Governor.VotingPeriod())

	// the proposal is only marked once its batch ran, not just rolled back after
	_, err = e.c.Transact(e.executor, func(tx *chain.Tx) error {
		_, err := e.d.Governor.Execute(tx, d, gov.DescriptionHash("no voting"))
		require.ErrorIs(t, err, gov.ErrInvalidArguments)

		st, serr := e.d.Governor.State(id)
		require.NoError(t, serr)
		require.Equal(t, gov.ProposalStateQueued, st)
		return err
	})
	require.Error(t, err)
}

func TestCancelPolicy(t *testing.T) {
	e := setup(t, func(g *config.Genesis) {
		g.Governor.Guardian = "executor"
	})
	guardian := e.executor

	t.Run("pending", func(t *testing.T) {
		id, err := e.propose(e.proposer, e.release(t), "pending")
		require.NoError(t, err)

		err = e.cancel(e.voters[0], id)
		require.ErrorIs(t, err, gov.ErrUnauthorized)

		require.NoError(t, e.cancel(e.proposer, id))
		require.Equal(t, gov.ProposalStateCanceled, e.state(t, id))

		err = e.cancel(e.proposer, id)
		require.ErrorIs(t, err, gov.ErrProposalNotCancelable)

		_, err = e.vote(e.voters[0], id, gov.VoteFor)
		require.ErrorIs(t, err, gov.ErrProposalNotActive)
	})

	t.Run("succeeded", func(t *testing.T) {
		id := e.pass(t, e.release(t), "succeeded")

		err := e.cancel(e.proposer, id)
		require.ErrorIs(t, err, gov.ErrProposalNotCancelable)

		err = e.cancel(e.voters[0], id)
		require.ErrorIs(t, err, gov.ErrUnauthorized)

		require.NoError(t, e.cancel(guardian, id))
		require.Equal(t, gov.ProposalStateCanceled, e.state(t, id))
	})

	t.Run("queued", func(t *testing.T) {
		d := e.release(t)
		id := e.pass(t, d, "queued")
		require.NoError(t, e.queue(e.executor, d, "queued"))

		p, err := e.d.Governor.Proposal(id)
		require.NoError(t, err)

		require.NoError(t, e.cancel(guardian, id))
		require.Equal(t, gov.ProposalStateCanceled, e.state(t, id))
		require.Equal(t, gov.OperationCanceled, e.d.Timelock.GetOperationState(p.OpID))

		err = e.execute(e.executor, d, "queued")
		require.ErrorIs(t, err, gov.ErrProposalNotQueued)
	})

	t.Run("defeated", func(t *testing.T) {
		id, err := e.propose(e.proposer, e.release(t), "defeated")
		require.NoError(t, err)
		e.endVoting(t, id)

		err = e.cancel(guardian, id)
		require.ErrorIs(t, err, gov.ErrProposalNotCancelable)
	})
}

func TestTimelockCancelCancelsProposal(t *testing.T) {
	e := setup(t, func(g *config.Genesis) {
		g.Timelock.MinDelay = 2
	})
	d := e.release(t)

	id := e.pass(t, d, "release")
	require.NoError(t, e.queue(e.executor, d, "release"))

	p, err := e.d.Governor.Proposal(id)
	require.NoError(t, err)

	// proposers of the timelock are also cancellers
	_, err = e.c.Transact(e.proposer, func(tx *chain.Tx) error {
		return e.d.Timelock.Cancel(tx, p.OpID)
	})
	require.NoError(t, err)

	require.Equal(t, gov.ProposalStateCanceled, e.state(t, id))
}

func TestGracePeriodExpires(t *testing.T) {
	e := setup(t, func(g *config.Genesis) {
		g.Governor.GracePeriod = 2
	})
	d := e.release(t)

	id := e.pass(t, d, "release")

	e.c.Mine(2)
	require.Equal(t, gov.ProposalStateExpired, e.state(t, id))

	err := e.queue(e.executor, d, "release")
	require.ErrorIs(t, err, gov.ErrProposalNotSucceeded)
}

func TestParametersOnlyThroughGovernance(t *testing.T) {
	e := setup(t, nil)

	_, err := e.c.Transact(e.proposer, func(tx *chain.Tx) error {
		return e.d.Governor.UpdateQuorumNumerator(tx, 10)
	})
	require.ErrorIs(t, err, gov.ErrUnauthorized)

	d := e.call(t, e.d.Governor.Address(), contracts.GovernorContract, "updateQuorumNumerator", big.NewInt(10))
	id := e.pass(t, d, "raise quorum")
	snapshot, err := e.d.Governor.ProposalSnapshot(id)
	require.NoError(t, err)

	require.NoError(t, e.queue(e.executor, d, "raise quorum"))
	require.NoError(t, e.execute(e.executor, d, "raise quorum"))
	executedAt := e.c.Height()

	require.Equal(t, uint64(10), e.d.Governor.QuorumNumerator())

	e.c.Mine(1)

	// earlier positions keep the numerator that was in force
	q, err := e.d.Governor.Quorum(snapshot)
	require.NoError(t, err)
	require.Equal(t, ether(t, "12.5"), q)

	q, err = e.d.Governor.Quorum(executedAt)
	require.NoError(t, err)
	require.Equal(t, ether(t, "25"), q)

	over := e.call(t, e.d.Governor.Address(), contracts.GovernorContract, "updateQuorumNumerator", big.NewInt(101))
	e.pass(t, over, "too much")
	require.NoError(t, e.queue(e.executor, over, "too much"))

	err = e.execute(e.executor, over, "too much")
	require.ErrorIs(t, err, gov.ErrInvalidArguments)
}

func TestGovernorABI(t *testing.T) {
	e := setup(t, nil)
	d := e.release(t)

	send := func(from common.Address, method string, args ...any) []any {
		data, err := contracts.Calldata(contracts.GovernorContract, method, args...)
		require.NoError(t, err)

		r, err := e.c.Send(from, e.d.Governor.Address(), nil, data)
		require.NoError(t, err)

		out, err := contracts.Decode(contracts.GovernorContract, method, r.Return)
		require.NoError(t, err)
		return out
	}

	out := send(e.proposer, "name")
	require.Equal(t, "Governance", out[0].(string))

	out = send(e.proposer, "votingPeriod")
	require.Equal(t, big.NewInt(5), out[0].(*big.Int))

	out = send(e.proposer, "timelock")
	require.Equal(t, e.d.Timelock.Address(), out[0].(common.Address))

	out = send(e.proposer, "propose", d.Targets, d.Values, d.Calldatas, "release")
	id := common.BigToHash(out[0].(*big.Int))

	out = send(e.proposer, "hashProposal", d.Targets, d.Values, d.Calldatas, [32]byte(gov.DescriptionHash("release")))
	require.Equal(t, id, common.BigToHash(out[0].(*big.Int)))

	out = send(e.voters[0], "castVoteWithReason", id.Big(), uint8(gov.VoteFor), "for the treasury")
	require.Equal(t, ether(t, "50"), out[0].(*big.Int))

	out = send(e.proposer, "state", id.Big())
	require.Equal(t, uint8(gov.ProposalStateActive), out[0].(uint8))

	out = send(e.proposer, "proposalVotes", id.Big())
	require.Len(t, out, 3)
	require.Equal(t, ether(t, "50"), out[1].(*big.Int))

	out = send(e.proposer, "hasVoted", id.Big(), e.voters[0])
	require.True(t, out[0].(bool))

	data, err := contracts.Calldata(contracts.GovernorContract, "setVotingDelay", big.NewInt(1))
	require.NoError(t, err)
	_, err = e.c.Send(e.proposer, e.d.Governor.Address(), nil, data)
	require.ErrorIs(t, err, gov.ErrUnauthorized)
}

func TestGovernorABIRejectsOutOfRangeArguments(t *testing.T) {
	e := setup(t, nil)

	huge := new(big.Int).Add(new(big.Int).SetUint64(math.MaxUint64), big.NewInt(2))

	data, err := contracts.Calldata(contracts.GovernorContract, "quorum", huge)
	require.NoError(t, err)
	_, err = e.c.Call(e.proposer, e.d.Governor.Address(), data)
	require.ErrorIs(t, err, gov.ErrInvalidQuery)

	data, err = contracts.Calldata(contracts.GovernorContract, "getVotes", e.voters[0], huge)
	require.NoError(t, err)
	_, err = e.c.Call(e.proposer, e.d.Governor.Address(), data)
	require.ErrorIs(t, err, gov.ErrInvalidQuery)

	// a setter argument past 64 bits fails the execution instead of truncating
	d := e.call(t, e.d.Governor.Address(), contracts.GovernorContract, "setVotingPeriod", huge)
	e.pass(t, d, "period")
	require.NoError(t, e.queue(e.executor, d, "period"))

	err = e.execute(e.executor, d, "period")
	require.ErrorIs(t, err, gov.ErrInvalidArguments)
	require.Equal(t, uint64(5), e.d.Governor.VotingPeriod())
}

func TestProposeRejectsOverflowingVotingWindow(t *testing.T) {
	e := setup(t, nil)

	d := e.call(t, e.d.Governor.Address(), contracts.GovernorContract, "setVotingDelay", new(big.Int).SetUint64(math.MaxUint64))
	e.pass(t, d, "delay forever")
	require.NoError(t, e.queue(e.executor, d, "delay forever"))
	require.NoError(t, e.execute(e.executor, d, "delay forever"))

	_, err := e.propose(e.proposer, e.release(t), "release")
	require.ErrorIs(t, err, gov.ErrInvalidArguments)
}
