package governor

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ProposalState follows the enum order of the governor contract
//
//	enum ProposalState {
//	   Pending,
//	   Active,
//	   Canceled,
//	   Defeated,
//	   Succeeded,
//	   Queued,
//	   Expired,
//	   Executed
//	}
type ProposalState uint8

const (
	ProposalStatePending ProposalState = iota
	ProposalStateActive
	ProposalStateCanceled
	ProposalStateDefeated
	ProposalStateSucceeded
	ProposalStateQueued
	ProposalStateExpired
	ProposalStateExecuted
)

var proposalStateNames = [...]string{
	"pending",
	"active",
	"canceled",
	"defeated",
	"succeeded",
	"queued",
	"expired",
	"executed",
}

func (s ProposalState) String() string {
	if int(s) < len(proposalStateNames) {
		return proposalStateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible
func (s ProposalState) Terminal() bool {
	switch s {
	case ProposalStateCanceled, ProposalStateDefeated, ProposalStateExpired, ProposalStateExecuted:
		return true
	}
	return false
}

type VoteType uint8

const (
	VoteAgainst VoteType = iota
	VoteFor
	VoteAbstain
)

func (v VoteType) Valid() bool {
	return v <= VoteAbstain
}

func (v VoteType) String() string {
	switch v {
	case VoteAgainst:
		return "against"
	case VoteFor:
		return "for"
	case VoteAbstain:
		return "abstain"
	}
	return "unknown"
}

type OperationState uint8

const (
	OperationUnset OperationState = iota
	OperationScheduled
	OperationReady
	OperationExecuted
	OperationCanceled
)

func (s OperationState) String() string {
	switch s {
	case OperationUnset:
		return "unset"
	case OperationScheduled:
		return "scheduled"
	case OperationReady:
		return "ready"
	case OperationExecuted:
		return "executed"
	case OperationCanceled:
		return "canceled"
	}
	return "unknown"
}

// Checkpoint records the voting power an account held from Position onwards
type Checkpoint struct {
	Position uint64   `json:"position"`
	Votes    *big.Int `json:"votes"`
}

// ProposalVotes is the tally of a proposal, in the order the contract returns it
type ProposalVotes struct {
	Against *big.Int `json:"against_votes"`
	For     *big.Int `json:"for_votes"`
	Abstain *big.Int `json:"abstain_votes"`
}

func NewProposalVotes() ProposalVotes {
	return ProposalVotes{
		Against: new(big.Int),
		For:     new(big.Int),
		Abstain: new(big.Int),
	}
}

// Total is the participation counted towards quorum
func (v ProposalVotes) Total() *big.Int {
	t := new(big.Int).Add(v.Against, v.For)
	return t.Add(t, v.Abstain)
}

func (v ProposalVotes) Copy() ProposalVotes {
	return ProposalVotes{
		Against: new(big.Int).Set(v.Against),
		For:     new(big.Int).Set(v.For),
		Abstain: new(big.Int).Set(v.Abstain),
	}
}

type Proposal struct {
	ID              common.Hash    `json:"proposal_id"`
	Proposer        common.Address `json:"proposer"`
	Descriptor      Descriptor     `json:"descriptor"`
	Description     string         `json:"description"`
	DescriptionHash common.Hash    `json:"description_hash"`

	Snapshot uint64 `json:"snapshot"`
	Deadline uint64 `json:"deadline"`

	Votes    ProposalVotes           `json:"votes"`
	Voters   map[common.Address]bool `json:"-"`
	Queued   bool                    `json:"queued"`
	Eta      uint64                  `json:"eta"`
	OpID     common.Hash             `json:"operation_id"`
	Executed bool                    `json:"executed"`
	Canceled bool                    `json:"canceled"`
}

// Clone returns a deep copy, so the original may be restored after a failed call
func (p *Proposal) Clone() *Proposal {
	c := *p
	c.Descriptor = p.Descriptor.Copy()
	c.Votes = p.Votes.Copy()
	c.Voters = make(map[common.Address]bool, len(p.Voters))
	for k, v := range p.Voters {
		c.Voters[k] = v
	}
	return &c
}

type Operation struct {
	ID      common.Hash    `json:"operation_id"`
	ReadyAt uint64         `json:"ready_at"`
	State   OperationState `json:"state"`
}
