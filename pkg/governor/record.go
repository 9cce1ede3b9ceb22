package governor

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Tx is a committed external call as stored in the transaction log
type Tx struct {
	Position  uint64         `json:"position"`
	Hash      common.Hash    `json:"tx_hash"`
	From      common.Address `json:"from"`
	To        common.Address `json:"to"`
	Value     *big.Int       `json:"value"`
	Data      hexutil.Bytes  `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

// ProposalSummary is the indexed view of a proposal, refreshed whenever one of its events is committed
type ProposalSummary struct {
	ID          common.Hash    `json:"proposal_id"`
	Proposer    common.Address `json:"proposer"`
	Descriptor  Descriptor     `json:"descriptor"`
	Description string         `json:"description"`
	State       string         `json:"state"`

	Snapshot uint64        `json:"snapshot"`
	Deadline uint64        `json:"deadline"`
	Eta      uint64        `json:"eta"`
	Votes    ProposalVotes `json:"votes"`

	UpdatedPosition uint64    `json:"updated_position"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func NewProposalSummary(p *Proposal, state ProposalState, position uint64) *ProposalSummary {
	return &ProposalSummary{
		ID:              p.ID,
		Proposer:        p.Proposer,
		Descriptor:      p.Descriptor.Copy(),
		Description:     p.Description,
		State:           state.String(),
		Snapshot:        p.Snapshot,
		Deadline:        p.Deadline,
		Eta:             p.Eta,
		Votes:           p.Votes.Copy(),
		UpdatedPosition: position,
	}
}
