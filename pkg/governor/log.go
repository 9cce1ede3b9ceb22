package governor

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// governor
	EventProposalCreated        = "ProposalCreated(uint256,address,address[],uint256[],string[],bytes[],uint256,uint256,string)"
	EventVoteCast               = "VoteCast(address,uint256,uint8,uint256,string)"
	EventProposalQueued         = "ProposalQueued(uint256,uint256)"
	EventProposalExecuted       = "ProposalExecuted(uint256)"
	EventProposalCanceled       = "ProposalCanceled(uint256)"
	EventVotingDelaySet         = "VotingDelaySet(uint256,uint256)"
	EventVotingPeriodSet        = "VotingPeriodSet(uint256,uint256)"
	EventProposalThresholdSet   = "ProposalThresholdSet(uint256,uint256)"
	EventQuorumNumeratorUpdated = "QuorumNumeratorUpdated(uint256,uint256)"

	// timelock
	EventCallScheduled  = "CallScheduled(bytes32,uint256,address,uint256,bytes,bytes32,uint256)"
	EventCallExecuted   = "CallExecuted(bytes32,uint256,address,uint256,bytes)"
	EventCancelled      = "Cancelled(bytes32)"
	EventMinDelayChange = "MinDelayChange(uint256,uint256)"
	EventRoleGranted    = "RoleGranted(bytes32,address,address)"
	EventRoleRevoked    = "RoleRevoked(bytes32,address,address)"

	// token
	EventTransfer             = "Transfer(address,address,uint256)"
	EventDelegateChanged      = "DelegateChanged(address,address,address)"
	EventDelegateVotesChanged = "DelegateVotesChanged(address,uint256,uint256)"

	// treasury
	EventOwnershipTransferred = "OwnershipTransferred(address,address)"
	EventFundsReleased        = "FundsReleased(address,uint256)"
)

// Log is an event emitted by a contract during a committed call
type Log struct {
	Position uint64         `json:"position"`
	TxHash   common.Hash    `json:"tx_hash"`
	Index    int            `json:"log_index"`
	Address  common.Address `json:"address"`
	Name     string         `json:"name"`
	Topic    common.Hash    `json:"topic"`
	Data     map[string]any `json:"data"`
}

func NewLog(addr common.Address, signature string, data map[string]any) Log {
	return Log{
		Address: addr,
		Name:    EventName(signature),
		Topic:   crypto.Keccak256Hash([]byte(signature)),
		Data:    data,
	}
}

// EventName strips the argument list from an event signature
func EventName(signature string) string {
	if i := strings.IndexByte(signature, '('); i >= 0 {
		return signature[:i]
	}
	return signature
}
