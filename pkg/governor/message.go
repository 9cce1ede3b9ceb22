package governor

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

type Message struct {
	ID         string
	CreatedAt  time.Time
	RetryCount int
	Message    any
}

// TxMessage is an external call waiting to be sequenced
type TxMessage struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Data  []byte

	// Reply receives exactly one result once the call has been applied or rejected
	Reply chan TxResult
}

type TxResult struct {
	Position uint64        `json:"position"`
	Hash     common.Hash   `json:"tx_hash"`
	Return   hexutil.Bytes `json:"return,omitempty"`
	Logs     []Log         `json:"logs,omitempty"`
	Err      error         `json:"-"`
}

func newMessage(id string, message any) *Message {
	return &Message{
		ID:         id,
		CreatedAt:  time.Now(),
		RetryCount: 0,
		Message:    message,
	}
}

func NewTxMessage(from, to common.Address, value *big.Int, data []byte) (*Message, TxMessage) {
	if value == nil {
		value = new(big.Int)
	}

	txm := TxMessage{
		From:  from,
		To:    to,
		Value: value,
		Data:  data,
		Reply: make(chan TxResult, 1),
	}

	id := crypto.Keccak256Hash(from.Bytes(), to.Bytes(), data).Hex()
	return newMessage(id, txm), txm
}
