package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/omnikdao/governance/pkg/governor"
)

// Tx is one call frame of a running transaction
type Tx struct {
	chain *Chain
	hash  common.Hash

	sender common.Address
	value  *big.Int

	// Position is the ordered position the transaction executes at
	Position uint64
}

func (tx *Tx) Hash() common.Hash {
	return tx.hash
}

// Sender is the immediate caller of the current frame
func (tx *Tx) Sender() common.Address {
	return tx.sender
}

// Value is the native amount sent with the current frame
func (tx *Tx) Value() *big.Int {
	return new(big.Int).Set(tx.value)
}

// As returns a frame in which addr is the caller, used by contracts to act on their own behalf
func (tx *Tx) As(addr common.Address) *Tx {
	return &Tx{
		chain:    tx.chain,
		hash:     tx.hash,
		sender:   addr,
		value:    new(big.Int),
		Position: tx.Position,
	}
}

// Call transfers value from the frame's caller to `to` and, if `to` is a contract, runs data against it
func (tx *Tx) Call(to common.Address, value *big.Int, data []byte) ([]byte, error) {
	c := tx.chain
	if c.depth >= maxCallDepth {
		return nil, ErrCallDepth
	}

	if value == nil {
		value = new(big.Int)
	}

	if err := c.transfer(tx.sender, to, value); err != nil {
		return nil, err
	}

	ct, ok := c.contracts[to]
	if !ok {
		if len(data) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoContract, to.Hex())
		}
		return nil, nil
	}

	child := &Tx{
		chain:    c,
		hash:     tx.hash,
		sender:   tx.sender,
		value:    new(big.Int).Set(value),
		Position: tx.Position,
	}

	c.depth++
	defer func() { c.depth-- }()

	return ct.Call(child, data)
}

// Transfer moves native balance from the frame's caller without invoking code
func (tx *Tx) Transfer(to common.Address, amount *big.Int) error {
	return tx.chain.transfer(tx.sender, to, amount)
}

// Balance returns the native balance of addr as seen by the running transaction
func (tx *Tx) Balance(addr common.Address) *big.Int {
	return tx.chain.Balance(addr)
}

// Emit buffers an event; it is delivered only if the transaction commits
func (tx *Tx) Emit(l governor.Log) {
	tx.chain.emit(tx.hash, l)
}
