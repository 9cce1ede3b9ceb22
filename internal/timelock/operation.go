package timelock

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/omnikdao/governance/internal/chain"
	"github.com/omnikdao/governance/pkg/governor"
)

// GetOperationState resolves Ready lazily from the current position
func (t *Timelock) GetOperationState(id common.Hash) governor.OperationState {
	op, ok := t.s.ops[id]
	if !ok {
		return governor.OperationUnset
	}

	if op.State == governor.OperationScheduled && t.clock.Position() >= op.ReadyAt {
		return governor.OperationReady
	}

	return op.State
}

// Operation returns a copy of the stored operation with its resolved state
func (t *Timelock) Operation(id common.Hash) (governor.Operation, bool) {
	op, ok := t.s.ops[id]
	if !ok {
		return governor.Operation{}, false
	}

	o := *op
	o.State = t.GetOperationState(id)
	return o, true
}

// IsOperation reports whether id is a live or executed operation
func (t *Timelock) IsOperation(id common.Hash) bool {
	s := t.GetOperationState(id)
	return s != governor.OperationUnset && s != governor.OperationCanceled
}

func (t *Timelock) IsOperationPending(id common.Hash) bool {
	s := t.GetOperationState(id)
	return s == governor.OperationScheduled || s == governor.OperationReady
}

func (t *Timelock) IsOperationReady(id common.Hash) bool {
	return t.GetOperationState(id) == governor.OperationReady
}

func (t *Timelock) IsOperationDone(id common.Hash) bool {
	return t.GetOperationState(id) == governor.OperationExecuted
}

// GetTimestamp returns the position at which id becomes ready, 0 if it is not a live operation
func (t *Timelock) GetTimestamp(id common.Hash) uint64 {
	if !t.IsOperation(id) {
		return 0
	}
	return t.s.ops[id].ReadyAt
}

func (t *Timelock) HashOperation(target common.Address, value *big.Int, data []byte, predecessor, salt common.Hash) (common.Hash, error) {
	return governor.HashOperation(target, value, data, predecessor, salt)
}

func (t *Timelock) HashOperationBatch(d governor.Descriptor, predecessor, salt common.Hash) (common.Hash, error) {
	return governor.HashOperationBatch(d, predecessor, salt)
}

// Schedule queues a single call
func (t *Timelock) Schedule(tx *chain.Tx, target common.Address, value *big.Int, data []byte, predecessor, salt common.Hash, delay uint64) (common.Hash, error) {
	if err := t.checkRole(ProposerRole, tx.Sender()); err != nil {
		return common.Hash{}, err
	}

	id, err := governor.HashOperation(target, value, data, predecessor, salt)
	if err != nil {
		return common.Hash{}, err
	}

	if err := t.schedule(tx, id, delay); err != nil {
		return common.Hash{}, err
	}

	t.emitScheduled(tx, id, 0, target, value, data, predecessor, delay)
	return id, nil
}

// ScheduleBatch queues the calls of d as one operation
func (t *Timelock) ScheduleBatch(tx *chain.Tx, d governor.Descriptor, predecessor, salt common.Hash, delay uint64) (common.Hash, error) {
	if err := t.checkRole(ProposerRole, tx.Sender()); err != nil {
		return common.Hash{}, err
	}

	id, err := governor.HashOperationBatch(d, predecessor, salt)
	if err != nil {
		return common.Hash{}, err
	}

	if err := t.schedule(tx, id, delay); err != nil {
		return common.Hash{}, err
	}

	for i := range d.Targets {
		t.emitScheduled(tx, id, i, d.Targets[i], d.Values[i], d.Calldatas[i], predecessor, delay)
	}
	return id, nil
}

func (t *Timelock) schedule(tx *chain.Tx, id common.Hash, delay uint64) error {
	if s := t.GetOperationState(id); s != governor.OperationUnset && s != governor.OperationCanceled {
		return fmt.Errorf("%w: %s is %s", governor.ErrAlreadyScheduled, id.Hex(), s)
	}

	if delay < t.s.minDelay {
		return fmt.Errorf("%w: %d < %d", governor.ErrDelayTooShort, delay, t.s.minDelay)
	}

	if delay > math.MaxUint64-tx.Position {
		return fmt.Errorf("%w: delay %d overflows the position", governor.ErrInvalidArguments, delay)
	}

	t.s.ops[id] = &governor.Operation{
		ID:      id,
		ReadyAt: tx.Position + delay,
		State:   governor.OperationScheduled,
	}
	return nil
}

func (t *Timelock) emitScheduled(tx *chain.Tx, id common.Hash, index int, target common.Address, value *big.Int, data []byte, predecessor common.Hash, delay uint64) {
	tx.Emit(governor.NewLog(t.address, governor.EventCallScheduled, map[string]any{
		"id":          id,
		"index":       index,
		"target":      target,
		"value":       new(big.Int).Set(value),
		"data":        common.CopyBytes(data),
		"predecessor": predecessor,
		"delay":       delay,
	}))
}

func (t *Timelock) checkExecutor(account common.Address) error {
	if t.HasRole(ExecutorRole, common.Address{}) {
		return nil
	}
	return t.checkRole(ExecutorRole, account)
}

// Execute runs a ready single call operation
func (t *Timelock) Execute(tx *chain.Tx, target common.Address, value *big.Int, data []byte, predecessor, salt common.Hash) error {
	if err := t.checkExecutor(tx.Sender()); err != nil {
		return err
	}

	id, err := governor.HashOperation(target, value, data, predecessor, salt)
	if err != nil {
		return err
	}

	d := governor.NewDescriptor([]common.Address{target}, []*big.Int{value}, [][]byte{data})
	return t.execute(tx, id, d, predecessor)
}

// ExecuteBatch runs every call of a ready operation. A failing call fails the whole batch.
func (t *Timelock) ExecuteBatch(tx *chain.Tx, d governor.Descriptor, predecessor, salt common.Hash) error {
	if err := t.checkExecutor(tx.Sender()); err != nil {
		return err
	}

	id, err := governor.HashOperationBatch(d, predecessor, salt)
	if err != nil {
		return err
	}

	return t.execute(tx, id, d, predecessor)
}

func (t *Timelock) beforeCall(id, predecessor common.Hash) error {
	switch s := t.GetOperationState(id); s {
	case governor.OperationReady:
	case governor.OperationExecuted:
		return fmt.Errorf("%w: %s", governor.ErrOperationExecuted, id.Hex())
	default:
		return fmt.Errorf("%w: %s is %s", governor.ErrOperationNotReady, id.Hex(), s)
	}

	if predecessor != (common.Hash{}) && !t.IsOperationDone(predecessor) {
		return fmt.Errorf("%w: %s", governor.ErrPredecessorNotExecuted, predecessor.Hex())
	}

	return nil
}

func (t *Timelock) execute(tx *chain.Tx, id common.Hash, d governor.Descriptor, predecessor common.Hash) error {
	if err := t.beforeCall(id, predecessor); err != nil {
		return err
	}

	self := tx.As(t.address)
	for i := range d.Targets {
		if _, err := self.Call(d.Targets[i], d.Values[i], d.Calldatas[i]); err != nil {
			return fmt.Errorf("call %d to %s reverted: %w", i, d.Targets[i].Hex(), err)
		}

		tx.Emit(governor.NewLog(t.address, governor.EventCallExecuted, map[string]any{
			"id":     id,
			"index":  i,
			"target": d.Targets[i],
			"value":  new(big.Int).Set(d.Values[i]),
			"data":   common.CopyBytes(d.Calldatas[i]),
		}))
	}

	// a target may have reentered and changed the operation
	if !t.IsOperationReady(id) {
		return fmt.Errorf("%w: %s", governor.ErrOperationNotReady, id.Hex())
	}

	t.s.ops[id].State = governor.OperationExecuted
	return nil
}

// Cancel withdraws a scheduled operation, ready or not, that has not been executed
func (t *Timelock) Cancel(tx *chain.Tx, id common.Hash) error {
	if err := t.checkRole(CancellerRole, tx.Sender()); err != nil {
		return err
	}

	if !t.IsOperationPending(id) {
		return fmt.Errorf("%w: %s is %s", governor.ErrOperationNotPending, id.Hex(), t.GetOperationState(id))
	}

	t.s.ops[id].State = governor.OperationCanceled

	tx.Emit(governor.NewLog(t.address, governor.EventCancelled, map[string]any{
		"id": id,
	}))
	return nil
}
