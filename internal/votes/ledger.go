package votes

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/omnikdao/governance/internal/chain"
	"github.com/omnikdao/governance/pkg/governor"
)

// Ledger is a fungible token whose holders accrue voting power to a delegate.
// Balances that were never delegated carry no voting power.
type Ledger struct {
	address  common.Address
	clock    chain.Clock
	name     string
	symbol   string
	decimals uint8

	s *state
}

type state struct {
	supply      *big.Int
	balances    map[common.Address]*big.Int
	delegates   map[common.Address]common.Address
	checkpoints map[common.Address]*Trace
	totalSupply *Trace
	totalVotes  *Trace
}

func newState() *state {
	return &state{
		supply:      new(big.Int),
		balances:    map[common.Address]*big.Int{},
		delegates:   map[common.Address]common.Address{},
		checkpoints: map[common.Address]*Trace{},
		totalSupply: &Trace{},
		totalVotes:  &Trace{},
	}
}

func (s *state) copy() *state {
	cp := &state{
		supply:      new(big.Int).Set(s.supply),
		balances:    make(map[common.Address]*big.Int, len(s.balances)),
		delegates:   make(map[common.Address]common.Address, len(s.delegates)),
		checkpoints: make(map[common.Address]*Trace, len(s.checkpoints)),
		totalSupply: s.totalSupply.Copy(),
		totalVotes:  s.totalVotes.Copy(),
	}
	for k, v := range s.balances {
		cp.balances[k] = new(big.Int).Set(v)
	}
	for k, v := range s.delegates {
		cp.delegates[k] = v
	}
	for k, v := range s.checkpoints {
		cp.checkpoints[k] = v.Copy()
	}
	return cp
}

func New(addr common.Address, clock chain.Clock, name, symbol string) *Ledger {
	return &Ledger{
		address:  addr,
		clock:    clock,
		name:     name,
		symbol:   symbol,
		decimals: 18,
		s:        newState(),
	}
}

func (l *Ledger) Address() common.Address {
	return l.address
}

func (l *Ledger) Snapshot() any {
	return l.s.copy()
}

func (l *Ledger) Restore(snapshot any) {
	l.s = snapshot.(*state)
}

func (l *Ledger) Name() string {
	return l.name
}

func (l *Ledger) Symbol() string {
	return l.symbol
}

func (l *Ledger) Decimals() uint8 {
	return l.decimals
}

// Mint creates amount new tokens for to
func (l *Ledger) Mint(tx *chain.Tx, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) || amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: mint to %s", governor.ErrInvalidArguments, to.Hex())
	}

	l.s.supply.Add(l.s.supply, amount)
	if _, _, err := l.s.totalSupply.Push(tx.Position, l.s.supply); err != nil {
		return err
	}

	l.credit(to, amount)

	tx.Emit(governor.NewLog(l.address, governor.EventTransfer, map[string]any{
		"from":  common.Address{},
		"to":    to,
		"value": new(big.Int).Set(amount),
	}))

	return l.moveVotingPower(tx, common.Address{}, l.s.delegates[to], amount)
}

// Transfer moves amount from the caller to `to` along with the voting power of their delegates
func (l *Ledger) Transfer(tx *chain.Tx, to common.Address, amount *big.Int) error {
	from := tx.Sender()
	if to == (common.Address{}) || amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: transfer to %s", governor.ErrInvalidArguments, to.Hex())
	}

	b := l.BalanceOf(from)
	if b.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", governor.ErrInsufficientBalance, from.Hex(), b, amount)
	}

	l.s.balances[from] = b.Sub(b, amount)
	l.credit(to, amount)

	tx.Emit(governor.NewLog(l.address, governor.EventTransfer, map[string]any{
		"from":  from,
		"to":    to,
		"value": new(big.Int).Set(amount),
	}))

	return l.moveVotingPower(tx, l.s.delegates[from], l.s.delegates[to], amount)
}

// Delegate assigns the caller's balance-derived voting power to delegatee
func (l *Ledger) Delegate(tx *chain.Tx, delegatee common.Address) error {
	delegator := tx.Sender()
	old := l.s.delegates[delegator]

	if delegatee == (common.Address{}) {
		delete(l.s.delegates, delegator)
	} else {
		l.s.delegates[delegator] = delegatee
	}

	tx.Emit(governor.NewLog(l.address, governor.EventDelegateChanged, map[string]any{
		"delegator":    delegator,
		"fromDelegate": old,
		"toDelegate":   delegatee,
	}))

	return l.moveVotingPower(tx, old, delegatee, l.BalanceOf(delegator))
}

func (l *Ledger) credit(addr common.Address, amount *big.Int) {
	b, ok := l.s.balances[addr]
	if !ok {
		b = new(big.Int)
		l.s.balances[addr] = b
	}
	b.Add(b, amount)
}

func (l *Ledger) trace(addr common.Address) *Trace {
	t, ok := l.s.checkpoints[addr]
	if !ok {
		t = &Trace{}
		l.s.checkpoints[addr] = t
	}
	return t
}

func (l *Ledger) moveVotingPower(tx *chain.Tx, src, dst common.Address, amount *big.Int) error {
	if src == dst || amount.Sign() == 0 {
		return nil
	}

	zero := common.Address{}

	if src != zero {
		t := l.trace(src)
		old, nw, err := t.Push(tx.Position, new(big.Int).Sub(t.Latest(), amount))
		if err != nil {
			return err
		}
		l.emitVotesChanged(tx, src, old, nw)
	}

	if dst != zero {
		t := l.trace(dst)
		old, nw, err := t.Push(tx.Position, new(big.Int).Add(t.Latest(), amount))
		if err != nil {
			return err
		}
		l.emitVotesChanged(tx, dst, old, nw)
	}

	total := l.s.totalVotes.Latest()
	switch {
	case src == zero:
		total.Add(total, amount)
	case dst == zero:
		total.Sub(total, amount)
	default:
		return nil
	}

	_, _, err := l.s.totalVotes.Push(tx.Position, total)
	return err
}

func (l *Ledger) emitVotesChanged(tx *chain.Tx, delegate common.Address, old, nw *big.Int) {
	tx.Emit(governor.NewLog(l.address, governor.EventDelegateVotesChanged, map[string]any{
		"delegate":        delegate,
		"previousBalance": old,
		"newBalance":      nw,
	}))
}

func (l *Ledger) TotalSupply() *big.Int {
	return new(big.Int).Set(l.s.supply)
}

func (l *Ledger) BalanceOf(addr common.Address) *big.Int {
	b, ok := l.s.balances[addr]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(b)
}

// Delegates returns the delegate of account, the zero address if it never delegated
func (l *Ledger) Delegates(account common.Address) common.Address {
	return l.s.delegates[account]
}

// GetVotes returns the current voting power of account
func (l *Ledger) GetVotes(account common.Address) *big.Int {
	t, ok := l.s.checkpoints[account]
	if !ok {
		return new(big.Int)
	}
	return t.Latest()
}

func (l *Ledger) checkPast(position uint64) error {
	if current := l.clock.Position(); position >= current {
		return fmt.Errorf("%w: %d >= %d", governor.ErrInvalidQuery, position, current)
	}
	return nil
}

// GetPastVotes returns the voting power of account at a position strictly before the current one
func (l *Ledger) GetPastVotes(account common.Address, position uint64) (*big.Int, error) {
	if err := l.checkPast(position); err != nil {
		return nil, err
	}

	t, ok := l.s.checkpoints[account]
	if !ok {
		return new(big.Int), nil
	}
	return t.UpperLookup(position), nil
}

// GetPastTotalVotes returns the total delegated voting power at a past position
func (l *Ledger) GetPastTotalVotes(position uint64) (*big.Int, error) {
	if err := l.checkPast(position); err != nil {
		return nil, err
	}
	return l.s.totalVotes.UpperLookup(position), nil
}

func (l *Ledger) GetPastTotalSupply(position uint64) (*big.Int, error) {
	if err := l.checkPast(position); err != nil {
		return nil, err
	}
	return l.s.totalSupply.UpperLookup(position), nil
}

func (l *Ledger) NumCheckpoints(account common.Address) int {
	t, ok := l.s.checkpoints[account]
	if !ok {
		return 0
	}
	return t.Len()
}

// Checkpoints returns the i-th checkpoint of account
func (l *Ledger) Checkpoints(account common.Address, i int) (governor.Checkpoint, error) {
	t, ok := l.s.checkpoints[account]
	if !ok || i < 0 || i >= t.Len() {
		return governor.Checkpoint{}, fmt.Errorf("%w: checkpoint %d of %s", governor.ErrInvalidArguments, i, account.Hex())
	}
	return t.At(i), nil
}
