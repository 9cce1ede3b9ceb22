package chain

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/omnikdao/governance/pkg/governor"
)

const maxCallDepth = 64

var (
	ErrNoContract        = errors.New("no contract at address")
	ErrContractExists    = errors.New("contract already deployed at address")
	ErrInsufficientFunds = errors.New("insufficient funds for transfer")
	ErrCallDepth         = errors.New("max call depth exceeded")
	ErrPositionInPast    = errors.New("position is not after the current height")
	ErrRecordFailed      = errors.New("failed to record call")
)

// Contract is a state machine addressable by the chain
type Contract interface {
	Address() common.Address
	Call(tx *Tx, input []byte) ([]byte, error)

	// Snapshot returns a deep copy of the contract state, Restore puts it back
	Snapshot() any
	Restore(snapshot any)
}

// Clock reports the ordered position contracts evaluate reads at
type Clock interface {
	Position() uint64
}

// Recorder persists a call before it is committed. A failing recorder aborts the call.
// RecordHeight persists the height reached by mining empty positions.
type Recorder interface {
	Record(r *Receipt) error
	RecordHeight(height uint64) error
}

type Receipt struct {
	Position uint64         `json:"position"`
	Hash     common.Hash    `json:"tx_hash"`
	From     common.Address `json:"from"`
	To       common.Address `json:"to"`
	Value    *big.Int       `json:"value"`
	Data     []byte         `json:"data"`
	Return   []byte         `json:"return"`
	Logs     []governor.Log `json:"logs"`

	// Replayed is set when the call was re-applied from the stored log on startup
	Replayed bool `json:"-"`
}

// Chain applies external calls one at a time against a single ordered position counter.
// Height is the last committed position; a call runs at Height+1.
type Chain struct {
	mu sync.RWMutex

	chainID  *big.Int
	height   uint64
	position uint64

	contracts map[common.Address]Contract
	order     []common.Address
	balances  map[common.Address]*big.Int
	nonces    map[common.Address]uint64

	pending   []governor.Log
	depth     int
	replaying bool

	recorder    Recorder
	subscribers []func(*Receipt)
}

func New(chainID *big.Int) *Chain {
	return &Chain{
		chainID:   chainID,
		contracts: map[common.Address]Contract{},
		balances:  map[common.Address]*big.Int{},
		nonces:    map[common.Address]uint64{},
	}
}

func (c *Chain) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Position is the ordered position contracts observe: the running call's
// position inside Transact, the committed height otherwise
func (c *Chain) Position() uint64 {
	return c.position
}

// Height returns the last committed position
func (c *Chain) Height() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}

func (c *Chain) SetRecorder(r Recorder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorder = r
}

// Subscribe registers fn to receive every committed receipt, in order
func (c *Chain) Subscribe(fn func(*Receipt)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// Fund credits native balance outside of any call, used for genesis allocations
func (c *Chain) Fund(addr common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credit(addr, amount)
}

func (c *Chain) Balance(addr common.Address) *big.Int {
	b, ok := c.balances[addr]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(b)
}

func (c *Chain) Contract(addr common.Address) (Contract, bool) {
	ct, ok := c.contracts[addr]
	return ct, ok
}

// Mine advances the height by n empty positions and returns the new height
func (c *Chain) Mine(n uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n > math.MaxUint64-c.height {
		return c.height, fmt.Errorf("%w: mining %d positions past %d overflows the height", governor.ErrInvalidArguments, n, c.height)
	}

	height := c.height + n

	if c.recorder != nil && !c.replaying {
		err := c.recorder.RecordHeight(height)
		if err != nil {
			return c.height, fmt.Errorf("%w: %w", ErrRecordFailed, err)
		}
	}

	c.height = height
	c.position = c.height
	return c.height, nil
}

// View evaluates fn against committed state
func (c *Chain) View(fn func() error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fn()
}

// Transact applies fn as one atomic unit at position Height+1. If fn fails every
// contract, balance and nonce is restored and no logs are delivered.
func (c *Chain) Transact(from common.Address, fn func(tx *Tx) error) (*Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.transact(from, common.Address{}, nil, nil, fn)
}

// Send applies an ABI encoded call from an external account
func (c *Chain) Send(from, to common.Address, value *big.Int, data []byte) (*Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.send(from, to, value, data)
}

// Call evaluates an ABI encoded call against committed state and discards its effects
func (c *Chain) Call(from, to common.Address, data []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.snapshot()
	c.pending = nil
	c.depth = 0

	tx := &Tx{
		chain:    c,
		sender:   from,
		value:    new(big.Int),
		Position: c.height,
	}

	ret, err := tx.Call(to, nil, data)

	c.pending = nil
	c.restore(snap)
	c.position = c.height

	return ret, err
}

// Replay applies a previously recorded call at its original position
func (c *Chain) Replay(position uint64, from, to common.Address, value *big.Int, data []byte) (*Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if position <= c.height {
		return nil, fmt.Errorf("%w: %d <= %d", ErrPositionInPast, position, c.height)
	}

	c.replaying = true
	defer func() { c.replaying = false }()

	height := c.height
	c.height = position - 1
	c.position = c.height

	r, err := c.send(from, to, value, data)
	if err != nil {
		c.height = height
		c.position = height
		return nil, err
	}

	return r, nil
}

// Deploy registers the contract built by factory at the next address of deployer
// and moves value into it
func (c *Chain) Deploy(deployer common.Address, value *big.Int, factory func(tx *Tx, addr common.Address) (Contract, error)) (Contract, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var deployed Contract
	_, err := c.transact(deployer, common.Address{}, value, nil, func(tx *Tx) error {
		addr := crypto.CreateAddress(deployer, c.nonces[deployer])
		if _, ok := c.contracts[addr]; ok {
			return fmt.Errorf("%w: %s", ErrContractExists, addr.Hex())
		}

		ct, err := factory(tx, addr)
		if err != nil {
			return err
		}

		c.contracts[addr] = ct
		c.order = append(c.order, addr)

		if value != nil && value.Sign() > 0 {
			if err := c.transfer(deployer, addr, value); err != nil {
				return err
			}
		}

		deployed = ct
		return nil
	})
	if err != nil {
		return nil, err
	}

	return deployed, nil
}

func (c *Chain) send(from, to common.Address, value *big.Int, data []byte) (*Receipt, error) {
	var ret []byte
	r, err := c.transact(from, to, value, data, func(tx *Tx) error {
		var err error
		ret, err = tx.Call(to, value, data)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.Return = ret
	return r, nil
}

type snapshot struct {
	contracts map[common.Address]Contract
	order     []common.Address
	states    map[common.Address]any
	balances  map[common.Address]*big.Int
	nonces    map[common.Address]uint64
}

func (c *Chain) snapshot() *snapshot {
	s := &snapshot{
		contracts: make(map[common.Address]Contract, len(c.contracts)),
		order:     append([]common.Address(nil), c.order...),
		states:    make(map[common.Address]any, len(c.contracts)),
		balances:  make(map[common.Address]*big.Int, len(c.balances)),
		nonces:    make(map[common.Address]uint64, len(c.nonces)),
	}

	for addr, ct := range c.contracts {
		s.contracts[addr] = ct
		s.states[addr] = ct.Snapshot()
	}
	for addr, b := range c.balances {
		s.balances[addr] = new(big.Int).Set(b)
	}
	for addr, n := range c.nonces {
		s.nonces[addr] = n
	}

	return s
}

func (c *Chain) restore(s *snapshot) {
	c.contracts = s.contracts
	c.order = s.order
	for addr, ct := range c.contracts {
		ct.Restore(s.states[addr])
	}
	c.balances = s.balances
	c.nonces = s.nonces
}

func (c *Chain) transact(from, to common.Address, value *big.Int, data []byte, fn func(tx *Tx) error) (*Receipt, error) {
	if value == nil {
		value = new(big.Int)
	}

	if c.height == math.MaxUint64 {
		return nil, fmt.Errorf("%w: no position left after %d", governor.ErrInvalidArguments, c.height)
	}

	snap := c.snapshot()

	position := c.height + 1
	c.position = position
	c.pending = nil
	c.depth = 0

	r := &Receipt{
		Position: position,
		Hash:     txHash(from, c.nonces[from], to, value, data),
		From:     from,
		To:       to,
		Value:    new(big.Int).Set(value),
		Data:     common.CopyBytes(data),
		Replayed: c.replaying,
	}

	tx := &Tx{
		chain:    c,
		hash:     r.Hash,
		sender:   from,
		value:    new(big.Int),
		Position: position,
	}

	err := fn(tx)
	if err == nil {
		c.nonces[from]++
		r.Logs = c.pending

		if c.recorder != nil && !c.replaying {
			err = c.recorder.Record(r)
			if err != nil {
				err = fmt.Errorf("%w: %w", ErrRecordFailed, err)
			}
		}
	}

	c.pending = nil
	if err != nil {
		c.restore(snap)
		c.position = c.height
		return nil, err
	}

	c.height = position
	c.position = c.height

	for _, s := range c.subscribers {
		s(r)
	}

	return r, nil
}

func (c *Chain) credit(addr common.Address, amount *big.Int) {
	b, ok := c.balances[addr]
	if !ok {
		b = new(big.Int)
		c.balances[addr] = b
	}
	b.Add(b, amount)
}

func (c *Chain) transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}

	b, ok := c.balances[from]
	if !ok || b.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, from.Hex(), c.Balance(from), amount)
	}

	b.Sub(b, amount)
	c.credit(to, amount)
	return nil
}

func (c *Chain) emit(hash common.Hash, l governor.Log) {
	l.Position = c.position
	l.TxHash = hash
	l.Index = len(c.pending)
	c.pending = append(c.pending, l)
}

func txHash(from common.Address, nonce uint64, to common.Address, value *big.Int, data []byte) common.Hash {
	return crypto.Keccak256Hash(
		from.Bytes(),
		new(big.Int).SetUint64(nonce).Bytes(),
		to.Bytes(),
		value.Bytes(),
		data,
	)
}
