package treasury

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/omnikdao/governance/internal/chain"
	"github.com/omnikdao/governance/pkg/contracts"
	"github.com/omnikdao/governance/pkg/governor"
)

// Balances reads native balances
type Balances interface {
	Balance(addr common.Address) *big.Int
}

// Treasury holds funds that only its owner can release, once, to the beneficiary
type Treasury struct {
	address     common.Address
	balances    Balances
	beneficiary common.Address

	s state
}

type state struct {
	owner    common.Address
	released bool
}

// New creates a treasury owned by owner. A zero beneficiary pays out to the initial owner.
func New(tx *chain.Tx, addr common.Address, balances Balances, owner, beneficiary common.Address) *Treasury {
	if beneficiary == (common.Address{}) {
		beneficiary = owner
	}

	t := &Treasury{
		address:     addr,
		balances:    balances,
		beneficiary: beneficiary,
		s:           state{owner: owner},
	}

	tx.Emit(governor.NewLog(addr, governor.EventOwnershipTransferred, map[string]any{
		"previousOwner": common.Address{},
		"newOwner":      owner,
	}))

	return t
}

func (t *Treasury) Address() common.Address {
	return t.address
}

func (t *Treasury) Snapshot() any {
	return t.s
}

func (t *Treasury) Restore(snapshot any) {
	t.s = snapshot.(state)
}

func (t *Treasury) Owner() common.Address {
	return t.s.owner
}

func (t *Treasury) Beneficiary() common.Address {
	return t.beneficiary
}

func (t *Treasury) IsReleased() bool {
	return t.s.released
}

func (t *Treasury) Balance() *big.Int {
	return t.balances.Balance(t.address)
}

func (t *Treasury) onlyOwner(tx *chain.Tx) error {
	if tx.Sender() != t.s.owner {
		return fmt.Errorf("%w: caller %s is not the owner", governor.ErrUnauthorized, tx.Sender().Hex())
	}
	return nil
}

// ReleaseFunds sends the whole balance to the beneficiary. It can only succeed once.
func (t *Treasury) ReleaseFunds(tx *chain.Tx) error {
	if err := t.onlyOwner(tx); err != nil {
		return err
	}

	if t.s.released {
		return governor.ErrAlreadyReleased
	}

	t.s.released = true

	amount := tx.Balance(t.address)
	if err := tx.As(t.address).Transfer(t.beneficiary, amount); err != nil {
		return err
	}

	tx.Emit(governor.NewLog(t.address, governor.EventFundsReleased, map[string]any{
		"beneficiary": t.beneficiary,
		"amount":      amount,
	}))

	return nil
}

func (t *Treasury) TransferOwnership(tx *chain.Tx, owner common.Address) error {
	if err := t.onlyOwner(tx); err != nil {
		return err
	}

	if owner == (common.Address{}) {
		return fmt.Errorf("%w: new owner is the zero address", governor.ErrInvalidArguments)
	}

	old := t.s.owner
	t.s.owner = owner

	tx.Emit(governor.NewLog(t.address, governor.EventOwnershipTransferred, map[string]any{
		"previousOwner": old,
		"newOwner":      owner,
	}))

	return nil
}

// Call runs an ABI encoded treasury call
func (t *Treasury) Call(tx *chain.Tx, input []byte) ([]byte, error) {
	// plain deposits
	if len(input) == 0 {
		return nil, nil
	}

	a, err := contracts.Load(contracts.TreasuryContract)
	if err != nil {
		return nil, err
	}

	return contracts.Dispatch(a, input, map[string]contracts.Handler{
		"owner": func(args []any) ([]any, error) {
			return []any{t.Owner()}, nil
		},
		"beneficiary": func(args []any) ([]any, error) {
			return []any{t.Beneficiary()}, nil
		},
		"isReleased": func(args []any) ([]any, error) {
			return []any{t.IsReleased()}, nil
		},
		"releaseFunds": func(args []any) ([]any, error) {
			return nil, t.ReleaseFunds(tx)
		},
		"transferOwnership": func(args []any) ([]any, error) {
			return nil, t.TransferOwnership(tx, args[0].(common.Address))
		},
	})
}
