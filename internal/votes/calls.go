package votes

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/omnikdao/governance/internal/chain"
	"github.com/omnikdao/governance/pkg/contracts"
)

// Call runs an ABI encoded token call
func (l *Ledger) Call(tx *chain.Tx, input []byte) ([]byte, error) {
	a, err := contracts.Load(contracts.TokenContract)
	if err != nil {
		return nil, err
	}

	return contracts.Dispatch(a, input, map[string]contracts.Handler{
		"name": func(args []any) ([]any, error) {
			return []any{l.name}, nil
		},
		"symbol": func(args []any) ([]any, error) {
			return []any{l.symbol}, nil
		},
		"decimals": func(args []any) ([]any, error) {
			return []any{l.decimals}, nil
		},
		"totalSupply": func(args []any) ([]any, error) {
			return []any{l.TotalSupply()}, nil
		},
		"balanceOf": func(args []any) ([]any, error) {
			return []any{l.BalanceOf(args[0].(common.Address))}, nil
		},
		"transfer": func(args []any) ([]any, error) {
			if err := l.Transfer(tx, args[0].(common.Address), args[1].(*big.Int)); err != nil {
				return nil, err
			}
			return []any{true}, nil
		},
		"delegate": func(args []any) ([]any, error) {
			return nil, l.Delegate(tx, args[0].(common.Address))
		},
		"delegates": func(args []any) ([]any, error) {
			return []any{l.Delegates(args[0].(common.Address))}, nil
		},
		"getVotes": func(args []any) ([]any, error) {
			return []any{l.GetVotes(args[0].(common.Address))}, nil
		},
		"getPastVotes": func(args []any) ([]any, error) {
			position, err := contracts.PositionArg(args[1])
			if err != nil {
				return nil, err
			}
			v, err := l.GetPastVotes(args[0].(common.Address), position)
			if err != nil {
				return nil, err
			}
			return []any{v}, nil
		},
		"getPastTotalSupply": func(args []any) ([]any, error) {
			position, err := contracts.PositionArg(args[0])
			if err != nil {
				return nil, err
			}
			v, err := l.GetPastTotalSupply(position)
			if err != nil {
				return nil, err
			}
			return []any{v}, nil
		},
		"numCheckpoints": func(args []any) ([]any, error) {
			return []any{uint32(l.NumCheckpoints(args[0].(common.Address)))}, nil
		},
		"clock": func(args []any) ([]any, error) {
			return []any{new(big.Int).SetUint64(tx.Position)}, nil
		},
	})
}
