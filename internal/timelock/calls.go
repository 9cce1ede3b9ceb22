package timelock

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/omnikdao/governance/internal/chain"
	"github.com/omnikdao/governance/pkg/contracts"
	"github.com/omnikdao/governance/pkg/governor"
)

func hash(v any) common.Hash {
	return common.Hash(v.([32]byte))
}

func descriptor(args []any) governor.Descriptor {
	return governor.NewDescriptor(args[0].([]common.Address), args[1].([]*big.Int), args[2].([][]byte))
}

func uint256(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

// Call runs an ABI encoded timelock call
func (t *Timelock) Call(tx *chain.Tx, input []byte) ([]byte, error) {
	a, err := contracts.Load(contracts.TimelockContract)
	if err != nil {
		return nil, err
	}

	return contracts.Dispatch(a, input, map[string]contracts.Handler{
		"TIMELOCK_ADMIN_ROLE": func(args []any) ([]any, error) {
			return []any{[32]byte(AdminRole)}, nil
		},
		"PROPOSER_ROLE": func(args []any) ([]any, error) {
			return []any{[32]byte(ProposerRole)}, nil
		},
		"EXECUTOR_ROLE": func(args []any) ([]any, error) {
			return []any{[32]byte(ExecutorRole)}, nil
		},
		"CANCELLER_ROLE": func(args []any) ([]any, error) {
			return []any{[32]byte(CancellerRole)}, nil
		},
		"getMinDelay": func(args []any) ([]any, error) {
			return []any{uint256(t.MinDelay())}, nil
		},
		"hasRole": func(args []any) ([]any, error) {
			return []any{t.HasRole(hash(args[0]), args[1].(common.Address))}, nil
		},
		"grantRole": func(args []any) ([]any, error) {
			return nil, t.GrantRole(tx, hash(args[0]), args[1].(common.Address))
		},
		"revokeRole": func(args []any) ([]any, error) {
			return nil, t.RevokeRole(tx, hash(args[0]), args[1].(common.Address))
		},
		"renounceRole": func(args []any) ([]any, error) {
			return nil, t.RenounceRole(tx, hash(args[0]), args[1].(common.Address))
		},
		"isOperation": func(args []any) ([]any, error) {
			return []any{t.IsOperation(hash(args[0]))}, nil
		},
		"isOperationPending": func(args []any) ([]any, error) {
			return []any{t.IsOperationPending(hash(args[0]))}, nil
		},
		"isOperationReady": func(args []any) ([]any, error) {
			return []any{t.IsOperationReady(hash(args[0]))}, nil
		},
		"isOperationDone": func(args []any) ([]any, error) {
			return []any{t.IsOperationDone(hash(args[0]))}, nil
		},
		"getTimestamp": func(args []any) ([]any, error) {
			return []any{uint256(t.GetTimestamp(hash(args[0])))}, nil
		},
		"hashOperation": func(args []any) ([]any, error) {
			id, err := t.HashOperation(args[0].(common.Address), args[1].(*big.Int), args[2].([]byte), hash(args[3]), hash(args[4]))
			if err != nil {
				return nil, err
			}
			return []any{[32]byte(id)}, nil
		},
		"hashOperationBatch": func(args []any) ([]any, error) {
			id, err := t.HashOperationBatch(descriptor(args), hash(args[3]), hash(args[4]))
			if err != nil {
				return nil, err
			}
			return []any{[32]byte(id)}, nil
		},
		"schedule": func(args []any) ([]any, error) {
			delay, err := contracts.Uint64Arg(args[5])
			if err != nil {
				return nil, err
			}
			_, err = t.Schedule(tx, args[0].(common.Address), args[1].(*big.Int), args[2].([]byte), hash(args[3]), hash(args[4]), delay)
			return nil, err
		},
		"scheduleBatch": func(args []any) ([]any, error) {
			delay, err := contracts.Uint64Arg(args[5])
			if err != nil {
				return nil, err
			}
			_, err = t.ScheduleBatch(tx, descriptor(args), hash(args[3]), hash(args[4]), delay)
			return nil, err
		},
		"execute": func(args []any) ([]any, error) {
			return nil, t.Execute(tx, args[0].(common.Address), args[1].(*big.Int), args[2].([]byte), hash(args[3]), hash(args[4]))
		},
		"executeBatch": func(args []any) ([]any, error) {
			return nil, t.ExecuteBatch(tx, descriptor(args), hash(args[3]), hash(args[4]))
		},
		"cancel": func(args []any) ([]any, error) {
			return nil, t.Cancel(tx, hash(args[0]))
		},
		"updateDelay": func(args []any) ([]any, error) {
			delay, err := contracts.Uint64Arg(args[0])
			if err != nil {
				return nil, err
			}
			return nil, t.UpdateDelay(tx, delay)
		},
	})
}
