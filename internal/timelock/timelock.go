package timelock

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/omnikdao/governance/internal/chain"
	"github.com/omnikdao/governance/pkg/governor"
)

var (
	AdminRole     = crypto.Keccak256Hash([]byte("TIMELOCK_ADMIN_ROLE"))
	ProposerRole  = crypto.Keccak256Hash([]byte("PROPOSER_ROLE"))
	ExecutorRole  = crypto.Keccak256Hash([]byte("EXECUTOR_ROLE"))
	CancellerRole = crypto.Keccak256Hash([]byte("CANCELLER_ROLE"))
)

// RoleName returns the readable name of a known role
func RoleName(role common.Hash) string {
	switch role {
	case AdminRole:
		return "TIMELOCK_ADMIN_ROLE"
	case ProposerRole:
		return "PROPOSER_ROLE"
	case ExecutorRole:
		return "EXECUTOR_ROLE"
	case CancellerRole:
		return "CANCELLER_ROLE"
	}
	return role.Hex()
}

// Timelock holds scheduled operations until their delay has elapsed and
// executes each of them at most once
type Timelock struct {
	address common.Address
	clock   chain.Clock

	s *state
}

type state struct {
	minDelay uint64
	roles    map[common.Hash]map[common.Address]bool
	ops      map[common.Hash]*governor.Operation
}

func (s *state) copy() *state {
	cp := &state{
		minDelay: s.minDelay,
		roles:    make(map[common.Hash]map[common.Address]bool, len(s.roles)),
		ops:      make(map[common.Hash]*governor.Operation, len(s.ops)),
	}
	for role, members := range s.roles {
		m := make(map[common.Address]bool, len(members))
		for k, v := range members {
			m[k] = v
		}
		cp.roles[role] = m
	}
	for id, op := range s.ops {
		o := *op
		cp.ops[id] = &o
	}
	return cp
}

// New sets up the roles of a timelock deployed at addr. Proposers are also cancellers,
// a zero address executor opens execution to anyone and a zero admin is skipped.
func New(tx *chain.Tx, addr common.Address, clock chain.Clock, minDelay uint64, proposers, executors []common.Address, admin common.Address) *Timelock {
	t := &Timelock{
		address: addr,
		clock:   clock,
		s: &state{
			roles: map[common.Hash]map[common.Address]bool{},
			ops:   map[common.Hash]*governor.Operation{},
		},
	}

	t.grant(tx, AdminRole, addr)
	if admin != (common.Address{}) {
		t.grant(tx, AdminRole, admin)
	}

	for _, p := range proposers {
		t.grant(tx, ProposerRole, p)
		t.grant(tx, CancellerRole, p)
	}

	for _, e := range executors {
		t.grant(tx, ExecutorRole, e)
	}

	t.s.minDelay = minDelay
	tx.Emit(governor.NewLog(addr, governor.EventMinDelayChange, map[string]any{
		"oldDuration": new(big.Int),
		"newDuration": new(big.Int).SetUint64(minDelay),
	}))

	return t
}

func (t *Timelock) Address() common.Address {
	return t.address
}

func (t *Timelock) Snapshot() any {
	return t.s.copy()
}

func (t *Timelock) Restore(snapshot any) {
	t.s = snapshot.(*state)
}

func (t *Timelock) MinDelay() uint64 {
	return t.s.minDelay
}

func (t *Timelock) HasRole(role common.Hash, account common.Address) bool {
	return t.s.roles[role][account]
}

func (t *Timelock) checkRole(role common.Hash, account common.Address) error {
	if !t.HasRole(role, account) {
		return fmt.Errorf("%w: account %s is missing role %s", governor.ErrUnauthorized, account.Hex(), RoleName(role))
	}
	return nil
}

func (t *Timelock) grant(tx *chain.Tx, role common.Hash, account common.Address) {
	if t.HasRole(role, account) {
		return
	}

	members, ok := t.s.roles[role]
	if !ok {
		members = map[common.Address]bool{}
		t.s.roles[role] = members
	}
	members[account] = true

	tx.Emit(governor.NewLog(t.address, governor.EventRoleGranted, map[string]any{
		"role":    role,
		"account": account,
		"sender":  tx.Sender(),
	}))
}

func (t *Timelock) revoke(tx *chain.Tx, role common.Hash, account common.Address) {
	if !t.HasRole(role, account) {
		return
	}

	delete(t.s.roles[role], account)

	tx.Emit(governor.NewLog(t.address, governor.EventRoleRevoked, map[string]any{
		"role":    role,
		"account": account,
		"sender":  tx.Sender(),
	}))
}

// GrantRole adds account to role; the caller must be a timelock admin
func (t *Timelock) GrantRole(tx *chain.Tx, role common.Hash, account common.Address) error {
	if err := t.checkRole(AdminRole, tx.Sender()); err != nil {
		return err
	}

	t.grant(tx, role, account)
	return nil
}

// RevokeRole removes account from role; the caller must be a timelock admin
func (t *Timelock) RevokeRole(tx *chain.Tx, role common.Hash, account common.Address) error {
	if err := t.checkRole(AdminRole, tx.Sender()); err != nil {
		return err
	}

	t.revoke(tx, role, account)
	return nil
}

// RenounceRole lets the caller drop one of its own roles
func (t *Timelock) RenounceRole(tx *chain.Tx, role common.Hash, account common.Address) error {
	if account != tx.Sender() {
		return fmt.Errorf("%w: can only renounce roles for self", governor.ErrUnauthorized)
	}

	t.revoke(tx, role, account)
	return nil
}

// UpdateDelay changes the minimum delay. Only the timelock itself may call it,
// so a change has to go through a scheduled operation.
func (t *Timelock) UpdateDelay(tx *chain.Tx, delay uint64) error {
	if tx.Sender() != t.address {
		return fmt.Errorf("%w: caller must be timelock", governor.ErrUnauthorized)
	}

	old := t.s.minDelay
	t.s.minDelay = delay

	tx.Emit(governor.NewLog(t.address, governor.EventMinDelayChange, map[string]any{
		"oldDuration": new(big.Int).SetUint64(old),
		"newDuration": new(big.Int).SetUint64(delay),
	}))

	return nil
}
