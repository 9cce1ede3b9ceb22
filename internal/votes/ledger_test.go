package votes

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/omnikdao/governance/internal/chain"
	"github.com/omnikdao/governance/pkg/contracts"
	"github.com/omnikdao/governance/pkg/governor"
	"github.com/stretchr/testify/require"
)

var (
	deployer = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	voter1   = common.HexToAddress("0x0000000000000000000000000000000000000001")
	voter2   = common.HexToAddress("0x0000000000000000000000000000000000000002")
)

func setup(t *testing.T, supply int64) (*chain.Chain, *Ledger) {
	c := chain.New(big.NewInt(1337))

	ct, err := c.Deploy(deployer, nil, func(tx *chain.Tx, addr common.Address) (chain.Contract, error) {
		l := New(addr, c, "Omnik", "OMNIK")
		return l, l.Mint(tx, deployer, big.NewInt(supply))
	})
	require.NoError(t, err)

	return c, ct.(*Ledger)
}

func transfer(t *testing.T, c *chain.Chain, l *Ledger, from, to common.Address, amount int64) {
	_, err := c.Transact(from, func(tx *chain.Tx) error {
		return l.Transfer(tx, to, big.NewInt(amount))
	})
	require.NoError(t, err)
}

func delegate(t *testing.T, c *chain.Chain, l *Ledger, from, to common.Address) uint64 {
	r, err := c.Transact(from, func(tx *chain.Tx) error {
		return l.Delegate(tx, to)
	})
	require.NoError(t, err)
	return r.Position
}

func TestTraceUpperLookup(t *testing.T) {
	tr := &Trace{}
	for _, cp := range []struct {
		pos uint64
		v   int64
	}{{2, 10}, {5, 20}, {9, 5}} {
		_, _, err := tr.Push(cp.pos, big.NewInt(cp.v))
		require.NoError(t, err)
	}

	tests := []struct {
		pos  uint64
		want int64
	}{
		{0, 0},
		{1, 0},
		{2, 10},
		{4, 10},
		{5, 20},
		{8, 20},
		{9, 5},
		{100, 5},
	}

	for _, tt := range tests {
		if got := tr.UpperLookup(tt.pos); got.Cmp(big.NewInt(tt.want)) != 0 {
			t.Errorf("UpperLookup(%d) = %s, want %d", tt.pos, got, tt.want)
		}
	}

	_, _, err := tr.Push(3, big.NewInt(1))
	require.ErrorIs(t, err, ErrCheckpointOrder)

	old, nw, err := tr.Push(9, big.NewInt(7))
	require.NoError(t, err)
	require.Equal(t, int64(5), old.Int64())
	require.Equal(t, int64(7), nw.Int64())
	require.Equal(t, 3, tr.Len())
}

func TestUndelegatedBalanceHasNoPower(t *testing.T) {
	c, l := setup(t, 1000)
	transfer(t, c, l, deployer, voter1, 50)

	require.Equal(t, int64(50), l.BalanceOf(voter1).Int64())
	require.Equal(t, int64(0), l.GetVotes(voter1).Int64())

	pos := delegate(t, c, l, voter1, voter1)
	require.Equal(t, int64(50), l.GetVotes(voter1).Int64())
	require.Equal(t, voter1, l.Delegates(voter1))

	c.Mine(1)

	v, err := l.GetPastVotes(voter1, pos-1)
	require.NoError(t, err)
	require.Equal(t, int64(0), v.Int64())

	v, err = l.GetPastVotes(voter1, pos)
	require.NoError(t, err)
	require.Equal(t, int64(50), v.Int64())

	total, err := l.GetPastTotalVotes(pos)
	require.NoError(t, err)
	require.Equal(t, int64(50), total.Int64())

	supply, err := l.GetPastTotalSupply(pos)
	require.NoError(t, err)
	require.Equal(t, int64(1000), supply.Int64())
}

func TestGetPastVotesRejectsFuture(t *testing.T) {
	c, l := setup(t, 1000)
	transfer(t, c, l, deployer, voter1, 50)
	pos := delegate(t, c, l, voter1, voter1)

	_, err := l.GetPastVotes(voter1, pos)
	require.ErrorIs(t, err, governor.ErrInvalidQuery)

	_, err = l.GetPastTotalVotes(pos + 10)
	require.ErrorIs(t, err, governor.ErrInvalidQuery)
}

func TestRedelegationMovesPower(t *testing.T) {
	c, l := setup(t, 1000)
	transfer(t, c, l, deployer, voter1, 50)
	transfer(t, c, l, deployer, voter2, 30)

	delegate(t, c, l, voter1, voter1)
	delegate(t, c, l, voter2, voter2)
	before := c.Height()

	delegate(t, c, l, voter2, voter1)
	require.Equal(t, int64(80), l.GetVotes(voter1).Int64())
	require.Equal(t, int64(0), l.GetVotes(voter2).Int64())

	// a transfer between delegated holders moves power between their delegates
	delegate(t, c, l, voter2, voter2)
	transfer(t, c, l, voter1, voter2, 10)
	require.Equal(t, int64(40), l.GetVotes(voter1).Int64())
	require.Equal(t, int64(40), l.GetVotes(voter2).Int64())

	c.Mine(1)

	// history at an earlier position is unaffected
	v, err := l.GetPastVotes(voter1, before)
	require.NoError(t, err)
	require.Equal(t, int64(50), v.Int64())

	total, err := l.GetPastTotalVotes(c.Height() - 1)
	require.NoError(t, err)
	require.Equal(t, int64(80), total.Int64())
}

func TestSamePositionUpdatesInPlace(t *testing.T) {
	c, l := setup(t, 1000)
	transfer(t, c, l, deployer, voter1, 50)
	delegate(t, c, l, voter1, voter1)
	require.Equal(t, 1, l.NumCheckpoints(voter1))

	_, err := c.Transact(voter1, func(tx *chain.Tx) error {
		if err := l.Delegate(tx, voter2); err != nil {
			return err
		}
		return l.Delegate(tx, voter1)
	})
	require.NoError(t, err)

	require.Equal(t, 2, l.NumCheckpoints(voter1))
	require.Equal(t, 1, l.NumCheckpoints(voter2))

	cp, err := l.Checkpoints(voter1, 1)
	require.NoError(t, err)
	require.Equal(t, c.Height(), cp.Position)
	require.Equal(t, int64(50), cp.Votes.Int64())

	_, err = l.Checkpoints(voter1, 2)
	require.ErrorIs(t, err, governor.ErrInvalidArguments)
}

func TestFailedTransferLeavesNoTrace(t *testing.T) {
	c, l := setup(t, 100)
	delegate(t, c, l, deployer, deployer)

	_, err := c.Transact(deployer, func(tx *chain.Tx) error {
		if err := l.Transfer(tx, voter1, big.NewInt(60)); err != nil {
			return err
		}
		return l.Transfer(tx, voter1, big.NewInt(60))
	})
	require.ErrorIs(t, err, governor.ErrInsufficientBalance)

	require.Equal(t, int64(100), l.BalanceOf(deployer).Int64())
	require.Equal(t, int64(0), l.BalanceOf(voter1).Int64())
	require.Equal(t, int64(100), l.GetVotes(deployer).Int64())
	require.Equal(t, 1, l.NumCheckpoints(deployer))
}

func TestTokenABI(t *testing.T) {
	c, l := setup(t, 1000)

	data, err := contracts.Calldata(contracts.TokenContract, "transfer", voter1, big.NewInt(50))
	require.NoError(t, err)

	r, err := c.Send(deployer, l.Address(), nil, data)
	require.NoError(t, err)
	require.Len(t, r.Logs, 1)
	require.Equal(t, "Transfer", r.Logs[0].Name)

	data, err = contracts.Calldata(contracts.TokenContract, "delegate", voter1)
	require.NoError(t, err)

	r, err = c.Send(voter1, l.Address(), nil, data)
	require.NoError(t, err)
	require.Len(t, r.Logs, 2)
	require.Equal(t, "DelegateChanged", r.Logs[0].Name)
	require.Equal(t, "DelegateVotesChanged", r.Logs[1].Name)

	data, err = contracts.Calldata(contracts.TokenContract, "getVotes", voter1)
	require.NoError(t, err)

	r, err = c.Send(voter1, l.Address(), nil, data)
	require.NoError(t, err)

	out, err := contracts.Decode(contracts.TokenContract, "getVotes", r.Return)
	require.NoError(t, err)
	require.Equal(t, int64(50), out[0].(*big.Int).Int64())
}

func TestTokenABIRejectsOutOfRangePositions(t *testing.T) {
	c, l := setup(t, 1000)

	huge := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(1))

	data, err := contracts.Calldata(contracts.TokenContract, "getPastVotes", deployer, huge)
	require.NoError(t, err)
	_, err = c.Call(deployer, l.Address(), data)
	require.ErrorIs(t, err, governor.ErrInvalidQuery)

	data, err = contracts.Calldata(contracts.TokenContract, "getPastTotalSupply", huge)
	require.NoError(t, err)
	_, err = c.Call(deployer, l.Address(), data)
	require.ErrorIs(t, err, governor.ErrInvalidQuery)
}
