package contracts

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/omnikdao/governance/pkg/governor"
	"github.com/stretchr/testify/require"
)

func TestGovABI(t *testing.T) {
	govABI, err := Load(GovernorContract)
	require.NoError(t, err)

	events := map[string]string{
		"ProposalCreated":        governor.EventProposalCreated,
		"VoteCast":               governor.EventVoteCast,
		"ProposalQueued":         governor.EventProposalQueued,
		"ProposalExecuted":       governor.EventProposalExecuted,
		"ProposalCanceled":       governor.EventProposalCanceled,
		"VotingDelaySet":         governor.EventVotingDelaySet,
		"VotingPeriodSet":        governor.EventVotingPeriodSet,
		"ProposalThresholdSet":   governor.EventProposalThresholdSet,
		"QuorumNumeratorUpdated": governor.EventQuorumNumeratorUpdated,
	}

	for name, sig := range events {
		ev, ok := govABI.Events[name]
		require.True(t, ok, name)
		require.Equal(t, crypto.Keccak256Hash([]byte(sig)), ev.ID, name)
	}
}

func TestTimelockAndTokenABI(t *testing.T) {
	tests := []struct {
		contract string
		event    string
		sig      string
	}{
		{TimelockContract, "CallScheduled", governor.EventCallScheduled},
		{TimelockContract, "CallExecuted", governor.EventCallExecuted},
		{TimelockContract, "Cancelled", governor.EventCancelled},
		{TimelockContract, "MinDelayChange", governor.EventMinDelayChange},
		{TimelockContract, "RoleGranted", governor.EventRoleGranted},
		{TimelockContract, "RoleRevoked", governor.EventRoleRevoked},
		{TokenContract, "Transfer", governor.EventTransfer},
		{TokenContract, "DelegateChanged", governor.EventDelegateChanged},
		{TokenContract, "DelegateVotesChanged", governor.EventDelegateVotesChanged},
		{TreasuryContract, "OwnershipTransferred", governor.EventOwnershipTransferred},
		{TreasuryContract, "FundsReleased", governor.EventFundsReleased},
	}

	for _, tt := range tests {
		a, err := Load(tt.contract)
		require.NoError(t, err)

		ev, ok := a.Events[tt.event]
		require.True(t, ok, tt.event)
		if ev.ID != crypto.Keccak256Hash([]byte(tt.sig)) {
			t.Errorf("%s.%s id = %s, want keccak(%s)", tt.contract, tt.event, ev.ID.Hex(), tt.sig)
		}
	}
}

func TestReleaseFundsSelector(t *testing.T) {
	data, err := Calldata(TreasuryContract, "releaseFunds")
	require.NoError(t, err)
	require.Equal(t, common.FromHex("0x69d89575"), data)
}

func TestDispatch(t *testing.T) {
	a, err := Load(TokenContract)
	require.NoError(t, err)

	holder := common.HexToAddress("0x29d755C17df3ED2eCAE6e42d694fb4F7E2ff6010")

	input, err := a.Pack("balanceOf", holder)
	require.NoError(t, err)

	out, err := Dispatch(a, input, map[string]Handler{
		"balanceOf": func(args []any) ([]any, error) {
			if args[0].(common.Address) != holder {
				t.Errorf("balanceOf(%s), want %s", args[0], holder)
			}
			return []any{big.NewInt(50)}, nil
		},
	})
	require.NoError(t, err)

	res, err := Decode(TokenContract, "balanceOf", out)
	require.NoError(t, err)
	require.Equal(t, 0, res[0].(*big.Int).Cmp(big.NewInt(50)))

	_, err = Dispatch(a, []byte{0x01, 0x02}, nil)
	require.ErrorIs(t, err, ErrShortCalldata)

	_, err = Dispatch(a, []byte{0xde, 0xad, 0xbe, 0xef}, nil)
	require.ErrorIs(t, err, ErrUnknownSelector)

	// known selector without a handler
	_, err = Dispatch(a, input, map[string]Handler{})
	require.ErrorIs(t, err, ErrUnknownSelector)

	if !bytes.Equal(input[:4], a.Methods["balanceOf"].ID) {
		t.Errorf("selector mismatch")
	}
}

func TestUint256Arguments(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 64)

	p, err := PositionArg(big.NewInt(7))
	require.NoError(t, err)
	require.Equal(t, uint64(7), p)

	_, err = PositionArg(huge)
	require.ErrorIs(t, err, governor.ErrInvalidQuery)

	v, err := Uint64Arg(new(big.Int).Sub(huge, big.NewInt(1)))
	require.NoError(t, err)
	require.Equal(t, ^uint64(0), v)

	_, err = Uint64Arg(huge)
	require.ErrorIs(t, err, governor.ErrInvalidArguments)
}
