package governor

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

var (
	treasuryAddr = common.HexToAddress("0x5815E61eF72c9E6107b5c5A05FD121F334f7a7f1")
	releaseFunds = crypto.Keccak256([]byte("releaseFunds()"))[:4]
)

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
		ok   bool
	}{
		{
			name: "single call",
			d:    NewDescriptor([]common.Address{treasuryAddr}, []*big.Int{big.NewInt(0)}, [][]byte{releaseFunds}),
			ok:   true,
		},
		{
			name: "empty",
			d:    NewDescriptor(nil, nil, nil),
		},
		{
			name: "length mismatch",
			d:    NewDescriptor([]common.Address{treasuryAddr, treasuryAddr}, []*big.Int{big.NewInt(0)}, [][]byte{releaseFunds}),
		},
		{
			name: "nil value",
			d:    NewDescriptor([]common.Address{treasuryAddr}, []*big.Int{nil}, [][]byte{releaseFunds}),
		},
		{
			name: "negative value",
			d:    NewDescriptor([]common.Address{treasuryAddr}, []*big.Int{big.NewInt(-1)}, [][]byte{releaseFunds}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			if !errors.Is(err, ErrInvalidArguments) {
				t.Errorf("Validate() = %v, want %v", err, ErrInvalidArguments)
			}
		})
	}
}

func TestHashProposalIsContentAddressed(t *testing.T) {
	d := NewDescriptor([]common.Address{treasuryAddr}, []*big.Int{big.NewInt(0)}, [][]byte{releaseFunds})
	h := DescriptionHash("Release Funds from Treasury")

	id1, err := HashProposal(d, h)
	require.NoError(t, err)

	id2, err := HashProposal(d.Copy(), h)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	other, err := HashProposal(d, DescriptionHash("Release Funds from Treasury #2"))
	require.NoError(t, err)
	require.NotEqual(t, id1, other)

	// the timelock id of the same descriptor lives in a different domain
	opID, err := HashOperationBatch(d, common.Hash{}, h)
	require.NoError(t, err)
	require.NotEqual(t, id1, opID)

	_, err = HashProposal(NewDescriptor(nil, nil, nil), h)
	require.ErrorIs(t, err, ErrInvalidArguments)
}

func TestHashOperationBatchDependsOnPredecessorAndSalt(t *testing.T) {
	d := NewDescriptor([]common.Address{treasuryAddr}, []*big.Int{big.NewInt(0)}, [][]byte{releaseFunds})

	base, err := HashOperationBatch(d, common.Hash{}, common.Hash{})
	require.NoError(t, err)

	withSalt, err := HashOperationBatch(d, common.Hash{}, common.HexToHash("0x01"))
	require.NoError(t, err)
	require.NotEqual(t, base, withSalt)

	withPred, err := HashOperationBatch(d, common.HexToHash("0x01"), common.Hash{})
	require.NoError(t, err)
	require.NotEqual(t, base, withPred)
	require.NotEqual(t, withSalt, withPred)

	single, err := HashOperation(treasuryAddr, big.NewInt(0), releaseFunds, common.Hash{}, common.Hash{})
	require.NoError(t, err)
	require.NotEqual(t, base, single)
}

func TestDescriptionHashMatchesKeccak(t *testing.T) {
	want := crypto.Keccak256Hash([]byte("Release Funds from Treasury"))
	if got := DescriptionHash("Release Funds from Treasury"); got != want {
		t.Errorf("DescriptionHash() = %s, want %s", got.Hex(), want.Hex())
	}
}

func TestDescriptorJSON(t *testing.T) {
	d := NewDescriptor([]common.Address{treasuryAddr}, []*big.Int{big.NewInt(25)}, [][]byte{releaseFunds})

	b, err := json.Marshal(d)
	require.NoError(t, err)
	require.JSONEq(t, `{"targets":["0x5815e61ef72c9e6107b5c5a05fd121f334f7a7f1"],"values":["0x19"],"calldatas":["0x69d89575"]}`, string(b))

	var out Descriptor
	require.NoError(t, json.Unmarshal(b, &out))
	require.Equal(t, d.Targets, out.Targets)
	require.Equal(t, 0, d.Values[0].Cmp(out.Values[0]))
	require.Equal(t, d.Calldatas[0], out.Calldatas[0])
}

func TestProposalStateNames(t *testing.T) {
	require.Equal(t, "pending", ProposalStatePending.String())
	require.Equal(t, "executed", ProposalStateExecuted.String())
	require.Equal(t, uint8(7), uint8(ProposalStateExecuted))
	require.True(t, ProposalStateDefeated.Terminal())
	require.False(t, ProposalStateQueued.Terminal())
	require.False(t, VoteType(3).Valid())
}
