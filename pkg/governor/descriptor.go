package governor

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	addressTy, _      = abi.NewType("address", "", nil)
	addressArrayTy, _ = abi.NewType("address[]", "", nil)
	uint256Ty, _      = abi.NewType("uint256", "", nil)
	uint256ArrayTy, _ = abi.NewType("uint256[]", "", nil)
	bytesTy, _        = abi.NewType("bytes", "", nil)
	bytesArrayTy, _   = abi.NewType("bytes[]", "", nil)
	bytes32Ty, _      = abi.NewType("bytes32", "", nil)

	// abi.encode(address[] targets, uint256[] values, bytes[] calldatas, bytes32 descriptionHash)
	proposalArgs = abi.Arguments{{Type: addressArrayTy}, {Type: uint256ArrayTy}, {Type: bytesArrayTy}, {Type: bytes32Ty}}

	// abi.encode(address target, uint256 value, bytes data, bytes32 predecessor, bytes32 salt)
	operationArgs = abi.Arguments{{Type: addressTy}, {Type: uint256Ty}, {Type: bytesTy}, {Type: bytes32Ty}, {Type: bytes32Ty}}

	// abi.encode(address[] targets, uint256[] values, bytes[] payloads, bytes32 predecessor, bytes32 salt)
	operationBatchArgs = abi.Arguments{{Type: addressArrayTy}, {Type: uint256ArrayTy}, {Type: bytesArrayTy}, {Type: bytes32Ty}, {Type: bytes32Ty}}
)

// Descriptor is the ordered list of calls a proposal or timelock operation performs
type Descriptor struct {
	Targets   []common.Address
	Values    []*big.Int
	Calldatas [][]byte
}

func NewDescriptor(targets []common.Address, values []*big.Int, calldatas [][]byte) Descriptor {
	return Descriptor{
		Targets:   targets,
		Values:    values,
		Calldatas: calldatas,
	}
}

// Validate checks the three sequences are non-empty and of equal length
func (d Descriptor) Validate() error {
	if len(d.Targets) == 0 {
		return fmt.Errorf("%w: empty proposal", ErrInvalidArguments)
	}

	if len(d.Targets) != len(d.Values) || len(d.Targets) != len(d.Calldatas) {
		return fmt.Errorf("%w: invalid proposal length (targets=%d, values=%d, calldatas=%d)", ErrInvalidArguments, len(d.Targets), len(d.Values), len(d.Calldatas))
	}

	for i, v := range d.Values {
		if v == nil || v.Sign() < 0 {
			return fmt.Errorf("%w: value %d must be a non-negative integer", ErrInvalidArguments, i)
		}
	}

	return nil
}

func (d Descriptor) Len() int {
	return len(d.Targets)
}

func (d Descriptor) Copy() Descriptor {
	c := Descriptor{
		Targets:   make([]common.Address, len(d.Targets)),
		Values:    make([]*big.Int, len(d.Values)),
		Calldatas: make([][]byte, len(d.Calldatas)),
	}
	copy(c.Targets, d.Targets)
	for i, v := range d.Values {
		if v != nil {
			c.Values[i] = new(big.Int).Set(v)
		}
	}
	for i, data := range d.Calldatas {
		c.Calldatas[i] = common.CopyBytes(data)
	}
	return c
}

// TotalValue is the sum of all values the descriptor transfers
func (d Descriptor) TotalValue() *big.Int {
	total := new(big.Int)
	for _, v := range d.Values {
		if v != nil {
			total.Add(total, v)
		}
	}
	return total
}

// DescriptionHash is the keccak256 of the raw description, the same as web3.utils.sha3
func DescriptionHash(description string) common.Hash {
	return crypto.Keccak256Hash([]byte(description))
}

// HashProposal computes the content addressed id of a proposal
func HashProposal(d Descriptor, descriptionHash common.Hash) (common.Hash, error) {
	if err := d.Validate(); err != nil {
		return common.Hash{}, err
	}

	enc, err := proposalArgs.Pack(d.Targets, d.Values, d.Calldatas, [32]byte(descriptionHash))
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}

	return crypto.Keccak256Hash(enc), nil
}

// HashOperation computes the id of a single call timelock operation
func HashOperation(target common.Address, value *big.Int, data []byte, predecessor, salt common.Hash) (common.Hash, error) {
	if value == nil || value.Sign() < 0 {
		return common.Hash{}, fmt.Errorf("%w: value must be a non-negative integer", ErrInvalidArguments)
	}

	enc, err := operationArgs.Pack(target, value, data, [32]byte(predecessor), [32]byte(salt))
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}

	return crypto.Keccak256Hash(enc), nil
}

// HashOperationBatch computes the id of a multi call timelock operation
func HashOperationBatch(d Descriptor, predecessor, salt common.Hash) (common.Hash, error) {
	if err := d.Validate(); err != nil {
		return common.Hash{}, err
	}

	enc, err := operationBatchArgs.Pack(d.Targets, d.Values, d.Calldatas, [32]byte(predecessor), [32]byte(salt))
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}

	return crypto.Keccak256Hash(enc), nil
}

type descriptorJSON struct {
	Targets   []common.Address `json:"targets"`
	Values    []*hexutil.Big   `json:"values"`
	Calldatas []hexutil.Bytes  `json:"calldatas"`
}

// MarshalJSON implements the json.Marshaler interface.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	dj := descriptorJSON{
		Targets:   d.Targets,
		Values:    make([]*hexutil.Big, len(d.Values)),
		Calldatas: make([]hexutil.Bytes, len(d.Calldatas)),
	}
	for i, v := range d.Values {
		dj.Values[i] = (*hexutil.Big)(v)
	}
	for i, data := range d.Calldatas {
		dj.Calldatas[i] = data
	}
	return json.Marshal(dj)
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var dj descriptorJSON
	if err := json.Unmarshal(data, &dj); err != nil {
		return err
	}

	d.Targets = dj.Targets
	d.Values = make([]*big.Int, len(dj.Values))
	for i, v := range dj.Values {
		d.Values[i] = (*big.Int)(v)
	}
	d.Calldatas = make([][]byte, len(dj.Calldatas))
	for i, c := range dj.Calldatas {
		d.Calldatas[i] = c
	}
	return nil
}
