package contracts

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/omnikdao/governance/pkg/governor"
)

//go:embed abi/*.json
var artifacts embed.FS

const (
	TokenContract    = "Token"
	TimelockContract = "Timelock"
	GovernorContract = "Governor"
	TreasuryContract = "Treasury"
)

var (
	ErrUnknownSelector = errors.New("unknown function selector")
	ErrShortCalldata   = errors.New("calldata too short")

	cache sync.Map
)

func extractContractABI(jsonFile string) (*abi.ABI, error) {
	contractBytes, err := artifacts.ReadFile(jsonFile)
	if err != nil {
		return nil, err
	}

	var m map[string]interface{}
	if err = json.Unmarshal(contractBytes, &m); err != nil {
		return nil, err
	}

	ma := m["abi"]
	abiBytes, err := json.Marshal(ma)
	if err != nil {
		return nil, err
	}

	abi, err := abi.JSON(strings.NewReader(string(abiBytes)))
	if err != nil {
		return nil, err
	}
	return &abi, nil
}

// Load returns the parsed ABI of an embedded contract artifact
func Load(name string) (*abi.ABI, error) {
	if cached, ok := cache.Load(name); ok {
		return cached.(*abi.ABI), nil
	}

	a, err := extractContractABI(fmt.Sprintf("abi/%s.json", name))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s abi: %w", name, err)
	}

	cache.Store(name, a)
	return a, nil
}

// Handler runs a decoded method call and returns its outputs in ABI order
type Handler func(args []any) ([]any, error)

// Dispatch resolves the 4-byte selector of input, unpacks the arguments,
// runs the matching handler and packs its outputs
func Dispatch(a *abi.ABI, input []byte, handlers map[string]Handler) ([]byte, error) {
	if len(input) < 4 {
		return nil, ErrShortCalldata
	}

	method, err := a.MethodById(input[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: 0x%x", ErrUnknownSelector, input[:4])
	}

	h, ok := handlers[method.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSelector, method.Sig)
	}

	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method.Sig, err)
	}

	outs, err := h(args)
	if err != nil {
		return nil, err
	}

	return method.Outputs.Pack(outs...)
}

// Calldata packs a call to method of the named contract
func Calldata(contract, method string, args ...any) ([]byte, error) {
	a, err := Load(contract)
	if err != nil {
		return nil, err
	}

	return a.Pack(method, args...)
}

// Decode unpacks the return data of a call to method of the named contract
func Decode(contract, method string, data []byte) ([]any, error) {
	a, err := Load(contract)
	if err != nil {
		return nil, err
	}

	return a.Unpack(method, data)
}

// PositionArg reads a uint256 position argument. Positions past uint64 are never in
// the past, so they fail as an invalid query.
func PositionArg(arg any) (uint64, error) {
	v := arg.(*big.Int)
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: position %s out of range", governor.ErrInvalidQuery, v)
	}
	return v.Uint64(), nil
}

// Uint64Arg reads a uint256 argument that must fit in 64 bits
func Uint64Arg(arg any) (uint64, error) {
	v := arg.(*big.Int)
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s out of range", governor.ErrInvalidArguments, v)
	}
	return v.Uint64(), nil
}
