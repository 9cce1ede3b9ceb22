package common

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

func ChecksumAddress(addr string) string {
	address := common.HexToAddress(addr)

	return address.Hex()
}

// ParseAddress accepts a 0x prefixed or bare hex address
func ParseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}

	return common.HexToAddress(s), true
}

// ParseID accepts a 32 byte id as 0x prefixed hex or as a decimal uint256
func ParseID(s string) (common.Hash, bool) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		b, err := hexDecode(s[2:])
		if err != nil || len(b) > common.HashLength {
			return common.Hash{}, false
		}
		return common.BytesToHash(b), true
	}

	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 || v.BitLen() > 256 {
		return common.Hash{}, false
	}

	return common.BigToHash(v), true
}

func hexDecode(s string) ([]byte, error) {
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}
