package common

import (
	"math/big"
	"strings"
)

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

func HexToBigInt(hex string) *big.Int {
	i, ok := new(big.Int).SetString(hex, 16)
	if !ok {
		return big.NewInt(0)
	}

	return i
}

// ParseEther converts a decimal ether amount such as "25" or "0.5" to wei
func ParseEther(s string) (*big.Int, bool) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, false
	}

	r.Mul(r, new(big.Rat).SetInt(weiPerEther))
	if !r.IsInt() || r.Sign() < 0 {
		return nil, false
	}

	return new(big.Int).Set(r.Num()), true
}

// FormatEther renders a wei amount as a decimal ether string without trailing zeros
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}

	neg := wei.Sign() < 0
	abs := new(big.Int).Abs(wei)

	q, m := new(big.Int).QuoRem(abs, weiPerEther, new(big.Int))

	s := q.String()
	if m.Sign() != 0 {
		frac := strings.TrimRight(leftPad(m.String(), 18), "0")
		s = s + "." + frac
	}

	if neg {
		return "-" + s
	}
	return s
}

func leftPad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}
