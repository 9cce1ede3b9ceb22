package common

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

func ShortenName(s string, length int) string {
	if len(s) <= length*2 {
		return s
	}

	firstSix := s[:length]
	lastSix := s[len(s)-length:]
	return fmt.Sprintf("%s__%s", firstSix, lastSix)
}

// ShortID renders an id for notifications
func ShortID(id common.Hash) string {
	return ShortenName(id.Hex(), 8)
}
