package governor

import (
	"context"
)

const (
	// SignatureHeader is the header that contains the signature of the request
	SignatureHeader = "X-Signature"
	// AddressHeader is the header that contains the address of the caller
	AddressHeader = "X-Address"
)

type ContextKey string

const (
	ContextKeyAddress   ContextKey = AddressHeader
	ContextKeySignature ContextKey = SignatureHeader
)

// GetAddressFromContext returns the verified caller address, if any
func GetAddressFromContext(ctx context.Context) (string, bool) {
	addr, ok := ctx.Value(ContextKeyAddress).(string)
	return addr, ok
}
