package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/omnikdao/governance/pkg/governor"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{fmt.Errorf("%w: bad", governor.ErrInvalidArguments), http.StatusBadRequest},
		{governor.ErrInvalidQuery, http.StatusBadRequest},
		{fmt.Errorf("%w: caller", governor.ErrUnauthorized), http.StatusForbidden},
		{governor.ErrUnknownProposal, http.StatusNotFound},
		{governor.ErrAlreadyVoted, http.StatusConflict},
		{governor.ErrOperationNotReady, http.StatusConflict},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := StatusCode(tt.err); got != tt.expected {
			t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.expected)
		}
	}
}
