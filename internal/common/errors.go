package common

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/omnikdao/governance/pkg/governor"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusCode maps engine errors to http status codes
func StatusCode(err error) int {
	switch {
	case errors.Is(err, governor.ErrInvalidArguments),
		errors.Is(err, governor.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, governor.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, governor.ErrUnknownProposal):
		return http.StatusNotFound
	case errors.Is(err, governor.ErrDuplicateProposal),
		errors.Is(err, governor.ErrAlreadyScheduled),
		errors.Is(err, governor.ErrProposalNotActive),
		errors.Is(err, governor.ErrProposalNotSucceeded),
		errors.Is(err, governor.ErrProposalNotQueued),
		errors.Is(err, governor.ErrProposalNotCancelable),
		errors.Is(err, governor.ErrOperationNotReady),
		errors.Is(err, governor.ErrOperationNotPending),
		errors.Is(err, governor.ErrOperationExecuted),
		errors.Is(err, governor.ErrPredecessorNotExecuted),
		errors.Is(err, governor.ErrDelayTooShort),
		errors.Is(err, governor.ErrAlreadyVoted),
		errors.Is(err, governor.ErrAlreadyReleased),
		errors.Is(err, governor.ErrInsufficientBalance):
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}

// Error writes err with the status it maps to
func Error(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	if status == http.StatusInternalServerError {
		w.WriteHeader(status)
		return
	}

	b, merr := json.Marshal(&Response{
		ResponseType: ResponseTypeObject,
		Object:       ErrorResponse{Error: err.Error()},
	})
	if merr != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}
