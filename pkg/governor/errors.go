package governor

import "errors"

var (
	ErrInvalidArguments = errors.New("invalid arguments")

	ErrDuplicateProposal = errors.New("proposal already exists")
	ErrAlreadyScheduled  = errors.New("operation already scheduled")

	ErrUnauthorized = errors.New("unauthorized")

	ErrUnknownProposal       = errors.New("unknown proposal")
	ErrProposalNotActive     = errors.New("proposal not active")
	ErrProposalNotSucceeded  = errors.New("proposal not successful")
	ErrProposalNotQueued     = errors.New("proposal not queued")
	ErrProposalNotCancelable = errors.New("proposal cannot be canceled in its current state")

	ErrOperationNotReady      = errors.New("operation is not ready")
	ErrOperationNotPending    = errors.New("operation is not pending")
	ErrOperationExecuted      = errors.New("operation already executed")
	ErrPredecessorNotExecuted = errors.New("missing dependency")
	ErrDelayTooShort          = errors.New("insufficient delay")

	ErrAlreadyVoted    = errors.New("vote already cast")
	ErrAlreadyReleased = errors.New("funds already released")

	ErrInvalidQuery        = errors.New("future lookup")
	ErrInsufficientBalance = errors.New("insufficient balance")
)
