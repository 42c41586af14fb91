package apperr

import "errors"

// Kind classifies a ledger failure. Every core error carries exactly one kind.
type Kind string

const (
	NotFound           Kind = "not_found"
	AlreadyExists      Kind = "already_exists"
	InvalidInput       Kind = "invalid_input"
	InvalidState       Kind = "invalid_state"
	ThresholdViolation Kind = "threshold_violation"
	Unauthorized       Kind = "unauthorized"
	TransferFailed     Kind = "transfer_failed"
)

// Error is a precondition failure. Sentinels are compared by identity with errors.Is.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New creates a sentinel error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain, or "" for
// infrastructure errors (database, network).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
