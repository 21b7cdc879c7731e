package domain

import "errors"

// ErrNotFound marks an exact-id lookup that found nothing. Absence is not a
// storage fault; callers decide whether it is an error at all.
var ErrNotFound = errors.New("not found")

// RejectionError is an expected business-rule rejection: insufficient stock,
// an invalid status transition, a malformed item. The reason is written for
// end users and never wraps internal state.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

// Reject builds a RejectionError with the given user-facing reason.
func Reject(reason string) error {
	return &RejectionError{Reason: reason}
}

// IsRejection reports whether err is a business-rule rejection rather than a fault.
func IsRejection(err error) bool {
	var r *RejectionError
	return errors.As(err, &r)
}
