package authflow

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the flow can surface. All network and
// storage errors are converted to one of these at the call site; nothing
// escapes as an unclassified fault.
type ErrorKind string

const (
	// KindValidation: malformed identifier/fields or terms not accepted.
	// Raised before any network call; the flow stays in Identifying.
	KindValidation ErrorKind = "validation"
	// KindAccountNotFound: the login pre-check found no account.
	KindAccountNotFound ErrorKind = "account_not_found"
	// KindOtpDispatch: the send-OTP call (or the existence pre-check
	// transport) failed; the flow returns to Identifying.
	KindOtpDispatch ErrorKind = "otp_dispatch"
	// KindOtpMismatch: entered code did not match; the flow returns to
	// OtpPending and the resend cooldown is untouched.
	KindOtpMismatch ErrorKind = "otp_mismatch"
	// KindSessionEstablishment: login/register failed after a correct
	// code; no partial write happened, so the flow may be restarted.
	KindSessionEstablishment ErrorKind = "session_establishment"
	// KindPersistence: the session write failed after the account call
	// succeeded server-side. Terminal; the caller must not blindly retry
	// registration.
	KindPersistence ErrorKind = "persistence"
	// KindNotification: best-effort audit email failed. Logged, never
	// surfaced as a flow failure.
	KindNotification ErrorKind = "notification"
)

// ErrFlowClosed is returned when a method is invoked on a flow instance that
// has been closed, or when an in-flight result arrives after Close.
var ErrFlowClosed = errors.New("authflow: flow instance closed")

// FlowError carries the kind plus the underlying cause.
type FlowError struct {
	Kind    ErrorKind
	Field   string // set for validation errors
	Message string
	Err     error
}

func (e *FlowError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *FlowError) Unwrap() error { return e.Err }

// Fatal reports whether the flow instance is unusable after this error.
func (e *FlowError) Fatal() bool { return e.Kind == KindPersistence }

// KindOf extracts the kind from an error chain, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

func validationError(field, message string) *FlowError {
	return &FlowError{Kind: KindValidation, Field: field, Message: message}
}

func flowError(kind ErrorKind, message string, err error) *FlowError {
	return &FlowError{Kind: kind, Message: message, Err: err}
}
