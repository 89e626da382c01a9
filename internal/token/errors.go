package token

import (
	"errors"
	"fmt"
)

// ErrorKind tags a verification failure so callers can map it to the right
// response without inspecting message text.
type ErrorKind string

const (
	// KindInvalidToken covers structurally broken tokens, wrong token_use,
	// and anything else that is not specifically an expiry or signature
	// failure.
	KindInvalidToken ErrorKind = "INVALID_TOKEN"
	// KindExpired covers exp in the past and tokens older than the maximum
	// accepted age.
	KindExpired ErrorKind = "EXPIRED"
	// KindSignatureInvalid covers bad signatures, disallowed algorithms, and
	// key resolution failures.
	KindSignatureInvalid ErrorKind = "SIGNATURE_INVALID"
)

// AuthError is the only error type Verify returns.
type AuthError struct {
	Kind ErrorKind
	err  error
}

func (e *AuthError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("token: %s: %v", e.Kind, e.err)
	}
	return fmt.Sprintf("token: %s", e.Kind)
}

func (e *AuthError) Unwrap() error { return e.err }

func newAuthError(kind ErrorKind, err error) *AuthError {
	return &AuthError{Kind: kind, err: err}
}

// KindOf returns the ErrorKind of err, or empty when err is not an AuthError.
func KindOf(err error) ErrorKind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
