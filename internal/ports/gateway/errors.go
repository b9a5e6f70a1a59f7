package gateway

import (
	"errors"
	"fmt"
)

// ErrUnknownID: el target remoto no existe.
var ErrUnknownID = errors.New("unknown id")

// TransientError es una falla recuperable (red caída, timeout, 5xx).
// Para el caller equivale a "offline": el write local queda pending.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient gateway failure: %v", e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// ValidationError es un rechazo definitivo del backend: reintentar no sirve,
// el caller tiene que enterarse.
type ValidationError struct {
	Reason string
	Cause  error
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("gateway rejected write: %s", e.Reason)
	}
	return fmt.Sprintf("gateway rejected write: %v", e.Cause)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

func Transient(cause error) error {
	return &TransientError{Cause: cause}
}

func Invalid(reason string, cause error) error {
	return &ValidationError{Reason: reason, Cause: cause}
}

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
