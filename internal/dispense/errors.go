package dispense

import (
	"context"
	"errors"
	"fmt"
)

// TransientDispatchError is a network or timeout class failure. The same
// operation may succeed when retried.
type TransientDispatchError struct {
	Op  string
	Err error
}

func (e *TransientDispatchError) Error() string {
	return fmt.Sprintf("transient dispatch error: %s: %v", e.Op, e.Err)
}

func (e *TransientDispatchError) Unwrap() error { return e.Err }

// PermanentDispatchError is a rejection by the ledger, e.g. an invalid
// recipient or amount. Retrying cannot help.
type PermanentDispatchError struct {
	Op  string
	Err error
}

func (e *PermanentDispatchError) Error() string {
	return fmt.Sprintf("permanent dispatch error: %s: %v", e.Op, e.Err)
}

func (e *PermanentDispatchError) Unwrap() error { return e.Err }

// ConfigurationError aborts a run before anything is dispatched.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

func Transient(op string, err error) error {
	return &TransientDispatchError{Op: op, Err: err}
}

func Permanent(op string, err error) error {
	return &PermanentDispatchError{Op: op, Err: err}
}

func Configuration(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

func IsTransient(err error) bool {
	var target *TransientDispatchError
	return errors.As(err, &target)
}

func IsPermanent(err error) bool {
	var target *PermanentDispatchError
	return errors.As(err, &target)
}

func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// retryable treats unclassified errors as transient. Permanent, configuration
// and cancellation errors are never retried.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if IsPermanent(err) || IsConfiguration(err) {
		return false
	}
	return true
}
