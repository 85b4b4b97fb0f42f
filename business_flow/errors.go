// Package businessflow contains the core business logic and use cases of the counter service
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	ErrCounterNotFound = errors.New("counter not found")
	ErrCounterLocked   = errors.New("counter is locked by another writer")
	ErrInvalidAmount   = errors.New("invalid amount")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// CounterNotFoundError reports an explicit id with no stored counter
type CounterNotFoundError struct {
	*BusinessError
	CounterID string
}

func NewCounterNotFoundError(id string) *CounterNotFoundError {
	return &CounterNotFoundError{
		BusinessError: NewBusinessErrorf("COUNTER_NOT_FOUND", "Counter with id %s not found", ErrCounterNotFound, id),
		CounterID:     id,
	}
}

func (e *CounterNotFoundError) Unwrap() error {
	return e.BusinessError
}

func IsCounterNotFound(err error) bool {
	return errors.Is(err, ErrCounterNotFound)
}

// CounterIDFromError returns the id carried by a not-found error
func CounterIDFromError(err error) (string, bool) {
	var nf *CounterNotFoundError
	if errors.As(err, &nf) {
		return nf.CounterID, true
	}
	return "", false
}

func IsCounterLocked(err error) bool {
	return errors.Is(err, ErrCounterLocked)
}

func IsInvalidAmount(err error) bool {
	return errors.Is(err, ErrInvalidAmount)
}

// BusinessErrorCode returns the code of the outermost business error, if any
func BusinessErrorCode(err error) (string, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code, true
	}
	return "", false
}
