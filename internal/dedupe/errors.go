package dedupe

import (
	"errors"
	"fmt"
)

// classifiedError is a sentinel that reports its kind for status mapping.
type classifiedError struct {
	kind string
	msg  string
}

func (e *classifiedError) Error() string     { return e.msg }
func (e *classifiedError) ErrorKind() string { return e.kind }

var (
	ErrInvalidInput error = &classifiedError{kind: "validation", msg: "invalid merge input"}
	ErrSelfMerge    error = &classifiedError{kind: "validation", msg: "film cannot be merged into itself"}
	ErrAlreadyBound error = &classifiedError{kind: "validation", msg: "film already bound to a different external identity"}
	ErrNotFound     error = &classifiedError{kind: "not_found", msg: "film not found"}
	ErrRetryable          = errors.New("retryable persistence failure")
)

// RetryableError reports a persistence failure after which the transaction
// was rolled back. The operation may be retried as a whole.
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, ErrRetryable)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrRetryable, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrRetryable) match any RetryableError.
func (e *RetryableError) Is(target error) bool { return target == ErrRetryable }

func (e *RetryableError) ErrorKind() string { return "transient" }

// Kind returns the classification carried by err: "validation",
// "not_found", "transient", or "" when err is unclassified.
func Kind(err error) string {
	var classifier interface{ ErrorKind() string }
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	return ""
}
