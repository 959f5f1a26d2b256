package queue

import "errors"

// ErrorClassifier allows errors to declare their classification for status mapping.
// Errors that implement this interface decide whether a failed approval is
// closed as StatusRejected or left as StatusFailed for retry.
type ErrorClassifier interface {
	// ErrorKind returns a string classification of the error.
	// Known kinds that map to StatusRejected: "validation", "configuration", "not_found"
	// All other kinds map to StatusFailed.
	ErrorKind() string
}

// FailureStatus maps an approval error to the status the item should hold.
//
// Errors implementing ErrorClassifier with kinds "validation", "configuration",
// or "not_found" can never succeed and result in StatusRejected.
// All other errors result in StatusFailed.
func FailureStatus(err error) Status {
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		switch classifier.ErrorKind() {
		case "validation", "configuration", "not_found":
			return StatusRejected
		}
	}
	return StatusFailed
}

type queueError struct {
	kind string
	msg  string
}

func (e *queueError) Error() string     { return e.msg }
func (e *queueError) ErrorKind() string { return e.kind }

var (
	// ErrItemNotFound reports an unknown review item id.
	ErrItemNotFound error = &queueError{kind: "not_found", msg: "review item not found"}
	// ErrNotPending reports a transition attempted on a closed item.
	ErrNotPending error = &queueError{kind: "validation", msg: "review item is not pending"}
	// ErrInvalidEntry reports an entry missing its film or candidate.
	ErrInvalidEntry error = &queueError{kind: "validation", msg: "invalid review entry"}
)
