package rater

import (
	"errors"
	"fmt"
)

// Kind classifies a failed interaction with the remote rating service.
type Kind int

const (
	// KindFetchFailure covers pair retrieval and image preload failures.
	KindFetchFailure Kind = iota
	// KindVoteRejected means the service answered a vote with success=false.
	KindVoteRejected
	// KindVoteTransport covers network-level failures during a vote.
	KindVoteTransport
	// KindUndoRejected means the service answered an undo with success=false.
	KindUndoRejected
	// KindUndoTransport covers network-level failures during an undo.
	KindUndoTransport
	// KindTimedOut means the round-trip exceeded the configured timeout.
	KindTimedOut
)

func (k Kind) String() string {
	switch k {
	case KindFetchFailure:
		return "fetch_failure"
	case KindVoteRejected:
		return "vote_rejected"
	case KindVoteTransport:
		return "vote_transport_failure"
	case KindUndoRejected:
		return "undo_rejected"
	case KindUndoTransport:
		return "undo_transport_failure"
	case KindTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Error is a classified rating service failure. The orchestration layer
// switches on Kind to decide between rollback, placeholder display and
// plain retry.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the classification from err. The second return value is
// false if err carries no classification.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
