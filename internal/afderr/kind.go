// Package afderr classifies the errors that cross a component boundary
// inside AFD into the closed set of outcomes the dispatcher and the
// structured logs understand. Nothing upstream of internal/transport
// re-inspects a raw error value or matches on its message.
package afderr

import (
	"errors"
	"fmt"
)

// Kind is a closed classification of a failure, never a raw string.
type Kind int

const (
	// Transient — network. Worth retrying with backoff.
	KindConnect Kind = iota
	KindAuth
	KindType
	KindChdir
	KindOpenRemote
	KindWriteRemote
	KindCloseRemote
	KindMoveRemote
	KindReadLocal
	KindWriteLockfile
	KindRemoveLockfile
	KindTimeout

	// Fatal. Job is dropped, no retry.
	KindOpenLocal
	KindAlloc
	KindSignalKilled
	KindPoolDirMissing
	KindDuplicateFile
	KindConfigInconsistent
)

var names = map[Kind]string{
	KindConnect:            "ConnectError",
	KindAuth:               "AuthError",
	KindType:               "TypeError",
	KindChdir:              "ChdirError",
	KindOpenRemote:         "OpenRemoteError",
	KindWriteRemote:        "WriteRemoteError",
	KindCloseRemote:        "CloseRemoteError",
	KindMoveRemote:         "MoveRemoteError",
	KindReadLocal:          "ReadLocalError",
	KindWriteLockfile:      "WriteLockError",
	KindRemoveLockfile:     "RemoveLockfileError",
	KindTimeout:            "Timeout",
	KindOpenLocal:          "OpenLocalError",
	KindAlloc:              "AllocError",
	KindSignalKilled:       "SignalKilled",
	KindPoolDirMissing:     "PoolDirMissing",
	KindDuplicateFile:      "DuplicateFileDetected",
	KindConfigInconsistent: "ConfigInconsistent",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "UnknownKind"
}

// Transient reports whether this kind should be retried with backoff
// rather than dropping the job outright.
func (k Kind) Transient() bool {
	switch k {
	case KindOpenLocal, KindAlloc, KindSignalKilled, KindPoolDirMissing,
		KindDuplicateFile, KindConfigInconsistent:
		return false
	default:
		return true
	}
}

// Error wraps an underlying error with its classification. Created once,
// at the transport boundary; carried unchanged from there on.
type Error struct {
	Kind Kind
	Err  error
}

func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// As reports the Kind of err if it (or something it wraps) is an *Error.
func As(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Outcome is the worker-exit classification the dispatcher reacts to;
// see spec §4.4 on_worker_exit.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeStillFilesToSend
	OutcomeTransientFailure
	OutcomeFatalFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "Success"
	case OutcomeStillFilesToSend:
		return "StillFilesToSend"
	case OutcomeTransientFailure:
		return "TransientFailure"
	case OutcomeFatalFailure:
		return "FatalFailure"
	default:
		return "UnknownOutcome"
	}
}
