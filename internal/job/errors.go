package job

import (
	"errors"
	"fmt"
)

// ErrJobNotFound is returned when a job cannot be found by ID.
var ErrJobNotFound = errors.New("job not found")

// ErrSourceRequired is returned when a request has no source path.
var ErrSourceRequired = errors.New("source path is required")

// ErrorKind is the coarse error taxonomy surfaced to callers. Kinds are
// stable strings so bindings can switch on them.
type ErrorKind string

const (
	// KindNoVideoTrack: the source has no decodable video stream.
	KindNoVideoTrack ErrorKind = "NoVideoTrack"
	// KindReaderSetupFailed: the demux/decode service rejected the source.
	KindReaderSetupFailed ErrorKind = "ReaderSetupFailed"
	// KindWriterSetupFailed: the encode service rejected the output settings.
	KindWriterSetupFailed ErrorKind = "WriterSetupFailed"
	// KindEncodeFailed: encoding or container finalization failed.
	KindEncodeFailed ErrorKind = "EncodeFailed"
	// KindCancelled: user-initiated cancellation. Not a failure, but carried
	// through the error channel with its own kind so callers can tell
	// "user cancelled" from "system failed".
	KindCancelled ErrorKind = "Cancelled"
	// KindOverlayDecodeFailed: the supplied overlay bytes could not be decoded.
	KindOverlayDecodeFailed ErrorKind = "OverlayDecodeFailed"
	// KindInternal: anything that escaped the taxonomy above.
	KindInternal ErrorKind = "Internal"
)

// Error is a pipeline failure tagged with its coarse kind.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a kinded pipeline error wrapping an underlying cause.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the ErrorKind from an error chain, defaulting to
// KindInternal for untagged errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
