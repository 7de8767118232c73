package telemetry

import "errors"

// ErrLinkClosed is returned when the telemetry stream has been closed.
// It is fatal: no wait operation retries or swallows it.
var ErrLinkClosed = errors.New("telemetry link closed")

// Link is a blocking source of decoded telemetry messages. The harness
// owns the underlying connection; consumers must not close it mid-test.
type Link interface {
	// Recv blocks until the next message arrives. It returns
	// ErrLinkClosed (possibly wrapped) once the stream is closed.
	Recv() (Message, error)
	Close() error
}
