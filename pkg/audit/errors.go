package audit

import "errors"

var (
	// ErrWriterClosed is returned by Store after Close has been called.
	ErrWriterClosed = errors.New("audit writer is closed")

	// ErrNoWriters is returned by NewFanout when it is given nothing to write to.
	ErrNoWriters = errors.New("audit fanout needs at least one writer")
)
