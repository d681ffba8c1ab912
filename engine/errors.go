package engine

import "errors"

var (
	// ErrClosed is returned for commands sent after Shutdown, or whose reply
	// was still pending when the engine stopped.
	ErrClosed = errors.New("engine closed")

	// ErrInvalidBufferSize is returned by SetBufferSize for a non-positive
	// window.
	ErrInvalidBufferSize = errors.New("buffer size must be positive")
)
