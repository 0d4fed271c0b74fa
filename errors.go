//go:build !ios && !android && (amd64 || arm64)

package humble

import (
	"errors"

	"github.com/artclarke/humble-video-sub001/avio"
)

// Common errors
var (
	// ErrOutOfMemory indicates an FFmpeg allocation failed.
	ErrOutOfMemory = errors.New("humble: out of memory")

	// ErrClosed indicates the I/O context has been closed.
	ErrClosed = errors.New("humble: resource is closed")

	// ErrOpen indicates the bridge refused to open a URL. Details are in the
	// bridge's log output.
	ErrOpen = errors.New("humble: cannot open url")

	// ErrClose indicates the handler reported a failure while closing.
	ErrClose = errors.New("humble: close failed")

	// ErrIO indicates FFmpeg reported a failure from a read, write or seek.
	ErrIO = errors.New("humble: i/o error")
)

// AVERROR_EOF is FFmpeg's end-of-stream code.
const AVERROR_EOF = avio.ErrorEOF
