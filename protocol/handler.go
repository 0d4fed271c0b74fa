// Package protocol defines the capability contract for pluggable byte-stream
// handlers and the registry that maps URL schemes to handler factories.
//
// Handlers are plain Go values that report failure through returned errors
// (or, for badly behaved code, panics). The bridge package is the only place
// that turns those outcomes into the integer return codes of the foreign
// calling convention.
package protocol

import (
	"fmt"
	"io"
)

// Return codes of the foreign calling convention.
const (
	// OK is returned by open and close on success.
	OK int32 = 0
	// Failure is the generic failure sentinel for every operation.
	Failure int32 = -1
)

// Mode is the open mode requested by the foreign caller.
// Values match FFmpeg's AVIO_FLAG_READ / AVIO_FLAG_WRITE / AVIO_FLAG_READ_WRITE.
type Mode int32

const (
	ModeRead      Mode = 1
	ModeWrite     Mode = 2
	ModeReadWrite Mode = ModeRead | ModeWrite
)

// Valid reports whether m is one of the three defined modes.
func (m Mode) Valid() bool {
	return m == ModeRead || m == ModeWrite || m == ModeReadWrite
}

// CanRead reports whether m permits reading.
func (m Mode) CanRead() bool {
	return m.Valid() && m&ModeRead != 0
}

// CanWrite reports whether m permits writing.
func (m Mode) CanWrite() bool {
	return m.Valid() && m&ModeWrite != 0
}

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	case ModeReadWrite:
		return "read-write"
	default:
		return fmt.Sprintf("Mode(%d)", int32(m))
	}
}

// Whence is the origin of a seek.
type Whence int32

const (
	SeekStart   Whence = io.SeekStart
	SeekCurrent Whence = io.SeekCurrent
	SeekEnd     Whence = io.SeekEnd

	// SeekSize asks for the total stream size instead of moving the position
	// (FFmpeg's AVSEEK_SIZE). Handlers never see it; the bridge answers it.
	SeekSize Whence = 0x10000
)

// Valid reports whether w is one of start, current or end.
func (w Whence) Valid() bool {
	return w == SeekStart || w == SeekCurrent || w == SeekEnd
}

// Handler is a byte-stream adapter bound to at most one open stream at a time.
//
// Open receives the raw URL exactly as the foreign caller passed it, including
// any leading "//" in the resource part. Read follows io.Reader: it may
// transfer fewer bytes than requested, and returns 0, io.EOF at end of stream.
// Write may also be short; the returned count is what was transferred.
type Handler interface {
	Open(url string, mode Mode) error
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
	Seek(offset int64, whence Whence) (int64, error)
	Close() error
	// IsStreamed reports whether the stream for url is not seekable.
	IsStreamed(url string, mode Mode) bool
}

// Factory produces or selects a handler for a URL.
// A nil result means no handler is available.
type Factory interface {
	HandlerFor(scheme, url string, mode Mode) Handler
}

// FactoryFunc adapts an ordinary function to the Factory interface.
type FactoryFunc func(scheme, url string, mode Mode) Handler

// HandlerFor calls f(scheme, url, mode).
func (f FactoryFunc) HandlerFor(scheme, url string, mode Mode) Handler {
	return f(scheme, url, mode)
}
