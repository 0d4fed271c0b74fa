package protocol

import "errors"

// Error taxonomy shared by handlers and the bridge.
var (
	// ErrConfiguration indicates a handler was constructed without any
	// usable channel. It is reported at construction time.
	ErrConfiguration = errors.New("protocol: invalid handler configuration")

	// ErrUsage indicates a call made in the wrong state: double open,
	// an operation on an unopened stream, or an unsupported mode.
	ErrUsage = errors.New("protocol: usage error")

	// ErrIO indicates the underlying channel failed a transfer or close.
	ErrIO = errors.New("protocol: i/o failure")

	// ErrUnsupported indicates the handler does not implement the operation,
	// such as seeking on a sequential stream.
	ErrUnsupported = errors.New("protocol: unsupported operation")

	// ErrNoHandler indicates no factory produced a handler for a URL.
	ErrNoHandler = errors.New("protocol: no handler for url")

	// ErrInvalidScheme indicates a scheme that cannot be registered.
	ErrInvalidScheme = errors.New("protocol: invalid scheme")
)
