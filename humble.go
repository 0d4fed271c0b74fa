//go:build !ios && !android && (amd64 || arm64)

// Package humble exposes Go byte streams to FFmpeg as virtual files.
//
// Streams are registered as protocol handlers under a URL scheme (see the
// protocol and channel packages). NewIOContext opens a URL through a bridge
// and wraps it in an FFmpeg AVIOContext whose read, write and seek callbacks
// call back into the bridge, so FFmpeg can consume the stream without knowing
// what is behind the scheme.
//
// FFmpeg is loaded at runtime with purego; no cgo is required.
package humble

import (
	"github.com/artclarke/humble-video-sub001/avio"
	"github.com/artclarke/humble-video-sub001/internal/bindings"
)

// Init loads the FFmpeg libraries used for custom I/O. It is called
// automatically by NewIOContext, but can be called explicitly to check for
// errors. It is safe to call multiple times.
func Init() error {
	return avio.Load()
}

// IsLoaded returns true if FFmpeg libraries have been successfully loaded.
func IsLoaded() bool {
	return bindings.IsLoaded()
}
