//go:build !ios && !android && (amd64 || arm64)

// Package avio provides bindings to the custom I/O part of libavformat:
// allocating an AVIOContext around caller-supplied read/write/seek callbacks
// and driving it with avio_read, avio_write and avio_seek.
package avio

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/artclarke/humble-video-sub001/internal/bindings"
	"github.com/ebitengine/purego"
)

// Context is an opaque FFmpeg AVIOContext pointer.
type Context = unsafe.Pointer

// Error codes returned across the C boundary.
const (
	// ErrorEOF is AVERROR_EOF, FFmpeg's end-of-stream code.
	ErrorEOF int32 = -541478725
)

// Seek whence flags understood by FFmpeg in addition to SEEK_SET/CUR/END.
const (
	SeekSize  = 0x10000 // AVSEEK_SIZE: return the stream size
	SeekForce = 0x20000 // AVSEEK_FORCE: may be or-ed into whence
)

// offsetBuffer is the offset of AVIOContext.buffer, after the AVClass pointer.
const offsetBuffer = 8

var (
	bindOnce sync.Once

	avMalloc        func(size uintptr) unsafe.Pointer
	avFree          func(ptr unsafe.Pointer)
	avioAllocCtx    func(buffer unsafe.Pointer, bufferSize, writeFlag int32, opaque, read, write, seek uintptr) unsafe.Pointer
	avioContextFree func(ctx *unsafe.Pointer)
	avioRead        func(ctx unsafe.Pointer, buf *byte, size int32) int32
	avioWrite       func(ctx unsafe.Pointer, buf *byte, size int32)
	avioFlush       func(ctx unsafe.Pointer)
	avioSeek        func(ctx unsafe.Pointer, offset int64, whence int32) int64
	avioSize        func(ctx unsafe.Pointer) int64
)

// Load loads FFmpeg and registers the AVIO function bindings.
func Load() error {
	if err := bindings.Load(); err != nil {
		return err
	}
	bindOnce.Do(func() {
		util := bindings.LibAVUtil()
		purego.RegisterLibFunc(&avMalloc, util, "av_malloc")
		purego.RegisterLibFunc(&avFree, util, "av_free")

		lib := bindings.LibAVFormat()
		purego.RegisterLibFunc(&avioAllocCtx, lib, "avio_alloc_context")
		purego.RegisterLibFunc(&avioContextFree, lib, "avio_context_free")
		purego.RegisterLibFunc(&avioRead, lib, "avio_read")
		purego.RegisterLibFunc(&avioWrite, lib, "avio_write")
		purego.RegisterLibFunc(&avioFlush, lib, "avio_flush")
		purego.RegisterLibFunc(&avioSeek, lib, "avio_seek")
		purego.RegisterLibFunc(&avioSize, lib, "avio_size")
	})
	return nil
}

// Malloc allocates size bytes with av_malloc.
// Returns nil if the bindings are not loaded or allocation fails.
func Malloc(size uintptr) unsafe.Pointer {
	if avMalloc == nil {
		return nil
	}
	return avMalloc(size)
}

// Free frees memory allocated by Malloc.
func Free(ptr unsafe.Pointer) {
	if ptr == nil || avFree == nil {
		return
	}
	avFree(ptr)
}

// AllocContext wraps avio_alloc_context. buffer must come from Malloc;
// FFmpeg may replace it, so release the context with FreeContext only.
// read, write and seek are purego callback pointers or 0.
func AllocContext(buffer unsafe.Pointer, bufferSize int, writable bool, opaque uintptr, read, write, seek uintptr) Context {
	if avioAllocCtx == nil {
		return nil
	}
	var writeFlag int32
	if writable {
		writeFlag = 1
	}
	// opaque is passed as an integer handle, never as a Go pointer.
	return avioAllocCtx(buffer, int32(bufferSize), writeFlag, opaque, read, write, seek)
}

// FreeContext frees the context's current buffer and the context itself,
// and sets *ctx to nil.
func FreeContext(ctx *Context) {
	if ctx == nil || *ctx == nil || avioContextFree == nil {
		return
	}
	bufField := (*unsafe.Pointer)(unsafe.Add(*ctx, offsetBuffer))
	Free(*bufField)
	*bufField = nil
	avioContextFree(ctx)
	*ctx = nil
}

// Read reads up to len(buf) bytes through the context. It returns the number
// of bytes read or a negative FFmpeg error code.
func Read(ctx Context, buf []byte) int32 {
	if avioRead == nil || ctx == nil || len(buf) == 0 {
		return -1
	}
	n := avioRead(ctx, &buf[0], int32(len(buf)))
	runtime.KeepAlive(buf)
	return n
}

// Write writes buf through the context. Data may stay buffered until Flush.
func Write(ctx Context, buf []byte) {
	if avioWrite == nil || ctx == nil || len(buf) == 0 {
		return
	}
	avioWrite(ctx, &buf[0], int32(len(buf)))
	runtime.KeepAlive(buf)
}

// Flush forces buffered data out through the write callback.
func Flush(ctx Context) {
	if avioFlush == nil || ctx == nil {
		return
	}
	avioFlush(ctx)
}

// Seek wraps avio_seek.
func Seek(ctx Context, offset int64, whence int) int64 {
	if avioSeek == nil || ctx == nil {
		return -1
	}
	return avioSeek(ctx, offset, int32(whence))
}

// Size wraps avio_size.
func Size(ctx Context) int64 {
	if avioSize == nil || ctx == nil {
		return -1
	}
	return avioSize(ctx)
}
