//go:build !ios && !android && (amd64 || arm64)

package vrrec

import (
	"errors"

	"github.com/obinnaokechukwu/vrrec/avutil"
)

// FFmpegError is an error from FFmpeg operations.
// It contains the raw FFmpeg error code and a human-readable message.
type FFmpegError = avutil.Error

var (
	// ErrUnknownSourceFormat indicates the surface format has no FFmpeg equivalent.
	ErrUnknownSourceFormat = errors.New("vrrec: source surface format has no FFmpeg pixel format")

	// ErrCodecNotFound indicates neither the requested encoder nor the
	// rawvideo fallback exists in the loaded FFmpeg.
	ErrCodecNotFound = errors.New("vrrec: encoder not found")

	// ErrPacketWrite indicates the muxer rejected an encoded packet.
	ErrPacketWrite = errors.New("vrrec: failed to write packet")

	// ErrNotOpen indicates Submit was called without an open session.
	ErrNotOpen = errors.New("vrrec: writer is not open")

	// ErrInvalidConfig indicates a WriterConfig that cannot describe a recording.
	ErrInvalidConfig = errors.New("vrrec: invalid writer configuration")

	// ErrShortBuffer indicates a submitted buffer smaller than rowCount*rowStride.
	ErrShortBuffer = errors.New("vrrec: buffer shorter than rows times stride")

	// ErrOutOfMemory indicates an FFmpeg allocation returned nil.
	ErrOutOfMemory = errors.New("vrrec: out of memory")

	// ErrScalerUnavailable indicates a conversion is needed but libswscale is missing.
	ErrScalerUnavailable = errors.New("vrrec: swscale library not available")
)

// ErrorCode returns the FFmpeg error code from an error, or 0 if not an FFmpeg error.
func ErrorCode(err error) int32 {
	return avutil.Code(err)
}
