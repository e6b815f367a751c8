//go:build !ios && !android && (amd64 || arm64)

// Package vrrec records a VR compositor's mirror surface to a video file.
//
// The root package holds the encoder side of the pipeline: VideoWriter
// converts captured surfaces into an FFmpeg-encoded, muxed file. Capture
// lives in package capture, frame pacing in package pacer. FFmpeg is loaded
// at runtime through purego; no cgo is required.
//
// For advanced use cases, the low-level packages (avutil, avcodec, avformat,
// swscale) are available.
package vrrec

import (
	"github.com/obinnaokechukwu/vrrec/avcodec"
	"github.com/obinnaokechukwu/vrrec/avutil"
	"github.com/obinnaokechukwu/vrrec/internal/bindings"
)

// Init loads the FFmpeg libraries. VideoWriter calls it on demand; call it
// explicitly to surface a missing installation early. Safe to call multiple times.
func Init() error {
	return bindings.Load()
}

// IsLoaded returns true if FFmpeg libraries have been successfully loaded.
func IsLoaded() bool {
	return bindings.IsLoaded()
}

// Version returns FFmpeg library versions.
func Version() (avutil, avcodec, avformat uint32) {
	return bindings.AVUtilVersion(), bindings.AVCodecVersion(), bindings.AVFormatVersion()
}

// VersionString renders a packed library version as major.minor.micro.
func VersionString(v uint32) string {
	return bindings.VersionString(v)
}

// Re-export common types for convenience
type (
	// Frame is an FFmpeg video frame.
	Frame = avutil.Frame

	// Rational represents a rational number (fraction).
	Rational = avutil.Rational

	// PixelFormat represents video pixel formats.
	PixelFormat = avutil.PixelFormat

	// MediaType represents stream types (video, audio, etc.).
	MediaType = avutil.MediaType

	// CodecID represents codec identifiers.
	CodecID = avcodec.CodecID
)

// Re-export common constants
const (
	PixelFormatNone     = avutil.PixelFormatNone
	PixelFormatYUV420P  = avutil.PixelFormatYUV420P
	PixelFormatYUYV422  = avutil.PixelFormatYUYV422
	PixelFormatGray8    = avutil.PixelFormatGray8
	PixelFormatNV12     = avutil.PixelFormatNV12
	PixelFormatRGBA     = avutil.PixelFormatRGBA
	PixelFormatBGRA     = avutil.PixelFormatBGRA
	PixelFormatGray16LE = avutil.PixelFormatGray16LE

	MediaTypeUnknown = avutil.MediaTypeUnknown
	MediaTypeVideo   = avutil.MediaTypeVideo
	MediaTypeAudio   = avutil.MediaTypeAudio

	CodecIDRAWVIDEO = avcodec.CodecIDRAWVIDEO
	CodecIDH264     = avcodec.CodecIDH264
)
