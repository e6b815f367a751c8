//go:build !ios && !android && (amd64 || arm64)

package avutil

import "github.com/obinnaokechukwu/vrrec/internal/bindings"

// PixelFormat represents FFmpeg pixel formats.
type PixelFormat int32

// Pixel formats whose enum values have been stable across FFmpeg releases.
// Newer formats move between versions; look those up with PixelFormatByName.
const (
	PixelFormatNone     PixelFormat = -1
	PixelFormatYUV420P  PixelFormat = 0  // Planar YUV 4:2:0
	PixelFormatYUYV422  PixelFormat = 1  // Packed YUV 4:2:2
	PixelFormatGray8    PixelFormat = 8  // 8-bit grayscale
	PixelFormatNV12     PixelFormat = 23 // Planar YUV 4:2:0 (UV interleaved)
	PixelFormatRGBA     PixelFormat = 26 // Packed RGBA 8:8:8:8
	PixelFormatBGRA     PixelFormat = 28 // Packed BGRA 8:8:8:8
	PixelFormatGray16LE PixelFormat = 30 // 16-bit grayscale (little endian)
)

// PixelFormatByName resolves an FFmpeg pixel format name such as
// "rgba64le" or "p010le". Returns PixelFormatNone for unknown names.
func PixelFormatByName(name string) (PixelFormat, error) {
	if avGetPixFmt == nil {
		return PixelFormatNone, bindings.ErrNotLoaded
	}
	return PixelFormat(avGetPixFmt(name)), nil
}

// Name returns FFmpeg's name for the format, or "none".
func (p PixelFormat) Name() string {
	if p == PixelFormatNone || avGetPixFmtName == nil {
		return "none"
	}
	if name := GoString(avGetPixFmtName(int32(p))); name != "" {
		return name
	}
	return "none"
}

// MediaType represents FFmpeg media types.
type MediaType int32

const (
	MediaTypeUnknown MediaType = -1
	MediaTypeVideo   MediaType = 0
	MediaTypeAudio   MediaType = 1
)
