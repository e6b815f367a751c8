//go:build !ios && !android && (amd64 || arm64)

package vrrec

import (
	"fmt"

	"github.com/obinnaokechukwu/vrrec/avutil"
	"github.com/obinnaokechukwu/vrrec/surface"
)

// nativeFormatNames maps the surface formats a mirror texture can arrive in
// to FFmpeg pixel format names. The set is closed.
var nativeFormatNames = map[surface.Format]string{
	surface.FormatR8G8B8A8Unorm:     "rgba",
	surface.FormatR8G8B8A8UnormSRGB: "rgba",
	surface.FormatB8G8R8A8Unorm:     "bgra",
	surface.FormatB8G8R8A8UnormSRGB: "bgra",
	surface.FormatB8G8R8X8Unorm:     "bgr0",
	surface.FormatB8G8R8X8UnormSRGB: "bgr0",
	surface.FormatNV12:              "nv12",
	surface.FormatP010:              "p010le",
	surface.FormatYUY2:              "yuyv422",
	surface.FormatR8Unorm:           "gray8",
	surface.FormatR16Unorm:          "gray16le",
	surface.FormatR16G16B16A16Unorm: "rgba64le",
	surface.FormatR10G10B10A2Unorm:  "x2bgr10le",
}

// NativePixelFormatName returns FFmpeg's name for the pixel format that
// matches f byte for byte.
func NativePixelFormatName(f surface.Format) (string, error) {
	name, ok := nativeFormatNames[f]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSourceFormat, f)
	}
	return name, nil
}

// NativePixelFormat resolves f to an FFmpeg pixel format. Formats the
// loaded FFmpeg does not know are reported as ErrUnknownSourceFormat.
func NativePixelFormat(f surface.Format) (PixelFormat, error) {
	name, err := NativePixelFormatName(f)
	if err != nil {
		return PixelFormatNone, err
	}
	return pixelFormatByName(name)
}

func pixelFormatByName(name string) (PixelFormat, error) {
	pf, err := avutil.PixelFormatByName(name)
	if err != nil {
		return PixelFormatNone, err
	}
	if pf == PixelFormatNone {
		return PixelFormatNone, fmt.Errorf("%w: ffmpeg has no %q", ErrUnknownSourceFormat, name)
	}
	return pf, nil
}

// planeShape describes how a contiguous capture buffer splits into the
// planes of an FFmpeg frame.
type planeShape struct {
	rows   int // rows in this plane
	stride int // bytes per row in the capture buffer
}

// sourcePlanes splits a buffer of rowCount rows at rowStride bytes into
// planes for pf, given the picture height. Formats that are not planar
// use a single plane.
func sourcePlanes(pf PixelFormat, height, rowCount, rowStride int) []planeShape {
	switch pf.Name() {
	case "nv12", "p010le":
		chroma := rowCount - height
		if chroma < 0 {
			chroma = 0
		}
		return []planeShape{{height, rowStride}, {chroma, rowStride}}
	case "yuv420p":
		chroma := (height + 1) / 2
		return []planeShape{{height, rowStride}, {chroma, rowStride / 2}, {chroma, rowStride / 2}}
	default:
		return []planeShape{{rowCount, rowStride}}
	}
}
