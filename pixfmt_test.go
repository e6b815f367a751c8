//go:build !ios && !android && (amd64 || arm64)

package vrrec

import (
	"errors"
	"testing"

	"github.com/obinnaokechukwu/vrrec/surface"
)

func TestNativePixelFormatName(t *testing.T) {
	tests := []struct {
		format surface.Format
		want   string
	}{
		{surface.FormatR8G8B8A8Unorm, "rgba"},
		{surface.FormatR8G8B8A8UnormSRGB, "rgba"},
		{surface.FormatB8G8R8A8Unorm, "bgra"},
		{surface.FormatB8G8R8A8UnormSRGB, "bgra"},
		{surface.FormatB8G8R8X8Unorm, "bgr0"},
		{surface.FormatNV12, "nv12"},
		{surface.FormatP010, "p010le"},
		{surface.FormatYUY2, "yuyv422"},
		{surface.FormatR8Unorm, "gray8"},
		{surface.FormatR16Unorm, "gray16le"},
		{surface.FormatR16G16B16A16Unorm, "rgba64le"},
		{surface.FormatR10G10B10A2Unorm, "x2bgr10le"},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			got, err := NativePixelFormatName(tt.format)
			if err != nil {
				t.Fatalf("NativePixelFormatName(%s) error: %v", tt.format, err)
			}
			if got != tt.want {
				t.Errorf("NativePixelFormatName(%s) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

func TestNativePixelFormatNameUnknown(t *testing.T) {
	for _, f := range []surface.Format{
		surface.FormatUnknown,
		surface.FormatBC1Unorm,
		surface.FormatR32G32B32A32Float,
		surface.FormatNV11,
		surface.Format(9999),
	} {
		if _, err := NativePixelFormatName(f); !errors.Is(err, ErrUnknownSourceFormat) {
			t.Errorf("NativePixelFormatName(%s) error = %v, want ErrUnknownSourceFormat", f, err)
		}
	}
}

func TestNativePixelFormat(t *testing.T) {
	skipIfNoFFmpeg(t)

	tests := []struct {
		format surface.Format
		want   PixelFormat
	}{
		{surface.FormatR8G8B8A8Unorm, PixelFormatRGBA},
		{surface.FormatB8G8R8A8Unorm, PixelFormatBGRA},
		{surface.FormatNV12, PixelFormatNV12},
		{surface.FormatYUY2, PixelFormatYUYV422},
		{surface.FormatR8Unorm, PixelFormatGray8},
		{surface.FormatR16Unorm, PixelFormatGray16LE},
	}
	for _, tt := range tests {
		got, err := NativePixelFormat(tt.format)
		if err != nil {
			t.Fatalf("NativePixelFormat(%s) error: %v", tt.format, err)
		}
		if got != tt.want {
			t.Errorf("NativePixelFormat(%s) = %d, want %d", tt.format, got, tt.want)
		}
	}

	if _, err := NativePixelFormat(surface.FormatBC7Unorm); !errors.Is(err, ErrUnknownSourceFormat) {
		t.Errorf("NativePixelFormat(BC7) error = %v, want ErrUnknownSourceFormat", err)
	}
}

func TestSourcePlanes(t *testing.T) {
	skipIfNoFFmpeg(t)

	tests := []struct {
		name      string
		format    PixelFormat
		height    int
		rowCount  int
		rowStride int
		want      []planeShape
	}{
		{"rgba", PixelFormatRGBA, 4, 4, 64, []planeShape{{4, 64}}},
		{"nv12", PixelFormatNV12, 5, 8, 16, []planeShape{{5, 16}, {3, 16}}},
		{"yuv420p", PixelFormatYUV420P, 5, 8, 16, []planeShape{{5, 16}, {3, 8}, {3, 8}}},
		{"nv12 missing chroma", PixelFormatNV12, 4, 2, 16, []planeShape{{4, 16}, {0, 16}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sourcePlanes(tt.format, tt.height, tt.rowCount, tt.rowStride)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d planes, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("plane %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPlaneRows(t *testing.T) {
	tests := []struct {
		height, plane, want int
	}{
		{1080, 0, 1080},
		{1080, 1, 540},
		{1081, 1, 541},
		{1, 2, 1},
	}
	for _, tt := range tests {
		if got := planeRows(tt.height, tt.plane); got != tt.want {
			t.Errorf("planeRows(%d, %d) = %d, want %d", tt.height, tt.plane, got, tt.want)
		}
	}
}
