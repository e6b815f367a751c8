//go:build !ios && !android && (amd64 || arm64)

package vrrec

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/obinnaokechukwu/vrrec/avutil"
	"github.com/obinnaokechukwu/vrrec/internal/bindings"
	"github.com/obinnaokechukwu/vrrec/swscale"
)

// ScaleFlags controls the scaling algorithm.
type ScaleFlags int32

const (
	// ScaleFastBilinear uses fast bilinear scaling (lowest quality, fastest).
	ScaleFastBilinear ScaleFlags = swscale.FlagFastBilinear

	// ScaleBilinear uses bilinear scaling (good balance of quality/speed).
	ScaleBilinear ScaleFlags = swscale.FlagBilinear

	// ScaleBicubic uses bicubic scaling (high quality).
	ScaleBicubic ScaleFlags = swscale.FlagBicubic

	// ScalePoint uses nearest neighbor (fastest, no interpolation).
	ScalePoint ScaleFlags = swscale.FlagPoint
)

// Scaler converts captured surfaces into the encoder's pixel format and size.
//
// It owns the swscale context and a reusable source frame in FFmpeg memory.
// Capture buffers are copied into that frame before scaling so that no Go
// memory is ever handed to C.
type Scaler struct {
	ctx swscale.Context

	srcWidth  int
	srcHeight int
	srcFormat PixelFormat

	dstWidth  int
	dstHeight int
	dstFormat PixelFormat

	srcFrame avutil.Frame
}

// ScalerConfig contains configuration for creating a Scaler.
type ScalerConfig struct {
	SrcWidth  int
	SrcHeight int
	SrcFormat PixelFormat

	DstWidth  int
	DstHeight int
	DstFormat PixelFormat

	Flags ScaleFlags
}

// NewScaler creates a scaler from a source geometry to a destination geometry.
func NewScaler(cfg ScalerConfig) (*Scaler, error) {
	if err := bindings.Load(); err != nil {
		return nil, err
	}
	if !bindings.HasSWScale() {
		return nil, ErrScalerUnavailable
	}

	if cfg.SrcWidth <= 0 || cfg.SrcHeight <= 0 {
		return nil, errors.New("vrrec: invalid source dimensions")
	}
	if cfg.DstWidth <= 0 || cfg.DstHeight <= 0 {
		return nil, errors.New("vrrec: invalid destination dimensions")
	}
	if !swscale.IsSupportedInput(cfg.SrcFormat) {
		return nil, fmt.Errorf("%w: swscale cannot read %s", ErrUnknownSourceFormat, cfg.SrcFormat.Name())
	}

	flags := cfg.Flags
	if flags == 0 {
		flags = ScaleBilinear
	}

	ctx := swscale.GetContext(
		cfg.SrcWidth, cfg.SrcHeight, cfg.SrcFormat,
		cfg.DstWidth, cfg.DstHeight, cfg.DstFormat,
		int32(flags),
	)
	if ctx == nil {
		return nil, errors.New("vrrec: failed to create scaler context")
	}

	s := &Scaler{
		ctx:       ctx,
		srcWidth:  cfg.SrcWidth,
		srcHeight: cfg.SrcHeight,
		srcFormat: cfg.SrcFormat,
		dstWidth:  cfg.DstWidth,
		dstHeight: cfg.DstHeight,
		dstFormat: cfg.DstFormat,
	}

	s.srcFrame = allocVideoFrame(cfg.SrcWidth, cfg.SrcHeight, cfg.SrcFormat)
	if s.srcFrame == nil {
		s.Close()
		return nil, fmt.Errorf("vrrec: source frame: %w", ErrOutOfMemory)
	}
	return s, nil
}

// Load copies a capture buffer into the scaler's source frame.
func (s *Scaler) Load(buf []byte, rowCount, rowStride int) error {
	if s == nil || s.srcFrame == nil {
		return errors.New("vrrec: scaler is closed")
	}
	if err := avutil.FrameMakeWritable(s.srcFrame); err != nil {
		return err
	}
	planes := sourcePlanes(s.srcFormat, s.srcHeight, rowCount, rowStride)
	return copyPlanes(s.srcFrame, s.srcHeight, buf, planes)
}

// Scale converts the loaded source frame into dst.
func (s *Scaler) Scale(dst avutil.Frame) error {
	if s == nil || s.ctx == nil {
		return errors.New("vrrec: scaler is closed")
	}
	if dst == nil {
		return errors.New("vrrec: nil destination frame")
	}
	return swscale.ScaleFrame(s.ctx, dst, s.srcFrame)
}

// SourceFormat returns the pixel format the scaler reads.
func (s *Scaler) SourceFormat() PixelFormat { return s.srcFormat }

// DestinationFormat returns the pixel format the scaler writes.
func (s *Scaler) DestinationFormat() PixelFormat { return s.dstFormat }

// Close frees the swscale context and the source frame.
func (s *Scaler) Close() {
	if s == nil {
		return
	}
	if s.ctx != nil {
		swscale.FreeContext(s.ctx)
		s.ctx = nil
	}
	avutil.FrameFree(&s.srcFrame)
}

// allocVideoFrame returns a frame with buffers for the given geometry,
// or nil when FFmpeg cannot allocate one.
func allocVideoFrame(width, height int, pf PixelFormat) avutil.Frame {
	frame := avutil.FrameAlloc()
	if frame == nil {
		return nil
	}
	avutil.SetFrameWidth(frame, int32(width))
	avutil.SetFrameHeight(frame, int32(height))
	avutil.SetFrameFormat(frame, int32(pf))
	if err := avutil.FrameGetBuffer(frame, 0); err != nil {
		avutil.FrameFree(&frame)
		return nil
	}
	return frame
}

// copyPlanes copies buf, split into planes, into frame. Each row copies
// min(source stride, frame linesize) bytes; row padding is never read
// past either side.
func copyPlanes(frame avutil.Frame, height int, buf []byte, planes []planeShape) error {
	off := 0
	for i, p := range planes {
		data := avutil.GetFrameDataPlane(frame, i)
		linesize := int(avutil.GetFrameLinesizePlane(frame, i))
		if data == nil || linesize <= 0 {
			return fmt.Errorf("vrrec: frame has no plane %d", i)
		}

		rows := p.rows
		if limit := planeRows(height, i); rows > limit {
			rows = limit
		}
		n := min(p.stride, linesize)
		dst := unsafe.Slice((*byte)(data), linesize*rows)
		for y := 0; y < rows; y++ {
			start := off + y*p.stride
			if start >= len(buf) {
				return fmt.Errorf("%w: plane %d row %d starts at %d, have %d bytes", ErrShortBuffer, i, y, start, len(buf))
			}
			// Odd-height 4:2:0 surfaces end mid-row.
			m := min(n, len(buf)-start)
			copy(dst[y*linesize:y*linesize+m], buf[start:start+m])
		}
		off += p.rows * p.stride
	}
	return nil
}

// planeRows is the number of rows FFmpeg allocates for plane i of a frame
// of the given height. Chroma planes of 4:2:0 formats are half height;
// single-plane formats only ever use plane 0.
func planeRows(height, plane int) int {
	if plane == 0 {
		return height
	}
	return (height + 1) / 2
}
