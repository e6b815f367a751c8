// Package capture copies the VR compositor's mirror texture into a CPU
// buffer once per call.
//
// The GPU and VR runtime are reached through the Backend, Device and
// Texture interfaces. NewSystemBackend returns the OpenVR + Direct3D 11
// implementation on Windows; tests substitute fakes.
//
// A FrameSource is not safe for concurrent use. The pacer owns it while
// recording; otherwise the controlling goroutine does.
package capture

import (
	"fmt"
	"sync/atomic"

	"github.com/kataras/golog"

	"github.com/obinnaokechukwu/vrrec/surface"
)

// FrameSource produces one CPU copy of the mirror texture per Capture.
type FrameSource struct {
	backend Backend
	logger  *golog.Logger

	initialized bool
	started     bool
	eye         Eye

	device  Device
	mirror  Texture
	desc    TextureDesc
	resolve Texture
	staging Texture

	layout surface.Layout
	buffer []byte

	captured atomic.Uint64
	failed   atomic.Uint64
}

// New returns an uninitialized FrameSource. A nil logger uses golog.Default.
func New(backend Backend, logger *golog.Logger) *FrameSource {
	if logger == nil {
		logger = golog.Default
	}
	return &FrameSource{backend: backend, logger: logger}
}

// Initialize starts the runtime, opens the mirror texture for eye and
// allocates the capture buffer. An initialized source is released first.
// On failure everything acquired so far is released.
func (f *FrameSource) Initialize(eye Eye) error {
	f.Release()

	if err := f.initialize(eye); err != nil {
		f.logger.Errorf("initialize failed eye=%s code=0x%X: %v", eye, ErrorCode(err), err)
		f.Release()
		return err
	}

	f.logger.Infof("mirror surface ready eye=%s size=%dx%d format=%s stride=%d rows=%d bytes=%d",
		eye, f.desc.Width, f.desc.Height, f.desc.Format, f.layout.RowStride, f.layout.RowCount, f.layout.TotalBytes)
	return nil
}

func (f *FrameSource) initialize(eye Eye) error {
	if f.backend == nil {
		return fmt.Errorf("%w: no backend", ErrCompositorUnavailable)
	}

	if err := f.backend.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrCompositorUnavailable, err)
	}
	f.started = true

	dev, err := f.backend.NewDevice()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceCreationFailed, err)
	}
	f.device = dev

	mirror, err := f.backend.MirrorTexture(dev, eye)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMirrorSurfaceUnavailable, err)
	}
	if mirror == nil {
		return ErrMirrorSurfaceUnavailable
	}
	f.mirror = mirror

	desc, err := dev.TextureDesc(mirror)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedSurfaceFormat, err)
	}
	d := surface.Descriptor{Width: desc.Width, Height: desc.Height, Format: desc.Format}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedSurfaceFormat, err)
	}
	layout, err := d.Layout()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedSurfaceFormat, err)
	}

	f.desc = desc
	f.layout = layout
	f.buffer = make([]byte, layout.TotalBytes)
	f.eye = eye
	f.captured.Store(0)
	f.failed.Store(0)
	f.initialized = true
	return nil
}

// Capture copies the current mirror texture into the buffer. ErrMapFailed
// and ErrStagingFailed are transient; the buffer keeps the previous frame.
func (f *FrameSource) Capture() error {
	if !f.initialized {
		return ErrNotInitialized
	}

	src, err := f.stage()
	if err != nil {
		f.failed.Add(1)
		f.logger.Errorf("staging failed eye=%s code=0x%X: %v", f.eye, ErrorCode(err), err)
		return err
	}

	if err := f.copyOut(src); err != nil {
		f.failed.Add(1)
		f.logger.Errorf("capture failed eye=%s code=0x%X: %v", f.eye, ErrorCode(err), err)
		return err
	}
	f.captured.Add(1)
	return nil
}

// stage returns a CPU-readable texture holding the current mirror contents.
func (f *FrameSource) stage() (Texture, error) {
	switch {
	case f.desc.Multisampled():
		if f.resolve == nil {
			t, err := f.device.CreateResolveTarget(f.desc)
			if err != nil {
				return nil, fmt.Errorf("%w: resolve target: %w", ErrStagingFailed, err)
			}
			f.resolve = t
		}
		if err := f.device.ResolveSubresource(f.resolve, f.mirror, f.desc.Format); err != nil {
			return nil, fmt.Errorf("%w: resolve: %w", ErrStagingFailed, err)
		}
		return f.copyToStaging(f.resolve)

	case f.desc.Readable():
		return f.mirror, nil

	default:
		return f.copyToStaging(f.mirror)
	}
}

func (f *FrameSource) copyToStaging(src Texture) (Texture, error) {
	if f.staging == nil {
		t, err := f.device.CreateStaging(f.desc)
		if err != nil {
			return nil, fmt.Errorf("%w: staging texture: %w", ErrStagingFailed, err)
		}
		f.staging = t
	}
	if err := f.device.CopyResource(f.staging, src); err != nil {
		return nil, fmt.Errorf("%w: copy: %w", ErrStagingFailed, err)
	}
	return f.staging, nil
}

// copyOut maps tex and copies its rows into the buffer. The texture is
// unmapped on every path once Map succeeds.
func (f *FrameSource) copyOut(tex Texture) error {
	m, err := f.device.Map(tex)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMapFailed, err)
	}
	defer f.device.Unmap(tex)

	if len(m.Data) == 0 || m.RowPitch == 0 {
		return fmt.Errorf("%w: empty mapping", ErrMapFailed)
	}
	copyRows(f.buffer, m.Data, int(f.layout.RowStride), int(m.RowPitch), int(f.layout.RowCount))
	return nil
}

// copyRows copies rows rows from src (srcPitch bytes apart) into dst
// (dstStride bytes apart). Each row copies min(dstStride, srcPitch) bytes,
// clipped to what remains of either slice, so neither side is overrun.
func copyRows(dst, src []byte, dstStride, srcPitch, rows int) {
	n := min(dstStride, srcPitch)
	for y := 0; y < rows; y++ {
		d := y * dstStride
		s := y * srcPitch
		if d >= len(dst) || s >= len(src) {
			return
		}
		copy(dst[d:d+min(n, len(dst)-d)], src[s:])
	}
}

// Release frees every GPU and runtime handle and drops the buffer.
// Safe to call repeatedly.
func (f *FrameSource) Release() {
	f.initialized = false

	if f.staging != nil {
		f.staging.Release()
		f.staging = nil
	}
	if f.resolve != nil {
		f.resolve.Release()
		f.resolve = nil
	}
	if f.mirror != nil {
		f.backend.ReleaseMirrorTexture(f.mirror)
		f.mirror = nil
	}
	if f.device != nil {
		f.device.Release()
		f.device = nil
	}
	if f.started {
		f.backend.Shutdown()
		f.started = false
	}

	f.buffer = nil
	f.layout = surface.Layout{}
	f.desc = TextureDesc{}
}

// Initialized reports whether Capture may be called.
func (f *FrameSource) Initialized() bool { return f.initialized }

// Eye returns the eye of the last successful Initialize.
func (f *FrameSource) Eye() Eye { return f.eye }

// Width returns the mirror texture width in texels.
func (f *FrameSource) Width() int { return int(f.desc.Width) }

// Height returns the mirror texture height in texels.
func (f *FrameSource) Height() int { return int(f.desc.Height) }

// Format returns the mirror texture format.
func (f *FrameSource) Format() surface.Format { return f.desc.Format }

// Layout returns the CPU layout of the buffer.
func (f *FrameSource) Layout() surface.Layout { return f.layout }

// RowCount returns the number of rows in the buffer.
func (f *FrameSource) RowCount() int { return int(f.layout.RowCount) }

// RowStride returns the bytes per buffer row.
func (f *FrameSource) RowStride() int { return int(f.layout.RowStride) }

// Buffer returns the capture buffer. It is reused by every Capture and
// must not be modified.
func (f *FrameSource) Buffer() []byte { return f.buffer }

// Stats returns capture counters since the last Initialize.
func (f *FrameSource) Stats() Stats {
	return Stats{Captured: f.captured.Load(), Failed: f.failed.Load()}
}
