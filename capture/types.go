package capture

import (
	"fmt"
	"strings"

	"github.com/obinnaokechukwu/vrrec/surface"
)

// Eye selects which compositor mirror view to capture.
type Eye int

const (
	EyeLeft Eye = iota
	EyeRight
)

func (e Eye) String() string {
	switch e {
	case EyeLeft:
		return "left"
	case EyeRight:
		return "right"
	default:
		return fmt.Sprintf("eye(%d)", int(e))
	}
}

// ParseEye accepts "left" or "right" in any case.
func ParseEye(s string) (Eye, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return EyeLeft, nil
	case "right":
		return EyeRight, nil
	default:
		return 0, fmt.Errorf("capture: unknown eye %q", s)
	}
}

// Usage mirrors D3D11_USAGE.
type Usage uint32

const (
	UsageDefault   Usage = 0
	UsageImmutable Usage = 1
	UsageDynamic   Usage = 2
	UsageStaging   Usage = 3
)

// Texture is a GPU texture handle owned by whoever created it.
type Texture interface {
	Release()
}

// TextureDesc is the subset of a texture description capture depends on.
type TextureDesc struct {
	Width         uint32
	Height        uint32
	Format        surface.Format
	SampleCount   uint32
	Usage         Usage
	CPUAccessRead bool
}

// Multisampled reports whether the texture must be resolved before staging.
func (d TextureDesc) Multisampled() bool {
	return d.SampleCount > 1
}

// Readable reports whether the texture can be mapped for CPU reads as is.
func (d TextureDesc) Readable() bool {
	return d.Usage == UsageStaging && d.CPUAccessRead && !d.Multisampled()
}

// Mapped is a texture mapped for reading. Data stays valid until Unmap.
type Mapped struct {
	Data     []byte
	RowPitch uint32
}

// Runtime is the VR compositor session.
type Runtime interface {
	// Start opens the runtime session.
	Start() error
	// MirrorTexture returns the compositor's mirror texture for eye,
	// shared onto dev.
	MirrorTexture(dev Device, eye Eye) (Texture, error)
	// ReleaseMirrorTexture hands a mirror texture back to the compositor
	// and drops every reference to it.
	ReleaseMirrorTexture(tex Texture)
	// Shutdown closes the session. Safe to call when Start failed.
	Shutdown()
}

// Device is a GPU device plus its immediate context.
type Device interface {
	TextureDesc(tex Texture) (TextureDesc, error)
	// CreateStaging creates a single-sample, CPU-readable copy target
	// with desc's size and format.
	CreateStaging(desc TextureDesc) (Texture, error)
	// CreateResolveTarget creates a single-sample GPU texture that an
	// MSAA texture of desc can be resolved into.
	CreateResolveTarget(desc TextureDesc) (Texture, error)
	ResolveSubresource(dst, src Texture, format surface.Format) error
	CopyResource(dst, src Texture) error
	Map(tex Texture) (Mapped, error)
	Unmap(tex Texture)
	Release()
}

// Backend supplies the runtime and creates devices for it.
type Backend interface {
	Runtime
	NewDevice() (Device, error)
}

// Stats counts capture outcomes since the last Initialize.
type Stats struct {
	Captured uint64
	Failed   uint64
}
