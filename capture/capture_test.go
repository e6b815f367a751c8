package capture

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/kataras/golog"

	"github.com/obinnaokechukwu/vrrec/surface"
)

type fakeTexture struct {
	name     string
	desc     TextureDesc
	pitch    uint32
	data     []byte
	released int
}

func (t *fakeTexture) Release() { t.released++ }

type fakeDevice struct {
	calls    []string
	mapErr   error
	mapped   int
	unmapped int
	released int
	textures []*fakeTexture

	createStagingErr error
}

func (d *fakeDevice) TextureDesc(tex Texture) (TextureDesc, error) {
	return tex.(*fakeTexture).desc, nil
}

func (d *fakeDevice) CreateStaging(desc TextureDesc) (Texture, error) {
	d.calls = append(d.calls, "create-staging")
	if d.createStagingErr != nil {
		return nil, d.createStagingErr
	}
	desc.SampleCount, desc.Usage, desc.CPUAccessRead = 1, UsageStaging, true
	t := &fakeTexture{name: "staging", desc: desc}
	d.textures = append(d.textures, t)
	return t, nil
}

func (d *fakeDevice) CreateResolveTarget(desc TextureDesc) (Texture, error) {
	d.calls = append(d.calls, "create-resolve")
	desc.SampleCount = 1
	t := &fakeTexture{name: "resolve", desc: desc}
	d.textures = append(d.textures, t)
	return t, nil
}

func (d *fakeDevice) ResolveSubresource(dst, src Texture, f surface.Format) error {
	d.calls = append(d.calls, fmt.Sprintf("resolve %s->%s", src.(*fakeTexture).name, dst.(*fakeTexture).name))
	dt, st := dst.(*fakeTexture), src.(*fakeTexture)
	dt.data, dt.pitch = st.data, st.pitch
	return nil
}

func (d *fakeDevice) CopyResource(dst, src Texture) error {
	d.calls = append(d.calls, fmt.Sprintf("copy %s->%s", src.(*fakeTexture).name, dst.(*fakeTexture).name))
	dt, st := dst.(*fakeTexture), src.(*fakeTexture)
	dt.data, dt.pitch = st.data, st.pitch
	return nil
}

func (d *fakeDevice) Map(tex Texture) (Mapped, error) {
	t := tex.(*fakeTexture)
	d.calls = append(d.calls, "map "+t.name)
	if d.mapErr != nil {
		return Mapped{}, d.mapErr
	}
	d.mapped++
	return Mapped{Data: t.data, RowPitch: t.pitch}, nil
}

func (d *fakeDevice) Unmap(tex Texture) {
	d.calls = append(d.calls, "unmap "+tex.(*fakeTexture).name)
	d.unmapped++
}

func (d *fakeDevice) Release() { d.released++ }

type fakeBackend struct {
	mirror *fakeTexture
	device *fakeDevice

	startErr  error
	deviceErr error
	mirrorErr error
	nilMirror bool

	started          int
	shutdowns        int
	devicesIssued    int
	mirrorsRequested []Eye
	mirrorsReleased  int
}

func (b *fakeBackend) Start() error {
	if b.startErr != nil {
		return b.startErr
	}
	b.started++
	return nil
}

func (b *fakeBackend) NewDevice() (Device, error) {
	if b.deviceErr != nil {
		return nil, b.deviceErr
	}
	b.devicesIssued++
	return b.device, nil
}

func (b *fakeBackend) MirrorTexture(dev Device, eye Eye) (Texture, error) {
	b.mirrorsRequested = append(b.mirrorsRequested, eye)
	if b.mirrorErr != nil {
		return nil, b.mirrorErr
	}
	if b.nilMirror {
		return nil, nil
	}
	return b.mirror, nil
}

func (b *fakeBackend) ReleaseMirrorTexture(tex Texture) { b.mirrorsReleased++ }

func (b *fakeBackend) Shutdown() { b.shutdowns++ }

// newMirror builds a mirror texture whose rows are pitch bytes apart and
// whose pixel bytes count up from 1.
func newMirror(desc TextureDesc, pitch uint32) *fakeTexture {
	layout, err := surface.ComputeLayout(desc.Width, desc.Height, desc.Format)
	if err != nil {
		panic(err)
	}
	data := make([]byte, int(pitch)*int(layout.RowCount))
	for y := 0; y < int(layout.RowCount); y++ {
		for x := 0; x < int(pitch); x++ {
			if uint64(x) < layout.RowStride {
				data[y*int(pitch)+x] = byte(y*31 + x + 1)
			} else {
				data[y*int(pitch)+x] = 0xee // row padding
			}
		}
	}
	return &fakeTexture{name: "mirror", desc: desc, pitch: pitch, data: data}
}

func newTestSource(t *testing.T, b *fakeBackend) (*FrameSource, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	logger := golog.New()
	logger.SetOutput(&out)
	logger.SetLevel("debug")
	return New(b, logger), &out
}

func rgbaDesc(w, h uint32) TextureDesc {
	return TextureDesc{Width: w, Height: h, Format: surface.FormatR8G8B8A8Unorm, SampleCount: 1}
}

func TestInitializeReportsMirrorGeometry(t *testing.T) {
	b := &fakeBackend{mirror: newMirror(rgbaDesc(1920, 1080), 7680), device: &fakeDevice{}}
	src, _ := newTestSource(t, b)

	if err := src.Initialize(EyeRight); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer src.Release()

	if src.Width() != 1920 || src.Height() != 1080 {
		t.Errorf("size = %dx%d, want 1920x1080", src.Width(), src.Height())
	}
	if src.RowStride() != 7680 {
		t.Errorf("RowStride = %d, want 7680", src.RowStride())
	}
	if src.RowCount() != 1080 {
		t.Errorf("RowCount = %d, want 1080", src.RowCount())
	}
	if got := src.Layout().TotalBytes; got != 8294400 {
		t.Errorf("TotalBytes = %d, want 8294400", got)
	}
	if len(src.Buffer()) != 8294400 {
		t.Errorf("buffer = %d bytes, want 8294400", len(src.Buffer()))
	}
	if src.Format() != surface.FormatR8G8B8A8Unorm {
		t.Errorf("Format = %s", src.Format())
	}
	if src.Eye() != EyeRight || len(b.mirrorsRequested) != 1 || b.mirrorsRequested[0] != EyeRight {
		t.Errorf("mirror requested for %v, want right", b.mirrorsRequested)
	}
}

func TestInitializeFailures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		backend func() *fakeBackend
		want    error
	}{
		{"runtime", func() *fakeBackend {
			return &fakeBackend{startErr: &VRInitError{Op: "VR_InitInternal2", Code: 110}, device: &fakeDevice{}}
		}, ErrCompositorUnavailable},
		{"device", func() *fakeBackend {
			return &fakeBackend{deviceErr: &HRESULTError{Op: "D3D11CreateDevice", Code: 0x887A0004}}
		}, ErrDeviceCreationFailed},
		{"mirror error", func() *fakeBackend {
			return &fakeBackend{mirrorErr: boom, device: &fakeDevice{}}
		}, ErrMirrorSurfaceUnavailable},
		{"nil mirror", func() *fakeBackend {
			return &fakeBackend{nilMirror: true, device: &fakeDevice{}}
		}, ErrMirrorSurfaceUnavailable},
		{"unknown format", func() *fakeBackend {
			return &fakeBackend{mirror: &fakeTexture{name: "mirror", desc: TextureDesc{Width: 8, Height: 8, Format: surface.FormatUnknown}}, device: &fakeDevice{}}
		}, ErrUnsupportedSurfaceFormat},
		{"empty surface", func() *fakeBackend {
			return &fakeBackend{mirror: &fakeTexture{name: "mirror", desc: rgbaDesc(0, 8)}, device: &fakeDevice{}}
		}, ErrUnsupportedSurfaceFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.backend()
			src, out := newTestSource(t, b)

			err := src.Initialize(EyeLeft)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Initialize = %v, want %v", err, tt.want)
			}
			if src.Initialized() {
				t.Error("source initialized after failure")
			}
			if src.Buffer() != nil {
				t.Error("buffer retained after failure")
			}
			if b.started != b.shutdowns {
				t.Errorf("runtime started %d times, shut down %d times", b.started, b.shutdowns)
			}
			if b.device != nil && b.device.released != b.devicesIssued {
				t.Errorf("device released %d times, issued %d", b.device.released, b.devicesIssued)
			}
			if n := bytes.Count(out.Bytes(), []byte("initialize failed")); n != 1 {
				t.Errorf("logged %d failure lines, want 1:\n%s", n, out.String())
			}
		})
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	dev := &fakeDevice{}
	b := &fakeBackend{mirror: newMirror(rgbaDesc(16, 8), 64), device: dev}
	src, _ := newTestSource(t, b)

	if err := src.Initialize(EyeLeft); err != nil {
		t.Fatal(err)
	}
	if err := src.Capture(); err != nil {
		t.Fatal(err)
	}
	if err := src.Initialize(EyeRight); err != nil {
		t.Fatal(err)
	}

	if b.shutdowns != 1 || b.mirrorsReleased != 1 || dev.released != 1 {
		t.Errorf("first session not released: shutdowns=%d mirrors=%d device=%d", b.shutdowns, b.mirrorsReleased, dev.released)
	}
	if src.Eye() != EyeRight {
		t.Errorf("Eye = %s, want right", src.Eye())
	}
	if st := src.Stats(); st.Captured != 0 {
		t.Errorf("stats not reset: %+v", st)
	}

	src.Release()
	src.Release()
	if b.shutdowns != 2 || b.mirrorsReleased != 2 || dev.released != 2 {
		t.Errorf("double Release freed twice: shutdowns=%d mirrors=%d device=%d", b.shutdowns, b.mirrorsReleased, dev.released)
	}
}

func TestCaptureCopiesWithMinStride(t *testing.T) {
	tests := []struct {
		name  string
		desc  TextureDesc
		pitch uint32
	}{
		{"padded rows", rgbaDesc(10, 4), 64},
		{"tight rows", rgbaDesc(16, 4), 64},
		{"nv12 planes", TextureDesc{Width: 6, Height: 4, Format: surface.FormatNV12, SampleCount: 1}, 16},
		{"bc1 blocks", TextureDesc{Width: 9, Height: 9, Format: surface.FormatBC1Unorm, SampleCount: 1}, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mirror := newMirror(tt.desc, tt.pitch)
			b := &fakeBackend{mirror: mirror, device: &fakeDevice{}}
			src, _ := newTestSource(t, b)
			if err := src.Initialize(EyeLeft); err != nil {
				t.Fatal(err)
			}
			defer src.Release()

			if err := src.Capture(); err != nil {
				t.Fatalf("Capture: %v", err)
			}

			buf := src.Buffer()
			stride, pitch := src.RowStride(), int(tt.pitch)
			for y := 0; y < src.RowCount(); y++ {
				start := y * stride
				if start >= len(buf) {
					break
				}
				end := min(start+stride, len(buf))
				want := mirror.data[y*pitch : y*pitch+(end-start)]
				if !bytes.Equal(buf[start:end], want) {
					t.Fatalf("row %d = %v, want %v", y, buf[start:end], want)
				}
			}
			if bytes.IndexByte(buf, 0xee) >= 0 {
				t.Error("row padding leaked into the buffer")
			}
		})
	}
}

func TestCopyRowsNarrowSource(t *testing.T) {
	// Mapped pitch smaller than the logical stride: only pitch bytes per
	// row are copied and the rest of the destination row is untouched.
	src := []byte{1, 2, 3, 4, 5, 6}
	dst := bytes.Repeat([]byte{9}, 8)
	copyRows(dst, src, 4, 3, 2)
	want := []byte{1, 2, 3, 9, 4, 5, 6, 9}
	if !bytes.Equal(dst, want) {
		t.Errorf("dst = %v, want %v", dst, want)
	}
}

func TestCopyRowsShortDestination(t *testing.T) {
	src := bytes.Repeat([]byte{7}, 12)
	dst := make([]byte, 5)
	copyRows(dst, src, 4, 4, 3)
	if !bytes.Equal(dst, []byte{7, 7, 7, 7, 7}) {
		t.Errorf("dst = %v", dst)
	}
}

func TestCaptureStagingPaths(t *testing.T) {
	tests := []struct {
		name      string
		desc      TextureDesc
		wantCalls []string
	}{
		{
			name: "default usage copies to staging",
			desc: rgbaDesc(8, 2),
			wantCalls: []string{
				"create-staging", "copy mirror->staging", "map staging", "unmap staging",
				"copy mirror->staging", "map staging", "unmap staging",
			},
		},
		{
			name: "readable staging is mapped directly",
			desc: TextureDesc{Width: 8, Height: 2, Format: surface.FormatR8G8B8A8Unorm, SampleCount: 1, Usage: UsageStaging, CPUAccessRead: true},
			wantCalls: []string{
				"map mirror", "unmap mirror",
				"map mirror", "unmap mirror",
			},
		},
		{
			name: "msaa is resolved before staging",
			desc: TextureDesc{Width: 8, Height: 2, Format: surface.FormatR8G8B8A8Unorm, SampleCount: 4},
			wantCalls: []string{
				"create-resolve", "resolve mirror->resolve", "create-staging", "copy resolve->staging", "map staging", "unmap staging",
				"resolve mirror->resolve", "copy resolve->staging", "map staging", "unmap staging",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &fakeDevice{}
			b := &fakeBackend{mirror: newMirror(tt.desc, 32), device: dev}
			src, _ := newTestSource(t, b)
			if err := src.Initialize(EyeLeft); err != nil {
				t.Fatal(err)
			}

			for i := 0; i < 2; i++ {
				if err := src.Capture(); err != nil {
					t.Fatalf("Capture %d: %v", i, err)
				}
			}
			if fmt.Sprint(dev.calls) != fmt.Sprint(tt.wantCalls) {
				t.Errorf("calls = %q\nwant    %q", dev.calls, tt.wantCalls)
			}

			src.Release()
			for _, tex := range dev.textures {
				if tex.released != 1 {
					t.Errorf("%s texture released %d times, want 1", tex.name, tex.released)
				}
			}
		})
	}
}

func TestCaptureMapFailureIsTransient(t *testing.T) {
	dev := &fakeDevice{}
	b := &fakeBackend{mirror: newMirror(rgbaDesc(4, 2), 16), device: dev}
	src, out := newTestSource(t, b)
	if err := src.Initialize(EyeLeft); err != nil {
		t.Fatal(err)
	}
	defer src.Release()

	dev.mapErr = &HRESULTError{Op: "ID3D11DeviceContext::Map", Code: 0x887A0005}
	err := src.Capture()
	if !errors.Is(err, ErrMapFailed) {
		t.Fatalf("Capture = %v, want ErrMapFailed", err)
	}
	if dev.unmapped != 0 {
		t.Error("Unmap called after failed Map")
	}
	if !bytes.Contains(out.Bytes(), []byte("0x887A0005")) {
		t.Errorf("map failure logged without code:\n%s", out.String())
	}

	dev.mapErr = nil
	if err := src.Capture(); err != nil {
		t.Fatalf("Capture after recovery: %v", err)
	}
	if st := src.Stats(); st.Captured != 1 || st.Failed != 1 {
		t.Errorf("Stats = %+v, want 1 captured 1 failed", st)
	}
}

func TestCaptureStagingFailure(t *testing.T) {
	dev := &fakeDevice{createStagingErr: errors.New("E_OUTOFMEMORY")}
	b := &fakeBackend{mirror: newMirror(rgbaDesc(4, 2), 16), device: dev}
	src, _ := newTestSource(t, b)
	if err := src.Initialize(EyeLeft); err != nil {
		t.Fatal(err)
	}
	defer src.Release()

	if err := src.Capture(); !errors.Is(err, ErrStagingFailed) {
		t.Fatalf("Capture = %v, want ErrStagingFailed", err)
	}
	if dev.mapped != 0 {
		t.Error("Map called without a staging texture")
	}
}

func TestCaptureBeforeInitialize(t *testing.T) {
	src := New(&fakeBackend{}, nil)
	if err := src.Capture(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Capture = %v, want ErrNotInitialized", err)
	}
	src.Release()
}

func TestParseEye(t *testing.T) {
	tests := []struct {
		in      string
		want    Eye
		wantErr bool
	}{
		{"left", EyeLeft, false},
		{"Right", EyeRight, false},
		{" RIGHT ", EyeRight, false},
		{"both", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseEye(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseEye(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseEye(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
	if EyeLeft.String() != "left" || EyeRight.String() != "right" {
		t.Error("Eye.String mismatch")
	}
}

func TestErrorCode(t *testing.T) {
	if got := ErrorCode(fmt.Errorf("wrap: %w", &HRESULTError{Op: "x", Code: 0x80004005})); got != 0x80004005 {
		t.Errorf("ErrorCode(HRESULT) = %#x", got)
	}
	if got := ErrorCode(&VRInitError{Op: "init", Code: 108}); got != 108 {
		t.Errorf("ErrorCode(VRInitError) = %d", got)
	}
	if got := ErrorCode(errors.New("plain")); got != 0 {
		t.Errorf("ErrorCode(plain) = %d", got)
	}
}
