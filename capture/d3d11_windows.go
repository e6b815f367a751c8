//go:build windows

package capture

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/obinnaokechukwu/vrrec/surface"
)

const (
	d3dDriverTypeHardware = 1
	d3d11SdkVersion       = 7

	d3d11MapRead                     = 1
	d3d11CPUAccessRead               = 0x20000
	d3d11FormatSupportMultisampleRes = 0x40000
)

var (
	modD3D11              = windows.NewLazySystemDLL("d3d11.dll")
	procD3D11CreateDevice = modD3D11.NewProc("D3D11CreateDevice")

	iidID3D11Texture2D = windows.GUID{Data1: 0x6f15aaf2, Data2: 0xd208, Data3: 0x4e89, Data4: [8]byte{0x9a, 0xb4, 0x48, 0x95, 0x35, 0xd3, 0x4f, 0x9c}}
)

// Vtable slots, counted from IUnknown.
const (
	vtblRelease = 2

	// ID3D11Device
	vtblCreateTexture2D    = 5
	vtblCheckFormatSupport = 29

	// ID3D11DeviceContext
	vtblMap                = 14
	vtblUnmap              = 15
	vtblCopyResource       = 47
	vtblResolveSubresource = 57

	// ID3D11View
	vtblGetResource = 7

	// ID3D11Texture2D
	vtblTexGetDesc = 10

	vtblQueryInterface = 0
)

type d3d11Texture2DDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleCount    uint32
	SampleQuality  uint32
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

type d3d11MappedSubresource struct {
	pData      unsafe.Pointer
	RowPitch   uint32
	DepthPitch uint32
}

// comObject is any COM interface pointer.
type comObject uintptr

func (o comObject) vtbl(slot int) uintptr {
	vtbl := *(*unsafe.Pointer)(unsafe.Pointer(o))
	return *(*uintptr)(unsafe.Add(vtbl, uintptr(slot)*unsafe.Sizeof(uintptr(0))))
}

func (o comObject) call(slot int, args ...uintptr) uintptr {
	r, _, _ := syscall.SyscallN(o.vtbl(slot), append([]uintptr{uintptr(o)}, args...)...)
	return r
}

func (o comObject) release() {
	if o == 0 {
		return
	}
	o.call(vtblRelease)
}

func failedHRESULT(hr uintptr) bool {
	return int32(hr) < 0
}

func hresultError(op string, hr uintptr) error {
	return &HRESULTError{Op: op, Code: uint32(hr)}
}

// d3dTexture is an ID3D11Texture2D.
type d3dTexture struct {
	tex  comObject
	desc d3d11Texture2DDesc
}

func (t *d3dTexture) Release() {
	if t == nil {
		return
	}
	t.tex.release()
	t.tex = 0
}

func textureOf(t Texture) (*d3dTexture, error) {
	switch v := t.(type) {
	case *d3dTexture:
		return v, nil
	case *mirrorTexture:
		return &v.d3dTexture, nil
	default:
		return nil, fmt.Errorf("capture: foreign texture %T", t)
	}
}

// d3dDevice is an ID3D11Device with its immediate context.
type d3dDevice struct {
	dev comObject
	ctx comObject
}

func newD3DDevice() (*d3dDevice, error) {
	if err := procD3D11CreateDevice.Find(); err != nil {
		return nil, fmt.Errorf("d3d11: D3D11CreateDevice unavailable: %w", err)
	}
	var (
		dev, ctx     comObject
		featureLevel uint32
	)
	hr, _, _ := procD3D11CreateDevice.Call(
		0,
		uintptr(d3dDriverTypeHardware),
		0,
		0,
		0,
		0,
		uintptr(d3d11SdkVersion),
		uintptr(unsafe.Pointer(&dev)),
		uintptr(unsafe.Pointer(&featureLevel)),
		uintptr(unsafe.Pointer(&ctx)),
	)
	if failedHRESULT(hr) {
		return nil, hresultError("D3D11CreateDevice", hr)
	}
	return &d3dDevice{dev: dev, ctx: ctx}, nil
}

// textureFromView returns the Texture2D behind a shader resource view.
func (d *d3dDevice) textureFromView(srv comObject) (*d3dTexture, error) {
	var res comObject
	srv.call(vtblGetResource, uintptr(unsafe.Pointer(&res)))
	if res == 0 {
		return nil, fmt.Errorf("ID3D11View::GetResource returned nil")
	}
	defer res.release()

	var tex comObject
	hr := res.call(vtblQueryInterface, uintptr(unsafe.Pointer(&iidID3D11Texture2D)), uintptr(unsafe.Pointer(&tex)))
	if failedHRESULT(hr) {
		return nil, hresultError("ID3D11Resource::QueryInterface(ID3D11Texture2D)", hr)
	}

	t := &d3dTexture{tex: tex}
	tex.call(vtblTexGetDesc, uintptr(unsafe.Pointer(&t.desc)))
	return t, nil
}

func (d *d3dDevice) TextureDesc(tex Texture) (TextureDesc, error) {
	t, err := textureOf(tex)
	if err != nil {
		return TextureDesc{}, err
	}
	return TextureDesc{
		Width:         t.desc.Width,
		Height:        t.desc.Height,
		Format:        surface.Format(t.desc.Format),
		SampleCount:   t.desc.SampleCount,
		Usage:         Usage(t.desc.Usage),
		CPUAccessRead: t.desc.CPUAccessFlags&d3d11CPUAccessRead != 0,
	}, nil
}

func (d *d3dDevice) createTexture(op string, desc d3d11Texture2DDesc) (*d3dTexture, error) {
	var tex comObject
	hr := d.dev.call(vtblCreateTexture2D, uintptr(unsafe.Pointer(&desc)), 0, uintptr(unsafe.Pointer(&tex)))
	if failedHRESULT(hr) {
		return nil, hresultError(op, hr)
	}
	return &d3dTexture{tex: tex, desc: desc}, nil
}

// baseDesc is a single-sample, single-mip texture of desc's size and format.
func (d *d3dDevice) baseDesc(desc TextureDesc) d3d11Texture2DDesc {
	return d3d11Texture2DDesc{
		Width:       desc.Width,
		Height:      desc.Height,
		MipLevels:   1,
		ArraySize:   1,
		Format:      uint32(desc.Format),
		SampleCount: 1,
	}
}

func (d *d3dDevice) CreateStaging(desc TextureDesc) (Texture, error) {
	td := d.baseDesc(desc)
	td.Usage = uint32(UsageStaging)
	td.CPUAccessFlags = d3d11CPUAccessRead
	return d.createTexture("ID3D11Device::CreateTexture2D(staging)", td)
}

func (d *d3dDevice) CreateResolveTarget(desc TextureDesc) (Texture, error) {
	var support uint32
	hr := d.dev.call(vtblCheckFormatSupport, uintptr(desc.Format), uintptr(unsafe.Pointer(&support)))
	if failedHRESULT(hr) {
		return nil, hresultError("ID3D11Device::CheckFormatSupport", hr)
	}
	if support&d3d11FormatSupportMultisampleRes == 0 {
		return nil, fmt.Errorf("d3d11: format %s cannot be multisample-resolved", desc.Format)
	}
	td := d.baseDesc(desc)
	td.Usage = uint32(UsageDefault)
	return d.createTexture("ID3D11Device::CreateTexture2D(resolve)", td)
}

func (d *d3dDevice) ResolveSubresource(dst, src Texture, format surface.Format) error {
	dt, err := textureOf(dst)
	if err != nil {
		return err
	}
	st, err := textureOf(src)
	if err != nil {
		return err
	}
	// Mirror textures have a single mip and array slice.
	d.ctx.call(vtblResolveSubresource, uintptr(dt.tex), 0, uintptr(st.tex), 0, uintptr(format))
	return nil
}

func (d *d3dDevice) CopyResource(dst, src Texture) error {
	dt, err := textureOf(dst)
	if err != nil {
		return err
	}
	st, err := textureOf(src)
	if err != nil {
		return err
	}
	d.ctx.call(vtblCopyResource, uintptr(dt.tex), uintptr(st.tex))
	return nil
}

func (d *d3dDevice) Map(tex Texture) (Mapped, error) {
	t, err := textureOf(tex)
	if err != nil {
		return Mapped{}, err
	}
	var m d3d11MappedSubresource
	hr := d.ctx.call(vtblMap, uintptr(t.tex), 0, d3d11MapRead, 0, uintptr(unsafe.Pointer(&m)))
	if failedHRESULT(hr) {
		return Mapped{}, hresultError("ID3D11DeviceContext::Map", hr)
	}
	if m.pData == nil {
		d.Unmap(tex)
		return Mapped{}, fmt.Errorf("ID3D11DeviceContext::Map returned no data")
	}
	size := m.DepthPitch
	if size == 0 {
		size = m.RowPitch * t.desc.Height
	}
	return Mapped{Data: unsafe.Slice((*byte)(m.pData), size), RowPitch: m.RowPitch}, nil
}

func (d *d3dDevice) Unmap(tex Texture) {
	t, err := textureOf(tex)
	if err != nil {
		return
	}
	d.ctx.call(vtblUnmap, uintptr(t.tex), 0)
}

func (d *d3dDevice) Release() {
	if d == nil {
		return
	}
	d.ctx.release()
	d.dev.release()
	d.ctx, d.dev = 0, 0
}
