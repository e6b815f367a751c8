//go:build windows

package capture

import (
	"errors"
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	vrApplicationBackground = 3
	vrInitErrorNone         = 0

	compositorFnTable = "FnTable:IVRCompositor_027"
)

var (
	modOpenVR                   = windows.NewLazyDLL("openvr_api.dll")
	procVRInitInternal2         = modOpenVR.NewProc("VR_InitInternal2")
	procVRShutdownInternal      = modOpenVR.NewProc("VR_ShutdownInternal")
	procVRGetGenericInterface   = modOpenVR.NewProc("VR_GetGenericInterface")
	procVRGetInitErrorAsEnglish = modOpenVR.NewProc("VR_GetVRInitErrorAsEnglishDescription")
	procVRIsRuntimeInstalled    = modOpenVR.NewProc("VR_IsRuntimeInstalled")
)

// vrCompositorFnTable is the head of VR_IVRCompositor_FnTable up to the
// D3D11 mirror entries.
type vrCompositorFnTable struct {
	SetTrackingSpace                 uintptr
	GetTrackingSpace                 uintptr
	WaitGetPoses                     uintptr
	GetLastPoses                     uintptr
	GetLastPoseForTrackedDeviceIndex uintptr
	Submit                           uintptr
	ClearLastSubmittedFrame          uintptr
	PostPresentHandoff               uintptr
	GetFrameTiming                   uintptr
	GetFrameTimings                  uintptr
	GetFrameTimeRemaining            uintptr
	GetCumulativeStats               uintptr
	FadeToColor                      uintptr
	GetCurrentFadeColor              uintptr
	FadeGrid                         uintptr
	GetCurrentGridAlpha              uintptr
	SetSkyboxOverride                uintptr
	ClearSkyboxOverride              uintptr
	CompositorBringToFront           uintptr
	CompositorGoToBack               uintptr
	CompositorQuit                   uintptr
	IsFullscreen                     uintptr
	GetCurrentSceneFocusProcess      uintptr
	GetLastFrameRenderer             uintptr
	CanRenderScene                   uintptr
	ShowMirrorWindow                 uintptr
	HideMirrorWindow                 uintptr
	IsMirrorWindowVisible            uintptr
	CompositorDumpImages             uintptr
	ShouldAppRenderWithLowResources  uintptr
	ForceInterleavedReprojectionOn   uintptr
	ForceReconnectProcess            uintptr
	SuspendRendering                 uintptr
	GetMirrorTextureD3D11            uintptr
	ReleaseMirrorTextureD3D11        uintptr
}

// mirrorTexture is the compositor's mirror: the shader resource view it
// hands out plus the Texture2D behind it.
type mirrorTexture struct {
	d3dTexture
	srv comObject
}

// openVRBackend talks to SteamVR through openvr_api.dll and captures
// through Direct3D 11.
type openVRBackend struct {
	mu         sync.Mutex
	started    bool
	compositor *vrCompositorFnTable
}

// NewSystemBackend returns the OpenVR + Direct3D 11 backend.
func NewSystemBackend() (Backend, error) {
	if err := modOpenVR.Load(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompositorUnavailable, err)
	}
	return &openVRBackend{}, nil
}

func vrInitError(op string, code int32) error {
	msg := ""
	if procVRGetInitErrorAsEnglish.Find() == nil {
		p, _, _ := procVRGetInitErrorAsEnglish.Call(uintptr(code))
		msg = windows.BytePtrToString((*byte)(unsafe.Pointer(p)))
	}
	return &VRInitError{Op: op, Code: code, Message: msg}
}

func (b *openVRBackend) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return nil
	}
	if procVRIsRuntimeInstalled.Find() == nil {
		if ok, _, _ := procVRIsRuntimeInstalled.Call(); ok&0xff == 0 {
			return errors.New("openvr: runtime not installed")
		}
	}

	var code int32
	procVRInitInternal2.Call(uintptr(unsafe.Pointer(&code)), vrApplicationBackground, 0)
	if code != vrInitErrorNone {
		return vrInitError("VR_InitInternal2", code)
	}
	b.started = true

	name, err := windows.BytePtrFromString(compositorFnTable)
	if err != nil {
		b.shutdown()
		return err
	}
	table, _, _ := procVRGetGenericInterface.Call(uintptr(unsafe.Pointer(name)), uintptr(unsafe.Pointer(&code)))
	if code != vrInitErrorNone || table == 0 {
		b.shutdown()
		return vrInitError("VR_GetGenericInterface("+compositorFnTable+")", code)
	}
	b.compositor = (*vrCompositorFnTable)(unsafe.Pointer(table))
	return nil
}

func (b *openVRBackend) NewDevice() (Device, error) {
	return newD3DDevice()
}

func (b *openVRBackend) MirrorTexture(dev Device, eye Eye) (Texture, error) {
	b.mu.Lock()
	compositor := b.compositor
	b.mu.Unlock()
	if compositor == nil {
		return nil, errors.New("openvr: compositor not started")
	}

	d, ok := dev.(*d3dDevice)
	if !ok {
		return nil, fmt.Errorf("openvr: device %T is not Direct3D 11", dev)
	}

	var srv comObject
	r, _, _ := syscall.SyscallN(compositor.GetMirrorTextureD3D11,
		uintptr(eye), uintptr(d.dev), uintptr(unsafe.Pointer(&srv)))
	if code := int32(r); code != 0 || srv == 0 {
		return nil, fmt.Errorf("IVRCompositor::GetMirrorTextureD3D11 failed (EVRCompositorError=%d)", code)
	}

	tex, err := d.textureFromView(srv)
	if err != nil {
		syscall.SyscallN(compositor.ReleaseMirrorTextureD3D11, uintptr(srv))
		return nil, err
	}
	return &mirrorTexture{d3dTexture: *tex, srv: srv}, nil
}

func (b *openVRBackend) ReleaseMirrorTexture(tex Texture) {
	m, ok := tex.(*mirrorTexture)
	if !ok || m == nil {
		return
	}
	m.d3dTexture.Release()

	b.mu.Lock()
	compositor := b.compositor
	b.mu.Unlock()
	if m.srv != 0 && compositor != nil {
		syscall.SyscallN(compositor.ReleaseMirrorTextureD3D11, uintptr(m.srv))
	}
	m.srv = 0
}

func (b *openVRBackend) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdown()
}

func (b *openVRBackend) shutdown() {
	if !b.started {
		return
	}
	procVRShutdownInternal.Call()
	b.started = false
	b.compositor = nil
}
