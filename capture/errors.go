package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrCompositorUnavailable is returned when the VR runtime session cannot start.
	ErrCompositorUnavailable = errors.New("capture: compositor unavailable")

	// ErrDeviceCreationFailed is returned when no GPU device can be created.
	ErrDeviceCreationFailed = errors.New("capture: device creation failed")

	// ErrMirrorSurfaceUnavailable is returned when the compositor has no mirror texture.
	ErrMirrorSurfaceUnavailable = errors.New("capture: mirror surface unavailable")

	// ErrUnsupportedSurfaceFormat is returned when the mirror texture's layout cannot be computed.
	ErrUnsupportedSurfaceFormat = errors.New("capture: unsupported surface format")

	// ErrMapFailed is returned when a staging texture cannot be mapped.
	// The tick is lost; the next Capture retries.
	ErrMapFailed = errors.New("capture: map failed")

	// ErrStagingFailed is returned when the mirror texture cannot be
	// resolved or copied into a readable texture.
	ErrStagingFailed = errors.New("capture: staging copy failed")

	// ErrNotInitialized is returned by Capture before Initialize succeeds.
	ErrNotInitialized = errors.New("capture: frame source not initialized")

	// ErrNotSupported is returned by NewSystemBackend on platforms without a backend.
	ErrNotSupported = errors.New("capture: no capture backend on this platform")
)

// HRESULTError carries a failed COM call.
type HRESULTError struct {
	Op   string
	Code uint32
}

func (e *HRESULTError) Error() string {
	return fmt.Sprintf("%s failed (HRESULT=0x%08X)", e.Op, e.Code)
}

// VRInitError carries an OpenVR EVRInitError.
type VRInitError struct {
	Op      string
	Code    int32
	Message string
}

func (e *VRInitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s failed: %s (EVRInitError=%d)", e.Op, e.Message, e.Code)
	}
	return fmt.Sprintf("%s failed (EVRInitError=%d)", e.Op, e.Code)
}

// ErrorCode extracts the numeric code of a backend error for logging.
func ErrorCode(err error) int64 {
	var hr *HRESULTError
	if errors.As(err, &hr) {
		return int64(hr.Code)
	}
	var vr *VRInitError
	if errors.As(err, &vr) {
		return int64(vr.Code)
	}
	return 0
}
