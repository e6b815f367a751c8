//go:build !windows

package capture

// NewSystemBackend reports ErrNotSupported: mirror capture needs OpenVR
// and Direct3D 11.
func NewSystemBackend() (Backend, error) {
	return nil, ErrNotSupported
}
