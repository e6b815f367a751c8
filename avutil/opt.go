//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"unsafe"

	"github.com/obinnaokechukwu/vrrec/internal/bindings"
)

// OptSearchChildren makes av_opt_set reach the codec's private options
// (x264's "preset" lives on priv_data, not the AVCodecContext itself).
const OptSearchChildren int32 = 1

// OptSet sets a named AVOption from its string form.
func OptSet(obj unsafe.Pointer, name, val string, searchFlags int32) error {
	if avOptSet == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avOptSet(obj, name, val, searchFlags); ret < 0 {
		return NewError(ret, "av_opt_set("+name+")")
	}
	return nil
}

// OptSetInt sets a named integer AVOption.
func OptSetInt(obj unsafe.Pointer, name string, val int64, searchFlags int32) error {
	if avOptSetInt == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avOptSetInt(obj, name, val, searchFlags); ret < 0 {
		return NewError(ret, "av_opt_set_int("+name+")")
	}
	return nil
}
