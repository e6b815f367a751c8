//go:build !ios && !android && (amd64 || arm64)

package avcodec

import (
	"unsafe"

	"github.com/obinnaokechukwu/vrrec/avutil"
	ffshim "github.com/obinnaokechukwu/vrrec/internal/shim"
)

// AVCodecContext struct field offsets (for FFmpeg 6.x / avcodec 60.x).
// Setters prefer AVOptions or the shim; these are the last resort.
const (
	offsetCtxBitRate    = 56  // int64_t bit_rate
	offsetCtxFlags      = 76  // int flags
	offsetCtxTimeBase   = 100 // AVRational time_base
	offsetCtxWidth      = 116 // int width
	offsetCtxHeight     = 120 // int height
	offsetCtxGopSize    = 132 // int gop_size
	offsetCtxPixFmt     = 136 // enum AVPixelFormat pix_fmt
	offsetCtxMaxBFrames = 160 // int max_b_frames
	offsetCtxFramerate  = 704 // AVRational framerate
)

// CodecFlagGlobalHeader asks the encoder for out-of-band extradata, which
// containers such as MP4 and MKV require.
const CodecFlagGlobalHeader = 1 << 22

// SetCtxWidth sets the width in codec context.
func SetCtxWidth(ctx Context, width int32) {
	if ctx == nil {
		return
	}
	if err := ffshim.CodecCtxSetWidth(ctx, width); err == nil {
		return
	}
	*(*int32)(unsafe.Add(ctx, offsetCtxWidth)) = width
}

// SetCtxHeight sets the height in codec context.
func SetCtxHeight(ctx Context, height int32) {
	if ctx == nil {
		return
	}
	if err := ffshim.CodecCtxSetHeight(ctx, height); err == nil {
		return
	}
	*(*int32)(unsafe.Add(ctx, offsetCtxHeight)) = height
}

// SetCtxPixFmt sets the pixel format in codec context.
func SetCtxPixFmt(ctx Context, pixFmt avutil.PixelFormat) {
	if ctx == nil {
		return
	}
	if err := ffshim.CodecCtxSetPixFmt(ctx, int32(pixFmt)); err == nil {
		return
	}
	*(*int32)(unsafe.Add(ctx, offsetCtxPixFmt)) = int32(pixFmt)
}

// SetCtxTimeBase sets the time base in codec context.
func SetCtxTimeBase(ctx Context, tb avutil.Rational) {
	if ctx == nil {
		return
	}
	if err := ffshim.CodecCtxSetTimeBase(ctx, tb.Num, tb.Den); err == nil {
		return
	}
	*(*int32)(unsafe.Add(ctx, offsetCtxTimeBase)) = tb.Num
	*(*int32)(unsafe.Add(ctx, offsetCtxTimeBase+4)) = tb.Den
}

// GetCtxTimeBase returns the time base from codec context. Encoders may
// adjust it in avcodec_open2, so read it back after opening.
func GetCtxTimeBase(ctx Context) avutil.Rational {
	if ctx == nil {
		return avutil.Rational{}
	}
	num := *(*int32)(unsafe.Add(ctx, offsetCtxTimeBase))
	den := *(*int32)(unsafe.Add(ctx, offsetCtxTimeBase+4))
	return avutil.NewRational(num, den)
}

// SetCtxFramerate sets the framerate in codec context.
func SetCtxFramerate(ctx Context, rate avutil.Rational) {
	if ctx == nil {
		return
	}
	if err := ffshim.CodecCtxSetFramerate(ctx, rate.Num, rate.Den); err == nil {
		return
	}
	*(*int32)(unsafe.Add(ctx, offsetCtxFramerate)) = rate.Num
	*(*int32)(unsafe.Add(ctx, offsetCtxFramerate+4)) = rate.Den
}

// SetCtxGopSize sets the GOP size in codec context.
func SetCtxGopSize(ctx Context, size int32) {
	if ctx == nil {
		return
	}
	if err := avutil.OptSetInt(ctx, "g", int64(size), 0); err == nil {
		return
	}
	*(*int32)(unsafe.Add(ctx, offsetCtxGopSize)) = size
}

// SetCtxMaxBFrames sets the max B-frames in codec context.
func SetCtxMaxBFrames(ctx Context, max int32) {
	if ctx == nil {
		return
	}
	if err := avutil.OptSetInt(ctx, "bf", int64(max), 0); err == nil {
		return
	}
	*(*int32)(unsafe.Add(ctx, offsetCtxMaxBFrames)) = max
}

// SetCtxBitRate sets the bit rate in codec context.
func SetCtxBitRate(ctx Context, bitRate int64) {
	if ctx == nil {
		return
	}
	if err := avutil.OptSetInt(ctx, "b", bitRate, 0); err == nil {
		return
	}
	*(*int64)(unsafe.Add(ctx, offsetCtxBitRate)) = bitRate
}

// GetCtxFlags returns the flags from codec context.
func GetCtxFlags(ctx Context) int32 {
	if ctx == nil {
		return 0
	}
	return *(*int32)(unsafe.Add(ctx, offsetCtxFlags))
}

// SetCtxFlags sets the flags in codec context.
func SetCtxFlags(ctx Context, flags int32) {
	if ctx == nil {
		return
	}
	if err := avutil.OptSetInt(ctx, "flags", int64(flags), 0); err == nil {
		return
	}
	*(*int32)(unsafe.Add(ctx, offsetCtxFlags)) = flags
}

// SetCtxPrivateOption sets an encoder-private option such as x264's
// "preset". Unknown options are reported, not ignored.
func SetCtxPrivateOption(ctx Context, name, value string) error {
	if ctx == nil {
		return nil
	}
	return avutil.OptSet(ctx, name, value, avutil.OptSearchChildren)
}
