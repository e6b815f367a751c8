//go:build !ios && !android && (amd64 || arm64)

package vrrec

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kataras/golog"

	"github.com/obinnaokechukwu/vrrec/avcodec"
	"github.com/obinnaokechukwu/vrrec/avformat"
	"github.com/obinnaokechukwu/vrrec/avutil"
	"github.com/obinnaokechukwu/vrrec/internal/bindings"
	"github.com/obinnaokechukwu/vrrec/internal/handles"
	"github.com/obinnaokechukwu/vrrec/surface"
)

const (
	// DefaultContainer is used when the output path has no recognised extension.
	DefaultContainer = "avi"

	// DefaultPreset is applied to H.264 encoders.
	DefaultPreset = "slow"

	// DefaultGOPSize is the keyframe interval in frames.
	DefaultGOPSize = 10

	fallbackCodec = "rawvideo"
)

// WriterConfig describes one recording.
type WriterConfig struct {
	// Path is the output file.
	Path string

	// Codec is the FFmpeg encoder name, e.g. "libx264" or "mpeg4".
	// An unknown name falls back to rawvideo.
	Codec string

	// BitRate is the target bit rate in bits/second. Zero keeps the codec default.
	BitRate int64

	// Width and Height are the encoded dimensions. Odd values are rounded up.
	Width  int
	Height int

	// FrameRate is frames per second; the codec time base is 1/FrameRate.
	FrameRate int

	// SourceFormat is the surface format of the buffers passed to Submit.
	SourceFormat surface.Format

	// SourcePixelFormat, when set, names the FFmpeg pixel format of the
	// submitted buffers and takes precedence over SourceFormat.
	SourcePixelFormat string

	// SourceWidth and SourceHeight are the submitted picture size.
	// Zero means the same as Width and Height.
	SourceWidth  int
	SourceHeight int

	// Container overrides the muxer chosen from the path extension.
	Container string

	// Preset is the H.264 speed/quality preset (default: "slow").
	Preset string

	// GOPSize is the keyframe interval (default: 10).
	GOPSize int
}

// VideoWriter encodes captured surfaces into a video file.
//
// At most one file is open at a time. Initialize on an open writer closes
// the previous session without writing its trailer. All methods are safe
// for concurrent use.
type VideoWriter struct {
	mu     sync.Mutex
	logger *golog.Logger

	formatCtx avformat.FormatContext
	codecCtx  avcodec.Context
	stream    avformat.Stream
	packet    avcodec.Packet
	frame     avutil.Frame
	scaler    *Scaler

	open          bool
	codecName     string
	path          string
	width         int
	height        int
	srcFormat     PixelFormat
	codecTimeBase Rational

	pts     int64
	packets int64
}

// NewVideoWriter returns a writer in the uninitialized state. A nil
// logger uses golog.Default.
func NewVideoWriter(logger *golog.Logger) *VideoWriter {
	if logger == nil {
		logger = golog.Default
	}
	return &VideoWriter{logger: logger, srcFormat: PixelFormatNone}
}

// Initialize opens a new recording. Any open session is released first.
// On failure the writer is left uninitialized.
func (w *VideoWriter) Initialize(cfg WriterConfig) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.release()

	if err := w.initialize(cfg); err != nil {
		w.logger.Errorf("initialize failed path=%s codec=%s code=%d: %v", cfg.Path, cfg.Codec, ErrorCode(err), err)
		w.release()
		return err
	}

	w.logger.Infof("recording opened path=%s codec=%s size=%dx%d fps=%d scaler=%t",
		w.path, w.codecName, w.width, w.height, cfg.FrameRate, w.scaler != nil)
	return nil
}

func (w *VideoWriter) initialize(cfg WriterConfig) error {
	if err := bindings.Load(); err != nil {
		return err
	}
	if cfg.Path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidConfig)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidConfig, cfg.Width, cfg.Height)
	}
	if cfg.FrameRate <= 0 {
		return fmt.Errorf("%w: frame rate %d", ErrInvalidConfig, cfg.FrameRate)
	}
	if cfg.SourceWidth <= 0 || cfg.SourceHeight <= 0 {
		cfg.SourceWidth, cfg.SourceHeight = cfg.Width, cfg.Height
	}
	if cfg.GOPSize <= 0 {
		cfg.GOPSize = DefaultGOPSize
	}

	srcFormat, err := resolveSourceFormat(cfg)
	if err != nil {
		return err
	}

	codec := avcodec.FindEncoderByName(cfg.Codec)
	if codec == nil {
		w.logger.Warnf("encoder not found codec=%s, falling back to %s", cfg.Codec, fallbackCodec)
		codec = avcodec.FindEncoder(avcodec.CodecIDRAWVIDEO)
		if codec == nil {
			return fmt.Errorf("%w: %s", ErrCodecNotFound, cfg.Codec)
		}
	}

	container := cfg.Container
	if container == "" {
		container = guessContainer(cfg.Path)
	}

	if err := avformat.AllocOutputContext2(&w.formatCtx, nil, container, cfg.Path); err != nil {
		return fmt.Errorf("vrrec: output context for %s: %w", container, err)
	}

	w.stream = avformat.NewStream(w.formatCtx, codec)
	if w.stream == nil {
		return errors.New("vrrec: failed to create stream")
	}

	w.codecCtx = avcodec.AllocContext3(codec)
	if w.codecCtx == nil {
		return fmt.Errorf("vrrec: codec context: %w", ErrOutOfMemory)
	}

	w.width = roundEven(cfg.Width)
	w.height = roundEven(cfg.Height)
	w.codecTimeBase = avutil.NewRational(1, int32(cfg.FrameRate))

	avcodec.SetCtxWidth(w.codecCtx, int32(w.width))
	avcodec.SetCtxHeight(w.codecCtx, int32(w.height))
	avcodec.SetCtxPixFmt(w.codecCtx, PixelFormatYUV420P)
	avcodec.SetCtxTimeBase(w.codecCtx, w.codecTimeBase)
	avcodec.SetCtxFramerate(w.codecCtx, avutil.NewRational(int32(cfg.FrameRate), 1))
	avcodec.SetCtxGopSize(w.codecCtx, int32(cfg.GOPSize))
	avcodec.SetCtxMaxBFrames(w.codecCtx, 0)
	if cfg.BitRate > 0 {
		avcodec.SetCtxBitRate(w.codecCtx, cfg.BitRate)
	}

	if avcodec.GetCodecID(codec) == avcodec.CodecIDH264 {
		preset := cfg.Preset
		if preset == "" {
			preset = DefaultPreset
		}
		if err := avcodec.SetCtxPrivateOption(w.codecCtx, "preset", preset); err != nil {
			w.logger.Warnf("preset ignored codec=%s preset=%s: %v", avcodec.GetCodecName(codec), preset, err)
		}
	}

	if avformat.NeedsGlobalHeader(w.formatCtx) {
		flags := avcodec.GetCtxFlags(w.codecCtx)
		avcodec.SetCtxFlags(w.codecCtx, flags|avcodec.CodecFlagGlobalHeader)
	}

	if err := avcodec.Open2(w.codecCtx, codec, nil); err != nil {
		return fmt.Errorf("vrrec: open encoder %s: %w", avcodec.GetCodecName(codec), err)
	}

	if err := avcodec.ParametersFromContext(avformat.GetStreamCodecPar(w.stream), w.codecCtx); err != nil {
		return err
	}
	avformat.SetStreamTimeBase(w.stream, w.codecTimeBase)

	if !avformat.HasNoFile(w.formatCtx) {
		if err := avformat.IOOpen(avformat.IOContextPtr(w.formatCtx), cfg.Path, avformat.IOFlagWrite); err != nil {
			return fmt.Errorf("vrrec: open %s: %w", cfg.Path, err)
		}
	}

	if err := avformat.WriteHeader(w.formatCtx, nil); err != nil {
		return fmt.Errorf("vrrec: write header: %w", err)
	}

	w.packet = avcodec.PacketAlloc()
	if w.packet == nil {
		return fmt.Errorf("vrrec: packet: %w", ErrOutOfMemory)
	}

	w.frame = allocVideoFrame(w.width, w.height, PixelFormatYUV420P)
	if w.frame == nil {
		return fmt.Errorf("vrrec: encode frame: %w", ErrOutOfMemory)
	}

	if srcFormat != PixelFormatYUV420P || cfg.SourceWidth != w.width || cfg.SourceHeight != w.height {
		w.scaler, err = NewScaler(ScalerConfig{
			SrcWidth:  cfg.SourceWidth,
			SrcHeight: cfg.SourceHeight,
			SrcFormat: srcFormat,
			DstWidth:  w.width,
			DstHeight: w.height,
			DstFormat: PixelFormatYUV420P,
			Flags:     ScaleBicubic,
		})
		if err != nil {
			return err
		}
	}

	w.codecName = avcodec.GetCodecName(codec)
	w.path = cfg.Path
	w.srcFormat = srcFormat
	w.pts = 0
	w.packets = 0
	w.open = true

	handles.Bind(uintptr(w.codecCtx), w)
	handles.Bind(uintptr(w.formatCtx), w)
	return nil
}

// Submit encodes one captured buffer of rowCount rows, rowStride bytes each.
// A failed packet write is reported as ErrPacketWrite; the session stays open.
// Every failure is logged once here; callers need not log it again.
func (w *VideoWriter) Submit(buf []byte, rowCount, rowStride int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.submit(buf, rowCount, rowStride); err != nil {
		w.logger.Errorf("submit failed pts=%d code=%d: %v", w.pts, ErrorCode(err), err)
		return err
	}
	return nil
}

func (w *VideoWriter) submit(buf []byte, rowCount, rowStride int) error {
	if !w.open {
		return ErrNotOpen
	}
	if rowCount <= 0 || rowStride <= 0 || len(buf) == 0 {
		return fmt.Errorf("%w: %d bytes for %d rows of %d", ErrShortBuffer, len(buf), rowCount, rowStride)
	}

	if err := avutil.FrameMakeWritable(w.frame); err != nil {
		return fmt.Errorf("vrrec: frame not writable: %w", err)
	}

	if w.scaler != nil {
		if err := w.scaler.Load(buf, rowCount, rowStride); err != nil {
			return err
		}
		if err := w.scaler.Scale(w.frame); err != nil {
			return fmt.Errorf("vrrec: scale: %w", err)
		}
	} else {
		planes := sourcePlanes(w.srcFormat, w.height, rowCount, rowStride)
		if err := copyPlanes(w.frame, w.height, buf, planes); err != nil {
			return err
		}
	}

	avutil.SetFramePTS(w.frame, w.pts)

	err := avcodec.SendFrame(w.codecCtx, w.frame)
	if avutil.IsAgain(err) {
		// The encoder holds unread packets; take them and offer the frame once more.
		if err := w.drain(); err != nil {
			return err
		}
		err = avcodec.SendFrame(w.codecCtx, w.frame)
	}
	if err != nil {
		return fmt.Errorf("vrrec: send frame: %w", err)
	}
	w.pts++

	return w.drain()
}

// drain writes every packet the encoder has ready. Callers log its errors.
func (w *VideoWriter) drain() error {
	streamIndex := avformat.GetStreamIndex(w.stream)
	for {
		avcodec.PacketUnref(w.packet)

		err := avcodec.ReceivePacket(w.codecCtx, w.packet)
		if err != nil {
			if avutil.IsAgain(err) || avutil.IsEOF(err) {
				return nil
			}
			return fmt.Errorf("vrrec: receive packet: %w", err)
		}

		avcodec.SetPacketStreamIndex(w.packet, streamIndex)
		avcodec.RescalePacketTS(w.packet, w.codecTimeBase, avformat.GetStreamTimeBase(w.stream))

		if err := avformat.InterleavedWriteFrame(w.formatCtx, w.packet); err != nil {
			return fmt.Errorf("%w: %w", ErrPacketWrite, err)
		}
		w.packets++
	}
}

// CloseFile flushes the encoder, writes the trailer and releases the
// session. It is a no-op on a writer that is not open.
func (w *VideoWriter) CloseFile() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.open {
		return nil
	}

	var firstErr error
	err := avcodec.SendFrame(w.codecCtx, nil)
	if avutil.IsAgain(err) {
		if err = w.drain(); err == nil {
			err = avcodec.SendFrame(w.codecCtx, nil)
		}
	}
	if err != nil && !avutil.IsEOF(err) {
		firstErr = err
	}
	if err := w.drain(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := avformat.WriteTrailer(w.formatCtx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("vrrec: write trailer: %w", err)
	}

	if firstErr != nil {
		w.logger.Errorf("close failed path=%s code=%d: %v", w.path, ErrorCode(firstErr), firstErr)
	} else {
		w.logger.Infof("recording closed path=%s frames=%d packets=%d", w.path, w.pts, w.packets)
	}

	w.release()
	return firstErr
}

// Release frees every resource without finishing the file.
// Safe to call repeatedly.
func (w *VideoWriter) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.release()
}

func (w *VideoWriter) release() {
	if w.codecCtx != nil {
		handles.Unbind(uintptr(w.codecCtx))
	}
	if w.formatCtx != nil {
		handles.Unbind(uintptr(w.formatCtx))
	}

	if w.scaler != nil {
		w.scaler.Close()
		w.scaler = nil
	}
	avutil.FrameFree(&w.frame)
	avcodec.PacketFree(&w.packet)
	avcodec.FreeContext(&w.codecCtx)

	if w.formatCtx != nil {
		if !avformat.HasNoFile(w.formatCtx) {
			avformat.IOCloseP(avformat.IOContextPtr(w.formatCtx))
		}
		avformat.FreeContext(w.formatCtx)
		w.formatCtx = nil
	}

	w.stream = nil
	w.open = false
}

// IsOpen reports whether a recording is in progress.
func (w *VideoWriter) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

// FramesSubmitted returns the number of frames submitted in this session.
func (w *VideoWriter) FramesSubmitted() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pts
}

// PacketsWritten returns the number of packets muxed in this session.
func (w *VideoWriter) PacketsWritten() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.packets
}

// Codec returns the name of the encoder actually in use.
func (w *VideoWriter) Codec() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.codecName
}

// Width returns the encoded width.
func (w *VideoWriter) Width() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width
}

// Height returns the encoded height.
func (w *VideoWriter) Height() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.height
}

// PixelFormat returns the pixel format of submitted buffers.
func (w *VideoWriter) PixelFormat() PixelFormat {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.srcFormat
}

// HasScaler reports whether submissions go through a format or size conversion.
func (w *VideoWriter) HasScaler() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scaler != nil
}

func (w *VideoWriter) log() *golog.Logger {
	return w.logger
}

func resolveSourceFormat(cfg WriterConfig) (PixelFormat, error) {
	if cfg.SourcePixelFormat != "" {
		return pixelFormatByName(cfg.SourcePixelFormat)
	}
	return NativePixelFormat(cfg.SourceFormat)
}

func roundEven(v int) int {
	return (v + 1) &^ 1
}

// guessContainer maps the output extension to an FFmpeg muxer name, asking
// FFmpeg for extensions outside the common set.
func guessContainer(path string) string {
	ext := ""
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			ext = strings.ToLower(path[i+1:])
			break
		}
		if path[i] == '/' || path[i] == '\\' {
			break
		}
	}

	switch ext {
	case "mp4", "m4v":
		return "mp4"
	case "mkv":
		return "matroska"
	case "webm":
		return "webm"
	case "avi":
		return "avi"
	case "mov":
		return "mov"
	case "flv":
		return "flv"
	case "ts", "m2ts":
		return "mpegts"
	case "mpg", "mpeg":
		return "mpeg"
	case "nut":
		return "nut"
	}

	if ext != "" {
		if f := avformat.GuessFormat("", path); f != nil {
			return avformat.GetOutputFormatName(f)
		}
	}
	return DefaultContainer
}
