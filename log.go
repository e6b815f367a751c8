//go:build !ios && !android && (amd64 || arm64)

package vrrec

import (
	"strings"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/kataras/golog"

	"github.com/obinnaokechukwu/vrrec/avutil"
	"github.com/obinnaokechukwu/vrrec/internal/handles"
	"github.com/obinnaokechukwu/vrrec/internal/shim"
)

// LogLevel represents FFmpeg log levels.
type LogLevel int32

// Log level constants matching FFmpeg's AV_LOG_* values.
const (
	LogQuiet   LogLevel = -8
	LogPanic   LogLevel = 0
	LogFatal   LogLevel = 8
	LogError   LogLevel = 16
	LogWarning LogLevel = 24
	LogInfo    LogLevel = 32
	LogVerbose LogLevel = 40
	LogDebug   LogLevel = 48
	LogTrace   LogLevel = 56
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch {
	case l <= LogQuiet:
		return "quiet"
	case l <= LogPanic:
		return "panic"
	case l <= LogFatal:
		return "fatal"
	case l <= LogError:
		return "error"
	case l <= LogWarning:
		return "warning"
	case l <= LogInfo:
		return "info"
	case l <= LogVerbose:
		return "verbose"
	case l <= LogDebug:
		return "debug"
	default:
		return "trace"
	}
}

// LogLevelFor maps a golog level to the FFmpeg level that emits the same
// amount of detail.
func LogLevelFor(level golog.Level) LogLevel {
	switch level {
	case golog.DisableLevel:
		return LogQuiet
	case golog.FatalLevel:
		return LogFatal
	case golog.ErrorLevel:
		return LogError
	case golog.WarnLevel:
		return LogWarning
	case golog.InfoLevel:
		return LogInfo
	default:
		return LogDebug
	}
}

var (
	ffLogMu     sync.Mutex
	ffLogger    *golog.Logger
	ffLogHandle uintptr
)

// SetFFmpegLogger forwards FFmpeg's own log lines to logger. Lines emitted
// by a VideoWriter's contexts go to that writer's logger instead. Pass nil
// to restore FFmpeg's default stderr output.
//
// This requires the ffshim library; without it shim.ErrShimNotLoaded is
// returned and FFmpeg keeps logging to stderr.
func SetFFmpegLogger(logger *golog.Logger) error {
	if err := shim.Load(); err != nil {
		return err
	}

	ffLogMu.Lock()
	defer ffLogMu.Unlock()

	if logger == nil {
		ffLogger = nil
		return shim.SetLogCallback(0)
	}
	ffLogger = logger

	if ffLogHandle == 0 {
		ffLogHandle = purego.NewCallback(ffmpegLogTrampoline)
	}
	if err := shim.SetLogCallback(ffLogHandle); err != nil {
		return err
	}
	return shim.SetLogLevel(int32(LogLevelFor(logger.Level)))
}

// ffmpegLogTrampoline is called by the shim.
// Signature: void (*)(void *avcl, int level, const char *msg)
func ffmpegLogTrampoline(_ purego.CDecl, avcl unsafe.Pointer, level int32, msg *byte) {
	logger := loggerFor(uintptr(avcl))
	if logger == nil {
		return
	}
	line := strings.TrimRight(avutil.GoString(msg), "\r\n")
	if line == "" {
		return
	}
	emit(logger, LogLevel(level), line)
}

func loggerFor(avcl uintptr) *golog.Logger {
	if w, ok := handles.Lookup(avcl).(*VideoWriter); ok {
		return w.log()
	}
	ffLogMu.Lock()
	defer ffLogMu.Unlock()
	return ffLogger
}

func emit(logger *golog.Logger, level LogLevel, line string) {
	switch {
	case level <= LogError:
		logger.Errorf("ffmpeg: %s", line)
	case level <= LogWarning:
		logger.Warnf("ffmpeg: %s", line)
	case level <= LogInfo:
		logger.Infof("ffmpeg: %s", line)
	default:
		logger.Debugf("ffmpeg: %s", line)
	}
}
