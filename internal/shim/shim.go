//go:build !ios && !android && (amd64 || arm64)

// Package shim binds the optional ffshim helper library.
//
// purego cannot receive av_log's va_list, so the shim formats each FFmpeg
// log line and hands the finished string to a Go callback. It also exposes
// AVCodecContext field setters that are immune to struct layout drift
// between FFmpeg releases. Encoding works without it; only FFmpeg log
// routing does not.
package shim

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/vrrec/internal/bindings"
	"github.com/obinnaokechukwu/vrrec/internal/platform"
)

// ErrShimNotLoaded is returned when shim functions are called but the shim is not available.
var ErrShimNotLoaded = errors.New("vrrec: shim library not loaded; FFmpeg log routing unavailable")

// ErrShimNotFound is returned when the shim library cannot be found.
var ErrShimNotFound = errors.New("vrrec: shim library not found")

// EnvShimDir overrides every other shim search location.
const EnvShimDir = "VRREC_SHIM_DIR"

var (
	libShim  uintptr
	loaded   bool
	loadErr  error
	loadMu   sync.Mutex
	shimPath string

	shimLogSetCallback func(cb uintptr)
	shimLogSetLevel    func(level int32)

	shimCodecCtxSetWidth     func(ctx uintptr, width int32)
	shimCodecCtxSetHeight    func(ctx uintptr, height int32)
	shimCodecCtxSetPixFmt    func(ctx uintptr, pixFmt int32)
	shimCodecCtxSetTimeBase  func(ctx uintptr, num, den int32)
	shimCodecCtxSetFramerate func(ctx uintptr, num, den int32)
)

// Load attempts to load the shim. A missing shim is not an error; the
// reason is kept for Status.
func Load() error {
	loadMu.Lock()
	defer loadMu.Unlock()

	if loaded || loadErr != nil {
		return nil
	}

	path, err := findShimLibrary()
	if err != nil {
		loadErr = err
		return nil
	}

	lib, err := bindings.OpenPath(path)
	if err != nil {
		loadErr = fmt.Errorf("failed to load shim at %s: %w", path, err)
		return nil
	}

	libShim = lib
	shimPath = path
	registerBindings()
	loaded = true
	return nil
}

// IsLoaded returns true if the shim library was successfully loaded.
func IsLoaded() bool {
	loadMu.Lock()
	defer loadMu.Unlock()
	return loaded
}

// Path returns the path where the shim was loaded from, or empty string if not loaded.
func Path() string {
	loadMu.Lock()
	defer loadMu.Unlock()
	return shimPath
}

// Status returns a one-line description for diagnostics.
func Status() string {
	loadMu.Lock()
	defer loadMu.Unlock()

	if loaded {
		return fmt.Sprintf("loaded from %s", shimPath)
	}
	if loadErr != nil {
		return fmt.Sprintf("not loaded: %s", loadErr)
	}
	return "not loaded (Load() not called)"
}

// ExpectedLibraryName returns the expected shim library filename for the current platform.
func ExpectedLibraryName() string {
	switch runtime.GOOS {
	case "darwin":
		return "libffshim.dylib"
	case "windows":
		return "ffshim.dll"
	default:
		return "libffshim.so"
	}
}

func registerBindings() {
	if libShim == 0 {
		return
	}

	// Shim builds vary; every symbol is optional.
	registerOptionalLibFunc(&shimLogSetCallback, libShim, "ffshim_log_set_callback")
	registerOptionalLibFunc(&shimLogSetLevel, libShim, "ffshim_log_set_level")

	registerOptionalLibFunc(&shimCodecCtxSetWidth, libShim, "ffshim_codecctx_set_width")
	registerOptionalLibFunc(&shimCodecCtxSetHeight, libShim, "ffshim_codecctx_set_height")
	registerOptionalLibFunc(&shimCodecCtxSetPixFmt, libShim, "ffshim_codecctx_set_pix_fmt")
	registerOptionalLibFunc(&shimCodecCtxSetTimeBase, libShim, "ffshim_codecctx_set_time_base")
	registerOptionalLibFunc(&shimCodecCtxSetFramerate, libShim, "ffshim_codecctx_set_framerate")
}

func registerOptionalLibFunc(fptr any, handle uintptr, name string) {
	defer func() {
		_ = recover() // purego.RegisterLibFunc panics if symbol is missing
	}()
	purego.RegisterLibFunc(fptr, handle, name)
}

// SetLogCallback installs cb as FFmpeg's log callback. cb is a purego
// callback with signature void(void *avcl, int level, const char *msg).
// Passing 0 restores FFmpeg's default logger.
func SetLogCallback(cb uintptr) error {
	if !loaded {
		return fmt.Errorf("%w: set %s to the directory holding %s", ErrShimNotLoaded, EnvShimDir, ExpectedLibraryName())
	}
	if shimLogSetCallback == nil {
		return errors.New("vrrec: ffshim_log_set_callback not available in shim")
	}
	shimLogSetCallback(cb)
	return nil
}

// SetLogLevel sets the FFmpeg log level via the shim.
func SetLogLevel(level int32) error {
	if !loaded {
		return fmt.Errorf("%w: set %s to the directory holding %s", ErrShimNotLoaded, EnvShimDir, ExpectedLibraryName())
	}
	if shimLogSetLevel == nil {
		return errors.New("vrrec: ffshim_log_set_level not available in shim")
	}
	shimLogSetLevel(level)
	return nil
}

func CodecCtxSetWidth(ctx unsafe.Pointer, width int32) error {
	if ctx == nil {
		return nil
	}
	if !loaded || shimCodecCtxSetWidth == nil {
		return ErrShimNotLoaded
	}
	shimCodecCtxSetWidth(uintptr(ctx), width)
	return nil
}

func CodecCtxSetHeight(ctx unsafe.Pointer, height int32) error {
	if ctx == nil {
		return nil
	}
	if !loaded || shimCodecCtxSetHeight == nil {
		return ErrShimNotLoaded
	}
	shimCodecCtxSetHeight(uintptr(ctx), height)
	return nil
}

func CodecCtxSetPixFmt(ctx unsafe.Pointer, pixFmt int32) error {
	if ctx == nil {
		return nil
	}
	if !loaded || shimCodecCtxSetPixFmt == nil {
		return ErrShimNotLoaded
	}
	shimCodecCtxSetPixFmt(uintptr(ctx), pixFmt)
	return nil
}

func CodecCtxSetTimeBase(ctx unsafe.Pointer, num, den int32) error {
	if ctx == nil {
		return nil
	}
	if !loaded || shimCodecCtxSetTimeBase == nil {
		return ErrShimNotLoaded
	}
	shimCodecCtxSetTimeBase(uintptr(ctx), num, den)
	return nil
}

func CodecCtxSetFramerate(ctx unsafe.Pointer, num, den int32) error {
	if ctx == nil {
		return nil
	}
	if !loaded || shimCodecCtxSetFramerate == nil {
		return ErrShimNotLoaded
	}
	shimCodecCtxSetFramerate(uintptr(ctx), num, den)
	return nil
}

// findShimLibrary looks for the shim in VRREC_SHIM_DIR, then in the
// FFmpeg library search paths.
func findShimLibrary() (string, error) {
	var names []string
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		names = []string{"libffshim.so", "libffshim.so.1"}
	case "darwin":
		names = []string{"libffshim.dylib", "libffshim.1.dylib"}
	case "windows":
		names = []string{"ffshim.dll", "libffshim.dll"}
	default:
		return "", fmt.Errorf("%w: unsupported platform %s/%s", ErrShimNotFound, runtime.GOOS, runtime.GOARCH)
	}

	if dir := os.Getenv(EnvShimDir); dir != "" {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
		return "", fmt.Errorf("%w: %s=%s does not contain %s", ErrShimNotFound, EnvShimDir, dir, names[0])
	}

	searched := 0
	for _, dir := range platform.SearchPaths() {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
			searched++
		}
	}
	return "", fmt.Errorf("%w: looked for %s in %d locations; set %s",
		ErrShimNotFound, names[0], searched, EnvShimDir)
}
