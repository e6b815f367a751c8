//go:build !ios && !android && (amd64 || arm64)

// Package bindings loads the FFmpeg shared libraries the recorder encodes
// with. Symbol registration happens in the avutil, avcodec, avformat and
// swscale packages once Load has succeeded.
package bindings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/vrrec/internal/platform"
)

// ErrNotLoaded is returned when FFmpeg functions are called before Load().
var ErrNotLoaded = errors.New("vrrec: FFmpeg libraries not loaded; call vrrec.Init() first")

// ErrLibraryNotFound is returned when a required FFmpeg library cannot be found.
var ErrLibraryNotFound = errors.New("vrrec: FFmpeg library not found")

var (
	libAVUtil   uintptr
	libAVCodec  uintptr
	libAVFormat uintptr
	libSWScale  uintptr

	loaded   bool
	loadOnce sync.Once
	loadErr  error

	avutilVersion   func() uint32
	avcodecVersion  func() uint32
	avformatVersion func() uint32
	swscaleVersion  func() uint32
)

// Library major versions probed, newest first.
var (
	avutilVersions   = []int{60, 59, 58, 57, 56}
	avcodecVersions  = []int{62, 61, 60, 59, 58}
	avformatVersions = []int{62, 61, 60, 59, 58}
	swscaleVersions  = []int{9, 8, 7, 6, 5}
)

// IsLoaded reports whether Load succeeded.
func IsLoaded() bool {
	return loaded
}

// Load opens the FFmpeg libraries once. Later calls return the first result.
func Load() error {
	loadOnce.Do(func() {
		loadErr = doLoad()
		loaded = loadErr == nil
	})
	return loadErr
}

func doLoad() error {
	var err error

	// Dependency order matters: avcodec and avformat resolve symbols
	// from avutil at load time.
	if libAVUtil, err = loadLibrary("avutil", avutilVersions); err != nil {
		return fmt.Errorf("loading libavutil: %w", err)
	}
	if libAVCodec, err = loadLibrary("avcodec", avcodecVersions); err != nil {
		return fmt.Errorf("loading libavcodec: %w", err)
	}
	if libAVFormat, err = loadLibrary("avformat", avformatVersions); err != nil {
		return fmt.Errorf("loading libavformat: %w", err)
	}
	// swscale is only needed when the mirror surface and the encoder
	// disagree on format or size.
	libSWScale, _ = loadLibrary("swscale", swscaleVersions)

	purego.RegisterLibFunc(&avutilVersion, libAVUtil, "avutil_version")
	purego.RegisterLibFunc(&avcodecVersion, libAVCodec, "avcodec_version")
	purego.RegisterLibFunc(&avformatVersion, libAVFormat, "avformat_version")
	if libSWScale != 0 {
		purego.RegisterLibFunc(&swscaleVersion, libSWScale, "swscale_version")
	}
	return nil
}

// loadLibrary tries versioned then unversioned names in every search
// path, then leaves resolution to the system loader.
func loadLibrary(name string, versions []int) (uintptr, error) {
	candidates := make([]string, 0, len(versions)+1)
	for _, ver := range versions {
		candidates = append(candidates, platform.FormatLibraryName(name, ver))
	}
	candidates = append(candidates, platform.FormatLibraryName(name, 0))

	for _, dir := range platform.SearchPaths() {
		for _, libName := range candidates {
			if lib, err := openLibrary(filepath.Join(dir, libName)); err == nil {
				return lib, nil
			}
		}
	}
	for _, libName := range candidates {
		if lib, err := openLibrary(libName); err == nil {
			return lib, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrLibraryNotFound, name)
}

// FindLibrary returns the first on-disk path that would satisfy name.
// The CLI prints it with -list-encoders to help diagnose mismatched installs.
func FindLibrary(name string) (string, error) {
	var versions []int
	switch name {
	case "avutil":
		versions = avutilVersions
	case "avcodec":
		versions = avcodecVersions
	case "avformat":
		versions = avformatVersions
	case "swscale":
		versions = swscaleVersions
	}
	for _, dir := range platform.SearchPaths() {
		for _, ver := range append(versions, 0) {
			path := filepath.Join(dir, platform.FormatLibraryName(name, ver))
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrLibraryNotFound, name)
}

// LoadLibrary opens an auxiliary library with the same search rules.
func LoadLibrary(name string, versions []int) (uintptr, error) {
	return loadLibrary(name, versions)
}

// AVUtilVersion returns the packed avutil version, or 0 when not loaded.
func AVUtilVersion() uint32 {
	if !loaded || avutilVersion == nil {
		return 0
	}
	return avutilVersion()
}

// AVCodecVersion returns the packed avcodec version, or 0 when not loaded.
func AVCodecVersion() uint32 {
	if !loaded || avcodecVersion == nil {
		return 0
	}
	return avcodecVersion()
}

// AVFormatVersion returns the packed avformat version, or 0 when not loaded.
func AVFormatVersion() uint32 {
	if !loaded || avformatVersion == nil {
		return 0
	}
	return avformatVersion()
}

// SWScaleVersion returns the packed swscale version, or 0 when unavailable.
func SWScaleVersion() uint32 {
	if !loaded || swscaleVersion == nil {
		return 0
	}
	return swscaleVersion()
}

// VersionString formats a packed FFmpeg library version as major.minor.micro.
func VersionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>16, (v>>8)&0xff, v&0xff)
}

func LibAVUtil() uintptr   { return libAVUtil }
func LibAVCodec() uintptr  { return libAVCodec }
func LibAVFormat() uintptr { return libAVFormat }
func LibSWScale() uintptr  { return libSWScale }

// HasSWScale reports whether libswscale was found.
func HasSWScale() bool {
	return libSWScale != 0
}

// OpenPath opens a library at an exact path.
func OpenPath(path string) (uintptr, error) {
	return openLibrary(path)
}
