//go:build !ios && !android && (amd64 || arm64)

// Package platform describes how native libraries are named and found on the
// host operating system.
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"unsafe"
)

// Is64Bit reports whether pointers are 64 bits wide. purego requires it.
const Is64Bit = unsafe.Sizeof(uintptr(0)) == 8

// IsWindows reports whether the Direct3D/OpenVR capture backend can exist.
const IsWindows = runtime.GOOS == "windows"

// LibraryExtension is the shared library suffix of the host.
var LibraryExtension string

// LibraryPrefix is the shared library prefix of the host.
var LibraryPrefix string

func init() {
	switch runtime.GOOS {
	case "darwin":
		LibraryExtension = ".dylib"
		LibraryPrefix = "lib"
	case "windows":
		LibraryExtension = ".dll"
		LibraryPrefix = ""
	default:
		LibraryExtension = ".so"
		LibraryPrefix = "lib"
	}
}

// FormatLibraryName returns the file name of a versioned shared library.
// A zero version yields the unversioned name.
//
//   - Linux:   FormatLibraryName("avcodec", 60) -> "libavcodec.so.60"
//   - macOS:   FormatLibraryName("avcodec", 60) -> "libavcodec.60.dylib"
//   - Windows: FormatLibraryName("avcodec", 60) -> "avcodec-60.dll"
func FormatLibraryName(name string, version int) string {
	switch runtime.GOOS {
	case "darwin":
		if version > 0 {
			return fmt.Sprintf("%s%s.%d%s", LibraryPrefix, name, version, LibraryExtension)
		}
	case "windows":
		if version > 0 {
			return fmt.Sprintf("%s%s-%d%s", LibraryPrefix, name, version, LibraryExtension)
		}
	default:
		if version > 0 {
			return fmt.Sprintf("%s%s%s.%d", LibraryPrefix, name, LibraryExtension, version)
		}
	}
	return LibraryPrefix + name + LibraryExtension
}

// SearchPaths returns the directories probed for FFmpeg and helper
// libraries, most specific first. VRREC_LIB_DIR overrides everything.
func SearchPaths() []string {
	var paths []string
	if dir := os.Getenv("VRREC_LIB_DIR"); dir != "" {
		paths = append(paths, filepath.SplitList(dir)...)
	}

	switch runtime.GOOS {
	case "linux", "freebsd":
		if p := os.Getenv("LD_LIBRARY_PATH"); p != "" {
			paths = append(paths, filepath.SplitList(p)...)
		}
		paths = append(paths,
			"/usr/lib/x86_64-linux-gnu",
			"/usr/lib/aarch64-linux-gnu",
			"/usr/local/lib",
			"/usr/lib",
		)
	case "darwin":
		if p := os.Getenv("DYLD_LIBRARY_PATH"); p != "" {
			paths = append(paths, filepath.SplitList(p)...)
		}
		paths = append(paths,
			"/opt/homebrew/lib",
			"/usr/local/lib",
			"/opt/homebrew/opt/ffmpeg/lib",
			"/usr/local/opt/ffmpeg/lib",
		)
	case "windows":
		// The recorder ships next to its DLLs, so the executable
		// directory wins over PATH.
		if exe, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Dir(exe))
		}
		if p := os.Getenv("PATH"); p != "" {
			paths = append(paths, filepath.SplitList(p)...)
		}
		paths = append(paths,
			`C:\ffmpeg\bin`,
			`C:\Program Files\ffmpeg\bin`,
		)
	}
	return paths
}
