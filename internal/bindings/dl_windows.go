//go:build windows && (amd64 || arm64)

package bindings

import (
	"path/filepath"

	"golang.org/x/sys/windows"
)

// openLibrary loads a DLL. Absolute paths use the altered search order so
// that avcodec-*.dll finds its avutil sibling in the same directory.
func openLibrary(path string) (uintptr, error) {
	var (
		h   windows.Handle
		err error
	)
	if filepath.IsAbs(path) {
		h, err = windows.LoadLibraryEx(path, 0, windows.LOAD_WITH_ALTERED_SEARCH_PATH)
	} else {
		h, err = windows.LoadLibrary(path)
	}
	if err != nil {
		return 0, err
	}
	return uintptr(h), nil
}
