//go:build !windows && !ios && !android && (amd64 || arm64)

package bindings

import "github.com/ebitengine/purego"

// openLibrary opens path with RTLD_GLOBAL; the FFmpeg libraries
// cross-reference each other's symbols.
func openLibrary(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}
