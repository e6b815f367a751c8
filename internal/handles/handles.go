// Package handles maps C object addresses to Go values.
//
// FFmpeg log callbacks arrive with the AVClass context pointer that emitted
// them (an AVCodecContext or AVFormatContext). Writers bind their contexts
// here so the callback can route each line to the logger of the writer
// that owns it. Keys are plain addresses; the Go side never dereferences them.
package handles

import (
	"sync"
)

var (
	mu    sync.RWMutex
	bound = make(map[uintptr]any)
)

// Bind associates v with key, replacing any earlier binding.
// A zero key is ignored.
//
// Thread-safe.
func Bind(key uintptr, v any) {
	if key == 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	bound[key] = v
}

// Lookup returns the value bound to key, or nil.
//
// Thread-safe.
func Lookup(key uintptr) any {
	mu.RLock()
	defer mu.RUnlock()
	return bound[key]
}

// Unbind removes key. Call it before the C object is freed; FFmpeg may
// reuse the address for the next allocation.
//
// Thread-safe.
func Unbind(key uintptr) {
	mu.Lock()
	defer mu.Unlock()
	delete(bound, key)
}

// Count returns the number of live bindings.
// Useful for debugging and testing leaks.
//
// Thread-safe.
func Count() int {
	mu.RLock()
	defer mu.RUnlock()
	return len(bound)
}
