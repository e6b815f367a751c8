//go:build windows && (amd64 || arm64)

package avutil

// FFmpeg on Windows is built against the MSVC CRT, whose EAGAIN is 11.
// syscall.EAGAIN on Windows is an invented value and must not be used.
const errnoEAGAIN int32 = 11
