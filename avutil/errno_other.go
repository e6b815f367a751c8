//go:build !windows && !ios && !android && (amd64 || arm64)

package avutil

import "syscall"

const errnoEAGAIN = int32(syscall.EAGAIN)
