//go:build !ios && !android && (amd64 || arm64)

package vrrec

import (
	"os"
	"strings"
	"testing"

	"github.com/obinnaokechukwu/vrrec/internal/bindings"
)

var ffmpegAvailable bool

func TestMain(m *testing.M) {
	if err := Init(); err == nil {
		ffmpegAvailable = true
	}
	os.Exit(m.Run())
}

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if !ffmpegAvailable {
		t.Skip("FFmpeg not available")
	}
}

func skipIfNoSWScale(t *testing.T) {
	t.Helper()
	skipIfNoFFmpeg(t)
	if !bindings.HasSWScale() {
		t.Skip("swscale not available")
	}
}

func TestInit(t *testing.T) {
	skipIfNoFFmpeg(t)
	if err := Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if !IsLoaded() {
		t.Error("IsLoaded returned false after Init")
	}
}

func TestVersion(t *testing.T) {
	skipIfNoFFmpeg(t)
	avutilVer, avcodecVer, avformatVer := Version()
	if avutilVer == 0 || avcodecVer == 0 || avformatVer == 0 {
		t.Fatalf("Version() = %d, %d, %d; want non-zero", avutilVer, avcodecVer, avformatVer)
	}
	if s := VersionString(avcodecVer); strings.Count(s, ".") != 2 {
		t.Errorf("VersionString(%d) = %q", avcodecVer, s)
	}
}

func TestErrorCode(t *testing.T) {
	if got := ErrorCode(ErrNotOpen); got != 0 {
		t.Errorf("ErrorCode(ErrNotOpen) = %d, want 0", got)
	}
	err := &FFmpegError{Code: -22, Message: "Invalid argument", Op: "test"}
	if got := ErrorCode(err); got != -22 {
		t.Errorf("ErrorCode = %d, want -22", got)
	}
}
