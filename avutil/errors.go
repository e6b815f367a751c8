//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"errors"
	"fmt"
)

// Common FFmpeg error codes (AVERROR values)
const (
	AVERROR_EOF               int32 = -541478725   // End of file
	AVERROR_EAGAIN            int32 = -errnoEAGAIN // Resource temporarily unavailable
	AVERROR_EINVAL            int32 = -22          // Invalid argument
	AVERROR_ENOMEM            int32 = -12          // Out of memory
	AVERROR_ENCODER_NOT_FOUND int32 = -1129203192  // Encoder not found
	AVERROR_MUXER_NOT_FOUND   int32 = -1381258232  // Muxer not found
	AVERROR_INVALIDDATA       int32 = -1094995529  // Invalid data
	AVERROR_UNKNOWN           int32 = -1313558101  // Unknown error
)

// Error represents an FFmpeg error.
type Error struct {
	Code    int32  // Raw FFmpeg error code
	Message string // Human-readable message
	Op      string // Operation that failed
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("ffmpeg %s: %s (code %d)", e.Op, e.Message, e.Code)
}

// NewError creates a new FFmpeg error from an error code.
func NewError(code int32, op string) error {
	if code >= 0 {
		return nil
	}
	return &Error{
		Code:    code,
		Message: ErrorString(code),
		Op:      op,
	}
}

// IsEOF returns true if the error indicates end of file.
func IsEOF(err error) bool {
	var ffErr *Error
	if errors.As(err, &ffErr) {
		return ffErr.Code == AVERROR_EOF
	}
	return false
}

// IsAgain returns true if the error indicates to try again (EAGAIN).
// Encoders return it while they buffer input.
func IsAgain(err error) bool {
	var ffErr *Error
	if errors.As(err, &ffErr) {
		return ffErr.Code == AVERROR_EAGAIN
	}
	return false
}

// Code returns the FFmpeg error code from an error, or 0 if not an FFmpeg error.
func Code(err error) int32 {
	var ffErr *Error
	if errors.As(err, &ffErr) {
		return ffErr.Code
	}
	return 0
}
