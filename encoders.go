//go:build !ios && !android && (amd64 || arm64)

package vrrec

import (
	"sort"

	"github.com/obinnaokechukwu/vrrec/avcodec"
	"github.com/obinnaokechukwu/vrrec/internal/bindings"
)

// EncoderInfo describes an encoder compiled into the loaded libavcodec.
type EncoderInfo struct {
	Name      string
	LongName  string
	MediaType MediaType
	ID        CodecID
}

// ListAvailableEncoders returns every encoder in the loaded FFmpeg, sorted
// by name. It allocates nothing in FFmpeg and opens no codec.
func ListAvailableEncoders() ([]EncoderInfo, error) {
	if err := bindings.Load(); err != nil {
		return nil, err
	}

	var (
		opaque uintptr
		out    []EncoderInfo
	)
	for {
		codec := avcodec.Iterate(&opaque)
		if codec == nil {
			break
		}
		if !avcodec.IsEncoder(codec) {
			continue
		}
		out = append(out, EncoderInfo{
			Name:      avcodec.GetCodecName(codec),
			LongName:  avcodec.GetCodecLongName(codec),
			MediaType: avcodec.GetCodecType(codec),
			ID:        avcodec.GetCodecID(codec),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListVideoEncoders is ListAvailableEncoders filtered to video encoders.
func ListVideoEncoders() ([]EncoderInfo, error) {
	all, err := ListAvailableEncoders()
	if err != nil {
		return nil, err
	}
	video := all[:0]
	for _, e := range all {
		if e.MediaType == MediaTypeVideo {
			video = append(video, e)
		}
	}
	return video, nil
}
