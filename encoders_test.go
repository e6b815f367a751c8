//go:build !ios && !android && (amd64 || arm64)

package vrrec

import (
	"sort"
	"testing"
)

func TestListAvailableEncoders(t *testing.T) {
	skipIfNoFFmpeg(t)

	encoders, err := ListAvailableEncoders()
	if err != nil {
		t.Fatalf("ListAvailableEncoders: %v", err)
	}
	if len(encoders) == 0 {
		t.Fatal("no encoders listed")
	}
	if !sort.SliceIsSorted(encoders, func(i, j int) bool { return encoders[i].Name < encoders[j].Name }) {
		t.Error("encoders are not sorted by name")
	}

	var found bool
	for _, e := range encoders {
		if e.Name == "" {
			t.Errorf("encoder with empty name: %+v", e)
		}
		if e.Name == "rawvideo" {
			found = true
			if e.MediaType != MediaTypeVideo {
				t.Errorf("rawvideo media type = %d, want video", e.MediaType)
			}
		}
	}
	if !found {
		t.Error("rawvideo encoder not listed")
	}

	// Listing twice yields the same result.
	again, err := ListAvailableEncoders()
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != len(encoders) {
		t.Errorf("second listing has %d encoders, first had %d", len(again), len(encoders))
	}
}

func TestListVideoEncoders(t *testing.T) {
	skipIfNoFFmpeg(t)

	video, err := ListVideoEncoders()
	if err != nil {
		t.Fatalf("ListVideoEncoders: %v", err)
	}
	if len(video) == 0 {
		t.Fatal("no video encoders listed")
	}
	for _, e := range video {
		if e.MediaType != MediaTypeVideo {
			t.Errorf("%s has media type %d", e.Name, e.MediaType)
		}
	}
}
