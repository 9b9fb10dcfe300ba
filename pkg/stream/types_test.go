package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHLS(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://cdn.example.com/hls/master.m3u8", true},
		{"https://cdn.example.com/hls/master.m3u8?token=abc", true},
		{"https://cdn.example.com/hls/master.m3u8#fragment", true},
		{"https://cdn.example.com/playlist.m3u", true},
		{"https://cdn.example.com/video.mp4", false},
		{"https://cdn.example.com/video.mp4?fake=.m3u8", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHLS(tt.url))
		})
	}
}
