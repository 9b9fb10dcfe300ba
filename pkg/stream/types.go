// Package stream holds the wire-level data model shared between extractors
// and their callers: an extraction request going in, playable streams and
// subtitle tracks coming out. Values are created per extraction attempt and
// never shared across calls.
package stream

import "strings"

// Request identifies the page or API endpoint to resolve.
type Request struct {
	// URL is the embed/redirect URL obtained from a source page.
	URL string `json:"url"`
	// Referer is the page that linked to URL, when the origin site checks it.
	Referer string `json:"referer,omitempty"`
}

// Stream is a single playable candidate. Multiple streams may describe
// quality variants of the same content; slice ordering reflects the
// extractor's own preference, not a global ranking.
type Stream struct {
	URL       string            `json:"url"`
	IsM3U8    bool              `json:"isM3U8"`
	Quality   string            `json:"quality,omitempty"`
	Source    string            `json:"source"`
	Headers   map[string]string `json:"headers,omitempty"`
	Subtitles []Subtitle        `json:"subtitles,omitempty"`
}

// Subtitle is a sidecar text track attached to a stream.
type Subtitle struct {
	URL      string `json:"url"`
	Name     string `json:"name,omitempty"`
	Language string `json:"language,omitempty"`
	MimeType string `json:"mimeType"`
}

// IsHLS reports whether a URL points at an HLS playlist.
func IsHLS(rawURL string) bool {
	trimmed := rawURL
	if idx := strings.IndexAny(trimmed, "?#"); idx != -1 {
		trimmed = trimmed[:idx]
	}
	return strings.HasSuffix(trimmed, ".m3u8") || strings.HasSuffix(trimmed, ".m3u")
}
