package extractors

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/tidwall/gjson"

	"github.com/justchokingaround/streamdig/pkg/stream"
)

const noodleMobileUA = "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122 Mobile Safari/537.36"

var noodlePlaylistRe = regexp.MustCompile(`(?s)window\.playlist\s*=\s*(\{.*?\});`)

// NoodleMagazine extracts streams from noodlemagazine watch pages. The mobile
// page inlines its full playlist as a window.playlist JSON object.
type NoodleMagazine struct {
	env    Env
	logger *slog.Logger
}

// NewNoodleMagazine creates the NoodleMagazine extractor.
func NewNoodleMagazine(env Env) *NoodleMagazine {
	return &NoodleMagazine{env: env, logger: env.extractorLogger("noodlemagazine")}
}

func (n *NoodleMagazine) Info() Info {
	return Info{
		ID:       "noodlemagazine",
		Category: CategoryVideo,
		Patterns: []string{"noodlemagazine."},
	}
}

func (n *NoodleMagazine) Extract(ctx context.Context, req stream.Request) []stream.Stream {
	streams, err := n.extract(ctx, req)
	if err != nil {
		n.logger.Warn("extraction failed", "url", req.URL, "error", err)
		return nil
	}
	return streams
}

func (n *NoodleMagazine) extract(ctx context.Context, req stream.Request) ([]stream.Stream, error) {
	// The desktop page builds the playlist in script; the mobile variant
	// inlines it, so a mobile user agent is required.
	headers := map[string]string{
		"User-Agent": noodleMobileUA,
	}
	if req.Referer != "" {
		headers["Referer"] = req.Referer
	}

	page, err := n.env.get(ctx, "noodlemagazine", req.URL, headers)
	if err != nil {
		return nil, fmt.Errorf("fetching watch page: %w", err)
	}

	m := noodlePlaylistRe.FindStringSubmatch(page)
	if len(m) < 2 {
		return nil, fmt.Errorf("window.playlist object not found")
	}
	playlist := gjson.Parse(m[1])
	if !playlist.Exists() {
		return nil, fmt.Errorf("playlist object is not valid JSON")
	}

	streamHeaders := map[string]string{
		"User-Agent": noodleMobileUA,
		"Referer":    req.URL,
	}

	var streams []stream.Stream
	for _, src := range playlist.Get("sources").Array() {
		file := src.Get("file").String()
		if file == "" {
			continue
		}
		streams = append(streams, stream.Stream{
			URL:     file,
			IsM3U8:  stream.IsHLS(file),
			Quality: qualityFromLabel(src.Get("label").String()),
			Source:  "noodlemagazine",
			Headers: streamHeaders,
		})
	}
	if len(streams) == 0 {
		return nil, fmt.Errorf("playlist has no sources")
	}
	return streams, nil
}
