package extractors

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/justchokingaround/streamdig/pkg/stream"
)

const streamWishUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/121.0"

var (
	wishM3U8Re   = regexp.MustCompile(`file\s*:\s*"(.*?\.m3u8[^"]*)"`)
	wishTracksRe = regexp.MustCompile(`(?s)tracks\s*:\s*\[(.*?)\]`)
	wishTrackRe  = regexp.MustCompile(`\{[^{}]*\}`)
	wishFieldRe  = regexp.MustCompile(`(file|kind|label)\s*:\s*"([^"]*)"`)
)

// StreamWish extracts streams from the StreamWish player family. The page
// embeds its player setup inside a self-decoding packed block; reversing the
// packer (without executing it) exposes the HLS URL and the track list.
type StreamWish struct {
	env    Env
	logger *slog.Logger
}

// NewStreamWish creates the StreamWish-family extractor.
func NewStreamWish(env Env) *StreamWish {
	return &StreamWish{env: env, logger: env.extractorLogger("streamwish")}
}

func (s *StreamWish) Info() Info {
	return Info{
		ID:       "streamwish",
		Category: CategoryVideo,
		Patterns: []string{
			"streamwish.", "dhcplay.", "awish.", "mwish.",
			"dwish.", "swhoi.", "wishfast.", "strwish.",
		},
	}
}

func (s *StreamWish) Extract(ctx context.Context, req stream.Request) []stream.Stream {
	streams, err := s.extract(ctx, req)
	if err != nil {
		s.logger.Warn("extraction failed", "url", req.URL, "error", err)
		return nil
	}
	return streams
}

func (s *StreamWish) extract(ctx context.Context, req stream.Request) ([]stream.Stream, error) {
	embedURL, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing embed URL: %w", err)
	}

	headers := map[string]string{
		"User-Agent":     streamWishUserAgent,
		"Accept":         "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Sec-Fetch-Dest": "iframe",
	}
	if req.Referer != "" {
		headers["Referer"] = req.Referer
	}

	page, err := s.env.get(ctx, "streamwish", req.URL, headers)
	if err != nil {
		return nil, fmt.Errorf("fetching embed page: %w", err)
	}

	packed := findPackedBlock(page)
	if packed == "" {
		return nil, fmt.Errorf("no packed player block in page")
	}
	unpacked, err := unpack(packed)
	if err != nil {
		return nil, fmt.Errorf("unpacking player block: %w", err)
	}

	manifestURL, err := firstWishManifest(unpacked)
	if err != nil {
		return nil, err
	}

	streamHeaders := map[string]string{
		"User-Agent": streamWishUserAgent,
		"Referer":    req.URL,
		"Origin":     fmt.Sprintf("%s://%s", embedURL.Scheme, embedURL.Host),
	}

	subs := parseWishTracks(unpacked)
	return s.env.expandHLS(ctx, "streamwish", manifestURL, "streamwish", streamHeaders, subs), nil
}

// firstWishManifest pulls the first .m3u8 URL out of the unpacked source.
// Some page revisions inline a JSON map whose keys bleed into the capture,
// e.g. `hls2":"https://...m3u8`; only what follows the last quote is the URL.
func firstWishManifest(unpacked string) (string, error) {
	m := wishM3U8Re.FindStringSubmatch(unpacked)
	if len(m) < 2 {
		return "", fmt.Errorf("no m3u8 URL in unpacked source")
	}
	link := m[1]
	if idx := strings.LastIndex(link, `"`); idx != -1 {
		link = link[idx+1:]
	}
	if !strings.HasPrefix(link, "http") {
		return "", fmt.Errorf("unusable m3u8 URL %q", link)
	}
	return link, nil
}

// parseWishTracks collects subtitle entries from the player's tracks array,
// skipping thumbnail tracks.
func parseWishTracks(unpacked string) []stream.Subtitle {
	block := wishTracksRe.FindStringSubmatch(unpacked)
	if len(block) < 2 {
		return nil
	}

	var subs []stream.Subtitle
	for _, obj := range wishTrackRe.FindAllString(block[1], -1) {
		fields := map[string]string{}
		for _, kv := range wishFieldRe.FindAllStringSubmatch(obj, -1) {
			fields[kv[1]] = kv[2]
		}
		if fields["file"] == "" || fields["kind"] == "thumbnails" {
			continue
		}
		subs = append(subs, stream.Subtitle{
			URL:      fields["file"],
			Name:     fields["label"],
			Language: fields["label"],
			MimeType: "text/vtt",
		})
	}
	return subs
}
