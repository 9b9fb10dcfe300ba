package extractors

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/justchokingaround/streamdig/pkg/stream"
)

const kwikReferer = "https://animepahe.ru/"

var kwikM3U8Re = regexp.MustCompile(`https[^"'\s\\]+?\.m3u8[^"'\s\\]*`)

// Kwik extracts streams from kwik.* embeds. The page ships an eval(f...)
// packed block; the same base-36 unpacking used for StreamWish recovers the
// player source, which holds a single HLS URL.
type Kwik struct {
	env    Env
	logger *slog.Logger
}

// NewKwik creates the Kwik-family extractor.
func NewKwik(env Env) *Kwik {
	return &Kwik{env: env, logger: env.extractorLogger("kwik")}
}

func (k *Kwik) Info() Info {
	return Info{
		ID:       "kwik",
		Category: CategoryVideo,
		Patterns: []string{"kwik."},
	}
}

func (k *Kwik) Extract(ctx context.Context, req stream.Request) []stream.Stream {
	streams, err := k.extract(ctx, req)
	if err != nil {
		k.logger.Warn("extraction failed", "url", req.URL, "error", err)
		return nil
	}
	return streams
}

func (k *Kwik) extract(ctx context.Context, req stream.Request) ([]stream.Stream, error) {
	// kwik refuses requests without its host site as referer.
	headers := map[string]string{
		"User-Agent": desktopUserAgent,
		"Referer":    kwikReferer,
	}

	page, err := k.env.get(ctx, "kwik", req.URL, headers)
	if err != nil {
		return nil, fmt.Errorf("fetching embed page: %w", err)
	}

	packed := findEvalBlock(page)
	if packed == "" {
		return nil, fmt.Errorf("no eval block in page")
	}
	unpacked, err := unpack(packed)
	if err != nil {
		return nil, fmt.Errorf("unpacking eval block: %w", err)
	}

	manifestURL := kwikM3U8Re.FindString(unpacked)
	if manifestURL == "" {
		return nil, fmt.Errorf("no m3u8 URL in unpacked source")
	}

	return []stream.Stream{{
		URL:     manifestURL,
		IsM3U8:  true,
		Quality: "auto",
		Source:  "kwik",
		Headers: map[string]string{
			"User-Agent": desktopUserAgent,
			"Referer":    kwikReferer,
		},
	}}, nil
}
