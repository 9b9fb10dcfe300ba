package extractors

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/justchokingaround/streamdig/pkg/stream"
)

var (
	resolutionRe   = regexp.MustCompile(`RESOLUTION=\d+x(\d+)`)
	qualityLabelRe = regexp.MustCompile(`(\d{3,4})\s*p?`)
)

type hlsVariant struct {
	URL     string
	Quality string
}

// parseHLSVariants expands #EXT-X-STREAM-INF entries of a master manifest
// into one variant per rendition. Relative variant paths are resolved against
// the manifest URL. A media playlist (no variant headers) yields nil.
func parseHLSVariants(manifest, manifestURL string) []hlsVariant {
	base, err := url.Parse(manifestURL)
	if err != nil {
		base = nil
	}

	var variants []hlsVariant
	lines := strings.Split(manifest, "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "#EXT-X-STREAM-INF") {
			continue
		}

		quality := "auto"
		if m := resolutionRe.FindStringSubmatch(line); len(m) > 1 {
			quality = m[1] + "p"
		}

		// The variant URI is the next non-comment line.
		for j := i + 1; j < len(lines); j++ {
			uri := strings.TrimSpace(lines[j])
			if uri == "" || strings.HasPrefix(uri, "#") {
				continue
			}
			variants = append(variants, hlsVariant{
				URL:     resolveVariantURL(base, uri),
				Quality: quality,
			})
			i = j
			break
		}
	}

	return variants
}

func resolveVariantURL(base *url.URL, uri string) string {
	ref, err := url.Parse(uri)
	if err != nil || base == nil {
		return uri
	}
	return base.ResolveReference(ref).String()
}

// expandHLS fetches a manifest and produces one stream per variant, carrying
// the extractor's headers and subtitles on each. When no variants parse (or
// the fetch fails) the manifest URL itself is returned tagged "auto".
func (e Env) expandHLS(ctx context.Context, provider, manifestURL, source string, headers map[string]string, subs []stream.Subtitle) []stream.Stream {
	fallback := []stream.Stream{{
		URL:       manifestURL,
		IsM3U8:    true,
		Quality:   "auto",
		Source:    source,
		Headers:   headers,
		Subtitles: subs,
	}}

	manifest, err := e.get(ctx, provider, manifestURL, headers)
	if err != nil {
		e.extractorLogger(provider).Debug("manifest fetch failed, keeping master URL", "url", manifestURL, "error", err)
		return fallback
	}

	variants := parseHLSVariants(manifest, manifestURL)
	if len(variants) == 0 {
		return fallback
	}

	streams := make([]stream.Stream, 0, len(variants))
	for _, v := range variants {
		streams = append(streams, stream.Stream{
			URL:       v.URL,
			IsM3U8:    true,
			Quality:   v.Quality,
			Source:    source,
			Headers:   headers,
			Subtitles: subs,
		})
	}
	return streams
}

// qualityFromLabel normalizes a site-provided label like "1080 P" or
// "hd-720" into the usual "<height>p" form; unrecognized labels pass through.
func qualityFromLabel(label string) string {
	label = strings.TrimSpace(strings.ToLower(label))
	if label == "" {
		return "auto"
	}
	if m := qualityLabelRe.FindStringSubmatch(label); len(m) > 1 {
		return fmt.Sprintf("%sp", m[1])
	}
	return label
}
