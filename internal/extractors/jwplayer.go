package extractors

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/justchokingaround/streamdig/pkg/stream"
)

const (
	// jwPollAttempts bounds how often the AJAX endpoint is asked before the
	// backend has finished preparing the stream.
	jwPollAttempts = 5
	jwPollInterval = 1500 * time.Millisecond
)

var (
	jwVideoIDRe = regexp.MustCompile(`var\s+video_id\s*=\s*["']([^"']+)["']`)
	jwNonceRe   = regexp.MustCompile(`_wpnonce["']?\s*[:=]\s*["']([0-9a-zA-Z]+)["']`)
)

// JWPlayer extracts streams from WordPress-hosted JWPlayer watch pages. The
// page carries a pipe-delimited scrambled video id and a nonce; the site's
// own decode ritual is mirrored before polling its admin-ajax endpoint.
type JWPlayer struct {
	env    Env
	logger *slog.Logger
}

// NewJWPlayer creates the JWPlayer-family extractor.
func NewJWPlayer(env Env) *JWPlayer {
	return &JWPlayer{env: env, logger: env.extractorLogger("jwplayer")}
}

func (j *JWPlayer) Info() Info {
	return Info{
		ID:       "jwplayer",
		Category: CategoryVideo,
		Patterns: []string{"jwplayer.", "watchx.", "luluvdo."},
	}
}

func (j *JWPlayer) Extract(ctx context.Context, req stream.Request) []stream.Stream {
	streams, err := j.extract(ctx, req)
	if err != nil {
		j.logger.Warn("extraction failed", "url", req.URL, "error", err)
		return nil
	}
	return streams
}

func (j *JWPlayer) extract(ctx context.Context, req stream.Request) ([]stream.Stream, error) {
	pageURL, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing page URL: %w", err)
	}

	headers := map[string]string{
		"User-Agent": desktopUserAgent,
	}
	if req.Referer != "" {
		headers["Referer"] = req.Referer
	}

	page, err := j.env.get(ctx, "jwplayer", req.URL, headers)
	if err != nil {
		return nil, fmt.Errorf("fetching watch page: %w", err)
	}

	idMatch := jwVideoIDRe.FindStringSubmatch(page)
	if len(idMatch) < 2 {
		return nil, fmt.Errorf("scrambled video id not found")
	}
	nonceMatch := jwNonceRe.FindStringSubmatch(page)
	if len(nonceMatch) < 2 {
		return nil, fmt.Errorf("nonce not found")
	}

	videoID := decodeScrambledID(idMatch[1])

	ajaxURL := fmt.Sprintf("%s://%s/wp-admin/admin-ajax.php", pageURL.Scheme, pageURL.Host)
	ajaxHeaders := map[string]string{
		"User-Agent":       desktopUserAgent,
		"Referer":          req.URL,
		"Origin":           fmt.Sprintf("%s://%s", pageURL.Scheme, pageURL.Host),
		"X-Requested-With": "XMLHttpRequest",
	}
	form := map[string]string{
		"action":   "get_video_source",
		"video_id": videoID,
		"nonce":    nonceMatch[1],
	}

	// The backend answers success=false until it has resolved the source,
	// so poll with a fixed attempt budget.
	var body string
	for attempt := 1; attempt <= jwPollAttempts; attempt++ {
		body, err = j.env.postForm(ctx, "jwplayer", ajaxURL, form, ajaxHeaders)
		if err != nil {
			return nil, fmt.Errorf("calling admin-ajax endpoint: %w", err)
		}
		if gjson.Get(body, "success").Bool() {
			break
		}
		if attempt == jwPollAttempts {
			return nil, fmt.Errorf("ajax endpoint never reported success after %d polls", jwPollAttempts)
		}
		timer := time.NewTimer(jwPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	streamHeaders := map[string]string{
		"User-Agent": desktopUserAgent,
		"Referer":    req.URL,
	}

	var subs []stream.Subtitle
	for _, t := range gjson.Get(body, "data.subtitles").Array() {
		file := t.Get("file").String()
		if file == "" {
			continue
		}
		subs = append(subs, stream.Subtitle{
			URL:      file,
			Name:     t.Get("label").String(),
			Language: t.Get("language").String(),
			MimeType: "text/vtt",
		})
	}

	var streams []stream.Stream
	for _, s := range gjson.Get(body, "data.sources").Array() {
		file := s.Get("file").String()
		if file == "" {
			continue
		}
		streams = append(streams, stream.Stream{
			URL:       file,
			IsM3U8:    stream.IsHLS(file),
			Quality:   qualityFromLabel(s.Get("label").String()),
			Source:    "jwplayer",
			Headers:   streamHeaders,
			Subtitles: subs,
		})
	}
	if len(streams) == 0 {
		return nil, fmt.Errorf("no sources in ajax response")
	}
	return streams, nil
}

// decodeScrambledID reassembles the pipe-delimited video id the way the
// site's own player does: parts sorted in reverse order, joined with '+' and
// terminated with '='.
func decodeScrambledID(scrambled string) string {
	parts := strings.Split(scrambled, "|")
	sort.Sort(sort.Reverse(sort.StringSlice(parts)))
	return strings.Join(parts, "+") + "="
}
