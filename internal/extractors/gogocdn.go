package extractors

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/justchokingaround/streamdig/pkg/stream"
)

// Fixed keys used by the GogoCDN player. These are public, reverse-engineered
// site constants, not credentials; the request key/IV encrypt the content id
// and decrypt the page token, the response key decrypts the AJAX payload.
const (
	gogoRequestKey  = "37911490979715163134003223491201"
	gogoResponseKey = "54674138327930866480207815084989"
	gogoIV          = "3134003223491201"
)

// GogoCDN extracts streams from the GogoCDN player family. The embed page
// carries an AES-encrypted token attribute from which the AJAX query
// parameters are derived; the AJAX response body is AES-encrypted JSON.
type GogoCDN struct {
	env    Env
	logger *slog.Logger
}

// NewGogoCDN creates the GogoCDN-family extractor.
func NewGogoCDN(env Env) *GogoCDN {
	return &GogoCDN{env: env, logger: env.extractorLogger("gogocdn")}
}

func (g *GogoCDN) Info() Info {
	return Info{
		ID:       "gogocdn",
		Category: CategoryVideo,
		Patterns: []string{
			"gogocdn.", "goload.", "gogohd.", "gogoanime.",
			"anihdplay.", "playtaku.", "embtaku.", "playgo1.",
		},
	}
}

type gogoSource struct {
	File  string `json:"file"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

type gogoAjaxData struct {
	Source   []gogoSource `json:"source"`
	SourceBk []gogoSource `json:"source_bk"`
	Track    struct {
		Tracks []struct {
			File string `json:"file"`
			Kind string `json:"kind"`
		} `json:"tracks"`
	} `json:"track"`
}

func (g *GogoCDN) Extract(ctx context.Context, req stream.Request) []stream.Stream {
	streams, err := g.extract(ctx, req)
	if err != nil {
		g.logger.Warn("extraction failed", "url", req.URL, "error", err)
		return nil
	}
	return streams
}

func (g *GogoCDN) extract(ctx context.Context, req stream.Request) ([]stream.Stream, error) {
	embedURL, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing embed URL: %w", err)
	}
	contentID := embedURL.Query().Get("id")
	if contentID == "" {
		return nil, fmt.Errorf("embed URL has no id parameter")
	}

	pageHeaders := map[string]string{
		"User-Agent": desktopUserAgent,
	}
	if req.Referer != "" {
		pageHeaders["Referer"] = req.Referer
	}

	page, err := g.env.get(ctx, "gogocdn", req.URL, pageHeaders)
	if err != nil {
		return nil, fmt.Errorf("fetching embed page: %w", err)
	}

	ajaxParams, err := g.buildAjaxParams(page, contentID)
	if err != nil {
		return nil, err
	}

	ajaxURL := fmt.Sprintf("%s://%s/encrypt-ajax.php?%s", embedURL.Scheme, embedURL.Host, ajaxParams)
	ajaxBody, err := g.env.get(ctx, "gogocdn", ajaxURL, map[string]string{
		"User-Agent":       desktopUserAgent,
		"Referer":          req.URL,
		"X-Requested-With": "XMLHttpRequest",
	})
	if err != nil {
		return nil, fmt.Errorf("calling encrypt-ajax endpoint: %w", err)
	}

	var envelope struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal([]byte(ajaxBody), &envelope); err != nil {
		return nil, fmt.Errorf("parsing ajax envelope: %w", err)
	}

	decrypted, err := aesCBCDecryptBase64(envelope.Data, gogoResponseKey, gogoIV)
	if err != nil {
		return nil, fmt.Errorf("decrypting ajax payload: %w", err)
	}

	var data gogoAjaxData
	if err := json.Unmarshal(decrypted, &data); err != nil {
		return nil, fmt.Errorf("parsing decrypted sources: %w", err)
	}

	streamHeaders := map[string]string{
		"User-Agent": desktopUserAgent,
		"Referer":    req.URL,
		"Origin":     fmt.Sprintf("%s://%s", embedURL.Scheme, embedURL.Host),
	}

	var subs []stream.Subtitle
	for _, t := range data.Track.Tracks {
		if t.File == "" || t.Kind == "thumbnails" {
			continue
		}
		subs = append(subs, stream.Subtitle{
			URL:      t.File,
			Name:     t.Kind,
			MimeType: "text/vtt",
		})
	}

	var streams []stream.Stream
	for _, group := range [][]gogoSource{data.Source, data.SourceBk} {
		for _, src := range group {
			if src.File == "" {
				continue
			}
			if stream.IsHLS(src.File) {
				streams = append(streams, g.env.expandHLS(ctx, "gogocdn", src.File, "gogocdn", streamHeaders, subs)...)
				continue
			}
			streams = append(streams, stream.Stream{
				URL:       src.File,
				Quality:   qualityFromLabel(src.Label),
				Source:    "gogocdn",
				Headers:   streamHeaders,
				Subtitles: subs,
			})
		}
	}

	if len(streams) == 0 {
		return nil, fmt.Errorf("no sources in ajax payload")
	}
	return streams, nil
}

// buildAjaxParams derives the encrypt-ajax.php query string: the content id
// is AES-encrypted into the id parameter, and the page's token attribute is
// AES-decrypted to recover the remaining parameters.
func (g *GogoCDN) buildAjaxParams(page, contentID string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parsing embed page: %w", err)
	}

	token, ok := doc.Find("script[data-name='episode']").Attr("data-value")
	if !ok || token == "" {
		return "", fmt.Errorf("encrypted token attribute not found")
	}

	decryptedToken, err := aesCBCDecryptBase64(token, gogoRequestKey, gogoIV)
	if err != nil {
		return "", fmt.Errorf("decrypting page token: %w", err)
	}

	encryptedID, err := aesCBCEncryptBase64([]byte(contentID), gogoRequestKey, gogoIV)
	if err != nil {
		return "", fmt.Errorf("encrypting content id: %w", err)
	}

	return fmt.Sprintf("id=%s&alias=%s&%s", url.QueryEscape(encryptedID), contentID, string(decryptedToken)), nil
}

func aesCBCEncryptBase64(plain []byte, key, iv string) (string, error) {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", err
	}
	padded := pkcs7Pad(plain, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, []byte(iv)).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

func aesCBCDecryptBase64(encoded, key, iv string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding base64: %w", err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a block multiple", len(raw))
	}
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, []byte(iv)).CryptBlocks(out, raw)
	return pkcs7Unpad(out)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > aes.BlockSize || padding > len(data) {
		return nil, fmt.Errorf("invalid padding byte %d", padding)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("inconsistent padding bytes")
		}
	}
	return data[:len(data)-padding], nil
}
