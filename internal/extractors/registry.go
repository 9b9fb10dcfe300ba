package extractors

import (
	"net/url"
	"strings"
)

// Registry maps embed/redirect URLs to the extractors that can handle them.
// It is built once at startup and read-only afterwards; pass it by reference
// to whoever dispatches extractions.
type Registry struct {
	extractors []Extractor
}

// NewRegistry builds the registry with every known extractor, in dispatch
// order.
func NewRegistry(env Env) *Registry {
	return &Registry{
		extractors: []Extractor{
			NewGogoCDN(env),
			NewStreamWish(env),
			NewKwik(env),
			NewJWPlayer(env),
			NewNoodleMagazine(env),
		},
	}
}

// Resolve returns the extractors whose patterns match the URL's host+path,
// in registration order, at most once per extractor id. No match yields an
// empty slice, not an error; the caller decides whether that is fatal.
func (r *Registry) Resolve(rawURL string) []Extractor {
	target := matchTarget(rawURL)
	if target == "" {
		return nil
	}

	var matched []Extractor
	seen := make(map[string]bool)
	for _, ext := range r.extractors {
		info := ext.Info()
		if seen[info.ID] {
			continue
		}
		for _, pattern := range info.Patterns {
			if strings.Contains(target, pattern) {
				matched = append(matched, ext)
				seen[info.ID] = true
				break
			}
		}
	}
	return matched
}

// All returns every registered extractor in dispatch order.
func (r *Registry) All() []Extractor {
	result := make([]Extractor, len(r.extractors))
	copy(result, r.extractors)
	return result
}

// Infos returns the static descriptors of all registered extractors.
func (r *Registry) Infos() []Info {
	infos := make([]Info, 0, len(r.extractors))
	for _, ext := range r.extractors {
		infos = append(infos, ext.Info())
	}
	return infos
}

// matchTarget lowercases the URL's host+path for pattern tests. URLs that do
// not parse are matched as raw strings so schemeless embeds still resolve.
func matchTarget(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(u.Host + u.Path)
}
