package extractors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve(t *testing.T) {
	registry := NewRegistry(newTestEnv())

	t.Run("matches gogocdn family hosts", func(t *testing.T) {
		urls := []string{
			"https://gogocdn.net/streaming.php?id=MTIzNDU2",
			"https://goload.pro/embedplus?id=MTIzNDU2",
			"https://playtaku.online/streaming.php?id=MTIzNDU2",
			"https://embtaku.com/streaming.php?id=MTIzNDU2",
		}

		for _, u := range urls {
			matched := registry.Resolve(u)
			require.Len(t, matched, 1, u)
			assert.Equal(t, "gogocdn", matched[0].Info().ID)
		}
	})

	t.Run("matches streamwish aliases", func(t *testing.T) {
		for _, u := range []string{
			"https://streamwish.to/e/abcdef",
			"https://awish.pro/e/abcdef",
			"https://dwish.pro/e/abcdef",
		} {
			matched := registry.Resolve(u)
			require.Len(t, matched, 1, u)
			assert.Equal(t, "streamwish", matched[0].Info().ID)
		}
	})

	t.Run("matches kwik and noodlemagazine", func(t *testing.T) {
		matched := registry.Resolve("https://kwik.si/e/abcdef")
		require.Len(t, matched, 1)
		assert.Equal(t, "kwik", matched[0].Info().ID)

		matched = registry.Resolve("https://noodlemagazine.com/player/12345")
		require.Len(t, matched, 1)
		assert.Equal(t, "noodlemagazine", matched[0].Info().ID)
	})

	t.Run("unknown host matches nothing", func(t *testing.T) {
		assert.Empty(t, registry.Resolve("https://example.com/watch?v=123"))
	})

	t.Run("an extractor appears once even when several patterns match", func(t *testing.T) {
		matched := registry.Resolve("https://gogocdn.goload.pro/streaming.php?id=MTIzNDU2")

		require.Len(t, matched, 1)
		assert.Equal(t, "gogocdn", matched[0].Info().ID)
	})

	t.Run("patterns match host and path but not the query string", func(t *testing.T) {
		assert.Empty(t, registry.Resolve("https://example.com/redirect?to=https://gogocdn.net/x"))
	})

	t.Run("matching is case-insensitive", func(t *testing.T) {
		matched := registry.Resolve("https://GOGOCDN.net/streaming.php?id=MTIzNDU2")

		require.Len(t, matched, 1)
		assert.Equal(t, "gogocdn", matched[0].Info().ID)
	})
}

func TestRegistry_All(t *testing.T) {
	registry := NewRegistry(newTestEnv())

	all := registry.All()
	require.Len(t, all, 5)

	infos := registry.Infos()
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		assert.Equal(t, CategoryVideo, info.Category)
		assert.NotEmpty(t, info.Patterns)
		ids = append(ids, info.ID)
	}
	assert.Equal(t, []string{"gogocdn", "streamwish", "kwik", "jwplayer", "noodlemagazine"}, ids)
}
