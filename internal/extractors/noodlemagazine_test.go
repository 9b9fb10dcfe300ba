package extractors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noodleWatchPage = `<html><script>
window.playlist = {
  "sources": [
    {"file": "https://st1.example.com/video/480.mp4?m=abc", "label": "480", "type": "mp4"},
    {"file": "https://st1.example.com/video/1080.mp4?m=abc", "label": "1080", "type": "mp4"}
  ],
  "image": "/preview.jpg"
};
</script></html>`

func TestNoodleMagazine_Extract(t *testing.T) {
	t.Run("parses the inlined playlist with a mobile user agent", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, noodleMobileUA, r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte(noodleWatchPage))
		}))
		defer server.Close()

		n := NewNoodleMagazine(newTestEnv())
		watchURL := server.URL + "/watch/12345"
		streams := n.Extract(context.Background(), streamRequest(watchURL))

		require.Len(t, streams, 2)
		assert.Equal(t, "480p", streams[0].Quality)
		assert.Equal(t, "1080p", streams[1].Quality)
		for _, s := range streams {
			assert.False(t, s.IsM3U8)
			assert.Equal(t, "noodlemagazine", s.Source)
			assert.Equal(t, noodleMobileUA, s.Headers["User-Agent"])
			assert.Equal(t, watchURL, s.Headers["Referer"])
		}
	})

	t.Run("returns nil when the page has no playlist", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html><body>desktop page</body></html>"))
		}))
		defer server.Close()

		n := NewNoodleMagazine(newTestEnv())
		assert.Nil(t, n.Extract(context.Background(), streamRequest(server.URL+"/watch/12345")))
	})

	t.Run("returns nil when the playlist has no sources", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html><script>window.playlist = {"sources": []};</script></html>`))
		}))
		defer server.Close()

		n := NewNoodleMagazine(newTestEnv())
		assert.Nil(t, n.Extract(context.Background(), streamRequest(server.URL+"/watch/12345")))
	})
}
