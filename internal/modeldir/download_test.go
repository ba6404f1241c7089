package modeldir

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, hits *int64) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	for _, f := range []string{HParamsFile, EncoderFile, VocabFile} {
		body := "release:" + f
		mux.HandleFunc("/release/124M/"+f, func(w http.ResponseWriter, _ *http.Request) {
			atomic.AddInt64(hits, 1)
			_, _ = w.Write([]byte(body))
		})
	}
	mux.HandleFunc("/hub/gpt2/resolve/main/"+CheckpointFile, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt64(hits, 1)
		_, _ = w.Write([]byte("weights"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testDownloader(srv *httptest.Server) *Downloader {
	dl := NewDownloader()
	dl.Client = srv.Client()
	dl.ReleaseURL = srv.URL + "/release"
	dl.HubURL = srv.URL + "/hub"
	return dl
}

func TestDownloader_Download(t *testing.T) {
	var hits int64
	srv := newTestServer(t, &hits)
	dl := testDownloader(srv)

	d := New(filepath.Join(t.TempDir(), "models"), "124M")
	require.NoError(t, dl.Download(context.Background(), d))
	assert.Equal(t, int64(4), hits)
	require.NoError(t, d.Check())

	data, err := os.ReadFile(d.Vocab())
	require.NoError(t, err)
	assert.Equal(t, "release:vocab.bpe", string(data))

	data, err = os.ReadFile(d.Checkpoint())
	require.NoError(t, err)
	assert.Equal(t, "weights", string(data))

	// Existing files are skipped unless forced.
	require.NoError(t, dl.Download(context.Background(), d))
	assert.Equal(t, int64(4), hits)

	dl.Force = true
	require.NoError(t, dl.Download(context.Background(), d))
	assert.Equal(t, int64(8), hits)
}

func TestDownloader_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	dl := testDownloader(srv)

	d := New(t.TempDir(), "124M")
	err := dl.Download(context.Background(), d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	entries, err := os.ReadDir(d.Path())
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial files should remain")
}

func TestDownloader_UnknownModel(t *testing.T) {
	dl := NewDownloader()
	err := dl.Download(context.Background(), New(t.TempDir(), "42M"))
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestDownloader_Canceled(t *testing.T) {
	var hits int64
	srv := newTestServer(t, &hits)
	dl := testDownloader(srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := dl.Download(ctx, New(t.TempDir(), "124M"))
	assert.ErrorIs(t, err, context.Canceled)
}
