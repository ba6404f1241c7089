package modeldir

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/born-ml/gpt2/internal/logger"
)

// Default download locations. Vocabulary and hparams come from the original
// release bucket; the checkpoint comes from the Hugging Face mirror as
// SafeTensors.
const (
	DefaultReleaseURL = "https://openaipublic.blob.core.windows.net/gpt-2/models"
	DefaultHubURL     = "https://huggingface.co"
)

// HubRepos maps model names to Hugging Face repositories.
var HubRepos = map[string]string{
	"124M":  "gpt2",
	"355M":  "gpt2-medium",
	"774M":  "gpt2-large",
	"1558M": "gpt2-xl",
}

// Downloader fetches model files over HTTP.
type Downloader struct {
	Client     *http.Client
	ReleaseURL string
	HubURL     string
	Force      bool // re-download files that already exist
}

// NewDownloader returns a Downloader using the public endpoints.
func NewDownloader() *Downloader {
	return &Downloader{
		Client:     http.DefaultClient,
		ReleaseURL: DefaultReleaseURL,
		HubURL:     DefaultHubURL,
	}
}

// fileURL returns the source URL of one model file.
func (dl *Downloader) fileURL(model, file string) (string, error) {
	if file == CheckpointFile {
		repo, ok := HubRepos[model]
		if !ok {
			return "", fmt.Errorf("%w: %q has no checkpoint mirror", ErrUnknownModel, model)
		}
		return fmt.Sprintf("%s/%s/resolve/main/%s", dl.HubURL, repo, CheckpointFile), nil
	}
	return fmt.Sprintf("%s/%s/%s", dl.ReleaseURL, model, file), nil
}

// Download fetches every file of d, creating the directory if needed.
// Any non-2xx response aborts the download.
func (dl *Downloader) Download(ctx context.Context, d Dir) error {
	log := logger.FromContext(ctx)

	if _, ok := HubRepos[d.Model]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownModel, d.Model)
	}
	if err := os.MkdirAll(d.Path(), 0o750); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	for _, file := range []string{HParamsFile, EncoderFile, VocabFile, CheckpointFile} {
		dst := filepath.Join(d.Path(), file)
		if !dl.Force && isFile(dst) {
			log.Debug().Str("file", dst).Msg("already present")
			continue
		}

		url, err := dl.fileURL(d.Model, file)
		if err != nil {
			return err
		}
		n, err := dl.fetch(ctx, url, dst)
		if err != nil {
			return fmt.Errorf("download %s: %w", file, err)
		}
		log.Info().Str("model", d.Model).Str("file", file).Int64("bytes", n).Msg("downloaded")
	}
	return nil
}

// fetch streams url into dst through a temporary file in the same directory.
func (dl *Downloader) fetch(ctx context.Context, url, dst string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	client := dl.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = os.Remove(tmp.Name()) // no-op after a successful rename
	}()

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return 0, err
	}
	return n, nil
}
