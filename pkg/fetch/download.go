package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"

	"github.com/matzehuels/podkit/pkg/buildinfo"
	"github.com/matzehuels/podkit/pkg/cache"
	"github.com/matzehuels/podkit/pkg/integrations"
)

// archiveName returns the last path component of an archive URL, without
// query or fragment.
func archiveName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(rawURL)
}

// download streams rawURL into a new temp file under dir and returns its path.
// Transient failures are retried with backoff.
func (f *Fetcher) download(ctx context.Context, rawURL, dir string) (string, error) {
	var tmpPath string
	err := cache.RetryWithBackoff(ctx, func() error {
		tmp, err := os.CreateTemp(dir, ".download-*")
		if err != nil {
			return err
		}
		tmpPath = tmp.Name()

		err = f.get(ctx, rawURL, tmp)
		if cerr := tmp.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(tmpPath)
			tmpPath = ""
		}
		return err
	})
	return tmpPath, err
}

func (f *Fetcher) get(ctx context.Context, rawURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	resp, err := f.httpClient().Do(req)
	if err != nil {
		return cache.Retryable(fmt.Errorf("%w: %v", integrations.ErrNetwork, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", integrations.ErrNotFound, rawURL)
	case resp.StatusCode >= 500:
		return cache.Retryable(fmt.Errorf("%w: status %d", integrations.ErrNetwork, resp.StatusCode))
	default:
		return fmt.Errorf("%w: status %d", integrations.ErrNetwork, resp.StatusCode)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return cache.Retryable(fmt.Errorf("%w: %v", integrations.ErrNetwork, err))
	}
	return nil
}

func (f *Fetcher) httpClient() *http.Client {
	if f.HTTP != nil {
		return f.HTTP
	}
	return http.DefaultClient
}
