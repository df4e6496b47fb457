package configurations

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aukilabs/dsa/archive"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	ErrTypeDownloadFailed = "download_failed"
	ErrTypeExtractFailed  = "extract_failed"

	progressInterval = 100 * time.Millisecond
)

// Progress is the state of a download.
type Progress struct {
	Index    int   `json:"index"`
	Received int64 `json:"received"`

	// The expected size. Lower or equal to zero when unknown.
	Total int64 `json:"total"`
}

// Fraction returns the downloaded fraction. ok is false when the expected
// size is unknown.
func (p Progress) Fraction() (f float64, ok bool) {
	if p.Total <= 0 {
		return 0, false
	}
	return float64(p.Received) / float64(p.Total), true
}

type downloadResult struct {
	bytes int64
	stats archive.Stats
	err   error
}

// fetch downloads url into a temporary file of dir and returns its name.
func fetch(ctx context.Context, client *http.Client, url, dir string, progress func(received, total int64)) (string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, errors.New("creating download request failed").
			WithType(ErrTypeDownloadFailed).
			WithTag("url", url).
			Wrap(err)
	}

	res, err := client.Do(req)
	if err != nil {
		return "", 0, errors.New("download request failed").
			WithType(ErrTypeDownloadFailed).
			WithTag("url", url).
			Wrap(err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", 0, errors.New("download request failed").
			WithType(ErrTypeDownloadFailed).
			WithTag("url", url).
			WithTag("status", res.StatusCode)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, errors.New("creating download directory failed").
			WithType(ErrTypeDownloadFailed).
			WithTag("path", dir).
			Wrap(err)
	}

	f, err := os.CreateTemp(dir, ".download-*.zip")
	if err != nil {
		return "", 0, errors.New("creating download file failed").
			WithType(ErrTypeDownloadFailed).
			Wrap(err)
	}

	r := &progressReader{
		reader:   res.Body,
		total:    res.ContentLength,
		progress: progress,
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", 0, errors.New("downloading failed").
			WithType(ErrTypeDownloadFailed).
			WithTag("url", url).
			Wrap(err)
	}

	progress(n, res.ContentLength)
	return f.Name(), n, nil
}

// extract extracts an archive into a temporary directory and renames it to
// dir once complete, replacing the previous content of dir.
func extract(ctx context.Context, filename, dir string) (archive.Stats, error) {
	tmp, err := os.MkdirTemp(filepath.Dir(dir), ".extract-*")
	if err != nil {
		return archive.Stats{}, errors.New("creating extraction directory failed").
			WithType(ErrTypeExtractFailed).
			Wrap(err)
	}

	stats, err := archive.Extract(ctx, filename, tmp)
	if err != nil {
		os.RemoveAll(tmp)
		return archive.Stats{}, errors.New("extracting configuration failed").
			WithType(ErrTypeExtractFailed).
			WithTag("path", dir).
			Wrap(err)
	}

	if err := os.RemoveAll(dir); err != nil {
		os.RemoveAll(tmp)
		return archive.Stats{}, errors.New("removing previous configuration failed").
			WithType(ErrTypeExtractFailed).
			WithTag("path", dir).
			Wrap(err)
	}

	if err := os.Rename(tmp, dir); err != nil {
		os.RemoveAll(tmp)
		return archive.Stats{}, errors.New("installing configuration failed").
			WithType(ErrTypeExtractFailed).
			WithTag("path", dir).
			Wrap(err)
	}
	return stats, nil
}

type progressReader struct {
	reader   io.Reader
	total    int64
	received int64
	reported time.Time
	progress func(received, total int64)
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.received += int64(n)

	if now := time.Now(); n > 0 && now.Sub(r.reported) >= progressInterval {
		r.reported = now
		r.progress(r.received, r.total)
	}
	return n, err
}
