package binary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/logx"
)

const (
	// DefaultTimeout is the default HTTP timeout for one download attempt
	DefaultTimeout = 10 * time.Minute
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "toolsmith/1.0"
	// maxRedirects bounds the redirect chain of one request
	maxRedirects = 10
)

// Downloader streams release assets to disk, trying mirrors in order
type Downloader struct {
	client     *http.Client
	userAgent  string
	mirrors    MirrorList
	logger     logx.Logger
	onProgress func(Progress)
}

// DownloaderConfig holds configuration for a Downloader
type DownloaderConfig struct {
	// Timeout bounds a single attempt (default: DefaultTimeout)
	Timeout time.Duration
	// UserAgent overrides DefaultUserAgent
	UserAgent string
	// Mirrors overrides DefaultMirrors. The origin entry is always appended.
	Mirrors MirrorList
	// Logger receives per-mirror failures
	Logger logx.Logger
	// Client replaces the HTTP client entirely (Timeout is then ignored)
	Client *http.Client
}

// NewDownloader creates a new downloader
func NewDownloader(cfg DownloaderConfig) *Downloader {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	mirrors := cfg.Mirrors
	if mirrors == nil {
		mirrors = DefaultMirrors
	}

	return &Downloader{
		client:    client,
		userAgent: userAgent,
		mirrors:   mirrors.Normalize(),
		logger:    logx.OrNop(cfg.Logger),
	}
}

// OnProgress registers a callback invoked as bytes arrive
func (d *Downloader) OnProgress(fn func(Progress)) {
	d.onProgress = fn
}

// Mirrors returns the normalized mirror list in preference order
func (d *Downloader) Mirrors() MirrorList {
	return append(MirrorList(nil), d.mirrors...)
}

// Download fetches an asset into targetDir/asset.Name and returns the path.
// With cfg.UseMirrors the mirror list is tried strictly in order and the
// first complete download wins; individual mirror failures are only logged.
func (d *Downloader) Download(ctx context.Context, asset Asset, targetDir string, cfg DownloadConfig) (string, error) {
	if asset.Name == "" || asset.DownloadURL == "" {
		return "", fmt.Errorf("%w: asset name and URL are required", ErrNotFound)
	}
	if filepath.Base(asset.Name) != asset.Name {
		return "", fmt.Errorf("%w: invalid asset name %q", ErrIO, asset.Name)
	}

	destPath := filepath.Join(targetDir, asset.Name)
	if _, err := d.FetchWithMirrors(ctx, asset.DownloadURL, destPath, cfg.UseMirrors); err != nil {
		return "", fmt.Errorf("download %s: %w", asset.Name, err)
	}
	return destPath, nil
}

// FetchWithMirrors downloads originURL to destPath and returns the URL that
// succeeded. Without mirrors a single origin attempt is made.
func (d *Downloader) FetchWithMirrors(ctx context.Context, originURL, destPath string, useMirrors bool) (string, error) {
	if !useMirrors {
		if err := d.DownloadToFile(ctx, originURL, destPath); err != nil {
			return "", err
		}
		return originURL, nil
	}

	for _, prefix := range d.mirrors {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		url := d.mirrors.URL(prefix, originURL)
		d.logger.Debug("trying mirror", "mirror", mirrorLabel(prefix), "url", url)

		err := d.DownloadToFile(ctx, url, destPath)
		if err == nil {
			d.logger.Info("download complete", "mirror", mirrorLabel(prefix), "path", destPath)
			return url, nil
		}

		// Cancellation is not a mirror failure
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		d.logger.Warn("mirror failed", "mirror", mirrorLabel(prefix), "url", url, "error", err)
	}

	return "", fmt.Errorf("%w for %s (tried %d)", ErrAllMirrorsFailed, originURL, len(d.mirrors))
}

// DownloadToFile performs a single download of url to destPath.
// Data is written to a temporary file and renamed into place on success.
func (d *Downloader) DownloadToFile(ctx context.Context, url, destPath string) error {
	// Create request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %w", ErrNetwork, err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	// Execute request
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	// Check status code
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPStatusError{URL: url, StatusCode: resp.StatusCode}
	}

	// Create destination directory
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("%w: create dest dir: %w", ErrIO, err)
	}

	// Create temporary file
	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrIO, err)
	}

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	dst := &progressWriter{w: tmpFile, fn: d.onProgress}
	if resp.ContentLength > 0 {
		dst.total = uint64(resp.ContentLength)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		// Anything but a file write failure is a transport problem
		var werr *writeError
		if errors.As(err, &werr) {
			return fmt.Errorf("%w: write %s: %w", ErrIO, tmpPath, werr.err)
		}
		return fmt.Errorf("%w: copy response body: %w", ErrNetwork, err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %w", ErrIO, err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("%w: rename temp file: %w", ErrIO, err)
	}

	cleanupNeeded = false
	return nil
}

// writeError marks a failure on the file side of a copy
type writeError struct {
	err error
}

func (e *writeError) Error() string { return e.err.Error() }

// progressWriter forwards writes and reports cumulative progress when fn
// is set. Write failures come back as *writeError.
type progressWriter struct {
	w          io.Writer
	total      uint64
	downloaded uint64
	fn         func(Progress)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if err != nil {
		return n, &writeError{err: err}
	}
	p.downloaded += uint64(n)
	if p.fn == nil {
		return n, nil
	}

	progress := Progress{Downloaded: p.downloaded, Total: p.total}
	if p.total > 0 {
		progress.Percentage = float64(p.downloaded) / float64(p.total) * 100
	}
	p.fn(progress)
	return n, nil
}
