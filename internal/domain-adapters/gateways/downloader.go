package gateways

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ochairo/zepup/internal/domain/entities"
	"github.com/ochairo/zepup/internal/domain/interfaces"
	"github.com/ochairo/zepup/internal/domain/services"
)

// DownloaderConfig configures the HTTP downloader
type DownloaderConfig struct {
	CacheDir  string // Content-addressed cache root; a temp dir is used when empty
	Timeout   time.Duration
	Retry     RetryPolicy
	UserAgent string
}

// Downloader fetches release archives over HTTP into a content-addressed cache
type Downloader struct {
	httpClient *http.Client
	cacheDir   string
	retry      RetryPolicy
	userAgent  string
	checksums  *checksumVerifier
	logger     interfaces.Logger
}

// NewDownloader creates a new downloader
func NewDownloader(cfg DownloaderConfig, logger interfaces.Logger) *Downloader {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "zepup"
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(os.TempDir(), "zepup-cache")
	}
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &Downloader{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cacheDir:   cfg.CacheDir,
		retry:      cfg.Retry,
		userAgent:  cfg.UserAgent,
		checksums:  NewChecksumVerifier(),
		logger:     logger.Named("downloader"),
	}
}

// CachePath returns where the target's archive is cached:
// <cache>/<sha256>/<filename>. The checksum becomes a directory name, so
// anything other than 64 hex characters is rejected.
func (d *Downloader) CachePath(target entities.PlatformTarget) (string, error) {
	key := strings.ToLower(target.SHA256)
	if !services.IsSHA256(key) {
		return "", fmt.Errorf("%w: %s: sha256 %q is not a hex digest", entities.ErrInvalidDescriptor, target.Platform(), target.SHA256)
	}
	return filepath.Join(d.cacheDir, key, target.ArchiveFilename()), nil
}

// Fetch returns a local copy of the target's archive. A cached copy is reused
// only while its digest still matches the declared checksum.
func (d *Downloader) Fetch(ctx context.Context, desc *entities.ReleaseDescriptor, target entities.PlatformTarget) (*entities.Artifact, error) {
	dest, err := d.CachePath(target)
	if err != nil {
		return nil, err
	}
	artifact := &entities.Artifact{
		Name:     desc.Name,
		Version:  desc.Version,
		Platform: target.Platform(),
		Path:     dest,
		Type:     entities.ArtifactArchive,
	}

	if info, err := os.Stat(dest); err == nil && info.Mode().IsRegular() {
		sum, err := d.checksums.CalculateChecksum(dest)
		if err == nil && strings.EqualFold(sum, target.SHA256) {
			d.logger.Info("using cached archive", interfaces.F("path", dest))
			artifact.SHA256 = sum
			artifact.Cached = true
			artifact.Size = info.Size()
			return artifact, nil
		}
		d.logger.Warn("discarding stale cache entry", interfaces.F("path", dest))
		_ = os.Remove(dest)
	}

	size, err := d.Download(ctx, target.URL, dest)
	if err != nil {
		return nil, err
	}
	artifact.Size = size
	return artifact, nil
}

// Discard removes a fetched artifact and its now empty cache directory
func (d *Downloader) Discard(artifact *entities.Artifact) error {
	if err := os.Remove(artifact.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", artifact.Path, err)
	}
	dir := filepath.Dir(artifact.Path)
	if dir != d.cacheDir && strings.HasPrefix(dir, d.cacheDir) {
		_ = os.Remove(dir) // only succeeds when empty
	}
	return nil
}

// Download streams url into dest, retrying transient failures. The body goes
// to a temp file in dest's directory which is renamed on success, so dest is
// never observed half-written.
func (d *Downloader) Download(ctx context.Context, url, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return 0, fmt.Errorf("failed to create download directory: %w", err)
	}

	d.logger.Info("downloading", interfaces.F("url", url))
	start := time.Now()

	resp, err := d.retry.do(ctx, d.httpClient, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", d.userAgent)
		return req, nil
	})
	if err != nil {
		return 0, fmt.Errorf("download %s failed: %w", url, err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download %s failed: HTTP %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	written, err := io.Copy(tmp, resp.Body)
	if err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("failed to write %s: %w", filepath.Base(dest), err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", filepath.Base(dest), err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, fmt.Errorf("failed to move download into place: %w", err)
	}

	d.logger.Info("downloaded",
		interfaces.F("file", filepath.Base(dest)),
		interfaces.F("bytes", written),
		interfaces.F("duration", time.Since(start).String()))
	return written, nil
}
