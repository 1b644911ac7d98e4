// Package transfer moves datafiles between a dataset and the local
// filesystem through a pluggable clients.Transport.
package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"dva/clients"
	"dva/errs"
	"dva/models"

	"go.uber.org/multierr"
	"golang.org/x/time/rate"
)

// maxErrorBody bounds how much of a failed response is read for its message
const maxErrorBody = 64 * 1024

const copyBufferSize = 128 * 1024

// Downloader streams datafiles into local files
type Downloader struct {
	Transport clients.Transport
	// Limiter caps throughput when set
	Limiter *rate.Limiter
	// Temps receives the in-progress file of every download
	Temps *TempFiles
}

// NewDownloader creates a new downloader
func NewDownloader(t clients.Transport, limiter *rate.Limiter) *Downloader {
	return &Downloader{
		Transport: t,
		Limiter:   limiter,
		Temps:     &TempFiles{},
	}
}

// Download retrieves f into destRoot and returns the local path. Ingested
// files are fetched in their original format and named after the server's
// Content-Disposition filename. Nothing is left at the local path when
// the download fails.
func (d *Downloader) Download(ctx context.Context, f models.DataFile, destRoot string) (string, error) {
	original := f.IsIngested()

	resp, err := d.Transport.Fetch(ctx, models.FetchRequest{FileID: f.ID, Original: original})
	if err != nil {
		return "", &errs.DownloadError{FileID: f.ID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &errs.DownloadError{
			FileID:     f.ID,
			StatusCode: resp.StatusCode,
			Message:    clients.ServerMessage(body),
		}
	}

	var filename string
	if original {
		filename, err = DownloadFilename(resp.Header.Get("Content-Disposition"))
		if err != nil {
			return "", err
		}
	}

	localPath := LocalPath(f, destRoot, filename)
	if !Within(destRoot, localPath) {
		return "", &errs.MalformedResponseError{
			What:  "file path leaves the destination directory",
			Value: RemotePath(f),
		}
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return "", &errs.DownloadError{FileID: f.ID, Err: fmt.Errorf("failed to create directory: %w", err)}
	}

	if err := d.writeFile(ctx, localPath, resp.Body); err != nil {
		return "", &errs.DownloadError{FileID: f.ID, Err: err}
	}
	return localPath, nil
}

// writeFile copies body into a fresh temp file next to path and commits
// it once the copy is complete.
func (d *Downloader) writeFile(ctx context.Context, path string, body io.Reader) (err error) {
	temps := d.Temps
	if temps == nil {
		temps = &TempFiles{}
	}

	tmp, err := temps.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	defer func() {
		if err != nil {
			temps.Discard(tmp.Name())
		}
	}()

	_, err = io.CopyBuffer(tmp, throttle(ctx, body, d.Limiter), make([]byte, copyBufferSize))
	err = multierr.Append(err, tmp.Chmod(0o644))
	err = multierr.Append(err, tmp.Close())
	if err != nil {
		return fmt.Errorf("failed to write to local file: %w", err)
	}

	if err := temps.Commit(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move local file into place: %w", err)
	}
	return nil
}
