package processor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"dva/errs"
	"dva/models"
	"dva/transfer"

	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type datasetLister interface {
	ListFiles(ctx context.Context, datasetID string) ([]models.DataFile, error)
}

type fileDownloader interface {
	Download(ctx context.Context, f models.DataFile, destRoot string) (string, error)
}

type fileUploader interface {
	Upload(ctx context.Context, datasetID, localPath, directoryLabel string) error
}

// VerifyFunc checks a downloaded file against its listing checksum
type VerifyFunc func(path string, expected models.Checksum) error

// Processor drives list, download and upload of one dataset
type Processor struct {
	lister     datasetLister
	downloader fileDownloader
	uploader   fileUploader
	verify     VerifyFunc
	log        *zap.SugaredLogger
}

// Dependencies configuration for creating a processor
type Dependencies struct {
	Lister     datasetLister
	Downloader fileDownloader
	Uploader   fileUploader
	Verify     VerifyFunc
	Logger     *zap.SugaredLogger
}

// Config holds per-run options
type Config struct {
	// KeepGoing continues with the remaining files after a failure and
	// reports every failure at the end
	KeepGoing bool
}

// Stats transfer statistics
type Stats struct {
	TotalFiles       int
	TransferredFiles int
	ErrorFiles       int
}

// UploadItem one local file and the directory label it is uploaded under
type UploadItem struct {
	Path           string
	DirectoryLabel string
}

// NewProcessor creates a new processor
func NewProcessor(d *Dependencies) *Processor {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Processor{
		lister:     d.Lister,
		downloader: d.Downloader,
		uploader:   d.Uploader,
		verify:     d.Verify,
		log:        logger,
	}
}

// List returns the dataset's files in server order
func (p *Processor) List(ctx context.Context, datasetID string) ([]models.DataFile, error) {
	files, err := p.lister.ListFiles(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files of %s: %w", datasetID, err)
	}
	return files, nil
}

// RemotePaths maps entries to their in-dataset paths
func RemotePaths(files []models.DataFile) []string {
	return lo.Map(files, func(f models.DataFile, _ int) string {
		return transfer.RemotePath(f)
	})
}

// Download fetches every file of the dataset into dest and verifies each
// checksum. The first failure stops the run unless cfg.KeepGoing is set.
func (p *Processor) Download(ctx context.Context, datasetID, dest string, cfg Config) (Stats, error) {
	files, err := p.List(ctx, datasetID)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{}
	var errList error
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return stats, multierr.Append(errList, err)
		}
		stats.TotalFiles++

		if err := p.downloadOne(ctx, f, dest); err != nil {
			stats.ErrorFiles++
			p.log.Errorw("Download failed", "path", transfer.RemotePath(f), "id", f.ID,
				"kind", errs.Classify(err), "error", err)
			if !cfg.KeepGoing {
				return stats, err
			}
			errList = multierr.Append(errList, err)
			continue
		}
		stats.TransferredFiles++
	}

	p.log.Infof("Download completed! Files processed: %d, downloaded: %d, errors: %d",
		stats.TotalFiles, stats.TransferredFiles, stats.ErrorFiles)
	return stats, errList
}

func (p *Processor) downloadOne(ctx context.Context, f models.DataFile, dest string) error {
	p.log.Infof("Downloading %s, id %d", transfer.RemotePath(f), f.ID)

	path, err := p.downloader.Download(ctx, f, dest)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", transfer.RemotePath(f), err)
	}
	p.log.Debugf("Saved %s as %s", transfer.RemotePath(f), path)
	if p.verify == nil {
		return nil
	}

	if err := p.verify(path, f.Checksum); err != nil {
		return fmt.Errorf("failed to verify %s: %w", path, err)
	}
	p.log.Infof("Verified file checksum for %s.", path)
	return nil
}

// CollectUploads lists the files to upload from src. A single file is
// uploaded at the dataset root; files found under a directory keep their
// relative sub-directory as directory label.
func CollectUploads(src string) ([]UploadItem, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", src, err)
	}
	if !info.IsDir() {
		return []UploadItem{{Path: src}}, nil
	}

	var items []UploadItem
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(src, filepath.Dir(path))
		if err != nil {
			return err
		}
		label := filepath.ToSlash(rel)
		if label == "." {
			label = ""
		}
		items = append(items, UploadItem{Path: path, DirectoryLabel: label})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", src, err)
	}
	return items, nil
}

// Upload adds src (a file or a directory tree) to the dataset
func (p *Processor) Upload(ctx context.Context, src, datasetID string, cfg Config) (Stats, error) {
	items, err := CollectUploads(src)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{}
	var errList error
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return stats, multierr.Append(errList, err)
		}
		stats.TotalFiles++

		p.log.Infof("Uploading %s", item.Path)
		if err := p.uploader.Upload(ctx, datasetID, item.Path, item.DirectoryLabel); err != nil {
			stats.ErrorFiles++
			p.log.Errorw("Upload failed", "path", item.Path, "kind", errs.Classify(err), "error", err)
			if !cfg.KeepGoing {
				return stats, err
			}
			errList = multierr.Append(errList, err)
			continue
		}
		stats.TransferredFiles++
	}

	p.log.Infof("Upload completed! Files processed: %d, uploaded: %d, errors: %d",
		stats.TotalFiles, stats.TransferredFiles, stats.ErrorFiles)
	return stats, errList
}

// ErrBothDatasets and ErrNoDataset are returned by Route
var (
	ErrBothDatasets = errors.New("only one of SRC and DEST arguments can be a DOI")
	ErrNoDataset    = errors.New("one of SRC or DEST arguments must be a DOI")
)

// Direction of a cp invocation
type Direction int

const (
	DirectionDownload Direction = iota + 1
	DirectionUpload
)

// Route decides whether `cp src dest` downloads or uploads. Exactly one
// side must be a "doi:" identifier.
func Route(src, dest string) (Direction, error) {
	srcIsDOI := isDOI(src)
	destIsDOI := isDOI(dest)
	switch {
	case srcIsDOI && destIsDOI:
		return 0, ErrBothDatasets
	case srcIsDOI:
		return DirectionDownload, nil
	case destIsDOI:
		return DirectionUpload, nil
	default:
		return 0, ErrNoDataset
	}
}

func isDOI(s string) bool {
	return strings.HasPrefix(s, "doi:")
}
