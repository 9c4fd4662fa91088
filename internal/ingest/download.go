package ingest

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/truthengine/backend-go/internal/config"
	apperrors "github.com/truthengine/backend-go/internal/errors"
)

type dataset struct {
	name   string
	subdir string
}

// 公开归档中的两个数据集，顺序即返回顺序
var datasets = []dataset{
	{name: "notes-00000", subdir: "notes"},
	{name: "noteStatusHistory-00000", subdir: "noteStatusHistory"},
}

// Downloader 从公开归档获取最新的社区笔记数据
type Downloader struct {
	client   *http.Client
	baseURL  string
	dataDir  string
	lookback int
	logger   *zap.Logger
	now      func() time.Time
}

func NewDownloader(cfg config.IngestConfig, logger *zap.Logger) *Downloader {
	lookback := cfg.LookbackDays
	if lookback <= 0 {
		lookback = 3
	}
	return &Downloader{
		client:   &http.Client{Timeout: cfg.DownloadTimeout},
		baseURL:  strings.TrimRight(cfg.DownloadBaseURL, "/"),
		dataDir:  cfg.DataDir,
		lookback: lookback,
		logger:   logger,
		now:      time.Now,
	}
}

// FetchLatest 从今天开始向前尝试，返回同一天的笔记与状态文件路径
func (d *Downloader) FetchLatest(ctx context.Context) (string, string, error) {
	if err := os.MkdirAll(d.dataDir, 0o755); err != nil {
		return "", "", apperrors.NewInputFileError(d.dataDir, "cannot create data directory", err)
	}

	for daysAgo := 0; daysAgo < d.lookback; daysAgo++ {
		day := d.now().AddDate(0, 0, -daysAgo)
		log := d.logger.With(zap.String("date", day.Format("2006/01/02")))
		log.Info("Trying to download community notes data")

		paths, err := d.fetchDay(ctx, day, log)
		if err != nil {
			if ctx.Err() != nil {
				return "", "", ctx.Err()
			}
			log.Warn("Data not available for date", zap.Error(err))
			continue
		}
		log.Info("Community notes data ready", zap.Strings("files", paths))
		return paths[0], paths[1], nil
	}

	return "", "", apperrors.NewInputFileError(d.baseURL,
		fmt.Sprintf("failed to download data from the last %d days", d.lookback), nil)
}

func (d *Downloader) fetchDay(ctx context.Context, day time.Time, log *zap.Logger) ([]string, error) {
	datePath := day.Format("2006/01/02")
	paths := make([]string, 0, len(datasets))

	for _, ds := range datasets {
		target := filepath.Join(d.dataDir, fmt.Sprintf("%s_%s.tsv", day.Format("2006-01-02"), ds.name))
		paths = append(paths, target)

		if _, err := os.Stat(target); err == nil {
			log.Info("File already exists, skipping download", zap.String("file", target))
			continue
		}

		zipURL := fmt.Sprintf("%s/%s/%s/%s.zip", d.baseURL, datePath, ds.subdir, ds.name)
		err := d.downloadZip(ctx, zipURL, target)
		if err == nil {
			continue
		}
		log.Debug("ZIP download failed, trying TSV", zap.String("url", zipURL), zap.Error(err))

		tsvURL := fmt.Sprintf("%s/%s/%s/%s.tsv", d.baseURL, datePath, ds.subdir, ds.name)
		if err = d.downloadFile(ctx, tsvURL, target); err == nil {
			continue
		}
		log.Debug("TSV download failed, trying legacy URL", zap.String("url", tsvURL), zap.Error(err))

		legacyURL := fmt.Sprintf("%s/%s/%s.tsv", d.baseURL, datePath, ds.name)
		if err = d.downloadFile(ctx, legacyURL, target); err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", ds.name, err)
		}
	}
	return paths, nil
}

// downloadFile 先写临时文件，成功后改名，失败时删除残留
func (d *Downloader) downloadFile(ctx context.Context, url, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}

	return writeAtomically(target, resp.Body)
}

func (d *Downloader) downloadZip(ctx context.Context, url, target string) error {
	archive := target + ".zip"
	if err := d.downloadFile(ctx, url, archive); err != nil {
		return err
	}
	defer os.Remove(archive)

	zr, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".tsv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s in archive: %w", f.Name, err)
		}
		defer rc.Close()
		return writeAtomically(target, rc)
	}
	return errors.New("no TSV file in archive")
}

func writeAtomically(target string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".*.part")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
