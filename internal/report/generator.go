package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/marketpulse/internal/contracts"
	"github.com/wonny/marketpulse/pkg/logger"
)

// ErrUnknownFormat is returned for a report format without a writer
var ErrUnknownFormat = errors.New("unknown report format")

// Writer renders records into a single file
type Writer interface {
	Extension() string
	Write(path string, records []contracts.MetricRecord) error
}

// WriterFor returns the writer for a format name (csv, html, xlsx, parquet)
func WriterFor(format string) (Writer, error) {
	switch format {
	case "csv":
		return CSVWriter{}, nil
	case "html":
		return HTMLWriter{}, nil
	case "xlsx":
		return XLSXWriter{}, nil
	case "parquet":
		return ParquetWriter{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// Generator writes one report file per configured format
// ⭐ SSOT: 리포트 파일명 규칙은 여기서만
type Generator struct {
	dir     string
	writers []Writer
	logger  *logger.Logger
	now     func() time.Time
}

var _ contracts.Reporter = (*Generator)(nil)

// NewGenerator creates a Generator writing into dir
func NewGenerator(dir string, formats []string, log *logger.Logger) (*Generator, error) {
	g := &Generator{
		dir:    dir,
		logger: log.WithField("module", "report"),
		now:    time.Now,
	}
	seen := make(map[string]bool)
	for _, format := range formats {
		if seen[format] {
			continue
		}
		seen[format] = true
		w, err := WriterFor(format)
		if err != nil {
			return nil, err
		}
		g.writers = append(g.writers, w)
	}
	return g, nil
}

// BaseName returns the shared file name (without extension) for a run at t
func BaseName(t time.Time) string {
	return "market_report_" + t.Format("20060102_150405")
}

// Generate writes every format concurrently. The first failing writer's error is returned.
func (g *Generator) Generate(ctx context.Context, records []contracts.MetricRecord) error {
	_, err := g.GenerateFiles(ctx, records)
	return err
}

// GenerateFiles is Generate returning the written paths in format order
func (g *Generator) GenerateFiles(ctx context.Context, records []contracts.MetricRecord) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}

	base := filepath.Join(g.dir, BaseName(g.now()))
	paths := make([]string, len(g.writers))

	eg, ctx := errgroup.WithContext(ctx)
	for i, w := range g.writers {
		path := base + "." + w.Extension()
		paths[i] = path
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			if err := w.Write(path, records); err != nil {
				return fmt.Errorf("write %s report: %w", w.Extension(), err)
			}
			g.logger.WithFields(map[string]interface{}{
				"path":     path,
				"records":  len(records),
				"duration": time.Since(start).String(),
			}).Info("Report generated")
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		g.removePartial(paths)
		return nil, err
	}
	return paths, nil
}

// removePartial deletes whatever a failed run left behind so a report set is
// either complete or absent.
func (g *Generator) removePartial(paths []string) {
	var removed []string
	for _, path := range paths {
		err := os.Remove(path)
		switch {
		case err == nil:
			removed = append(removed, path)
		case !os.IsNotExist(err):
			g.logger.WithError(err).WithField("path", path).Warn("Failed to remove partial report")
		}
	}
	if len(removed) > 0 {
		g.logger.WithFields(map[string]interface{}{
			"paths": removed,
		}).Warn("Removed partial report files")
	}
}
