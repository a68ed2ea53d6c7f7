package importer

import (
	"context"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pavemetrics/asset-cli/internal/store"
)

// Kind selects which CSV schema an import run expects.
type Kind string

const (
	KindAssets   Kind = "assets"
	KindReadings Kind = "readings"
)

// Summary aggregates the outcome of an import run across files.
type Summary struct {
	Files    int        `json:"files"`
	Inserted int        `json:"inserted"`
	Rejected []RowError `json:"rejected,omitempty"`
}

// Importer loads CSV files into the store, several files at a time.
type Importer struct {
	store       store.Store
	concurrency int
}

// New creates an Importer. Concurrency below 1 defaults to 4.
func New(s store.Store, concurrency int) *Importer {
	if concurrency < 1 {
		concurrency = 4
	}
	return &Importer{store: s, concurrency: concurrency}
}

// ImportFiles parses and bulk-inserts every path. Files are processed
// concurrently; a file-level failure aborts the whole run, while row-level
// rejects are collected into the summary.
func (im *Importer) ImportFiles(ctx context.Context, kind Kind, paths []string, tenantID string) (*Summary, error) {
	summary := &Summary{Files: len(paths)}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(im.concurrency)

	for _, path := range paths {
		g.Go(func() error {
			inserted, rejected, err := im.importFile(ctx, kind, path, tenantID)
			if err != nil {
				return eris.Wrapf(err, "importer: %s", path)
			}

			mu.Lock()
			summary.Inserted += inserted
			summary.Rejected = append(summary.Rejected, rejected...)
			mu.Unlock()

			zap.L().Info("file imported",
				zap.String("path", path),
				zap.String("kind", string(kind)),
				zap.Int("inserted", inserted),
				zap.Int("rejected", len(rejected)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}

func (im *Importer) importFile(ctx context.Context, kind Kind, path, tenantID string) (int, []RowError, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, eris.Wrap(err, "open")
	}
	defer f.Close()

	switch kind {
	case KindAssets:
		assets, rejected, err := ParseAssets(ctx, f, tenantID)
		if err != nil {
			return 0, nil, err
		}
		n, err := im.store.BulkInsertAssets(ctx, assets)
		return n, rejected, err

	case KindReadings:
		readings, rejected, err := ParseReadings(ctx, f, tenantID)
		if err != nil {
			return 0, nil, err
		}
		n, err := im.store.BulkInsertReadings(ctx, readings)
		return n, rejected, err

	default:
		return 0, nil, eris.Errorf("unknown import kind %q", kind)
	}
}
