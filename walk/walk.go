// Package walk implements the recursive directory walker and concurrent
// per-file dispatcher.
package walk

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kimobu/machp/internal/reader"
	"github.com/kimobu/machp/machoformat"
)

// maxConcurrency bounds the number of files decoded in parallel during a
// recursive walk.
const maxConcurrency = 8

// Result is one file's decode outcome.
type Result struct {
	Path string
	File *machoformat.File
	Err  error
}

// Files decodes a single path and returns one Result.
func Files(ctx context.Context, path string, logger *zap.Logger) Result {
	return decodeOne(path, logger)
}

// Recursive walks root, decoding every non-directory entry it finds. Per-file
// errors are collected on the Result and never cancel the group — one bad
// file does not stop the others from being visited.
func Recursive(ctx context.Context, root string, logger *zap.Logger) ([]Result, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	results := make([]Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	var mu sync.Mutex
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			default:
			}
			r := decodeOne(p, logger)
			mu.Lock()
			results[i] = r
			mu.Unlock()
			return nil
		})
	}
	// Intentionally ignore the error return: per-file failures are
	// carried on each Result, not propagated as a group failure.
	_ = g.Wait()
	return results, nil
}

func decodeOne(path string, logger *zap.Logger) Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Path: path, Err: machoformat.FileNotFound(path, err)}
	}
	logger.Debug("decoding file", zap.String("path", path), zap.Int("size", len(data)))

	f, err := machoformat.Decode(reader.New(data))
	if err != nil {
		return Result{Path: path, Err: err}
	}
	return Result{Path: path, File: f}
}
