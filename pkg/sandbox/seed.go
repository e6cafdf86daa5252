package sandbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/marmos91/sandboxfs/internal/logger"
	"github.com/marmos91/sandboxfs/pkg/store/tree"
)

// Seed creates an initial structure. A path ending in "/" names a directory,
// any other path a file; missing parent directories are created. Entries that
// already exist are left alone, so seeding a persistent origin twice is
// harmless.
//
// Seeding bypasses admission throttling and metrics.
func (fs *FileSystem) Seed(ctx context.Context, paths []string) error {
	for _, p := range paths {
		isDir := strings.HasSuffix(p, "/")
		cleaned := tree.CleanPath(p)
		if cleaned == "/" {
			continue
		}

		components := tree.SplitPath(cleaned)
		dir := ""
		for _, name := range components[:len(components)-1] {
			dir += "/" + name
			if _, err := fs.store.CreateDirectory(ctx, dir); err != nil {
				return fmt.Errorf("seed %s: %w", p, err)
			}
		}

		var err error
		if isDir {
			_, err = fs.store.CreateDirectory(ctx, cleaned)
		} else {
			_, err = fs.store.CreateFile(ctx, cleaned)
		}
		if err != nil {
			return fmt.Errorf("seed %s: %w", p, err)
		}
	}

	logger.Debug("Seeded origin %s with %d path(s)", fs.origin, len(paths))
	return nil
}
