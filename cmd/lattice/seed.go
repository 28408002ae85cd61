package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
)

// seed registers every manifest file of dir. Files whose id is already
// registered are updated instead of duplicated.
func seed(ctx context.Context, a *app, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	for _, path := range paths {
		m, err := readManifest(path)
		if err != nil {
			return 0, err
		}
		if _, err := a.svc.Get(ctx, m.ID); err == nil {
			if _, err := a.svc.Update(ctx, m.ID, m, "seeded from "+filepath.Base(path), "lattice"); err != nil {
				return 0, err
			}
			continue
		} else if !isNotFound(err) {
			return 0, err
		}
		if _, err := a.svc.Create(ctx, m, "lattice"); err != nil {
			return 0, err
		}
	}
	return len(paths), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrManifestNotFound)
}
