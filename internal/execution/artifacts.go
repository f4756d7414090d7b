package execution

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/multierr"

	"testme/internal/config"
	"testme/internal/domain"
)

// CleanArtifacts removes every artifact directory under root and returns the
// directories removed. Directories named in skipDirs are not descended into.
func CleanArtifacts(root string, skipDirs []string) ([]string, error) {
	var removed []string
	var errs error
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) && path != root {
				return fs.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == config.ArtifactDirName {
			if err := os.RemoveAll(path); err != nil {
				errs = multierr.Append(errs, err)
			} else {
				removed = append(removed, path)
			}
			return fs.SkipDir
		}
		if path != root && slices.Contains(skipDirs, d.Name()) {
			return fs.SkipDir
		}
		return nil
	})
	return removed, multierr.Append(errs, walkErr)
}

// pruneArtifactRoots removes the artifact roots of tests once they are empty.
// It must only run after every test of the group has finished.
func pruneArtifactRoots(tests []domain.TestFile) {
	seen := make(map[string]bool)
	for _, test := range tests {
		if test.ArtifactDir == "" {
			continue
		}
		root := filepath.Dir(test.ArtifactDir)
		if seen[root] {
			continue
		}
		seen[root] = true
		// fails while kept artifacts remain
		_ = os.Remove(root)
	}
}
