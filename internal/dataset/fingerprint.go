package dataset

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nemaeval/nema-eval/internal/pkg/errors"
	"github.com/nemaeval/nema-eval/internal/pkg/hash"
)

// Fingerprint hashes every non-ignored file under the manifest's ground
// truth and job directories. It changes whenever a file is added, removed
// or edited, and stays the same when files are only touched.
func Fingerprint(m *Manifest) (string, error) {
	entries := make(map[string]string)

	for _, dir := range m.Dirs() {
		filter := newIgnoreFilter(dir, m.Exclude)
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) && path == dir {
					return nil
				}
				return err
			}
			if path == dir {
				return nil
			}
			if filter.ShouldIgnore(path, d.IsDir()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}

			sum, err := hash.File(path)
			if err != nil {
				return err
			}
			entries[filepath.ToSlash(path)] = sum
			return nil
		})
		if err != nil {
			return "", errors.Wrap(errors.CodeInternal, "fingerprint "+dir, err)
		}
	}

	return hash.Manifest(entries), nil
}
