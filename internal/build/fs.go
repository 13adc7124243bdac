package build

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// buildOutputDirs — директории с результатами компиляции.
var buildOutputDirs = map[string]bool{
	"bin": true,
	"obj": true,
}

// DeleteBuildOutputs удаляет все директории bin и obj внутри root
// (на любой глубине, включая сам root/bin). Отсутствующий root не ошибка.
func DeleteBuildOutputs(root string) ([]string, error) {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root && buildOutputDirs[d.Name()] {
			found = append(found, path)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	for _, dir := range found {
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("delete %s: %w", dir, err)
		}
	}
	return found, nil
}

// EnsureCleanDirectory создаёт dir, если её нет, и удаляет её содержимое.
func EnsureCleanDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("clean %s: %w", dir, err)
		}
	}
	return nil
}
