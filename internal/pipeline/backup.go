package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BackupPath returns <dir>/<stem>_backup<ext> for path.
func BackupPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_backup" + ext
}

// BackupExisting copies the file at path to its backup path when path exists
// and no backup exists yet. An existing backup is never overwritten.
func BackupExisting(path string) (string, bool, error) {
	src, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("open destination for backup: %w", err)
	}
	defer src.Close()

	backup := BackupPath(path)
	dst, err := os.OpenFile(backup, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return backup, false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("create backup: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(backup)
		return "", false, fmt.Errorf("copy backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(backup)
		return "", false, fmt.Errorf("close backup: %w", err)
	}

	return backup, true, nil
}
