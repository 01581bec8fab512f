package platform

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// rename is swapped in tests to simulate failed promotions.
var rename = os.Rename

// WriteFileAtomic replaces path with data by writing a temp file in the same
// directory and renaming it over the target. Parent directories are created.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err := Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", tmpPath, err)
	}
	if err := rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// FileState describes what is on disk at a path relative to wanted content.
type FileState int

const (
	// FileMissing means nothing exists at the path.
	FileMissing FileState = iota
	// FileSame means the file exists with identical content.
	FileSame
	// FileDiffers means the file exists with different content.
	FileDiffers
)

// Compare reports how the file at path relates to want.
func Compare(path string, want []byte) (FileState, error) {
	got, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return FileMissing, nil
	}
	if err != nil {
		return FileMissing, fmt.Errorf("reading %s: %w", path, err)
	}
	if bytes.Equal(got, want) {
		return FileSame, nil
	}
	return FileDiffers, nil
}

// Exists reports whether path exists.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// StagingDir creates an empty directory next to dest so that promoting it
// with a rename never crosses filesystems.
func StagingDir(dest, suffix string) (string, error) {
	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return "", fmt.Errorf("creating %s: %w", parent, err)
	}
	dir, err := os.MkdirTemp(parent, "."+filepath.Base(dest)+".staging-"+suffix+"-")
	if err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}
	if err := Chmod(dir, 0755); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("setting permissions on %s: %w", dir, err)
	}
	return dir, nil
}

// BackupPath returns a unique sibling path for moving dest aside.
func BackupPath(dest string, now time.Time, suffix string) string {
	stamp := now.UTC().Format("20060102T150405Z")
	return filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+".backup-"+stamp+"-"+suffix)
}

// ReplaceDir promotes staging to dest. When backup is non-empty the existing
// dest is first moved to backup; if the promotion then fails the backup is
// restored before the error is returned. The caller removes backup on success.
func ReplaceDir(staging, dest, backup string) error {
	if backup == "" {
		if err := rename(staging, dest); err != nil {
			return fmt.Errorf("promoting %s: %w", dest, err)
		}
		return nil
	}

	if err := rename(dest, backup); err != nil {
		return fmt.Errorf("backing up %s: %w", dest, err)
	}
	if err := rename(staging, dest); err != nil {
		if rbErr := RollbackDir(backup, dest); rbErr != nil {
			return fmt.Errorf("promoting %s: %w (rollback failed: %v)", dest, err, rbErr)
		}
		return fmt.Errorf("promoting %s, restored previous contents: %w", dest, err)
	}
	return nil
}

// RollbackDir moves backup back to dest.
func RollbackDir(backup, dest string) error {
	if err := rename(backup, dest); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return nil
}

// RelSlash returns target relative to root in forward-slash form, rejecting
// paths that escape root.
func RelSlash(root, target string) (string, error) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", target, root)
	}
	return filepath.ToSlash(rel), nil
}

// SafeJoin joins a slash-separated relative path onto root and rejects
// results that escape root.
func SafeJoin(root, rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes %s", rel, root)
	}
	return filepath.Join(root, clean), nil
}
