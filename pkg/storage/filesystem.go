package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// UploadArchive keeps a dated copy of every reconciled upload CSV on disk so
// a disputed roster state can be traced back to the file that produced it.
type UploadArchive struct {
	baseDir string
}

// NewUploadArchive ensures the base directory exists and returns a handle.
func NewUploadArchive(baseDir string) (*UploadArchive, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload archive directory: %w", err)
	}
	return &UploadArchive{baseDir: baseDir}, nil
}

// Store copies an upload under <kind>/<timestamp>-<filename> and returns the
// relative path.
func (a *UploadArchive) Store(kind, filename string, r io.Reader) (string, error) {
	rel := filepath.Join(kind, fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405"), filepath.Base(filename)))
	path := filepath.Join(a.baseDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare archive directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write archive file: %w", err)
	}
	return rel, nil
}

// Open returns a read-only handle for an archived upload.
func (a *UploadArchive) Open(rel string) (*os.File, error) {
	file, err := os.Open(filepath.Join(a.baseDir, rel))
	if err != nil {
		return nil, fmt.Errorf("open archived upload: %w", err)
	}
	return file, nil
}

// CleanupOlderThan removes archived uploads older than the TTL and returns
// the deleted relative paths.
func (a *UploadArchive) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	deleted := make([]string, 0)
	err := filepath.WalkDir(a.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, err := filepath.Rel(a.baseDir, path)
		if err != nil {
			rel = path
		}
		deleted = append(deleted, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup upload archive: %w", err)
	}
	return deleted, nil
}
