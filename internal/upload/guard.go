// Package upload owns temporary files received with a request.
package upload

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// TempUpload is a request-scoped file that must be removed before the response is sent.
// Release is safe to call any number of times, and on a nil receiver.
type TempUpload struct {
	path string
	log  *slog.Logger
	once sync.Once
}

// Acquire takes ownership of path. An empty path yields a guard whose Release is a no-op.
func Acquire(path string, log *slog.Logger) *TempUpload {
	return &TempUpload{path: path, log: log}
}

func (t *TempUpload) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

func (t *TempUpload) Present() bool {
	return t.Path() != ""
}

func (t *TempUpload) Size() (int64, error) {
	info, err := os.Stat(t.Path())
	if err != nil {
		return 0, fmt.Errorf("stat upload: %w", err)
	}
	return info.Size(), nil
}

// TooLargeMessage is the user-facing text for an upload over limit bytes.
func TooLargeMessage(label string, limit int64) string {
	return fmt.Sprintf("%s file size exceeds %dMB limit", label, limit>>20)
}

// Exceeds reports whether the file is larger than limit bytes.
func (t *TempUpload) Exceeds(limit int64) (bool, error) {
	size, err := t.Size()
	if err != nil {
		return false, err
	}
	return size > limit, nil
}

// Release deletes the file. A file that is already gone counts as released.
// Deletion failures are logged, never returned.
func (t *TempUpload) Release() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		if t.path == "" {
			return
		}
		if _, err := os.Stat(t.path); errors.Is(err, fs.ErrNotExist) {
			return
		}
		if err := os.Remove(t.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			if t.log != nil {
				t.log.Error("failed to remove temp upload", "path", t.path, "err", err)
			}
		}
	})
}

// Spool copies r into a new file under dir and returns its path.
// At most limit+1 bytes are written so oversize uploads stay detectable without filling the disk.
func Spool(dir, name string, r io.Reader, limit int64) (string, error) {
	pattern := "upload-*" + filepath.Ext(filepath.Base(name))
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	_, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return path, nil
}
