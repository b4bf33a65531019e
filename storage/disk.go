package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// DiskStorage writes files below Root, one directory per folder. They are
// served back under URLPrefix.
type DiskStorage struct {
	Root      string
	URLPrefix string
}

func NewDiskStorage(root string) (*DiskStorage, error) {
	for _, folder := range append(folderNames(), "misc") {
		if err := os.MkdirAll(filepath.Join(root, folder), 0o755); err != nil {
			return nil, fmt.Errorf("create upload folder %s: %w", folder, err)
		}
	}
	return &DiskStorage{Root: root, URLPrefix: "/uploads"}, nil
}

func (d *DiskStorage) Name() string { return "disk" }

func (d *DiskStorage) Save(_ context.Context, folder, filename, _ string, r io.Reader, _ int64) (string, error) {
	if err := cleanPath(folder, filename); err != nil {
		return "", err
	}
	f, err := os.OpenFile(filepath.Join(d.Root, folder, filename), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", filename, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", filename, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path.Join(d.URLPrefix, folder, filename), nil
}

func (d *DiskStorage) Delete(_ context.Context, folder, filename string) error {
	if err := cleanPath(folder, filename); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(d.Root, folder, filename))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func folderNames() []string {
	names := make([]string, 0, len(folders))
	for _, f := range folders {
		names = append(names, f)
	}
	return names
}
