package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalUploader writes files under dir and serves them from baseURL, which
// the router maps onto dir.
type LocalUploader struct {
	dir     string
	baseURL string
}

func NewLocalUploader(dir, baseURL string) *LocalUploader {
	return &LocalUploader{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

func (u *LocalUploader) Upload(_ context.Context, r io.Reader, filename, folder string) (Asset, error) {
	name := UniqueName(filename)
	folder = cleanFolder(folder)
	publicID := path.Join(folder, name)

	target := filepath.Join(u.dir, filepath.FromSlash(publicID))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Asset{}, fmt.Errorf("failed to create upload folder: %w", err)
	}
	out, err := os.Create(target)
	if err != nil {
		return Asset{}, fmt.Errorf("failed to save file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		_ = os.Remove(target)
		return Asset{}, fmt.Errorf("failed to save file: %w", err)
	}

	return Asset{
		URL:      u.baseURL + "/" + publicID,
		PublicID: publicID,
		Format:   strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."),
		Filename: name,
	}, nil
}

// Delete removes a previously uploaded file. Missing files are not an error.
func (u *LocalUploader) Delete(_ context.Context, publicID string) error {
	clean := path.Clean("/" + publicID)
	if clean == "/" {
		return errors.New("empty public id")
	}
	target := filepath.Join(u.dir, filepath.FromSlash(clean))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func cleanFolder(folder string) string {
	folder = strings.Trim(path.Clean("/"+folder), "/")
	if folder == "" || folder == "." {
		return "misc"
	}
	return folder
}
