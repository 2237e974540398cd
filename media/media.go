// Package media stores uploaded images either on Cloudinary or on local disk.
package media

import (
	"context"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/google/uuid"
)

// Asset describes a stored image.
type Asset struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Format   string `json:"format,omitempty"`
	Filename string `json:"filename"`
}

// Uploader stores and removes images.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, filename, folder string) (Asset, error)
	Delete(ctx context.Context, publicID string) error
}

const DefaultMaxBytes = 10 << 20

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Allowed reports whether filename has an accepted image extension.
func Allowed(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Validate rejects missing, oversized or non-image uploads.
func Validate(filename string, size, maxBytes int64) error {
	if filename == "" {
		return apperrors.Validation("No file provided")
	}
	if !Allowed(filename) {
		return apperrors.Validation("Invalid file type. Allowed: png, jpg, jpeg, gif, webp")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if size > maxBytes {
		return apperrors.Validation("File too large. Maximum size is %d MB", maxBytes>>20)
	}
	return nil
}

// Sanitize reduces an uploaded name to a safe base name, dropping repeated
// image extensions such as "cake.jpg.jpg".
func Sanitize(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(name, filepath.Ext(name))
	for {
		e := strings.ToLower(filepath.Ext(base))
		if e == "" || !allowedExtensions[e] {
			break
		}
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Trim(unsafeChars.ReplaceAllString(base, ""), "._-")
	if base == "" {
		base = "image"
	}
	return base + ext
}

// UniqueName is "{uuid}_{sanitized name}".
func UniqueName(filename string) string {
	return uuid.NewString() + "_" + Sanitize(filename)
}
