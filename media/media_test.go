package media

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("cake.PNG", 1024, 0))
	assert.NoError(t, Validate("cake.webp", DefaultMaxBytes, DefaultMaxBytes))

	for _, tc := range []struct {
		name string
		size int64
	}{
		{"", 10},
		{"notes.pdf", 10},
		{"script.jpg.exe", 10},
		{"huge.jpg", DefaultMaxBytes + 1},
	} {
		err := Validate(tc.name, tc.size, DefaultMaxBytes)
		assert.True(t, apperrors.Is(err, apperrors.TypeValidation), "%q should be rejected", tc.name)
	}
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"birthday cake.jpg":     "birthday_cake.jpg",
		"cake.jpg.jpg":          "cake.jpg",
		"../../etc/passwd.png":  "passwd.png",
		`C:\Users\me\photo.JPG`: "photo.jpg",
		"$$$.gif":               "image.gif",
		"ünïcode name!.webp":    "ncode_name.webp",
	}
	for in, want := range tests {
		assert.Equal(t, want, Sanitize(in), in)
	}
}

func TestUniqueName(t *testing.T) {
	name := UniqueName("my cake.png")
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f-]{36}_my_cake\.png$`), name)
	assert.NotEqual(t, name, UniqueName("my cake.png"))
}

func TestLocalUploader(t *testing.T) {
	dir := t.TempDir()
	u := NewLocalUploader(dir, "/uploads/")
	ctx := context.Background()

	asset, err := u.Upload(ctx, strings.NewReader("png-bytes"), "ref photo.png", "cart_items")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(asset.URL, "/uploads/cart_items/"))
	assert.True(t, strings.HasPrefix(asset.PublicID, "cart_items/"))
	assert.Equal(t, "png", asset.Format)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(asset.PublicID)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, u.Delete(ctx, asset.PublicID))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(asset.PublicID)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, u.Delete(ctx, asset.PublicID), "deleting twice is fine")
	assert.Error(t, u.Delete(ctx, ""))
}

func TestLocalUploader_FolderCannotEscape(t *testing.T) {
	dir := t.TempDir()
	u := NewLocalUploader(dir, "/uploads")

	asset, err := u.Upload(context.Background(), strings.NewReader("x"), "a.jpg", "../../outside")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(asset.PublicID, "outside/"))
	_, err = os.Stat(filepath.Join(dir, "outside"))
	assert.NoError(t, err)
}

func TestCloudinaryUploader(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"public_id":"cakes2/cakes/abc","secure_url":"https://res.cloudinary.com/demo/abc.png","width":800,"height":600,"format":"png"}`))
	}))
	defer srv.Close()

	u, err := NewCloudinaryUploader("demo", "key", "secret")
	require.NoError(t, err)
	u.cld.Config.API.UploadPrefix = srv.URL

	asset, err := u.Upload(context.Background(), bytes.NewReader([]byte("img")), "abc.png", "cakes")
	require.NoError(t, err)
	assert.Contains(t, gotPath, "/demo/")
	assert.Equal(t, "https://res.cloudinary.com/demo/abc.png", asset.URL)
	assert.Equal(t, "cakes2/cakes/abc", asset.PublicID)
	assert.Equal(t, 800, asset.Width)
	assert.Equal(t, 600, asset.Height)
}

func TestBackup_NextRun(t *testing.T) {
	b := NewBackup("src", "dst", 4, 2, zap.NewNop())

	before := time.Date(2026, 5, 1, 1, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 5, 1, 2, 0, 0, 0, time.UTC), b.NextRun(before))

	after := time.Date(2026, 5, 1, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 5, 2, 2, 0, 0, 0, time.UTC), b.NextRun(after))
}

func TestBackup_RunOnceCopiesAndPrunes(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "cakes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "cakes", "a.png"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b.jpg"), []byte("b"), 0o644))

	stale := filepath.Join(dst, "2020-01-01_02-00-00")
	require.NoError(t, os.MkdirAll(stale, 0o755))
	old := time.Now().Add(-10 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	b := NewBackup(src, dst, 4, 2, zap.NewNop())
	dest, err := b.RunOnce()
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dest, "cakes", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
	_, err = os.Stat(filepath.Join(dest, "b.jpg"))
	assert.NoError(t, err)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestBackup_RunStopsOnCancel(t *testing.T) {
	b := NewBackup(t.TempDir(), t.TempDir(), 1, 3, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("backup loop did not stop")
	}
}
