package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChronusArtCenter/cosycoding/internal/model"
)

// Minimal valid PNG: signature plus truncated IHDR, enough for sniffing.
var pngBytes = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'},
	[]byte{0, 0, 0, 13, 'I', 'H', 'D', 'R', 0, 0, 0, 1, 0, 0, 0, 1, 8, 6, 0, 0, 0}...)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	return store
}

func TestSaveAcceptsAllowedType(t *testing.T) {
	store := newTestStore(t)

	stored, err := store.Save(bytes.NewReader(pngBytes), "picture.png", "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stored.URL, "/uploads/"))
	assert.True(t, strings.HasSuffix(stored.Name, ".png"))
	assert.Equal(t, "image/png", stored.Type)
	assert.Equal(t, int64(len(pngBytes)), stored.Size)

	data, err := os.ReadFile(filepath.Join(store.Dir(), stored.Name))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data, "stored bytes must match the upload")
}

func TestSaveAcceptsTextUpload(t *testing.T) {
	store := newTestStore(t)

	content := "package main\n\nfunc main() {}\n"
	stored, err := store.Save(strings.NewReader(content), "main.txt", "text/plain")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(stored.Name, ".txt"))
	assert.Equal(t, int64(len(content)), stored.Size)
}

func TestSaveAcceptsGltfUpload(t *testing.T) {
	store := newTestStore(t)

	// A glTF body is plain JSON, so the sniffer reports application/json.
	gltf := `{"asset":{"version":"2.0"},"scenes":[{"nodes":[0]}],"nodes":[{"mesh":0}]}`
	stored, err := store.Save(strings.NewReader(gltf), "model.gltf", "model/gltf+json")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(stored.Name, ".gltf"))
	assert.Equal(t, "model/gltf+json", stored.Type)
	assert.Equal(t, int64(len(gltf)), stored.Size)
}

func TestSaveRejectsDisallowedType(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(strings.NewReader("MZ..."), "evil.exe", "application/x-msdownload")
	assert.ErrorIs(t, err, model.ErrUnsupportedType)
}

func TestSaveRejectsMismatchedContent(t *testing.T) {
	store := newTestStore(t)

	// PNG bytes declared as plain text: the sniffed type is concrete and
	// contradicts the declaration.
	_, err := store.Save(bytes.NewReader(pngBytes), "sneaky.txt", "text/plain")
	assert.ErrorIs(t, err, model.ErrTypeMismatch)
}

func TestSaveLargerThanSniffBuffer(t *testing.T) {
	store := newTestStore(t)

	payload := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{0xAB}, sniffSize*2)...)
	stored, err := store.Save(bytes.NewReader(payload), "big.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), stored.Size)

	data, err := os.ReadFile(filepath.Join(store.Dir(), stored.Name))
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestRemoveDeletesStoredFile(t *testing.T) {
	store := newTestStore(t)

	stored, err := store.Save(bytes.NewReader(pngBytes), "gone.png", "image/png")
	require.NoError(t, err)

	require.NoError(t, store.Remove(stored.URL))

	_, statErr := os.Stat(filepath.Join(store.Dir(), stored.Name))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRemoveIgnoresPathTraversal(t *testing.T) {
	store := newTestStore(t)

	outside := filepath.Join(filepath.Dir(store.Dir()), "outside.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep me"), 0644))

	// Only the base name is honored, so this resolves inside the upload dir
	// and fails because no such file exists there.
	err := store.Remove("/uploads/../outside.txt")
	assert.Error(t, err)

	_, statErr := os.Stat(outside)
	assert.NoError(t, statErr, "file outside the store must survive")
}

func TestSaveGeneratesUniqueNames(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Save(bytes.NewReader(pngBytes), "a.png", "image/png")
	require.NoError(t, err)
	second, err := store.Save(bytes.NewReader(pngBytes), "a.png", "image/png")
	require.NoError(t, err)

	assert.NotEqual(t, first.Name, second.Name)
}
