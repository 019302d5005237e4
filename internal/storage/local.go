// Package storage implements the local-disk file store backing uploads.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ChronusArtCenter/cosycoding/internal/model"
)

// allowedTypes maps accepted media types to the file extension they are
// stored under.
var allowedTypes = map[string]string{
	"image/jpeg":               "jpg",
	"image/png":                "png",
	"image/gif":                "gif",
	"image/webp":               "webp",
	"application/pdf":          "pdf",
	"application/zip":          "zip",
	"application/octet-stream": "glb",
	"model/gltf+json":          "gltf",
	"text/plain":               "txt",
	"text/csv":                 "csv",
	"text/javascript":          "js",
}

const sniffSize = 3072

// StoredFile describes a file accepted by the store.
type StoredFile struct {
	URL  string
	Name string
	Type string
	Size int64
}

// LocalStore writes uploads to a directory on disk and serves them back
// under a URL prefix.
type LocalStore struct {
	dir       string
	urlPrefix string
}

// NewLocalStore creates the upload directory if needed and returns a store
// rooted there. Files are addressed as urlPrefix/<generated name>.
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// Save validates the upload against the allow-list, sniffs its content, and
// writes it to disk under a generated name. The declared media type decides
// the stored extension; the sniffed type must be compatible with it.
func (s *LocalStore) Save(r io.Reader, originalName, declaredType string) (*StoredFile, error) {
	ext, ok := allowedTypes[declaredType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedType, declaredType)
	}

	sniff := make([]byte, sniffSize)
	n, err := io.ReadFull(r, sniff)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	sniff = sniff[:n]

	detected := mimetype.Detect(sniff)
	if !typeCompatible(detected, declaredType) {
		return nil, fmt.Errorf("%w: declared %s, detected %s", model.ErrTypeMismatch, declaredType, detected.String())
	}

	name := fmt.Sprintf("%d-%s.%s", time.Now().UnixMilli(), model.NewID(13), ext)
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	written, err := f.Write(sniff)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	copied, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return &StoredFile{
		URL:  s.urlPrefix + "/" + name,
		Name: name,
		Type: declaredType,
		Size: int64(written) + copied,
	}, nil
}

// Remove deletes the stored file addressed by the given URL. Only the final
// path element is used, so a URL cannot escape the upload directory.
func (s *LocalStore) Remove(url string) error {
	name := filepath.Base(url)
	if name == "." || name == "/" || name == "" {
		return fmt.Errorf("invalid asset url: %q", url)
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// Dir returns the directory files are stored in.
func (s *LocalStore) Dir() string {
	return s.dir
}

// typeCompatible reports whether the sniffed type can plausibly be the
// declared one. Text formats and glb sniff as generic types, so those are
// accepted when either side is generic; structured-syntax types like
// model/gltf+json sniff as their base syntax.
func typeCompatible(detected *mimetype.MIME, declaredType string) bool {
	if detected.Is(declaredType) {
		return true
	}
	if declaredType == "application/octet-stream" {
		return true
	}
	if strings.HasSuffix(declaredType, "+json") && detected.Is("application/json") {
		return true
	}
	if detected.Is("text/plain") || detected.Is("application/octet-stream") {
		return true
	}
	return false
}
