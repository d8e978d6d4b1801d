// Package blobstore is the boundary to opaque media storage. The core only
// ever sees the returned URL and a coarse kind classification.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/apperr"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/model"
)

// Store persists a blob and returns its opaque URL plus media kind.
type Store interface {
	Store(ctx context.Context, r io.Reader, contentType string) (url string, kind string, err error)
}

// KindOf classifies a content type into image | video | audio | file.
func KindOf(contentType string) string {
	mediatype, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediatype = contentType
	}
	switch {
	case strings.HasPrefix(mediatype, "image/"):
		return model.MediaKindImage
	case strings.HasPrefix(mediatype, "video/"):
		return model.MediaKindVideo
	case strings.HasPrefix(mediatype, "audio/"):
		return model.MediaKindAudio
	default:
		return model.MediaKindFile
	}
}

// DiskStore writes blobs under a local directory and serves them from a
// base URL. Production deployments swap in an object-storage implementation
// behind the same interface.
type DiskStore struct {
	dir     string
	baseURL string
}

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *DiskStore) Store(ctx context.Context, r io.Reader, contentType string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	kind := KindOf(contentType)
	name := uuid.New().String() + extensionFor(contentType)

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", "", apperr.Internal("blob store unavailable").WithCause(err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", "", apperr.Internal("blob write failed").WithCause(err)
	}

	return s.baseURL + "/" + name, kind, nil
}

func extensionFor(contentType string) string {
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}
