// Package storage persists uploaded item images behind an afs URL so that the same code serves local directories,
// in-memory stores and object storage.
package storage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/myrjola/foundit/internal/errors"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// ImageFolder is the folder under the store base URL where item images live.
const ImageFolder = "item_images"

var (
	ErrNotFound     = errors.NewSentinel("image not found")
	ErrInvalidImage = errors.NewSentinel("invalid image")
)

type ImageStore struct {
	fs      afs.Service
	baseURL string
	logger  *slog.Logger
}

// NewImageStore creates an image store rooted at baseURL, for example file:///var/lib/foundit or
// mem://localhost/images.
func NewImageStore(baseURL string, logger *slog.Logger) *ImageStore {
	return &ImageStore{
		fs:      afs.New(),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger.With("source", "ImageStore"),
	}
}

// Save stores the image under a unique name derived from filename and returns its URL.
func (s *ImageStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "read image")
	}
	if len(data) == 0 {
		return "", errors.Wrap(ErrInvalidImage, "empty image")
	}
	name := uuid.NewString() + "_" + sanitize(filename)
	imageURL := url.Join(s.baseURL, path.Join(ImageFolder, name))
	if err = s.fs.Upload(ctx, imageURL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return "", errors.Wrap(err, "upload image", slog.String("url", imageURL))
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "image saved", slog.String("url", imageURL), slog.Int("bytes", len(data)))
	return imageURL, nil
}

// URL returns the URL of the image with the given name in the image folder.
func (s *ImageStore) URL(name string) string {
	return url.Join(s.baseURL, path.Join(ImageFolder, name))
}

// Load returns the image stored at imageURL. Only URLs of images directly in the image folder are served.
func (s *ImageStore) Load(ctx context.Context, imageURL string) ([]byte, error) {
	name, ok := strings.CutPrefix(imageURL, url.Join(s.baseURL, ImageFolder)+"/")
	if !ok || name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return nil, errors.Wrap(ErrNotFound, "foreign url", slog.String("url", imageURL))
	}
	exists, err := s.fs.Exists(ctx, imageURL)
	if err != nil {
		return nil, errors.Wrap(err, "check image", slog.String("url", imageURL))
	}
	if !exists {
		return nil, errors.Wrap(ErrNotFound, "load image", slog.String("url", imageURL))
	}
	data, err := s.fs.DownloadWithURL(ctx, imageURL)
	if err != nil {
		return nil, errors.Wrap(err, "download image", slog.String("url", imageURL))
	}
	return data, nil
}

// sanitize keeps the base name of a client supplied file name so it cannot escape the image folder.
func sanitize(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return "image"
	}
	return name
}
