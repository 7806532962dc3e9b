package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/maxg-dev/santiscl/internal/platform/storage"
)

const (
	defaultMaxImageBytes = 5 * 1024 * 1024
	defaultImagePrefix   = "products"
	sniffLength          = 3072
)

// ObjectStore writes and removes public objects.
type ObjectStore interface {
	Put(ctx context.Context, object, contentType string, r io.Reader) (int64, error)
	Delete(ctx context.Context, object string) error
	PublicURL(object string) string
	ObjectName(link string) (string, bool)
}

// MediaServiceDeps bundles collaborators for image storage.
type MediaServiceDeps struct {
	Objects  ObjectStore
	Prefix   string
	MaxBytes int64
	IDs      func() ulid.ULID
	Clock    func() time.Time
	Logger   func(context.Context, string, map[string]any)
}

type mediaService struct {
	objects  ObjectStore
	prefix   string
	maxBytes int64
	ids      func() ulid.ULID
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
}

var _ MediaService = (*mediaService)(nil)

// NewMediaService constructs the media service.
func NewMediaService(deps MediaServiceDeps) (MediaService, error) {
	if deps.Objects == nil {
		return nil, errors.New("media service: object store is required")
	}
	prefix := strings.TrimSpace(deps.Prefix)
	if prefix == "" {
		prefix = defaultImagePrefix
	}
	maxBytes := deps.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxImageBytes
	}
	ids := deps.IDs
	if ids == nil {
		ids = ulid.Make
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &mediaService{
		objects:  deps.Objects,
		prefix:   prefix,
		maxBytes: maxBytes,
		ids:      ids,
		clock:    func() time.Time { return clock().UTC() },
		logger:   logger,
	}, nil
}

func (s *mediaService) Upload(ctx context.Context, files []UploadFile) ([]UploadedImage, error) {
	if len(files) == 0 {
		return nil, invalidField("files", "es obligatorio")
	}
	for _, f := range files {
		if f.Size > s.maxBytes {
			return nil, fmt.Errorf("%w: %s", ErrImageTooLarge, f.FileName)
		}
		if declared := strings.TrimSpace(f.ContentType); declared != "" && !isImageType(declared) {
			return nil, fmt.Errorf("%w: %s", ErrImageType, f.FileName)
		}
		if f.Open == nil {
			return nil, invalidField("files", "no se pudo leer el archivo")
		}
	}

	results := make([]UploadedImage, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			uploaded, err := s.uploadOne(gctx, f)
			if err != nil {
				return err
			}
			results[i] = uploaded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.abort(ctx, results)
		return nil, err
	}
	return results, nil
}

func (s *mediaService) uploadOne(ctx context.Context, f UploadFile) (UploadedImage, error) {
	rc, err := f.Open()
	if err != nil {
		return UploadedImage{}, fmt.Errorf("media service: open %s: %w", f.FileName, err)
	}
	defer rc.Close()

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return UploadedImage{}, fmt.Errorf("media service: read %s: %w", f.FileName, err)
	}
	head = head[:n]
	if n == 0 {
		return UploadedImage{}, invalidField("files", "el archivo está vacío")
	}
	contentType, ok := detectImageType(head)
	if !ok {
		return UploadedImage{}, fmt.Errorf("%w: %s", ErrImageType, f.FileName)
	}

	object, err := storage.ImageObjectName(s.prefix, s.clock(), s.ids(), f.FileName)
	if err != nil {
		return UploadedImage{}, invalidField("files", "nombre de archivo no válido")
	}
	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), rc), s.maxBytes+1)
	written, err := s.objects.Put(ctx, object, contentType, body)
	if err != nil {
		return UploadedImage{}, fmt.Errorf("media service: store %s: %w", f.FileName, err)
	}
	uploaded := UploadedImage{ObjectName: object, URL: s.objects.PublicURL(object), ContentType: contentType, Size: written}
	if written > s.maxBytes {
		s.deleteObject(ctx, object)
		return UploadedImage{}, fmt.Errorf("%w: %s", ErrImageTooLarge, f.FileName)
	}
	return uploaded, nil
}

func (s *mediaService) abort(ctx context.Context, results []UploadedImage) {
	ctx = context.WithoutCancel(ctx)
	for _, r := range results {
		if r.ObjectName != "" {
			s.deleteObject(ctx, r.ObjectName)
		}
	}
}

func (s *mediaService) Delete(ctx context.Context, urls ...string) {
	for _, link := range urls {
		link = strings.TrimSpace(link)
		if link == "" {
			continue
		}
		object, ok := s.objects.ObjectName(link)
		if !ok {
			s.logger(ctx, "media.delete_skipped", map[string]any{"url": link, "reason": "not a bucket object"})
			continue
		}
		s.deleteObject(ctx, object)
	}
}

func (s *mediaService) deleteObject(ctx context.Context, object string) {
	err := s.objects.Delete(ctx, object)
	if err == nil || errors.Is(err, storage.ErrObjectNotFound) {
		return
	}
	s.logger(ctx, "media.delete_failed", map[string]any{"object": object, "error": err})
}

// detectImageType reports the sniffed MIME type of head when it, or one of its
// parents, is an image type. SVG sniffs as image/svg+xml under text/xml.
func detectImageType(head []byte) (string, bool) {
	detected := mimetype.Detect(head)
	for m := detected; m != nil; m = m.Parent() {
		if isImageType(m.String()) {
			return detected.String(), true
		}
	}
	return "", false
}

func isImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}
