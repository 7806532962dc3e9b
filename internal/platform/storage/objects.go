package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
)

const (
	defaultPublicBaseURL = "https://storage.googleapis.com"
	firebaseHost         = "firebasestorage.googleapis.com"
	imageCacheControl    = "public, max-age=31536000, immutable"
)

// ErrObjectNotFound is returned when a referenced object does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// ObjectStore writes and deletes objects in a single Cloud Storage bucket.
type ObjectStore struct {
	client  *gcs.Client
	bucket  string
	baseURL string
}

// NewObjectStore binds client to bucket. baseURL prefixes public object links.
func NewObjectStore(client *gcs.Client, bucket, baseURL string) (*ObjectStore, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("storage: bucket name is required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultPublicBaseURL
	}
	return &ObjectStore{client: client, bucket: bucket, baseURL: baseURL}, nil
}

// Bucket returns the bound bucket name.
func (s *ObjectStore) Bucket() string { return s.bucket }

// Put streams r into object with the given content type and returns the stored size.
func (s *ObjectStore) Put(ctx context.Context, object, contentType string, r io.Reader) (int64, error) {
	if strings.TrimSpace(object) == "" {
		return 0, errors.New("storage: object name is required")
	}
	w := s.client.Bucket(s.bucket).Object(object).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = imageCacheControl
	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return 0, fmt.Errorf("storage: write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("storage: finalize %s: %w", object, err)
	}
	return n, nil
}

// Delete removes object. A missing object yields ErrObjectNotFound.
func (s *ObjectStore) Delete(ctx context.Context, object string) error {
	err := s.client.Bucket(s.bucket).Object(object).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", object, err)
	}
	return nil
}

// PublicURL returns the download link of object.
func (s *ObjectStore) PublicURL(object string) string {
	return PublicURL(s.baseURL, s.bucket, object)
}

// ObjectName extracts the object name from a link produced by PublicURL or a Firebase
// download URL for the bound bucket.
func (s *ObjectStore) ObjectName(link string) (string, bool) {
	return ObjectFromURL(s.baseURL, s.bucket, link)
}

// PublicURL joins baseURL, bucket and an escaped object path.
func PublicURL(baseURL, bucket, object string) string {
	segments := strings.Split(object, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.TrimRight(baseURL, "/") + "/" + bucket + "/" + strings.Join(segments, "/")
}

// ObjectFromURL reverses PublicURL and also accepts
// https://firebasestorage.googleapis.com/v0/b/<bucket>/o/<escaped object>?alt=media links.
func ObjectFromURL(baseURL, bucket, link string) (string, bool) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", false
	}
	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}

	if u.Host == firebaseHost {
		prefix := "/v0/b/" + bucket + "/o/"
		if !strings.HasPrefix(u.Path, prefix) {
			return "", false
		}
		object := strings.TrimPrefix(u.Path, prefix)
		return object, object != ""
	}

	prefix := strings.TrimRight(baseURL, "/") + "/" + bucket + "/"
	if !strings.HasPrefix(link, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(link, prefix)
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	object, err := url.PathUnescape(rest)
	if err != nil || object == "" {
		return "", false
	}
	return object, true
}
