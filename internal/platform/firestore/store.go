package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Document is a decoded snapshot with its metadata.
type Document[T any] struct {
	ID         string
	Data       T
	CreateTime time.Time
	UpdateTime time.Time
}

// Encoder converts an entity into a Firestore payload.
type Encoder[T any] func(value T) (any, error)

// Decoder hydrates an entity from a snapshot.
type Decoder[T any] func(snap *firestore.DocumentSnapshot) (T, error)

// QueryBuilder customises a collection query.
type QueryBuilder func(query firestore.Query) firestore.Query

// Store gives typed access to every collection that shares a document shape. Collection
// paths may address subcollections, e.g. "parent_products/abc/product_variants".
type Store[T any] struct {
	provider *Provider
	encode   Encoder[T]
	decode   Decoder[T]
}

// NewStore builds a Store. Nil codecs default to Firestore struct tags.
func NewStore[T any](provider *Provider, encode Encoder[T], decode Decoder[T]) *Store[T] {
	if encode == nil {
		encode = func(value T) (any, error) { return value, nil }
	}
	if decode == nil {
		decode = StructDecoder[T]()
	}
	return &Store[T]{provider: provider, encode: encode, decode: decode}
}

// CollectionPath joins path segments into a slash separated collection path.
func CollectionPath(segments ...string) string {
	return strings.Join(segments, "/")
}

// Client exposes the underlying client for batch operations.
func (s *Store[T]) Client(ctx context.Context) (*firestore.Client, error) {
	return s.provider.Client(ctx)
}

// Get fetches one document.
func (s *Store[T]) Get(ctx context.Context, path, id string) (Document[T], error) {
	ref, err := s.doc(ctx, path, id)
	if err != nil {
		return Document[T]{}, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return Document[T]{}, WrapError(op(path, "get"), err)
	}
	return s.decodeSnapshot(snap)
}

// Create stores value under a generated id and returns that id.
func (s *Store[T]) Create(ctx context.Context, path string, value T) (string, error) {
	coll, err := s.collection(ctx, path)
	if err != nil {
		return "", err
	}
	payload, err := s.encode(value)
	if err != nil {
		return "", fmt.Errorf("firestore: encode %s: %w", path, err)
	}
	ref := coll.NewDoc()
	if _, err := ref.Create(ctx, payload); err != nil {
		return "", WrapError(op(path, "create"), err)
	}
	return ref.ID, nil
}

// Set overwrites the document id with value.
func (s *Store[T]) Set(ctx context.Context, path, id string, value T) error {
	ref, err := s.doc(ctx, path, id)
	if err != nil {
		return err
	}
	payload, err := s.encode(value)
	if err != nil {
		return fmt.Errorf("firestore: encode %s/%s: %w", path, id, err)
	}
	if _, err := ref.Set(ctx, payload); err != nil {
		return WrapError(op(path, "set"), err)
	}
	return nil
}

// Update applies field updates; the document must exist.
func (s *Store[T]) Update(ctx context.Context, path, id string, updates []firestore.Update) error {
	ref, err := s.doc(ctx, path, id)
	if err != nil {
		return err
	}
	if _, err := ref.Update(ctx, updates); err != nil {
		return WrapError(op(path, "update"), err)
	}
	return nil
}

// Delete removes one document. Deleting a missing document succeeds.
func (s *Store[T]) Delete(ctx context.Context, path, id string) error {
	ref, err := s.doc(ctx, path, id)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return WrapError(op(path, "delete"), err)
	}
	return nil
}

// Query runs a collection query and decodes every result.
func (s *Store[T]) Query(ctx context.Context, path string, build QueryBuilder) ([]Document[T], error) {
	coll, err := s.collection(ctx, path)
	if err != nil {
		return nil, err
	}
	query := coll.Query
	if build != nil {
		query = build(query)
	}
	iter := query.Documents(ctx)
	defer iter.Stop()

	var docs []Document[T]
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return docs, nil
		}
		if err != nil {
			return nil, WrapError(op(path, "query"), err)
		}
		doc, err := s.decodeSnapshot(snap)
		if err != nil {
			return nil, fmt.Errorf("firestore: decode %s/%s: %w", path, snap.Ref.ID, err)
		}
		docs = append(docs, doc)
	}
}

// BulkUpdate applies the same updates to every listed document with a BulkWriter.
func (s *Store[T]) BulkUpdate(ctx context.Context, path string, ids []string, updates []firestore.Update) error {
	return s.bulk(ctx, path, ids, "bulk_update", func(bw *firestore.BulkWriter, ref *firestore.DocumentRef) (*firestore.BulkWriterJob, error) {
		return bw.Update(ref, updates)
	})
}

// BulkDelete deletes every listed document with a BulkWriter.
func (s *Store[T]) BulkDelete(ctx context.Context, path string, ids []string) error {
	return s.bulk(ctx, path, ids, "bulk_delete", func(bw *firestore.BulkWriter, ref *firestore.DocumentRef) (*firestore.BulkWriterJob, error) {
		return bw.Delete(ref)
	})
}

func (s *Store[T]) bulk(ctx context.Context, path string, ids []string, action string, enqueue func(*firestore.BulkWriter, *firestore.DocumentRef) (*firestore.BulkWriterJob, error)) error {
	if len(ids) == 0 {
		return nil
	}
	coll, err := s.collection(ctx, path)
	if err != nil {
		return err
	}
	client, err := s.provider.Client(ctx)
	if err != nil {
		return err
	}

	bw := client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(ids))
	for _, id := range ids {
		job, err := enqueue(bw, coll.Doc(id))
		if err != nil {
			bw.End()
			return WrapError(op(path, action), err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	var errs []error
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = append(errs, err)
		}
	}
	return WrapError(op(path, action), errors.Join(errs...))
}

// DocumentRef exposes a document reference for transactions.
func (s *Store[T]) DocumentRef(ctx context.Context, path, id string) (*firestore.DocumentRef, error) {
	return s.doc(ctx, path, id)
}

// Decode hydrates a snapshot obtained elsewhere, e.g. inside a transaction.
func (s *Store[T]) Decode(snap *firestore.DocumentSnapshot) (Document[T], error) {
	return s.decodeSnapshot(snap)
}

func (s *Store[T]) decodeSnapshot(snap *firestore.DocumentSnapshot) (Document[T], error) {
	value, err := s.decode(snap)
	if err != nil {
		return Document[T]{}, err
	}
	return Document[T]{
		ID:         snap.Ref.ID,
		Data:       value,
		CreateTime: snap.CreateTime,
		UpdateTime: snap.UpdateTime,
	}, nil
}

func (s *Store[T]) collection(ctx context.Context, path string) (*firestore.CollectionRef, error) {
	if strings.TrimSpace(path) == "" {
		return nil, WrapError("collection", errors.New("collection path is required"))
	}
	if s == nil || s.provider == nil {
		return nil, WrapError(op(path, "collection"), ErrNotConfigured)
	}
	client, err := s.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	coll := client.Collection(path)
	if coll == nil {
		return nil, WrapError(op(path, "collection"), fmt.Errorf("invalid collection path %q", path))
	}
	return coll, nil
}

func (s *Store[T]) doc(ctx context.Context, path, id string) (*firestore.DocumentRef, error) {
	if strings.TrimSpace(id) == "" {
		return nil, WrapError(op(path, "document"), errors.New("document id is required"))
	}
	coll, err := s.collection(ctx, path)
	if err != nil {
		return nil, err
	}
	return coll.Doc(id), nil
}

func op(path, action string) string {
	return path + "." + action
}

// StructDecoder decodes snapshots with Firestore struct tags.
func StructDecoder[T any]() Decoder[T] {
	return func(snap *firestore.DocumentSnapshot) (T, error) {
		var target T
		err := snap.DataTo(&target)
		return target, err
	}
}
