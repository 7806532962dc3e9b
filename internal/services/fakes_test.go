package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	domain "github.com/maxg-dev/santiscl/internal/domain"
	"github.com/maxg-dev/santiscl/internal/platform/events"
	"github.com/maxg-dev/santiscl/internal/platform/storage"
	"github.com/maxg-dev/santiscl/internal/repositories"
)

type memoryCatalog struct {
	mu       sync.Mutex
	parents  map[string]domain.ParentProduct
	variants map[string][]domain.ProductVariant
	seq      int
	failWith error
	stockErr error
	stockSet []repositories.VariantRef
}

func newMemoryCatalog() *memoryCatalog {
	return &memoryCatalog{parents: map[string]domain.ParentProduct{}, variants: map[string][]domain.ProductVariant{}}
}

func (m *memoryCatalog) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%d", prefix, m.seq)
}

func (m *memoryCatalog) addParent(p domain.ParentProduct, variants ...domain.ProductVariant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parents[p.ID] = p
	for _, v := range variants {
		v.ParentID = p.ID
		m.variants[p.ID] = append(m.variants[p.ID], v)
	}
}

func (m *memoryCatalog) ListParents(context.Context) ([]domain.ParentProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]domain.ParentProduct, 0, len(m.parents))
	for _, p := range m.parents {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryCatalog) GetParent(_ context.Context, id string) (domain.ParentProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return domain.ParentProduct{}, m.failWith
	}
	p, ok := m.parents[id]
	if !ok {
		return domain.ParentProduct{}, repositories.NewNotFoundError("get parent", id)
	}
	return p, nil
}

func (m *memoryCatalog) CreateParent(_ context.Context, p domain.ParentProduct) (domain.ParentProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.nextID("p")
	m.parents[p.ID] = p
	return p, nil
}

func (m *memoryCatalog) UpdateParent(_ context.Context, p domain.ParentProduct) (domain.ParentProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.parents[p.ID]; !ok {
		return domain.ParentProduct{}, repositories.NewNotFoundError("update parent", p.ID)
	}
	m.parents[p.ID] = p
	return p, nil
}

func (m *memoryCatalog) DeleteParentCascade(_ context.Context, id string) ([]domain.ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.parents[id]; !ok {
		return nil, repositories.NewNotFoundError("delete parent", id)
	}
	removed := m.variants[id]
	delete(m.parents, id)
	delete(m.variants, id)
	return removed, nil
}

func (m *memoryCatalog) ListVariants(_ context.Context, parentID string) ([]domain.ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := append([]domain.ProductVariant(nil), m.variants[parentID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].VariantName < out[j].VariantName })
	return out, nil
}

func (m *memoryCatalog) ListAllVariants(context.Context) ([]domain.ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []domain.ProductVariant
	for _, list := range m.variants {
		out = append(out, list...)
	}
	return out, nil
}

func (m *memoryCatalog) GetVariant(_ context.Context, parentID, variantID string) (domain.ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.variants[parentID] {
		if v.ID == variantID {
			return v, nil
		}
	}
	return domain.ProductVariant{}, repositories.NewNotFoundError("get variant", variantID)
}

func (m *memoryCatalog) CreateVariant(_ context.Context, v domain.ProductVariant) (domain.ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.parents[v.ParentID]; !ok {
		return domain.ProductVariant{}, repositories.NewNotFoundError("create variant", v.ParentID)
	}
	v.ID = m.nextID("v")
	m.variants[v.ParentID] = append(m.variants[v.ParentID], v)
	return v, nil
}

func (m *memoryCatalog) UpdateVariant(_ context.Context, v domain.ProductVariant) (domain.ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.variants[v.ParentID] {
		if existing.ID == v.ID {
			m.variants[v.ParentID][i] = v
			return v, nil
		}
	}
	return domain.ProductVariant{}, repositories.NewNotFoundError("update variant", v.ID)
}

func (m *memoryCatalog) DeleteVariant(_ context.Context, parentID, variantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.variants[parentID]
	for i, v := range list {
		if v.ID == variantID {
			m.variants[parentID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return repositories.NewNotFoundError("delete variant", variantID)
}

func (m *memoryCatalog) SetDefaultVariant(_ context.Context, parentID, variantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.variants[parentID]
	found := false
	for _, v := range list {
		if v.ID == variantID {
			found = true
		}
	}
	if !found {
		return repositories.NewNotFoundError("set default", variantID)
	}
	for i := range list {
		list[i].IsDefault = list[i].ID == variantID
	}
	return nil
}

func (m *memoryCatalog) SetStock(_ context.Context, refs []repositories.VariantRef, stock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stockErr != nil {
		return m.stockErr
	}
	m.stockSet = append(m.stockSet, refs...)
	for _, ref := range refs {
		list := m.variants[ref.ParentID]
		for i := range list {
			if list[i].ID == ref.VariantID {
				list[i].Stock = stock
			}
		}
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, e)
	return fmt.Sprintf("msg-%d", len(p.events)), nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type loggedEvent struct {
	name   string
	fields map[string]any
}

type eventLog struct {
	mu      sync.Mutex
	entries []loggedEvent
}

func (l *eventLog) hook() func(context.Context, string, map[string]any) {
	return func(_ context.Context, name string, fields map[string]any) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.entries = append(l.entries, loggedEvent{name: name, fields: fields})
	}
}

func (l *eventLog) find(name string) (loggedEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.name == name {
			return e, true
		}
	}
	return loggedEvent{}, false
}

type memoryObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	deleted   []string
	failPut   map[string]error
	deleteErr error
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}, types: map[string]string{}, failPut: map[string]error{}}
}

const testObjectBase = "https://storage.googleapis.com/santis-test/"

func (m *memoryObjects) Put(_ context.Context, object, contentType string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for fragment, failure := range m.failPut {
		if strings.Contains(object, fragment) {
			return 0, failure
		}
	}
	m.objects[object] = data
	m.types[object] = contentType
	return int64(len(data)), nil
}

func (m *memoryObjects) Delete(_ context.Context, object string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, object)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.objects[object]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(m.objects, object)
	return nil
}

func (m *memoryObjects) PublicURL(object string) string {
	return testObjectBase + object
}

func (m *memoryObjects) ObjectName(link string) (string, bool) {
	if !strings.HasPrefix(link, testObjectBase) {
		return "", false
	}
	return strings.TrimPrefix(link, testObjectBase), true
}

func (m *memoryObjects) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type recordingMedia struct {
	mu      sync.Mutex
	deleted []string
}

func (r *recordingMedia) Upload(context.Context, []UploadFile) ([]UploadedImage, error) {
	return nil, errors.New("not implemented")
}

func (r *recordingMedia) Delete(_ context.Context, urls ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, urls...)
}

func fixedClock() func() time.Time {
	now := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	return func() time.Time { return now }
}
