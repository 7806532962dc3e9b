package catalog

import (
	"errors"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/maxg-dev/santiscl/internal/domain"
)

const (
	// VariantParam is the query parameter carrying the selected variant.
	VariantParam = "variantId"
	// PlaceholderImage is shown when a variant has no images.
	PlaceholderImage = "/placeholder.svg"
)

var (
	// ErrStaleGeneration is returned when a delivery belongs to a superseded navigation.
	ErrStaleGeneration = errors.New("catalog: stale generation")
	// ErrNoVariants is returned when a parent has no variants to select from.
	ErrNoVariants = errors.New("catalog: parent has no variants")
	// ErrNotSynced is returned when a selection is attempted before data was delivered.
	ErrNotSynced = errors.New("catalog: selection is not synced")
	// ErrVariantNotFound is returned when a variant id does not belong to the current parent.
	ErrVariantNotFound = errors.New("catalog: variant not found")
)

// State is the synchronizer lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateResolving
	StateSynced
)

func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateSynced:
		return "synced"
	default:
		return "uninitialized"
	}
}

// Generation identifies one catalog fetch issued by Navigate.
type Generation uint64

// Location is the shareable reference holding the selected variant id.
// ReplaceVariantID overwrites the value without creating a history entry.
type Location interface {
	VariantID() string
	ReplaceVariantID(id string)
}

// ViewState is the transient presentation state derived from the selection.
type ViewState struct {
	MainImage string
	Zoomed    bool
}

// SelectionResult reports the outcome of an attribute change.
type SelectionResult struct {
	Variant domain.ProductVariant
	Matched bool
}

// SyncOption customises a Synchronizer.
type SyncOption func(*Synchronizer)

// WithSyncLogger sets the logger used for selection warnings.
func WithSyncLogger(logger *zap.Logger) SyncOption {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPlaceholderImage overrides the image shown for variants without images.
func WithPlaceholderImage(ref string) SyncOption {
	return func(s *Synchronizer) {
		if trimmed := strings.TrimSpace(ref); trimmed != "" {
			s.placeholder = trimmed
		}
	}
}

// Synchronizer keeps the selected variant of one product page consistent with its Location.
type Synchronizer struct {
	location    Location
	logger      *zap.Logger
	placeholder string

	gen atomic.Uint64

	mu       sync.Mutex
	state    State
	parentID string
	parent   domain.ParentProduct
	variants []domain.ProductVariant
	index    AttributeIndex
	selected *domain.ProductVariant
	view     ViewState
}

// NewSynchronizer constructs a Synchronizer bound to the location.
func NewSynchronizer(location Location, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		location:    location,
		logger:      zap.NewNop(),
		placeholder: PlaceholderImage,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Navigate records the parent being viewed. It returns the generation to fetch under and
// whether a fetch is required; revisiting the current parent does not start a new fetch.
func (s *Synchronizer) Navigate(parentID string) (Generation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parentID = strings.TrimSpace(parentID)
	if parentID == s.parentID && s.state != StateUninitialized {
		return Generation(s.gen.Load()), false
	}

	s.parentID = parentID
	s.state = StateResolving
	s.parent = domain.ParentProduct{}
	s.variants = nil
	s.index = nil
	s.selected = nil
	s.view = ViewState{}
	return Generation(s.gen.Add(1)), true
}

// Deliver applies fetched data when gen is still the latest generation and resolves the
// initial variant: location reference, then the default flag, then the first variant.
func (s *Synchronizer) Deliver(gen Generation, parent domain.ParentProduct, variants []domain.ProductVariant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != Generation(s.gen.Load()) || s.state != StateResolving {
		return ErrStaleGeneration
	}
	if len(variants) == 0 {
		s.state = StateUninitialized
		s.parentID = ""
		return ErrNoVariants
	}

	s.parent = parent
	s.variants = append([]domain.ProductVariant(nil), variants...)
	s.index = BuildAttributeIndex(s.variants)

	initial, ok := findVariant(s.variants, s.locationID())
	if !ok {
		initial, _ = DefaultVariant(s.variants)
	}
	s.apply(initial)
	s.state = StateSynced
	s.syncLocation()
	return nil
}

// Fail abandons the fetch for gen so that the next Navigate retries it.
func (s *Synchronizer) Fail(gen Generation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != Generation(s.gen.Load()) || s.state != StateResolving {
		return false
	}
	s.state = StateUninitialized
	s.parentID = ""
	return true
}

// SelectAttribute changes one axis and resolves the matching variant. When nothing matches
// the previous selection is kept and Matched is false.
func (s *Synchronizer) SelectAttribute(axis, value string) (SelectionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSynced || s.selected == nil {
		return SelectionResult{}, ErrNotSynced
	}

	current := SelectionOf(*s.selected, s.index)
	next, ok := SelectVariant(s.variants, s.index, current, axis, value)
	if !ok {
		s.logger.Warn("no variant matches selection",
			zap.String("parent_id", s.parentID),
			zap.String("axis", axis),
			zap.String("value", value),
			zap.String("current_variant_id", s.selected.ID),
		)
		return SelectionResult{Variant: *s.selected, Matched: false}, nil
	}

	s.apply(next)
	s.syncLocation()
	return SelectionResult{Variant: next, Matched: true}, nil
}

// SelectVariant picks a variant directly by id.
func (s *Synchronizer) SelectVariant(id string) (domain.ProductVariant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSynced {
		return domain.ProductVariant{}, ErrNotSynced
	}
	v, ok := findVariant(s.variants, strings.TrimSpace(id))
	if !ok {
		return domain.ProductVariant{}, ErrVariantNotFound
	}
	s.apply(v)
	s.syncLocation()
	return v, nil
}

// LocationChanged re-resolves the selection after the reference changed externally.
// An unknown or missing reference falls back to the in-memory selection.
func (s *Synchronizer) LocationChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSynced {
		return
	}
	target, ok := findVariant(s.variants, s.locationID())
	if !ok {
		if s.selected != nil {
			target = *s.selected
		} else {
			target, _ = DefaultVariant(s.variants)
		}
	}
	if s.selected == nil || s.selected.ID != target.ID {
		s.apply(target)
	}
	s.syncLocation()
}

// SelectImage points the main image at ref and resets zoom.
func (s *Synchronizer) SelectImage(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = ViewState{MainImage: ref}
}

// ToggleZoom flips the magnification state and returns the new value.
func (s *Synchronizer) ToggleZoom() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Zoomed = !s.view.Zoomed
	return s.view.Zoomed
}

// State returns the lifecycle state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the selected variant.
func (s *Synchronizer) Current() (domain.ProductVariant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return domain.ProductVariant{}, false
	}
	return *s.selected, true
}

// Parent returns the delivered parent product.
func (s *Synchronizer) Parent() domain.ParentProduct {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parent
}

// Variants returns the delivered variants.
func (s *Synchronizer) Variants() []domain.ProductVariant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ProductVariant(nil), s.variants...)
}

// Index returns the attribute index of the delivered variants.
func (s *Synchronizer) Index() AttributeIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// View returns the presentation state.
func (s *Synchronizer) View() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *Synchronizer) apply(v domain.ProductVariant) {
	selected := v
	s.selected = &selected
	image := v.PrimaryImage()
	if image == "" {
		image = s.placeholder
	}
	s.view = ViewState{MainImage: image}
}

func (s *Synchronizer) syncLocation() {
	if s.location == nil || s.selected == nil {
		return
	}
	if s.location.VariantID() == s.selected.ID {
		return
	}
	s.location.ReplaceVariantID(s.selected.ID)
}

func (s *Synchronizer) locationID() string {
	if s.location == nil {
		return ""
	}
	return strings.TrimSpace(s.location.VariantID())
}

// QueryLocation is a Location over URL query values.
type QueryLocation struct {
	mu     sync.Mutex
	values url.Values
	writes int
}

// NewQueryLocation copies values into a new QueryLocation.
func NewQueryLocation(values url.Values) *QueryLocation {
	cloned := make(url.Values, len(values))
	for k, v := range values {
		cloned[k] = append([]string(nil), v...)
	}
	return &QueryLocation{values: cloned}
}

// VariantID implements Location.
func (l *QueryLocation) VariantID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.values.Get(VariantParam)
}

// ReplaceVariantID implements Location.
func (l *QueryLocation) ReplaceVariantID(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values.Set(VariantParam, id)
	l.writes++
}

// SetExternal changes the reference without counting a write, as browser navigation would.
func (l *QueryLocation) SetExternal(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id == "" {
		l.values.Del(VariantParam)
		return
	}
	l.values.Set(VariantParam, id)
}

// Writes returns how many replace writes happened.
func (l *QueryLocation) Writes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writes
}

// Encode renders the query string.
func (l *QueryLocation) Encode() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.values.Encode()
}
