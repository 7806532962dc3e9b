package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/maxg-dev/santiscl/internal/domain"
	pfirestore "github.com/maxg-dev/santiscl/internal/platform/firestore"
	"github.com/maxg-dev/santiscl/internal/platform/textutil"
	"github.com/maxg-dev/santiscl/internal/repositories"
)

const (
	parentsCollection  = "parent_products"
	variantsCollection = "product_variants"

	// Admins editing the same parent race on the isDefault flags.
	setDefaultTxAttempts = 5
)

type parentDocument struct {
	Name              string    `firestore:"name"`
	Description       string    `firestore:"description"`
	Category          string    `firestore:"category"`
	Highlighted       bool      `firestore:"highlighted"`
	AgeRecommendation string    `firestore:"ageRecommendation,omitempty"`
	CreatedAt         time.Time `firestore:"createdAt"`
	UpdatedAt         time.Time `firestore:"updatedAt"`
}

type variantDocument struct {
	ParentID    string         `firestore:"parentId"`
	VariantName string         `firestore:"variantName"`
	Price       int64          `firestore:"price"`
	Images      []string       `firestore:"images"`
	Description string         `firestore:"description,omitempty"`
	Dimensions  string         `firestore:"dimensions,omitempty"`
	Stock       int            `firestore:"stock"`
	Attributes  map[string]any `firestore:"attributes"`
	IsDefault   bool           `firestore:"isDefault"`
	CreatedAt   time.Time      `firestore:"createdAt"`
	UpdatedAt   time.Time      `firestore:"updatedAt"`
}

// CatalogRepository stores parents in parent_products and variants in each parent's
// product_variants subcollection.
type CatalogRepository struct {
	provider *pfirestore.Provider
	parents  *pfirestore.Store[parentDocument]
	variants *pfirestore.Store[variantDocument]
	now      func() time.Time
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

// NewCatalogRepository constructs a Firestore-backed catalog repository.
func NewCatalogRepository(provider *pfirestore.Provider, clock func() time.Time) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository: firestore provider is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &CatalogRepository{
		provider: provider,
		parents:  pfirestore.NewStore[parentDocument](provider, nil, nil),
		variants: pfirestore.NewStore[variantDocument](provider, nil, nil),
		now:      func() time.Time { return clock().UTC() },
	}, nil
}

func variantsPath(parentID string) string {
	return pfirestore.CollectionPath(parentsCollection, parentID, variantsCollection)
}

// ListParents implements repositories.CatalogRepository.
func (r *CatalogRepository) ListParents(ctx context.Context) ([]domain.ParentProduct, error) {
	docs, err := r.parents.Query(ctx, parentsCollection, func(q firestore.Query) firestore.Query {
		return q.OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.ParentProduct, 0, len(docs))
	for _, doc := range docs {
		out = append(out, parentToDomain(doc))
	}
	return out, nil
}

// GetParent implements repositories.CatalogRepository.
func (r *CatalogRepository) GetParent(ctx context.Context, parentID string) (domain.ParentProduct, error) {
	doc, err := r.parents.Get(ctx, parentsCollection, strings.TrimSpace(parentID))
	if err != nil {
		return domain.ParentProduct{}, err
	}
	return parentToDomain(doc), nil
}

// CreateParent implements repositories.CatalogRepository.
func (r *CatalogRepository) CreateParent(ctx context.Context, parent domain.ParentProduct) (domain.ParentProduct, error) {
	now := r.now()
	parent.CreatedAt = now
	parent.UpdatedAt = now
	id, err := r.parents.Create(ctx, parentsCollection, parentFromDomain(parent))
	if err != nil {
		return domain.ParentProduct{}, err
	}
	parent.ID = id
	return parent, nil
}

// UpdateParent implements repositories.CatalogRepository. The parent must exist.
func (r *CatalogRepository) UpdateParent(ctx context.Context, parent domain.ParentProduct) (domain.ParentProduct, error) {
	updates := []firestore.Update{
		{Path: "name", Value: parent.Name},
		{Path: "description", Value: parent.Description},
		{Path: "category", Value: parent.Category},
		{Path: "highlighted", Value: parent.Highlighted},
		{Path: "ageRecommendation", Value: parent.AgeRecommendation},
		{Path: "updatedAt", Value: r.now()},
	}
	if err := r.parents.Update(ctx, parentsCollection, parent.ID, updates); err != nil {
		return domain.ParentProduct{}, err
	}
	return r.GetParent(ctx, parent.ID)
}

// DeleteParentCascade implements repositories.CatalogRepository.
func (r *CatalogRepository) DeleteParentCascade(ctx context.Context, parentID string) ([]domain.ProductVariant, error) {
	if _, err := r.GetParent(ctx, parentID); err != nil {
		return nil, err
	}
	variants, err := r.ListVariants(ctx, parentID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(variants))
	for _, v := range variants {
		ids = append(ids, v.ID)
	}
	if err := r.variants.BulkDelete(ctx, variantsPath(parentID), ids); err != nil {
		return nil, err
	}
	if err := r.parents.Delete(ctx, parentsCollection, parentID); err != nil {
		return nil, err
	}
	return variants, nil
}

// ListVariants implements repositories.CatalogRepository.
func (r *CatalogRepository) ListVariants(ctx context.Context, parentID string) ([]domain.ProductVariant, error) {
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		return nil, repositories.NewNotFoundError("catalog.list_variants", "parent id is required")
	}
	docs, err := r.variants.Query(ctx, variantsPath(parentID), func(q firestore.Query) firestore.Query {
		return q.OrderBy("variantName", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.ProductVariant, 0, len(docs))
	for _, doc := range docs {
		out = append(out, variantToDomain(parentID, doc))
	}
	return out, nil
}

// ListAllVariants implements repositories.CatalogRepository using a collection group query.
func (r *CatalogRepository) ListAllVariants(ctx context.Context) ([]domain.ProductVariant, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	iter := client.CollectionGroup(variantsCollection).Documents(ctx)
	defer iter.Stop()

	var out []domain.ProductVariant
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("catalog.list_all_variants", err)
		}
		doc, err := r.variants.Decode(snap)
		if err != nil {
			return nil, fmt.Errorf("decode variant %s: %w", snap.Ref.Path, err)
		}
		parentID := doc.Data.ParentID
		if snap.Ref.Parent != nil && snap.Ref.Parent.Parent != nil {
			parentID = snap.Ref.Parent.Parent.ID
		}
		out = append(out, variantToDomain(parentID, doc))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ParentID != out[j].ParentID {
			return out[i].ParentID < out[j].ParentID
		}
		return out[i].VariantName < out[j].VariantName
	})
	return out, nil
}

// GetVariant implements repositories.CatalogRepository.
func (r *CatalogRepository) GetVariant(ctx context.Context, parentID, variantID string) (domain.ProductVariant, error) {
	doc, err := r.variants.Get(ctx, variantsPath(parentID), strings.TrimSpace(variantID))
	if err != nil {
		return domain.ProductVariant{}, err
	}
	return variantToDomain(parentID, doc), nil
}

// CreateVariant implements repositories.CatalogRepository. The parent must exist.
func (r *CatalogRepository) CreateVariant(ctx context.Context, variant domain.ProductVariant) (domain.ProductVariant, error) {
	if _, err := r.GetParent(ctx, variant.ParentID); err != nil {
		return domain.ProductVariant{}, err
	}
	now := r.now()
	variant.CreatedAt = now
	variant.UpdatedAt = now
	id, err := r.variants.Create(ctx, variantsPath(variant.ParentID), variantFromDomain(variant))
	if err != nil {
		return domain.ProductVariant{}, err
	}
	variant.ID = id
	return variant, nil
}

// UpdateVariant implements repositories.CatalogRepository. The variant must exist.
func (r *CatalogRepository) UpdateVariant(ctx context.Context, variant domain.ProductVariant) (domain.ProductVariant, error) {
	doc := variantFromDomain(variant)
	updates := []firestore.Update{
		{Path: "variantName", Value: doc.VariantName},
		{Path: "price", Value: doc.Price},
		{Path: "images", Value: doc.Images},
		{Path: "description", Value: doc.Description},
		{Path: "dimensions", Value: doc.Dimensions},
		{Path: "stock", Value: doc.Stock},
		{Path: "attributes", Value: doc.Attributes},
		{Path: "isDefault", Value: doc.IsDefault},
		{Path: "updatedAt", Value: r.now()},
	}
	if err := r.variants.Update(ctx, variantsPath(variant.ParentID), variant.ID, updates); err != nil {
		return domain.ProductVariant{}, err
	}
	return r.GetVariant(ctx, variant.ParentID, variant.ID)
}

// DeleteVariant implements repositories.CatalogRepository.
func (r *CatalogRepository) DeleteVariant(ctx context.Context, parentID, variantID string) error {
	if _, err := r.GetVariant(ctx, parentID, variantID); err != nil {
		return err
	}
	return r.variants.Delete(ctx, variantsPath(parentID), variantID)
}

// SetDefaultVariant implements repositories.CatalogRepository inside a transaction.
func (r *CatalogRepository) SetDefaultVariant(ctx context.Context, parentID, variantID string) error {
	path := variantsPath(parentID)
	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}
	now := r.now()
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.Documents(client.Collection(path)).GetAll()
		if err != nil {
			return err
		}
		found := false
		for _, snap := range snaps {
			if snap.Ref.ID == variantID {
				found = true
				break
			}
		}
		if !found {
			return repositories.NewNotFoundError("catalog.set_default", fmt.Sprintf("variant %s not found in %s", variantID, parentID))
		}
		for _, snap := range snaps {
			doc, err := r.variants.Decode(snap)
			if err != nil {
				return err
			}
			want := snap.Ref.ID == variantID
			if doc.Data.IsDefault == want {
				continue
			}
			if err := tx.Update(snap.Ref, []firestore.Update{
				{Path: "isDefault", Value: want},
				{Path: "updatedAt", Value: now},
			}); err != nil {
				return err
			}
		}
		return nil
	}, pfirestore.WithTxAttempts(setDefaultTxAttempts))
	if repositories.IsNotFound(err) {
		return err
	}
	return pfirestore.WrapError("catalog.set_default", err)
}

// SetStock implements repositories.CatalogRepository with one bulk writer pass per parent.
func (r *CatalogRepository) SetStock(ctx context.Context, refs []repositories.VariantRef, stock int) error {
	byParent := make(map[string][]string)
	for _, ref := range refs {
		byParent[ref.ParentID] = append(byParent[ref.ParentID], ref.VariantID)
	}
	updates := []firestore.Update{
		{Path: "stock", Value: stock},
		{Path: "updatedAt", Value: r.now()},
	}
	var errs []error
	for parentID, ids := range byParent {
		if err := r.variants.BulkUpdate(ctx, variantsPath(parentID), ids, updates); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func parentToDomain(doc pfirestore.Document[parentDocument]) domain.ParentProduct {
	p := domain.ParentProduct{
		ID:                doc.ID,
		Name:              doc.Data.Name,
		Description:       doc.Data.Description,
		Category:          doc.Data.Category,
		Highlighted:       doc.Data.Highlighted,
		AgeRecommendation: doc.Data.AgeRecommendation,
		CreatedAt:         doc.Data.CreatedAt,
		UpdatedAt:         doc.Data.UpdatedAt,
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = doc.CreateTime
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = doc.UpdateTime
	}
	return p
}

func parentFromDomain(p domain.ParentProduct) parentDocument {
	return parentDocument{
		Name:              p.Name,
		Description:       p.Description,
		Category:          p.Category,
		Highlighted:       p.Highlighted,
		AgeRecommendation: p.AgeRecommendation,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func variantToDomain(parentID string, doc pfirestore.Document[variantDocument]) domain.ProductVariant {
	v := domain.ProductVariant{
		ID:          doc.ID,
		ParentID:    parentID,
		VariantName: doc.Data.VariantName,
		Price:       doc.Data.Price,
		Images:      append([]string(nil), doc.Data.Images...),
		Description: doc.Data.Description,
		Dimensions:  doc.Data.Dimensions,
		Stock:       doc.Data.Stock,
		Attributes:  attributesFromDocument(doc.Data.Attributes),
		IsDefault:   doc.Data.IsDefault,
		CreatedAt:   doc.Data.CreatedAt,
		UpdatedAt:   doc.Data.UpdatedAt,
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = doc.CreateTime
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = doc.UpdateTime
	}
	return v
}

func variantFromDomain(v domain.ProductVariant) variantDocument {
	attrs := make(map[string]any, len(v.Attributes))
	for key, value := range v.Attributes {
		attrs[key] = value
	}
	images := v.Images
	if images == nil {
		images = []string{}
	}
	return variantDocument{
		ParentID:    v.ParentID,
		VariantName: v.VariantName,
		Price:       v.Price,
		Images:      images,
		Description: v.Description,
		Dimensions:  v.Dimensions,
		Stock:       v.Stock,
		Attributes:  attrs,
		IsDefault:   v.IsDefault,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

// attributesFromDocument stringifies attribute values; documents written by other clients may
// hold numbers or booleans.
func attributesFromDocument(raw map[string]any) domain.Attributes {
	if len(raw) == 0 {
		return nil
	}
	values := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			values[key] = ""
		case string:
			values[key] = v
		default:
			values[key] = fmt.Sprint(v)
		}
	}
	return domain.Attributes(textutil.NormalizeStringMap(values))
}
