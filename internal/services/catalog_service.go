package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maxg-dev/santiscl/internal/catalog"
	domain "github.com/maxg-dev/santiscl/internal/domain"
	"github.com/maxg-dev/santiscl/internal/platform/events"
	"github.com/maxg-dev/santiscl/internal/platform/textutil"
	"github.com/maxg-dev/santiscl/internal/repositories"
)

const (
	maxVariantAttributes = 12
	maxAttributeKeyRunes = 40
	cardLoadConcurrency  = 8
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Catalog repositories.CatalogRepository
	Media   MediaService
	Events  events.Publisher
	Clock   func() time.Time
	Logger  func(context.Context, string, map[string]any)
}

type catalogService struct {
	repo   repositories.CatalogRepository
	media  MediaService
	events events.Publisher
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("catalog service: catalog repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	publisher := deps.Events
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &catalogService{
		repo:   deps.Catalog,
		media:  deps.Media,
		events: publisher,
		clock:  func() time.Time { return clock().UTC() },
		logger: logger,
	}, nil
}

func (s *catalogService) ListParents(ctx context.Context) ([]ParentProduct, error) {
	parents, err := s.repo.ListParents(ctx)
	if err != nil {
		return nil, mapRepositoryError(err, nil)
	}
	return parents, nil
}

func (s *catalogService) ListCards(ctx context.Context) ([]ProductCard, error) {
	parents, err := s.ListParents(ctx)
	if err != nil {
		return nil, err
	}

	variants := make([][]ProductVariant, len(parents))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cardLoadConcurrency)
	for i, parent := range parents {
		g.Go(func() error {
			list, err := s.repo.ListVariants(gctx, parent.ID)
			if err != nil {
				return mapRepositoryError(err, nil)
			}
			variants[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byParent := make(map[string][]ProductVariant, len(parents))
	for i, parent := range parents {
		byParent[parent.ID] = variants[i]
	}
	cards, skipped := catalog.BuildCards(parents, byParent)
	if len(skipped) > 0 {
		s.logger(ctx, "catalog.parents_without_variants", map[string]any{"parentIds": skipped})
	}
	return cards, nil
}

func (s *catalogService) GetParentAndVariants(ctx context.Context, parentID string) (ProductDetail, error) {
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		return ProductDetail{}, ErrProductNotFound
	}
	parent, err := s.repo.GetParent(ctx, parentID)
	if err != nil {
		return ProductDetail{}, mapRepositoryError(err, ErrProductNotFound)
	}
	variants, err := s.repo.ListVariants(ctx, parentID)
	if err != nil {
		return ProductDetail{}, mapRepositoryError(err, nil)
	}
	return ProductDetail{Parent: parent, Variants: variants}, nil
}

func (s *catalogService) GetVariant(ctx context.Context, parentID, variantID string) (ProductVariant, error) {
	parentID = strings.TrimSpace(parentID)
	variantID = strings.TrimSpace(variantID)
	if parentID == "" || variantID == "" {
		return ProductVariant{}, ErrVariantNotFound
	}
	variant, err := s.repo.GetVariant(ctx, parentID, variantID)
	if err != nil {
		return ProductVariant{}, mapRepositoryError(err, ErrVariantNotFound)
	}
	return variant, nil
}

func (s *catalogService) CreateParent(ctx context.Context, cmd UpsertParentCommand) (ParentProduct, error) {
	parent, err := s.parentFromCommand(cmd)
	if err != nil {
		return ParentProduct{}, err
	}
	created, err := s.repo.CreateParent(ctx, parent)
	if err != nil {
		return ParentProduct{}, mapRepositoryError(err, nil)
	}
	s.publish(ctx, events.TypeProductCreated, created.ID, cmd.ActorID, map[string]string{
		"name":     created.Name,
		"category": created.Category,
	})
	return created, nil
}

func (s *catalogService) UpdateParent(ctx context.Context, cmd UpsertParentCommand) (ParentProduct, error) {
	id := strings.TrimSpace(cmd.ID)
	if id == "" {
		return ParentProduct{}, invalidField("id", "es obligatorio")
	}
	parent, err := s.parentFromCommand(cmd)
	if err != nil {
		return ParentProduct{}, err
	}
	parent.ID = id
	updated, err := s.repo.UpdateParent(ctx, parent)
	if err != nil {
		return ParentProduct{}, mapRepositoryError(err, ErrProductNotFound)
	}
	s.publish(ctx, events.TypeProductUpdated, updated.ID, cmd.ActorID, map[string]string{
		"name":     updated.Name,
		"category": updated.Category,
	})
	return updated, nil
}

func (s *catalogService) DeleteParent(ctx context.Context, cmd DeleteParentCommand) error {
	parentID := strings.TrimSpace(cmd.ParentID)
	if parentID == "" {
		return ErrProductNotFound
	}
	removed, err := s.repo.DeleteParentCascade(ctx, parentID)
	if err != nil {
		return mapRepositoryError(err, ErrProductNotFound)
	}

	var images []string
	for _, v := range removed {
		images = append(images, v.Images...)
	}
	s.deleteImages(ctx, images)

	s.publish(ctx, events.TypeProductDeleted, parentID, cmd.ActorID, map[string]string{
		"variants": strconv.Itoa(len(removed)),
	})
	return nil
}

func (s *catalogService) CreateVariant(ctx context.Context, cmd UpsertVariantCommand) (ProductVariant, error) {
	variant, err := variantFromCommand(cmd)
	if err != nil {
		return ProductVariant{}, err
	}
	created, err := s.repo.CreateVariant(ctx, variant)
	if err != nil {
		return ProductVariant{}, mapRepositoryError(err, ErrProductNotFound)
	}
	if created.IsDefault {
		if err := s.repo.SetDefaultVariant(ctx, created.ParentID, created.ID); err != nil {
			return ProductVariant{}, mapRepositoryError(err, ErrVariantNotFound)
		}
	}
	s.publish(ctx, events.TypeVariantCreated, variantSubject(created), cmd.ActorID, map[string]string{
		"variantName": created.VariantName,
	})
	return created, nil
}

func (s *catalogService) UpdateVariant(ctx context.Context, cmd UpsertVariantCommand) (ProductVariant, error) {
	if strings.TrimSpace(cmd.VariantID) == "" {
		return ProductVariant{}, invalidField("variantId", "es obligatorio")
	}
	variant, err := variantFromCommand(cmd)
	if err != nil {
		return ProductVariant{}, err
	}
	existing, err := s.repo.GetVariant(ctx, variant.ParentID, variant.ID)
	if err != nil {
		return ProductVariant{}, mapRepositoryError(err, ErrVariantNotFound)
	}
	updated, err := s.repo.UpdateVariant(ctx, variant)
	if err != nil {
		return ProductVariant{}, mapRepositoryError(err, ErrVariantNotFound)
	}
	if updated.IsDefault && !existing.IsDefault {
		if err := s.repo.SetDefaultVariant(ctx, updated.ParentID, updated.ID); err != nil {
			return ProductVariant{}, mapRepositoryError(err, ErrVariantNotFound)
		}
	}
	s.deleteImages(ctx, removedImages(existing.Images, updated.Images))
	s.publish(ctx, events.TypeVariantUpdated, variantSubject(updated), cmd.ActorID, map[string]string{
		"variantName": updated.VariantName,
	})
	return updated, nil
}

func (s *catalogService) DeleteVariant(ctx context.Context, cmd DeleteVariantCommand) error {
	parentID := strings.TrimSpace(cmd.ParentID)
	variantID := strings.TrimSpace(cmd.VariantID)
	if parentID == "" || variantID == "" {
		return ErrVariantNotFound
	}
	existing, err := s.repo.GetVariant(ctx, parentID, variantID)
	if err != nil {
		return mapRepositoryError(err, ErrVariantNotFound)
	}
	if err := s.repo.DeleteVariant(ctx, parentID, variantID); err != nil {
		return mapRepositoryError(err, ErrVariantNotFound)
	}
	s.deleteImages(ctx, existing.Images)
	s.publish(ctx, events.TypeVariantDeleted, variantSubject(existing), cmd.ActorID, nil)
	return nil
}

func (s *catalogService) SetDefaultVariant(ctx context.Context, cmd SetDefaultVariantCommand) error {
	parentID := strings.TrimSpace(cmd.ParentID)
	variantID := strings.TrimSpace(cmd.VariantID)
	if parentID == "" || variantID == "" {
		return ErrVariantNotFound
	}
	if err := s.repo.SetDefaultVariant(ctx, parentID, variantID); err != nil {
		return mapRepositoryError(err, ErrVariantNotFound)
	}
	s.publish(ctx, events.TypeVariantUpdated, parentID+"/"+variantID, cmd.ActorID, map[string]string{
		"isDefault": "true",
	})
	return nil
}

func (s *catalogService) parentFromCommand(cmd UpsertParentCommand) (ParentProduct, error) {
	cmd.Name = textutil.CollapseSpaces(cmd.Name)
	cmd.Description = strings.TrimSpace(cmd.Description)
	cmd.Category = strings.TrimSpace(cmd.Category)
	cmd.AgeRecommendation = strings.TrimSpace(cmd.AgeRecommendation)
	if err := validateStruct(cmd); err != nil {
		return ParentProduct{}, err
	}
	if !catalog.IsProductCategory(cmd.Category) {
		return ParentProduct{}, invalidField("category", "no es una categoría válida")
	}
	return ParentProduct{
		Name:              cmd.Name,
		Description:       cmd.Description,
		Category:          cmd.Category,
		Highlighted:       cmd.Highlighted,
		AgeRecommendation: cmd.AgeRecommendation,
	}, nil
}

func variantFromCommand(cmd UpsertVariantCommand) (ProductVariant, error) {
	parentID := strings.TrimSpace(cmd.ParentID)
	if parentID == "" {
		return ProductVariant{}, invalidField("parentId", "es obligatorio")
	}
	cmd.VariantName = textutil.CollapseSpaces(cmd.VariantName)
	cmd.Description = strings.TrimSpace(cmd.Description)
	cmd.Dimensions = strings.TrimSpace(cmd.Dimensions)
	cmd.Images = compactStrings(cmd.Images)
	if err := validateStruct(cmd); err != nil {
		return ProductVariant{}, err
	}

	attrs := domain.Attributes(textutil.NormalizeStringMap(cmd.Attributes))
	if len(attrs) > maxVariantAttributes {
		return ProductVariant{}, invalidField("attributes", fmt.Sprintf("admite como máximo %d atributos", maxVariantAttributes))
	}
	for key := range attrs {
		if len([]rune(key)) > maxAttributeKeyRunes {
			return ProductVariant{}, invalidField("attributes", fmt.Sprintf("el nombre %q es demasiado largo", textutil.Truncate(key, maxAttributeKeyRunes)))
		}
	}

	return ProductVariant{
		ID:          strings.TrimSpace(cmd.VariantID),
		ParentID:    parentID,
		VariantName: cmd.VariantName,
		Price:       cmd.Price,
		Images:      cmd.Images,
		Description: cmd.Description,
		Dimensions:  cmd.Dimensions,
		Stock:       cmd.Stock,
		Attributes:  attrs,
		IsDefault:   cmd.IsDefault,
	}, nil
}

func (s *catalogService) deleteImages(ctx context.Context, urls []string) {
	if s.media == nil || len(urls) == 0 {
		return
	}
	s.media.Delete(ctx, urls...)
}

func (s *catalogService) publish(ctx context.Context, eventType, subject, actorID string, data map[string]string) {
	event := events.Event{
		Type:       eventType,
		Subject:    subject,
		ActorID:    strings.TrimSpace(actorID),
		OccurredAt: s.clock(),
		Data:       data,
	}
	if _, err := s.events.Publish(ctx, event); err != nil {
		s.logger(ctx, "catalog.event_publish_failed", map[string]any{
			"type":    eventType,
			"subject": subject,
			"error":   err,
		})
	}
}

func variantSubject(v ProductVariant) string {
	return v.ParentID + "/" + v.ID
}

func removedImages(before, after []string) []string {
	keep := make(map[string]struct{}, len(after))
	for _, ref := range after {
		keep[ref] = struct{}{}
	}
	var removed []string
	for _, ref := range before {
		if _, ok := keep[ref]; !ok {
			removed = append(removed, ref)
		}
	}
	return removed
}

func compactStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
