package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/maxg-dev/santiscl/internal/platform/events"
	"github.com/maxg-dev/santiscl/internal/repositories"
)

// InventoryServiceDeps bundles collaborators for stock maintenance.
type InventoryServiceDeps struct {
	Catalog repositories.CatalogRepository
	Events  events.Publisher
	Clock   func() time.Time
	Logger  func(context.Context, string, map[string]any)
}

type inventoryService struct {
	repo   repositories.CatalogRepository
	events events.Publisher
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)
}

var _ InventoryService = (*inventoryService)(nil)

// NewInventoryService constructs the inventory service.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("inventory service: catalog repository is required")
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
	return &inventoryService{
		repo:   deps.Catalog,
		events: publisher,
		clock:  func() time.Time { return clock().UTC() },
		logger: logger,
	}, nil
}

func (s *inventoryService) SetStockForAll(ctx context.Context, cmd SetStockCommand) (StockUpdateResult, error) {
	if cmd.Stock < 0 {
		return StockUpdateResult{}, invalidField("stock", "debe ser mayor o igual a 0")
	}
	variants, err := s.repo.ListAllVariants(ctx)
	if err != nil {
		return StockUpdateResult{}, mapRepositoryError(err, nil)
	}
	if len(variants) == 0 {
		return StockUpdateResult{Stock: cmd.Stock}, nil
	}

	refs := make([]repositories.VariantRef, 0, len(variants))
	for _, v := range variants {
		refs = append(refs, repositories.VariantRef{ParentID: v.ParentID, VariantID: v.ID})
	}
	if err := s.repo.SetStock(ctx, refs, cmd.Stock); err != nil {
		return StockUpdateResult{}, mapRepositoryError(err, nil)
	}

	s.logger(ctx, "inventory.stock_set", map[string]any{"variants": len(refs), "stock": cmd.Stock})
	if _, err := s.events.Publish(ctx, events.Event{
		Type:       events.TypeStockUpdated,
		Subject:    "all",
		ActorID:    cmd.ActorID,
		OccurredAt: s.clock(),
		Data: map[string]string{
			"stock":    strconv.Itoa(cmd.Stock),
			"variants": strconv.Itoa(len(refs)),
		},
	}); err != nil {
		s.logger(ctx, "inventory.event_publish_failed", map[string]any{"error": err})
	}
	return StockUpdateResult{Updated: len(refs), Stock: cmd.Stock}, nil
}
