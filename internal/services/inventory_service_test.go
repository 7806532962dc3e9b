package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/maxg-dev/santiscl/internal/domain"
	"github.com/maxg-dev/santiscl/internal/platform/events"
)

func TestInventorySetStockForAll(t *testing.T) {
	repo := newMemoryCatalog()
	repo.addParent(domain.ParentProduct{ID: "p1"}, domain.ProductVariant{ID: "a", Stock: 3}, domain.ProductVariant{ID: "b"})
	repo.addParent(domain.ParentProduct{ID: "p2"}, domain.ProductVariant{ID: "c", Stock: 9})
	pub := &recordingPublisher{}
	svc, err := NewInventoryService(InventoryServiceDeps{Catalog: repo, Events: pub, Clock: fixedClock()})
	if err != nil {
		t.Fatalf("NewInventoryService: %v", err)
	}

	result, err := svc.SetStockForAll(context.Background(), SetStockCommand{Stock: 1, ActorID: "admin"})
	if err != nil {
		t.Fatalf("SetStockForAll: %v", err)
	}
	if result.Updated != 3 || result.Stock != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	all, _ := repo.ListAllVariants(context.Background())
	for _, v := range all {
		if v.Stock != 1 {
			t.Fatalf("variant %s has stock %d", v.ID, v.Stock)
		}
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.TypeStockUpdated || pub.events[0].Data["variants"] != "3" {
		t.Fatalf("unexpected events %+v", pub.events)
	}
}

func TestInventorySetStockValidatesAndPropagates(t *testing.T) {
	repo := newMemoryCatalog()
	repo.addParent(domain.ParentProduct{ID: "p1"}, domain.ProductVariant{ID: "a"})
	svc, err := NewInventoryService(InventoryServiceDeps{Catalog: repo})
	if err != nil {
		t.Fatalf("NewInventoryService: %v", err)
	}
	if _, err := svc.SetStockForAll(context.Background(), SetStockCommand{Stock: -1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	repo.stockErr = errors.New("bulk writer: 1 of 1 failed")
	if _, err := svc.SetStockForAll(context.Background(), SetStockCommand{Stock: 2}); err == nil {
		t.Fatal("expected stock error")
	}
}

func TestInventorySetStockWithEmptyCatalog(t *testing.T) {
	svc, err := NewInventoryService(InventoryServiceDeps{Catalog: newMemoryCatalog()})
	if err != nil {
		t.Fatalf("NewInventoryService: %v", err)
	}
	result, err := svc.SetStockForAll(context.Background(), SetStockCommand{Stock: 4})
	if err != nil || result.Updated != 0 {
		t.Fatalf("unexpected result %+v err %v", result, err)
	}
}
