//go:build integration

package firestore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"

	pconfig "github.com/maxg-dev/santiscl/internal/platform/config"
	pfirestore "github.com/maxg-dev/santiscl/internal/platform/firestore"
)

type sampleDoc struct {
	Name  string `firestore:"name"`
	Stock int    `firestore:"stock"`
}

func TestStoreAgainstEmulator(t *testing.T) {
	host := os.Getenv("FIRESTORE_EMULATOR_HOST")
	if host == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{ProjectID: "santis-test", EmulatorHost: host})
	t.Cleanup(func() { _ = provider.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	store := pfirestore.NewStore[sampleDoc](provider, nil, nil)
	path := pfirestore.CollectionPath("parent_products", "it-parent", "product_variants")

	id, err := store.Create(ctx, path, sampleDoc{Name: "Natural", Stock: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.BulkUpdate(ctx, path, []string{id}, []firestore.Update{{Path: "stock", Value: 3}}); err != nil {
		t.Fatalf("bulk update: %v", err)
	}
	doc, err := store.Get(ctx, path, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Data.Stock != 3 {
		t.Fatalf("expected stock 3, got %d", doc.Data.Stock)
	}

	if err := store.BulkDelete(ctx, path, []string{id}); err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	_, err = store.Get(ctx, path, id)
	repoErr, ok := err.(*pfirestore.Error)
	if !ok || !repoErr.IsNotFound() {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
