package catalog

import (
	"context"
	"testing"

	"github.com/Turistty/Simplifique-Application/internal/app/domain/reward"
	"github.com/Turistty/Simplifique-Application/internal/app/storage/memory"
)

func TestSyncerUpsertsVariants(t *testing.T) {
	store := memory.New()
	remote := reward.Reward{
		ID:         5,
		Name:       "Camiseta",
		Category:   "Vestuário",
		PointsCost: 650,
		ImageURL:   "https://cdn.example.com/camiseta.png",
		Variants: []reward.Variant{
			{ID: 51, Size: "P", PointsCost: 650, Stock: 4},
			{ID: 52, Size: "M", Stock: 6},
		},
	}
	source := SourceFunc(func(context.Context) ([]reward.Reward, error) {
		return []reward.Reward{remote}, nil
	})

	syncer := NewSyncer(source, store, nil)
	syncer.Sync(context.Background())

	items, err := store.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}

	medium, err := store.GetItem(context.Background(), 52)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if medium.PointsCost != 650 {
		t.Errorf("variant without cost should inherit product cost, got %d", medium.PointsCost)
	}
	if medium.StockInitial != 6 {
		t.Errorf("StockInitial = %d, want 6", medium.StockInitial)
	}
	if medium.ProductID != 5 {
		t.Errorf("ProductID = %d, want 5", medium.ProductID)
	}

	remote.Variants[0].Stock = 9
	syncer.Sync(context.Background())

	small, err := store.GetItem(context.Background(), 51)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if small.StockInitial != 9 {
		t.Errorf("second sync should update stock, got %d", small.StockInitial)
	}
	if items, _ := store.ListItems(context.Background()); len(items) != 2 {
		t.Errorf("second sync duplicated rows: %d items", len(items))
	}
}

func TestSyncerToleratesFetchFailure(t *testing.T) {
	store := memory.New()
	source := SourceFunc(func(context.Context) ([]reward.Reward, error) {
		return nil, context.DeadlineExceeded
	})

	syncer := NewSyncer(source, store, nil)
	syncer.Sync(context.Background())

	if items, _ := store.ListItems(context.Background()); len(items) != 0 {
		t.Fatalf("failed fetch must not write rows, got %d", len(items))
	}
}
