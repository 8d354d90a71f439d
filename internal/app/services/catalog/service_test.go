package catalog

import (
	"context"
	"testing"

	"github.com/Turistty/Simplifique-Application/internal/app/domain/order"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/reward"
	"github.com/Turistty/Simplifique-Application/internal/app/storage/memory"
	"github.com/Turistty/Simplifique-Application/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return New(store, store, logger.NewDefault("catalog-test")), store
}

func seedItem(t *testing.T, svc *Service, item reward.Item) reward.Item {
	t.Helper()
	created, err := svc.CreateItem(context.Background(), item)
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return created
}

func TestGroupedProductsDerivedFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seedItem(t, svc, reward.Item{ProductID: 1, Name: "Camiseta - P", Size: "P", Category: "Vestuário", PointsCost: 700, StockInitial: 5})
	seedItem(t, svc, reward.Item{ProductID: 1, Name: "Camiseta - GG", Size: "GG", Category: "Vestuário", PointsCost: 650, StockInitial: 3})
	seedItem(t, svc, reward.Item{ProductID: 2, Name: "Caneca", Category: "Cozinha", PointsCost: 400, StockInitial: 8})

	grouped, err := svc.GroupedProducts(ctx)
	if err != nil {
		t.Fatalf("GroupedProducts: %v", err)
	}
	if len(grouped) != 2 {
		t.Fatalf("groups = %d, want 2", len(grouped))
	}

	shirt := grouped[0]
	if shirt.Name != "Camiseta" {
		t.Fatalf("group name = %q, want Camiseta", shirt.Name)
	}
	if shirt.Stock != 8 {
		t.Fatalf("group stock = %d, want 8", shirt.Stock)
	}
	if shirt.PointsCost != 650 {
		t.Fatalf("group pointsCost = %d, want 650", shirt.PointsCost)
	}
	if len(shirt.Sizes) != 2 || shirt.Sizes[0] != "GG" || shirt.Sizes[1] != "P" {
		t.Fatalf("group sizes = %v, want sorted [GG P]", shirt.Sizes)
	}
	if len(shirt.Variants) != 2 {
		t.Fatalf("group variants = %d, want 2", len(shirt.Variants))
	}
}

func TestStockReflectsConfirmedMovementsOnly(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	item := seedItem(t, svc, reward.Item{ProductID: 1, Name: "Caneca", PointsCost: 400, StockInitial: 10})

	mk := func(typ, status string, qty int) {
		if _, err := store.CreateMovement(ctx, order.Movement{
			UserID:    "u1",
			VariantID: item.ID,
			Quantity:  qty,
			Type:      typ,
			Status:    status,
		}); err != nil {
			t.Fatalf("create movement: %v", err)
		}
	}
	mk(order.TypeOut, order.StatusConfirmed, 3)
	mk(order.TypeOut, order.StatusProcessing, 4)
	mk(order.TypeOut, order.StatusCanceled, 2)
	mk(order.TypeIn, order.StatusConfirmed, 1)

	stock, err := svc.VariantStock(ctx, item.ID)
	if err != nil {
		t.Fatalf("VariantStock: %v", err)
	}
	if stock != 8 {
		t.Fatalf("stock = %d, want 8 (10 - 3 confirmed out + 1 confirmed in)", stock)
	}
}

func TestStockFloorsAtZero(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	item := seedItem(t, svc, reward.Item{ProductID: 1, Name: "Caneca", PointsCost: 400, StockInitial: 2})
	if _, err := store.CreateMovement(ctx, order.Movement{
		UserID:    "u1",
		VariantID: item.ID,
		Quantity:  5,
		Type:      order.TypeOut,
		Status:    order.StatusConfirmed,
	}); err != nil {
		t.Fatalf("create movement: %v", err)
	}

	stock, err := svc.VariantStock(ctx, item.ID)
	if err != nil {
		t.Fatalf("VariantStock: %v", err)
	}
	if stock != 0 {
		t.Fatalf("stock = %d, want 0", stock)
	}
}

func TestVariantStockUnknownVariant(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.VariantStock(context.Background(), 99); err != ErrVariantNotFound {
		t.Fatalf("err = %v, want ErrVariantNotFound", err)
	}
}

func TestCreateItemValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateItem(ctx, reward.Item{Name: "  "}); err == nil {
		t.Fatal("expected error for blank name")
	}
	if _, err := svc.CreateItem(ctx, reward.Item{Name: "Caneca", PointsCost: -1}); err == nil {
		t.Fatal("expected error for negative cost")
	}

	created, err := svc.CreateItem(ctx, reward.Item{Name: "Caneca", PointsCost: 400})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if created.Category != "Outros" {
		t.Fatalf("category = %q, want default Outros", created.Category)
	}
	if !created.Active {
		t.Fatal("created item should be active")
	}
}

// fakeCache records interactions so cache hit and invalidation behavior can
// be asserted without a Redis instance.
type fakeCache struct {
	value       []reward.Reward
	hit         bool
	sets        int
	invalidates int
}

func (f *fakeCache) Get(context.Context) ([]reward.Reward, bool) { return f.value, f.hit }
func (f *fakeCache) Set(_ context.Context, rewards []reward.Reward) {
	f.value = rewards
	f.sets++
}
func (f *fakeCache) Invalidate(context.Context) { f.invalidates++ }

func TestGroupedProductsCaching(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cache := &fakeCache{}
	svc.WithCache(cache)

	seedItem(t, svc, reward.Item{ProductID: 1, Name: "Caneca", PointsCost: 400, StockInitial: 8})
	if cache.invalidates == 0 {
		t.Fatal("creating an item should invalidate the cache")
	}

	if _, err := svc.GroupedProducts(ctx); err != nil {
		t.Fatalf("GroupedProducts: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("cache sets = %d, want 1", cache.sets)
	}

	cache.hit = true
	cache.value = []reward.Reward{{ID: 99, Name: "cached"}}
	grouped, err := svc.GroupedProducts(ctx)
	if err != nil {
		t.Fatalf("GroupedProducts: %v", err)
	}
	if len(grouped) != 1 || grouped[0].ID != 99 {
		t.Fatalf("expected cached view, got %#v", grouped)
	}
}
