package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/Turistty/Simplifique-Application/internal/app/domain/reward"
	"github.com/Turistty/Simplifique-Application/internal/app/services/catalog"
	"github.com/Turistty/Simplifique-Application/internal/app/services/orders"
	"github.com/Turistty/Simplifique-Application/internal/app/services/points"
	"github.com/Turistty/Simplifique-Application/internal/app/storage/memory"
	"github.com/Turistty/Simplifique-Application/pkg/logger"
)

type fixture struct {
	cart    *Service
	catalog *catalog.Service
	points  *points.Service
	store   *memory.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	log := logger.NewDefault("cart-test")
	cat := catalog.New(store, store, log)
	pts := points.New(store, log)
	ord := orders.New(store, store, cat, pts, log)
	return fixture{
		cart:    New(cat, pts, ord, nil, log),
		catalog: cat,
		points:  pts,
		store:   store,
	}
}

func (f fixture) seedItem(t *testing.T, item reward.Item) reward.Item {
	t.Helper()
	created, err := f.catalog.CreateItem(context.Background(), item)
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return created
}

func (f fixture) seedCredit(t *testing.T, userID string, quantity int) {
	t.Helper()
	if _, err := f.points.Credit(context.Background(), userID, quantity, "campanha", "", "admin"); err != nil {
		t.Fatalf("seed credit: %v", err)
	}
}

func TestAddAddRemoveRemoveRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := f.seedItem(t, reward.Item{ProductID: 1, Name: "Caneca", PointsCost: 400, StockInitial: 5})
	f.seedCredit(t, "u1", 1000)

	first, err := f.cart.Add(ctx, "u1", item.ID, "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if first.Quantity != 1 {
		t.Fatalf("quantity = %d, want 1", first.Quantity)
	}

	second, err := f.cart.Add(ctx, "u1", item.ID, "")
	if err != nil {
		t.Fatalf("Add again: %v", err)
	}
	if second.Quantity != 2 {
		t.Fatalf("quantity = %d, want 2 (same key increments)", second.Quantity)
	}
	if len(f.cart.Items("u1")) != 1 {
		t.Fatalf("entries = %d, want 1", len(f.cart.Items("u1")))
	}

	if _, err := f.cart.Decrement("u1", first.Key); err != nil {
		t.Fatalf("Decrement: %v", err)
	}
	if f.cart.Count("u1") != 1 {
		t.Fatalf("count = %d, want 1", f.cart.Count("u1"))
	}
	if _, err := f.cart.Decrement("u1", first.Key); err != nil {
		t.Fatalf("Decrement to zero: %v", err)
	}
	if len(f.cart.Items("u1")) != 0 {
		t.Fatal("cart should be empty after quantity reaches zero")
	}
}

func TestSizeVariantsAreDistinctEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := f.seedItem(t, reward.Item{ProductID: 1, Name: "Camiseta", PointsCost: 700, StockInitial: 10})
	f.seedCredit(t, "u1", 2000)

	if _, err := f.cart.Add(ctx, "u1", item.ID, "P"); err != nil {
		t.Fatalf("Add P: %v", err)
	}
	if _, err := f.cart.Add(ctx, "u1", item.ID, "GG"); err != nil {
		t.Fatalf("Add GG: %v", err)
	}

	items := f.cart.Items("u1")
	if len(items) != 2 {
		t.Fatalf("entries = %d, want 2 (distinct keys per size)", len(items))
	}
	if items[0].Key == items[1].Key {
		t.Fatal("size variants must have distinct keys")
	}
}

func TestAddRejectsZeroStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := f.seedItem(t, reward.Item{ProductID: 1, Name: "Caneca", PointsCost: 400, StockInitial: 0})

	if _, err := f.cart.Add(ctx, "u1", item.ID, ""); !errors.Is(err, orders.ErrOutOfStock) {
		t.Fatalf("err = %v, want ErrOutOfStock", err)
	}
	if notice, ok := f.cart.Notifier().Current("u1"); !ok || notice.Kind != NoticeError {
		t.Fatalf("expected error notification, got %+v ok=%t", notice, ok)
	}
}

func TestAddBoundsQuantityByStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := f.seedItem(t, reward.Item{ProductID: 1, Name: "Caneca", PointsCost: 400, StockInitial: 2})
	f.seedCredit(t, "u1", 1000)

	for i := 0; i < 2; i++ {
		if _, err := f.cart.Add(ctx, "u1", item.ID, ""); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}
	if _, err := f.cart.Add(ctx, "u1", item.ID, ""); !errors.Is(err, orders.ErrOutOfStock) {
		t.Fatalf("err = %v, want ErrOutOfStock past stock", err)
	}
}

func TestCartsAreIsolatedPerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := f.seedItem(t, reward.Item{ProductID: 1, Name: "Caneca", PointsCost: 400, StockInitial: 5})
	f.seedCredit(t, "u1", 1000)

	if _, err := f.cart.Add(ctx, "u1", item.ID, ""); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := f.cart.Count("u2"); got != 0 {
		t.Fatalf("u2 count = %d, want 0", got)
	}
}

func TestCheckoutEmptiesCartAndOpensMovements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := f.seedItem(t, reward.Item{ProductID: 1, Name: "Caneca", PointsCost: 400, StockInitial: 5})
	f.seedCredit(t, "u1", 1000)

	if _, err := f.cart.Add(ctx, "u1", item.ID, ""); err != nil {
		t.Fatalf("Add: %v", err)
	}

	movs, err := f.cart.Checkout(ctx, "u1")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if len(movs) != 1 {
		t.Fatalf("movements = %d, want 1", len(movs))
	}
	if len(f.cart.Items("u1")) != 0 {
		t.Fatal("cart should be empty after checkout")
	}

	balance, err := f.points.Balance(ctx, "u1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance.Processing != 400 {
		t.Fatalf("processing = %d, want 400", balance.Processing)
	}
	if notice, ok := f.cart.Notifier().Current("u1"); !ok || notice.Kind != NoticeSuccess {
		t.Fatalf("expected success notification, got %+v ok=%t", notice, ok)
	}
}

func TestCheckoutInsufficientBalanceKeepsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := f.seedItem(t, reward.Item{ProductID: 1, Name: "Camiseta", PointsCost: 400, StockInitial: 5})
	f.seedCredit(t, "u1", 500)

	// Each entry is affordable on its own; only the combined total is not.
	if _, err := f.cart.Add(ctx, "u1", item.ID, "P"); err != nil {
		t.Fatalf("Add P: %v", err)
	}
	if _, err := f.cart.Add(ctx, "u1", item.ID, "M"); err != nil {
		t.Fatalf("Add M: %v", err)
	}
	if _, err := f.cart.Checkout(ctx, "u1"); !errors.Is(err, points.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if len(f.cart.Items("u1")) != 2 {
		t.Fatal("failed checkout must leave cart untouched")
	}
}

func TestAddRejectsInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := f.seedItem(t, reward.Item{ProductID: 1, Name: "Caneca", PointsCost: 400, StockInitial: 5})
	f.seedCredit(t, "u1", 100)

	if _, err := f.cart.Add(ctx, "u1", item.ID, ""); !errors.Is(err, points.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if len(f.cart.Items("u1")) != 0 {
		t.Fatal("rejected add must not mutate the cart")
	}
	if notice, ok := f.cart.Notifier().Current("u1"); !ok || notice.Kind != NoticeError {
		t.Fatalf("expected error notification, got %+v ok=%t", notice, ok)
	}
}

func TestAddRejectsUnpricedVariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := f.seedItem(t, reward.Item{ProductID: 1, Name: "Adesivo", PointsCost: 0, StockInitial: 5})
	f.seedCredit(t, "u1", 1000)

	if _, err := f.cart.Add(ctx, "u1", item.ID, ""); !errors.Is(err, orders.ErrUnpriced) {
		t.Fatalf("err = %v, want ErrUnpriced", err)
	}
	if len(f.cart.Items("u1")) != 0 {
		t.Fatal("unpriced add must not mutate the cart")
	}
}

func TestAddIncrementBoundedByBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := f.seedItem(t, reward.Item{ProductID: 1, Name: "Caneca", PointsCost: 400, StockInitial: 10})
	f.seedCredit(t, "u1", 500)

	first, err := f.cart.Add(ctx, "u1", item.ID, "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	// A second unit would carry the entry to 800 points against 500
	// available.
	if _, err := f.cart.Add(ctx, "u1", item.ID, ""); !errors.Is(err, points.ErrInsufficientBalance) {
		t.Fatalf("Add err = %v, want ErrInsufficientBalance", err)
	}
	if _, err := f.cart.Increment(ctx, "u1", first.Key); !errors.Is(err, points.ErrInsufficientBalance) {
		t.Fatalf("Increment err = %v, want ErrInsufficientBalance", err)
	}
	if got := f.cart.Items("u1")[0].Quantity; got != 1 {
		t.Fatalf("quantity = %d, want 1 after rejected increments", got)
	}
}

func TestAddProductResolvesSizeWithFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	small := f.seedItem(t, reward.Item{ProductID: 7, Name: "Camiseta - P", Size: "P", PointsCost: 650, StockInitial: 3})
	medium := f.seedItem(t, reward.Item{ProductID: 7, Name: "Camiseta - M", Size: "M", PointsCost: 650, StockInitial: 3})
	f.seedCredit(t, "u1", 10000)

	matched, err := f.cart.AddProduct(ctx, "u1", 7, "M")
	if err != nil {
		t.Fatalf("AddProduct M: %v", err)
	}
	if matched.VariantID != medium.ID || matched.Size != "M" {
		t.Fatalf("resolved variant %d size %q, want %d size M", matched.VariantID, matched.Size, medium.ID)
	}

	fallback, err := f.cart.AddProduct(ctx, "u1", 7, "GG")
	if err != nil {
		t.Fatalf("AddProduct GG: %v", err)
	}
	if fallback.VariantID != small.ID {
		t.Fatalf("unmatched size resolved variant %d, want first variant %d", fallback.VariantID, small.ID)
	}

	omitted, err := f.cart.AddProduct(ctx, "u1", 7, "")
	if err != nil {
		t.Fatalf("AddProduct no size: %v", err)
	}
	if omitted.VariantID != small.ID || omitted.Quantity != 2 {
		t.Fatalf("omitted size item = %+v, want first variant incremented to 2", omitted)
	}

	if _, err := f.cart.AddProduct(ctx, "u1", 99, ""); !errors.Is(err, catalog.ErrVariantNotFound) {
		t.Fatalf("err = %v, want ErrVariantNotFound for unknown product", err)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	if _, err := f.cart.Checkout(context.Background(), "u1"); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("err = %v, want ErrEmptyCart", err)
	}
}
