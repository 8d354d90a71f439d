// Package catalog normalizes heterogeneous reward records into the canonical
// product/variant model and serves the grouped and flat catalog views.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Turistty/Simplifique-Application/internal/app/domain/order"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/reward"
	"github.com/Turistty/Simplifique-Application/internal/app/storage"
	"github.com/Turistty/Simplifique-Application/pkg/logger"
)

// ErrVariantNotFound is returned when a variant id resolves to nothing.
var ErrVariantNotFound = fmt.Errorf("variant not found")

// Service serves catalog views backed by the reward store, deriving current
// stock from confirmed movements.
type Service struct {
	items     storage.RewardStore
	movements storage.MovementStore
	cache     Cache
	log       *logger.Logger
}

// New constructs a catalog service.
func New(items storage.RewardStore, movements storage.MovementStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{
		items:     items,
		movements: movements,
		log:       log,
	}
}

// WithCache attaches an optional grouped-view cache.
func (s *Service) WithCache(cache Cache) *Service {
	s.cache = cache
	return s
}

// ListVariations returns every active variant row with its current stock.
func (s *Service) ListVariations(ctx context.Context) ([]reward.Item, error) {
	items, err := s.items.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	stock, err := s.stockMap(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]reward.Item, 0, len(items))
	for _, item := range items {
		if !item.Active {
			continue
		}
		current, ok := stock[item.ID]
		if !ok {
			current = item.StockInitial
		}
		item.StockCurrent = current
		result = append(result, item)
	}
	return result, nil
}

// VariantStock returns the current stock of one variant.
func (s *Service) VariantStock(ctx context.Context, variantID int) (int, error) {
	items, err := s.ListVariations(ctx)
	if err != nil {
		return 0, err
	}
	for _, item := range items {
		if item.ID == variantID {
			return item.StockCurrent, nil
		}
	}
	return 0, ErrVariantNotFound
}

// GroupedProducts groups active variant rows by product, computing the
// derived fields the storefront consumes: size set, minimum cost and summed
// stock.
func (s *Service) GroupedProducts(ctx context.Context) ([]reward.Reward, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx); ok {
			return cached, nil
		}
	}

	items, err := s.ListVariations(ctx)
	if err != nil {
		return nil, err
	}

	byProduct := map[int]*reward.Reward{}
	var productIDs []int
	for _, item := range items {
		grouped, ok := byProduct[item.ProductID]
		if !ok {
			grouped = &reward.Reward{
				ID:          item.ProductID,
				Name:        NormalizeBaseName(item.Name),
				Description: item.Description,
				Details:     item.Details,
				Category:    item.Category,
				ImageURL:    item.ImageURL,
			}
			byProduct[item.ProductID] = grouped
			productIDs = append(productIDs, item.ProductID)
		}
		if grouped.ImageURL == "" && item.ImageURL != "" {
			grouped.ImageURL = item.ImageURL
		}
		grouped.Variants = append(grouped.Variants, reward.Variant{
			ID:         item.ID,
			Size:       item.Size,
			PointsCost: item.PointsCost,
			ImageURL:   item.ImageURL,
			Stock:      item.StockCurrent,
			SKU:        item.SKU,
		})
	}

	sort.Ints(productIDs)
	result := make([]reward.Reward, 0, len(productIDs))
	for _, pid := range productIDs {
		grouped := byProduct[pid]

		var sizes []string
		minCost := 0
		totalStock := 0
		for _, v := range grouped.Variants {
			if v.Size != "" && !containsString(sizes, v.Size) {
				sizes = append(sizes, v.Size)
			}
			if v.PointsCost > 0 && (minCost == 0 || v.PointsCost < minCost) {
				minCost = v.PointsCost
			}
			totalStock += v.Stock
		}
		sort.Strings(sizes)

		grouped.Sizes = sizes
		grouped.PointsCost = minCost
		grouped.Stock = totalStock
		result = append(result, *grouped)
	}

	if s.cache != nil {
		s.cache.Set(ctx, result)
	}
	return result, nil
}

// ResolveVariant picks the variant of a product addressed by size label. An
// empty or unmatched size resolves to the product's first variant.
func (s *Service) ResolveVariant(ctx context.Context, productID int, size string) (reward.Variant, error) {
	grouped, err := s.GroupedProducts(ctx)
	if err != nil {
		return reward.Variant{}, err
	}
	for _, product := range grouped {
		if product.ID != productID {
			continue
		}
		if variant := product.VariantFor(size); variant != nil {
			return *variant, nil
		}
		break
	}
	return reward.Variant{}, ErrVariantNotFound
}

// CreateItem validates and stores a new variant row.
func (s *Service) CreateItem(ctx context.Context, item reward.Item) (reward.Item, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return reward.Item{}, fmt.Errorf("name is required")
	}
	if item.PointsCost < 0 {
		return reward.Item{}, fmt.Errorf("pointsCost cannot be negative")
	}
	if item.StockInitial < 0 {
		return reward.Item{}, fmt.Errorf("stockInitial cannot be negative")
	}
	if item.Category = strings.TrimSpace(item.Category); item.Category == "" {
		item.Category = "Outros"
	}
	item.Active = true

	created, err := s.items.CreateItem(ctx, item)
	if err != nil {
		return reward.Item{}, err
	}
	s.invalidate(ctx)
	s.log.WithField("item_id", created.ID).
		WithField("product_id", created.ProductID).
		Info("catalog item created")
	return created, nil
}

// UpdateItem updates mutable fields on a variant row.
func (s *Service) UpdateItem(ctx context.Context, item reward.Item) (reward.Item, error) {
	existing, err := s.items.GetItem(ctx, item.ID)
	if err != nil {
		return reward.Item{}, err
	}
	if strings.TrimSpace(item.Name) == "" {
		item.Name = existing.Name
	}
	if item.Category == "" {
		item.Category = existing.Category
	}
	if item.ProductID == 0 {
		item.ProductID = existing.ProductID
	}
	item.Active = existing.Active

	updated, err := s.items.UpdateItem(ctx, item)
	if err != nil {
		return reward.Item{}, err
	}
	s.invalidate(ctx)
	s.log.WithField("item_id", updated.ID).Info("catalog item updated")
	return updated, nil
}

// DeleteItem removes a variant row.
func (s *Service) DeleteItem(ctx context.Context, id int) error {
	if err := s.items.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.WithField("item_id", id).Info("catalog item deleted")
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

// stockMap derives current stock per variant: initial minus confirmed OUT
// plus confirmed IN, floored at zero. Processing movements do not count.
func (s *Service) stockMap(ctx context.Context) (map[int]int, error) {
	items, err := s.items.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	movs, err := s.movements.ListMovements(ctx, "")
	if err != nil {
		return nil, err
	}

	delta := map[int]int{}
	for _, mov := range movs {
		if mov.Status != order.StatusConfirmed {
			continue
		}
		switch mov.Type {
		case order.TypeOut:
			delta[mov.VariantID] -= mov.Quantity
		case order.TypeIn:
			delta[mov.VariantID] += mov.Quantity
		}
	}

	stock := make(map[int]int, len(items))
	for _, item := range items {
		current := item.StockInitial + delta[item.ID]
		if current < 0 {
			current = 0
		}
		stock[item.ID] = current
	}
	return stock, nil
}
