// Package orders records reward redemptions as stock movements and settles
// them together with their linked ledger debits.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/Turistty/Simplifique-Application/internal/app/domain/order"
	"github.com/Turistty/Simplifique-Application/internal/app/services/catalog"
	"github.com/Turistty/Simplifique-Application/internal/app/services/points"
	"github.com/Turistty/Simplifique-Application/internal/app/storage"
	"github.com/Turistty/Simplifique-Application/pkg/logger"
)

var (
	// ErrOutOfStock is returned when a requested quantity exceeds the
	// variant's current stock.
	ErrOutOfStock = fmt.Errorf("out of stock")

	// ErrUnpriced is returned when a variant carries no positive point cost
	// and therefore cannot be redeemed.
	ErrUnpriced = fmt.Errorf("variant has no point cost")

	// ErrNotProcessing is returned when settling a movement that is no
	// longer in the processing state.
	ErrNotProcessing = fmt.Errorf("movement is not processing")
)

// Service manages redemption movements. Every OUT movement opens a matching
// processing debit in the point ledger, keyed by the movement id, and the two
// settle together.
type Service struct {
	movements storage.MovementStore
	items     storage.RewardStore
	catalog   *catalog.Service
	points    *points.Service
	log       *logger.Logger
	now       func() time.Time
}

// New constructs an orders service.
func New(movements storage.MovementStore, items storage.RewardStore, cat *catalog.Service, pts *points.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("orders")
	}
	return &Service{
		movements: movements,
		items:     items,
		catalog:   cat,
		points:    pts,
		log:       log,
		now:       time.Now,
	}
}

// CreateRedemption validates stock and balance for every requested line and
// records one processing OUT movement per line, each with its own ledger
// debit. Validation happens before anything is written so a rejected line
// leaves no partial state.
func (s *Service) CreateRedemption(ctx context.Context, userID string, lines []order.RedemptionItem) ([]order.Movement, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id required")
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("redemption has no items")
	}

	type priced struct {
		line order.RedemptionItem
		item pricedItem
	}

	total := 0
	resolved := make([]priced, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("quantity must be positive for variant %d", line.VariantID)
		}
		item, err := s.resolveVariant(ctx, line.VariantID)
		if err != nil {
			return nil, err
		}
		if item.PointsCost <= 0 {
			return nil, fmt.Errorf("%w: variant %d", ErrUnpriced, line.VariantID)
		}
		if item.Stock < line.Quantity {
			return nil, fmt.Errorf("%w: variant %d has %d left", ErrOutOfStock, line.VariantID, item.Stock)
		}
		total += item.PointsCost * line.Quantity
		resolved = append(resolved, priced{line: line, item: item})
	}

	balance, err := s.points.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance.Available < total {
		return nil, points.ErrInsufficientBalance
	}

	created := make([]order.Movement, 0, len(resolved))
	for _, p := range resolved {
		mov, err := s.movements.CreateMovement(ctx, order.Movement{
			UserID:      userID,
			VariantID:   p.line.VariantID,
			ProductID:   p.item.ProductID,
			SKU:         p.item.SKU,
			Quantity:    p.line.Quantity,
			PointsTotal: p.item.PointsCost * p.line.Quantity,
			Type:        order.TypeOut,
			Status:      order.StatusProcessing,
			CreatedAt:   s.now().UTC(),
		})
		if err != nil {
			s.rollback(ctx, created)
			return nil, err
		}
		if _, err := s.points.Debit(ctx, userID, mov.PointsTotal, "resgate", mov.ID); err != nil {
			s.rollback(ctx, append(created, mov))
			return nil, err
		}
		created = append(created, mov)
	}

	s.log.WithField("user_id", userID).
		WithField("movements", len(created)).
		WithField("points_total", total).
		Info("redemption opened")
	return created, nil
}

type pricedItem struct {
	ProductID  int
	SKU        string
	PointsCost int
	Stock      int
}

func (s *Service) resolveVariant(ctx context.Context, variantID int) (pricedItem, error) {
	item, err := s.items.GetItem(ctx, variantID)
	if err != nil {
		return pricedItem{}, catalog.ErrVariantNotFound
	}
	if !item.Active {
		return pricedItem{}, catalog.ErrVariantNotFound
	}
	stock, err := s.catalog.VariantStock(ctx, variantID)
	if err != nil {
		return pricedItem{}, err
	}
	return pricedItem{
		ProductID:  item.ProductID,
		SKU:        item.SKU,
		PointsCost: item.PointsCost,
		Stock:      stock,
	}, nil
}

// rollback voids movements written before a mid-redemption failure, together
// with any debit already opened against them.
func (s *Service) rollback(ctx context.Context, movs []order.Movement) {
	for _, mov := range movs {
		mov.Status = order.StatusCanceled
		if _, err := s.movements.UpdateMovement(ctx, mov); err != nil {
			s.log.WithError(err).WithField("mov_id", mov.ID).Warn("rollback movement failed")
		}
		if _, err := s.points.CancelByReference(ctx, mov.ID); err != nil {
			s.log.WithError(err).WithField("mov_id", mov.ID).Debug("no debit to roll back")
		}
	}
}

// Confirm settles a processing movement: stock is consumed and the linked
// ledger debit becomes a confirmed withdrawal.
func (s *Service) Confirm(ctx context.Context, movementID string) (order.Movement, error) {
	return s.settle(ctx, movementID, order.StatusConfirmed)
}

// Cancel voids a processing movement and releases its reserved points.
func (s *Service) Cancel(ctx context.Context, movementID string) (order.Movement, error) {
	return s.settle(ctx, movementID, order.StatusCanceled)
}

func (s *Service) settle(ctx context.Context, movementID, status string) (order.Movement, error) {
	mov, err := s.movements.GetMovement(ctx, movementID)
	if err != nil {
		return order.Movement{}, err
	}
	if mov.Status != order.StatusProcessing {
		return order.Movement{}, fmt.Errorf("%w: movement %s is %s", ErrNotProcessing, movementID, mov.Status)
	}

	mov.Status = status
	updated, err := s.movements.UpdateMovement(ctx, mov)
	if err != nil {
		return order.Movement{}, err
	}

	if mov.Type == order.TypeOut {
		var settleErr error
		if status == order.StatusConfirmed {
			_, settleErr = s.points.ConfirmByReference(ctx, mov.ID)
		} else {
			_, settleErr = s.points.CancelByReference(ctx, mov.ID)
		}
		if settleErr != nil {
			s.log.WithError(settleErr).
				WithField("mov_id", mov.ID).
				Warn("ledger settlement for movement failed")
		}
	}

	s.log.WithField("mov_id", mov.ID).
		WithField("status", status).
		Info("movement settled")
	return updated, nil
}

// Restock records a confirmed IN movement, replenishing variant stock.
func (s *Service) Restock(ctx context.Context, variantID, quantity int, recordedBy string) (order.Movement, error) {
	if quantity <= 0 {
		return order.Movement{}, fmt.Errorf("restock quantity must be positive")
	}
	item, err := s.items.GetItem(ctx, variantID)
	if err != nil {
		return order.Movement{}, catalog.ErrVariantNotFound
	}

	mov, err := s.movements.CreateMovement(ctx, order.Movement{
		UserID:    recordedBy,
		VariantID: variantID,
		ProductID: item.ProductID,
		SKU:       item.SKU,
		Quantity:  quantity,
		Type:      order.TypeIn,
		Status:    order.StatusConfirmed,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return order.Movement{}, err
	}
	s.log.WithField("variant_id", variantID).
		WithField("quantity", quantity).
		Info("stock replenished")
	return mov, nil
}

// ListMovements returns a user's movements, or every movement when userID is
// empty.
func (s *Service) ListMovements(ctx context.Context, userID string) ([]order.Movement, error) {
	return s.movements.ListMovements(ctx, userID)
}
