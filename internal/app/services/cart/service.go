// Package cart implements the per-user shopping cart that sits between the
// catalog and the redemption pipeline. Cart state lives in memory only;
// nothing here survives a restart.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/Turistty/Simplifique-Application/internal/app/domain/cart"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/order"
	"github.com/Turistty/Simplifique-Application/internal/app/metrics"
	"github.com/Turistty/Simplifique-Application/internal/app/services/catalog"
	"github.com/Turistty/Simplifique-Application/internal/app/services/orders"
	"github.com/Turistty/Simplifique-Application/internal/app/services/points"
	"github.com/Turistty/Simplifique-Application/pkg/logger"
)

var (
	// ErrEmptyCart is returned when checking out a cart with no items.
	ErrEmptyCart = fmt.Errorf("cart is empty")

	// ErrItemNotInCart is returned when mutating a key the cart does not
	// hold.
	ErrItemNotInCart = fmt.Errorf("item not in cart")
)

// Service manages per-user cart sessions. Every quantity change re-validates
// against current stock; checkout re-validates balance as well and hands the
// lines to the orders service.
type Service struct {
	catalog  *catalog.Service
	points   *points.Service
	orders   *orders.Service
	notifier *Notifier
	log      *logger.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	items map[string]cart.Item
	keys  []string // insertion order
}

// New constructs a cart service.
func New(cat *catalog.Service, pts *points.Service, ord *orders.Service, notifier *Notifier, log *logger.Logger) *Service {
	if notifier == nil {
		notifier = NewNotifier(0)
	}
	if log == nil {
		log = logger.NewDefault("cart")
	}
	return &Service{
		catalog:  cat,
		points:   pts,
		orders:   ord,
		notifier: notifier,
		log:      log,
		sessions: make(map[string]*session),
	}
}

// Notifier exposes the cart's notification channel.
func (s *Service) Notifier() *Notifier { return s.notifier }

// Items returns a snapshot of the user's cart in insertion order.
func (s *Service) Items(userID string) []cart.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil
	}
	items := make([]cart.Item, 0, len(sess.keys))
	for _, key := range sess.keys {
		items = append(items, sess.items[key])
	}
	return items
}

// Total returns the point cost of the user's cart.
func (s *Service) Total(userID string) int {
	return cart.Total(s.Items(userID))
}

// Count returns the total quantity in the user's cart.
func (s *Service) Count(userID string) int {
	return cart.Count(s.Items(userID))
}

// AddProduct adds one unit of a product to the cart, resolving the variant
// by size label. An omitted or unmatched size resolves to the product's
// first variant.
func (s *Service) AddProduct(ctx context.Context, userID string, productID int, size string) (cart.Item, error) {
	variant, err := s.catalog.ResolveVariant(ctx, productID, size)
	if err != nil {
		s.notifier.Publish(userID, "Produto não encontrado", NoticeError)
		return cart.Item{}, err
	}
	return s.Add(ctx, userID, variant.ID, variant.Size)
}

// Add puts one unit of a variant (keyed by variant and size) into the cart,
// incrementing the quantity when the key already exists. Every add
// re-validates against the variant's current stock and the user's available
// balance: the entry's total, unit cost times the new quantity, may never
// exceed what the user can afford, and unpriced variants are rejected
// outright.
func (s *Service) Add(ctx context.Context, userID string, variantID int, size string) (cart.Item, error) {
	stock, err := s.catalog.VariantStock(ctx, variantID)
	if err != nil {
		return cart.Item{}, err
	}
	balance, err := s.points.Balance(ctx, userID)
	if err != nil {
		s.notifier.Publish(userID, "Não foi possível consultar seu saldo", NoticeError)
		return cart.Item{}, err
	}

	key := cart.Key(variantID, size)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessionLocked(userID)
	item, exists := sess.items[key]
	if exists {
		if item.Quantity+1 > stock {
			s.notifier.Publish(userID, "Estoque insuficiente para "+item.Name, NoticeError)
			return cart.Item{}, orders.ErrOutOfStock
		}
		if item.PointsCost*(item.Quantity+1) > balance.Available {
			s.notifier.Publish(userID, "Saldo insuficiente para adicionar mais "+item.Name, NoticeError)
			return cart.Item{}, points.ErrInsufficientBalance
		}
		item.Quantity++
		sess.items[key] = item
		s.notifier.Publish(userID, item.Name+" adicionado ao carrinho", NoticeSuccess)
		return item, nil
	}

	if stock < 1 {
		s.notifier.Publish(userID, "Item esgotado", NoticeError)
		return cart.Item{}, orders.ErrOutOfStock
	}

	snapshot, err := s.snapshotVariant(ctx, variantID)
	if err != nil {
		return cart.Item{}, err
	}
	if snapshot.PointsCost <= 0 {
		s.notifier.Publish(userID, "Item indisponível para resgate", NoticeError)
		return cart.Item{}, orders.ErrUnpriced
	}
	if balance.Available < snapshot.PointsCost {
		s.notifier.Publish(userID, "Saldo de pontos insuficiente", NoticeError)
		return cart.Item{}, points.ErrInsufficientBalance
	}

	item = cart.Item{
		Key:        key,
		VariantID:  variantID,
		Name:       snapshot.Name,
		ImageURL:   snapshot.ImageURL,
		PointsCost: snapshot.PointsCost,
		Quantity:   1,
		Size:       size,
	}
	sess.items[key] = item
	sess.keys = append(sess.keys, key)
	s.notifier.Publish(userID, item.Name+" adicionado ao carrinho", NoticeSuccess)
	return item, nil
}

// Increment raises the quantity of an existing cart entry by one, bounded by
// current stock and by what the user's available balance still affords.
func (s *Service) Increment(ctx context.Context, userID, key string) (cart.Item, error) {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	var item cart.Item
	if ok {
		item, ok = sess.items[key]
	}
	s.mu.Unlock()
	if !ok {
		return cart.Item{}, ErrItemNotInCart
	}

	stock, err := s.catalog.VariantStock(ctx, item.VariantID)
	if err != nil {
		return cart.Item{}, err
	}
	balance, err := s.points.Balance(ctx, userID)
	if err != nil {
		s.notifier.Publish(userID, "Não foi possível consultar seu saldo", NoticeError)
		return cart.Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok = s.sessions[userID]
	if !ok {
		return cart.Item{}, ErrItemNotInCart
	}
	item, ok = sess.items[key]
	if !ok {
		return cart.Item{}, ErrItemNotInCart
	}
	if item.Quantity+1 > stock {
		s.notifier.Publish(userID, "Estoque insuficiente para "+item.Name, NoticeError)
		return cart.Item{}, orders.ErrOutOfStock
	}
	if item.PointsCost*(item.Quantity+1) > balance.Available {
		s.notifier.Publish(userID, "Saldo insuficiente para adicionar mais "+item.Name, NoticeError)
		return cart.Item{}, points.ErrInsufficientBalance
	}
	item.Quantity++
	sess.items[key] = item
	return item, nil
}

// Decrement lowers the quantity of a cart entry by one, removing the entry
// when it reaches zero.
func (s *Service) Decrement(userID, key string) (cart.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return cart.Item{}, ErrItemNotInCart
	}
	item, ok := sess.items[key]
	if !ok {
		return cart.Item{}, ErrItemNotInCart
	}

	item.Quantity--
	if item.Quantity <= 0 {
		s.removeLocked(sess, key)
		return cart.Item{}, nil
	}
	sess.items[key] = item
	return item, nil
}

// Remove drops a cart entry regardless of quantity.
func (s *Service) Remove(userID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return ErrItemNotInCart
	}
	if _, ok := sess.items[key]; !ok {
		return ErrItemNotInCart
	}
	s.removeLocked(sess, key)
	return nil
}

// Clear empties the user's cart.
func (s *Service) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Checkout converts the cart into redemption movements and empties it on
// success. The orders service re-validates stock and balance; a failed
// checkout leaves the cart untouched.
func (s *Service) Checkout(ctx context.Context, userID string) ([]order.Movement, error) {
	items := s.Items(userID)
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	lines := make([]order.RedemptionItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, order.RedemptionItem{VariantID: item.VariantID, Quantity: item.Quantity})
	}

	movs, err := s.orders.CreateRedemption(ctx, userID, lines)
	if err != nil {
		switch err {
		case points.ErrInsufficientBalance:
			s.notifier.Publish(userID, "Saldo de pontos insuficiente", NoticeError)
		default:
			s.notifier.Publish(userID, "Não foi possível concluir o resgate", NoticeError)
		}
		metrics.RecordCheckout("rejected", 0)
		return nil, err
	}

	total := 0
	for _, mov := range movs {
		total += mov.PointsTotal
	}
	metrics.RecordCheckout("accepted", total)

	s.Clear(userID)
	s.notifier.Publish(userID, "Resgate realizado com sucesso", NoticeSuccess)
	s.log.WithField("user_id", userID).
		WithField("movements", len(movs)).
		Info("cart checked out")
	return movs, nil
}

func (s *Service) sessionLocked(userID string) *session {
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{items: make(map[string]cart.Item)}
		s.sessions[userID] = sess
	}
	return sess
}

func (s *Service) removeLocked(sess *session, key string) {
	delete(sess.items, key)
	for i, k := range sess.keys {
		if k == key {
			sess.keys = append(sess.keys[:i], sess.keys[i+1:]...)
			break
		}
	}
}

type variantSnapshot struct {
	Name       string
	ImageURL   string
	PointsCost int
}

func (s *Service) snapshotVariant(ctx context.Context, variantID int) (variantSnapshot, error) {
	items, err := s.catalog.ListVariations(ctx)
	if err != nil {
		return variantSnapshot{}, err
	}
	for _, item := range items {
		if item.ID == variantID {
			name := catalog.NormalizeBaseName(item.Name)
			return variantSnapshot{
				Name:       name,
				ImageURL:   item.ImageURL,
				PointsCost: item.PointsCost,
			}, nil
		}
	}
	return variantSnapshot{}, catalog.ErrVariantNotFound
}
