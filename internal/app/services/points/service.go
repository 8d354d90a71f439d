// Package points computes user balances from the ledger and records credits
// and debits. Balances are always derived; nothing stores a running total.
package points

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Turistty/Simplifique-Application/internal/app/domain/points"
	"github.com/Turistty/Simplifique-Application/internal/app/storage"
	"github.com/Turistty/Simplifique-Application/pkg/logger"
)

// ErrInsufficientBalance is returned when a debit exceeds the available
// balance.
var ErrInsufficientBalance = fmt.Errorf("insufficient balance")

// Service manages the point ledger.
type Service struct {
	entries storage.LedgerStore
	log     *logger.Logger
	now     func() time.Time
}

// New constructs a points service.
func New(entries storage.LedgerStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("points")
	}
	return &Service{
		entries: entries,
		log:     log,
		now:     time.Now,
	}
}

// Balance computes the balance view for a user.
//
// Available counts confirmed credits minus confirmed debits. Processing sums
// every processing entry, credits and debits alike. Total sums confirmed
// credits over all time, and Withdrawn sums confirmed debits. Canceled
// entries count nowhere but still appear in the history.
func (s *Service) Balance(ctx context.Context, userID string) (points.Balance, error) {
	history, err := s.entries.ListEntries(ctx, userID)
	if err != nil {
		return points.Balance{}, err
	}

	var balance points.Balance
	for _, entry := range history {
		switch {
		case entry.Status == points.StatusProcessing:
			balance.Processing += entry.Quantity
		case entry.Kind == points.KindCredit && entry.Status == points.StatusConfirmed:
			balance.Available += entry.Quantity
			balance.Total += entry.Quantity
		case entry.Kind == points.KindDebit && entry.Status == points.StatusConfirmed:
			balance.Available -= entry.Quantity
			balance.Withdrawn += entry.Quantity
		}
	}

	sort.Slice(history, func(i, j int) bool {
		return history[i].MovedAt.After(history[j].MovedAt)
	})
	balance.History = history
	return balance, nil
}

// Credit records a confirmed credit for a user.
func (s *Service) Credit(ctx context.Context, userID string, quantity int, origin, note, recordedBy string) (points.Entry, error) {
	if quantity <= 0 {
		return points.Entry{}, fmt.Errorf("credit quantity must be positive")
	}
	entry, err := s.entries.CreateEntry(ctx, points.Entry{
		UserID:     userID,
		Kind:       points.KindCredit,
		Quantity:   quantity,
		Status:     points.StatusConfirmed,
		Origin:     origin,
		Note:       note,
		MovedAt:    s.now().UTC(),
		RecordedBy: recordedBy,
	})
	if err != nil {
		return points.Entry{}, err
	}
	s.log.WithField("user_id", userID).
		WithField("quantity", quantity).
		Info("points credited")
	return entry, nil
}

// Debit records a processing debit against a user's available balance. The
// reference ties the entry to the stock movement that caused it so the two
// settle together.
func (s *Service) Debit(ctx context.Context, userID string, quantity int, origin, reference string) (points.Entry, error) {
	if quantity <= 0 {
		return points.Entry{}, fmt.Errorf("debit quantity must be positive")
	}

	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return points.Entry{}, err
	}
	if balance.Available < quantity {
		return points.Entry{}, ErrInsufficientBalance
	}

	entry, err := s.entries.CreateEntry(ctx, points.Entry{
		UserID:    userID,
		Kind:      points.KindDebit,
		Quantity:  quantity,
		Status:    points.StatusProcessing,
		Origin:    origin,
		Reference: strings.TrimSpace(reference),
		MovedAt:   s.now().UTC(),
	})
	if err != nil {
		return points.Entry{}, err
	}
	s.log.WithField("user_id", userID).
		WithField("quantity", quantity).
		WithField("reference", entry.Reference).
		Info("points debit opened")
	return entry, nil
}

// ConfirmByReference settles the processing entry tied to a reference.
func (s *Service) ConfirmByReference(ctx context.Context, reference string) (points.Entry, error) {
	return s.settleByReference(ctx, reference, points.StatusConfirmed)
}

// CancelByReference voids the processing entry tied to a reference, releasing
// the points back to the available balance.
func (s *Service) CancelByReference(ctx context.Context, reference string) (points.Entry, error) {
	return s.settleByReference(ctx, reference, points.StatusCanceled)
}

func (s *Service) settleByReference(ctx context.Context, reference, status string) (points.Entry, error) {
	entry, err := s.entries.GetEntryByReference(ctx, reference)
	if err != nil {
		return points.Entry{}, err
	}
	if entry.Status != points.StatusProcessing {
		return points.Entry{}, fmt.Errorf("entry %s is %s, not processing", entry.ID, entry.Status)
	}
	entry.Status = status

	updated, err := s.entries.UpdateEntry(ctx, entry)
	if err != nil {
		return points.Entry{}, err
	}
	s.log.WithField("entry_id", updated.ID).
		WithField("status", status).
		Info("points entry settled")
	return updated, nil
}

// History returns a user's ledger, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]points.Entry, error) {
	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return balance.History, nil
}
