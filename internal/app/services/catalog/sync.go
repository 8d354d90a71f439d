package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/Turistty/Simplifique-Application/internal/app/domain/reward"
	"github.com/Turistty/Simplifique-Application/internal/app/storage"
	"github.com/Turistty/Simplifique-Application/internal/app/system"
	"github.com/Turistty/Simplifique-Application/pkg/logger"
)

var _ system.Service = (*Syncer)(nil)

// DefaultSyncInterval is how often the syncer pulls the remote catalog.
const DefaultSyncInterval = 5 * time.Minute

// Syncer periodically pulls the remote catalog through a Source and upserts
// the variant rows into the reward store. Rows are matched by variant id, so
// repeated syncs converge instead of duplicating.
type Syncer struct {
	source   Source
	items    storage.RewardStore
	log      *logger.Logger
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewSyncer creates a lifecycle-managed catalog syncer.
func NewSyncer(source Source, items storage.RewardStore, log *logger.Logger) *Syncer {
	if log == nil {
		log = logger.NewDefault("catalog-sync")
	}
	return &Syncer{
		source:   source,
		items:    items,
		log:      log,
		interval: DefaultSyncInterval,
	}
}

// WithInterval overrides the sync cadence. Call before Start.
func (s *Syncer) WithInterval(interval time.Duration) *Syncer {
	if interval > 0 {
		s.interval = interval
	}
	return s
}

func (s *Syncer) Name() string { return "catalog-syncer" }

func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Sync(runCtx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.Sync(runCtx)
			}
		}
	}()

	s.log.Info("catalog syncer started")
	return nil
}

func (s *Syncer) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.log.Info("catalog syncer stopped")
	return nil
}

// Sync performs one pull-and-upsert pass. It is also called on Start so a
// fresh deployment serves the catalog immediately.
func (s *Syncer) Sync(ctx context.Context) {
	if s.source == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rewards, err := s.source.Fetch(ctx)
	if err != nil {
		s.log.WithError(err).Warn("catalog sync fetch failed")
		return
	}

	created, updated := 0, 0
	for _, rw := range rewards {
		for _, variant := range rw.Variants {
			row := variantRow(rw, variant)
			if _, err := s.items.GetItem(ctx, row.ID); err != nil {
				if _, err := s.items.CreateItem(ctx, row); err != nil {
					s.log.WithError(err).WithField("variant", row.ID).Warn("catalog sync create failed")
					continue
				}
				created++
				continue
			}
			if _, err := s.items.UpdateItem(ctx, row); err != nil {
				s.log.WithError(err).WithField("variant", row.ID).Warn("catalog sync update failed")
				continue
			}
			updated++
		}
	}

	if created > 0 || updated > 0 {
		s.log.WithFields(map[string]interface{}{
			"created": created,
			"updated": updated,
		}).Info("catalog sync applied")
	}
}

func variantRow(rw reward.Reward, variant reward.Variant) reward.Item {
	cost := variant.PointsCost
	if cost == 0 {
		cost = rw.PointsCost
	}
	image := variant.ImageURL
	if image == "" {
		image = rw.ImageURL
	}
	return reward.Item{
		ID:           variant.ID,
		ProductID:    rw.ID,
		SKU:          variant.SKU,
		Name:         rw.Name,
		Description:  rw.Description,
		Details:      rw.Details,
		Category:     rw.Category,
		Size:         variant.Size,
		PointsCost:   cost,
		StockInitial: variant.Stock,
		ImageURL:     image,
		Active:       true,
	}
}
