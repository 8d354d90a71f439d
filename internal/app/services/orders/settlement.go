package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Turistty/Simplifique-Application/internal/app/domain/order"
	"github.com/Turistty/Simplifique-Application/internal/app/metrics"
	"github.com/Turistty/Simplifique-Application/internal/app/storage"
	"github.com/Turistty/Simplifique-Application/internal/app/system"
	"github.com/Turistty/Simplifique-Application/pkg/logger"
)

// FulfillmentResolver decides whether a processing movement has been handed
// over to the user.
type FulfillmentResolver interface {
	Resolve(ctx context.Context, mov order.Movement) (done bool, delivered bool, retryAfter time.Duration, err error)
}

// TimeoutResolver cancels movements that stay in processing past a deadline,
// releasing the reserved points. It is the default when no fulfillment
// backend is configured.
type TimeoutResolver struct {
	timeout time.Duration
	seen    sync.Map // movement id -> time.Time
}

func NewTimeoutResolver(timeout time.Duration) *TimeoutResolver {
	if timeout <= 0 {
		timeout = 48 * time.Hour
	}
	return &TimeoutResolver{timeout: timeout}
}

func (r *TimeoutResolver) Resolve(_ context.Context, mov order.Movement) (bool, bool, time.Duration, error) {
	if value, ok := r.seen.Load(mov.ID); ok {
		if time.Since(value.(time.Time)) >= r.timeout {
			return true, false, 0, nil
		}
		return false, false, r.timeout / 4, nil
	}
	r.seen.Store(mov.ID, time.Now())
	return false, false, r.timeout / 4, nil
}

// HTTPResolver asks a fulfillment backend about a movement. The backend
// answers with a JSON status: "delivered" and "canceled" settle the
// movement, anything else keeps it processing.
type HTTPResolver struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

func NewHTTPResolver(client *http.Client, endpoint, apiKey string) (*HTTPResolver, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("fulfillment endpoint required")
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPResolver{client: client, endpoint: endpoint, apiKey: strings.TrimSpace(apiKey)}, nil
}

func (r *HTTPResolver) Resolve(ctx context.Context, mov order.Movement) (bool, bool, time.Duration, error) {
	url := strings.TrimRight(r.endpoint, "/") + "/" + mov.ID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, false, 0, fmt.Errorf("build fulfillment request: %w", err)
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return false, false, 0, fmt.Errorf("fulfillment request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, false, 0, fmt.Errorf("fulfillment status %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, false, 0, fmt.Errorf("decode fulfillment response: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(body.Status)) {
	case "delivered", "entregue":
		return true, true, 0, nil
	case "canceled", "cancelado":
		return true, false, 0, nil
	default:
		return false, false, 0, nil
	}
}

// SettlementPoller watches processing movements and settles them through the
// resolver: delivered movements confirm, undelivered ones cancel.
type SettlementPoller struct {
	store    storage.MovementStore
	service  *Service
	resolver FulfillmentResolver
	interval time.Duration
	log      *logger.Logger

	mu          sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	running     bool
	nextAttempt map[string]time.Time
}

var _ system.Service = (*SettlementPoller)(nil)

func NewSettlementPoller(store storage.MovementStore, service *Service, resolver FulfillmentResolver, log *logger.Logger) *SettlementPoller {
	if log == nil {
		log = logger.NewDefault("orders-settlement")
	}
	if resolver == nil {
		resolver = NewTimeoutResolver(0)
	}
	return &SettlementPoller{
		store:       store,
		service:     service,
		resolver:    resolver,
		interval:    30 * time.Second,
		log:         log,
		nextAttempt: make(map[string]time.Time),
	}
}

func (p *SettlementPoller) Name() string { return "orders-settlement" }

func (p *SettlementPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				p.tick(runCtx)
			}
		}
	}()

	p.log.Info("redemption settlement poller started")
	return nil
}

func (p *SettlementPoller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (p *SettlementPoller) tick(ctx context.Context) {
	movs, err := p.store.ListProcessingMovements(ctx)
	if err != nil {
		p.log.WithError(err).Warn("list processing movements failed")
		return
	}

	now := time.Now()
	for _, mov := range movs {
		if !p.shouldAttempt(mov.ID, now) {
			continue
		}

		done, delivered, retryAfter, err := p.resolver.Resolve(ctx, mov)
		if err != nil {
			p.log.WithError(err).Warnf("resolver error for movement %s", mov.ID)
			p.scheduleNext(mov.ID, retryAfter)
			continue
		}
		if !done {
			p.scheduleNext(mov.ID, retryAfter)
			continue
		}

		status := order.StatusCanceled
		if delivered {
			_, err = p.service.Confirm(ctx, mov.ID)
			status = order.StatusConfirmed
		} else {
			_, err = p.service.Cancel(ctx, mov.ID)
		}
		if err != nil {
			p.log.WithError(err).Warnf("settle movement %s failed", mov.ID)
			p.scheduleNext(mov.ID, retryAfter)
			continue
		}
		metrics.RecordSettlement(status)
		p.log.Infof("movement %s settled (delivered=%t)", mov.ID, delivered)
		p.clearSchedule(mov.ID)
	}
}

func (p *SettlementPoller) shouldAttempt(id string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, ok := p.nextAttempt[id]
	if !ok || now.After(next) {
		return true
	}
	return false
}

func (p *SettlementPoller) scheduleNext(id string, after time.Duration) {
	if after <= 0 {
		after = p.interval
	}
	p.mu.Lock()
	p.nextAttempt[id] = time.Now().Add(after)
	p.mu.Unlock()
}

func (p *SettlementPoller) clearSchedule(id string) {
	p.mu.Lock()
	delete(p.nextAttempt, id)
	p.mu.Unlock()
}
