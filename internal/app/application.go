// Package app wires the loyalty platform's services together and manages
// their lifecycle.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	cartsvc "github.com/Turistty/Simplifique-Application/internal/app/services/cart"
	catalogsvc "github.com/Turistty/Simplifique-Application/internal/app/services/catalog"
	identitysvc "github.com/Turistty/Simplifique-Application/internal/app/services/identity"
	orderssvc "github.com/Turistty/Simplifique-Application/internal/app/services/orders"
	pointssvc "github.com/Turistty/Simplifique-Application/internal/app/services/points"
	userssvc "github.com/Turistty/Simplifique-Application/internal/app/services/users"
	"github.com/Turistty/Simplifique-Application/internal/app/storage"
	"github.com/Turistty/Simplifique-Application/internal/app/storage/memory"
	"github.com/Turistty/Simplifique-Application/internal/app/system"
	"github.com/Turistty/Simplifique-Application/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users     storage.UserStore
	Rewards   storage.RewardStore
	Ledger    storage.LedgerStore
	Movements storage.MovementStore
}

// Options carries the non-store knobs the composition root needs.
type Options struct {
	TokenSecret string
	TokenTTL    time.Duration
	Cache       catalogsvc.Cache
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Identity *identitysvc.Service
	Users    *userssvc.Service
	Catalog  *catalogsvc.Service
	Points   *pointssvc.Service
	Orders   *orderssvc.Service
	Cart     *cartsvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Rewards == nil {
		stores.Rewards = mem
	}
	if stores.Ledger == nil {
		stores.Ledger = mem
	}
	if stores.Movements == nil {
		stores.Movements = mem
	}

	manager := system.NewManager()

	identityService, err := identitysvc.New(stores.Users, opts.TokenSecret, opts.TokenTTL, log)
	if err != nil {
		return nil, err
	}
	catalogService := catalogsvc.New(stores.Rewards, stores.Movements, log)
	if opts.Cache != nil {
		catalogService.WithCache(opts.Cache)
	}
	pointsService := pointssvc.New(stores.Ledger, log)
	ordersService := orderssvc.New(stores.Movements, stores.Rewards, catalogService, pointsService, log)
	cartService := cartsvc.New(catalogService, pointsService, ordersService, cartsvc.NewNotifier(0), log)
	usersService := userssvc.New(stores.Users, pointsService, log)

	for _, name := range []string{"identity", "catalog", "points", "users"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}

	var resolver orderssvc.FulfillmentResolver
	if endpoint := strings.TrimSpace(os.Getenv("FULFILLMENT_RESOLVER_URL")); endpoint != "" {
		httpResolver, err := orderssvc.NewHTTPResolver(httpClient, endpoint, os.Getenv("FULFILLMENT_RESOLVER_KEY"))
		if err != nil {
			log.WithError(err).Warn("configure fulfillment resolver")
		} else {
			resolver = httpResolver
		}
	} else {
		log.Warn("FULFILLMENT_RESOLVER_URL not set; movements settle by timeout")
	}

	settlement := orderssvc.NewSettlementPoller(stores.Movements, ordersService, resolver, log)
	if err := manager.Register(settlement); err != nil {
		return nil, fmt.Errorf("register %s: %w", settlement.Name(), err)
	}

	return &Application{
		manager:  manager,
		log:      log,
		Identity: identityService,
		Users:    usersService,
		Catalog:  catalogService,
		Points:   pointsService,
		Orders:   ordersService,
		Cart:     cartService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
