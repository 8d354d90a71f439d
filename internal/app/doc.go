// Package app composes the loyalty platform services into a running
// application.
//
// The package sits above the domain services and is responsible for wiring,
// not business logic:
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── identity/       # Accounts and sessions
//	│   ├── reward/         # Catalog items, variants, grouped products
//	│   ├── points/         # Point ledger entries
//	│   ├── order/          # Stock movements
//	│   └── cart/           # Cart items and notifications
//	├── storage/            # Store interfaces, memory and postgres backends
//	├── services/           # Business logic (identity, catalog, points, ...)
//	├── httpapi/            # Public REST API and the admin router
//	├── system/             # Lifecycle management for background services
//	├── runtime/            # Config-driven assembly and the HTTP server
//	└── metrics/            # Prometheus collectors
//
// Adding a new domain follows the same path each time: model under domain/,
// store interface in storage/interfaces.go, memory and postgres
// implementations, a service under services/, wiring in application.go and
// handlers in httpapi/.
package app
