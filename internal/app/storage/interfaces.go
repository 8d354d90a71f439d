package storage

import (
	"context"

	"github.com/Turistty/Simplifique-Application/internal/app/domain/identity"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/order"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/points"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/reward"
)

// UserStore persists platform accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user identity.User) (identity.User, error)
	UpdateUser(ctx context.Context, user identity.User) (identity.User, error)
	GetUser(ctx context.Context, id string) (identity.User, error)
	GetUserByNP(ctx context.Context, np string) (identity.User, error)
	ListUsers(ctx context.Context) ([]identity.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// RewardStore persists per-variant catalog rows.
type RewardStore interface {
	CreateItem(ctx context.Context, item reward.Item) (reward.Item, error)
	UpdateItem(ctx context.Context, item reward.Item) (reward.Item, error)
	GetItem(ctx context.Context, id int) (reward.Item, error)
	ListItems(ctx context.Context) ([]reward.Item, error)
	DeleteItem(ctx context.Context, id int) error
}

// LedgerStore persists point ledger entries.
type LedgerStore interface {
	CreateEntry(ctx context.Context, entry points.Entry) (points.Entry, error)
	UpdateEntry(ctx context.Context, entry points.Entry) (points.Entry, error)
	GetEntry(ctx context.Context, id string) (points.Entry, error)
	GetEntryByReference(ctx context.Context, reference string) (points.Entry, error)
	ListEntries(ctx context.Context, userID string) ([]points.Entry, error)
}

// MovementStore persists stock movements created by redemptions.
type MovementStore interface {
	CreateMovement(ctx context.Context, mov order.Movement) (order.Movement, error)
	UpdateMovement(ctx context.Context, mov order.Movement) (order.Movement, error)
	GetMovement(ctx context.Context, id string) (order.Movement, error)
	ListMovements(ctx context.Context, userID string) ([]order.Movement, error)
	ListProcessingMovements(ctx context.Context) ([]order.Movement, error)
}
