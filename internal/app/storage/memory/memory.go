package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Turistty/Simplifique-Application/internal/app/domain/identity"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/order"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/points"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/reward"
	"github.com/Turistty/Simplifique-Application/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu           sync.RWMutex
	nextID       int64
	nextItemID   int
	users        map[string]identity.User
	usersByNP    map[string]string
	items        map[int]reward.Item
	entries      map[string][]points.Entry
	entriesByID  map[string]points.Entry
	movements    map[string][]order.Movement
	movementByID map[string]order.Movement
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.RewardStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)
var _ storage.MovementStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:       1,
		nextItemID:   1,
		users:        make(map[string]identity.User),
		usersByNP:    make(map[string]string),
		items:        make(map[int]reward.Item),
		entries:      make(map[string][]points.Entry),
		entriesByID:  make(map[string]points.Entry),
		movements:    make(map[string][]order.Movement),
		movementByID: make(map[string]order.Movement),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, user identity.User) (identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = s.nextIDLocked()
	} else if _, exists := s.users[user.ID]; exists {
		return identity.User{}, fmt.Errorf("user %s already exists", user.ID)
	}
	np := strings.TrimSpace(user.NP)
	if np != "" {
		if _, exists := s.usersByNP[np]; exists {
			return identity.User{}, fmt.Errorf("registration number %s already in use", np)
		}
	}
	now := time.Now().UTC()
	user.NP = np
	user.CreatedAt = now

	s.users[user.ID] = user
	if np != "" {
		s.usersByNP[np] = user.ID
	}
	return user, nil
}

func (s *Store) UpdateUser(_ context.Context, user identity.User) (identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return identity.User{}, fmt.Errorf("user %s not found", user.ID)
	}
	user.CreatedAt = existing.CreatedAt
	if existing.NP != user.NP {
		delete(s.usersByNP, existing.NP)
		if user.NP != "" {
			s.usersByNP[user.NP] = user.ID
		}
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) GetUser(_ context.Context, id string) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return identity.User{}, fmt.Errorf("user %s not found", id)
	}
	return user, nil
}

func (s *Store) GetUserByNP(_ context.Context, np string) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByNP[strings.TrimSpace(np)]
	if !ok {
		return identity.User{}, fmt.Errorf("user with registration %s not found", np)
	}
	return s.users[id], nil
}

func (s *Store) ListUsers(_ context.Context) ([]identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]identity.User, 0, len(s.users))
	for _, user := range s.users {
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %s not found", id)
	}
	delete(s.usersByNP, user.NP)
	delete(s.users, id)
	return nil
}

// RewardStore implementation --------------------------------------------------

func (s *Store) CreateItem(_ context.Context, item reward.Item) (reward.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == 0 {
		item.ID = s.nextItemID
		s.nextItemID++
	} else {
		if _, exists := s.items[item.ID]; exists {
			return reward.Item{}, fmt.Errorf("item %d already exists", item.ID)
		}
		if item.ID >= s.nextItemID {
			s.nextItemID = item.ID + 1
		}
	}
	if item.ProductID == 0 {
		item.ProductID = item.ID
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	s.items[item.ID] = item
	return item, nil
}

func (s *Store) UpdateItem(_ context.Context, item reward.Item) (reward.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[item.ID]
	if !ok {
		return reward.Item{}, fmt.Errorf("item %d not found", item.ID)
	}
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = time.Now().UTC()
	s.items[item.ID] = item
	return item, nil
}

func (s *Store) GetItem(_ context.Context, id int) (reward.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return reward.Item{}, fmt.Errorf("item %d not found", id)
	}
	return item, nil
}

func (s *Store) ListItems(_ context.Context) ([]reward.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]reward.Item, 0, len(s.items))
	for _, item := range s.items {
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteItem(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("item %d not found", id)
	}
	delete(s.items, id)
	return nil
}

// LedgerStore implementation --------------------------------------------------

func (s *Store) CreateEntry(_ context.Context, entry points.Entry) (points.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = s.nextIDLocked()
	} else if _, exists := s.entriesByID[entry.ID]; exists {
		return points.Entry{}, fmt.Errorf("entry %s already exists", entry.ID)
	}
	if entry.MovedAt.IsZero() {
		entry.MovedAt = time.Now().UTC()
	}

	s.entries[entry.UserID] = append(s.entries[entry.UserID], entry)
	s.entriesByID[entry.ID] = entry
	return entry, nil
}

func (s *Store) UpdateEntry(_ context.Context, entry points.Entry) (points.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entriesByID[entry.ID]
	if !ok {
		return points.Entry{}, fmt.Errorf("entry %s not found", entry.ID)
	}
	entry.UserID = existing.UserID
	entry.MovedAt = existing.MovedAt

	list := s.entries[entry.UserID]
	for i := range list {
		if list[i].ID == entry.ID {
			list[i] = entry
			break
		}
	}
	s.entriesByID[entry.ID] = entry
	return entry, nil
}

func (s *Store) GetEntry(_ context.Context, id string) (points.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entriesByID[id]
	if !ok {
		return points.Entry{}, fmt.Errorf("entry %s not found", id)
	}
	return entry, nil
}

func (s *Store) GetEntryByReference(_ context.Context, reference string) (points.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entry := range s.entriesByID {
		if entry.Reference == reference {
			return entry, nil
		}
	}
	return points.Entry{}, fmt.Errorf("entry with reference %s not found", reference)
}

func (s *Store) ListEntries(_ context.Context, userID string) ([]points.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.entries[userID]
	result := make([]points.Entry, len(list))
	copy(result, list)
	return result, nil
}

// MovementStore implementation ------------------------------------------------

func (s *Store) CreateMovement(_ context.Context, mov order.Movement) (order.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mov.ID == "" {
		mov.ID = s.nextIDLocked()
	} else if _, exists := s.movementByID[mov.ID]; exists {
		return order.Movement{}, fmt.Errorf("movement %s already exists", mov.ID)
	}
	if mov.CreatedAt.IsZero() {
		mov.CreatedAt = time.Now().UTC()
	}

	s.movements[mov.UserID] = append(s.movements[mov.UserID], mov)
	s.movementByID[mov.ID] = mov
	return mov, nil
}

func (s *Store) UpdateMovement(_ context.Context, mov order.Movement) (order.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.movementByID[mov.ID]
	if !ok {
		return order.Movement{}, fmt.Errorf("movement %s not found", mov.ID)
	}
	mov.UserID = existing.UserID
	mov.CreatedAt = existing.CreatedAt

	list := s.movements[mov.UserID]
	for i := range list {
		if list[i].ID == mov.ID {
			list[i] = mov
			break
		}
	}
	s.movementByID[mov.ID] = mov
	return mov, nil
}

func (s *Store) GetMovement(_ context.Context, id string) (order.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mov, ok := s.movementByID[id]
	if !ok {
		return order.Movement{}, fmt.Errorf("movement %s not found", id)
	}
	return mov, nil
}

func (s *Store) ListMovements(_ context.Context, userID string) ([]order.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if userID == "" {
		result := make([]order.Movement, 0, len(s.movementByID))
		for _, mov := range s.movementByID {
			result = append(result, mov)
		}
		sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
		return result, nil
	}

	list := s.movements[userID]
	result := make([]order.Movement, len(list))
	copy(result, list)
	return result, nil
}

func (s *Store) ListProcessingMovements(_ context.Context) ([]order.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []order.Movement
	for _, mov := range s.movementByID {
		if mov.Status == order.StatusProcessing {
			result = append(result, mov)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
