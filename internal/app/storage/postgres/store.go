package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Turistty/Simplifique-Application/internal/app/domain/identity"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/order"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/points"
	"github.com/Turistty/Simplifique-Application/internal/app/domain/reward"
	"github.com/Turistty/Simplifique-Application/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.RewardStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)
var _ storage.MovementStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// --- row types ---------------------------------------------------------------

type userRow struct {
	ID           string       `db:"id"`
	NP           string       `db:"np"`
	PasswordHash string       `db:"password_hash"`
	Role         string       `db:"role"`
	Name         string       `db:"name"`
	Email        string       `db:"email"`
	Department   string       `db:"department"`
	Active       bool         `db:"active"`
	LastLogin    sql.NullTime `db:"last_login"`
	CreatedAt    time.Time    `db:"created_at"`
}

func (r userRow) toDomain() identity.User {
	user := identity.User{
		ID:           r.ID,
		NP:           r.NP,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		Name:         r.Name,
		Email:        r.Email,
		Department:   r.Department,
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
	}
	if r.LastLogin.Valid {
		user.LastLogin = r.LastLogin.Time
	}
	return user
}

type itemRow struct {
	ID           int       `db:"id"`
	ProductID    int       `db:"product_id"`
	SKU          string    `db:"sku"`
	Name         string    `db:"name"`
	Description  string    `db:"description"`
	Details      string    `db:"details"`
	Category     string    `db:"category"`
	Size         string    `db:"size"`
	PointsCost   int       `db:"points_cost"`
	StockInitial int       `db:"stock_initial"`
	ImageURL     string    `db:"image_url"`
	Active       bool      `db:"active"`
	Tags         string    `db:"tags"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r itemRow) toDomain() reward.Item {
	return reward.Item{
		ID:           r.ID,
		ProductID:    r.ProductID,
		SKU:          r.SKU,
		Name:         r.Name,
		Description:  r.Description,
		Details:      r.Details,
		Category:     r.Category,
		Size:         r.Size,
		PointsCost:   r.PointsCost,
		StockInitial: r.StockInitial,
		ImageURL:     r.ImageURL,
		Active:       r.Active,
		Tags:         r.Tags,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type entryRow struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	Kind       string    `db:"kind"`
	Quantity   int       `db:"quantity"`
	Status     string    `db:"status"`
	Origin     string    `db:"origin"`
	Reference  string    `db:"reference"`
	Note       string    `db:"note"`
	MovedAt    time.Time `db:"moved_at"`
	RecordedBy string    `db:"recorded_by"`
}

func (r entryRow) toDomain() points.Entry {
	return points.Entry{
		ID:         r.ID,
		UserID:     r.UserID,
		Kind:       r.Kind,
		Quantity:   r.Quantity,
		Status:     r.Status,
		Origin:     r.Origin,
		Reference:  r.Reference,
		Note:       r.Note,
		MovedAt:    r.MovedAt,
		RecordedBy: r.RecordedBy,
	}
}

type movementRow struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	VariantID   int       `db:"variant_id"`
	ProductID   int       `db:"product_id"`
	SKU         string    `db:"sku"`
	Quantity    int       `db:"quantity"`
	PointsTotal int       `db:"points_total"`
	Type        string    `db:"type"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r movementRow) toDomain() order.Movement {
	return order.Movement{
		ID:          r.ID,
		UserID:      r.UserID,
		VariantID:   r.VariantID,
		ProductID:   r.ProductID,
		SKU:         r.SKU,
		Quantity:    r.Quantity,
		PointsTotal: r.PointsTotal,
		Type:        r.Type,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
	}
}

// --- UserStore ---------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, user identity.User) (identity.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sa_users (id, np, password_hash, role, name, email, department, active, last_login, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, user.ID, user.NP, user.PasswordHash, user.Role, user.Name, user.Email, user.Department, user.Active,
		toNullTime(user.LastLogin), user.CreatedAt)
	if err != nil {
		return identity.User{}, err
	}
	return user, nil
}

func (s *Store) UpdateUser(ctx context.Context, user identity.User) (identity.User, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sa_users
		SET np = $2, password_hash = $3, role = $4, name = $5, email = $6, department = $7, active = $8, last_login = $9
		WHERE id = $1
	`, user.ID, user.NP, user.PasswordHash, user.Role, user.Name, user.Email, user.Department, user.Active,
		toNullTime(user.LastLogin))
	if err != nil {
		return identity.User{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return identity.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (identity.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, np, password_hash, role, name, email, department, active, last_login, created_at
		FROM sa_users WHERE id = $1
	`, id)
	if err != nil {
		return identity.User{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) GetUserByNP(ctx context.Context, np string) (identity.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, np, password_hash, role, name, email, department, active, last_login, created_at
		FROM sa_users WHERE np = $1
	`, np)
	if err != nil {
		return identity.User{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]identity.User, error) {
	var rows []userRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, np, password_hash, role, name, email, department, active, last_login, created_at
		FROM sa_users ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	result := make([]identity.User, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sa_users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- RewardStore -------------------------------------------------------------

func (s *Store) CreateItem(ctx context.Context, item reward.Item) (reward.Item, error) {
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	if item.ID == 0 {
		err := s.db.QueryRowContext(ctx, `
			INSERT INTO sa_reward_items
				(product_id, sku, name, description, details, category, size, points_cost, stock_initial, image_url, active, tags, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING id
		`, item.ProductID, item.SKU, item.Name, item.Description, item.Details, item.Category, item.Size,
			item.PointsCost, item.StockInitial, item.ImageURL, item.Active, item.Tags, item.CreatedAt, item.UpdatedAt).
			Scan(&item.ID)
		if err != nil {
			return reward.Item{}, err
		}
	} else {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO sa_reward_items
				(id, product_id, sku, name, description, details, category, size, points_cost, stock_initial, image_url, active, tags, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`, item.ID, item.ProductID, item.SKU, item.Name, item.Description, item.Details, item.Category, item.Size,
			item.PointsCost, item.StockInitial, item.ImageURL, item.Active, item.Tags, item.CreatedAt, item.UpdatedAt)
		if err != nil {
			return reward.Item{}, err
		}
	}
	if item.ProductID == 0 {
		item.ProductID = item.ID
		if _, err := s.db.ExecContext(ctx, `UPDATE sa_reward_items SET product_id = $2 WHERE id = $1`, item.ID, item.ProductID); err != nil {
			return reward.Item{}, err
		}
	}
	return item, nil
}

func (s *Store) UpdateItem(ctx context.Context, item reward.Item) (reward.Item, error) {
	item.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE sa_reward_items
		SET product_id = $2, sku = $3, name = $4, description = $5, details = $6, category = $7, size = $8,
			points_cost = $9, stock_initial = $10, image_url = $11, active = $12, tags = $13, updated_at = $14
		WHERE id = $1
	`, item.ID, item.ProductID, item.SKU, item.Name, item.Description, item.Details, item.Category, item.Size,
		item.PointsCost, item.StockInitial, item.ImageURL, item.Active, item.Tags, item.UpdatedAt)
	if err != nil {
		return reward.Item{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return reward.Item{}, sql.ErrNoRows
	}
	return item, nil
}

func (s *Store) GetItem(ctx context.Context, id int) (reward.Item, error) {
	var row itemRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, product_id, sku, name, description, details, category, size, points_cost, stock_initial, image_url, active, tags, created_at, updated_at
		FROM sa_reward_items WHERE id = $1
	`, id)
	if err != nil {
		return reward.Item{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListItems(ctx context.Context) ([]reward.Item, error) {
	var rows []itemRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, product_id, sku, name, description, details, category, size, points_cost, stock_initial, image_url, active, tags, created_at, updated_at
		FROM sa_reward_items ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	result := make([]reward.Item, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) DeleteItem(ctx context.Context, id int) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sa_reward_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- LedgerStore -------------------------------------------------------------

func (s *Store) CreateEntry(ctx context.Context, entry points.Entry) (points.Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.MovedAt.IsZero() {
		entry.MovedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sa_point_entries (id, user_id, kind, quantity, status, origin, reference, note, moved_at, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, entry.ID, entry.UserID, entry.Kind, entry.Quantity, entry.Status, entry.Origin, entry.Reference,
		entry.Note, entry.MovedAt, entry.RecordedBy)
	if err != nil {
		return points.Entry{}, err
	}
	return entry, nil
}

func (s *Store) UpdateEntry(ctx context.Context, entry points.Entry) (points.Entry, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sa_point_entries
		SET kind = $2, quantity = $3, status = $4, origin = $5, reference = $6, note = $7, recorded_by = $8
		WHERE id = $1
	`, entry.ID, entry.Kind, entry.Quantity, entry.Status, entry.Origin, entry.Reference, entry.Note, entry.RecordedBy)
	if err != nil {
		return points.Entry{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return points.Entry{}, sql.ErrNoRows
	}
	return entry, nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (points.Entry, error) {
	var row entryRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, kind, quantity, status, origin, reference, note, moved_at, recorded_by
		FROM sa_point_entries WHERE id = $1
	`, id)
	if err != nil {
		return points.Entry{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) GetEntryByReference(ctx context.Context, reference string) (points.Entry, error) {
	var row entryRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, kind, quantity, status, origin, reference, note, moved_at, recorded_by
		FROM sa_point_entries WHERE reference = $1
	`, reference)
	if err != nil {
		return points.Entry{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListEntries(ctx context.Context, userID string) ([]points.Entry, error) {
	var rows []entryRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, kind, quantity, status, origin, reference, note, moved_at, recorded_by
		FROM sa_point_entries WHERE user_id = $1 ORDER BY moved_at
	`, userID)
	if err != nil {
		return nil, err
	}
	result := make([]points.Entry, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

// --- MovementStore -----------------------------------------------------------

func (s *Store) CreateMovement(ctx context.Context, mov order.Movement) (order.Movement, error) {
	if mov.ID == "" {
		mov.ID = uuid.NewString()
	}
	if mov.CreatedAt.IsZero() {
		mov.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sa_movements (id, user_id, variant_id, product_id, sku, quantity, points_total, type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, mov.ID, mov.UserID, mov.VariantID, mov.ProductID, mov.SKU, mov.Quantity, mov.PointsTotal,
		mov.Type, mov.Status, mov.CreatedAt)
	if err != nil {
		return order.Movement{}, err
	}
	return mov, nil
}

func (s *Store) UpdateMovement(ctx context.Context, mov order.Movement) (order.Movement, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sa_movements
		SET quantity = $2, points_total = $3, type = $4, status = $5
		WHERE id = $1
	`, mov.ID, mov.Quantity, mov.PointsTotal, mov.Type, mov.Status)
	if err != nil {
		return order.Movement{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return order.Movement{}, sql.ErrNoRows
	}
	return mov, nil
}

func (s *Store) GetMovement(ctx context.Context, id string) (order.Movement, error) {
	var row movementRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, variant_id, product_id, sku, quantity, points_total, type, status, created_at
		FROM sa_movements WHERE id = $1
	`, id)
	if err != nil {
		return order.Movement{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListMovements(ctx context.Context, userID string) ([]order.Movement, error) {
	query := `
		SELECT id, user_id, variant_id, product_id, sku, quantity, points_total, type, status, created_at
		FROM sa_movements ORDER BY created_at`
	var rows []movementRow
	var err error
	if userID == "" {
		err = s.db.SelectContext(ctx, &rows, query)
	} else {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT id, user_id, variant_id, product_id, sku, quantity, points_total, type, status, created_at
			FROM sa_movements WHERE user_id = $1 ORDER BY created_at
		`, userID)
	}
	if err != nil {
		return nil, err
	}
	result := make([]order.Movement, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) ListProcessingMovements(ctx context.Context) ([]order.Movement, error) {
	var rows []movementRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, variant_id, product_id, sku, quantity, points_total, type, status, created_at
		FROM sa_movements WHERE status = $1 ORDER BY created_at
	`, order.StatusProcessing)
	if err != nil {
		return nil, err
	}
	result := make([]order.Movement, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
