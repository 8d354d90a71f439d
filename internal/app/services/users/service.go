// Package users implements the admin-facing account management surface,
// including bulk CSV onboarding.
package users

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Turistty/Simplifique-Application/internal/app/domain/identity"
	identitysvc "github.com/Turistty/Simplifique-Application/internal/app/services/identity"
	"github.com/Turistty/Simplifique-Application/internal/app/services/points"
	"github.com/Turistty/Simplifique-Application/internal/app/storage"
	"github.com/Turistty/Simplifique-Application/pkg/logger"
)

// Service manages platform accounts on behalf of administrators.
type Service struct {
	users  storage.UserStore
	points *points.Service
	log    *logger.Logger
	now    func() time.Time
}

// New constructs a users service.
func New(users storage.UserStore, pts *points.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{
		users:  users,
		points: pts,
		log:    log,
		now:    time.Now,
	}
}

// Create registers an account. The NP must be unique; the password is hashed
// before storage and never kept in clear.
func (s *Service) Create(ctx context.Context, np, password, name, email, department, role string) (identity.User, error) {
	np = strings.TrimSpace(np)
	name = strings.TrimSpace(name)
	if np == "" {
		return identity.User{}, fmt.Errorf("np is required")
	}
	if name == "" {
		return identity.User{}, fmt.Errorf("name is required")
	}
	if role != identity.RoleAdmin {
		role = identity.RoleUser
	}

	if _, err := s.users.GetUserByNP(ctx, np); err == nil {
		return identity.User{}, fmt.Errorf("np %s already registered", np)
	}

	hash, err := identitysvc.HashPassword(password)
	if err != nil {
		return identity.User{}, err
	}

	user, err := s.users.CreateUser(ctx, identity.User{
		NP:           np,
		PasswordHash: hash,
		Role:         role,
		Name:         name,
		Email:        strings.TrimSpace(email),
		Department:   strings.TrimSpace(department),
		Active:       true,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return identity.User{}, err
	}
	s.log.WithField("user_id", user.ID).WithField("np", np).Info("user created")
	return user, nil
}

// Update edits mutable account fields. Blank inputs keep the stored value.
func (s *Service) Update(ctx context.Context, id, name, email, department, role string, active *bool) (identity.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return identity.User{}, err
	}

	if v := strings.TrimSpace(name); v != "" {
		user.Name = v
	}
	if v := strings.TrimSpace(email); v != "" {
		user.Email = v
	}
	if v := strings.TrimSpace(department); v != "" {
		user.Department = v
	}
	if role == identity.RoleAdmin || role == identity.RoleUser {
		user.Role = role
	}
	if active != nil {
		user.Active = *active
	}

	updated, err := s.users.UpdateUser(ctx, user)
	if err != nil {
		return identity.User{}, err
	}
	s.log.WithField("user_id", updated.ID).Info("user updated")
	return updated, nil
}

// SetPassword replaces an account's password.
func (s *Service) SetPassword(ctx context.Context, id, password string) error {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return err
	}
	hash, err := identitysvc.HashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if _, err := s.users.UpdateUser(ctx, user); err != nil {
		return err
	}
	s.log.WithField("user_id", id).Info("password reset")
	return nil
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id string) (identity.User, error) {
	return s.users.GetUser(ctx, id)
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]identity.User, error) {
	return s.users.ListUsers(ctx)
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.log.WithField("user_id", id).Info("user deleted")
	return nil
}

// ImportReport summarizes one CSV import run.
type ImportReport struct {
	Imported int      `json:"imported"`
	Credited int      `json:"credited"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportCSV bulk-loads accounts from a CSV stream with columns
// np,name,email,points (a header row is detected and skipped). Rows need at
// least the first three fields; the points column, when present and
// positive, seeds the account with an initial confirmed credit. Import is
// line by line: a bad row is reported and skipped, the rest still load.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader, recordedBy string) (ImportReport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var report ImportReport
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if line == 1 && looksLikeHeader(record) {
			continue
		}
		if len(record) < 3 {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("line %d: expected at least 3 fields, got %d", line, len(record)))
			continue
		}

		np := strings.TrimSpace(record[0])
		name := strings.TrimSpace(record[1])
		email := strings.TrimSpace(record[2])

		user, err := s.Create(ctx, np, np, name, email, "", identity.RoleUser)
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		report.Imported++

		if len(record) >= 4 {
			quantity, err := strconv.Atoi(strings.TrimSpace(record[3]))
			if err != nil || quantity <= 0 {
				continue
			}
			if _, err := s.points.Credit(ctx, user.ID, quantity, "importacao", "carga inicial", recordedBy); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("line %d: credit failed: %v", line, err))
				continue
			}
			report.Credited++
		}
	}

	s.log.WithField("imported", report.Imported).
		WithField("skipped", report.Skipped).
		Info("csv import finished")
	return report, nil
}

func looksLikeHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(record[0]))
	return first == "np" || first == "matricula" || first == "id"
}
