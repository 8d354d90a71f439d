// Package identity authenticates users and issues the signed session tokens
// the route guard verifies.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Turistty/Simplifique-Application/internal/app/domain/identity"
	"github.com/Turistty/Simplifique-Application/internal/app/storage"
	"github.com/Turistty/Simplifique-Application/pkg/logger"
)

// Authentication failures are reported uniformly so callers cannot tell a
// missing account from a wrong password.
var ErrInvalidCredentials = fmt.Errorf("invalid credentials")

// ErrInvalidToken is returned for any token the verifier does not accept.
var ErrInvalidToken = fmt.Errorf("invalid token")

// DefaultTokenTTL bounds session lifetime when no TTL is configured.
const DefaultTokenTTL = 8 * time.Hour

// Claims is the session payload carried inside the signed cookie.
type Claims struct {
	Name string `json:"nome,omitempty"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Service authenticates accounts and mints HS256 session tokens.
type Service struct {
	users    storage.UserStore
	secret   []byte
	tokenTTL time.Duration
	log      *logger.Logger
	now      func() time.Time
}

// New constructs an identity service. The secret must not be empty; an empty
// secret would make every forged token verify.
func New(users storage.UserStore, secret string, tokenTTL time.Duration, log *logger.Logger) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("token secret required")
	}
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	if log == nil {
		log = logger.NewDefault("identity")
	}
	return &Service{
		users:    users,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		log:      log,
		now:      time.Now,
	}, nil
}

// Authenticate verifies an NP and password pair and returns the account with
// its last-login timestamp refreshed.
func (s *Service) Authenticate(ctx context.Context, np, password string) (identity.User, error) {
	np = strings.TrimSpace(np)
	if np == "" || password == "" {
		return identity.User{}, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByNP(ctx, np)
	if err != nil {
		s.log.WithField("np", np).Warn("login attempt for unknown account")
		return identity.User{}, ErrInvalidCredentials
	}
	if !user.Active {
		s.log.WithField("user_id", user.ID).Warn("login attempt on inactive account")
		return identity.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.WithField("user_id", user.ID).Warn("login attempt with wrong password")
		return identity.User{}, ErrInvalidCredentials
	}

	user.LastLogin = s.now().UTC()
	if updated, err := s.users.UpdateUser(ctx, user); err == nil {
		user = updated
	}

	s.log.WithField("user_id", user.ID).Info("user authenticated")
	return user, nil
}

// IssueToken mints an HS256 session token for an account.
func (s *Service) IssueToken(user identity.User) (string, error) {
	now := s.now()
	claims := Claims{
		Name: user.Name,
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses and verifies a session token. Only HS256 signatures are
// accepted; any other declared algorithm fails verification outright.
func (s *Service) VerifyToken(raw string) (identity.Session, error) {
	if strings.TrimSpace(raw) == "" {
		return identity.Session{}, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return identity.Session{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return identity.Session{}, ErrInvalidToken
	}

	return identity.Session{
		UserID: claims.Subject,
		Name:   claims.Name,
		Role:   claims.Role,
	}, nil
}

// Me resolves a session back to its stored account.
func (s *Service) Me(ctx context.Context, session identity.Session) (identity.User, error) {
	return s.users.GetUser(ctx, session.UserID)
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
