package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"telecom-billing/internal/apperr"
	"telecom-billing/pkg/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// User is an operator account allowed to use the API.
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     string    `json:"full_name" db:"full_name"`
	Role         string    `json:"role" db:"role"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateUsername  = apperr.Conflict("username already exists")
)

// UserStore persists operator accounts.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (User, bool, error)
	Insert(ctx context.Context, u User) error
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Service authenticates users and issues token pairs.
type Service struct {
	users  UserStore
	tokens *Manager
	clock  func() time.Time
}

func NewService(users UserStore, tokens *Manager) *Service {
	return &Service{users: users, tokens: tokens, clock: time.Now}
}

// Login verifies username and password. Unknown users, inactive users and
// wrong passwords all return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return TokenPair{}, User{}, apperr.Validation("username and password are required")
	}

	u, ok, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return TokenPair{}, User{}, apperr.Persistence("find user", err)
	}
	if !ok || !u.Active || !CheckPassword(u.PasswordHash, password) {
		return TokenPair{}, User{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(s.clock(), u.ID, u.Username, u.Role)
	if err != nil {
		return TokenPair{}, User{}, err
	}
	return pair, u, nil
}

// NewUserRequest is the input for CreateUser. Role must already be validated
// by the caller against the RBAC role set.
type NewUserRequest struct {
	Username string
	Password string
	FullName string
	Role     string
}

func (s *Service) CreateUser(ctx context.Context, req NewUserRequest) (User, error) {
	return CreateUser(ctx, s.users, req, s.clock())
}

// CreateUser hashes the password and stores a new active user.
func CreateUser(ctx context.Context, store UserStore, req NewUserRequest, now time.Time) (User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Role == "" {
		return User{}, apperr.Validation("username and role are required")
	}
	if len(req.Password) < 8 {
		return User{}, apperr.Validation("password must have at least 8 characters")
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return User{}, err
	}
	u := User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Active:       true,
		CreatedAt:    now.UTC(),
	}
	if err := store.Insert(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return User{}, err
		}
		return User{}, apperr.Persistence("insert user", err)
	}
	return u, nil
}

// MemoryUserStore is an in-memory UserStore for tests.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[string]User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: map[string]User{}}
}

func (s *MemoryUserStore) FindByUsername(ctx context.Context, username string) (User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	return u, ok, nil
}

func (s *MemoryUserStore) Insert(ctx context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Username]; ok {
		return ErrDuplicateUsername
	}
	s.users[u.Username] = u
	return nil
}

// PostgresUserStore reads and writes the users table.
type PostgresUserStore struct {
	db utils.DB
}

func NewPostgresUserStore(db utils.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) FindByUsername(ctx context.Context, username string) (User, bool, error) {
	const q = `
SELECT id, username, password_hash, full_name, role, active, created_at
FROM users
WHERE username = $1
`
	var u User
	err := s.db.QueryRow(ctx, q, username).Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.FullName,
		&u.Role,
		&u.Active,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, false, nil
		}
		return User{}, false, err
	}
	return u, true, nil
}

func (s *PostgresUserStore) Insert(ctx context.Context, u User) error {
	const q = `
INSERT INTO users (id, username, password_hash, full_name, role, active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err := s.db.Exec(ctx, q, u.ID, u.Username, u.PasswordHash, u.FullName, u.Role, u.Active, u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateUsername
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
