package contacts

import (
	"context"
	"errors"
	"strings"
	"time"

	"telecom-billing/internal/apperr"

	"github.com/google/uuid"
)

var (
	ErrDuplicateNumber = apperr.Conflict("phone number already exists")
	ErrContactNotFound = apperr.NotFound("contact")
)

// Repository persists contacts.
type Repository interface {
	List(ctx context.Context) ([]Contact, error)
	Get(ctx context.Context, id string) (Contact, bool, error)
	FindByNumber(ctx context.Context, number string) (Contact, bool, error)
	// Insert returns ErrDuplicateNumber when the number is taken.
	Insert(ctx context.Context, c Contact) error
	Delete(ctx context.Context, id string) (bool, error)
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) List(ctx context.Context) ([]Contact, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Persistence("list contacts", err)
	}
	return out, nil
}

// Get returns ErrContactNotFound when id does not exist.
func (s *Service) Get(ctx context.Context, id string) (Contact, error) {
	c, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return Contact{}, apperr.Persistence("get contact", err)
	}
	if !ok {
		return Contact{}, ErrContactNotFound
	}
	return c, nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Contact, error) {
	name := strings.TrimSpace(req.Name)
	number := strings.TrimSpace(req.Number)
	if name == "" || number == "" {
		return Contact{}, apperr.Validation("name and number are required")
	}

	if _, exists, err := s.repo.FindByNumber(ctx, number); err != nil {
		return Contact{}, apperr.Persistence("find contact by number", err)
	} else if exists {
		return Contact{}, ErrDuplicateNumber
	}

	c := Contact{
		ID:         uuid.NewString(),
		Name:       name,
		Number:     number,
		Department: trimmed(req.Department),
		Carrier:    trimmed(req.Carrier),
		CreatedAt:  s.clock().UTC(),
	}
	if err := s.repo.Insert(ctx, c); err != nil {
		// The unique index still catches a concurrent insert of the same number.
		if errors.Is(err, ErrDuplicateNumber) {
			return Contact{}, err
		}
		return Contact{}, apperr.Persistence("insert contact", err)
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperr.Persistence("delete contact", err)
	}
	if !ok {
		return ErrContactNotFound
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
