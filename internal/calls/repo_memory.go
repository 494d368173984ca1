package calls

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu    sync.Mutex
	calls []Call

	// Err, when set, is returned by every call.
	Err error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Insert(ctx context.Context, c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if c.IdempotencyKey != "" {
		for _, prev := range r.calls {
			if prev.IdempotencyKey == c.IdempotencyKey {
				return ErrDuplicateKey
			}
		}
	}
	r.calls = append(r.calls, c)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, f ListFilter) ([]Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]Call, 0, len(r.calls))
	for _, c := range r.calls {
		if f.ContactID != "" && c.OriginContactID != f.ContactID {
			continue
		}
		if !f.From.IsZero() && c.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !c.CreatedAt.Before(f.To) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepo) FindByIdempotencyKey(ctx context.Context, key string) (Call, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return Call{}, false, r.Err
	}
	for _, c := range r.calls {
		if c.IdempotencyKey == key {
			return c, true, nil
		}
	}
	return Call{}, false, nil
}

// All returns every stored call in insertion order.
func (r *MemoryRepo) All() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}
