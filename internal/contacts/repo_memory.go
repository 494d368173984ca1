package contacts

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests and local runs.
type MemoryRepo struct {
	mu       sync.Mutex
	contacts map[string]Contact

	// Err, when set, is returned by every call.
	Err error
}

func NewMemoryRepo(seed ...Contact) *MemoryRepo {
	r := &MemoryRepo{contacts: map[string]Contact{}}
	for _, c := range seed {
		r.contacts[c.ID] = c
	}
	return r
}

func (r *MemoryRepo) List(ctx context.Context) ([]Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]Contact, 0, len(r.contacts))
	for _, c := range r.contacts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Contact, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return Contact{}, false, r.Err
	}
	c, ok := r.contacts[id]
	return c, ok, nil
}

func (r *MemoryRepo) FindByNumber(ctx context.Context, number string) (Contact, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return Contact{}, false, r.Err
	}
	for _, c := range r.contacts {
		if c.Number == number {
			return c, true, nil
		}
	}
	return Contact{}, false, nil
}

func (r *MemoryRepo) Insert(ctx context.Context, c Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	for _, existing := range r.contacts {
		if existing.Number == c.Number {
			return ErrDuplicateNumber
		}
	}
	r.contacts[c.ID] = c
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return false, r.Err
	}
	if _, ok := r.contacts[id]; !ok {
		return false, nil
	}
	delete(r.contacts, id)
	return true, nil
}
