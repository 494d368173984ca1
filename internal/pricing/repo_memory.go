package pricing

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests and early development.
// Rates keep insertion order, which stands in for storage order.
//
// NOTE: This is not intended for production; see PostgresRepo.
type MemoryRepo struct {
	mu     sync.Mutex
	Rates  []Rate
	Pulses []PulseConfig

	// Err, when set, is returned by every call. Tests use it to simulate
	// an unreachable store.
	Err error
}

func (r *MemoryRepo) LatestPulseConfig(ctx context.Context) (PulseConfig, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return PulseConfig{}, false, r.Err
	}
	if len(r.Pulses) == 0 {
		return PulseConfig{}, false, nil
	}
	return r.Pulses[len(r.Pulses)-1], true, nil
}

func (r *MemoryRepo) FindRate(ctx context.Context, origin, destination NumberType) (Rate, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return Rate{}, false, r.Err
	}
	for _, rt := range r.Rates {
		if rt.OriginType == origin && rt.DestinationType == destination {
			return rt, true, nil
		}
	}
	return Rate{}, false, nil
}

func (r *MemoryRepo) ListRates(ctx context.Context) ([]Rate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]Rate, len(r.Rates))
	copy(out, r.Rates)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OriginType != out[j].OriginType {
			return out[i].OriginType < out[j].OriginType
		}
		return out[i].DestinationType < out[j].DestinationType
	})
	return out, nil
}

func (r *MemoryRepo) GetRate(ctx context.Context, id string) (Rate, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return Rate{}, false, r.Err
	}
	for _, rt := range r.Rates {
		if rt.ID == id {
			return rt, true, nil
		}
	}
	return Rate{}, false, nil
}

func (r *MemoryRepo) FindSimilarRate(ctx context.Context, c Rate) (Rate, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return Rate{}, false, r.Err
	}
	for _, rt := range r.Rates {
		if rt.OriginType != c.OriginType || rt.DestinationType != c.DestinationType {
			continue
		}
		if rt.SameRegion != c.SameRegion {
			continue
		}
		if !carrierMatches(rt.OriginCarrier, c.OriginCarrier) || !carrierMatches(rt.DestinationCarrier, c.DestinationCarrier) {
			continue
		}
		return rt, true, nil
	}
	return Rate{}, false, nil
}

// carrierMatches mirrors `(col = $n OR col IS NULL)`: a stored NULL matches
// anything, a stored value only matches the same non-NULL value.
func carrierMatches(stored, candidate *string) bool {
	if stored == nil {
		return true
	}
	return candidate != nil && *stored == *candidate
}

func (r *MemoryRepo) InsertRate(ctx context.Context, rt Rate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Rates = append(r.Rates, rt)
	return nil
}

func (r *MemoryRepo) UpdateRate(ctx context.Context, rt Rate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return false, r.Err
	}
	for i := range r.Rates {
		if r.Rates[i].ID == rt.ID {
			rt.CreatedAt = r.Rates[i].CreatedAt
			r.Rates[i] = rt
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepo) DeleteRate(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return false, r.Err
	}
	for i := range r.Rates {
		if r.Rates[i].ID == id {
			r.Rates = append(r.Rates[:i], r.Rates[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepo) InsertPulseConfig(ctx context.Context, c PulseConfig) (PulseConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return PulseConfig{}, r.Err
	}
	c.ID = int64(len(r.Pulses) + 1)
	r.Pulses = append(r.Pulses, c)
	return c, nil
}
