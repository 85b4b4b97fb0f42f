package repository

import (
	"context"
	"sync"

	"github.com/amirphl/counter-clean-arch/models"
	"github.com/amirphl/counter-clean-arch/utils"
)

// MemoryCounterRepository keeps counters in process memory. Contents are lost on
// restart.
type MemoryCounterRepository struct {
	mu       sync.RWMutex
	counters map[string]models.Counter
}

func NewMemoryCounterRepository(seed ...models.Counter) *MemoryCounterRepository {
	r := &MemoryCounterRepository{counters: make(map[string]models.Counter, len(seed))}
	for _, c := range seed {
		r.counters[c.ID()] = c
	}
	return r
}

func (r *MemoryCounterRepository) ByID(ctx context.Context, id string) (*models.Counter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.counters[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *MemoryCounterRepository) GetDefault(ctx context.Context) (*models.Counter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[models.DefaultCounterID]
	if !ok {
		c = models.NewDefaultCounter()
		r.counters[c.ID()] = c
	}
	return &c, nil
}

// Save upserts; an existing entry keeps its createdAt
func (r *MemoryCounterRepository) Save(ctx context.Context, counter models.Counter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	createdAt := utils.OrUTCNow(counter.CreatedAt())
	if existing, ok := r.counters[counter.ID()]; ok {
		createdAt = existing.CreatedAt()
	}
	updatedAt := utils.OrUTCNow(counter.UpdatedAt())
	r.counters[counter.ID()] = models.NewCounter(models.CounterProps{
		ID:        counter.ID(),
		Value:     counter.Value(),
		CreatedAt: &createdAt,
		UpdatedAt: &updatedAt,
	})
	return nil
}

// Len reports how many counters are stored
func (r *MemoryCounterRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.counters)
}
