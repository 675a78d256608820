package sagalog

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Repository is the port (interface) for persisting saga log entries.
// Each Save appends; the log is never updated in place.
type Repository interface {
	Save(ctx context.Context, entry *SagaLog) error
	History(ctx context.Context, sagaID string) ([]SagaLog, error)
}

// DefaultMemorySagas is how many sagas a MemoryRepository retains.
const DefaultMemorySagas = 512

// MemoryRepository keeps the log of the most recent sagas in process
// memory; the oldest saga is dropped whole once the limit is reached. Used
// when no database path is configured, and in tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	maxSagas int
	sagas    map[string][]SagaLog
	order    []string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		maxSagas: DefaultMemorySagas,
		sagas:    make(map[string][]SagaLog),
	}
}

func (r *MemoryRepository) Save(_ context.Context, entry *SagaLog) error {
	if entry == nil {
		return fmt.Errorf("sagalog: nil entry")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sagas[entry.SagaID]; !ok {
		r.order = append(r.order, entry.SagaID)
		if len(r.order) > r.maxSagas {
			delete(r.sagas, r.order[0])
			r.order = r.order[1:]
		}
	}
	r.sagas[entry.SagaID] = append(r.sagas[entry.SagaID], *entry)
	return nil
}

// History returns the entries of one saga in the order they were written.
func (r *MemoryRepository) History(_ context.Context, sagaID string) ([]SagaLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.sagas[sagaID]), nil
}
