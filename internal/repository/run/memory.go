package run

import (
	"context"
	"sync"

	"github.com/jgivc/rocketimages/internal/common"
	"github.com/jgivc/rocketimages/internal/config"
	"github.com/jgivc/rocketimages/internal/entity"
)

// memoryRepository keeps runs for the life of the process. Used when no redis url is configured.
type memoryRepository struct {
	mu      sync.RWMutex
	runs    []*entity.Run // Newest first
	maxRuns int
}

func NewMemoryRepository(maxRuns int) *memoryRepository {
	if maxRuns < 1 {
		maxRuns = config.DefaultMaxRuns
	}

	return &memoryRepository{
		maxRuns: maxRuns,
	}
}

func (r *memoryRepository) Save(_ context.Context, run *entity.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *run
	cp.Steps = append([]entity.StepRun(nil), run.Steps...)

	r.runs = append([]*entity.Run{&cp}, r.runs...)
	if len(r.runs) > r.maxRuns {
		r.runs = r.runs[:r.maxRuns]
	}

	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (*entity.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, run := range r.runs {
		if run.ID == id {
			cp := *run
			return &cp, nil
		}
	}

	return nil, common.ErrRunNotFound
}

func (r *memoryRepository) List(_ context.Context, limit int) ([]*entity.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit > len(r.runs) {
		limit = len(r.runs)
	}

	if limit < 1 {
		return nil, nil
	}

	runs := make([]*entity.Run, limit)
	for i := range limit {
		cp := *r.runs[i]
		runs[i] = &cp
	}

	return runs, nil
}
