package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"stakingScope/internal/model"
)

// ErrRegistryUnavailable is returned when the core listing cannot be enumerated.
var ErrRegistryUnavailable = errors.New("core registry unavailable")

// Source enumerates the registered cores.
type Source interface {
	RegisteredCores(ctx context.Context) ([]model.StakingCore, error)
}

// Registry holds the list of registered cores. A load replaces the list.
type Registry struct {
	source Source
	logger *zap.Logger

	mu    sync.RWMutex
	cores []model.StakingCore
	index map[uint32]int
}

func New(source Source, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{source: source, logger: logger, index: map[uint32]int{}}
}

// Load fetches the cores from the source and replaces the current list. On
// failure the previous list is kept.
func (r *Registry) Load(ctx context.Context) ([]model.StakingCore, error) {
	if r.source == nil {
		return nil, fmt.Errorf("%w: source is nil", ErrRegistryUnavailable)
	}
	listed, err := r.source.RegisteredCores(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
	}

	byID := make(map[uint32]model.StakingCore, len(listed))
	for _, core := range listed {
		byID[core.ID] = core
	}
	cores := make([]model.StakingCore, 0, len(byID))
	for _, core := range byID {
		cores = append(cores, core)
	}
	sort.Slice(cores, func(i, j int) bool { return cores[i].ID < cores[j].ID })

	index := make(map[uint32]int, len(cores))
	for i, core := range cores {
		index[core.ID] = i
	}

	r.mu.Lock()
	r.cores = cores
	r.index = index
	r.mu.Unlock()

	r.logger.Info("cores loaded", zap.Int("count", len(cores)))
	return r.Cores(), nil
}

// Cores returns a copy of the loaded cores ordered by id.
func (r *Registry) Cores() []model.StakingCore {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.StakingCore, len(r.cores))
	copy(out, r.cores)
	return out
}

// Core returns a core by id.
func (r *Registry) Core(id uint32) (model.StakingCore, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return model.StakingCore{}, false
	}
	return r.cores[i], true
}

func (r *Registry) Has(id uint32) bool {
	_, ok := r.Core(id)
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cores)
}
