package market

import (
	"fmt"
	"sync"

	"creator-market-sim/internal/models"
)

// Registry owns the instrument catalogue of one simulation. It is safe for concurrent
// use; readers always receive copies.
type Registry struct {
	mu    sync.RWMutex
	items map[string]*models.Instrument
	order []string
}

// NewRegistry builds a registry from a seed catalogue. Ids must be unique and prices positive.
func NewRegistry(instruments []models.Instrument) (*Registry, error) {
	r := &Registry{items: make(map[string]*models.Instrument, len(instruments))}
	for _, inst := range instruments {
		if inst.ID == "" {
			return nil, fmt.Errorf("instrument %q has no id: %w", inst.Symbol, models.ErrInvalidArgument)
		}
		if _, dup := r.items[inst.ID]; dup {
			return nil, fmt.Errorf("duplicate instrument id %s: %w", inst.ID, models.ErrInvalidArgument)
		}
		if inst.CurrentPrice <= 0 {
			return nil, fmt.Errorf("instrument %s has non-positive price %f: %w", inst.ID, inst.CurrentPrice, models.ErrInvalidArgument)
		}
		if inst.InitialPrice <= 0 {
			inst.InitialPrice = inst.CurrentPrice
		}
		copied := inst
		r.items[inst.ID] = &copied
		r.order = append(r.order, inst.ID)
	}
	return r, nil
}

// Len returns the number of instruments.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// List returns a snapshot of every instrument in catalogue order.
func (r *Registry) List() []models.Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Instrument, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.items[id])
	}
	return out
}

// Get returns a snapshot of one instrument.
func (r *Registry) Get(id string) (models.Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.items[id]
	if !ok {
		return models.Instrument{}, fmt.Errorf("instrument %s: %w", id, models.ErrNotFound)
	}
	return *inst, nil
}

// At returns the instrument at catalogue position i.
func (r *Registry) At(i int) models.Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *r.items[r.order[i]]
}

// SetPrice replaces the current price and returns the previous one.
func (r *Registry) SetPrice(id string, price float64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.items[id]
	if !ok {
		return 0, fmt.Errorf("instrument %s: %w", id, models.ErrNotFound)
	}
	old := inst.CurrentPrice
	inst.CurrentPrice = price
	return old, nil
}
