// Package jobs runs named maintenance jobs on a daily cron schedule.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Handler runs one job. trigger is "scheduled" or "manual".
type Handler func(ctx context.Context, trigger string) (any, error)

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(job string, h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	if job == "" {
		return fmt.Errorf("job name is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[job]; exists {
		return fmt.Errorf("handler already registered for job=%s", job)
	}
	r.handlers[job] = h
	return nil
}

func (r *Registry) Get(job string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[job]
	return h, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
