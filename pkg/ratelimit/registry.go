package ratelimit

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry owns the named buckets of the process. Components look their
// bucket up by name so wiring stays declarative: the configuration file
// decides which limits exist, the code only names the group it needs.
type Registry struct {
	mu      sync.RWMutex
	buckets map[string]*Bucket

	consumed *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

// NewRegistry builds an empty registry and registers its counters with reg.
// Pass nil to skip metrics registration (tests).
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		buckets: make(map[string]*Bucket),
		consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_tokens_consumed_total",
			Help: "Tokens handed out per bucket.",
		}, []string{"bucket"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_consume_rejected_total",
			Help: "Consume probes that found an empty bucket.",
		}, []string{"bucket"}),
	}
	if reg != nil {
		reg.MustRegister(r.consumed, r.rejected)
	}
	return r
}

// Add registers a bucket under its name. Re-adding a name replaces the old
// bucket, so configuration reloads stay simple. Added buckets report every
// Consume outcome to the registry counters, including probes made through
// Bucket.Do by holders of the bucket itself.
func (r *Registry) Add(b *Bucket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := b.Name()
	b.setObserver(func(granted bool, n int64) {
		if granted {
			r.consumed.WithLabelValues(name).Add(float64(n))
		} else {
			r.rejected.WithLabelValues(name).Inc()
		}
	})
	r.buckets[name] = b
}

// Group returns the bucket registered under name. An unknown name is a
// programming or configuration error and is reported as such.
func (r *Registry) Group(name string) (*Bucket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.buckets[name]
	if !ok {
		return nil, fmt.Errorf("ratelimit: unknown bucket %q", name)
	}
	return b, nil
}

// Consume probes the named bucket. The outcome reaches the counters through
// the bucket's observer.
func (r *Registry) Consume(name string, n int64) (bool, error) {
	b, err := r.Group(name)
	if err != nil {
		return false, err
	}
	return b.Consume(n), nil
}

// Names lists the registered bucket names in stable order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.buckets))
	for name := range r.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StartAll launches every bucket's replenish loop.
func (r *Registry) StartAll(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.buckets {
		b.Start(ctx)
	}
}

// StopAll halts every bucket and waits for the loops to exit.
func (r *Registry) StopAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.buckets {
		b.Stop()
	}
}
