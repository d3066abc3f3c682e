// pkg/origins/provider.go
package origins

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"mcpx/pkg/metrics"
	"mcpx/pkg/store"
)

// DefaultTTL is how long a fetched allow-list stays authoritative.
const DefaultTTL = 5 * time.Minute

const cacheKey = "allowed-origins"

// Provider resolves the cross-origin allow-list from the store and caches it
// in a single shared slot for a fixed TTL.
//
// By default concurrent misses each query the store and the last write wins;
// the data changes rarely and the reads are cheap. WithSingleFlight collapses
// concurrent misses into one store call instead.
type Provider struct {
	dal  store.DAL
	slot Slot
	ttl  time.Duration
	now  func() time.Time
	log  *zap.SugaredLogger
	sf   *singleflight.Group
}

// Option configures a Provider.
type Option func(*Provider)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.ttl = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(p *Provider) { p.now = now } }

// WithSlot replaces the default atomic slot.
func WithSlot(s Slot) Option { return func(p *Provider) { p.slot = s } }

// WithLogger sets the logger used for refresh and invalidation events.
func WithLogger(log *zap.SugaredLogger) Option { return func(p *Provider) { p.log = log } }

// WithSingleFlight allows at most one concurrent store fetch per miss window.
func WithSingleFlight() Option { return func(p *Provider) { p.sf = &singleflight.Group{} } }

// NewProvider constructs a Provider over dal.
func NewProvider(dal store.DAL, opts ...Option) *Provider {
	p := &Provider{
		dal:  dal,
		slot: NewSlot(),
		ttl:  DefaultTTL,
		now:  time.Now,
		log:  zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Get returns the current allow-list. While the cache is warm every call
// returns the same *Set.
func (p *Provider) Get(ctx context.Context) (*Set, error) {
	if s, ok := p.cached(); ok {
		metrics.AllowListLookups.WithLabelValues("hit").Inc()
		return s, nil
	}
	metrics.AllowListLookups.WithLabelValues("miss").Inc()

	if p.sf == nil {
		return p.refresh(ctx)
	}
	// Joined callers share this fetch; it ignores the leader's cancellation.
	shared := context.WithoutCancel(ctx)
	v, err, _ := p.sf.Do(cacheKey, func() (any, error) {
		if s, ok := p.cached(); ok {
			return s, nil
		}
		return p.refresh(shared)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Set), nil
}

// IsAllowed reports whether origin is in the allow-list, ignoring case.
func (p *Provider) IsAllowed(ctx context.Context, origin string) (bool, error) {
	s, err := p.Get(ctx)
	if err != nil {
		return false, err
	}
	return s.Contains(origin), nil
}

// Invalidate drops the cached entry so the next Get reads the store.
func (p *Provider) Invalidate() {
	p.slot.Clear()
	p.log.Infow("allow-list cache cleared", "cache", cacheKey)
}

func (p *Provider) cached() (*Set, bool) {
	e, ok := p.slot.Load()
	if !ok || !p.now().Before(e.Expires) {
		return nil, false
	}
	return e.Set, true
}

func (p *Provider) refresh(ctx context.Context) (*Set, error) {
	rows, err := p.dal.Query(ctx, store.ProcAllowedOrigins)
	if err != nil {
		metrics.AllowListLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load allowed origins: %w", err)
	}
	raw := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Origin != nil {
			raw = append(raw, *r.Origin)
		}
	}
	s := NewSet(raw)
	p.slot.Store(&Entry{Set: s, Expires: p.now().Add(p.ttl)})
	metrics.AllowListSize.Set(float64(s.Len()))
	p.log.Debugw("allow-list refreshed", "cache", cacheKey, "rows", len(rows), "origins", s.Len(), "ttl", p.ttl)
	return s, nil
}
