// Package poller keeps the canonical KYC state current while a session is
// authenticated: one immediate status fetch, then one per interval, each
// normalized and merged into the store. Fetch failures are logged and
// swallowed; the loop runs until stopped.
package poller

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"rentnest/appcore/internal/kyc"
	"rentnest/appcore/internal/state"
)

// DefaultInterval is the fixed poll interval.
const DefaultInterval = 30 * time.Second

// FetchFunc fetches the raw status payload for the given access token.
type FetchFunc func(ctx context.Context, token string) (map[string]any, error)

// Poller runs the status polling loop. Start and Stop are idempotent: at most
// one loop runs at a time, scoped to the authenticated session. Safe for
// concurrent use.
type Poller struct {
	store    *state.Store
	fetch    FetchFunc
	interval time.Duration
	tracer   trace.Tracer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a poller over store using fetch. interval <= 0 selects
// DefaultInterval.
func New(store *state.Store, fetch FetchFunc, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		store:    store,
		fetch:    fetch,
		interval: interval,
		tracer:   otel.Tracer("rentnest/appcore/internal/poller"),
	}
}

// Start launches the polling loop: an immediate fetch, then one per interval.
// No-op when already running. The fetched-once gate is cleared so the
// redirect engine waits for the first real reading of the new session.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	done := make(chan struct{})
	p.done = done
	p.store.SetKycFetched(false)
	go p.run(ctx, done)
}

// Stop cancels the loop and waits for it to exit. A response still in flight
// is discarded, not applied. No-op when not running.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	p.poll(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll performs one fetch-normalize-merge round. A reading that completes
// after cancellation is discarded rather than applied.
func (p *Poller) poll(ctx context.Context) {
	snap := p.store.Snapshot()
	if !snap.Auth.IsAuthenticated {
		return
	}
	ctx, span := p.tracer.Start(ctx, "poller.fetch_status")
	defer span.End()

	payload, err := p.fetch(ctx, snap.Auth.Token)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		log.Printf("poller: status fetch failed: %v", err)
		return
	}
	p.store.MergeKyc(kyc.Normalize(payload))
	p.store.SetKycFetched(true)
}
