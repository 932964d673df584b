// Package orchestrator drives the stage handlers (C8-C11) from the event
// bus: a pool of workers long-polls EventBus.Receive and dispatches each
// message to a Dispatcher, acking on success or permanent failure and
// releasing on a transient one so the bus redelivers it (spec §5).
// Grounded on the teacher's queue.WorkerPool/Worker split (pkg/queue), with
// the DB-claim polling loop replaced by an event-bus long-poll.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/config"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/events"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/eventbus"
)

// Dispatcher routes a decoded envelope to the matching stage handler.
// *handlers.Handlers satisfies this; the pool depends on the interface, not
// the concrete type, so handler unit tests can substitute a stub.
type Dispatcher interface {
	Dispatch(ctx context.Context, env events.Envelope) error
}

// Pool manages a fixed set of worker goroutines, each independently
// long-polling the bus and dispatching received messages.
type Pool struct {
	bus        eventbus.EventBus
	dispatcher Dispatcher
	cfg        *config.PipelineConfig

	workers []*worker
	stopCh  chan struct{}
	stop    sync.Once
	wg      sync.WaitGroup

	mu      sync.RWMutex
	started bool
}

// New creates a Pool with cfg.WorkerCount workers, none yet started.
func New(bus eventbus.EventBus, dispatcher Dispatcher, cfg *config.PipelineConfig) *Pool {
	if cfg == nil {
		cfg = config.DefaultPipelineConfig()
	}
	return &Pool{
		bus:        bus,
		dispatcher: dispatcher,
		cfg:        cfg,
		stopCh:     make(chan struct{}),
	}
}

// Start spawns cfg.WorkerCount worker goroutines. Safe to call once; a
// second call is a no-op (spec §5 "Scheduling model").
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		slog.Warn("orchestrator pool already started, ignoring duplicate Start call")
		return
	}
	p.started = true

	slog.Info("starting orchestrator pool", "worker_count", p.cfg.WorkerCount)
	for i := 0; i < p.cfg.WorkerCount; i++ {
		w := newWorker(fmt.Sprintf("worker-%d", i), p.bus, p.dispatcher, p.cfg)
		p.workers = append(p.workers, w)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.run(ctx)
		}()
	}
}

// Stop signals every worker to stop and blocks until all in-flight
// dispatches finish.
func (p *Pool) Stop() {
	slog.Info("stopping orchestrator pool gracefully")
	p.stop.Do(func() { close(p.stopCh) })
	for _, w := range p.workers {
		w.stop()
	}
	p.wg.Wait()
	slog.Info("orchestrator pool stopped")
}

// Health reports per-worker activity for the HTTP health endpoint.
func (p *Pool) Health() PoolHealth {
	p.mu.RLock()
	defer p.mu.RUnlock()
	stats := make([]WorkerHealth, len(p.workers))
	for i, w := range p.workers {
		stats[i] = w.health()
	}
	return PoolHealth{TotalWorkers: len(p.workers), WorkerStats: stats}
}

// PoolHealth summarizes the orchestrator pool for GET /healthz.
type PoolHealth struct {
	TotalWorkers int            `json:"totalWorkers"`
	WorkerStats  []WorkerHealth `json:"workers"`
}

// WorkerHealth summarizes one worker for GET /healthz.
type WorkerHealth struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	MessagesDispatched int    `json:"messagesDispatched"`
}
