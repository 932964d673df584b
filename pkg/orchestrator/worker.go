package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/config"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/eventbus"
)

type workerStatus string

const (
	workerStatusIdle    workerStatus = "idle"
	workerStatusWorking workerStatus = "working"
)

// worker long-polls the bus for a batch of messages and dispatches each
// sequentially. One message in flight per worker at a time; concurrency
// comes from running multiple workers, not from parallelizing dispatch
// within one (spec §5 "each is a cooperative sequential task internally").
type worker struct {
	id         string
	bus        eventbus.EventBus
	dispatcher Dispatcher
	cfg        *config.PipelineConfig

	stopCh chan struct{}
	once   sync.Once

	mu                 sync.Mutex
	status             workerStatus
	messagesDispatched int
	lastActivity       time.Time
}

func newWorker(id string, bus eventbus.EventBus, dispatcher Dispatcher, cfg *config.PipelineConfig) *worker {
	return &worker{
		id: id, bus: bus, dispatcher: dispatcher, cfg: cfg,
		stopCh: make(chan struct{}), status: workerStatusIdle, lastActivity: time.Now(),
	}
}

func (w *worker) stop() {
	w.once.Do(func() { close(w.stopCh) })
}

func (w *worker) health() WorkerHealth {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WorkerHealth{ID: w.id, Status: string(w.status), MessagesDispatched: w.messagesDispatched}
}

// run is the main worker loop: receive, dispatch, ack/release, repeat.
func (w *worker) run(ctx context.Context) {
	log := slog.With("worker_id", w.id)
	log.Info("orchestrator worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("orchestrator worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, orchestrator worker shutting down")
			return
		default:
			w.pollAndProcess(ctx, log)
		}
	}
}

// pollAndProcess receives up to one message and dispatches it. A Receive
// error (including context cancellation) backs off briefly before the
// worker's next iteration re-checks stopCh/ctx.Done.
func (w *worker) pollAndProcess(ctx context.Context, log *slog.Logger) {
	msgs, err := w.bus.Receive(ctx, 1)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warn("receive from event bus failed", "error", err)
		}
		w.sleep(w.pollInterval())
		return
	}
	if len(msgs) == 0 {
		return
	}

	msg := msgs[0]
	w.setStatus(workerStatusWorking)
	defer w.setStatus(workerStatusIdle)

	budget := w.budgetFor(msg)
	dispatchCtx := ctx
	var cancel context.CancelFunc
	if budget > 0 {
		dispatchCtx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	dispatchErr := w.dispatcher.Dispatch(dispatchCtx, msg.Envelope)
	if dispatchErr == nil {
		if ackErr := w.bus.Ack(ctx, msg); ackErr != nil {
			log.Error("ack message failed", "error", ackErr, "detail_type", msg.Envelope.DetailType)
		}
		w.recordDispatch()
		return
	}

	if apperrors.IsRetryable(dispatchErr) {
		log.Warn("dispatch failed transiently, releasing for redelivery", "error", dispatchErr, "detail_type", msg.Envelope.DetailType)
		if relErr := w.bus.Release(ctx, msg); relErr != nil {
			log.Error("release message failed", "error", relErr)
		}
		return
	}

	log.Error("dispatch failed permanently, acking to stop redelivery", "error", dispatchErr, "detail_type", msg.Envelope.DetailType)
	if ackErr := w.bus.Ack(ctx, msg); ackErr != nil {
		log.Error("ack permanently-failed message failed", "error", ackErr)
	}
	w.recordDispatch()
}

// budgetFor returns the wall-clock budget for msg's stage (spec §5
// "Cancellation"): StoryBudget/EpisodeBudget/ImageBudget by detail-type,
// or 0 (no deadline) for types the config does not budget.
func (w *worker) budgetFor(msg eventbus.Message) time.Duration {
	if w.cfg == nil {
		return 0
	}
	switch msg.Envelope.DetailType {
	case "BatchStoryRequested", "StoryRequested":
		return w.cfg.StoryBudget
	case "EpisodeRequested", "ContinueEpisodeRequested":
		return w.cfg.EpisodeBudget
	case "ImageRequested":
		return w.cfg.ImageBudget
	default:
		return 0
	}
}

func (w *worker) recordDispatch() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messagesDispatched++
	w.lastActivity = time.Now()
}

func (w *worker) setStatus(s workerStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = s
	w.lastActivity = time.Now()
}

// sleep waits for d or until stop is signalled.
func (w *worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollInterval returns the configured poll interval with jitter, mirroring
// the teacher's jittered backoff (pkg/queue/worker.go).
func (w *worker) pollInterval() time.Duration {
	if w.cfg == nil {
		return time.Second
	}
	base := w.cfg.PollInterval
	jitter := w.cfg.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}
