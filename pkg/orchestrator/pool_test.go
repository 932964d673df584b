package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/config"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/eventbus"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/events"
)

// stubDispatcher records every envelope it sees and returns canned errors
// keyed by a counter, letting tests drive transient-vs-permanent paths.
type stubDispatcher struct {
	mu       sync.Mutex
	seen     []events.Envelope
	nextErrs []error
}

func (d *stubDispatcher) Dispatch(_ context.Context, env events.Envelope) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = append(d.seen, env)
	if len(d.nextErrs) == 0 {
		return nil
	}
	err := d.nextErrs[0]
	d.nextErrs = d.nextErrs[1:]
	return err
}

func (d *stubDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

func testPipelineConfig() *config.PipelineConfig {
	return &config.PipelineConfig{
		WorkerCount:             1,
		PollInterval:            20 * time.Millisecond,
		PollIntervalJitter:      5 * time.Millisecond,
		GracefulShutdownTimeout: time.Second,
	}
}

func TestPool_DispatchesAndAcksOnSuccess(t *testing.T) {
	bus := eventbus.NewInMemoryBus()
	dispatcher := &stubDispatcher{}
	pool := New(bus, dispatcher, testPipelineConfig())

	env, err := events.NewStoryRequestedEnvelope(events.StoryRequested{StoryID: "s1"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	require.Eventually(t, func() bool { return dispatcher.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return bus.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestPool_ReleasesOnTransientFailure(t *testing.T) {
	bus := eventbus.NewInMemoryBus()
	dispatcher := &stubDispatcher{nextErrs: []error{apperrors.NewTransientError(nil, "boom")}}
	pool := New(bus, dispatcher, testPipelineConfig())

	env, err := events.NewStoryRequestedEnvelope(events.StoryRequested{StoryID: "s1"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	require.Eventually(t, func() bool { return dispatcher.count() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestPool_AcksOnPermanentFailure(t *testing.T) {
	bus := eventbus.NewInMemoryBus()
	dispatcher := &stubDispatcher{nextErrs: []error{apperrors.NewValidationError("bad event")}}
	pool := New(bus, dispatcher, testPipelineConfig())

	env, err := events.NewStoryRequestedEnvelope(events.StoryRequested{StoryID: "s1"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	require.Eventually(t, func() bool { return dispatcher.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return bus.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestPool_StartIsIdempotent(t *testing.T) {
	bus := eventbus.NewInMemoryBus()
	dispatcher := &stubDispatcher{}
	pool := New(bus, dispatcher, testPipelineConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	pool.Start(ctx)
	defer pool.Stop()

	assert.Len(t, pool.workers, 1)
}
