package eventbus

import (
	"context"
	"strconv"
	"sync"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/events"
)

// InMemoryBus is an EventBus fake backed by a slice guarded by a mutex. It
// never deduplicates and never fails, mirroring the at-least-once,
// best-effort contract of the production bus so handler tests exercise the
// same idempotency paths.
type InMemoryBus struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []Message
	inFlight map[string]Message
	seq     int
	closed  bool
}

// NewInMemoryBus creates an empty InMemoryBus.
func NewInMemoryBus() *InMemoryBus {
	b := &InMemoryBus{inFlight: make(map[string]Message)}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *InMemoryBus) Publish(_ context.Context, envelope events.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	handle := strconv.Itoa(b.seq)
	b.pending = append(b.pending, Message{Envelope: envelope, ReceiptHandle: handle})
	b.cond.Broadcast()
	return nil
}

// Receive blocks until at least one message is pending, ctx is cancelled,
// or the bus is closed. Received messages move to an in-flight set until
// Ack (removed) or Release (returned to pending).
func (b *InMemoryBus) Receive(ctx context.Context, maxMessages int) ([]Message, error) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			b.cond.Broadcast()
			b.mu.Unlock()
		case <-done:
		}
	}()
	defer close(done)

	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.pending) == 0 && !b.closed {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		b.cond.Wait()
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	n := maxMessages
	if n > len(b.pending) || n <= 0 {
		n = len(b.pending)
	}
	out := b.pending[:n]
	b.pending = b.pending[n:]
	for _, msg := range out {
		b.inFlight[msg.ReceiptHandle] = msg
	}
	cp := make([]Message, len(out))
	copy(cp, out)
	return cp, nil
}

func (b *InMemoryBus) Ack(_ context.Context, msg Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inFlight, msg.ReceiptHandle)
	return nil
}

// Release returns msg to the pending queue, simulating bus redelivery.
func (b *InMemoryBus) Release(_ context.Context, msg Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.inFlight[msg.ReceiptHandle]; !ok {
		return apperrors.New(apperrors.KindInternal, "release of unknown receipt handle")
	}
	delete(b.inFlight, msg.ReceiptHandle)
	b.pending = append(b.pending, msg)
	b.cond.Broadcast()
	return nil
}

// Close unblocks any pending Receive calls; used by tests to shut down a
// worker pool cleanly.
func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}

// Len returns the number of messages currently pending (test introspection).
func (b *InMemoryBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

var _ EventBus = (*InMemoryBus)(nil)
