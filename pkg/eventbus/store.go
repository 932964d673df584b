// Package eventbus defines the EventBus capability (C3, spec §4.3): typed
// publish with bounded retry, and the consumption side an orchestrator
// worker pool polls to dispatch events to stage handlers. Events are not
// deduplicated by the bus; handlers must tolerate redelivery (spec §5).
package eventbus

import (
	"context"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/events"
)

// Message wraps a received Envelope with the handle needed to acknowledge
// or release it. ReceiptHandle is opaque to callers; it is passed back to
// Ack/Release verbatim.
type Message struct {
	Envelope      events.Envelope
	ReceiptHandle string
}

// EventBus is the capability interface C3 exposes. Publish performs up to
// N_publish attempts with exponential backoff before raising
// apperrors.KindTransient (spec §4.3). Receive is long-polling: it blocks
// until at least one message is available, ctx is cancelled, or
// maxMessages is reached.
//
// A handler that processes a Message successfully MUST call Ack; a
// handler that hits apperrors.KindTransient MUST call Release so the bus
// redelivers it (spec §5 "at-least-once semantics"). Acking a Permanent
// failure (after marking the relevant record FAILED) is correct — it
// stops redelivery of work that cannot succeed.
type EventBus interface {
	Publish(ctx context.Context, envelope events.Envelope) error
	Receive(ctx context.Context, maxMessages int) ([]Message, error)
	Ack(ctx context.Context, msg Message) error
	Release(ctx context.Context, msg Message) error
}
