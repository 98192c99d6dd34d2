package notify

import (
	"context"
	"log/slog"
)

// Notifier fans detected events out to the configured platform adapters.
// Delivery failures are logged and skipped; one broken platform never stops
// the others.
type Notifier struct {
	adapters []Adapter
	logger   *slog.Logger
}

// NewNotifier creates a Notifier over the given adapters.
func NewNotifier(adapters []Adapter, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{adapters: adapters, logger: logger}
}

// Deliver formats one event and sends it to every adapter.
func (n *Notifier) Deliver(ctx context.Context, event Event) {
	formatted := Format(event)
	msg := OutboundMessage{
		Text:   formatted.Title,
		Events: []FormattedEvent{formatted},
	}
	for _, a := range n.adapters {
		if err := a.Send(ctx, msg); err != nil {
			n.logger.Warn("notification delivery failed", "type", event.Type, "error", err)
		}
	}
}

// Run consumes events until the channel closes or the context is cancelled.
func (n *Notifier) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			n.Deliver(ctx, event)
		}
	}
}

// Close shuts down every adapter.
func (n *Notifier) Close() {
	for _, a := range n.adapters {
		if err := a.Close(); err != nil {
			n.logger.Warn("adapter close failed", "error", err)
		}
	}
}
