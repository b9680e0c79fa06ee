// Package notify delivers trade events to external channels (Telegram,
// Discord). Operators choose which event kinds reach them; everything else
// stays in the log only.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/seojun-lab/kistrader/internal/domain"
)

// Sender is one delivery channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier fans trade events out to the registered senders, filtered by
// event kind. With no kinds configured, every event is forwarded.
type Notifier struct {
	senders []Sender
	kinds   map[domain.EventKind]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. kinds
// lists the event kinds to forward; empty means all.
func NewNotifier(senders []Sender, kinds []string, logger *slog.Logger) *Notifier {
	allowed := make(map[domain.EventKind]bool, len(kinds))
	for _, k := range kinds {
		allowed[domain.EventKind(strings.TrimSpace(k))] = true
	}
	return &Notifier{
		senders: senders,
		kinds:   allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// NotifyEvent formats and dispatches a trade event if its kind is allowed.
func (n *Notifier) NotifyEvent(ctx context.Context, event domain.TradeEvent) error {
	if len(n.kinds) > 0 && !n.kinds[event.Kind] {
		return nil
	}

	title := fmt.Sprintf("[%s] %s", event.Kind, event.Symbol)
	var b strings.Builder
	b.WriteString(event.Message)
	if event.Side != "" {
		fmt.Fprintf(&b, "\nside: %s", event.Side)
	}
	if event.Price > 0 {
		fmt.Fprintf(&b, "\nprice: %.2f", event.Price)
	}
	fmt.Fprintf(&b, "\ntime: %s", event.Time.Format("2006-01-02 15:04:05 MST"))

	return n.dispatch(ctx, title, b.String())
}

// NotifyAll sends a notification to all senders regardless of event kind.
// Startup and shutdown announcements use this.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

// dispatch delivers to every sender; one channel failing does not stop the
// others. Failures come back as a combined error.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
