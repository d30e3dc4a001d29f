// Package notify is the process-wide notification channel: a single slot of
// transient success/error feedback consumed by the UI layer. A new
// notification always replaces the current one; there is no queue.
package notify

import (
	"sync"
	"time"
)

// Severity classifies a notification for display.
type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
	Info    Severity = "info"
	Warning Severity = "warning"
)

// DefaultTTL is how long a notification stays visible before auto-dismissal.
const DefaultTTL = 6 * time.Second

// Notification is the current content of the slot.
type Notification struct {
	Message  string
	Severity Severity
	Visible  bool
}

// Notifier holds the single notification slot. The zero value is not usable;
// construct with New.
type Notifier struct {
	mu      sync.Mutex
	current Notification
	ttl     time.Duration
	timer   *time.Timer
	// gen ties each auto-dismiss timer to the notification it was armed for,
	// so a stale timer never dismisses a newer notification.
	gen   uint64
	watch chan struct{}
}

// New creates a notifier. A non-positive ttl selects DefaultTTL.
func New(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Notifier{
		ttl:   ttl,
		watch: make(chan struct{}, 1),
	}
}

// Show replaces the slot with a new notification and arms auto-dismissal.
func (n *Notifier) Show(message string, severity Severity) {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.gen++
	g := n.gen
	n.current = Notification{Message: message, Severity: severity, Visible: true}
	n.timer = time.AfterFunc(n.ttl, func() { n.dismissGen(g) })
	n.mu.Unlock()
	n.signal()
}

// Dismiss hides the current notification. Dismissing an empty slot is a
// no-op.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	changed := n.current.Visible
	n.current.Visible = false
	if n.timer != nil {
		n.timer.Stop()
	}
	n.mu.Unlock()
	if changed {
		n.signal()
	}
}

// dismissGen hides the slot only when it still holds generation g.
func (n *Notifier) dismissGen(g uint64) {
	n.mu.Lock()
	if n.gen != g || !n.current.Visible {
		n.mu.Unlock()
		return
	}
	n.current.Visible = false
	n.mu.Unlock()
	n.signal()
}

// Current returns a snapshot of the slot.
func (n *Notifier) Current() Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Watch returns a channel that receives a signal after every slot change.
// The channel is buffered with one slot; consumers re-read Current after
// each receive.
func (n *Notifier) Watch() <-chan struct{} {
	return n.watch
}

func (n *Notifier) signal() {
	select {
	case n.watch <- struct{}{}:
	default:
	}
}
