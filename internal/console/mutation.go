package console

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tambolaadmin/internal/api"
	"tambolaadmin/internal/logger"
	"tambolaadmin/internal/notify"
)

// Refresher re-issues the owning list's fetch so displayed data matches the
// server after a mutation.
type Refresher interface {
	Refresh()
}

// Op is one pending mutation against the platform. Validate runs before any
// network activity; a validation failure never reaches the wire.
type Op struct {
	// Name identifies the operation in log lines.
	Name string
	// Validate checks local preconditions. Optional.
	Validate func() error
	// Do performs the remote call and returns the server's message.
	Do func(ctx context.Context) (string, error)
	// Success is shown when the server sends no message of its own.
	Success string
	// Failure is shown for failures that carry no server message.
	Failure string
}

// ErrInFlight is returned when a submission is attempted while another is
// still running.
var ErrInFlight = errors.New("a submission is already in flight")

// Mutator submits one mutation at a time, reports the outcome on the
// notification channel, and refreshes the owning list on success.
type Mutator struct {
	mu       sync.Mutex
	inFlight bool
	notifier *notify.Notifier
	owner    Refresher
}

// NewMutator creates a mutator. owner may be nil when no list needs
// refreshing after success.
func NewMutator(notifier *notify.Notifier, owner Refresher) *Mutator {
	return &Mutator{notifier: notifier, owner: owner}
}

// InFlight reports whether a submission is currently running. The UI uses
// this to disable the initiating control and prevent double submits.
func (m *Mutator) InFlight() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight
}

// Submit runs one mutation. The returned bool tells the caller whether the
// edit form should close: true on success, false on failure so the operator
// can correct the input and resubmit.
func (m *Mutator) Submit(ctx context.Context, op Op) (bool, error) {
	if op.Validate != nil {
		if err := op.Validate(); err != nil {
			m.notifier.Show(err.Error(), notify.Error)
			logger.Debug(0, "mutation_rejected", fmt.Sprintf("op=%s error=%v", op.Name, err))
			return false, err
		}
	}

	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		return false, ErrInFlight
	}
	m.inFlight = true
	m.mu.Unlock()

	msg, err := op.Do(ctx)

	m.mu.Lock()
	m.inFlight = false
	m.mu.Unlock()

	if err != nil {
		m.notifier.Show(api.Message(err, op.Failure), notify.Error)
		logger.Error(0, "mutation_failed", fmt.Sprintf("op=%s error=%v", op.Name, err))
		return false, err
	}

	if msg == "" {
		msg = op.Success
	}
	if msg == "" {
		msg = "Saved successfully"
	}
	m.notifier.Show(msg, notify.Success)
	if m.owner != nil {
		m.owner.Refresh()
	}
	logger.Debug(0, "mutation_applied", "op="+op.Name)
	return true, nil
}
