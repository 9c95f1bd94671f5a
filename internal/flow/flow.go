// Package flow sequences the approve-then-submit pattern ERC20 spending needs: an
// allowance transaction has to be confirmed before the spending one is sent.
package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type State int

const (
	Idle State = iota
	Approving
	Approved
	Submitting
	Confirmed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Approving:
		return "approving"
	case Approved:
		return "approved"
	case Submitting:
		return "submitting"
	case Confirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrNotApproved = errors.New("approval required before submitting")
	ErrBusy        = errors.New("another step is in progress")
	ErrVoided      = errors.New("step was voided by a reset")
)

// Machine is one approve/submit round. Failures drop it back to Idle with the error kept
// for display; nothing is retried. A Reset while a step is running voids that step: its
// outcome is dropped and the machine stays Idle.
type Machine struct {
	mu      sync.RWMutex
	state   State
	lastErr error
	epoch   uint64
}

func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Machine) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Approve runs fn from Idle and moves to Approved when it succeeds.
func (m *Machine) Approve(ctx context.Context, fn func(context.Context) error) error {
	epoch, err := m.enter(Idle, Approving, ErrBusy)
	if err != nil {
		return err
	}
	return m.finish(epoch, fn(ctx), Approved)
}

// Submit runs fn from Approved and moves to Confirmed when it succeeds. Without a
// confirmed approval fn is not called.
func (m *Machine) Submit(ctx context.Context, fn func(context.Context) error) error {
	epoch, err := m.enter(Approved, Submitting, ErrNotApproved)
	if err != nil {
		return err
	}
	return m.finish(epoch, fn(ctx), Confirmed)
}

func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Idle
	m.lastErr = nil
	m.epoch++
}

func (m *Machine) enter(from, to State, notFrom error) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != from {
		return 0, fmt.Errorf("%w (state %s)", notFrom, m.state)
	}
	m.state = to
	m.lastErr = nil
	return m.epoch, nil
}

func (m *Machine) finish(epoch uint64, err error, next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		return ErrVoided
	}
	if err != nil {
		m.state = Idle
		m.lastErr = err
		return err
	}
	m.state = next
	return nil
}
