package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
)

// Calculation states of one departure.
const (
	StateIdle        = "idle"
	StateCalculating = "calculating"
	StateResolved    = "resolved"
	StateFailed      = "failed"
)

// Calculation events.
const (
	EventStart   = "start"
	EventResolve = "resolve"
	EventFail    = "fail"
)

// calcMachine tracks the calculation lifecycle of a single departure.
// A departure re-enters calculating only from a settled state, which is what
// keeps at most one request in flight per departure.
type calcMachine struct {
	mu          sync.RWMutex
	departureID string
	fsm         *fsm.FSM
	since       time.Time
	onChange    func(departureID, from, to string)
}

func newCalcMachine(departureID, initialState string, onChange func(departureID, from, to string)) *calcMachine {
	if initialState == "" {
		initialState = StateIdle
	}

	m := &calcMachine{
		departureID: departureID,
		since:       time.Now(),
		onChange:    onChange,
	}

	m.fsm = fsm.NewFSM(
		initialState,
		fsm.Events{
			{Name: EventStart, Src: []string{StateIdle, StateResolved, StateFailed}, Dst: StateCalculating},
			{Name: EventResolve, Src: []string{StateCalculating}, Dst: StateResolved},
			{Name: EventFail, Src: []string{StateCalculating}, Dst: StateFailed},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if m.onChange != nil && e.Src != e.Dst {
					m.onChange(m.departureID, e.Src, e.Dst)
				}
			},
		},
	)

	return m
}

func (m *calcMachine) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Current()
}

// Since returns the time of the last transition.
func (m *calcMachine) Since() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.since
}

func (m *calcMachine) Trigger(event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fsm.Event(context.Background(), event); err != nil {
		return fmt.Errorf("trigger event %s: %w", event, err)
	}

	m.since = time.Now()
	return nil
}

func (m *calcMachine) Can(event string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Can(event)
}
