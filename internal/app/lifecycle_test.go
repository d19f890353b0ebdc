package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/livestream/internal/domain"
	"github.com/bft-labs/livestream/internal/ports"
)

type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

type mockEmitter struct {
	mu     sync.Mutex
	events []string
}

func (m *mockEmitter) OnStateChange(previous, current State, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, previous.String()+"->"+current.String())
}

func (m *mockEmitter) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}

func TestLifecycle_TransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		wantErr error
	}{
		{"stopped to starting", StateStopped, StateStarting, nil},
		{"starting to running", StateStarting, StateRunning, nil},
		{"stop while starting", StateStarting, StateStopping, nil},
		{"encoder failed while starting", StateStarting, StateCrashed, nil},
		{"http server failed", StateRunning, StateCrashed, nil},
		{"stop after crash", StateCrashed, StateStopping, nil},
		{"restart after crash", StateCrashed, StateStarting, nil},
		{"shutdown timeout", StateStopping, StateCrashed, nil},
		{"stopped to running", StateStopped, StateRunning, domain.ErrNotRunning},
		{"stopped to stopping", StateStopped, StateStopping, domain.ErrNotRunning},
		{"crashed to running", StateCrashed, StateRunning, domain.ErrNotRunning},
		{"crashed to stopped", StateCrashed, StateStopped, domain.ErrNotRunning},
		{"start while running", StateRunning, StateStarting, domain.ErrAlreadyRunning},
		{"start while stopping", StateStopping, StateStarting, domain.ErrAlreadyRunning},
		{"starting to stopped", StateStarting, StateStopped, domain.ErrAlreadyRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLifecycle(mockLogger{}, nil)
			l.state = tt.from

			err := l.TransitionTo(tt.to, "test")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("TransitionTo(%v) = %v, want %v", tt.to, err, tt.wantErr)
			}

			want := tt.to
			if tt.wantErr != nil {
				want = tt.from
			}
			if l.State() != want {
				t.Errorf("state = %v, want %v", l.State(), want)
			}
		})
	}
}

func TestLifecycle_CanStartCanStop(t *testing.T) {
	tests := []struct {
		state     State
		wantStart bool
		wantStop  bool
	}{
		{StateStopped, true, false},
		{StateStarting, false, true},
		{StateRunning, false, true},
		{StateStopping, false, false},
		{StateCrashed, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			l := NewLifecycle(mockLogger{}, nil)
			l.state = tt.state

			if got := l.CanStart(); got != tt.wantStart {
				t.Errorf("CanStart() = %v, want %v", got, tt.wantStart)
			}
			if got := l.CanStop(); got != tt.wantStop {
				t.Errorf("CanStop() = %v, want %v", got, tt.wantStop)
			}
		})
	}
}

func TestLifecycle_CrashStopRestart(t *testing.T) {
	emitter := &mockEmitter{}
	l := NewLifecycle(mockLogger{}, emitter)

	for _, s := range []State{StateStarting, StateRunning, StateCrashed, StateStopping, StateStopped, StateStarting, StateRunning} {
		if err := l.TransitionTo(s, "test"); err != nil {
			t.Fatalf("TransitionTo(%v) = %v", s, err)
		}
	}

	want := []string{
		"Stopped->Starting",
		"Starting->Running",
		"Running->Crashed",
		"Crashed->Stopping",
		"Stopping->Stopped",
		"Stopped->Starting",
		"Starting->Running",
	}
	got := emitter.Events()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestLifecycle_Cancel(t *testing.T) {
	l := NewLifecycle(mockLogger{}, nil)
	l.Cancel() // nothing to cancel yet

	ctx, cancel := context.WithCancel(context.Background())
	l.SetCancel(cancel)
	l.Cancel()

	select {
	case <-ctx.Done():
	default:
		t.Error("context not canceled by Cancel()")
	}
}

func TestLifecycle_Go_TracksWorkers(t *testing.T) {
	l := NewLifecycle(mockLogger{}, nil)

	release := make(chan struct{})
	for i := 0; i < 3; i++ {
		l.Go(func() { <-release })
	}

	if err := l.WaitWithTimeout(10 * time.Millisecond); !errors.Is(err, domain.ErrShutdownTimeout) {
		t.Fatalf("WaitWithTimeout() with blocked workers = %v, want ErrShutdownTimeout", err)
	}

	close(release)
	if err := l.WaitWithTimeout(time.Second); err != nil {
		t.Errorf("WaitWithTimeout() after release = %v, want nil", err)
	}
}

func TestState_String(t *testing.T) {
	if got := State(99).String(); got != "Unknown" {
		t.Errorf("State(99).String() = %q, want Unknown", got)
	}
	if got := StateCrashed.String(); got != "Crashed" {
		t.Errorf("StateCrashed.String() = %q", got)
	}
}
