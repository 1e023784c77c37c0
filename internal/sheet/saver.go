package sheet

import (
	"context"
	"sync"
	"time"
)

type SaveState string

const (
	Idle     SaveState = "idle"
	InFlight SaveState = "in_flight"
)

// SaveStatus is what a view reports about the remote copy of a sheet.
type SaveStatus struct {
	State       SaveState  `json:"state"`
	Pending     bool       `json:"pending"`
	LastError   string     `json:"lastError,omitempty"`
	LastSavedAt *time.Time `json:"lastSavedAt,omitempty"`
}

// Saver runs remote saves one at a time. A request made while a save is in
// flight marks the sheet dirty, and every dirty mark collapses into a single
// follow-up save once the current one ends.
type Saver struct {
	save    func(ctx context.Context) error
	timeout time.Duration
	now     func() time.Time

	mu          sync.Mutex
	state       SaveState
	dirty       bool
	lastErr     error
	lastSavedAt time.Time
	wg          sync.WaitGroup
}

func NewSaver(save func(ctx context.Context) error, timeout time.Duration) *Saver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Saver{save: save, timeout: timeout, now: time.Now, state: Idle}
}

// Request schedules a save and returns immediately.
func (s *Saver) Request() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == InFlight {
		s.dirty = true
		return
	}
	s.state = InFlight
	s.wg.Add(1)
	go s.run()
}

func (s *Saver) run() {
	defer s.wg.Done()
	for {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		err := s.save(ctx)
		cancel()

		s.mu.Lock()
		s.lastErr = err
		if err == nil {
			s.lastSavedAt = s.now()
		}
		if !s.dirty {
			s.state = Idle
			s.mu.Unlock()
			return
		}
		s.dirty = false
		s.mu.Unlock()
	}
}

func (s *Saver) Status() SaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := SaveStatus{State: s.state, Pending: s.dirty}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	if !s.lastSavedAt.IsZero() {
		at := s.lastSavedAt
		status.LastSavedAt = &at
	}
	return status
}

// Wait blocks until no save is running.
func (s *Saver) Wait() {
	s.wg.Wait()
}
