package auth

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultRefreshInterval fires comfortably before the 15 minute access token
// expiry, leaving room for clock skew and request latency.
const DefaultRefreshInterval = 13 * time.Minute

// SchedulerState is the lifecycle state of a Scheduler.
type SchedulerState int

const (
	StateIdle SchedulerState = iota
	StateScheduled
	StateRefreshing
)

func (s SchedulerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// Scheduler refreshes the access token on a timer. At most one timer is
// pending; Arm always replaces the previous one.
type Scheduler struct {
	interval time.Duration
	refresh  func(ctx context.Context) error

	mu    sync.Mutex
	state SchedulerState
	timer *time.Timer
	// epoch invalidates timers and refreshes started before the latest Arm or Stop.
	epoch uint64
}

// NewScheduler creates an idle scheduler. A non-positive interval uses
// DefaultRefreshInterval.
func NewScheduler(interval time.Duration, refresh func(ctx context.Context) error) *Scheduler {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Scheduler{interval: interval, refresh: refresh}
}

// Arm cancels any pending timer and schedules a refresh one interval from now.
func (s *Scheduler) Arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armLocked()
}

func (s *Scheduler) armLocked() {
	s.cancelLocked()

	epoch := s.epoch
	s.timer = time.AfterFunc(s.interval, func() { s.fire(epoch) })
	s.state = StateScheduled

	log.Debug().Dur("in", s.interval).Msg("token refresh scheduled")
}

// Stop cancels any pending timer unconditionally. A refresh already running
// completes but does not re-arm.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.state = StateIdle
}

// State returns the current state.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) cancelLocked() {
	s.epoch++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) fire(epoch uint64) {
	s.mu.Lock()
	if epoch != s.epoch {
		// replaced or stopped after the timer already fired
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.state = StateRefreshing
	s.mu.Unlock()

	err := s.refresh(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return
	}

	if err != nil {
		log.Error().Err(err).Msg("scheduled token refresh failed")
		s.state = StateIdle
		return
	}

	s.armLocked()
}
