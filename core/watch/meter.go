package watch

import (
	"context"
	"sync"
	"time"

	"github.com/apiwada/portal/core"
	"github.com/apiwada/portal/core/course"
	"github.com/apiwada/portal/core/user"
)

const (
	// persistEveryTicks bounds persistence to one write per 30 seconds of
	// active playback (write-behind).
	persistEveryTicks = 30

	// graceMinutes is added to the nominal course length before a student is
	// locked out.
	graceMinutes = 60
)

// Allowance returns the maximum seconds a student may accumulate on a course:
// course length plus a one-hour grace buffer, in seconds.
func Allowance(crs course.Course) int {
	return (crs.DurationMinutes + graceMinutes) * 60
}

// Store persists accumulated watch seconds into the user document.
// user.Service satisfies it.
type Store interface {
	SetWatchTime(ctx context.Context, indexNumber, courseID string, seconds int) error
}

// Status is the playback gate state reported to clients.
type Status struct {
	Elapsed   int  `json:"elapsed"`
	Allowance int  `json:"allowance"`
	Remaining int  `json:"remaining"`
	Locked    bool `json:"locked"`
}

// Meter accumulates seconds of playback for one (student, course) pair.
// It is a wall-clock timer, not a player-position tracker: while playback is
// active it advances once per second regardless of what the video does.
type Meter struct {
	indexNumber string
	courseID    string
	allowance   int
	store       Store
	logger      core.Logger

	mu      sync.Mutex
	elapsed int
}

// NewMeter seeds the meter from the seconds already persisted on the user.
func NewMeter(usr user.User, crs course.Course, store Store, logger core.Logger) *Meter {
	return &Meter{
		indexNumber: usr.IndexNumber,
		courseID:    crs.ID,
		allowance:   Allowance(crs),
		store:       store,
		logger:      logger,
		elapsed:     usr.CourseWatchTime(crs.ID),
	}
}

func (m *Meter) Elapsed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.elapsed
}

func (m *Meter) AllowanceSeconds() int { return m.allowance }

// Expired reports whether the student has consumed the whole allowance.
func (m *Meter) Expired() bool { return m.Elapsed() >= m.allowance }

func (m *Meter) Status() Status {
	elapsed := m.Elapsed()
	remaining := m.allowance - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Elapsed:   elapsed,
		Allowance: m.allowance,
		Remaining: remaining,
		Locked:    elapsed >= m.allowance,
	}
}

// Tick advances the meter by one second of playback. Once the allowance is
// reached the meter stops advancing and never writes again. Every 30th
// accumulated second is persisted; a failed write is logged and metering
// continues.
func (m *Meter) Tick(ctx context.Context) {
	m.mu.Lock()
	if m.elapsed >= m.allowance {
		m.mu.Unlock()
		return
	}
	m.elapsed++
	elapsed := m.elapsed
	m.mu.Unlock()

	if elapsed%persistEveryTicks == 0 {
		if err := m.store.SetWatchTime(ctx, m.indexNumber, m.courseID, elapsed); err != nil {
			m.logger.Warn("persisting watch time", err)
		}
	}
}

// Run ticks the meter once per wall-clock second until ctx is cancelled or the
// allowance is exhausted. The expiry check runs before the first tick so a
// session that loads already over-allowance never ticks nor writes.
func (m *Meter) Run(ctx context.Context) {
	if m.Expired() {
		return
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick(ctx)
			if m.Expired() {
				return
			}
		}
	}
}
