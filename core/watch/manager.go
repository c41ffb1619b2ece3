package watch

import (
	"context"
	"sync"

	"github.com/apiwada/portal/core"
	"github.com/apiwada/portal/core/course"
	"github.com/apiwada/portal/core/user"
)

// Manager owns the running meters, one per (student, course) playback session.
// Starting an already-running session is a no-op; the session keeps ticking
// until stopped, expired, or the manager context is cancelled.
type Manager struct {
	store  Store
	logger core.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	meter  *Meter
	cancel context.CancelFunc
}

func NewManager(store Store, logger core.Logger) *Manager {
	return &Manager{
		store:    store,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

func sessionKey(indexNumber, courseID string) string {
	return indexNumber + "/" + courseID
}

// Start begins (or resumes reporting on) playback metering. A session that is
// already over its allowance is reported locked without starting a timer.
func (mgr *Manager) Start(ctx context.Context, usr user.User, crs course.Course) Status {
	key := sessionKey(usr.IndexNumber, crs.ID)

	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if sess, ok := mgr.sessions[key]; ok {
		return sess.meter.Status()
	}

	meter := NewMeter(usr, crs, mgr.store, mgr.logger)
	if meter.Expired() {
		return meter.Status()
	}

	runCtx, cancel := context.WithCancel(ctx)
	mgr.sessions[key] = &session{meter: meter, cancel: cancel}
	go func() {
		meter.Run(runCtx)
		cancel()
		mgr.mu.Lock()
		if sess, ok := mgr.sessions[key]; ok && sess.meter == meter {
			delete(mgr.sessions, key)
		}
		mgr.mu.Unlock()
	}()
	return meter.Status()
}

// Stop halts metering for the session, if running.
func (mgr *Manager) Stop(indexNumber, courseID string) {
	key := sessionKey(indexNumber, courseID)

	mgr.mu.Lock()
	sess, ok := mgr.sessions[key]
	if ok {
		delete(mgr.sessions, key)
	}
	mgr.mu.Unlock()

	if ok {
		sess.cancel()
	}
}

// Status reports the gate state: from the running meter when one exists,
// otherwise derived from the seconds persisted on the user document.
func (mgr *Manager) Status(usr user.User, crs course.Course) Status {
	key := sessionKey(usr.IndexNumber, crs.ID)

	mgr.mu.Lock()
	sess, ok := mgr.sessions[key]
	mgr.mu.Unlock()

	if ok {
		return sess.meter.Status()
	}
	return NewMeter(usr, crs, mgr.store, mgr.logger).Status()
}

// StopAll cancels every running session; used on server shutdown.
func (mgr *Manager) StopAll() {
	mgr.mu.Lock()
	sessions := mgr.sessions
	mgr.sessions = make(map[string]*session)
	mgr.mu.Unlock()

	for _, sess := range sessions {
		sess.cancel()
	}
}
