package watch

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apiwada/portal/core/course"
	"github.com/apiwada/portal/core/user"
)

type recordingStore struct {
	mu     sync.Mutex
	writes []int
	fail   bool
}

type failedWrite struct{}

func (failedWrite) Error() string { return "store down" }

func (s *recordingStore) SetWatchTime(_ context.Context, _, _ string, seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return failedWrite{}
	}
	s.writes = append(s.writes, seconds)
	return nil
}

func (s *recordingStore) recorded() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.writes))
	copy(out, s.writes)
	return out
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func testCourse(durationMinutes int) course.Course {
	return course.Course{ID: "crs1", Title: "Mechanics", DurationMinutes: durationMinutes}
}

func testUser(watched int) user.User {
	usr := user.User{IndexNumber: "8374001", Name: "Test Student", WatchTime: map[string]int{}}
	if watched > 0 {
		usr.WatchTime["crs1"] = watched
	}
	return usr
}

func Test_Allowance(t *testing.T) {
	assert.Equal(t, 7200, Allowance(testCourse(60)))
	assert.Equal(t, 3600, Allowance(testCourse(0)))
}

func Test_Meter_Tick_lockExactlyAtAllowance(t *testing.T) {
	store := new(recordingStore)
	m := NewMeter(testUser(0), testCourse(60), store, nopLogger{})
	ctx := context.Background()

	for i := 0; i < 7199; i++ {
		m.Tick(ctx)
	}
	st := m.Status()
	assert.Equal(t, 7199, st.Elapsed)
	assert.Equal(t, 1, st.Remaining)
	assert.False(t, st.Locked)

	m.Tick(ctx)
	st = m.Status()
	assert.Equal(t, 7200, st.Elapsed)
	assert.Equal(t, 0, st.Remaining)
	assert.True(t, st.Locked)

	// further ticks neither advance nor write
	writes := len(store.recorded())
	m.Tick(ctx)
	m.Tick(ctx)
	assert.Equal(t, 7200, m.Elapsed())
	assert.Len(t, store.recorded(), writes)
}

func Test_Meter_Tick_persistsEvery30Seconds(t *testing.T) {
	store := new(recordingStore)
	m := NewMeter(testUser(0), testCourse(60), store, nopLogger{})
	ctx := context.Background()

	for i := 0; i < 90; i++ {
		m.Tick(ctx)
	}
	assert.Equal(t, []int{30, 60, 90}, store.recorded())
}

func Test_Meter_Tick_failedWriteKeepsMetering(t *testing.T) {
	store := &recordingStore{fail: true}
	m := NewMeter(testUser(0), testCourse(60), store, nopLogger{})
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		m.Tick(ctx)
	}
	assert.Equal(t, 60, m.Elapsed())
	assert.Empty(t, store.recorded())
}

func Test_Meter_seededOverAllowance(t *testing.T) {
	store := new(recordingStore)
	m := NewMeter(testUser(7300), testCourse(60), store, nopLogger{})

	assert.True(t, m.Expired())
	st := m.Status()
	assert.Equal(t, 7300, st.Elapsed)
	assert.Equal(t, 0, st.Remaining)
	assert.True(t, st.Locked)

	// Run must return without ticking or writing
	m.Run(context.Background())
	assert.Equal(t, 7300, m.Elapsed())
	assert.Empty(t, store.recorded())
}

func Test_Manager_Start_expiredSessionNeverStarts(t *testing.T) {
	store := new(recordingStore)
	mgr := NewManager(store, nopLogger{})

	st := mgr.Start(context.Background(), testUser(7200), testCourse(60))
	assert.True(t, st.Locked)

	// no session was registered; Stop is a no-op
	mgr.Stop("8374001", "crs1")
	st = mgr.Status(testUser(7200), testCourse(60))
	assert.True(t, st.Locked)
}

func Test_Manager_Status_fallsBackToPersistedValue(t *testing.T) {
	store := new(recordingStore)
	mgr := NewManager(store, nopLogger{})

	st := mgr.Status(testUser(150), testCourse(60))
	assert.Equal(t, 150, st.Elapsed)
	assert.Equal(t, 7050, st.Remaining)
	assert.False(t, st.Locked)
}

func Test_Manager_Start_secondStartReturnsRunningSession(t *testing.T) {
	store := new(recordingStore)
	mgr := NewManager(store, nopLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := mgr.Start(ctx, testUser(0), testCourse(60))
	second := mgr.Start(ctx, testUser(0), testCourse(60))
	assert.Equal(t, first.Allowance, second.Allowance)
	assert.False(t, second.Locked)

	mgr.StopAll()
}
