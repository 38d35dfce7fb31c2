package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udaysagarm/GentAI/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return log
}

// stubDispatcher records every description it receives. If block is set,
// Dispatch waits on it before returning.
type stubDispatcher struct {
	mu    sync.Mutex
	calls []string
	block chan struct{}
	err   error
}

func (d *stubDispatcher) Dispatch(ctx context.Context, description string) (string, error) {
	d.mu.Lock()
	d.calls = append(d.calls, description)
	block := d.block
	d.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "done", d.err
}

func (d *stubDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func (d *stubDispatcher) lastCall() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.calls) == 0 {
		return ""
	}
	return d.calls[len(d.calls)-1]
}

func newTestEngine(t *testing.T, d Dispatcher) (*Engine, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := New(store, d, testLogger(t), nil, Config{
		Tick:        50 * time.Millisecond,
		FireTimeout: 5 * time.Second,
	})
	return engine, path
}

func TestEngine_ScheduleAndList(t *testing.T) {
	engine, _ := newTestEngine(t, &stubDispatcher{})
	ctx := context.Background()

	id, err := engine.Schedule(ctx, "check the inbox", "interval", "hours=2")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	tasks := engine.List()
	require.Len(t, tasks, 1)
	assert.Equal(t, id, tasks[0].ID)
	assert.Equal(t, "check the inbox", tasks[0].Description)
	assert.Equal(t, "interval(hours=2)", tasks[0].Trigger)

	// First run is one period out.
	wantNext := time.Now().Add(2 * time.Hour)
	assert.WithinDuration(t, wantNext, tasks[0].NextRun, 5*time.Second)
}

func TestEngine_ScheduleInvalidTrigger(t *testing.T) {
	engine, _ := newTestEngine(t, &stubDispatcher{})

	_, err := engine.Schedule(context.Background(), "whatever", "interval", "hrs=2")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTriggerSpec)
	assert.Empty(t, engine.List())
}

func TestEngine_CancelUnknownTask(t *testing.T) {
	engine, _ := newTestEngine(t, &stubDispatcher{})

	err := engine.Cancel(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestEngine_Cancel(t *testing.T) {
	engine, _ := newTestEngine(t, &stubDispatcher{})
	ctx := context.Background()

	id, err := engine.Schedule(ctx, "task", "interval", "minutes=5")
	require.NoError(t, err)

	require.NoError(t, engine.Cancel(ctx, id))
	assert.Empty(t, engine.List())

	// Cancelling twice reports not found.
	assert.ErrorIs(t, engine.Cancel(ctx, id), ErrTaskNotFound)
}

func TestEngine_OverdueDateFiresOnceAndIsRemoved(t *testing.T) {
	dispatcher := &stubDispatcher{}
	engine, _ := newTestEngine(t, dispatcher)
	ctx := context.Background()

	_, err := engine.Schedule(ctx, "wish Sam a happy birthday", "date", "2020-01-01 09:00:00")
	require.NoError(t, err)

	engine.checkDue(ctx, time.Now())

	assert.Eventually(t, func() bool {
		return dispatcher.callCount() == 1 && len(engine.List()) == 0
	}, 2*time.Second, 10*time.Millisecond)

	// The description arrives verbatim.
	assert.Equal(t, "wish Sam a happy birthday", dispatcher.lastCall())

	// A later check does not fire the removed task again.
	engine.checkDue(ctx, time.Now().Add(time.Hour))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, dispatcher.callCount())
}

func TestEngine_IntervalReschedulesAfterFire(t *testing.T) {
	dispatcher := &stubDispatcher{}
	engine, _ := newTestEngine(t, dispatcher)
	ctx := context.Background()

	id, err := engine.Schedule(ctx, "poll", "interval", "seconds=30")
	require.NoError(t, err)

	// Force the task due.
	engine.checkDue(ctx, time.Now().Add(time.Minute))

	assert.Eventually(t, func() bool {
		return dispatcher.callCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		tasks := engine.List()
		return len(tasks) == 1 && tasks[0].NextRun.After(time.Now())
	}, 2*time.Second, 10*time.Millisecond)

	tasks := engine.List()
	assert.Equal(t, id, tasks[0].ID)
	assert.WithinDuration(t, time.Now().Add(30*time.Second), tasks[0].NextRun, 5*time.Second)
}

func TestEngine_NoDoubleFireWhileRunning(t *testing.T) {
	block := make(chan struct{})
	dispatcher := &stubDispatcher{block: block}
	engine, _ := newTestEngine(t, dispatcher)
	ctx := context.Background()

	_, err := engine.Schedule(ctx, "slow task", "interval", "seconds=1")
	require.NoError(t, err)

	due := time.Now().Add(time.Minute)
	engine.checkDue(ctx, due)

	assert.Eventually(t, func() bool {
		return dispatcher.callCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The nominal next time has long passed, but the first run still holds
	// the slot.
	engine.checkDue(ctx, due.Add(time.Minute))
	engine.checkDue(ctx, due.Add(2*time.Minute))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, dispatcher.callCount())

	close(block)
	engine.Stop()
	assert.Equal(t, 1, dispatcher.callCount())
}

func TestEngine_CancelDuringFire(t *testing.T) {
	block := make(chan struct{})
	dispatcher := &stubDispatcher{block: block}
	engine, _ := newTestEngine(t, dispatcher)
	ctx := context.Background()

	id, err := engine.Schedule(ctx, "long running", "interval", "seconds=1")
	require.NoError(t, err)

	engine.checkDue(ctx, time.Now().Add(time.Minute))
	assert.Eventually(t, func() bool {
		return dispatcher.callCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Cancel while the run is in flight; the run completes but the task is
	// gone afterwards.
	require.NoError(t, engine.Cancel(ctx, id))
	close(block)
	engine.Stop()

	assert.Empty(t, engine.List())
	assert.Equal(t, 1, dispatcher.callCount())
}

func TestEngine_RestartRecoversTasks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	ctx := context.Background()

	store, err := OpenStore(path)
	require.NoError(t, err)
	engine := New(store, &stubDispatcher{}, testLogger(t), nil, Config{})

	id, err := engine.Schedule(ctx, "survives restarts", "cron", "hour=8,minute=30")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := OpenStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	restarted := New(reopened, &stubDispatcher{}, testLogger(t), nil, Config{})
	require.NoError(t, restarted.Load(ctx))

	tasks := restarted.List()
	require.Len(t, tasks, 1)
	assert.Equal(t, id, tasks[0].ID)
	assert.Equal(t, "survives restarts", tasks[0].Description)
	assert.Equal(t, "cron(hour=8,minute=30)", tasks[0].Trigger)
}

func TestEngine_OverdueAtRestartFiresOnFirstCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	ctx := context.Background()

	store, err := OpenStore(path)
	require.NoError(t, err)
	engine := New(store, &stubDispatcher{}, testLogger(t), nil, Config{})

	_, err = engine.Schedule(ctx, "missed while down", "date", "2020-06-01 12:00:00")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := OpenStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	dispatcher := &stubDispatcher{}
	restarted := New(reopened, dispatcher, testLogger(t), nil, Config{})
	require.NoError(t, restarted.Load(ctx))

	restarted.checkDue(ctx, time.Now())
	assert.Eventually(t, func() bool {
		return dispatcher.callCount() == 1 && len(restarted.List()) == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "missed while down", dispatcher.lastCall())
}

func TestEngine_MaxTasks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	engine := New(store, &stubDispatcher{}, testLogger(t), nil, Config{MaxTasks: 1})
	ctx := context.Background()

	_, err = engine.Schedule(ctx, "first", "interval", "hours=1")
	require.NoError(t, err)

	_, err = engine.Schedule(ctx, "second", "interval", "hours=1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task limit")
}

func TestEngine_StopDrainsInFlightFire(t *testing.T) {
	block := make(chan struct{})
	dispatcher := &stubDispatcher{block: block}
	engine, _ := newTestEngine(t, dispatcher)
	ctx := context.Background()

	_, err := engine.Schedule(ctx, "slow but must finish", "interval", "seconds=30")
	require.NoError(t, err)

	engine.checkDue(ctx, time.Now().Add(time.Minute))
	assert.Eventually(t, func() bool {
		return dispatcher.callCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Release the dispatcher only after Stop has begun waiting.
	go func() {
		time.Sleep(100 * time.Millisecond)
		close(block)
	}()
	engine.Stop()

	// The run completed and was rescheduled, not aborted.
	assert.Equal(t, 1, dispatcher.callCount())
	tasks := engine.List()
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].NextRun.After(time.Now()))
}

func TestEngine_StartStop(t *testing.T) {
	dispatcher := &stubDispatcher{}
	engine, _ := newTestEngine(t, dispatcher)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := engine.Schedule(ctx, "tick tick", "date", "2020-01-01 00:00:00")
	require.NoError(t, err)

	engine.Start(ctx)
	assert.Eventually(t, func() bool {
		return dispatcher.callCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	engine.Stop()
}
