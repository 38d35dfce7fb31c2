package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/udaysagarm/GentAI/internal/logger"
	"github.com/udaysagarm/GentAI/internal/metrics"
)

// ErrTaskNotFound is returned when cancelling a task id that does not exist.
var ErrTaskNotFound = errors.New("task not found")

// Dispatcher executes a due task's description as if the user had typed it.
type Dispatcher interface {
	Dispatch(ctx context.Context, description string) (string, error)
}

// Config tunes the engine's tick loop.
type Config struct {
	// Tick is the polling period of the coordinating loop.
	Tick time.Duration
	// FireTimeout bounds a single task execution.
	FireTimeout time.Duration
	// MaxTasks caps the number of live tasks. Zero means unlimited.
	MaxTasks int
}

// TaskInfo is a task listing entry.
type TaskInfo struct {
	ID          string
	Description string
	Trigger     string
	NextRun     time.Time
}

// task is the in-memory mirror of a persisted record.
type task struct {
	id          string
	description string
	trigger     Trigger
	nextRun     time.Time
}

// Engine owns the task population and the single tick loop that fires due
// tasks. A task whose previous run is still executing is never fired again
// for the same tick; its next check waits for the run to complete.
type Engine struct {
	store      *Store
	dispatcher Dispatcher
	logger     *logger.Logger
	metrics    *metrics.Metrics
	cfg        Config
	now        func() time.Time

	mu       sync.Mutex
	tasks    map[string]*task
	inflight map[string]struct{}

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates an engine over the given store. The dispatcher may be set
// later with SetDispatcher, before Start.
func New(store *Store, dispatcher Dispatcher, log *logger.Logger, m *metrics.Metrics, cfg Config) *Engine {
	if cfg.Tick <= 0 {
		cfg.Tick = 15 * time.Second
	}
	if cfg.FireTimeout <= 0 {
		cfg.FireTimeout = 5 * time.Minute
	}
	return &Engine{
		store:      store,
		dispatcher: dispatcher,
		logger:     log,
		metrics:    m,
		cfg:        cfg,
		now:        time.Now,
		tasks:      make(map[string]*task),
		inflight:   make(map[string]struct{}),
		stopCh:     make(chan struct{}),
	}
}

// SetDispatcher wires the dispatcher. Must be called before Start when the
// engine was constructed without one.
func (e *Engine) SetDispatcher(d Dispatcher) {
	e.dispatcher = d
}

// Load restores the persisted task population. Overdue tasks keep their
// stored fire time and fire exactly once on the first tick. Rows whose
// trigger no longer parses are dropped with a warning.
func (e *Engine) Load(ctx context.Context) error {
	records, err := e.store.All(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range records {
		trigger, err := ParseTrigger(r.TriggerKind, r.TriggerVal)
		if err != nil {
			e.logger.Warn("Dropping task with unparseable trigger",
				logger.Field{Key: "task_id", Value: r.ID},
				logger.Field{Key: "error", Value: err.Error()})
			if _, err := e.store.Delete(ctx, r.ID); err != nil {
				e.logger.Error("Failed to drop task", err, logger.Field{Key: "task_id", Value: r.ID})
			}
			continue
		}
		e.tasks[r.ID] = &task{
			id:          r.ID,
			description: r.Description,
			trigger:     trigger,
			nextRun:     r.NextRunTime.Local(),
		}
	}

	e.metrics.SetActiveTasks(len(e.tasks))
	e.logger.Info("Task store loaded", logger.Field{Key: "tasks", Value: len(e.tasks)})
	return nil
}

// Schedule registers a new task and returns its id. A date trigger in the
// past is accepted; the task fires on the next tick.
func (e *Engine) Schedule(ctx context.Context, description, triggerType, timeValue string) (string, error) {
	trigger, err := ParseTrigger(triggerType, timeValue)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cfg.MaxTasks > 0 && len(e.tasks) >= e.cfg.MaxTasks {
		return "", fmt.Errorf("task limit reached (%d)", e.cfg.MaxTasks)
	}

	t := &task{
		id:          uuid.NewString(),
		description: description,
		trigger:     trigger,
		nextRun:     trigger.FirstRun(e.now()),
	}

	if err := e.store.Insert(ctx, Record{
		ID:          t.id,
		Description: t.description,
		TriggerKind: string(trigger.Kind),
		TriggerVal:  trigger.Value,
		NextRunTime: t.nextRun,
	}); err != nil {
		return "", err
	}

	e.tasks[t.id] = t
	e.metrics.SetActiveTasks(len(e.tasks))
	e.logger.InfoCtx(ctx, "Task scheduled",
		logger.Field{Key: "task_id", Value: t.id},
		logger.Field{Key: "trigger", Value: trigger.String()},
		logger.Field{Key: "next_run", Value: t.nextRun.Format(time.RFC3339)})
	return t.id, nil
}

// List returns the live tasks ordered by next fire time.
func (e *Engine) List() []TaskInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	infos := make([]TaskInfo, 0, len(e.tasks))
	for _, t := range e.tasks {
		infos = append(infos, TaskInfo{
			ID:          t.id,
			Description: t.description,
			Trigger:     t.trigger.String(),
			NextRun:     t.nextRun,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].NextRun.Equal(infos[j].NextRun) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].NextRun.Before(infos[j].NextRun)
	})
	return infos
}

// Cancel removes a task. If the task is mid-fire the current run completes
// but no further runs are scheduled.
func (e *Engine) Cancel(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	if _, err := e.store.Delete(ctx, id); err != nil {
		return err
	}

	delete(e.tasks, id)
	e.metrics.SetActiveTasks(len(e.tasks))
	e.logger.InfoCtx(ctx, "Task cancelled", logger.Field{Key: "task_id", Value: id})
	return nil
}

// Start launches the tick loop. It returns immediately; Stop shuts the loop
// down and waits for in-flight fires.
func (e *Engine) Start(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ticker := time.NewTicker(e.cfg.Tick)
		defer ticker.Stop()

		e.logger.Info("Scheduler started",
			logger.Field{Key: "tick", Value: e.cfg.Tick.String()})

		for {
			select {
			case <-ctx.Done():
				return
			case <-e.stopCh:
				return
			case <-ticker.C:
				e.checkDue(ctx, e.now())
			}
		}
	}()
}

// Stop halts the tick loop and waits for running fires to finish.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}

// checkDue fires every task whose next_run_time has arrived and which is
// not already executing.
func (e *Engine) checkDue(ctx context.Context, now time.Time) {
	e.mu.Lock()
	var due []*task
	for id, t := range e.tasks {
		if _, running := e.inflight[id]; running {
			continue
		}
		if !t.nextRun.After(now) {
			e.inflight[id] = struct{}{}
			due = append(due, t)
		}
	}
	e.mu.Unlock()

	for _, t := range due {
		e.wg.Add(1)
		go e.fire(ctx, t)
	}
}

// fire runs one due task through the dispatcher and reschedules it.
func (e *Engine) fire(ctx context.Context, t *task) {
	defer e.wg.Done()

	fireCtx, cancel := context.WithTimeout(ctx, e.cfg.FireTimeout)
	defer cancel()

	e.logger.InfoCtx(fireCtx, "Firing task",
		logger.Field{Key: "task_id", Value: t.id},
		logger.Field{Key: "description", Value: t.description})

	result, err := e.dispatcher.Dispatch(fireCtx, t.description)
	if err != nil {
		e.metrics.IncSchedulerFire("error")
		e.logger.ErrorCtx(fireCtx, "Task execution failed", err,
			logger.Field{Key: "task_id", Value: t.id})
	} else {
		e.metrics.IncSchedulerFire("ok")
		e.logger.InfoCtx(fireCtx, "Task executed",
			logger.Field{Key: "task_id", Value: t.id},
			logger.Field{Key: "result", Value: truncate(result, 200)})
	}

	e.reschedule(ctx, t)
}

// reschedule computes the fire time after a completed run. One-shot tasks
// are removed; a task cancelled mid-fire stays removed.
func (e *Engine) reschedule(ctx context.Context, t *task) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.inflight, t.id)

	if _, ok := e.tasks[t.id]; !ok {
		return
	}

	next, recurs := t.trigger.NextAfter(e.now())
	if !recurs {
		if _, err := e.store.Delete(ctx, t.id); err != nil {
			e.logger.Error("Failed to remove completed task", err,
				logger.Field{Key: "task_id", Value: t.id})
		}
		delete(e.tasks, t.id)
		e.metrics.SetActiveTasks(len(e.tasks))
		return
	}

	t.nextRun = next
	if err := e.store.UpdateNextRun(ctx, t.id, next); err != nil {
		e.logger.Error("Failed to persist next run time", err,
			logger.Field{Key: "task_id", Value: t.id})
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
