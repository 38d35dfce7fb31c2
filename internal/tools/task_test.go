package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udaysagarm/GentAI/internal/scheduler"
)

// stubScheduler implements TaskScheduler for adapter tests.
type stubScheduler struct {
	scheduled   []string
	tasks       []scheduler.TaskInfo
	scheduleErr error
	cancelErr   error
	cancelled   []string
}

func (s *stubScheduler) Schedule(_ context.Context, description, triggerType, timeValue string) (string, error) {
	if s.scheduleErr != nil {
		return "", s.scheduleErr
	}
	s.scheduled = append(s.scheduled, description)
	return "task-123", nil
}

func (s *stubScheduler) List() []scheduler.TaskInfo {
	return s.tasks
}

func (s *stubScheduler) Cancel(_ context.Context, id string) error {
	if s.cancelErr != nil {
		return s.cancelErr
	}
	s.cancelled = append(s.cancelled, id)
	return nil
}

func TestScheduleTaskTool(t *testing.T) {
	stub := &stubScheduler{}
	tool := NewScheduleTaskTool(stub)

	out, err := tool.Execute(context.Background(),
		`{"task_description": "check the inbox", "trigger_type": "interval", "time_value": "hours=2"}`)
	require.NoError(t, err)

	assert.Contains(t, out, "task-123")
	require.Len(t, stub.scheduled, 1)
	assert.Equal(t, "check the inbox", stub.scheduled[0])
}

func TestScheduleTaskTool_InvalidArguments(t *testing.T) {
	tool := NewScheduleTaskTool(&stubScheduler{})

	_, err := tool.Execute(context.Background(), `not json`)
	assert.Error(t, err)

	_, err = tool.Execute(context.Background(), `{"trigger_type": "date", "time_value": "2026-01-01 00:00:00"}`)
	assert.Error(t, err)
}

func TestScheduleTaskTool_SchedulerError(t *testing.T) {
	stub := &stubScheduler{scheduleErr: scheduler.ErrInvalidTriggerSpec}
	tool := NewScheduleTaskTool(stub)

	_, err := tool.Execute(context.Background(),
		`{"task_description": "x", "trigger_type": "interval", "time_value": "hrs=2"}`)
	assert.ErrorIs(t, err, scheduler.ErrInvalidTriggerSpec)
}

func TestListTasksTool(t *testing.T) {
	stub := &stubScheduler{
		tasks: []scheduler.TaskInfo{
			{
				ID:          "task-1",
				Description: "water the plants",
				Trigger:     "interval(hours=24)",
				NextRun:     time.Date(2026, 9, 2, 8, 0, 0, 0, time.Local),
			},
		},
	}
	tool := NewListTasksTool(stub)

	out, err := tool.Execute(context.Background(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "task-1")
	assert.Contains(t, out, "water the plants")
	assert.Contains(t, out, "interval(hours=24)")
}

func TestListTasksTool_Empty(t *testing.T) {
	tool := NewListTasksTool(&stubScheduler{})

	out, err := tool.Execute(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "No scheduled tasks.", out)
}

func TestCancelTaskTool(t *testing.T) {
	stub := &stubScheduler{}
	tool := NewCancelTaskTool(stub)

	out, err := tool.Execute(context.Background(), `{"task_id": "task-9"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "task-9")
	assert.Equal(t, []string{"task-9"}, stub.cancelled)
}

func TestCancelTaskTool_NotFound(t *testing.T) {
	stub := &stubScheduler{cancelErr: scheduler.ErrTaskNotFound}
	tool := NewCancelTaskTool(stub)

	_, err := tool.Execute(context.Background(), `{"task_id": "missing"}`)
	assert.ErrorIs(t, err, scheduler.ErrTaskNotFound)
}

func TestClockTool(t *testing.T) {
	tool := NewClockTool()
	tool.now = func() time.Time {
		return time.Date(2026, 9, 1, 15, 4, 5, 0, time.UTC)
	}

	out, err := tool.Execute(context.Background(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "2026-09-01")
	assert.Contains(t, out, "15:04:05")
	assert.Contains(t, out, "Tuesday")
}
