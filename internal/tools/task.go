package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/udaysagarm/GentAI/internal/scheduler"
)

// TaskScheduler is the slice of the scheduler engine the task tools need.
type TaskScheduler interface {
	Schedule(ctx context.Context, description, triggerType, timeValue string) (string, error)
	List() []scheduler.TaskInfo
	Cancel(ctx context.Context, id string) error
}

// ScheduleTaskTool registers a deferred or recurring task with the engine.
type ScheduleTaskTool struct {
	scheduler TaskScheduler
}

// NewScheduleTaskTool creates the schedule_task tool.
func NewScheduleTaskTool(s TaskScheduler) *ScheduleTaskTool {
	return &ScheduleTaskTool{scheduler: s}
}

func (t *ScheduleTaskTool) Name() string {
	return "schedule_task"
}

func (t *ScheduleTaskTool) Description() string {
	return "Schedules a task to run later or on a repeating schedule. " +
		"task_description is the full instruction to execute when the task fires, written as if the user typed it. " +
		"trigger_type is one of 'date', 'interval', or 'cron'. " +
		"For 'date', time_value is an absolute local time like '2026-01-02 15:04:05'. " +
		"For 'interval', time_value is unit=value pairs such as 'hours=2' or 'minutes=30,seconds=15'. " +
		"For 'cron', time_value is unit=value pairs such as 'hour=8,minute=30' or 'day_of_week=1,hour=9'."
}

func (t *ScheduleTaskTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task_description": map[string]any{
				"type":        "string",
				"description": "The instruction to execute when the task fires.",
			},
			"trigger_type": map[string]any{
				"type":        "string",
				"enum":        []string{"date", "interval", "cron"},
				"description": "The timing rule kind.",
			},
			"time_value": map[string]any{
				"type":        "string",
				"description": "The timing value in the format matching trigger_type.",
			},
		},
		"required": []string{"task_description", "trigger_type", "time_value"},
	}
}

func (t *ScheduleTaskTool) Execute(ctx context.Context, args string) (string, error) {
	var params struct {
		TaskDescription string `json:"task_description"`
		TriggerType     string `json:"trigger_type"`
		TimeValue       string `json:"time_value"`
	}
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if params.TaskDescription == "" {
		return "", fmt.Errorf("task_description is required")
	}

	id, err := t.scheduler.Schedule(ctx, params.TaskDescription, params.TriggerType, params.TimeValue)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Task scheduled with id %s (%s trigger: %s).", id, params.TriggerType, params.TimeValue), nil
}

// ListTasksTool renders the live task population.
type ListTasksTool struct {
	scheduler TaskScheduler
}

// NewListTasksTool creates the list_scheduled_tasks tool.
func NewListTasksTool(s TaskScheduler) *ListTasksTool {
	return &ListTasksTool{scheduler: s}
}

func (t *ListTasksTool) Name() string {
	return "list_scheduled_tasks"
}

func (t *ListTasksTool) Description() string {
	return "Lists every pending scheduled task with its id, description, trigger, and next run time."
}

func (t *ListTasksTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *ListTasksTool) Execute(_ context.Context, _ string) (string, error) {
	tasks := t.scheduler.List()
	if len(tasks) == 0 {
		return "No scheduled tasks.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d scheduled task(s):\n", len(tasks))
	for _, task := range tasks {
		fmt.Fprintf(&b, "- [%s] %q, trigger %s, next run %s\n",
			task.ID, task.Description, task.Trigger, task.NextRun.Format("2006-01-02 15:04:05"))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// CancelTaskTool removes a scheduled task by id.
type CancelTaskTool struct {
	scheduler TaskScheduler
}

// NewCancelTaskTool creates the cancel_scheduled_task tool.
func NewCancelTaskTool(s TaskScheduler) *CancelTaskTool {
	return &CancelTaskTool{scheduler: s}
}

func (t *CancelTaskTool) Name() string {
	return "cancel_scheduled_task"
}

func (t *CancelTaskTool) Description() string {
	return "Cancels a scheduled task by its id. Use list_scheduled_tasks first to find the id."
}

func (t *CancelTaskTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task_id": map[string]any{
				"type":        "string",
				"description": "The id of the task to cancel.",
			},
		},
		"required": []string{"task_id"},
	}
}

func (t *CancelTaskTool) Execute(ctx context.Context, args string) (string, error) {
	var params struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if params.TaskID == "" {
		return "", fmt.Errorf("task_id is required")
	}

	if err := t.scheduler.Cancel(ctx, params.TaskID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Task %s cancelled.", params.TaskID), nil
}
