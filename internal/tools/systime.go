package tools

import (
	"context"
	"time"
)

// ClockTool reports the current local date and time. The model cannot be
// trusted to know the wall clock; anything time-sensitive goes through this.
type ClockTool struct {
	now func() time.Time
}

// NewClockTool creates the datetime tool.
func NewClockTool() *ClockTool {
	return &ClockTool{now: time.Now}
}

func (t *ClockTool) Name() string {
	return "current_datetime"
}

func (t *ClockTool) Description() string {
	return "Returns the current local date and time. Use this whenever the user's request depends on what time it is now, for example relative dates like 'tomorrow' or 'in two hours'."
}

func (t *ClockTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *ClockTool) Execute(_ context.Context, _ string) (string, error) {
	return t.now().Format("Monday, 2006-01-02 15:04:05 MST"), nil
}
