package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/udaysagarm/GentAI/internal/gapi"
	"github.com/udaysagarm/GentAI/internal/logger"
)

const calendarBase = "https://www.googleapis.com/calendar/v3/calendars/primary/events"

type calendarTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type calendarEvent struct {
	ID       string       `json:"id,omitempty"`
	Summary  string       `json:"summary"`
	Location string       `json:"location,omitempty"`
	Start    calendarTime `json:"start"`
	End      calendarTime `json:"end"`
	HTMLLink string       `json:"htmlLink,omitempty"`
}

func (t calendarTime) display() string {
	if t.DateTime != "" {
		if parsed, err := time.Parse(time.RFC3339, t.DateTime); err == nil {
			return parsed.Local().Format("Mon 2006-01-02 15:04")
		}
		return t.DateTime
	}
	return t.Date
}

// ListEventsTool lists the next events on the user's primary calendar.
type ListEventsTool struct {
	client *gapi.Client
	now    func() time.Time
}

// NewListEventsTool creates the list_upcoming_events tool.
func NewListEventsTool(client *gapi.Client) *ListEventsTool {
	return &ListEventsTool{client: client, now: time.Now}
}

func (t *ListEventsTool) Name() string {
	return "list_upcoming_events"
}

func (t *ListEventsTool) Description() string {
	return "Lists the next upcoming events on the user's primary Google Calendar in chronological order."
}

func (t *ListEventsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"max_results": map[string]any{
				"type":        "integer",
				"description": "How many events to list (default 10, max 25).",
			},
		},
	}
}

func (t *ListEventsTool) Execute(ctx context.Context, args string) (string, error) {
	var params struct {
		MaxResults int `json:"max_results"`
	}
	if args != "" {
		if err := json.Unmarshal([]byte(args), &params); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
	}
	if params.MaxResults <= 0 {
		params.MaxResults = 10
	}
	if params.MaxResults > 25 {
		params.MaxResults = 25
	}

	query := url.Values{}
	query.Set("timeMin", t.now().UTC().Format(time.RFC3339))
	query.Set("maxResults", fmt.Sprintf("%d", params.MaxResults))
	query.Set("singleEvents", "true")
	query.Set("orderBy", "startTime")

	var resp struct {
		Items []calendarEvent `json:"items"`
	}
	if err := t.client.GetJSON(ctx, calendarBase+"?"+query.Encode(), &resp); err != nil {
		return "", fmt.Errorf("failed to list events: %w", err)
	}
	if len(resp.Items) == 0 {
		return "No upcoming events found.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d upcoming event(s):\n", len(resp.Items))
	for _, ev := range resp.Items {
		line := fmt.Sprintf("- %s: %s", ev.Start.display(), ev.Summary)
		if ev.Location != "" {
			line += " @ " + ev.Location
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// CreateEventTool adds an event to the user's primary calendar.
type CreateEventTool struct {
	client *gapi.Client
	logger *logger.Logger
}

// NewCreateEventTool creates the create_calendar_event tool.
func NewCreateEventTool(client *gapi.Client, log *logger.Logger) *CreateEventTool {
	return &CreateEventTool{client: client, logger: log}
}

func (t *CreateEventTool) Name() string {
	return "create_calendar_event"
}

func (t *CreateEventTool) Description() string {
	return "Creates an event on the user's primary Google Calendar. Times are local and in 'YYYY-MM-DD HH:MM:SS' format; if end_time is omitted the event lasts one hour."
}

func (t *CreateEventTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "Event title.",
			},
			"start_time": map[string]any{
				"type":        "string",
				"description": "Event start in local time, e.g. '2026-01-02 15:00:00'.",
			},
			"end_time": map[string]any{
				"type":        "string",
				"description": "Event end in local time. Defaults to one hour after start.",
			},
			"location": map[string]any{
				"type":        "string",
				"description": "Optional event location.",
			},
		},
		"required": []string{"summary", "start_time"},
	}
}

func (t *CreateEventTool) Execute(ctx context.Context, args string) (string, error) {
	var params struct {
		Summary   string `json:"summary"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
		Location  string `json:"location"`
	}
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if params.Summary == "" || params.StartTime == "" {
		return "", fmt.Errorf("summary and start_time are required")
	}

	const layout = "2006-01-02 15:04:05"
	start, err := time.ParseInLocation(layout, params.StartTime, time.Local)
	if err != nil {
		return "", fmt.Errorf("malformed start_time %q (expected %q)", params.StartTime, layout)
	}
	end := start.Add(time.Hour)
	if params.EndTime != "" {
		end, err = time.ParseInLocation(layout, params.EndTime, time.Local)
		if err != nil {
			return "", fmt.Errorf("malformed end_time %q (expected %q)", params.EndTime, layout)
		}
	}

	event := calendarEvent{
		Summary:  params.Summary,
		Location: params.Location,
		Start:    calendarTime{DateTime: start.Format(time.RFC3339)},
		End:      calendarTime{DateTime: end.Format(time.RFC3339)},
	}

	var created calendarEvent
	if err := t.client.PostJSON(ctx, calendarBase, event, &created); err != nil {
		return "", fmt.Errorf("failed to create event: %w", err)
	}

	t.logger.InfoCtx(ctx, "Calendar event created",
		logger.Field{Key: "event_id", Value: created.ID},
		logger.Field{Key: "summary", Value: params.Summary})
	return fmt.Sprintf("Event %q created for %s.", params.Summary, created.Start.display()), nil
}
