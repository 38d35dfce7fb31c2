// Package scheduler persists deferred and recurring natural-language tasks
// and replays them through the agent when they come due. Triggers are
// parsed from a small string mini-language; the job store survives process
// restarts.
package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidTriggerSpec is returned when a textual trigger spec cannot be
// parsed into recognized fields. It is always wrapped with the reason.
var ErrInvalidTriggerSpec = errors.New("invalid trigger spec")

// TriggerKind identifies the timing rule of a scheduled task.
type TriggerKind string

const (
	// TriggerDate fires once at a specific wall-clock time.
	TriggerDate TriggerKind = "date"
	// TriggerInterval fires repeatedly with a fixed period.
	TriggerInterval TriggerKind = "interval"
	// TriggerCron fires on a cron schedule.
	TriggerCron TriggerKind = "cron"
)

// dateLayout is the wire format for date triggers.
const dateLayout = "2006-01-02 15:04:05"

// Trigger is a parsed timing rule.
type Trigger struct {
	Kind TriggerKind

	// Value is the original textual spec, kept verbatim for persistence.
	Value string

	at       time.Time     // date triggers
	every    time.Duration // interval triggers
	schedule cron.Schedule // cron triggers
}

// ParseTrigger parses a trigger kind and its textual time value.
//
//	date:     "2026-01-02 15:04:05" (local time)
//	interval: comma-separated unit=value pairs from hours, minutes, seconds
//	cron:     comma-separated unit=value pairs from minute, hour, day,
//	          month, day_of_week
func ParseTrigger(kind, value string) (Trigger, error) {
	switch TriggerKind(kind) {
	case TriggerDate:
		at, err := time.ParseInLocation(dateLayout, strings.TrimSpace(value), time.Local)
		if err != nil {
			return Trigger{}, fmt.Errorf("%w: malformed date %q (expected %q)", ErrInvalidTriggerSpec, value, dateLayout)
		}
		return Trigger{Kind: TriggerDate, Value: value, at: at}, nil

	case TriggerInterval:
		every, err := parseInterval(value)
		if err != nil {
			return Trigger{}, err
		}
		return Trigger{Kind: TriggerInterval, Value: value, every: every}, nil

	case TriggerCron:
		schedule, err := parseCronFields(value)
		if err != nil {
			return Trigger{}, err
		}
		return Trigger{Kind: TriggerCron, Value: value, schedule: schedule}, nil

	default:
		return Trigger{}, fmt.Errorf("%w: unknown trigger kind %q (expected date, interval, or cron)", ErrInvalidTriggerSpec, kind)
	}
}

// parseInterval parses "hours=2" / "minutes=30,seconds=15" style values.
func parseInterval(value string) (time.Duration, error) {
	var total time.Duration

	pairs, err := splitPairs(value)
	if err != nil {
		return 0, err
	}

	for unit, n := range pairs {
		switch unit {
		case "hours":
			total += time.Duration(n) * time.Hour
		case "minutes":
			total += time.Duration(n) * time.Minute
		case "seconds":
			total += time.Duration(n) * time.Second
		default:
			return 0, fmt.Errorf("%w: unknown interval unit %q (expected hours, minutes, or seconds)", ErrInvalidTriggerSpec, unit)
		}
	}

	if total <= 0 {
		return 0, fmt.Errorf("%w: interval must be positive", ErrInvalidTriggerSpec)
	}
	return total, nil
}

// parseCronFields parses "hour=8, minute=30" style values into a cron
// schedule. Fields smaller than the smallest one given default to 0, larger
// fields stay wildcards, so hour=8 means daily at 08:00.
func parseCronFields(value string) (cron.Schedule, error) {
	pairs, err := splitPairs(value)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{
		"minute":      "*",
		"hour":        "*",
		"day":         "*",
		"month":       "*",
		"day_of_week": "*",
	}
	for unit, n := range pairs {
		if _, ok := fields[unit]; !ok {
			return nil, fmt.Errorf("%w: unknown cron unit %q", ErrInvalidTriggerSpec, unit)
		}
		fields[unit] = strconv.Itoa(n)
	}

	if fields["hour"] != "*" && fields["minute"] == "*" {
		fields["minute"] = "0"
	}
	if fields["minute"] == "*" && fields["hour"] == "*" {
		return nil, fmt.Errorf("%w: cron trigger needs at least an hour or minute field", ErrInvalidTriggerSpec)
	}

	spec := strings.Join([]string{
		fields["minute"], fields["hour"], fields["day"], fields["month"], fields["day_of_week"],
	}, " ")

	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTriggerSpec, err)
	}
	return schedule, nil
}

// splitPairs parses comma-separated unit=value pairs with integer values.
func splitPairs(value string) (map[string]int, error) {
	pairs := make(map[string]int)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		unit, raw, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: malformed field %q (expected unit=value)", ErrInvalidTriggerSpec, part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: non-integer value in %q", ErrInvalidTriggerSpec, part)
		}
		pairs[strings.TrimSpace(unit)] = n
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: empty time value", ErrInvalidTriggerSpec)
	}
	return pairs, nil
}

// FirstRun returns the initial next_run_time for a newly created task.
func (t Trigger) FirstRun(now time.Time) time.Time {
	switch t.Kind {
	case TriggerDate:
		return t.at
	case TriggerInterval:
		return now.Add(t.every)
	default:
		return t.schedule.Next(now)
	}
}

// NextAfter returns the next fire time after a completed run, or false if
// the task does not recur.
func (t Trigger) NextAfter(now time.Time) (time.Time, bool) {
	switch t.Kind {
	case TriggerDate:
		return time.Time{}, false
	case TriggerInterval:
		return now.Add(t.every), true
	default:
		return t.schedule.Next(now), true
	}
}

// String renders the trigger for listings.
func (t Trigger) String() string {
	return fmt.Sprintf("%s(%s)", t.Kind, t.Value)
}
