package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// INTERVAL
// ══════════════════════════════════════════════════════════════════════════════

// IntervalSchedule schedules a job to run at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule creates a new IntervalSchedule.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{Interval: interval}
}

// Next returns the next scheduled time.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String returns the string representation of the schedule.
func (s *IntervalSchedule) String() string {
	return "@every " + s.Interval.String()
}

// ══════════════════════════════════════════════════════════════════════════════
// CRON
// ══════════════════════════════════════════════════════════════════════════════

// Common presets.
const (
	EveryHour        = "0 * * * *"
	EveryDayMidnight = "0 0 * * *"
	EveryDay3AM      = "0 3 * * *"
)

// CronSchedule is a parsed 5-field cron expression:
// minute hour day-of-month month day-of-week.
// Fields support *, */n, n, n-m, n-m/s and comma lists.
type CronSchedule struct {
	raw      string
	minutes  uint64
	hours    uint64
	days     uint64
	months   uint64
	weekdays uint64
}

// cronFields lists field bounds in expression order.
var cronFields = [5]struct {
	name     string
	min, max int
}{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day", 1, 31},
	{"month", 1, 12},
	{"weekday", 0, 6},
}

// ParseCron parses a cron expression.
func ParseCron(expr string) (*CronSchedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != len(cronFields) {
		return nil, fmt.Errorf("invalid cron expression %q: expected 5 fields, got %d", expr, len(fields))
	}

	var masks [5]uint64
	for i, f := range fields {
		m, err := parseCronField(f, cronFields[i].min, cronFields[i].max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field: %w", cronFields[i].name, err)
		}
		masks[i] = m
	}

	return &CronSchedule{
		raw:      expr,
		minutes:  masks[0],
		hours:    masks[1],
		days:     masks[2],
		months:   masks[3],
		weekdays: masks[4],
	}, nil
}

// parseCronField turns one field into a bitmask of allowed values.
func parseCronField(field string, min, max int) (uint64, error) {
	var mask uint64
	for _, part := range strings.Split(field, ",") {
		lo, hi, step := min, max, 1

		rng := part
		if i := strings.IndexByte(part, '/'); i >= 0 {
			s, err := strconv.Atoi(part[i+1:])
			if err != nil || s <= 0 {
				return 0, fmt.Errorf("invalid step in %q", part)
			}
			step = s
			rng = part[:i]
		}

		switch {
		case rng == "*":
		case strings.Contains(rng, "-"):
			bounds := strings.SplitN(rng, "-", 2)
			a, errA := strconv.Atoi(bounds[0])
			b, errB := strconv.Atoi(bounds[1])
			if errA != nil || errB != nil || a > b {
				return 0, fmt.Errorf("invalid range %q", rng)
			}
			lo, hi = a, b
		default:
			v, err := strconv.Atoi(rng)
			if err != nil {
				return 0, fmt.Errorf("invalid value %q", rng)
			}
			lo = v
			if step == 1 {
				hi = v
			}
		}

		if lo < min || hi > max {
			return 0, fmt.Errorf("value out of range [%d-%d] in %q", min, max, part)
		}
		for v := lo; v <= hi; v += step {
			mask |= 1 << uint(v)
		}
	}
	return mask, nil
}

// String returns the original expression.
func (c *CronSchedule) String() string {
	return c.raw
}

// maxCronScan bounds the search to one leap year of minutes.
const maxCronScan = 366 * 24 * 60

// Next returns the first matching minute strictly after t, or zero if none within a year.
func (c *CronSchedule) Next(t time.Time) time.Time {
	next := t.Truncate(time.Minute).Add(time.Minute)
	for i := 0; i < maxCronScan; i++ {
		if c.matches(next) {
			return next
		}
		next = next.Add(time.Minute)
	}
	return time.Time{}
}

func (c *CronSchedule) matches(t time.Time) bool {
	return c.minutes&(1<<uint(t.Minute())) != 0 &&
		c.hours&(1<<uint(t.Hour())) != 0 &&
		c.days&(1<<uint(t.Day())) != 0 &&
		c.months&(1<<uint(t.Month())) != 0 &&
		c.weekdays&(1<<uint(t.Weekday())) != 0
}

// ParseSchedule accepts "@every <duration>" or a cron expression.
func ParseSchedule(expr string) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	if rest, ok := strings.CutPrefix(expr, "@every "); ok {
		d, err := time.ParseDuration(strings.TrimSpace(rest))
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid interval %q", rest)
		}
		return NewIntervalSchedule(d), nil
	}
	return ParseCron(expr)
}
