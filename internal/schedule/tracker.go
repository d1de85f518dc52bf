package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Clock supplies wall time; tests inject a fixed one.
type Clock func() time.Time

// DefaultPendingTTL is how long an unanswered "when?" prompt stays armed
// before the parked task is silently abandoned.
const DefaultPendingTTL = 5 * time.Minute

// Request is a fully-resolved schedule: what to run and when.
type Request struct {
	Task string
	When time.Time
}

type pendingTask struct {
	task     string
	parkedAt time.Time
}

// Tracker drives the two-step scheduling conversation for one session:
// "remind me to X" without a time parks X and claims the following turn for
// a time expression. It is not safe for concurrent use; the router
// serializes turns per session.
type Tracker struct {
	clock   Clock
	ttl     time.Duration
	pending *pendingTask
}

func NewTracker(clock Clock, ttl time.Duration) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &Tracker{clock: clock, ttl: ttl}
}

// HasPending reports whether a parked task is still claiming turns. An
// expired park is dropped here so a stale "remind me to" can never block
// classification forever.
func (t *Tracker) HasPending() bool {
	if t.pending == nil {
		return false
	}
	if t.clock().Sub(t.pending.parkedAt) > t.ttl {
		t.pending = nil
		return false
	}
	return true
}

var pendingCancelWords = []string{"cancel", "never mind", "nevermind", "forget it", "stop"}

// Process consumes one scheduling turn. A non-nil Request means the schedule
// is complete and ready for the worker; otherwise the response is a prompt
// and the tracker may still be holding the parked task.
func (t *Tracker) Process(utterance string) (*Request, string) {
	q := strings.ToLower(strings.TrimSpace(utterance))

	if t.HasPending() {
		for _, w := range pendingCancelWords {
			if strings.Contains(q, w) {
				task := t.pending.task
				t.pending = nil
				return nil, fmt.Sprintf("Okay, I've dropped the reminder to %s.", task)
			}
		}
		when, ok := t.extractTime(q)
		if !ok {
			return nil, "I didn't understand that time. Please say something like '5 PM' or 'in 30 minutes'."
		}
		req := &Request{Task: t.pending.task, When: when}
		t.pending = nil
		return req, ""
	}

	if task, ok := strings.CutPrefix(q, "remind me to"); ok {
		task = strings.TrimSpace(task)
		if _, hasTime := t.extractTime(q); task != "" && !hasTime {
			t.pending = &pendingTask{task: task, parkedAt: t.clock()}
			return nil, fmt.Sprintf("Sure! I'll remind you to %s. When would you like me to remind you?", task)
		}
	}

	task := extractTask(q)
	when, hasTime := t.extractTime(q)

	if task == "" {
		return nil, "I couldn't understand what you want me to remind you about."
	}
	if !hasTime {
		return nil, fmt.Sprintf("I understood you want to: '%s', but I couldn't determine when. Please specify a time.", task)
	}
	return &Request{Task: task, When: when}, ""
}

var (
	// App launches are captured whole ("open notepad") so the worker can
	// re-dispatch them verbatim when the timer fires.
	appCommandPattern = regexp.MustCompile(`((?:open|launch|start)\s+.+?)(?:\s+at|\s+in|\s+tomorrow|$)`)

	taskPatterns = []*regexp.Regexp{
		regexp.MustCompile(`remind me to\s+(.+?)(?:\s+at|\s+in|\s+tomorrow|$)`),
		regexp.MustCompile(`schedule\s+(.+?)(?:\s+at|\s+in|\s+tomorrow|$)`),
		regexp.MustCompile(`set (?:a )?reminder (?:to )?\s*(.+?)(?:\s+at|\s+in|\s+tomorrow|$)`),
	}

	clockTimePatterns = []*regexp.Regexp{
		regexp.MustCompile(`at\s+(\d{1,2})\s*(?::(\d{2}))?\s*(am|pm)`),
		regexp.MustCompile(`at\s+(\d{1,2}):(\d{2})`),
	}

	relativeTimePattern = regexp.MustCompile(`in\s+(\d+)\s+(minute|hour|second)s?`)
)

func extractTask(q string) string {
	if m := appCommandPattern.FindStringSubmatch(q); m != nil {
		return strings.TrimSpace(m[1])
	}
	for _, p := range taskPatterns {
		if m := p.FindStringSubmatch(q); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// extractTime parses "at 5 pm", "at 17:30", "in 30 minutes", and "tomorrow"
// (defaulting to 9 AM). A clock time already past today rolls to tomorrow.
func (t *Tracker) extractTime(q string) (time.Time, bool) {
	now := t.clock()

	for _, p := range clockTimePatterns {
		m := p.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if len(m) > 3 && m[3] != "" {
			switch m[3] {
			case "pm":
				if hour != 12 {
					hour += 12
				}
			case "am":
				if hour == 12 {
					hour = 0
				}
			}
		}
		if hour > 23 || minute > 59 {
			continue
		}
		scheduled := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if scheduled.Before(now) {
			scheduled = scheduled.AddDate(0, 0, 1)
		}
		return scheduled, true
	}

	if m := relativeTimePattern.FindStringSubmatch(q); m != nil {
		amount, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "minute":
			return now.Add(time.Duration(amount) * time.Minute), true
		case "hour":
			return now.Add(time.Duration(amount) * time.Hour), true
		case "second":
			return now.Add(time.Duration(amount) * time.Second), true
		}
	}

	if strings.Contains(q, "tomorrow") {
		tomorrow := now.AddDate(0, 0, 1)
		return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 9, 0, 0, 0, now.Location()), true
	}

	return time.Time{}, false
}
