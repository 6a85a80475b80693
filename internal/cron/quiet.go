package cron

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidQuiet is returned by ParseQuietHours.
var ErrInvalidQuiet = errors.New("cron: invalid quiet hours")

// Quiet modes: what a job does when it fires inside its quiet window.
const (
	QuietSilent = "silent" // send without notification sound
	QuietSkip   = "skip"   // do not send
)

// QuietHours is a daily window given as offsets from midnight. A window
// whose start is after its end wraps midnight.
type QuietHours struct {
	Start time.Duration
	End   time.Duration
}

// ParseQuietHours parses "HH:MM-HH:MM" (24-hour clock).
func ParseQuietHours(s string) (QuietHours, error) {
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return QuietHours{}, fmt.Errorf("%w: expected HH:MM-HH:MM, got %q", ErrInvalidQuiet, s)
	}
	start, err := clockOffset(from)
	if err != nil {
		return QuietHours{}, fmt.Errorf("%w: start: %w", ErrInvalidQuiet, err)
	}
	end, err := clockOffset(to)
	if err != nil {
		return QuietHours{}, fmt.Errorf("%w: end: %w", ErrInvalidQuiet, err)
	}
	return QuietHours{Start: start, End: end}, nil
}

func clockOffset(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Contains reports whether the wall-clock time of t falls in the window.
// Convert t to the wanted location first.
func (q QuietHours) Contains(t time.Time) bool {
	offset := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second

	if q.Start <= q.End {
		return offset >= q.Start && offset < q.End
	}
	return offset >= q.Start || offset < q.End
}

// String formats the window as HH:MM-HH:MM.
func (q QuietHours) String() string {
	clock := func(d time.Duration) string {
		return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
	}
	return clock(q.Start) + "-" + clock(q.End)
}
