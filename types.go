package chump

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Version is reported in the default User-Agent.
const Version = "1.3.0"

// Priority is the delivery urgency of a message, sent as its integer value.
type Priority int

const (
	// Lowest generates no notification at all.
	Lowest Priority = -2
	// Low sends a quiet notification: no sound, no vibration.
	Low Priority = -1
	// Normal plays sound and vibrates unless the user is in quiet hours.
	Normal Priority = 0
	// High bypasses the user's quiet hours.
	High Priority = 1
	// Emergency re-alerts until acknowledged and must be sent as an EmergencyMessage.
	Emergency Priority = 2
)

var priorityNames = map[Priority]string{
	Lowest:    "lowest",
	Low:       "low",
	Normal:    "normal",
	High:      "high",
	Emergency: "emergency",
}

func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return strconv.Itoa(int(p))
}

// ParsePriority accepts either a level name ("high") or its integer value ("1").
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range priorityNames {
		if name == s {
			return p, nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || !Priority(n).Valid() {
		return Normal, &ConstraintError{Field: "priority", Constraint: "must be between -2 and 2", Value: s}
	}
	return Priority(n), nil
}

// Tristate is a boolean that can also be not yet known.
type Tristate uint8

const (
	Unknown Tristate = iota
	Yes
	No
)

func tristate(b bool) Tristate {
	if b {
		return Yes
	}
	return No
}

// Known reports whether the value has been determined.
func (t Tristate) Known() bool { return t != Unknown }

// Bool reports whether the value is Yes. Unknown reads as false.
func (t Tristate) Bool() bool { return t == Yes }

func (t Tristate) String() string {
	switch t {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "unknown"
	}
}

// Limits are the provider-published bounds enforced before any request is made.
// Keep them in sync with https://pushover.net/api#limits.
type Limits struct {
	MessageLength  int
	TitleLength    int
	CombinedLength int
	URLLength      int
	URLTitleLength int
	MinRetry       time.Duration
	MaxExpire      time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		MessageLength:  1024,
		TitleLength:    250,
		CombinedLength: 1274,
		URLLength:      512,
		URLTitleLength: 100,
		MinRetry:       30 * time.Second,
		MaxExpire:      24 * time.Hour,
	}
}

// RateLimit is the application's monthly message quota as last reported by the provider.
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

func (r RateLimit) String() string {
	if r.Reset.IsZero() {
		return fmt.Sprintf("%d/%d remaining", r.Remaining, r.Limit)
	}
	return fmt.Sprintf("%d/%d remaining, resets %s", r.Remaining, r.Limit, r.Reset.Format(time.RFC3339))
}

func epochToTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
