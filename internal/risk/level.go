// Package risk defines the ordered risk level taxonomy and the keyword
// classifier used on both the intake path and the triage service.
package risk

import "fmt"

// Level is the severity of detected self-harm/crisis content.
// Levels are totally ordered: LevelLow < LevelMedium < LevelHigh < LevelCritical.
type Level int

const (
	// LevelLow indicates no risk indicators were found.
	LevelLow Level = iota
	// LevelMedium exists in the taxonomy but is never produced by the
	// keyword classifier; it is reachable only through Combine/ParseLevel.
	LevelMedium
	// LevelHigh indicates high-risk vocabulary was detected.
	LevelHigh
	// LevelCritical indicates critical crisis vocabulary was detected.
	LevelCritical
)

// levelNames maps levels to their wire representation.
var levelNames = [...]string{"low", "medium", "high", "critical"}

// String returns the wire representation of the level.
func (l Level) String() string {
	if l < LevelLow || l > LevelCritical {
		return "unknown"
	}
	return levelNames[l]
}

// Valid reports whether the level is one of the four defined values.
func (l Level) Valid() bool {
	return l >= LevelLow && l <= LevelCritical
}

// AtLeast reports whether the level is at or above min in the total order.
func (l Level) AtLeast(min Level) bool {
	return l >= min
}

// ParseLevel converts a wire string to a Level.
// Returns an error for unknown values.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if s == name {
			return Level(i), nil
		}
	}
	return LevelLow, fmt.Errorf("unknown risk level: %q", s)
}

// Combine returns the higher of the two levels.
// Combining is commutative, idempotent, and monotonic: the result is never
// lower than either input.
func Combine(a, b Level) Level {
	if a > b {
		return a
	}
	return b
}

// MarshalText implements encoding.TextMarshaler so levels serialize as
// their wire strings in JSON payloads.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid risk level: %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Priority is the triage decision priority. It is a separate dimension from
// Level: it describes how urgently a human should act on a decision, not how
// risky the originating text was.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriority reports whether p is one of the defined priorities.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
