package poker

import "time"

// Option configures a Machine.
type Option func(*Machine)

// WithClock replaces the wall clock, letting tests pin the vote timer
// deadline computation.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

// WithIssueIDs replaces the issue id generator.
func WithIssueIDs(gen func() string) Option {
	return func(m *Machine) {
		m.newIssueID = gen
	}
}
