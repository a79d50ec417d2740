package application

import "time"

// SetClock replaces the clock used to stamp project timestamps.
func SetClock(s *ProjectService, now func() time.Time) {
	s.now = now
}
