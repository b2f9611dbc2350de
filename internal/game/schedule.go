package game

import "time"

// NextDueDate moves a recurring due date forward by whole days until it is
// after now, keeping its time of day. A nil due date stays nil.
func NextDueDate(due *time.Time, now time.Time) *time.Time {
	if due == nil {
		return nil
	}
	next := *due
	for !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return &next
}
