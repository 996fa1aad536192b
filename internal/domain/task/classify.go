package task

import "time"

// Bucket classifies a task by its due date relative to now.
type Bucket string

const (
	BucketOverdue  Bucket = "overdue"
	BucketDueToday Bucket = "due_today"
	BucketUpcoming Bucket = "upcoming"
)

// Classify assigns a task to exactly one bucket. Tasks without a due date
// and tasks due after today are both upcoming.
func Classify(t Task, now time.Time) Bucket {
	switch {
	case t.IsOverdue(now):
		return BucketOverdue
	case t.IsDueToday(now):
		return BucketDueToday
	default:
		return BucketUpcoming
	}
}
