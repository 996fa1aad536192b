package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func datePtr(t time.Time) *time.Time { return &t }

func TestPriorityRank(t *testing.T) {
	require.Equal(t, 0, PriorityUrgent.Rank())
	require.Equal(t, 1, PriorityHigh.Rank())
	require.Equal(t, 2, PriorityMedium.Rank())
	require.Equal(t, 3, PriorityLow.Rank())
	require.Equal(t, 4, PriorityNone.Rank())
	require.Equal(t, 4, Priority("").Rank())
	require.Equal(t, 4, Priority("blocker").Rank())
}

func TestIsTerminalState(t *testing.T) {
	for _, name := range []string{"done", "Done", "COMPLETED", " cancelled ", "Canceled"} {
		require.True(t, IsTerminalState(name), name)
	}
	for _, name := range []string{"", "In Progress", "Backlog", "Todo"} {
		require.False(t, IsTerminalState(name), name)
	}
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "user@test", NormalizeEmail("  User@Test "))
	require.Equal(t, "", NormalizeEmail("   "))
}

func TestDueDateFlags(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	overdue := Task{DueDate: datePtr(time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC))}
	require.True(t, overdue.IsOverdue(now))
	require.False(t, overdue.IsDueToday(now))

	today := Task{DueDate: datePtr(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))}
	require.False(t, today.IsOverdue(now))
	require.True(t, today.IsDueToday(now))

	future := Task{DueDate: datePtr(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC))}
	require.False(t, future.IsOverdue(now))
	require.False(t, future.IsDueToday(now))

	noDue := Task{}
	require.False(t, noDue.IsOverdue(now))
	require.False(t, noDue.IsDueToday(now))
}

func TestClassify(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	require.Equal(t, BucketOverdue, Classify(Task{DueDate: datePtr(now.AddDate(0, 0, -1))}, now))
	require.Equal(t, BucketDueToday, Classify(Task{DueDate: datePtr(now)}, now))
	require.Equal(t, BucketUpcoming, Classify(Task{DueDate: datePtr(now.AddDate(0, 0, 3))}, now))
	require.Equal(t, BucketUpcoming, Classify(Task{}, now))
}

func TestSortTasks_DueDateBeforePriority(t *testing.T) {
	yesterday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	// A due yesterday/high, B due today/medium, C no due date/urgent.
	// Due-date tasks precede C despite its urgency.
	a := Task{ID: "a", Priority: PriorityHigh, DueDate: &yesterday}
	b := Task{ID: "b", Priority: PriorityMedium, DueDate: &today}
	c := Task{ID: "c", Priority: PriorityUrgent}

	tasks := []Task{c, b, a}
	SortTasks(tasks)

	require.Equal(t, []string{"a", "b", "c"}, ids(tasks))
}

func TestSortTasks_PriorityWithinGroups(t *testing.T) {
	due := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

	tasks := []Task{
		{ID: "low-due", Priority: PriorityLow, DueDate: &due},
		{ID: "none-nodue", Priority: PriorityNone},
		{ID: "urgent-due", Priority: PriorityUrgent, DueDate: &due},
		{ID: "high-nodue", Priority: PriorityHigh},
	}
	SortTasks(tasks)

	require.Equal(t, []string{"urgent-due", "low-due", "high-nodue", "none-nodue"}, ids(tasks))
}

func TestSortTasks_DueDateTieBreak(t *testing.T) {
	early := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	tasks := []Task{
		{ID: "late", Priority: PriorityHigh, DueDate: &late},
		{ID: "early", Priority: PriorityHigh, DueDate: &early},
	}
	SortTasks(tasks)

	require.Equal(t, []string{"early", "late"}, ids(tasks))
}

func TestSortTasks_StableForEqualKeys(t *testing.T) {
	due := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)

	tasks := []Task{
		{ID: "first", Priority: PriorityMedium, DueDate: &due},
		{ID: "second", Priority: PriorityMedium, DueDate: &due},
		{ID: "third", Priority: PriorityMedium, DueDate: &due},
	}
	for n := 0; n < 3; n++ {
		SortTasks(tasks)
		require.Equal(t, []string{"first", "second", "third"}, ids(tasks))
	}
}

func ids(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, tk := range tasks {
		out[i] = tk.ID
	}
	return out
}
