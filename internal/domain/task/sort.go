package task

import "sort"

// SortTasks orders tasks in place by the canonical rule: tasks with a due
// date precede tasks without one, then by priority rank ascending, then by
// due date ascending. Tasks with equal keys keep their input order.
func SortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return Less(tasks[i], tasks[j])
	})
}

// Less reports whether a sorts before b under the canonical order.
func Less(a, b Task) bool {
	aDue := a.DueDate != nil
	bDue := b.DueDate != nil
	if aDue != bDue {
		return aDue
	}
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() < b.Priority.Rank()
	}
	if aDue && bDue && !a.DueDate.Equal(*b.DueDate) {
		return a.DueDate.Before(*b.DueDate)
	}
	return false
}
