// Package schedule combines planner tasks and calendar events.
package schedule

import "morningbrief/internal/domain/briefing"

// Merge pairs tasks with events. Neither list is reordered and items never
// move between lists; a nil side becomes an empty list so one source's
// failure never blocks the other.
func Merge(tasks, events []briefing.Item) briefing.Schedule {
	out := briefing.Schedule{
		Tasks:  make([]briefing.Item, len(tasks)),
		Events: make([]briefing.Item, len(events)),
	}
	copy(out.Tasks, tasks)
	copy(out.Events, events)
	return out
}
