package conversation

import "warden/internal/event"

// MergeTaskEvents collapses consecutive events from the same author sharing
// the same sub-task identifier into a single event whose text concatenates
// every fragment in chronological order. Events without a sub-task identifier
// are never merged with neighbors. Empty submitted-task placeholders are
// dropped. Input and output are both chronological.
func MergeTaskEvents(events []event.Event) []event.Event {
	if len(events) == 0 {
		return nil
	}

	var (
		processed   []event.Event
		sameTask    []event.Event
		currentAuth string
		currentTask string
	)

	flushTask := func() {
		if len(sameTask) > 0 {
			processed = append(processed, event.MergeTaskEvents(sameTask))
		}
		sameTask = nil
	}

	for _, ev := range events {
		if event.IsEmptySubmittedTask(ev) {
			continue
		}

		taskID, hasTask := ev.TaskID()

		if hasTask && taskID == currentTask && ev.Author == currentAuth {
			sameTask = append(sameTask, ev)
			continue
		}

		flushTask()

		if hasTask {
			sameTask = []event.Event{ev}
			currentAuth = ev.Author
			currentTask = taskID
		} else {
			processed = append(processed, ev)
			currentAuth = ""
			currentTask = ""
		}
	}

	flushTask()
	return processed
}
