package domain

import "fmt"

// EventProjection is the event state implied by a task outcome.
type EventProjection struct {
	Status EventStatus
	Notes  string
}

// ProjectTaskOutcome maps a terminal task onto its event. ok is false for
// tasks that are still PENDING or PROCESSING.
func ProjectTaskOutcome(task Task) (EventProjection, bool) {
	switch task.Status {
	case TaskSent:
		notes := "Sent automatically"
		if i := task.SelectedOptionIndex; i != nil && *i >= 0 && *i < len(task.DeliveryOptions) {
			opt := task.DeliveryOptions[*i]
			notes = fmt.Sprintf("Sent automatically via %s (%s)", opt.Channel, opt.Preference)
		}
		return EventProjection{Status: EventCompleted, Notes: notes}, true
	case TaskCancelled:
		return EventProjection{Status: EventCancelled, Notes: orDefault(task.LastError, NoteStatusChanged)}, true
	case TaskFailed:
		return EventProjection{Status: EventReady, Notes: "Automatic send failed: " + orDefault(task.LastError, "unknown error")}, true
	case TaskSkipped:
		return EventProjection{Status: EventReady, Notes: "Automatic send skipped: " + orDefault(task.LastError, ReasonNoCompatibleContact)}, true
	}
	return EventProjection{}, false
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
