package infrastructure

import (
	"strings"

	"economy/events"
)

const (
	subjectPrefix = "economy."

	// EventStreamName is the JetStream stream that retains economy events
	EventStreamName = "economy_events"
)

// EventSubjectMapper maps event names to NATS subjects and back
type EventSubjectMapper struct{}

func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// SubjectFor returns the subject an event name is published on
func (m *EventSubjectMapper) SubjectFor(eventName string) string {
	return subjectPrefix + eventName
}

// EventTypeFor converts a subject back to the event type, or "" for foreign subjects
func (m *EventSubjectMapper) EventTypeFor(subject string) events.EventType {
	name, ok := strings.CutPrefix(subject, subjectPrefix)
	if !ok {
		return ""
	}
	return events.EventType(name)
}

// AllSubjects returns the subjects for every event the economy emits
func (m *EventSubjectMapper) AllSubjects() []string {
	types := events.AllEventTypes()
	subjects := make([]string, 0, len(types))
	for _, eventType := range types {
		subjects = append(subjects, m.SubjectFor(string(eventType)))
	}
	return subjects
}
