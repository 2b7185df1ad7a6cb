package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const sourceService = "economy"

// EventEnvelope wraps every payload published to NATS
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// NATSEventSink publishes named payloads to JetStream
type NATSEventSink struct {
	natsClient    *NATSClient
	subjectMapper *EventSubjectMapper
}

// NewNATSEventSink creates a sink publishing through natsClient
func NewNATSEventSink(natsClient *NATSClient, subjectMapper *EventSubjectMapper) *NATSEventSink {
	return &NATSEventSink{
		natsClient:    natsClient,
		subjectMapper: subjectMapper,
	}
}

// Publish wraps payload in an envelope and publishes it on the event's subject
func (s *NATSEventSink) Publish(ctx context.Context, eventName string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventName, err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventName,
		Timestamp:     time.Now().UTC(),
		SourceService: sourceService,
		Payload:       data,
	}

	envelopeData, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := s.subjectMapper.SubjectFor(eventName)
	if err := s.natsClient.Publish(ctx, subject, envelopeData); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventName, err)
	}

	log.WithFields(log.Fields{
		"eventType": eventName,
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Published event to NATS")
	return nil
}

// EnsureEventStream creates the stream covering every economy subject
func (s *NATSEventSink) EnsureEventStream() error {
	return s.natsClient.EnsureStream(EventStreamName, s.subjectMapper.AllSubjects())
}
