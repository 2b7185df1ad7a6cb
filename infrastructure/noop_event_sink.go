package infrastructure

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// NoopEventSink drops events. Used when no NATS servers are configured.
type NoopEventSink struct{}

func NewNoopEventSink() *NoopEventSink {
	return &NoopEventSink{}
}

func (s *NoopEventSink) Publish(ctx context.Context, eventName string, payload any) error {
	log.WithField("eventType", eventName).Debug("Dropping event, no sink configured")
	return nil
}
