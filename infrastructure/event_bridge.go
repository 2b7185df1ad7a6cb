package infrastructure

import (
	"context"

	"economy/events"
	"economy/service"

	log "github.com/sirupsen/logrus"
)

// BridgeToSink forwards committed bus events to sink. With no types given every
// economy event is forwarded. Sink failures are logged; the originating
// transaction has already committed.
func BridgeToSink(bus *events.Bus, sink service.EventSink, types ...events.EventType) {
	if len(types) == 0 {
		types = events.AllEventTypes()
	}

	for _, eventType := range types {
		bus.Subscribe(eventType, func(ctx context.Context, event events.Event) {
			if err := sink.Publish(ctx, string(event.Type()), event); err != nil {
				log.WithFields(log.Fields{
					"eventType": event.Type(),
					"error":     err,
				}).Error("Failed to forward event to sink")
			}
		})
	}

	log.WithField("eventTypes", types).Info("Bridged event bus to sink")
}
