package events

import (
	"context"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"go.uber.org/zap"
)

// LogWriter writes every event to the service log.
type LogWriter struct{}

func (s *LogWriter) Write(ctx context.Context, topic string, e cloudevents.Event) error {
	zap.S().Named("event_writer").Infow("event written",
		"topic", topic,
		"id", e.ID(),
		"type", e.Type(),
		"data", string(e.Data()),
	)
	return nil
}

func (s *LogWriter) Close(_ context.Context) error {
	return nil
}
