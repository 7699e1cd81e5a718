package outbox

import (
	"context"
	"encoding/json"
	"time"

	"example.com/fitsync/internal/domain"
	"example.com/fitsync/internal/events"
)

// CommandPublisher writes sync and report commands to the command topic.
// Commands are not persisted first; a failed write is returned to the caller.
type CommandPublisher struct {
	producer messageWriter
	framer   *framer
	topic    string
	now      func() time.Time
}

// NewCommandPublisher constructs a publisher for topic.
func NewCommandPublisher(producer messageWriter, registry schemaRegistrar, topic string) *CommandPublisher {
	return &CommandPublisher{
		producer: producer,
		framer:   newFramer(registry),
		topic:    topic,
		now:      time.Now,
	}
}

// RequestSync asks the consumer to run a backfill, clearing the flag first when reset is set.
func (p *CommandPublisher) RequestSync(ctx context.Context, reset bool) error {
	return p.publish(ctx, events.TypeSyncRequested, "sync", events.SyncRequested{
		RequestedAt: p.now().UTC(),
		Reset:       reset,
	})
}

// RequestReport asks the consumer to rebuild the report for tf.
func (p *CommandPublisher) RequestReport(ctx context.Context, tf domain.TimeFrame) error {
	return p.publish(ctx, events.TypeReportRequested, "report", events.ReportRequested{
		TimeFrame:   tf.String(),
		RequestedAt: p.now().UTC(),
	})
}

func (p *CommandPublisher) publish(ctx context.Context, eventType, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	record, err := p.framer.message(ctx, eventType, p.topic+"-value", key, body)
	if err != nil {
		return err
	}
	return p.producer.WriteMessages(ctx, p.topic, record)
}
