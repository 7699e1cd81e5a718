package outbox

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/fitsync/internal/events"
)

type schemaRegistrar interface {
	EnsureSchema(context.Context, string, string) (int, error)
}

// framer resolves schema IDs once per subject and schema and wraps payloads
// in the Confluent wire format.
type framer struct {
	registry      schemaRegistrar
	schemaIDCache sync.Map
}

func newFramer(registry schemaRegistrar) *framer {
	return &framer{registry: registry}
}

func (f *framer) schemaID(ctx context.Context, eventType, subject string) (int, error) {
	meta, ok := schemaCatalog[eventType]
	if !ok {
		return 0, fmt.Errorf("no schema metadata for event_type=%s", eventType)
	}

	cacheKey := fmt.Sprintf("%s::%s", subject, meta.Schema)
	if id, found := f.schemaIDCache.Load(cacheKey); found {
		return id.(int), nil
	}

	id, err := f.registry.EnsureSchema(ctx, subject, meta.Schema)
	if err != nil {
		return 0, err
	}
	f.schemaIDCache.Store(cacheKey, id)
	return id, nil
}

// message builds a framed record carrying the event_type and schema_subject
// headers the consumer dispatches on.
func (f *framer) message(ctx context.Context, eventType, subject, key string, payload []byte) (kafka.Message, error) {
	id, err := f.schemaID(ctx, eventType, subject)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: encodeWireFormat(id, payload),
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "schema_subject", Value: []byte(subject)},
		},
	}, nil
}

// encodeWireFormat applies Confluent framing for Schema Registry aware payloads.
func encodeWireFormat(schemaID int, payload []byte) []byte {
	frame := make([]byte, 5+len(payload))
	frame[0] = 0
	binary.BigEndian.PutUint32(frame[1:5], uint32(schemaID))
	copy(frame[5:], payload)
	return frame
}

// SchemaCatalogEntry maps event type to schema definition.
type SchemaCatalogEntry struct {
	Schema string
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	events.TypeWorkoutCached: {
		Schema: workoutCachedSchema,
	},
	events.TypeSyncRequested: {
		Schema: syncRequestedSchema,
	},
	events.TypeReportRequested: {
		Schema: reportRequestedSchema,
	},
}
