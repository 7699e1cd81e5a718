package consumer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	messagesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "consumer",
		Name:      "messages_total",
		Help:      "Kafka messages seen by the consumer, by topic, event type and outcome.",
	}, []string{"topic", "event_type", "outcome"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Messages committed without handling because the frame was unreadable.",
	}, []string{"topic"})

	lagGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fitsync",
		Subsystem: "consumer",
		Name:      "lag_seconds",
		Help:      "Age of the most recently handled message per topic.",
	}, []string{"topic"})

	triggerCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "consumer",
		Name:      "triggers_total",
		Help:      "Engine actions taken in response to messages.",
	}, []string{"action"})
)

func init() {
	prometheus.MustRegister(messagesCounter, decodeErrorCounter, lagGauge, triggerCounter)
}

const (
	outcomeProcessed    = "processed"
	outcomeHandlerError = "handler_error"

	actionRefreshReport = "refresh_report"
	actionBackfill      = "backfill"
	actionResetBackfill = "reset_backfill"
	actionRequestReport = "request_report"
	actionInFlight      = "backfill_in_flight"
	actionDropped       = "dropped"
)

func recordProcessed(msg Message, now time.Time) {
	messagesCounter.WithLabelValues(msg.Topic, msg.EventType, outcomeProcessed).Inc()
	if !msg.Timestamp.IsZero() {
		lagGauge.WithLabelValues(msg.Topic).Set(now.Sub(msg.Timestamp).Seconds())
	}
}

func recordHandlerError(msg Message) {
	messagesCounter.WithLabelValues(msg.Topic, msg.EventType, outcomeHandlerError).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}

func recordTrigger(action string) {
	triggerCounter.WithLabelValues(action).Inc()
}
