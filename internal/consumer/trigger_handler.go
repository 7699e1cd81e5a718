package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"example.com/fitsync/internal/domain"
	"example.com/fitsync/internal/events"
)

// Triggers is the slice of the engine the handler drives.
type Triggers interface {
	StartBackfill() error
	ResetBackfill(ctx context.Context) error
	RequestReport(tf domain.TimeFrame)
	RefreshReport(force bool) bool
}

// TriggerHandler maps workout events and sync commands onto engine jobs.
type TriggerHandler struct {
	engine Triggers
	logger *zap.Logger
}

// NewTriggerHandler constructs a handler for engine.
func NewTriggerHandler(engine Triggers, logger *zap.Logger) *TriggerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TriggerHandler{engine: engine, logger: logger}
}

// Handle dispatches on the event type. Malformed payloads and unknown types
// are logged and acknowledged; only job submission failures are returned.
func (h *TriggerHandler) Handle(ctx context.Context, msg Message) error {
	logger := h.logger.With(zap.String("event_type", msg.EventType), zap.Int64("offset", msg.Offset))

	switch msg.EventType {
	case events.TypeWorkoutCached:
		h.engine.RefreshReport(true)
		recordTrigger(actionRefreshReport)
		return nil

	case events.TypeSyncRequested:
		var cmd events.SyncRequested
		if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
			logger.Warn("dropping malformed sync command", zap.Error(err))
			recordTrigger(actionDropped)
			return nil
		}
		action := actionBackfill
		var err error
		if cmd.Reset {
			action = actionResetBackfill
			err = h.engine.ResetBackfill(ctx)
		} else {
			err = h.engine.StartBackfill()
		}
		if errors.Is(err, domain.ErrJobInFlight) {
			logger.Debug("backfill already running")
			recordTrigger(actionInFlight)
			return nil
		}
		if err == nil {
			recordTrigger(action)
		}
		return err

	case events.TypeReportRequested:
		var cmd events.ReportRequested
		if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
			logger.Warn("dropping malformed report command", zap.Error(err))
			recordTrigger(actionDropped)
			return nil
		}
		tf, err := domain.ParseTimeFrame(cmd.TimeFrame)
		if err != nil {
			logger.Warn("dropping report command", zap.Error(err))
			recordTrigger(actionDropped)
			return nil
		}
		h.engine.RequestReport(tf)
		recordTrigger(actionRequestReport)
		return nil
	}

	logger.Debug("ignoring event")
	recordTrigger(actionDropped)
	return nil
}
