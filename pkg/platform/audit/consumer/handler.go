package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"sapp/internal/platform/kafka/consumer"
	audit "sapp/pkg/platform/audit"
)

// Handler processes audit events from Kafka and writes them to a durable store.
// It implements consumer.Handler.
type Handler struct {
	store  audit.Store
	logger *slog.Logger
}

// NewHandler creates a new audit event consumer handler.
func NewHandler(store audit.Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// Handle stores a single audit record. Malformed records are logged and
// acknowledged; store failures are returned so the record is redelivered.
func (h *Handler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, err := uuid.Parse(string(msg.Key))
	if err != nil {
		h.logger.Error("failed to parse event ID from message key",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	var event audit.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("failed to unmarshal audit payload",
			"event_id", eventID,
			"error", err,
		)
		return nil
	}
	event.ID = eventID
	if event.Timestamp.IsZero() {
		event.Timestamp = msg.Timestamp
	}

	if err := h.store.Append(ctx, event); err != nil {
		h.logger.Error("failed to store audit event",
			"event_id", eventID,
			"action", event.Action,
			"error", err,
		)
		return fmt.Errorf("store audit event: %w", err)
	}

	h.logger.Debug("stored audit event",
		"event_id", eventID,
		"action", event.Action,
	)
	return nil
}
