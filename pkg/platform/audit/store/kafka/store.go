// Package kafka publishes audit events to a Kafka topic for downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"sapp/internal/platform/kafka/producer"
	audit "sapp/pkg/platform/audit"
)

// Producer is the subset of producer.Producer used by the store.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Store implements audit.Store by producing one JSON record per event, keyed by event ID.
type Store struct {
	producer Producer
	topic    string
}

func New(p Producer, topic string) *Store {
	return &Store{producer: p, topic: topic}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	msg := &producer.Message{
		Topic: s.topic,
		Key:   []byte(event.ID.String()),
		Value: value,
		Headers: map[string]string{
			"action": event.Action,
		},
	}
	if err := s.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}
