package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sapp/internal/platform/kafka/producer"
	audit "sapp/pkg/platform/audit"
)

type captureProducer struct {
	msgs []*producer.Message
	err  error
}

func (c *captureProducer) Produce(_ context.Context, msg *producer.Message) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestStoreAppendProducesKeyedJSON(t *testing.T) {
	p := &captureProducer{}
	store := New(p, "sapp.audit")
	eventID := uuid.New()

	err := store.Append(context.Background(), audit.Event{
		ID:        eventID,
		Action:    string(audit.EventCredentialScanned),
		SubjectID: "abc123",
		Verdict:   "EXPIRED",
	})
	require.NoError(t, err)
	require.Len(t, p.msgs, 1)

	msg := p.msgs[0]
	assert.Equal(t, "sapp.audit", msg.Topic)
	assert.Equal(t, eventID.String(), string(msg.Key))
	assert.Equal(t, "credential_scanned", msg.Headers["action"])

	var decoded audit.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "EXPIRED", decoded.Verdict)
	assert.Equal(t, "abc123", decoded.SubjectID)
}

func TestStoreAppendAssignsMissingID(t *testing.T) {
	p := &captureProducer{}
	require.NoError(t, New(p, "t").Append(context.Background(), audit.Event{Action: "x"}))
	_, err := uuid.Parse(string(p.msgs[0].Key))
	assert.NoError(t, err)
}

func TestStoreAppendWrapsProducerError(t *testing.T) {
	p := &captureProducer{err: errors.New("broker down")}
	err := New(p, "t").Append(context.Background(), audit.Event{Action: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish audit event")
}
