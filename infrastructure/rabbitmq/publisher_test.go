package rabbitmq

import (
	"context"
	"encoding/json"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	closed   bool
}

func (c *captureChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange, c.key, c.msg = exchange, key, msg
	return nil
}

func (c *captureChannel) Close() error {
	c.closed = true
	return nil
}

func TestPublisher_PublishesPersistentJSON(t *testing.T) {
	ch := &captureChannel{}
	p := &Publisher{ch: ch, exchange: "crm.followup", appID: "azcrm-test"}

	err := p.Publish(context.Background(), "followup.task.sent", map[string]string{"task_id": "t-1"})
	require.NoError(t, err)

	assert.Equal(t, "crm.followup", ch.exchange)
	assert.Equal(t, "followup.task.sent", ch.key)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, "azcrm-test", ch.msg.AppId)

	var body map[string]string
	require.NoError(t, json.Unmarshal(ch.msg.Body, &body))
	assert.Equal(t, "t-1", body["task_id"])

	p.Close()
	assert.True(t, ch.closed)
}

func TestPublisher_RejectsUnencodablePayload(t *testing.T) {
	p := &Publisher{ch: &captureChannel{}, exchange: "crm.followup"}
	err := p.Publish(context.Background(), "followup.task.failed", func() {})
	assert.Error(t, err)
}
