package events

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	exchanges  []string
	queues     []string
	bindings   []string
	published  []amqp.Publishing
	keys       []string
	publishErr error
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	f.exchanges = append(f.exchanges, name+":"+kind)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	f.queues = append(f.queues, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	f.bindings = append(f.bindings, exchange+"/"+key+"->"+name)
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPPublisher(t *testing.T) {
	logger := zerolog.Nop()
	ch := &fakeChannel{}

	p, err := newAMQPPublisher(ch, "quicktable.events", "quicktable.audit", &logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"quicktable.events:topic"}, ch.exchanges)
	assert.Equal(t, []string{"quicktable.audit"}, ch.queues)
	assert.Equal(t, []string{"quicktable.events/#->quicktable.audit"}, ch.bindings)

	bus := NewEventBus()
	bus.SubscribeAll(p.Handle)

	created := time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC)
	bus.Publish(&Event{Type: EventReservationCreated, Payload: []byte(`{"reservation_id":"r1"}`), CreatedAt: created})

	require.Len(t, ch.published, 1)
	assert.Equal(t, []string{EventReservationCreated}, ch.keys)
	msg := ch.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, created, msg.Timestamp)
	assert.JSONEq(t, `{"reservation_id":"r1"}`, string(msg.Body))

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestAMQPPublisher_PublishError(t *testing.T) {
	logger := zerolog.Nop()
	ch := &fakeChannel{publishErr: errors.New("channel closed")}

	p, err := newAMQPPublisher(ch, "quicktable.events", "", &logger)
	require.NoError(t, err)
	assert.Empty(t, ch.queues)

	err = p.Handle(&Event{Type: EventReservationStatusChanged})
	assert.ErrorContains(t, err, "channel closed")
}
