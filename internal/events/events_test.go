package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/rowflow/internal/models"
)

type fakeChannel struct {
	exchange  string
	key       string
	published []amqp091.Publishing
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.exchange = exchange
	f.key = key
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func testEntry() models.Entry {
	return models.Entry{
		Date:        "2024-04-20",
		DistanceKM:  models.Some(6.5),
		SessionType: models.SessionWater,
		CreatedAt:   time.Date(2024, 4, 20, 6, 0, 0, 0, time.UTC),
	}
}

func TestNewEntryLogged(t *testing.T) {
	msg := NewEntryLogged("abc", testEntry())
	require.NotNil(t, msg.DistanceKM)
	assert.Equal(t, 6.5, *msg.DistanceKM)
	assert.Equal(t, "Water", msg.SessionType)

	msg = NewEntryLogged("abc", models.Entry{Date: "2024-04-20"})
	assert.Nil(t, msg.DistanceKM)

	body, err := msg.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"distance_km":null`)
}

func TestAMQPPublisher_PublishEntryLogged(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{channel: ch, exchange: "rowflow"}

	require.NoError(t, p.PublishEntryLogged(context.Background(), NewEntryLogged("abc", testEntry())))
	require.Len(t, ch.published, 1)
	assert.Equal(t, "rowflow", ch.exchange)
	assert.Equal(t, RoutingKeyEntryLogged, ch.key)
	assert.Equal(t, "application/json", ch.published[0].ContentType)
	assert.Equal(t, amqp091.Persistent, ch.published[0].DeliveryMode)

	got, err := EntryLoggedFromJSON(ch.published[0].Body)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.StorageID)
	assert.Equal(t, "2024-04-20", got.Date)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestAMQPPublisher_PublishError(t *testing.T) {
	boom := errors.New("channel closed")
	p := &AMQPPublisher{channel: &fakeChannel{err: boom}, exchange: "rowflow"}

	err := p.PublishEntryLogged(context.Background(), NewEntryLogged("abc", testEntry()))
	assert.ErrorIs(t, err, boom)
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.PublishEntryLogged(context.Background(), nil))
	assert.NoError(t, p.Close())
}
