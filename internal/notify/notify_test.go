package notify

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventTime = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func TestCreated_Encode(t *testing.T) {
	got := Created{OrderID: 42, Timestamp: eventTime}.Encode()
	assert.JSONEq(t, `{"OrderId":42,"Timestamp":"2024-05-06T07:08:09Z"}`, string(got))

	back, err := Decode(got)
	require.NoError(t, err)
	assert.Equal(t, int64(42), back.OrderID)
	assert.True(t, eventTime.Equal(back.Timestamp))
}

func TestCreated_EncodeNormalizesToUTC(t *testing.T) {
	local := eventTime.In(time.FixedZone("UTC-5", -5*60*60))
	got := Created{OrderID: 1, Timestamp: local}.Encode()
	assert.JSONEq(t, `{"OrderId":1,"Timestamp":"2024-05-06T07:08:09Z"}`, string(got))
}

type fakeRedis struct {
	channel string
	message any
	err     error
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message any) *redis.IntCmd {
	f.channel = channel
	f.message = message
	return redis.NewIntResult(1, f.err)
}

func (f *fakeRedis) Close() error { return nil }

func TestRedis_OrderCreated(t *testing.T) {
	client := &fakeRedis{}
	pub := newRedis(client, "")

	require.NoError(t, pub.OrderCreated(context.Background(), 7, eventTime))
	assert.Equal(t, DefaultChannel, client.channel)
	assert.JSONEq(t, `{"OrderId":7,"Timestamp":"2024-05-06T07:08:09Z"}`, string(client.message.([]byte)))
}

func TestRedis_OrderCreated_Error(t *testing.T) {
	client := &fakeRedis{err: errors.New("connection refused")}
	pub := newRedis(client, "orders")

	err := pub.OrderCreated(context.Background(), 7, eventTime)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish to orders")
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error { return nil }

func TestKafka_OrderCreated(t *testing.T) {
	w := &fakeWriter{}
	pub := &Kafka{writer: w}

	require.NoError(t, pub.OrderCreated(context.Background(), 99, eventTime))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "99", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"OrderId":99,"Timestamp":"2024-05-06T07:08:09Z"}`, string(w.msgs[0].Value))
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.OrderCreated(context.Background(), 1, eventTime))
}
