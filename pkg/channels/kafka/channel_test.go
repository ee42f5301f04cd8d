package kafka

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkaTc "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func TestParseBrokers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "single", input: "localhost:9092", want: []string{"localhost:9092"}},
		{name: "list with blanks", input: " a:9092, ,b:9092 ", want: []string{"a:9092", "b:9092"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, ParseBrokers(tt.input))
		})
	}
}

func TestCreateChannel_NoBrokers(t *testing.T) {
	t.Parallel()

	_, _, err := CreateChannel(watermill.NopLogger{}, Options{Brokers: " , "})
	assert.ErrorIs(t, err, ErrNoBrokers)
}

func TestCreateChannel_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka container test in short mode")
	}

	ctx := context.Background()

	container, err := kafkaTc.Run(ctx, "confluentinc/confluent-local:7.7.0", testcontainers.WithEnv(map[string]string{
		"KAFKA_CREATE_TOPICS": "true",
	}))
	require.NoError(t, err)

	defer func() {
		_ = container.Terminate(ctx)
	}()

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	logger := watermill.NewSlogLogger(slog.Default())

	pub, sub, err := CreateChannel(logger, Options{Brokers: brokers[0], ConsumerGroup: "cg-test"})
	require.NoError(t, err)

	defer func() {
		_ = pub.Close()
		_ = sub.Close()
	}()

	msg := message.NewMessage(watermill.NewULID(), []byte(`{"trigger":"booking_created"}`))
	msg.Metadata.Set("key", "tenant-1")

	require.NoError(t, pub.Publish("clientflow.test", msg))

	subCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	messages, err := sub.Subscribe(subCtx, "clientflow.test")
	require.NoError(t, err)

	select {
	case received := <-messages:
		received.Ack()
		assert.JSONEq(t, `{"trigger":"booking_created"}`, string(received.Payload))
		assert.Equal(t, "tenant-1", received.Metadata.Get("key"))
	case <-subCtx.Done():
		t.Fatal("timed out waiting for message")
	}
}
