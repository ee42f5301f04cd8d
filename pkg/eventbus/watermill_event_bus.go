package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dmayes77/clientflow-sub001/pkg/events"
	"github.com/dmayes77/clientflow-sub001/pkg/otelhelper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type WatermillEventBus struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	tracer        trace.Tracer
	logger        *slog.Logger
	mu            sync.RWMutex
	subscriptions map[events.EventType]EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		tracer:        otelhelper.NoopTracer(),
		logger:        logger.With("module", "event_bus"),
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

// WithTracer sets the tracer used for consume spans.
func (eb *WatermillEventBus) WithTracer(tracer trace.Tracer) *WatermillEventBus {
	if tracer != nil {
		eb.tracer = tracer
	}

	return eb
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	for k, v := range carrier {
		msg.Metadata.Set(k, v)
	}

	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	eb.logger.DebugContext(ctx, "Publishing event", "key", key, "event_type", event.GetType())

	return eb.publisher.Publish(events.Topic, msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			eb.consume(ctx, msg)
		}
	}()

	return nil
}

func (eb *WatermillEventBus) consume(ctx context.Context, msg *message.Message) {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	msgCtx := otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(msg.Metadata))

	msgCtx, span := otelhelper.StartSpan(msgCtx, eb.tracer, "eventbus consume",
		attribute.String("messaging.message.key", msg.Metadata.Get(events.EventMetadataKey)),
		attribute.String("messaging.event_type", string(eventType)),
	)
	defer span.End()

	eb.mu.RLock()
	handler, exists := eb.subscriptions[eventType]
	eb.mu.RUnlock()

	if !exists {
		msg.Ack()

		return
	}

	event := events.Factory(eventType)
	if event == nil {
		eb.logger.ErrorContext(msgCtx, "Unknown event type", "event_type", eventType)
		msg.Ack()

		return
	}

	err := json.Unmarshal(msg.Payload, event)
	if err != nil {
		eb.logger.ErrorContext(msgCtx, "Failed to unmarshal event", "event_type", eventType, "error", err)
		otelhelper.SetError(span, err)
		msg.Ack()

		return
	}

	err = handler(msgCtx, event)
	if err != nil {
		eb.logger.ErrorContext(msgCtx, "Failed to handle event", "event_type", eventType, "error", err)
		otelhelper.SetError(span, err)
		msg.Nack()

		return
	}

	msg.Ack()
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}
