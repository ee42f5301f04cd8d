package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dmayes77/clientflow-sub001/pkg/channels/gochannel"
	"github.com/dmayes77/clientflow-sub001/pkg/channels/kafka"
	"github.com/dmayes77/clientflow-sub001/pkg/eventbus"
)

const (
	EventBusGoChannel = "gochannel"
	EventBusKafka     = "kafka"
)

// EventBusOptions selects and configures the event bus provider.
type EventBusOptions struct {
	Provider      string
	KafkaBrokers  string
	ConsumerGroup string
	OTELEnabled   bool
}

// NewEventBus creates the watermill event bus for the provider. An empty provider
// means gochannel.
func NewEventBus(opts EventBusOptions, logger *slog.Logger) (*eventbus.WatermillEventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch opts.Provider {
	case EventBusKafka:
		pub, sub, err := kafka.CreateChannel(wmLogger, kafka.Options{
			Brokers:       opts.KafkaBrokers,
			ConsumerGroup: opts.ConsumerGroup,
			OTELEnabled:   opts.OTELEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	case EventBusGoChannel, "":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", opts.Provider)
	}
}
