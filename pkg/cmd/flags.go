package cmd

import (
	cli "github.com/urfave/cli/v3"
)

// CommonFlags are accepted by every binary.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Database connection URL (postgres://... or a file store directory)",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   EventBusGoChannel,
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka broker list",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "kafka-consumer-group",
			Usage:   "Kafka consumer group",
			Sources: cli.EnvVars("KAFKA_CONSUMER_GROUP"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL for per-entity status locks (in-process locks when empty)",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.StringFlag{
			Name:    "app-url",
			Usage:   "Public application URL used in email links",
			Sources: cli.EnvVars("APP_URL"),
		},
		&cli.StringFlag{
			Name:    "resend-api-key",
			Usage:   "Resend API key (emails are logged when empty)",
			Sources: cli.EnvVars("RESEND_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "from-email",
			Usage:   "Sender address for outgoing email",
			Sources: cli.EnvVars("FROM_EMAIL"),
		},
		&cli.StringFlag{
			Name:    "seed-file",
			Usage:   "YAML file overriding the built-in tenant seed",
			Sources: cli.EnvVars("SEED_FILE"),
		},
		&cli.StringFlag{
			Name:    "plugins-path",
			Usage:   "Path to the directory containing action plugins",
			Value:   "./plugins",
			Sources: cli.EnvVars("PLUGINS_PATH"),
		},
		&cli.BoolFlag{
			Name:    "otel-enabled",
			Usage:   "Export traces over OTLP",
			Sources: cli.EnvVars("OTEL_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
	}
}

// OptionsFromCommand reads CommonFlags.
func OptionsFromCommand(command *cli.Command, serviceName string) Options {
	return Options{
		ServiceName:  serviceName,
		DatabaseURL:  command.String("database-url"),
		PluginsPath:  command.String("plugins-path"),
		RedisURL:     command.String("redis-url"),
		AppURL:       command.String("app-url"),
		ResendAPIKey: command.String("resend-api-key"),
		FromEmail:    command.String("from-email"),
		SeedFile:     command.String("seed-file"),
		OTELEnabled:  command.Bool("otel-enabled"),
		EventBus: EventBusOptions{
			Provider:      command.String("event-bus"),
			KafkaBrokers:  command.String("kafka-brokers"),
			ConsumerGroup: command.String("kafka-consumer-group"),
			OTELEnabled:   command.Bool("otel-enabled"),
		},
	}
}
