package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"solarbooks/internal/amqp"
	"solarbooks/internal/events"
	"solarbooks/internal/kafka"
	"solarbooks/internal/storage"
	"solarbooks/internal/storage/memory"
	"solarbooks/internal/storage/postgres"
)

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.openStore(ctx, config)
	if err != nil {
		return nil, err
	}

	publisher, err := f.openPublisher(config)
	if err != nil {
		// The ledger still works without events; the mirror just falls behind.
		f.logger.Warn("Failed to initialize event publisher, continuing without events",
			"events", config.Events, "error", err)
		publisher = events.Nop{}
	}

	return &Result{
		Store:     store,
		Publisher: publisher,
		Cleanup: func() error {
			return errors.Join(publisher.Close(), store.Close())
		},
	}, nil
}

func (f *DefaultFactory) openStore(ctx context.Context, config Config) (storage.LedgerStore, error) {
	switch config.Store {
	case SQLiteStore:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresStore:
		pg, err := postgres.Open(ctx, config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		f.logger.Info("Initialized postgres store")
		return pg, nil
	case MemoryStore:
		f.logger.Info("Initialized memory store")
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unsupported store type: %s", config.Store)
}

func (f *DefaultFactory) openPublisher(config Config) (events.Publisher, error) {
	switch config.Events {
	case AMQPEvents:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("connect to AMQP: %w", err)
		}
		f.logger.Info("Initialized AMQP publisher", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
		return client, nil
	case KafkaEvents:
		f.logger.Info("Initialized Kafka publisher", "brokers", config.KafkaBrokers, "topic", config.KafkaTopic)
		return kafka.NewPublisher(config.KafkaBrokers, config.KafkaTopic), nil
	}
	return events.Nop{}, nil
}
