// Package backend builds the ledger store and event publisher selected by
// configuration.
package backend

import (
	"context"

	"solarbooks/internal/events"
	"solarbooks/internal/storage"
)

// CleanupFunc releases whatever the factory opened.
type CleanupFunc func() error

type Result struct {
	Store     storage.LedgerStore
	Publisher events.Publisher
	Cleanup   CleanupFunc
}

type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	Store  StoreType
	Events EventsType

	SQLiteDBPath string
	PostgresDSN  string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	KafkaBrokers []string
	KafkaTopic   string
}

type StoreType string

const (
	MemoryStore   StoreType = "memory"
	SQLiteStore   StoreType = "sqlite"
	PostgresStore StoreType = "postgres"
)

func (t StoreType) String() string { return string(t) }

func (t StoreType) IsValid() bool {
	switch t {
	case MemoryStore, SQLiteStore, PostgresStore:
		return true
	}
	return false
}

type EventsType string

const (
	NoEvents    EventsType = "none"
	AMQPEvents  EventsType = "amqp"
	KafkaEvents EventsType = "kafka"
)

func (t EventsType) String() string { return string(t) }

func (t EventsType) IsValid() bool {
	switch t {
	case NoEvents, AMQPEvents, KafkaEvents:
		return true
	}
	return false
}
