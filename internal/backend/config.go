package backend

import (
	"errors"
	"fmt"

	"solarbooks/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	c := Config{
		Store:        StoreType(appConfig.DataBackend),
		Events:       EventsType(appConfig.EventsBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		PostgresDSN:  appConfig.PostgresDSN,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
		KafkaBrokers: appConfig.KafkaBrokers,
		KafkaTopic:   appConfig.KafkaTopic,
	}
	if c.Events == "" {
		c.Events = NoEvents
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if !c.Store.IsValid() {
		return fmt.Errorf("invalid store type: %q", c.Store)
	}
	if !c.Events.IsValid() {
		return fmt.Errorf("invalid events type: %q", c.Events)
	}
	switch c.Store {
	case SQLiteStore:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite store")
		}
	case PostgresStore:
		if c.PostgresDSN == "" {
			return errors.New("postgres DSN is required for postgres store")
		}
	}
	switch c.Events {
	case AMQPEvents:
		if c.AMQPURL == "" || c.AMQPExchange == "" || c.AMQPQueue == "" {
			return errors.New("AMQP URL, exchange and queue are required for amqp events")
		}
	case KafkaEvents:
		if len(c.KafkaBrokers) == 0 || c.KafkaTopic == "" {
			return errors.New("kafka brokers and topic are required for kafka events")
		}
	}
	return nil
}
