package backend

import (
	"context"
	"path/filepath"
	"testing"

	"solarbooks/internal/config"
	"solarbooks/internal/core"
	"solarbooks/internal/events"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory without events", Config{Store: MemoryStore, Events: NoEvents}, false},
		{"unknown store", Config{Store: "sheets", Events: NoEvents}, true},
		{"unknown events", Config{Store: MemoryStore, Events: "nats"}, true},
		{"sqlite needs path", Config{Store: SQLiteStore, Events: NoEvents}, true},
		{"postgres needs dsn", Config{Store: PostgresStore, Events: NoEvents}, true},
		{"amqp needs queue", Config{Store: MemoryStore, Events: AMQPEvents, AMQPURL: "amqp://x", AMQPExchange: "e"}, true},
		{"kafka complete", Config{Store: MemoryStore, Events: KafkaEvents, KafkaBrokers: []string{"k:9092"}, KafkaTopic: "t"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("nil config should fail")
	}
	c, err := FromAppConfig(&config.Config{DataBackend: "memory"})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if c.Events != NoEvents {
		t.Errorf("events = %q, want none", c.Events)
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	t.Run("memory", func(t *testing.T) {
		res, err := f.Create(ctx, Config{Store: MemoryStore, Events: NoEvents})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if _, ok := res.Publisher.(events.Nop); !ok {
			t.Errorf("publisher = %T, want events.Nop", res.Publisher)
		}
		if err := res.Cleanup(); err != nil {
			t.Errorf("Cleanup() error = %v", err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ledger.db")
		res, err := f.Create(ctx, Config{Store: SQLiteStore, Events: NoEvents, SQLiteDBPath: path})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		defer res.Cleanup()

		e := core.LedgerEntry{
			ID:            "e1",
			Description:   "Venda",
			Amount:        core.Cents(100),
			Kind:          core.Income,
			DueDate:       core.NewDate(2024, 1, 10),
			CategoryID:    "sales",
			BankAccountID: "acc",
			Status:        core.Pending,
		}
		if err := res.Store.Save(ctx, e); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if _, err := res.Store.Get(ctx, "e1"); err != nil {
			t.Errorf("Get() error = %v", err)
		}
	})
}
