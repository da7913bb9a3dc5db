package google

import (
	"context"
	"testing"

	"solarbooks/internal/core"
)

func TestIndexRows(t *testing.T) {
	values := [][]any{
		{"ID", "Description"},
		{"cc-1", "Panels"},
		{},
		{" rent ", "Rent"},
		{"cc-1", "duplicate"},
		{""},
	}
	got := indexRows(values)
	if len(got) != 2 || got["cc-1"] != 2 || got["rent"] != 4 {
		t.Errorf("indexRows() = %v", got)
	}
}

func TestRowRange(t *testing.T) {
	if lastColumn() != "L" {
		t.Fatalf("lastColumn() = %s", lastColumn())
	}
	if got := rowRange("Ledger", 7); got != "Ledger!A7:L7" {
		t.Errorf("rowRange() = %s", got)
	}
	if h := headerRow(); len(h) != 12 || h[0] != "ID" {
		t.Errorf("headerRow() = %v", h)
	}
}

func TestClientWithoutService(t *testing.T) {
	c := &Client{sheetName: "Ledger"}
	if err := c.Upsert(context.Background(), []core.LedgerEntry{{ID: "a"}}); err == nil {
		t.Error("Upsert() should fail without a service")
	}
	if err := c.Remove(context.Background(), []string{"a"}); err == nil {
		t.Error("Remove() should fail without a service")
	}
}

func TestNew_RequiresSpreadsheet(t *testing.T) {
	if _, err := New(context.Background(), "  ", "Ledger"); err == nil {
		t.Error("New() should reject an empty spreadsheet id")
	}
}
