package grouping

import (
	"testing"

	"solarbooks/internal/core"
)

func TestParseCardTag(t *testing.T) {
	tests := []struct {
		name string
		desc string
		want CardTag
		ok   bool
	}{
		{"holder and card", "Panels [Ana (Visa)] (1/3)", CardTag{"Ana", "Visa", "Ana (Visa)"}, true},
		{"card only", "Fuel [Master]", CardTag{"Master", "Master", "Master"}, true},
		{"padded", "Fuel [  Bob ( Elo )  ]", CardTag{"Bob", "Elo", "Bob ( Elo )"}, true},
		{"unclosed paren", "Fuel [Bob (Elo]", CardTag{"Bob", "Elo", "Bob (Elo"}, true},
		{"no tag", "Fuel", CardTag{}, false},
		{"empty tag", "Fuel []", CardTag{}, false},
		{"unclosed bracket", "Fuel [Ana", CardTag{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCardTag(tt.desc)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseCardTag(%q) = %+v, %v; want %+v, %v", tt.desc, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestResolveCard_PrefersStructuredFields(t *testing.T) {
	e := core.LedgerEntry{ID: "cc-1", Description: "Panels [Old (Amex)]", CardName: "Visa", Holder: "Ana"}
	got, ok := ResolveCard(e)
	if !ok || got.CardName != "Visa" || got.Label != "Ana (Visa)" {
		t.Errorf("ResolveCard() = %+v, %v", got, ok)
	}

	e.CardName, e.Holder = "", ""
	got, ok = ResolveCard(e)
	if !ok || got.CardName != "Amex" || got.Holder != "Old" {
		t.Errorf("ResolveCard() fallback = %+v, %v", got, ok)
	}
}

func TestBackfillCardFields(t *testing.T) {
	entries := []core.LedgerEntry{
		{ID: "cc-1", Description: "Panels [Ana (Visa)]"},
		{ID: "cc-2", Description: "Fuel [Master]"},
		{ID: "cc-3", Description: "Edited by hand"},
		{ID: "cc-4", Description: "Bolts [Ana (Visa)]", CardName: "Visa", Holder: "Ana"},
		{ID: "plain", Description: "Rent [Office]"},
	}
	got := BackfillCardFields(entries)
	if len(got) != 2 {
		t.Fatalf("changed = %d, want 2", len(got))
	}
	if got[0].ID != "cc-1" || got[0].CardName != "Visa" || got[0].Holder != "Ana" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].ID != "cc-2" || got[1].CardName != "Master" || got[1].Holder != "" {
		t.Errorf("second = %+v", got[1])
	}
	if entries[0].CardName != "" {
		t.Errorf("input was mutated")
	}
}
