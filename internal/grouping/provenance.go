package grouping

import (
	"strings"

	"solarbooks/internal/core"
)

// CardTag is the card provenance of an entry.
type CardTag struct {
	Holder   string
	CardName string
	Label    string // "holder (card)" or just the card name
}

// ParseCardTag extracts the bracketed provenance tag from a description.
// "Panels [Ana (Visa)] (1/3)" yields holder "Ana", card "Visa" and label
// "Ana (Visa)". Without a parenthesis the whole bracket is holder, card and label.
func ParseCardTag(description string) (CardTag, bool) {
	open := strings.IndexByte(description, '[')
	if open < 0 {
		return CardTag{}, false
	}
	end := strings.IndexByte(description[open+1:], ']')
	if end < 0 {
		return CardTag{}, false
	}
	label := strings.TrimSpace(description[open+1 : open+1+end])
	if label == "" {
		return CardTag{}, false
	}

	tag := CardTag{Holder: label, CardName: label, Label: label}
	if p := strings.IndexByte(label, '('); p >= 0 {
		tag.Holder = strings.TrimSpace(label[:p])
		inner := label[p+1:]
		if q := strings.IndexByte(inner, ')'); q >= 0 {
			inner = inner[:q]
		}
		tag.CardName = strings.TrimSpace(inner)
		if tag.Holder == "" {
			tag.Holder = tag.CardName
		}
	}
	return tag, tag.CardName != ""
}

func structuredTag(e core.LedgerEntry) (CardTag, bool) {
	name := strings.TrimSpace(e.CardName)
	if name == "" {
		return CardTag{}, false
	}
	holder := strings.TrimSpace(e.Holder)
	if holder == "" {
		return CardTag{Holder: name, CardName: name, Label: name}, true
	}
	return CardTag{Holder: holder, CardName: name, Label: holder + " (" + name + ")"}, true
}

// ResolveCard returns the card provenance of an entry, preferring the
// structured fields over the description tag.
func ResolveCard(e core.LedgerEntry) (CardTag, bool) {
	if tag, ok := structuredTag(e); ok {
		return tag, true
	}
	return ParseCardTag(e.Description)
}

// BackfillCardFields copies provenance from description tags into the
// structured fields of card entries that lack them. It returns only the
// entries that changed, ready to be saved.
func BackfillCardFields(entries []core.LedgerEntry) []core.LedgerEntry {
	var changed []core.LedgerEntry
	for _, e := range entries {
		if !e.IsCardSourced() || strings.TrimSpace(e.CardName) != "" {
			continue
		}
		tag, ok := ParseCardTag(e.Description)
		if !ok {
			continue
		}
		e.CardName = tag.CardName
		if tag.Holder != tag.CardName {
			e.Holder = tag.Holder
		}
		changed = append(changed, e)
	}
	return changed
}
