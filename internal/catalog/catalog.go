// Package catalog holds the read-only category and card configuration the
// ledger engine consults. It is loaded once and passed to whoever needs it.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"solarbooks/internal/core"
)

// UncategorizedLabel is shown for entries whose category is unknown.
const UncategorizedLabel = "Uncategorized"

var ErrDuplicate = errors.New("duplicate catalog key")

type categoryRecord struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	Kind            string `yaml:"kind"`
	Classification  string `yaml:"classification"`
	ManagerialGroup string `yaml:"managerial_group"`
	ShowInStatement *bool  `yaml:"show_in_statement"`
	Active          *bool  `yaml:"active"`
}

type cardRecord struct {
	Name       string `yaml:"name"`
	Holder     string `yaml:"holder"`
	ClosingDay int    `yaml:"closing_day"`
	DueDay     int    `yaml:"due_day"`
}

type file struct {
	Categories []categoryRecord `yaml:"categories"`
	Cards      []cardRecord     `yaml:"cards"`
}

// Catalog bundles the category and card readers.
type Catalog struct {
	Categories *Categories
	Cards      *Cards
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML bytes. Flags left out default to true.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	cats := make([]core.Category, 0, len(f.Categories))
	for _, r := range f.Categories {
		cats = append(cats, core.Category{
			ID:              strings.TrimSpace(r.ID),
			Name:            strings.TrimSpace(r.Name),
			Kind:            core.Kind(strings.ToLower(strings.TrimSpace(r.Kind))),
			Classification:  r.Classification,
			ManagerialGroup: strings.TrimSpace(r.ManagerialGroup),
			ShowInStatement: boolOr(r.ShowInStatement, true),
			Active:          boolOr(r.Active, true),
		})
	}
	cards := make([]core.CardConfig, 0, len(f.Cards))
	for _, r := range f.Cards {
		cards = append(cards, core.CardConfig{
			Name:       strings.TrimSpace(r.Name),
			Holder:     strings.TrimSpace(r.Holder),
			ClosingDay: r.ClosingDay,
			DueDay:     r.DueDay,
		})
	}
	return New(cats, cards)
}

// New validates and indexes the given records.
func New(categories []core.Category, cards []core.CardConfig) (*Catalog, error) {
	cs, err := NewCategories(categories)
	if err != nil {
		return nil, err
	}
	cc, err := NewCards(cards)
	if err != nil {
		return nil, err
	}
	return &Catalog{Categories: cs, Cards: cc}, nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// Categories is a read-only category lookup.
type Categories struct {
	list []core.Category
	byID map[string]core.Category
}

func NewCategories(list []core.Category) (*Categories, error) {
	c := &Categories{byID: make(map[string]core.Category, len(list))}
	for _, cat := range list {
		if cat.ID == "" {
			return nil, fmt.Errorf("category %q: empty id", cat.Name)
		}
		if !cat.Kind.Valid() {
			return nil, fmt.Errorf("category %s: %w", cat.ID, core.ErrInvalidKind)
		}
		if _, dup := c.byID[cat.ID]; dup {
			return nil, fmt.Errorf("category %s: %w", cat.ID, ErrDuplicate)
		}
		c.byID[cat.ID] = cat
		c.list = append(c.list, cat)
	}
	return c, nil
}

func (c *Categories) Get(id string) (core.Category, bool) {
	if c == nil {
		return core.Category{}, false
	}
	cat, ok := c.byID[id]
	return cat, ok
}

// Name returns the category name or UncategorizedLabel.
func (c *Categories) Name(id string) string {
	if cat, ok := c.Get(id); ok {
		return cat.Name
	}
	return UncategorizedLabel
}

// All returns the categories in declaration order.
func (c *Categories) All() []core.Category {
	if c == nil {
		return nil
	}
	out := make([]core.Category, len(c.list))
	copy(out, c.list)
	return out
}

// Cards is a read-only card lookup keyed by case-insensitive name.
type Cards struct {
	list   []core.CardConfig
	byName map[string]core.CardConfig
}

func NewCards(list []core.CardConfig) (*Cards, error) {
	c := &Cards{byName: make(map[string]core.CardConfig, len(list))}
	for _, card := range list {
		if err := card.Validate(); err != nil {
			return nil, fmt.Errorf("card %q: %w", card.Name, err)
		}
		key := normalize(card.Name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("card %s: %w", card.Name, ErrDuplicate)
		}
		c.byName[key] = card
		c.list = append(c.list, card)
	}
	return c, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (c *Cards) CardByName(name string) (core.CardConfig, bool) {
	if c == nil {
		return core.CardConfig{}, false
	}
	card, ok := c.byName[normalize(name)]
	return card, ok
}

// All returns the cards sorted by name.
func (c *Cards) All() []core.CardConfig {
	if c == nil {
		return nil
	}
	out := make([]core.CardConfig, len(c.list))
	copy(out, c.list)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
