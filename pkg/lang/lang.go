// Package lang holds the key → string translation tables used for engine
// messages ("form_filler.error_required", "validation_errors.maxLength", ...).
package lang

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Translator resolves a dotted key, interpolating {0}, {1}, ... placeholders.
type Translator interface {
	Translate(key string, params ...string) string
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(key string, params ...string) string

// Translate implements Translator.
func (f TranslatorFunc) Translate(key string, params ...string) string {
	return f(key, params...)
}

// MissingHandler is consulted when a key has no translation. Returning ""
// falls back to the key itself.
type MissingHandler func(key string) string

// Table is a nested translation document.
type Table struct {
	entries   map[string]any
	onMissing MissingHandler
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithMissingHandler sets the handler used for unknown keys.
func WithMissingHandler(h MissingHandler) TableOption {
	return func(t *Table) { t.onMissing = h }
}

// NewTable wraps a decoded nested document.
func NewTable(entries map[string]any, options ...TableOption) *Table {
	t := &Table{entries: entries}
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// ParseTable decodes a JSON translation document.
func ParseTable(data []byte, options ...TableOption) (*Table, error) {
	var entries map[string]any
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("lang: decode table: %w", err)
	}
	return NewTable(entries, options...), nil
}

// Lookup resolves a dotted key.
func (t *Table) Lookup(key string) (string, bool) {
	if t == nil {
		return "", false
	}
	var current any = t.entries
	for _, part := range strings.Split(key, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		if current, ok = node[part]; !ok {
			return "", false
		}
	}
	text, ok := current.(string)
	return text, ok
}

// Translate implements Translator. Unknown keys resolve to themselves.
func (t *Table) Translate(key string, params ...string) string {
	text, ok := t.Lookup(key)
	if !ok {
		if t != nil && t.onMissing != nil {
			if fallback := t.onMissing(key); fallback != "" {
				return Interpolate(fallback, params...)
			}
		}
		return key
	}
	return Interpolate(text, params...)
}

// Interpolate replaces {i} with params[i].
func Interpolate(text string, params ...string) string {
	for i, p := range params {
		text = strings.ReplaceAll(text, "{"+strconv.Itoa(i)+"}", p)
	}
	return text
}

//go:embed defaults/*.json
var defaults embed.FS

// Catalog selects a table for a requested language.
type Catalog struct {
	tags    []language.Tag
	tables  []*Table
	matcher language.Matcher
}

// NewCatalog builds a catalog from BCP 47 tag → table. The first tag in
// sorted order becomes the fallback unless "en" is present.
func NewCatalog(tables map[string]*Table) (*Catalog, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("lang: catalog needs at least one table")
	}
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i] == "en" || names[j] == "en" {
			return names[i] == "en"
		}
		return names[i] < names[j]
	})

	c := &Catalog{}
	for _, name := range names {
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("lang: tag %q: %w", name, err)
		}
		c.tags = append(c.tags, tag)
		c.tables = append(c.tables, tables[name])
	}
	c.matcher = language.NewMatcher(c.tags)
	return c, nil
}

// DefaultCatalog returns the built-in English and Norwegian Bokmål tables.
func DefaultCatalog() *Catalog {
	tables := make(map[string]*Table)
	for _, name := range []string{"en", "nb"} {
		data, err := defaults.ReadFile("defaults/" + name + ".json")
		if err != nil {
			panic(fmt.Sprintf("lang: embedded table %s: %v", name, err))
		}
		table, err := ParseTable(data)
		if err != nil {
			panic(fmt.Sprintf("lang: embedded table %s: %v", name, err))
		}
		tables[name] = table
	}
	catalog, err := NewCatalog(tables)
	if err != nil {
		panic(err)
	}
	return catalog
}

// Match picks the best table for an Accept-Language style preference list
// ("nb-NO, en;q=0.8"). Unparseable input yields the fallback table.
func (c *Catalog) Match(preference string) *Table {
	tags, _, err := language.ParseAcceptLanguage(preference)
	if err != nil || len(tags) == 0 {
		return c.tables[0]
	}
	_, index, _ := c.matcher.Match(tags...)
	return c.tables[index]
}

// Languages lists the catalog tags, fallback first.
func (c *Catalog) Languages() []string {
	out := make([]string, len(c.tags))
	for i, tag := range c.tags {
		out[i] = tag.String()
	}
	return out
}
