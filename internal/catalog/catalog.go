package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/macropulse/internal/contracts"
)

// DefaultPath 기본 카탈로그 위치
const DefaultPath = "config/catalog.yaml"

// Catalog is the immutable, ordered set of tracked indicators
// ⭐ SSOT: 지표 목록 (로드 후 변경 불가)
type Catalog struct {
	defs  []contracts.IndicatorDefinition
	index map[string]int
}

type file struct {
	Indicators []entry `yaml:"indicators"`
}

type entry struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Category    string   `yaml:"category"`
	Source      string   `yaml:"source"`
	Frequency   string   `yaml:"frequency"`
	Unit        string   `yaml:"unit"`
	Scale       *float64 `yaml:"scale"`
	ChangeUnits string   `yaml:"change_units"`
}

// Load reads a catalog YAML file. Every failure is a *contracts.ConfigError.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &contracts.ConfigError{Source: path, Message: "cannot read catalog", Err: err}
	}
	return Parse(path, data)
}

// Parse decodes and validates catalog YAML
// KnownFields(true): 오타 필드 즉시 실패
func Parse(source string, data []byte) (*Catalog, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &contracts.ConfigError{Source: source, Message: "empty catalog"}
		}
		return nil, &contracts.ConfigError{Source: source, Message: "malformed catalog YAML", Err: err}
	}

	if len(f.Indicators) == 0 {
		return nil, &contracts.ConfigError{Source: source, Field: "indicators", Message: "at least one indicator required"}
	}

	defs := make([]contracts.IndicatorDefinition, 0, len(f.Indicators))
	for i, e := range f.Indicators {
		def, err := e.definition()
		if err != nil {
			err.Source = source
			err.Field = fmt.Sprintf("indicators[%d].%s", i, err.Field)
			return nil, err
		}
		defs = append(defs, def)
	}

	return New(defs, source)
}

// New builds a catalog from definitions, rejecting duplicate keys
func New(defs []contracts.IndicatorDefinition, source string) (*Catalog, error) {
	c := &Catalog{
		defs:  make([]contracts.IndicatorDefinition, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	copy(c.defs, defs)

	for i, d := range c.defs {
		if _, dup := c.index[d.Key]; dup {
			return nil, &contracts.ConfigError{
				Source:  source,
				Field:   fmt.Sprintf("indicators[%d].key", i),
				Message: fmt.Sprintf("duplicate key %q", d.Key),
			}
		}
		c.index[d.Key] = i
	}
	return c, nil
}

func (e entry) definition() (contracts.IndicatorDefinition, *contracts.ConfigError) {
	required := map[string]string{
		"key":       e.Key,
		"name":      e.Name,
		"category":  e.Category,
		"source":    e.Source,
		"frequency": e.Frequency,
	}
	for _, field := range []string{"key", "name", "category", "source", "frequency"} {
		if required[field] == "" {
			return contracts.IndicatorDefinition{}, &contracts.ConfigError{Field: field, Message: "required"}
		}
	}

	category := contracts.Category(e.Category)
	if !category.Valid() {
		return contracts.IndicatorDefinition{}, &contracts.ConfigError{Field: "category", Message: fmt.Sprintf("unknown category %q", e.Category)}
	}

	frequency := contracts.Frequency(e.Frequency)
	if !frequency.Valid() {
		return contracts.IndicatorDefinition{}, &contracts.ConfigError{Field: "frequency", Message: fmt.Sprintf("unknown frequency %q", e.Frequency)}
	}

	if _, _, ok := contracts.SplitSource(e.Source); !ok {
		return contracts.IndicatorDefinition{}, &contracts.ConfigError{Field: "source", Message: fmt.Sprintf("%q is not provider:series", e.Source)}
	}

	scale := 1.0
	if e.Scale != nil {
		if *e.Scale <= 0 {
			return contracts.IndicatorDefinition{}, &contracts.ConfigError{Field: "scale", Message: "must be > 0"}
		}
		scale = *e.Scale
	}

	units := contracts.ChangeAbsolute
	if e.ChangeUnits != "" {
		units = contracts.ChangeUnits(e.ChangeUnits)
		if !units.Valid() {
			return contracts.IndicatorDefinition{}, &contracts.ConfigError{Field: "change_units", Message: fmt.Sprintf("unknown change units %q", e.ChangeUnits)}
		}
	}

	return contracts.IndicatorDefinition{
		Key:         e.Key,
		Name:        e.Name,
		Category:    category,
		Source:      e.Source,
		Frequency:   frequency,
		Unit:        e.Unit,
		Scale:       scale,
		ChangeUnits: units,
	}, nil
}

// All returns every definition in declaration order
func (c *Catalog) All() []contracts.IndicatorDefinition {
	out := make([]contracts.IndicatorDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

// IndicatorsIn returns the definitions of one category in declaration order
func (c *Catalog) IndicatorsIn(category contracts.Category) []contracts.IndicatorDefinition {
	var out []contracts.IndicatorDefinition
	for _, d := range c.defs {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// Lookup finds a definition by key
func (c *Catalog) Lookup(key string) (contracts.IndicatorDefinition, bool) {
	i, ok := c.index[key]
	if !ok {
		return contracts.IndicatorDefinition{}, false
	}
	return c.defs[i], true
}

// Keys returns every key in declaration order
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.defs))
	for i, d := range c.defs {
		keys[i] = d.Key
	}
	return keys
}

// Select returns the definitions of keys, in catalog declaration order.
// Unknown keys are reported in missing.
func (c *Catalog) Select(keys []string) (defs []contracts.IndicatorDefinition, missing []string) {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		if _, ok := c.index[k]; !ok {
			missing = append(missing, k)
			continue
		}
		want[k] = true
	}
	for _, d := range c.defs {
		if want[d.Key] {
			defs = append(defs, d)
		}
	}
	return defs, missing
}

// Len returns the number of indicators
func (c *Catalog) Len() int {
	return len(c.defs)
}
