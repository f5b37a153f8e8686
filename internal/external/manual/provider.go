package manual

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/pkg/logger"
)

// ProviderName is the source prefix routed to this provider (manual:series)
const ProviderName = "manual"

// File is the manually maintained readings document
type File struct {
	AsOf     time.Time          `yaml:"as_of"`
	Readings map[string]Reading `yaml:"readings"`
}

// Reading is one manual entry. A nil Value means unavailable.
type Reading struct {
	Value  *float64 `yaml:"value"`
	Change *float64 `yaml:"change"`
	Label  string   `yaml:"label"`
}

// Provider serves readings from a YAML file for series without a free API.
// The file is re-read on every fetch so edits apply to the next run.
type Provider struct {
	path   string
	logger *logger.Logger
}

// NewProvider creates a manual readings provider
func NewProvider(path string, log *logger.Logger) *Provider {
	return &Provider{
		path:   path,
		logger: log.WithComponent("manual"),
	}
}

// Name implements contracts.Provider
func (p *Provider) Name() string {
	return ProviderName
}

// Fetch implements contracts.Provider
func (p *Provider) Fetch(_ context.Context, def contracts.IndicatorDefinition) (contracts.Observation, error) {
	file, err := Load(p.path)
	if err != nil {
		return contracts.Observation{}, err
	}

	r, ok := file.Readings[def.Series()]
	if !ok || r.Value == nil {
		return contracts.Observation{}, fmt.Errorf("manual %s: %w", def.Series(), contracts.ErrNoData)
	}

	p.logger.WithFields(map[string]interface{}{
		"series": def.Series(),
		"as_of":  file.AsOf.Format("2006-01-02"),
	}).Debug("Manual reading loaded")

	return contracts.Observation{
		Value:      *r.Value,
		Change:     r.Change,
		Label:      r.Label,
		ObservedAt: file.AsOf,
	}, nil
}

// Load reads and decodes a readings file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("manual readings %s: %w", path, contracts.ErrNoData)
		}
		return nil, fmt.Errorf("read manual readings: %w", err)
	}
	return Parse(data)
}

// Parse decodes a readings document, rejecting unknown fields
func Parse(data []byte) (*File, error) {
	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse manual readings: %w", err)
	}
	return &file, nil
}
