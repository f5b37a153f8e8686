package modelconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/macropulse/internal/contracts"
)

// Load reads a model YAML file. An empty path yields Default().
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		if err := Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &contracts.ConfigError{Source: path, Message: "cannot read model file", Err: err}
	}

	return Parse(path, data)
}

// Parse decodes and validates model YAML. source names the input in errors.
func Parse(source string, data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &contracts.ConfigError{Source: source, Message: "empty model file"}
		}
		return nil, &contracts.ConfigError{Source: source, Message: "malformed model YAML", Err: err}
	}

	if err := validate(&cfg); err != nil {
		return nil, asConfigError(source, err)
	}

	return &cfg, nil
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("hash model: %w", err)
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// ReferencedIndicators lists every indicator key the model reads
// (category rules, pulse, levels, alerts), first-reference order
func ReferencedIndicators(cfg *Config) []string {
	seen := make(map[string]bool)
	var keys []string
	add := func(ks ...string) {
		for _, k := range ks {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	for _, c := range contracts.Categories() {
		for _, r := range cfg.Categories.For(c).Rules {
			add(r.Operand.Indicators()...)
		}
	}
	for _, r := range cfg.Pulse.Rules {
		add(r.Operand.Indicators()...)
	}
	for _, lv := range cfg.Levels {
		add(lv.Indicator)
	}
	add(AlertIndicators(cfg)...)
	return keys
}

// AlertIndicators lists the indicators read by alert rules, first-reference order
func AlertIndicators(cfg *Config) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, a := range cfg.Alerts {
		for _, k := range a.RequiredIndicators() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}
