package modelconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/wonny/macropulse/internal/contracts"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestDefault_Weights(t *testing.T) {
	w := Default().Weights
	assert.Equal(t, 0.30, w.For(contracts.CategoryLiquidity))
	assert.Equal(t, 0.25, w.For(contracts.CategoryMonetaryPolicy))
	assert.Equal(t, 0.25, w.For(contracts.CategoryEconomicGrowth))
	assert.Equal(t, 0.15, w.For(contracts.CategoryMarketSentiment))
	assert.Equal(t, 0.05, w.For(contracts.CategoryCommodities))
	assert.InDelta(t, 1.0, w.Sum(), WeightTolerance)
}

func TestDefault_LiquidityRuleOrder(t *testing.T) {
	var ids []string
	for _, r := range Default().Categories.Liquidity.Rules {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{
		"fed_balance_sheet_trend",
		"m2_yoy",
		"repo_stress",
		"etf_flow_direction",
		"margin_debt_risk",
	}, ids)
}

func TestValidate_WeightSum(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(w *Weights)
		wantErr bool
	}{
		{"defaults", func(w *Weights) {}, false},
		{"sum 0.97", func(w *Weights) { w.Commodities = 0.02 }, true},
		{"sum 1.01", func(w *Weights) { w.Commodities = 0.06 }, true},
		{"negative weight", func(w *Weights) { w.Commodities = -0.05; w.Liquidity = 0.40 }, true},
		{"reassigned but balanced", func(w *Weights) { w.Liquidity = 0.35; w.Commodities = 0.0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg.Weights)

			err := Validate(cfg)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, contracts.IsConfigError(err), "expected ConfigError, got %T", err)
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
		field  string
	}{
		{"fallback outside bounds", func(cfg *Config) { cfg.Categories.Liquidity.Fallback = f(150) }, "categories.liquidity.fallback"},
		{"inverted bounds", func(cfg *Config) { cfg.Categories.Commodities.Bounds = Bounds{Min: f(100), Max: f(0)} }, "categories.commodities.bounds"},
		{"duplicate rule id", func(cfg *Config) {
			rules := cfg.Categories.Liquidity.Rules
			rules[1].ID = rules[0].ID
		}, "categories.liquidity.rules[1].id"},
		{"label rule with gt", func(cfg *Config) {
			cfg.Categories.Liquidity.Rules[2].Branches[0].Op = OpGT
		}, "categories.liquidity.rules[2].branches[0].op"},
		{"numeric branch without threshold", func(cfg *Config) {
			cfg.Categories.Liquidity.Rules[0].Branches[0].Threshold = nil
		}, "categories.liquidity.rules[0].branches[0].threshold"},
		{"unknown field", func(cfg *Config) {
			cfg.Categories.MonetaryPolicy.Rules[0].Operand.Field = "level"
		}, "categories.monetary_policy.rules[0].field"},
		{"signal bands not descending", func(cfg *Config) { cfg.Signal.Bands[1].Min = f(70) }, "signal.bands[1].min"},
		{"signal without catch-all", func(cfg *Config) { cfg.Signal.Bands[2].Min = f(0) }, "signal.bands[2].min"},
		{"liquidity unknown status", func(cfg *Config) { cfg.Liquidity.Bands[0].Status = "flush" }, "liquidity.bands[0].status"},
		{"alert unknown severity", func(cfg *Config) { cfg.Alerts[0].Severity = "info" }, "alerts[0].severity"},
		{"alert duplicate id", func(cfg *Config) { cfg.Alerts[1].ID = cfg.Alerts[0].ID }, "alerts[1].id"},
		{"alert trigger not referenced", func(cfg *Config) { cfg.Alerts[0].Indicator = "vix_index" }, "alerts[0].indicator"},
		{"alert bad match", func(cfg *Config) { cfg.Alerts[3].Match = "xor" }, "alerts[3].match"},
		{"level without catch-all", func(cfg *Config) { cfg.Levels[0].Bands[2].Min = f(0) }, "levels[0].bands[2].min"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)

			var cfgErr *contracts.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_RoundTripsDefault(t *testing.T) {
	data, err := yaml.Marshal(Default())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	want, _ := Hash(Default())
	got, _ := Hash(cfg)
	assert.Equal(t, want, got)
}

func TestLoad_RepositoryModelMatchesDefault(t *testing.T) {
	path := "../../config/model.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, err := Load(path)
	require.NoError(t, err)

	want, _ := Hash(Default())
	got, _ := Hash(cfg)
	assert.Equal(t, want, got, "config/model.yaml drifted from Default()")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "", "empty model file"},
		{"malformed", "weights: [", "malformed model YAML"},
		{"unknown field", "weightz:\n  liquidity: 1\n", "malformed model YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("test.yaml", []byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, contracts.IsConfigError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, contracts.IsConfigError(err))
}

func TestHash_Deterministic(t *testing.T) {
	h1, err := Hash(Default())
	require.NoError(t, err)
	h2, _ := Hash(Default())
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	changed := Default()
	changed.Alerts[1].Conditions[0].Threshold = f(-2)
	h3, _ := Hash(changed)
	assert.NotEqual(t, h1, h3)
}

func TestReferencedIndicators(t *testing.T) {
	keys := ReferencedIndicators(Default())
	assert.Contains(t, keys, "treasury_3m", "pulse spread minus operand")
	assert.Contains(t, keys, "treasury_10y")
	assert.Equal(t, "fed_balance_sheet", keys[0])

	alertKeys := AlertIndicators(Default())
	assert.Equal(t, []string{
		"fed_balance_sheet", "m2_money_supply", "repo_market", "etf_net_flow",
		"commercial_paper", "treasury_10y", "vix_index", "high_yield_spread",
		"yield_curve_2s10s", "margin_debt",
	}, alertKeys)
	assert.False(t, strings.Contains(strings.Join(alertKeys, ","), "gdp_us"))
}
