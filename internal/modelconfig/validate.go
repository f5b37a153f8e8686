package modelconfig

import (
	"errors"
	"fmt"
	"math"

	"github.com/wonny/macropulse/internal/contracts"
)

// WeightTolerance 가중치 합 허용 오차
const WeightTolerance = 1e-9

// ValidationError 검증 실패 (실행 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all model constraints.
// 실패 시 *contracts.ConfigError 반환 (fetch 이전에 중단)
func Validate(cfg *Config) error {
	if err := validate(cfg); err != nil {
		return asConfigError("model", err)
	}
	return nil
}

func asConfigError(source string, err error) error {
	var ve ValidationError
	if errors.As(err, &ve) {
		return &contracts.ConfigError{Source: source, Field: ve.Field, Message: ve.Message}
	}
	return &contracts.ConfigError{Source: source, Err: err}
}

func validate(cfg *Config) error {
	if cfg == nil {
		return ValidationError{"model", "required"}
	}

	// === Weights ===
	for _, c := range contracts.Categories() {
		w := cfg.Weights.For(c)
		if w < 0 || math.IsNaN(w) {
			return ValidationError{fmt.Sprintf("weights.%s", c), fmt.Sprintf("must be >= 0, got %v", w)}
		}
	}
	if err := validateWeightsSum(cfg.Weights, 1.0, WeightTolerance); err != nil {
		return ValidationError{"weights", err.Error()}
	}

	// === Categories ===
	for _, c := range contracts.Categories() {
		if err := validateCategory(fmt.Sprintf("categories.%s", c), cfg.Categories.For(c)); err != nil {
			return err
		}
	}

	// === Levels ===
	seenLevel := make(map[string]bool)
	for i, lv := range cfg.Levels {
		field := fmt.Sprintf("levels[%d]", i)
		if lv.Indicator == "" {
			return ValidationError{field + ".indicator", "required"}
		}
		if seenLevel[lv.Indicator] {
			return ValidationError{field + ".indicator", fmt.Sprintf("duplicate level rule for %q", lv.Indicator)}
		}
		seenLevel[lv.Indicator] = true
		if lv.Field != FieldValue && lv.Field != FieldChange {
			return ValidationError{field + ".field", "must be value or change"}
		}
		mins := make([]*float64, len(lv.Bands))
		for j, b := range lv.Bands {
			if b.Label == "" {
				return ValidationError{fmt.Sprintf("%s.bands[%d].label", field, j), "required"}
			}
			mins[j] = b.Min
		}
		if err := validateBands(field+".bands", mins); err != nil {
			return err
		}
	}

	// === Signal ===
	mins := make([]*float64, len(cfg.Signal.Bands))
	for i, b := range cfg.Signal.Bands {
		field := fmt.Sprintf("signal.bands[%d]", i)
		switch b.Label {
		case contracts.SignalBullish, contracts.SignalNeutral, contracts.SignalBearish:
		default:
			return ValidationError{field + ".label", fmt.Sprintf("unknown signal label %q", b.Label)}
		}
		if b.Recommendation == "" {
			return ValidationError{field + ".recommendation", "required"}
		}
		mins[i] = b.Min
	}
	if err := validateBands("signal.bands", mins); err != nil {
		return err
	}

	// === Liquidity ===
	mins = make([]*float64, len(cfg.Liquidity.Bands))
	for i, b := range cfg.Liquidity.Bands {
		field := fmt.Sprintf("liquidity.bands[%d]", i)
		switch b.Status {
		case contracts.LiquidityAbundant, contracts.LiquidityNeutral, contracts.LiquidityTight, contracts.LiquidityDepleted:
		default:
			return ValidationError{field + ".status", fmt.Sprintf("unknown liquidity status %q", b.Status)}
		}
		mins[i] = b.Min
	}
	if err := validateBands("liquidity.bands", mins); err != nil {
		return err
	}

	// === Pulse ===
	if err := validateRules("pulse.rules", cfg.Pulse.Rules); err != nil {
		return err
	}
	mins = make([]*float64, len(cfg.Pulse.Bands))
	for i, b := range cfg.Pulse.Bands {
		if b.Status == "" {
			return ValidationError{fmt.Sprintf("pulse.bands[%d].status", i), "required"}
		}
		mins[i] = b.Min
	}
	if err := validateBands("pulse.bands", mins); err != nil {
		return err
	}

	// === Alerts ===
	seenAlert := make(map[string]bool)
	for i, a := range cfg.Alerts {
		if err := validateAlert(fmt.Sprintf("alerts[%d]", i), a, seenAlert); err != nil {
			return err
		}
	}

	return nil
}

func validateCategory(field string, c CategoryConfig) error {
	if math.IsNaN(c.Baseline) || math.IsInf(c.Baseline, 0) {
		return ValidationError{field + ".baseline", "must be finite"}
	}
	if c.Bounds.Min != nil && c.Bounds.Max != nil && *c.Bounds.Min > *c.Bounds.Max {
		return ValidationError{field + ".bounds", "min must be <= max"}
	}
	if c.Fallback != nil && c.Bounds.Clamp(*c.Fallback) != *c.Fallback {
		return ValidationError{field + ".fallback", "must lie within bounds"}
	}
	return validateRules(field+".rules", c.Rules)
}

func validateRules(field string, rules []Rule) error {
	seen := make(map[string]bool)
	for i, r := range rules {
		rf := fmt.Sprintf("%s[%d]", field, i)
		if r.ID == "" {
			return ValidationError{rf + ".id", "required"}
		}
		if seen[r.ID] {
			return ValidationError{rf + ".id", fmt.Sprintf("duplicate rule id %q", r.ID)}
		}
		seen[r.ID] = true

		if err := validateOperand(rf, r.Operand); err != nil {
			return err
		}
		if len(r.Branches) == 0 {
			return ValidationError{rf + ".branches", "required"}
		}
		for j, b := range r.Branches {
			if err := validateComparison(fmt.Sprintf("%s.branches[%d]", rf, j), r.Operand, b.Op, b.Threshold, b.Label); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateAlert(field string, a AlertRule, seen map[string]bool) error {
	if a.ID == "" {
		return ValidationError{field + ".id", "required"}
	}
	if seen[a.ID] {
		return ValidationError{field + ".id", fmt.Sprintf("duplicate alert id %q", a.ID)}
	}
	seen[a.ID] = true

	if !contracts.Severity(a.Severity).Valid() {
		return ValidationError{field + ".severity", "must be warning or critical"}
	}
	if m := a.MatchOrDefault(); m != MatchAny && m != MatchAll {
		return ValidationError{field + ".match", "must be any or all"}
	}
	if a.Message == "" {
		return ValidationError{field + ".message", "required"}
	}
	if len(a.Conditions) == 0 {
		return ValidationError{field + ".conditions", "required"}
	}
	for j, c := range a.Conditions {
		cf := fmt.Sprintf("%s.conditions[%d]", field, j)
		if err := validateOperand(cf, c.Operand); err != nil {
			return err
		}
		if err := validateComparison(cf, c.Operand, c.Op, c.Threshold, c.Label); err != nil {
			return err
		}
	}

	if a.Indicator == "" {
		return ValidationError{field + ".indicator", "required"}
	}
	for _, k := range a.RequiredIndicators() {
		if k == a.Indicator {
			return nil
		}
	}
	return ValidationError{field + ".indicator", fmt.Sprintf("%q is not read by any condition", a.Indicator)}
}

func validateOperand(field string, o Operand) error {
	if o.Indicator == "" {
		return ValidationError{field + ".indicator", "required"}
	}
	switch o.FieldOrDefault() {
	case FieldValue, FieldChange:
	case FieldLabel:
		if o.Minus != nil || o.Abs {
			return ValidationError{field, "label operands cannot use minus or abs"}
		}
	default:
		return ValidationError{field + ".field", fmt.Sprintf("unknown field %q", o.Field)}
	}
	if o.Minus != nil {
		if o.Minus.FieldOrDefault() == FieldLabel {
			return ValidationError{field + ".minus", "must be numeric"}
		}
		return validateOperand(field+".minus", *o.Minus)
	}
	return nil
}

func validateComparison(field string, o Operand, op string, threshold *float64, label string) error {
	if o.FieldOrDefault() == FieldLabel {
		if op != OpEQ && op != OpNE {
			return ValidationError{field + ".op", "label comparisons support eq and ne only"}
		}
		if label == "" {
			return ValidationError{field + ".label", "required for label comparisons"}
		}
		return nil
	}

	switch op {
	case OpGT, OpGTE, OpLT, OpLTE, OpEQ, OpNE:
	default:
		return ValidationError{field + ".op", fmt.Sprintf("unknown operator %q", op)}
	}
	if threshold == nil {
		return ValidationError{field + ".threshold", "required for numeric comparisons"}
	}
	return nil
}

// validateBands: high→low, strictly descending minimums, final band is the catch-all
func validateBands(field string, mins []*float64) error {
	if len(mins) == 0 {
		return ValidationError{field, "at least one band required"}
	}
	last := len(mins) - 1
	if mins[last] != nil {
		return ValidationError{fmt.Sprintf("%s[%d].min", field, last), "final band must be the catch-all (no min)"}
	}
	for i := 0; i < last; i++ {
		if mins[i] == nil {
			return ValidationError{fmt.Sprintf("%s[%d].min", field, i), "required (only the final band may omit min)"}
		}
		if i > 0 && *mins[i] >= *mins[i-1] {
			return ValidationError{fmt.Sprintf("%s[%d].min", field, i), "minimums must be strictly descending"}
		}
	}
	return nil
}

// validateWeightsSum 가중치 합 검증 (canonical 순서로 합산)
func validateWeightsSum(w Weights, target, eps float64) error {
	sum := w.Sum()
	if math.Abs(sum-target) > eps {
		return fmt.Errorf("must sum to %.1f, got %.10f", target, sum)
	}
	return nil
}
