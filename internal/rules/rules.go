// Package rules resolves model operands against a snapshot set.
// Shared by the category scorers and the alert evaluator.
package rules

import (
	"math"

	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/internal/modelconfig"
)

// Value is a resolved operand: a number, or a label for label operands
type Value struct {
	Number  float64
	Label   string
	IsLabel bool
}

// Resolver reads operands, deriving labels from level bands when a
// provider supplied none
type Resolver struct {
	levels map[string]modelconfig.LevelRule
}

// NewResolver indexes level rules by indicator
func NewResolver(levels []modelconfig.LevelRule) *Resolver {
	idx := make(map[string]modelconfig.LevelRule, len(levels))
	for _, lv := range levels {
		idx[lv.Indicator] = lv
	}
	return &Resolver{levels: idx}
}

// Label returns the qualitative reading of key.
// Provider label wins; otherwise the first level band whose min <= reading.
func (r *Resolver) Label(snaps contracts.SnapshotSet, key string) (string, bool) {
	if label, ok := snaps.Label(key); ok {
		return label, true
	}

	lv, ok := r.levels[key]
	if !ok {
		return "", false
	}

	v, ok := numeric(snaps, key, lv.Field)
	if !ok {
		return "", false
	}
	for _, b := range lv.Bands {
		if b.Min == nil || v >= *b.Min {
			return b.Label, true
		}
	}
	return "", false
}

// Resolve reads one operand. ok=false if any input is unavailable
// (missing dependency of a spread = missing operand, never zero).
func (r *Resolver) Resolve(snaps contracts.SnapshotSet, o modelconfig.Operand) (Value, bool) {
	field := o.FieldOrDefault()
	if field == modelconfig.FieldLabel {
		label, ok := r.Label(snaps, o.Indicator)
		if !ok {
			return Value{}, false
		}
		return Value{Label: label, IsLabel: true}, true
	}

	v, ok := numeric(snaps, o.Indicator, field)
	if !ok {
		return Value{}, false
	}
	if o.Minus != nil {
		sub, ok := r.Resolve(snaps, *o.Minus)
		if !ok || sub.IsLabel {
			return Value{}, false
		}
		v -= sub.Number
	}
	if o.Abs {
		v = math.Abs(v)
	}
	return Value{Number: v}, true
}

// Match resolves o and compares it. resolved=false means an input was unavailable.
func (r *Resolver) Match(snaps contracts.SnapshotSet, o modelconfig.Operand, op string, threshold *float64, label string) (matched bool, v Value, resolved bool) {
	v, ok := r.Resolve(snaps, o)
	if !ok {
		return false, Value{}, false
	}
	if v.IsLabel {
		return CompareLabel(op, v.Label, label), v, true
	}
	if threshold == nil {
		return false, v, true
	}
	return CompareNumber(op, v.Number, *threshold), v, true
}

// CompareNumber applies a numeric operator
func CompareNumber(op string, v, threshold float64) bool {
	switch op {
	case modelconfig.OpGT:
		return v > threshold
	case modelconfig.OpGTE:
		return v >= threshold
	case modelconfig.OpLT:
		return v < threshold
	case modelconfig.OpLTE:
		return v <= threshold
	case modelconfig.OpEQ:
		return v == threshold
	case modelconfig.OpNE:
		return v != threshold
	}
	return false
}

// CompareLabel applies eq/ne to labels
func CompareLabel(op, got, want string) bool {
	switch op {
	case modelconfig.OpEQ:
		return got == want
	case modelconfig.OpNE:
		return got != want
	}
	return false
}

func numeric(snaps contracts.SnapshotSet, key, field string) (float64, bool) {
	if field == modelconfig.FieldChange {
		return snaps.Change(key)
	}
	return snaps.Value(key)
}
