package alerting

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"text/template"

	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/internal/modelconfig"
	"github.com/wonny/macropulse/internal/rules"
)

// MessageData is what alert message templates see
type MessageData struct {
	Indicator string  // triggering indicator
	Value     float64 // operand value of the first matched condition
	Threshold float64 // its threshold (0 for label conditions)
	Label     string  // qualitative reading of the triggering indicator
}

// Predicate reports whether a rule fires and the data for its message
type Predicate func(snaps contracts.SnapshotSet) (bool, MessageData)

// Rule is a compiled alert rule
type Rule struct {
	ID        string
	Required  []string
	Predicate Predicate
	Severity  contracts.Severity
	Message   *template.Template
	Indicator string
}

var funcs = template.FuncMap{
	// num formats a number with two decimals
	"num": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
}

// BuildRules compiles alert configuration in declaration order.
// Template errors are *contracts.ConfigError.
func BuildRules(cfg []modelconfig.AlertRule, levels []modelconfig.LevelRule) ([]Rule, error) {
	resolver := rules.NewResolver(levels)
	out := make([]Rule, 0, len(cfg))

	for i, rc := range cfg {
		field := fmt.Sprintf("alerts[%d].message", i)
		tmpl, err := template.New(rc.ID).Funcs(funcs).Parse(rc.Message)
		if err != nil {
			return nil, &contracts.ConfigError{Source: "model", Field: field, Message: "invalid message template", Err: err}
		}
		// 필드 오타는 실행 시점에만 드러남
		if err := tmpl.Execute(io.Discard, MessageData{}); err != nil {
			return nil, &contracts.ConfigError{Source: "model", Field: field, Message: "invalid message template", Err: err}
		}

		out = append(out, Rule{
			ID:        rc.ID,
			Required:  rc.RequiredIndicators(),
			Predicate: predicate(resolver, rc),
			Severity:  contracts.Severity(rc.Severity),
			Message:   tmpl,
			Indicator: rc.Indicator,
		})
	}

	return out, nil
}

func predicate(resolver *rules.Resolver, rc modelconfig.AlertRule) Predicate {
	all := rc.MatchOrDefault() == modelconfig.MatchAll
	conditions := rc.Conditions
	trigger := rc.Indicator

	return func(snaps contracts.SnapshotSet) (bool, MessageData) {
		data := MessageData{Indicator: trigger}
		if label, ok := resolver.Label(snaps, trigger); ok {
			data.Label = label
		}
		if v, ok := snaps.Value(trigger); ok {
			data.Value = v
		}

		matchedAny := false
		var first *MessageData
		for _, c := range conditions {
			matched, v, _ := resolver.Match(snaps, c.Operand, c.Op, c.Threshold, c.Label)
			if !matched {
				if all {
					return false, data
				}
				continue
			}

			matchedAny = true
			if first == nil && !v.IsLabel {
				d := data
				d.Value = v.Number
				if c.Threshold != nil {
					d.Threshold = *c.Threshold
				}
				first = &d
			}
			if !all {
				break
			}
		}

		if !matchedAny {
			return false, data
		}
		if first != nil {
			return true, *first
		}
		return true, data
	}
}

// Evaluate runs every rule in declaration order. A rule fires only when all
// its required indicators are available; output order = rule order.
// Stateless: identical inputs give identical alert sequences.
func Evaluate(snaps contracts.SnapshotSet, ruleset []Rule) []contracts.Alert {
	alerts := []contracts.Alert{}

	for _, r := range ruleset {
		if !requiredAvailable(snaps, r.Required) {
			continue
		}
		fired, data := r.Predicate(snaps)
		if !fired {
			continue
		}
		alerts = append(alerts, contracts.Alert{
			Severity:            r.Severity,
			Message:             render(r, data),
			RuleID:              r.ID,
			TriggeringIndicator: r.Indicator,
		})
	}

	return alerts
}

func requiredAvailable(snaps contracts.SnapshotSet, keys []string) bool {
	for _, k := range keys {
		if !snaps.Available(k) {
			return false
		}
	}
	return true
}

func render(r Rule, data MessageData) string {
	var buf bytes.Buffer
	if err := r.Message.Execute(&buf, data); err != nil {
		// BuildRules에서 검증됨; 실패 시 원문 템플릿
		return r.Message.Root.String()
	}
	return buf.String()
}
