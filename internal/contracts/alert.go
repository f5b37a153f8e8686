package contracts

// Severity ranks an alert
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity
func (s Severity) Valid() bool {
	return s == SeverityWarning || s == SeverityCritical
}

// Alert is a fired threshold rule
type Alert struct {
	Severity            Severity `json:"severity"`
	Message             string   `json:"message"`
	RuleID              string   `json:"rule_id"`
	TriggeringIndicator string   `json:"triggering_indicator"`
}

// CountBySeverity counts alerts per severity
func CountBySeverity(alerts []Alert) map[Severity]int {
	counts := map[Severity]int{SeverityWarning: 0, SeverityCritical: 0}
	for _, a := range alerts {
		counts[a.Severity]++
	}
	return counts
}
