package contracts

import "time"

// Mode selects what a run computes
type Mode string

const (
	ModeFull   Mode = "full"   // 점수 + 시그널 + 알림
	ModeAlerts Mode = "alerts" // 알림만 (참조 지표만 수집)
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	return m == ModeFull || m == ModeAlerts
}

// Report is the finalized, plain-data result of one run
// ⭐ SSOT: Engine → Persistence/Notify 전달
type Report struct {
	Date        time.Time `json:"date"` // UTC 일자 (저장 키)
	GeneratedAt time.Time `json:"generated_at"`
	Mode        Mode      `json:"mode"`

	// full 모드에서만 채워짐
	Composite *CompositeScore      `json:"composite,omitempty"`
	Signal    *Signal              `json:"signal,omitempty"`
	Liquidity *LiquidityAssessment `json:"liquidity,omitempty"`
	Pulse     *PulseAssessment     `json:"pulse,omitempty"`

	Alerts    []Alert     `json:"alerts"`
	Snapshots SnapshotSet `json:"snapshots"`
	Coverage  Coverage    `json:"coverage"`
	ModelHash string      `json:"model_hash"`
}

// ReportDate truncates t to its UTC calendar day
func ReportDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
