package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/macropulse/internal/contracts"
)

// ErrNotFound is returned when no report is stored for a date
var ErrNotFound = errors.New("report not found")

// Repository handles macro report persistence
// ⭐ SSOT: 리포트 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new report repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save upserts the daily report and replaces its category scores and
// alerts in one transaction. Only full reports can be saved.
func (r *Repository) Save(ctx context.Context, report *contracts.Report) error {
	row, err := newReportRow(report)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO macro.daily_reports (
			report_date, generated_at, composite_score,
			signal, signal_display, recommendation,
			liquidity_score, liquidity_status, liquidity_display, liquidity_note,
			pulse_score, pulse,
			coverage_requested, coverage_available, missing_indicators,
			snapshots, model_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (report_date) DO UPDATE SET
			generated_at = EXCLUDED.generated_at,
			composite_score = EXCLUDED.composite_score,
			signal = EXCLUDED.signal,
			signal_display = EXCLUDED.signal_display,
			recommendation = EXCLUDED.recommendation,
			liquidity_score = EXCLUDED.liquidity_score,
			liquidity_status = EXCLUDED.liquidity_status,
			liquidity_display = EXCLUDED.liquidity_display,
			liquidity_note = EXCLUDED.liquidity_note,
			pulse_score = EXCLUDED.pulse_score,
			pulse = EXCLUDED.pulse,
			coverage_requested = EXCLUDED.coverage_requested,
			coverage_available = EXCLUDED.coverage_available,
			missing_indicators = EXCLUDED.missing_indicators,
			snapshots = EXCLUDED.snapshots,
			model_hash = EXCLUDED.model_hash,
			created_at = NOW()
	`
	_, err = tx.Exec(ctx, query,
		row.Date, row.GeneratedAt, row.Composite,
		row.Signal, row.SignalDisplay, row.Recommendation,
		row.LiquidityScore, row.LiquidityStatus, row.LiquidityDisplay, row.LiquidityNote,
		row.PulseScore, row.Pulse,
		row.Requested, row.Available, row.Missing,
		row.Snapshots, row.ModelHash,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily report: %w", err)
	}

	// 같은 날짜의 하위 행은 교체
	if _, err := tx.Exec(ctx, "DELETE FROM macro.category_scores WHERE report_date = $1", row.Date); err != nil {
		return fmt.Errorf("failed to delete old category scores: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM macro.alerts WHERE report_date = $1", row.Date); err != nil {
		return fmt.Errorf("failed to delete old alerts: %w", err)
	}

	for i, c := range categoryRows(report.Composite) {
		_, err := tx.Exec(ctx, `
			INSERT INTO macro.category_scores (
				report_date, position, category, score, weight, weighted,
				evaluated, rules_fired, rules_skipped, fallback
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			row.Date, i, string(c.Category), c.Score, c.Weight, c.Weighted,
			c.Evaluated, nonNil(c.RulesFired), nonNil(c.RulesSkipped), c.Fallback,
		)
		if err != nil {
			return fmt.Errorf("failed to insert category score %s: %w", c.Category, err)
		}
	}

	for i, a := range report.Alerts {
		_, err := tx.Exec(ctx, `
			INSERT INTO macro.alerts (report_date, position, rule_id, severity, indicator, message)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			row.Date, i, a.RuleID, string(a.Severity), a.TriggeringIndicator, a.Message,
		)
		if err != nil {
			return fmt.Errorf("failed to insert alert %s: %w", a.RuleID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByDate retrieves the stored report for a calendar day
func (r *Repository) GetByDate(ctx context.Context, date time.Time) (*contracts.Report, error) {
	day := contracts.ReportDate(date)

	query := `
		SELECT
			generated_at, composite_score,
			signal, signal_display, recommendation,
			liquidity_score, liquidity_status, liquidity_display, liquidity_note,
			pulse, coverage_requested, coverage_available, missing_indicators,
			snapshots, model_hash
		FROM macro.daily_reports
		WHERE report_date = $1
	`

	var row reportRow
	err := r.pool.QueryRow(ctx, query, day).Scan(
		&row.GeneratedAt, &row.Composite,
		&row.Signal, &row.SignalDisplay, &row.Recommendation,
		&row.LiquidityScore, &row.LiquidityStatus, &row.LiquidityDisplay, &row.LiquidityNote,
		&row.Pulse, &row.Requested, &row.Available, &row.Missing,
		&row.Snapshots, &row.ModelHash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", day.Format("2006-01-02"), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily report: %w", err)
	}
	row.Date = day

	report, err := row.toReport()
	if err != nil {
		return nil, err
	}

	if err := r.loadCategories(ctx, day, report.Composite); err != nil {
		return nil, err
	}
	report.Liquidity.Fallback = report.Composite.CategoryScores[contracts.CategoryLiquidity].Fallback
	if report.Alerts, err = r.loadAlerts(ctx, day); err != nil {
		return nil, err
	}

	return report, nil
}

func (r *Repository) loadCategories(ctx context.Context, day time.Time, composite *contracts.CompositeScore) error {
	rows, err := r.pool.Query(ctx, `
		SELECT category, score, weight, weighted, evaluated, rules_fired, rules_skipped, fallback
		FROM macro.category_scores
		WHERE report_date = $1
		ORDER BY position ASC`, day)
	if err != nil {
		return fmt.Errorf("failed to query category scores: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c categoryRow
		var category string
		if err := rows.Scan(&category, &c.Score, &c.Weight, &c.Weighted, &c.Evaluated,
			&c.RulesFired, &c.RulesSkipped, &c.Fallback); err != nil {
			return fmt.Errorf("failed to scan category score: %w", err)
		}
		c.Category = contracts.Category(category)

		composite.CategoryScores[c.Category] = contracts.CategoryScore{
			Category:     c.Category,
			Score:        c.Score,
			RulesFired:   c.RulesFired,
			RulesSkipped: c.RulesSkipped,
			Evaluated:    c.Evaluated,
			Fallback:     c.Fallback,
		}
		composite.Contributions = append(composite.Contributions, contracts.Contribution{
			Category: c.Category,
			Weight:   c.Weight,
			Score:    c.Score,
			Weighted: c.Weighted,
		})
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating category scores: %w", err)
	}
	return nil
}

func (r *Repository) loadAlerts(ctx context.Context, day time.Time) ([]contracts.Alert, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT rule_id, severity, indicator, message
		FROM macro.alerts
		WHERE report_date = $1
		ORDER BY position ASC`, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]contracts.Alert, 0)
	for rows.Next() {
		var a contracts.Alert
		var severity string
		if err := rows.Scan(&a.RuleID, &severity, &a.TriggeringIndicator, &a.Message); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Severity = contracts.Severity(severity)
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return alerts, nil
}

// reportRow is the flattened daily_reports row
type reportRow struct {
	Date             time.Time
	GeneratedAt      time.Time
	Composite        float64
	Signal           string
	SignalDisplay    string
	Recommendation   string
	LiquidityScore   float64
	LiquidityStatus  string
	LiquidityDisplay string
	LiquidityNote    string
	PulseScore       *float64
	Pulse            []byte
	Requested        int
	Available        int
	Missing          []string
	Snapshots        []byte
	ModelHash        string
}

// categoryRow is one category_scores row
type categoryRow struct {
	Category     contracts.Category
	Score        float64
	Weight       float64
	Weighted     float64
	Evaluated    int
	RulesFired   []string
	RulesSkipped []string
	Fallback     bool
}

func newReportRow(report *contracts.Report) (*reportRow, error) {
	if report == nil {
		return nil, fmt.Errorf("nil report")
	}
	if report.Mode != contracts.ModeFull || report.Composite == nil || report.Signal == nil || report.Liquidity == nil {
		return nil, fmt.Errorf("only full reports can be saved (mode=%s)", report.Mode)
	}

	snapshots, err := json.Marshal(report.Snapshots)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshots: %w", err)
	}

	row := &reportRow{
		Date:             contracts.ReportDate(report.Date),
		GeneratedAt:      report.GeneratedAt,
		Composite:        report.Composite.Value,
		Signal:           string(report.Signal.Label),
		SignalDisplay:    report.Signal.Display,
		Recommendation:   report.Signal.Recommendation,
		LiquidityScore:   report.Liquidity.Score,
		LiquidityStatus:  string(report.Liquidity.Status),
		LiquidityDisplay: report.Liquidity.Display,
		LiquidityNote:    report.Liquidity.Description,
		Requested:        report.Coverage.Requested,
		Available:        report.Coverage.Available,
		Missing:          nonNil(report.Coverage.Missing),
		Snapshots:        snapshots,
		ModelHash:        report.ModelHash,
	}

	if report.Pulse != nil {
		pulse, err := json.Marshal(report.Pulse)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal pulse: %w", err)
		}
		if report.Pulse.Available() {
			score := report.Pulse.Score
			row.PulseScore = &score
		}
		row.Pulse = pulse
	}

	return row, nil
}

func (row *reportRow) toReport() (*contracts.Report, error) {
	report := &contracts.Report{
		Date:        row.Date,
		GeneratedAt: row.GeneratedAt,
		Mode:        contracts.ModeFull,
		Composite: &contracts.CompositeScore{
			Value:          row.Composite,
			Timestamp:      row.GeneratedAt,
			CategoryScores: make(map[contracts.Category]contracts.CategoryScore),
		},
		Signal: &contracts.Signal{
			Label:          contracts.SignalLabel(row.Signal),
			Display:        row.SignalDisplay,
			Recommendation: row.Recommendation,
		},
		Liquidity: &contracts.LiquidityAssessment{
			Score:       row.LiquidityScore,
			Status:      contracts.LiquidityStatus(row.LiquidityStatus),
			Display:     row.LiquidityDisplay,
			Description: row.LiquidityNote,
		},
		Coverage: contracts.Coverage{
			Requested: row.Requested,
			Available: row.Available,
			Missing:   nonNil(row.Missing),
		},
		ModelHash: row.ModelHash,
	}

	if len(row.Pulse) > 0 {
		var pulse contracts.PulseAssessment
		if err := json.Unmarshal(row.Pulse, &pulse); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pulse: %w", err)
		}
		report.Pulse = &pulse
	}

	if err := json.Unmarshal(row.Snapshots, &report.Snapshots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshots: %w", err)
	}

	return report, nil
}

// categoryRows flattens category scores in contribution (canonical) order
func categoryRows(composite *contracts.CompositeScore) []categoryRow {
	rows := make([]categoryRow, 0, len(composite.Contributions))
	for _, c := range composite.Contributions {
		cs := composite.CategoryScores[c.Category]
		rows = append(rows, categoryRow{
			Category:     c.Category,
			Score:        c.Score,
			Weight:       c.Weight,
			Weighted:     c.Weighted,
			Evaluated:    cs.Evaluated,
			RulesFired:   cs.RulesFired,
			RulesSkipped: cs.RulesSkipped,
			Fallback:     cs.Fallback,
		})
	}
	return rows
}

// nonNil keeps TEXT[] columns NOT NULL
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
