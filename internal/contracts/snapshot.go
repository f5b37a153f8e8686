package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const unavailableJSON = `"unavailable"`

// Reading is an optional numeric reading. Absence is never coerced to zero.
type Reading struct {
	Number float64
	Valid  bool
}

// Available wraps a present reading. NaN and ±Inf count as absent.
func Available(v float64) Reading {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Reading{}
	}
	return Reading{Number: v, Valid: true}
}

// Unavailable is the absent reading
func Unavailable() Reading {
	return Reading{}
}

// Get returns the number and whether it is present
func (r Reading) Get() (float64, bool) {
	return r.Number, r.Valid
}

// MarshalJSON encodes absence as "unavailable"
func (r Reading) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte(unavailableJSON), nil
	}
	return json.Marshal(r.Number)
}

// UnmarshalJSON accepts a number, null or "unavailable"
func (r *Reading) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(unavailableJSON)) {
		*r = Unavailable()
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("reading: %w", err)
	}
	*r = Available(v)
	return nil
}

func (r Reading) String() string {
	if !r.Valid {
		return "unavailable"
	}
	return fmt.Sprintf("%g", r.Number)
}

// Snapshot is the latest known state of one indicator
// ⭐ SSOT: Fetch → Scoring/Alerting 데이터 전달 단위
type Snapshot struct {
	Key       string    `json:"key"`
	Value     Reading   `json:"value"`
	Change    *float64  `json:"change,omitempty"`
	Label     string    `json:"label,omitempty"` // 정성 지표 (예: 레포 압력 "高")
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"` // unavailable 사유 (로그용)
}

// Available reports whether the snapshot carries a value
func (s Snapshot) Available() bool {
	return s.Value.Valid
}

// UnavailableSnapshot records a failed fetch
func UnavailableSnapshot(key, reason string, at time.Time) Snapshot {
	return Snapshot{
		Key:       key,
		Value:     Unavailable(),
		Timestamp: at,
		Reason:    reason,
	}
}

// SnapshotSet maps indicator key to snapshot.
// Never iterated for output order; callers walk catalog or rule order.
type SnapshotSet map[string]Snapshot

// Value returns the value of an available snapshot
func (s SnapshotSet) Value(key string) (float64, bool) {
	snap, ok := s[key]
	if !ok || !snap.Available() {
		return 0, false
	}
	return snap.Value.Number, true
}

// Change returns the change of an available snapshot
func (s SnapshotSet) Change(key string) (float64, bool) {
	snap, ok := s[key]
	if !ok || !snap.Available() || snap.Change == nil {
		return 0, false
	}
	return *snap.Change, true
}

// Label returns the provider-supplied label of an available snapshot
func (s SnapshotSet) Label(key string) (string, bool) {
	snap, ok := s[key]
	if !ok || !snap.Available() || snap.Label == "" {
		return "", false
	}
	return snap.Label, true
}

// Available reports whether key has an available snapshot
func (s SnapshotSet) Available(key string) bool {
	snap, ok := s[key]
	return ok && snap.Available()
}

// Coverage summarizes availability over keys, in the given order
func (s SnapshotSet) Coverage(keys []string) Coverage {
	cov := Coverage{Requested: len(keys), Missing: []string{}}
	for _, k := range keys {
		if s.Available(k) {
			cov.Available++
		} else {
			cov.Missing = append(cov.Missing, k)
		}
	}
	return cov
}

// Coverage reports how many requested indicators were available
type Coverage struct {
	Requested int      `json:"requested"`
	Available int      `json:"available"`
	Missing   []string `json:"missing"`
}

// Ratio returns Available/Requested (0 when nothing was requested)
func (c Coverage) Ratio() float64 {
	if c.Requested == 0 {
		return 0
	}
	return float64(c.Available) / float64(c.Requested)
}
