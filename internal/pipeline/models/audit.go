package models

import (
	"strings"
	"time"

	id "tiergate/pkg/domain"
)

// AuditEntry is a write-once snapshot of one completed result.
type AuditEntry struct {
	ID          id.EntryID       `json:"id"`
	ResultID    id.ResultID      `json:"result_id"`
	ActionID    id.ActionID      `json:"action_id"`
	ActionKind  string           `json:"action_kind"`
	Status      OverallStatus    `json:"status"`
	RecordedAt  time.Time        `json:"recorded_at"`
	Retention   time.Duration    `json:"retention"`
	RetainUntil time.Time        `json:"retain_until"`
	Overridden  bool             `json:"overridden"`
	Snapshot    *AggregateResult `json:"snapshot"`
}

// NewAuditEntry snapshots result for persistence under the given retention period.
func NewAuditEntry(result *AggregateResult, retention time.Duration, now time.Time) AuditEntry {
	return AuditEntry{
		ID:          id.NewEntryID(),
		ResultID:    result.ID,
		ActionID:    result.ActionID,
		ActionKind:  result.ActionKind,
		Status:      result.Status,
		RecordedAt:  now,
		Retention:   retention,
		RetainUntil: now.Add(retention),
		Overridden:  result.Override != nil,
		Snapshot:    result.Clone(),
	}
}

// AuditFilter narrows an audit query. Zero values match everything.
type AuditFilter struct {
	From       time.Time
	To         time.Time
	Status     OverallStatus
	ActionKind string // case-insensitive substring
	Limit      int
}

// Matches reports whether e satisfies every set criterion of f.
// The date range is inclusive on both ends.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if !f.From.IsZero() && e.RecordedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.RecordedAt.After(f.To) {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.ActionKind != "" && !strings.Contains(strings.ToLower(e.ActionKind), strings.ToLower(f.ActionKind)) {
		return false
	}
	return true
}
