// Package postgres implements the pipeline audit trail on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports"
	"tiergate/internal/sentinel"
	id "tiergate/pkg/domain"
)

// Store implements ports.AuditSink using the pipeline_audit_entries table.
// Each Append is a single INSERT; the table rejects updates and deletes.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectColumns = `
	SELECT id, result_id, action_id, action_kind, status, recorded_at,
	       retention_seconds, retain_until, overridden, snapshot
	FROM pipeline_audit_entries`

// Append inserts one audit entry. A repeated entry ID is reported as
// sentinel.ErrAlreadyUsed.
func (s *Store) Append(ctx context.Context, entry models.AuditEntry) error {
	snapshot, err := json.Marshal(entry.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal audit snapshot: %w", err)
	}

	query := `
		INSERT INTO pipeline_audit_entries (
			id, result_id, action_id, action_kind, status, recorded_at,
			retention_seconds, retain_until, overridden, snapshot
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.ResultID),
		uuid.UUID(entry.ActionID),
		entry.ActionKind,
		string(entry.Status),
		entry.RecordedAt,
		int64(entry.Retention/time.Second),
		entry.RetainUntil,
		entry.Overridden,
		snapshot,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("audit entry %s: %w", entry.ID, sentinel.ErrAlreadyUsed)
	}
	return nil
}

// Query returns entries matching filter in append order.
func (s *Store) Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !filter.From.IsZero() {
		conds = append(conds, "recorded_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "recorded_at <= "+arg(filter.To))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(string(filter.Status)))
	}
	if filter.ActionKind != "" {
		conds = append(conds, "action_kind ILIKE "+arg("%"+escapeLike(filter.ActionKind)+"%")+` ESCAPE '\'`)
	}

	query := selectColumns
	if len(conds) > 0 {
		query += "\n\tWHERE " + strings.Join(conds, " AND ")
	}
	query += "\n\tORDER BY seq ASC"
	if filter.Limit > 0 {
		query += "\n\tLIMIT " + arg(clampLimit(filter.Limit))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Latest returns the most recently appended entry for resultID.
func (s *Store) Latest(ctx context.Context, resultID id.ResultID) (*models.AuditEntry, error) {
	query := selectColumns + `
	WHERE result_id = $1
	ORDER BY seq DESC
	LIMIT 1`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(resultID))
	if err != nil {
		return nil, fmt.Errorf("query latest audit entry: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return &entries[0], nil
}

func scanEntries(rows *sql.Rows) ([]models.AuditEntry, error) {
	entries := make([]models.AuditEntry, 0)
	for rows.Next() {
		var (
			e                           models.AuditEntry
			entryID, resultID, actionID uuid.UUID
			status                      string
			retentionSeconds            int64
			snapshot                    []byte
		)
		if err := rows.Scan(
			&entryID,
			&resultID,
			&actionID,
			&e.ActionKind,
			&status,
			&e.RecordedAt,
			&retentionSeconds,
			&e.RetainUntil,
			&e.Overridden,
			&snapshot,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		e.ID = id.EntryID(entryID)
		e.ResultID = id.ResultID(resultID)
		e.ActionID = id.ActionID(actionID)
		e.Status = models.OverallStatus(status)
		e.Retention = time.Duration(retentionSeconds) * time.Second
		if len(snapshot) > 0 && string(snapshot) != "null" {
			var r models.AggregateResult
			if err := json.Unmarshal(snapshot, &r); err != nil {
				return nil, fmt.Errorf("decode audit snapshot: %w", err)
			}
			e.Snapshot = &r
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

// clampLimit keeps LIMIT within the int32 range postgres accepts for binds.
func clampLimit(limit int) int {
	if limit > math.MaxInt32 {
		return math.MaxInt32
	}
	return limit
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var _ ports.AuditSink = (*Store)(nil)
