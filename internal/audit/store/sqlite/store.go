// Package sqlite implements the pipeline audit trail on an embedded SQLite
// file for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports"
	"tiergate/internal/sentinel"
	id "tiergate/pkg/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS pipeline_audit_entries (
    seq               INTEGER PRIMARY KEY AUTOINCREMENT,
    id                TEXT    NOT NULL UNIQUE,
    result_id         TEXT    NOT NULL,
    action_id         TEXT    NOT NULL,
    action_kind       TEXT    NOT NULL,
    status            TEXT    NOT NULL,
    recorded_at_ns    INTEGER NOT NULL,
    retention_seconds INTEGER NOT NULL,
    retain_until_ns   INTEGER NOT NULL,
    overridden        INTEGER NOT NULL DEFAULT 0,
    snapshot          TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_result ON pipeline_audit_entries (result_id, seq);
CREATE INDEX IF NOT EXISTS idx_audit_recorded_at ON pipeline_audit_entries (recorded_at_ns);
CREATE TRIGGER IF NOT EXISTS trg_audit_no_update BEFORE UPDATE ON pipeline_audit_entries
BEGIN SELECT RAISE(ABORT, 'pipeline_audit_entries is append-only'); END;
CREATE TRIGGER IF NOT EXISTS trg_audit_no_delete BEFORE DELETE ON pipeline_audit_entries
BEGIN SELECT RAISE(ABORT, 'pipeline_audit_entries is append-only'); END;
`

// Store implements ports.AuditSink on SQLite. A single connection serializes
// appends.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite audit store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		schema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close() //nolint:errcheck // best-effort cleanup on init failure
			return nil, fmt.Errorf("initialize sqlite audit store: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Health pings the database.
func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

const selectColumns = `
	SELECT id, result_id, action_id, action_kind, status, recorded_at_ns,
	       retention_seconds, retain_until_ns, overridden, snapshot
	FROM pipeline_audit_entries`

// Append inserts one audit entry. A repeated entry ID is reported as
// sentinel.ErrAlreadyUsed.
func (s *Store) Append(ctx context.Context, entry models.AuditEntry) error {
	snapshot, err := json.Marshal(entry.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal audit snapshot: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_audit_entries (
			id, result_id, action_id, action_kind, status, recorded_at_ns,
			retention_seconds, retain_until_ns, overridden, snapshot
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		entry.ID.String(),
		entry.ResultID.String(),
		entry.ActionID.String(),
		entry.ActionKind,
		string(entry.Status),
		entry.RecordedAt.UnixNano(),
		int64(entry.Retention/time.Second),
		entry.RetainUntil.UnixNano(),
		entry.Overridden,
		string(snapshot),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("audit entry %s: %w", entry.ID, sentinel.ErrAlreadyUsed)
	}
	return nil
}

// Query returns entries matching filter in append order. ActionKind matching
// is case-insensitive for ASCII, as SQLite LIKE is.
func (s *Store) Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, error) {
	var (
		conds []string
		args  []any
	)
	if !filter.From.IsZero() {
		conds = append(conds, "recorded_at_ns >= ?")
		args = append(args, filter.From.UnixNano())
	}
	if !filter.To.IsZero() {
		conds = append(conds, "recorded_at_ns <= ?")
		args = append(args, filter.To.UnixNano())
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.ActionKind != "" {
		conds = append(conds, `action_kind LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(filter.ActionKind)+"%")
	}

	query := selectColumns
	if len(conds) > 0 {
		query += "\n\tWHERE " + strings.Join(conds, " AND ")
	}
	query += "\n\tORDER BY seq ASC"
	if filter.Limit > 0 {
		query += "\n\tLIMIT ?"
		args = append(args, filter.Limit)
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
	rows, err := s.db.QueryContext(ctx, selectColumns+`
	WHERE result_id = ?
	ORDER BY seq DESC
	LIMIT 1`, resultID.String())
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
			entryID, resultID, actionID string
			status, snapshot            string
			recordedNs, retainNs        int64
			retentionSeconds            int64
		)
		if err := rows.Scan(
			&entryID,
			&resultID,
			&actionID,
			&e.ActionKind,
			&status,
			&recordedNs,
			&retentionSeconds,
			&retainNs,
			&e.Overridden,
			&snapshot,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		if err := parseIDs(&e, entryID, resultID, actionID); err != nil {
			return nil, err
		}
		e.Status = models.OverallStatus(status)
		e.RecordedAt = time.Unix(0, recordedNs).UTC()
		e.RetainUntil = time.Unix(0, retainNs).UTC()
		e.Retention = time.Duration(retentionSeconds) * time.Second
		if snapshot != "" && snapshot != "null" {
			var r models.AggregateResult
			if err := json.Unmarshal([]byte(snapshot), &r); err != nil {
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

func parseIDs(e *models.AuditEntry, entryID, resultID, actionID string) error {
	var err error
	if e.ID, err = id.ParseEntryID(entryID); err != nil {
		return fmt.Errorf("decode audit entry id: %w", err)
	}
	if e.ResultID, err = id.ParseResultID(resultID); err != nil {
		return fmt.Errorf("decode result id: %w", err)
	}
	if e.ActionID, err = id.ParseActionID(actionID); err != nil {
		return fmt.Errorf("decode action id: %w", err)
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var _ ports.AuditSink = (*Store)(nil)
