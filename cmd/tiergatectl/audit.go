package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	auditpg "tiergate/internal/audit/store/postgres"
	auditsqlite "tiergate/internal/audit/store/sqlite"
	"tiergate/internal/pipeline/models"
	"tiergate/internal/pipeline/ports"
	"tiergate/internal/platform/config"
	"tiergate/internal/platform/database"
)

// auditRow is the printed summary of one audit entry; snapshots are omitted.
type auditRow struct {
	ID          string    `json:"id" yaml:"id"`
	ResultID    string    `json:"result_id" yaml:"result_id"`
	ActionKind  string    `json:"action_kind" yaml:"action_kind"`
	Status      string    `json:"status" yaml:"status"`
	Overridden  bool      `json:"overridden" yaml:"overridden"`
	RecordedAt  time.Time `json:"recorded_at" yaml:"recorded_at"`
	RetainUntil time.Time `json:"retain_until" yaml:"retain_until"`
}

func toRows(entries []models.AuditEntry) []auditRow {
	rows := make([]auditRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, auditRow{
			ID:          e.ID.String(),
			ResultID:    e.ResultID.String(),
			ActionKind:  e.ActionKind,
			Status:      string(e.Status),
			Overridden:  e.Overridden,
			RecordedAt:  e.RecordedAt.UTC(),
			RetainUntil: e.RetainUntil.UTC(),
		})
	}
	return rows
}

type auditFlags struct {
	databaseURL string
	sqlitePath  string
	since       time.Duration
	status      string
	kind        string
	limit       int
	output      string
}

// filter builds the audit filter relative to now.
func (f auditFlags) filter(now time.Time) (models.AuditFilter, error) {
	filter := models.AuditFilter{ActionKind: f.kind, Limit: f.limit}
	if f.since > 0 {
		filter.From = now.Add(-f.since)
	}
	if f.status != "" {
		st, err := models.ParseOverallStatus(f.status)
		if err != nil {
			return models.AuditFilter{}, err
		}
		filter.Status = st
	}
	return filter, nil
}

func newAuditCmd(log func() *slog.Logger) *cobra.Command {
	var flags auditFlags
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the audit trail in postgres or a SQLite file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAudit(cmd, flags, log())
		},
	}
	cmd.Flags().StringVar(&flags.databaseURL, "database-url", "", "postgres URL (defaults to DATABASE_URL)")
	cmd.Flags().StringVar(&flags.sqlitePath, "sqlite", "", "SQLite audit file (defaults to AUDIT_SQLITE_PATH)")
	cmd.Flags().DurationVar(&flags.since, "since", 24*time.Hour, "look back this far; 0 for all time")
	cmd.Flags().StringVar(&flags.status, "status", "", "filter by overall status")
	cmd.Flags().StringVar(&flags.kind, "kind", "", "filter by action kind substring")
	cmd.Flags().IntVar(&flags.limit, "limit", 50, "maximum entries")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "yaml", "output format (yaml, json)")
	return cmd
}

func runAudit(cmd *cobra.Command, flags auditFlags, log *slog.Logger) error {
	if flags.output != "yaml" && flags.output != "json" {
		return fmt.Errorf("unknown output format %q", flags.output)
	}
	filter, err := flags.filter(time.Now())
	if err != nil {
		return err
	}

	ctx := ctxOrBackground(cmd)
	store, closeStore, err := openAuditStore(ctx, flags)
	if err != nil {
		return err
	}
	defer closeStore()

	entries, err := store.Query(ctx, filter)
	if err != nil {
		return fmt.Errorf("query audit trail: %w", err)
	}
	log.Debug("audit query", "entries", len(entries), "status", filter.Status, "kind", filter.ActionKind)
	return writeRows(cmd, flags.output, toRows(entries))
}

// openAuditStore prefers postgres and falls back to SQLite.
func openAuditStore(ctx context.Context, flags auditFlags) (ports.AuditSink, func(), error) {
	url := flags.databaseURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url != "" {
		pool, err := database.New(ctx, config.DatabaseConfig{URL: url, MaxOpenConns: 2, MaxIdleConns: 1})
		if err != nil {
			return nil, nil, err
		}
		return auditpg.New(pool.DB()), func() { _ = pool.Close() }, nil
	}

	path := flags.sqlitePath
	if path == "" {
		path = os.Getenv("AUDIT_SQLITE_PATH")
	}
	if path == "" {
		return nil, nil, fmt.Errorf("--database-url, --sqlite, DATABASE_URL or AUDIT_SQLITE_PATH is required")
	}
	store, err := auditsqlite.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func writeRows(cmd *cobra.Command, format string, rows []auditRow) error {
	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(rows); err != nil {
		return err
	}
	return enc.Close()
}
