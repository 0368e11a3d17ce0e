package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tiergate/internal/pipeline/models"
	"tiergate/internal/sentinel"
	id "tiergate/pkg/domain"
)

type StoreSuite struct {
	suite.Suite
	path  string
	store *Store
	now   time.Time
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "audit", "trail.db")
	store, err := Open(context.Background(), s.path)
	s.Require().NoError(err)
	s.store = store
	s.now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
}

func (s *StoreSuite) TearDownTest() {
	s.NoError(s.store.Close())
}

func (s *StoreSuite) entry(kind string, status models.OverallStatus, at time.Time) models.AuditEntry {
	action := &models.ProposedAction{Kind: kind, Description: "sqlite"}
	action.Normalize(at)
	r := models.NewAggregateResult(action, at)
	o := models.NewStageOutcome(models.StageBiocentric, at)
	s.Require().NoError(o.Pass("no net ecological harm"))
	o.Score = models.Float(71.5)
	s.Require().NoError(r.RecordStage(o))
	r.ApplyDecision(models.Decision{Status: status, Rationale: string(status)}, models.EventDecision, at)
	return models.NewAuditEntry(r, 7*365*24*time.Hour, at)
}

func (s *StoreSuite) TestAppendRoundTrip() {
	ctx := context.Background()
	e := s.entry("river_dam", models.StatusRejected, s.now.Add(123*time.Nanosecond))
	s.Require().NoError(s.store.Append(ctx, e))

	got, err := s.store.Latest(ctx, e.ResultID)
	s.Require().NoError(err)
	s.Equal(e.ID, got.ID)
	s.Equal(e.ActionID, got.ActionID)
	s.Equal(models.StatusRejected, got.Status)
	s.Equal(e.Retention, got.Retention)
	s.True(e.RecordedAt.Equal(got.RecordedAt))
	s.True(e.RetainUntil.Equal(got.RetainUntil))
	s.Require().NotNil(got.Snapshot)
	s.InDelta(71.5, *got.Snapshot.Outcome(models.StageBiocentric).Score, 1e-9)
}

func (s *StoreSuite) TestLatestReturnsNewestEntry() {
	ctx := context.Background()
	first := s.entry("quarry", models.StatusRejected, s.now)
	s.Require().NoError(s.store.Append(ctx, first))

	second := first
	second.ID = id.NewEntryID()
	second.Status = models.StatusEmergencyOverride
	second.Overridden = true
	s.Require().NoError(s.store.Append(ctx, second))

	got, err := s.store.Latest(ctx, first.ResultID)
	s.Require().NoError(err)
	s.Equal(second.ID, got.ID)
	s.True(got.Overridden)
}

func (s *StoreSuite) TestDuplicateIDRejected() {
	ctx := context.Background()
	e := s.entry("quarry", models.StatusApproved, s.now)
	s.Require().NoError(s.store.Append(ctx, e))
	s.ErrorIs(s.store.Append(ctx, e), sentinel.ErrAlreadyUsed)
}

func (s *StoreSuite) TestRowsAreImmutable() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, s.entry("quarry", models.StatusApproved, s.now)))

	_, err := s.store.db.ExecContext(ctx, "UPDATE pipeline_audit_entries SET status = 'rejected'")
	s.ErrorContains(err, "append-only")
	_, err = s.store.db.ExecContext(ctx, "DELETE FROM pipeline_audit_entries")
	s.ErrorContains(err, "append-only")
}

func (s *StoreSuite) TestQueryFilters() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, s.entry("river_dam", models.StatusRejected, s.now)))
	s.Require().NoError(s.store.Append(ctx, s.entry("solar_farm", models.StatusApproved, s.now.Add(time.Hour))))
	s.Require().NoError(s.store.Append(ctx, s.entry("River Dredge", models.StatusRejected, s.now.Add(2*time.Hour))))

	got, err := s.store.Query(ctx, models.AuditFilter{Status: models.StatusRejected})
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("river_dam", got[0].ActionKind)

	got, err = s.store.Query(ctx, models.AuditFilter{ActionKind: "RIVER", From: s.now.Add(time.Hour)})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("River Dredge", got[0].ActionKind)

	got, err = s.store.Query(ctx, models.AuditFilter{To: s.now.Add(time.Hour)})
	s.Require().NoError(err)
	s.Len(got, 2)

	got, err = s.store.Query(ctx, models.AuditFilter{ActionKind: "_"})
	s.Require().NoError(err)
	s.Len(got, 2)

	got, err = s.store.Query(ctx, models.AuditFilter{Limit: 1})
	s.Require().NoError(err)
	s.Len(got, 1)
}

func (s *StoreSuite) TestReopenKeepsEntries() {
	ctx := context.Background()
	e := s.entry("wetland_restore", models.StatusApproved, s.now)
	s.Require().NoError(s.store.Append(ctx, e))
	s.Require().NoError(s.store.Close())

	reopened, err := Open(ctx, s.path)
	s.Require().NoError(err)
	s.store = reopened

	got, err := s.store.Latest(ctx, e.ResultID)
	s.Require().NoError(err)
	s.Equal(e.ID, got.ID)
}

func (s *StoreSuite) TestLatestNotFound() {
	_, err := s.store.Latest(context.Background(), id.NewResultID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
