package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"

	"fixitfast/backend/internal/apperrors"
	"fixitfast/backend/internal/models"
	"fixitfast/backend/internal/scope"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

var errNoDatabase = errors.New("no database in dry-run tests")

// fakeConn never reaches a database: in dry-run mode gorm only builds statements.
type fakeConn struct{}

func (fakeConn) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return nil, errNoDatabase
}

func (fakeConn) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, errNoDatabase
}

func (fakeConn) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errNoDatabase
}

func (fakeConn) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

// fakePool hands out fakeTx transactions and counts how they end.
type fakePool struct {
	fakeConn
	mu        sync.Mutex
	commits   int
	rollbacks int
}

func (p *fakePool) BeginTx(ctx context.Context, opts *sql.TxOptions) (gorm.ConnPool, error) {
	return &fakeTx{pool: p}, nil
}

type fakeTx struct {
	fakeConn
	pool *fakePool
}

func (t *fakeTx) Commit() error {
	t.pool.mu.Lock()
	t.pool.commits++
	t.pool.mu.Unlock()
	return nil
}

func (t *fakeTx) Rollback() error {
	t.pool.mu.Lock()
	t.pool.rollbacks++
	t.pool.mu.Unlock()
	return nil
}

// sqlRecorder collects every statement gorm builds.
type sqlRecorder struct {
	mu    sync.Mutex
	stmts []string
}

func (r *sqlRecorder) record(tx *gorm.DB) {
	if tx.Statement.SQL.Len() == 0 {
		return
	}
	r.mu.Lock()
	r.stmts = append(r.stmts, tx.Dialector.Explain(tx.Statement.SQL.String(), tx.Statement.Vars...))
	r.mu.Unlock()
}

func (r *sqlRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.stmts...)
}

// find returns the first recorded statement containing every fragment.
func (r *sqlRecorder) find(t *testing.T, fragments ...string) string {
	t.Helper()
	for _, stmt := range r.all() {
		ok := true
		for _, f := range fragments {
			if !strings.Contains(stmt, f) {
				ok = false
				break
			}
		}
		if ok {
			return stmt
		}
	}
	t.Fatalf("no statement contains %q; recorded:\n%s", fragments, strings.Join(r.all(), "\n"))
	return ""
}

func newDryRunService(t *testing.T) (*Service, *sqlRecorder, *fakePool) {
	t.Helper()
	pool := &fakePool{}
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true, ConnPool: pool})
	require.NoError(t, err)

	rec := &sqlRecorder{}
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:record_query", rec.record))
	require.NoError(t, db.Callback().Row().After("gorm:row").Register("test:record_row", rec.record))
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("test:record_create", rec.record))
	require.NoError(t, db.Callback().Update().After("gorm:update").Register("test:record_update", rec.record))

	return NewStorageService(db, nil), rec, pool
}

func puneScope(t *testing.T) scope.Scope {
	t.Helper()
	sc, err := scope.For(models.Actor{ID: "admin-pune", Type: models.ActorAdmin, City: "Pune"})
	require.NoError(t, err)
	return sc
}

const cityPredicate = "LOWER(BTRIM(city"

func TestService_MutateComplaintLocksRowAndAppendsOnly(t *testing.T) {
	s, rec, pool := newDryRunService(t)
	id := uuid.New().String()

	_, err := s.MutateComplaint(context.Background(), id, func(c *models.Complaint) error {
		c.Status = models.StatusInProgress
		c.AssignedLabour = "labour-1"
		c.StatusHistory = append(c.StatusHistory, models.StatusEntry{Seq: 1, Status: models.StatusInProgress, ActorID: "labour-1"})
		c.Evidence = append(c.Evidence, models.Evidence{Kind: models.EvidenceBefore, AssetRef: "b.jpg", UploadedBy: "labour-1"})
		return nil
	})
	require.NoError(t, err)

	lock := rec.find(t, "FROM `complaints`", "FOR UPDATE")
	assert.Contains(t, lock, id)

	update := rec.find(t, "UPDATE `complaints`")
	assert.Contains(t, update, "assigned_labour")
	assert.Contains(t, update, "In Progress")
	assert.NotContains(t, update, "title", "only mutable columns are written")

	history := rec.find(t, "INSERT INTO `status_entr")
	assert.Contains(t, history, id)
	rec.find(t, "INSERT INTO `evidence", "b.jpg")

	assert.Equal(t, 1, pool.commits)
	assert.Equal(t, 0, pool.rollbacks)
}

func TestService_MutateComplaintRollsBackOnError(t *testing.T) {
	s, rec, pool := newDryRunService(t)

	_, err := s.MutateComplaint(context.Background(), uuid.New().String(), func(c *models.Complaint) error {
		c.StatusHistory = append(c.StatusHistory, models.StatusEntry{Seq: 1})
		return apperrors.NewMissingNoteError(string(models.StatusRejected))
	})

	assert.True(t, apperrors.IsMissingNote(err))
	assert.Equal(t, 0, pool.commits)
	assert.Equal(t, 1, pool.rollbacks)
	for _, stmt := range rec.all() {
		assert.NotContains(t, stmt, "INSERT")
		assert.NotContains(t, stmt, "UPDATE `complaints`")
	}
}

func TestService_MalformedIDsAreNotFound(t *testing.T) {
	s, rec, _ := newDryRunService(t)
	ctx := context.Background()

	_, err := s.GetComplaint(ctx, "nope")
	assert.True(t, apperrors.IsNotFound(err))

	called := false
	_, err = s.MutateComplaint(ctx, "nope", func(c *models.Complaint) error {
		called = true
		return nil
	})
	assert.True(t, apperrors.IsNotFound(err))
	assert.False(t, called)

	_, err = s.GetUserByID(ctx, "labour-1")
	assert.True(t, apperrors.IsNotFound(err))

	assert.Empty(t, rec.all(), "malformed ids never reach the database")
}

func TestService_AggregatesApplyScope(t *testing.T) {
	s, rec, _ := newDryRunService(t)
	ctx := context.Background()
	sc := puneScope(t)

	// Grouped results are scanned from rows, which dry-run mode cannot produce;
	// only the generated statements are checked here.
	_, _ = s.CountByStatus(ctx, sc)
	byStatus := rec.find(t, "GROUP BY status")
	assert.Contains(t, byStatus, cityPredicate)
	assert.Contains(t, byStatus, `"pune"`)

	_, _ = s.CountBy(ctx, sc, GroupCategory, 10)
	byCategory := rec.find(t, "GROUP BY category")
	assert.Contains(t, byCategory, "ORDER BY count desc, key asc")
	assert.Contains(t, byCategory, "LIMIT 10")
	assert.Contains(t, byCategory, cityPredicate)

	_, err := s.RecentComplaints(ctx, sc, 5)
	require.NoError(t, err)
	recent := rec.find(t, "ORDER BY created_at desc, id desc", "LIMIT 5")
	assert.Contains(t, recent, cityPredicate)

	_, err = s.CountBy(ctx, sc, GroupField("title"), 10)
	assert.True(t, apperrors.IsValidation(err))
}

func TestService_ListComplaintsIntersectsScopeAndFilter(t *testing.T) {
	s, rec, _ := newDryRunService(t)

	_, err := s.ListComplaints(context.Background(), puneScope(t), ComplaintFilter{Status: models.StatusPending, Limit: 20, Offset: 40})
	require.NoError(t, err)

	stmt := rec.find(t, "FROM `complaints`", "LIMIT 20")
	assert.Contains(t, stmt, cityPredicate)
	assert.Contains(t, stmt, `"Pending"`)
	assert.Contains(t, stmt, "OFFSET 40")
}

func TestService_LabourQueriesApplyScope(t *testing.T) {
	s, rec, _ := newDryRunService(t)
	ctx := context.Background()
	sc := puneScope(t)

	_, err := s.ListLabour(ctx, sc)
	require.NoError(t, err)
	list := rec.find(t, "FROM `users`", "ORDER BY name asc, id asc")
	assert.Contains(t, list, `role = "labour"`)
	assert.Contains(t, list, "active = true")
	assert.Contains(t, list, cityPredicate)

	_, err = s.CountLabour(ctx, sc)
	require.NoError(t, err)
	count := rec.find(t, "count(*)", "FROM `users`")
	assert.Contains(t, count, cityPredicate)
	assert.Contains(t, count, `role = "labour"`)
}

func TestService_ListFeedbackPagesWithinScope(t *testing.T) {
	s, rec, _ := newDryRunService(t)

	_, _, err := s.ListFeedback(context.Background(), puneScope(t), FeedbackPage{Page: 3, Limit: 10})
	require.NoError(t, err)

	page := rec.find(t, "FROM `feedbacks`", "LIMIT 10")
	assert.Contains(t, page, "OFFSET 20")
	assert.Contains(t, page, cityPredicate)

	count := rec.find(t, "count(*)", "FROM `feedbacks`")
	assert.Contains(t, count, cityPredicate)
}
