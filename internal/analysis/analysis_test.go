package analysis_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fixitfast/backend/internal/analysis"
	"fixitfast/backend/internal/apperrors"
	"fixitfast/backend/internal/models"
	"fixitfast/backend/internal/scope"
	"fixitfast/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func put(t *testing.T, s *storage.MemoryStore, n int, city, by, category string, status models.Status, priority models.Priority) {
	t.Helper()
	at := t0.Add(time.Duration(n) * time.Minute)
	c := &models.Complaint{
		ID:          fmt.Sprintf("c%02d", n),
		Title:       fmt.Sprintf("complaint %d", n),
		Category:    category,
		Priority:    priority,
		Status:      status,
		City:        city,
		SubmittedBy: by,
		CreatedAt:   at,
		UpdatedAt:   at,
		StatusHistory: []models.StatusEntry{
			{Seq: 1, Status: status, ActorID: by, At: at},
		},
	}
	require.NoError(t, s.CreateComplaint(context.Background(), c))
}

func populate(t *testing.T) *storage.MemoryStore {
	s := storage.NewMemoryStore()
	put(t, s, 1, "Pune", "cit-1", "Roads", models.StatusPending, models.PriorityHigh)
	put(t, s, 2, "pune ", "cit-1", "Water", models.StatusResolved, models.PriorityLow)
	put(t, s, 3, "PUNE", "cit-2", "Roads", models.StatusRejected, models.PriorityHigh)
	put(t, s, 4, "Mumbai", "cit-3", "Garbage", models.StatusPending, models.PriorityMedium)
	for i := 5; i < 12; i++ {
		put(t, s, i, "Pune", "cit-1", "Lights", models.StatusPending, models.PriorityMedium)
	}
	ctx := context.Background()
	require.NoError(t, s.SaveUser(ctx, &models.User{ID: "l1", Role: models.ActorLabour, City: "Pune", Active: true}))
	require.NoError(t, s.SaveUser(ctx, &models.User{ID: "l2", Role: models.ActorLabour, City: "Mumbai", Active: true}))
	return s
}

func TestCitizenDashboard(t *testing.T) {
	e := analysis.NewEngine(populate(t))

	view, err := e.Dashboard(context.Background(), models.Actor{ID: "cit-1", Type: models.ActorCitizen})

	require.NoError(t, err)
	require.NotNil(t, view.Citizen)
	assert.Nil(t, view.Admin)
	d := view.Citizen
	assert.Equal(t, int64(9), d.Counts.Total)
	assert.Equal(t, int64(8), d.Counts.Pending)
	assert.Equal(t, int64(1), d.Counts.Resolved)
	assert.Equal(t, models.Bucket{Key: "Lights", Count: 7}, d.CategoryBreakdown[0])
	require.Len(t, d.RecentComplaints, 5)
	assert.Equal(t, "c11", d.RecentComplaints[0].ID)
	assert.Equal(t, "c07", d.RecentComplaints[4].ID)
}

func TestAdminDashboard_CityScope(t *testing.T) {
	e := analysis.NewEngine(populate(t))

	view, err := e.Dashboard(context.Background(), models.Actor{ID: "a", Type: models.ActorAdmin, City: " pune"})

	require.NoError(t, err)
	require.NotNil(t, view.Admin)
	d := view.Admin
	assert.Equal(t, "city:pune", d.Scope)
	assert.Equal(t, int64(10), d.Counts.Total)
	assert.Equal(t, int64(1), d.Counts.Rejected)
	assert.Equal(t, int64(1), d.LabourInScope)
	assert.Len(t, d.RecentComplaints, 10)
	for _, c := range d.RecentComplaints {
		assert.NotEqual(t, "c04", c.ID, "Mumbai complaint leaked into Pune dashboard")
	}
	assert.Equal(t, []models.Bucket{{Key: "Lights", Count: 7}, {Key: "Roads", Count: 2}, {Key: "Water", Count: 1}}, d.TopCategories)
}

func TestAdminDashboard_SuperAdminSeesAll(t *testing.T) {
	e := analysis.NewEngine(populate(t))

	view, err := e.Dashboard(context.Background(), models.Actor{ID: "s", Type: models.ActorSuperAdmin})

	require.NoError(t, err)
	assert.Equal(t, int64(11), view.Admin.Counts.Total)
	assert.Equal(t, int64(2), view.Admin.LabourInScope)
	assert.Equal(t, "all", view.Admin.Scope)
}

func TestDashboard_AdminWithoutCity(t *testing.T) {
	e := analysis.NewEngine(populate(t))

	_, err := e.Dashboard(context.Background(), models.Actor{ID: "a", Type: models.ActorAdmin})

	assert.True(t, apperrors.IsScope(err))
}

func TestDashboard_LabourSeesAssigned(t *testing.T) {
	s := populate(t)
	_, err := s.MutateComplaint(context.Background(), "c01", func(c *models.Complaint) error {
		c.AssignedLabour = "l1"
		return nil
	})
	require.NoError(t, err)

	view, err := analysis.NewEngine(s).Dashboard(context.Background(), models.Actor{ID: "l1", Type: models.ActorLabour})

	require.NoError(t, err)
	require.NotNil(t, view.Labour)
	assert.Equal(t, int64(1), view.Labour.Counts.Total)
}

func TestDashboard_IsIdempotent(t *testing.T) {
	e := analysis.NewEngine(populate(t))
	actors := []models.Actor{
		{ID: "cit-1", Type: models.ActorCitizen},
		{ID: "a", Type: models.ActorAdmin, City: "Pune"},
		{ID: "s", Type: models.ActorSuperAdmin},
	}

	for _, a := range actors {
		first, err := e.Dashboard(context.Background(), a)
		require.NoError(t, err)
		second, err := e.Dashboard(context.Background(), a)
		require.NoError(t, err)
		assert.Equal(t, first, second, "actor %s", a.ID)
	}
}

type failingLabourCount struct {
	storage.Storage
}

func (failingLabourCount) CountLabour(ctx context.Context, sc scope.Scope) (int64, error) {
	return 0, errors.New("db gone")
}

func TestDashboard_PropagatesStorageErrors(t *testing.T) {
	e := analysis.NewEngine(failingLabourCount{Storage: populate(t)})

	_, err := e.Dashboard(context.Background(), models.Actor{ID: "s", Type: models.ActorSuperAdmin})

	assert.EqualError(t, err, "db gone")
}
