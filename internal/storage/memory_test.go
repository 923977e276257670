package storage_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"fixitfast/backend/internal/apperrors"
	"fixitfast/backend/internal/models"
	"fixitfast/backend/internal/scope"
	"fixitfast/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T, m *storage.MemoryStore, id, city, category string, offset time.Duration) *models.Complaint {
	t.Helper()
	c := &models.Complaint{
		ID:          id,
		Title:       "title " + id,
		Category:    category,
		Priority:    models.PriorityMedium,
		Status:      models.StatusPending,
		City:        city,
		SubmittedBy: "citizen-1",
		CreatedAt:   t0.Add(offset),
		UpdatedAt:   t0.Add(offset),
		StatusHistory: []models.StatusEntry{
			{Seq: 1, Status: models.StatusPending, ActorID: "citizen-1", At: t0.Add(offset)},
		},
	}
	require.NoError(t, m.CreateComplaint(context.Background(), c))
	return c
}

func mustScope(t *testing.T, a models.Actor) scope.Scope {
	t.Helper()
	sc, err := scope.For(a)
	require.NoError(t, err)
	return sc
}

func TestMemory_CreateAndGet(t *testing.T) {
	m := storage.NewMemoryStore()
	seed(t, m, "c1", "Pune", "Roads", 0)

	got, err := m.GetComplaint(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)
	require.Len(t, got.StatusHistory, 1)
	assert.Equal(t, "c1", got.StatusHistory[0].ComplaintID)

	got.Status = models.StatusRejected
	again, _ := m.GetComplaint(context.Background(), "c1")
	assert.Equal(t, models.StatusPending, again.Status, "returned complaints are copies")

	_, err = m.GetComplaint(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemory_CreateDuplicate(t *testing.T) {
	m := storage.NewMemoryStore()
	seed(t, m, "c1", "Pune", "Roads", 0)

	err := m.CreateComplaint(context.Background(), &models.Complaint{ID: "c1"})
	assert.Error(t, err)
}

func TestMemory_MutateAppliesAndAppends(t *testing.T) {
	m := storage.NewMemoryStore()
	seed(t, m, "c1", "Pune", "Roads", 0)

	out, err := m.MutateComplaint(context.Background(), "c1", func(c *models.Complaint) error {
		c.Status = models.StatusAssigned
		c.AssignedLabour = "labour-1"
		c.UpdatedAt = t0.Add(time.Hour)
		c.StatusHistory = append(c.StatusHistory, models.StatusEntry{Seq: 2, Status: models.StatusAssigned, ActorID: "admin-1"})
		c.Title = "ignored"
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, out.Status)
	assert.Equal(t, "title c1", out.Title, "only mutable fields are written")
	assert.Len(t, out.StatusHistory, 2)
	assert.NotEqual(t, out.StatusHistory[0].ID, out.StatusHistory[1].ID)
}

func TestMemory_MutateErrorLeavesRecordUntouched(t *testing.T) {
	m := storage.NewMemoryStore()
	seed(t, m, "c1", "Pune", "Roads", 0)
	boom := errors.New("boom")

	_, err := m.MutateComplaint(context.Background(), "c1", func(c *models.Complaint) error {
		c.Status = models.StatusRejected
		c.StatusHistory = append(c.StatusHistory, models.StatusEntry{Seq: 2})
		return boom
	})

	assert.ErrorIs(t, err, boom)
	got, _ := m.GetComplaint(context.Background(), "c1")
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Len(t, got.StatusHistory, 1)
}

func TestMemory_MutateRejectsRewritingHistory(t *testing.T) {
	m := storage.NewMemoryStore()
	seed(t, m, "c1", "Pune", "Roads", 0)

	_, err := m.MutateComplaint(context.Background(), "c1", func(c *models.Complaint) error {
		c.StatusHistory = nil
		return nil
	})

	assert.Error(t, err)
}

func TestMemory_MutateMissing(t *testing.T) {
	m := storage.NewMemoryStore()

	_, err := m.MutateComplaint(context.Background(), "nope", func(c *models.Complaint) error { return nil })

	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemory_ConcurrentMutationsAreSerialised(t *testing.T) {
	m := storage.NewMemoryStore()
	seed(t, m, "c1", "Pune", "Roads", 0)

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.MutateComplaint(context.Background(), "c1", func(c *models.Complaint) error {
				c.StatusHistory = append(c.StatusHistory, models.StatusEntry{
					Seq:    len(c.StatusHistory) + 1,
					Status: c.Status,
					Note:   fmt.Sprintf("note %d", i),
				})
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}

	// Readers running alongside must always see a consistent history.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			c, err := m.GetComplaint(context.Background(), "c1")
			if !assert.NoError(t, err) {
				return
			}
			for j, e := range c.StatusHistory {
				assert.Equal(t, j+1, e.Seq)
			}
		}
	}()

	wg.Wait()
	<-done

	c, err := m.GetComplaint(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, c.StatusHistory, writers+1)
}

func TestMemory_ListAppliesScopeAndFilter(t *testing.T) {
	m := storage.NewMemoryStore()
	seed(t, m, "p1", "Pune", "Roads", 1*time.Minute)
	seed(t, m, "p2", " pune", "Water", 2*time.Minute)
	seed(t, m, "m1", "Mumbai", "Roads", 3*time.Minute)

	pune := mustScope(t, models.Actor{ID: "a", Type: models.ActorAdmin, City: "PUNE"})

	list, err := m.ListComplaints(context.Background(), pune, storage.ComplaintFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p2", list[0].ID, "newest first")
	assert.Nil(t, list[0].StatusHistory)

	list, err = m.ListComplaints(context.Background(), pune, storage.ComplaintFilter{Category: "roads"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "p1", list[0].ID)

	list, err = m.ListComplaints(context.Background(), pune, storage.ComplaintFilter{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = m.ListComplaints(context.Background(), scope.Scope{}, storage.ComplaintFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemory_Aggregations(t *testing.T) {
	m := storage.NewMemoryStore()
	seed(t, m, "a", "Pune", "Roads", 1*time.Minute)
	seed(t, m, "b", "Pune", "Water", 2*time.Minute)
	seed(t, m, "c", "Pune", "Roads", 3*time.Minute)
	seed(t, m, "d", "Mumbai", "Garbage", 4*time.Minute)
	pune := mustScope(t, models.Actor{ID: "x", Type: models.ActorAdmin, City: "Pune"})
	ctx := context.Background()

	counts, err := m.CountByStatus(ctx, pune)
	require.NoError(t, err)
	assert.Equal(t, map[models.Status]int64{models.StatusPending: 3}, counts)

	buckets, err := m.CountBy(ctx, pune, storage.GroupCategory, 0)
	require.NoError(t, err)
	assert.Equal(t, []models.Bucket{{Key: "Roads", Count: 2}, {Key: "Water", Count: 1}}, buckets)

	buckets, err = m.CountBy(ctx, pune, storage.GroupCategory, 1)
	require.NoError(t, err)
	assert.Len(t, buckets, 1)

	_, err = m.CountBy(ctx, pune, storage.GroupField("city"), 0)
	assert.True(t, apperrors.IsValidation(err))

	recent, err := m.RecentComplaints(ctx, scope.Unrestricted(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "d", recent[0].ID)
	assert.Equal(t, "c", recent[1].ID)
}

func TestMemory_Labour(t *testing.T) {
	m := storage.NewMemoryStore()
	ctx := context.Background()
	for _, u := range []models.User{
		{ID: "l1", Name: "Ravi", Role: models.ActorLabour, City: "Pune", Active: true},
		{ID: "l2", Name: "Anil", Role: models.ActorLabour, City: "pune", Active: true},
		{ID: "l3", Name: "Zoya", Role: models.ActorLabour, City: "Mumbai", Active: true},
		{ID: "l4", Name: "Old", Role: models.ActorLabour, City: "Pune", Active: false},
		{ID: "c1", Name: "Citizen", Role: models.ActorCitizen, City: "Pune", Active: true},
	} {
		u := u
		require.NoError(t, m.SaveUser(ctx, &u))
	}
	pune := mustScope(t, models.Actor{ID: "a", Type: models.ActorAdmin, City: "Pune"})

	labour, err := m.ListLabour(ctx, pune)
	require.NoError(t, err)
	require.Len(t, labour, 2)
	assert.Equal(t, "Anil", labour[0].Name)

	n, err := m.CountLabour(ctx, scope.Unrestricted())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = m.GetUserByID(ctx, "nobody")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemory_EventsFanOut(t *testing.T) {
	m := storage.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := m.SubscribeEvents(ctx)
	require.NoError(t, err)
	b, err := m.SubscribeEvents(ctx)
	require.NoError(t, err)

	require.NoError(t, m.PublishEvent(ctx, models.ComplaintEvent{Type: models.EventCreated, ComplaintID: "c1"}))

	for _, ch := range []<-chan models.ComplaintEvent{a, b} {
		select {
		case ev := <-ch:
			assert.Equal(t, "c1", ev.ComplaintID)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-a
		return !open
	}, time.Second, 10*time.Millisecond)
}
