// Package analysis computes the role-dependent dashboards.
// Dashboards are derived from the complaint store on every request; nothing is cached.
package analysis

import (
	"context"
	"time"

	"fixitfast/backend/internal/apperrors"
	"fixitfast/backend/internal/config"
	"fixitfast/backend/internal/models"
	"fixitfast/backend/internal/scope"
	"fixitfast/backend/internal/storage"

	"golang.org/x/sync/errgroup"
)

// Engine builds dashboards from the store.
type Engine struct {
	Storage storage.Storage
}

// NewEngine creates a dashboard engine.
func NewEngine(s storage.Storage) *Engine {
	return &Engine{Storage: s}
}

// Dashboard returns the view matching the actor's role: citizens get their own
// complaints, labour the complaints assigned to them, admins their city and
// superadmins everything.
func (e *Engine) Dashboard(ctx context.Context, actor models.Actor) (models.DashboardView, error) {
	sc, err := scope.For(actor)
	if err != nil {
		return models.DashboardView{}, err
	}

	switch actor.Type {
	case models.ActorCitizen:
		d, err := e.personal(ctx, actor, sc)
		return models.DashboardView{Citizen: d}, err
	case models.ActorLabour:
		d, err := e.personal(ctx, actor, sc)
		return models.DashboardView{Labour: d}, err
	case models.ActorAdmin, models.ActorSuperAdmin:
		d, err := e.admin(ctx, sc)
		return models.DashboardView{Admin: d}, err
	}
	return models.DashboardView{}, apperrors.NewScopeError(apperrors.UnknownActorType, actor.ID)
}

func (e *Engine) personal(ctx context.Context, actor models.Actor, sc scope.Scope) (*models.CitizenDashboard, error) {
	d := &models.CitizenDashboard{User: actor.ID}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := e.Storage.CountByStatus(ctx, sc)
		d.Counts = statusCounts(counts)
		return err
	})
	g.Go(func() error {
		buckets, err := e.Storage.CountBy(ctx, sc, storage.GroupCategory, 0)
		d.CategoryBreakdown = nonNil(buckets)
		return err
	})
	g.Go(func() error {
		buckets, err := e.Storage.CountBy(ctx, sc, storage.GroupPriority, 0)
		d.PriorityBreakdown = nonNil(buckets)
		return err
	})
	g.Go(func() error {
		recent, err := e.Storage.RecentComplaints(ctx, sc, config.CitizenRecentComplaints)
		d.RecentComplaints = summaries(recent)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

func (e *Engine) admin(ctx context.Context, sc scope.Scope) (*models.AdminDashboard, error) {
	d := &models.AdminDashboard{Scope: sc.String()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := e.Storage.CountByStatus(ctx, sc)
		d.Counts = statusCounts(counts)
		return err
	})
	g.Go(func() error {
		buckets, err := e.Storage.CountBy(ctx, sc, storage.GroupCategory, config.AdminTopCategories)
		d.TopCategories = nonNil(buckets)
		return err
	})
	g.Go(func() error {
		buckets, err := e.Storage.CountBy(ctx, sc, storage.GroupPriority, 0)
		d.PriorityBreakdown = nonNil(buckets)
		return err
	})
	g.Go(func() error {
		recent, err := e.Storage.RecentComplaints(ctx, sc, config.AdminRecentComplaints)
		d.RecentComplaints = summaries(recent)
		return err
	})
	g.Go(func() error {
		n, err := e.Storage.CountLabour(ctx, sc)
		d.LabourInScope = n
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

func statusCounts(m map[models.Status]int64) models.StatusCounts {
	var c models.StatusCounts
	for _, s := range models.Statuses {
		c.Add(s, m[s])
	}
	return c
}

func summaries(list []models.Complaint) []models.ComplaintSummary {
	out := make([]models.ComplaintSummary, 0, len(list))
	for _, c := range list {
		out = append(out, models.ComplaintSummary{
			ID:       c.ID,
			Title:    c.Title,
			Status:   c.Status,
			Category: c.Category,
			Priority: c.Priority,
			City:     c.City,
			Created:  c.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func nonNil(b []models.Bucket) []models.Bucket {
	if b == nil {
		return []models.Bucket{}
	}
	return b
}
