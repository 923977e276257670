package storage

import (
	"context"
	"log"

	"fixitfast/backend/internal/apperrors"
	"fixitfast/backend/internal/models"
	"fixitfast/backend/internal/scope"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// CreateFeedback stores a citizen's feedback.
func (s *Service) CreateFeedback(ctx context.Context, f *models.Feedback) error {
	if err := s.DB.WithContext(ctx).Omit("User").Create(f).Error; err != nil {
		log.Printf("ERROR: Failed to save feedback for complaint %s: %v", f.ComplaintID, err)
		return apperrors.NewStorageError("create feedback", err)
	}
	return nil
}

// ListFeedback returns one page of the feedback inside sc, newest first, with the
// author's name and email, together with the total number of matching rows.
func (s *Service) ListFeedback(ctx context.Context, sc scope.Scope, p FeedbackPage) ([]models.Feedback, int64, error) {
	p = p.Normalize()

	var (
		items []models.Feedback
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.DB.WithContext(gctx).
			Model(&models.Feedback{}).
			Scopes(sc.Feedback).
			Preload("User", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name", "email") }).
			Order("created_at desc, id desc").
			Limit(p.Limit).
			Offset(p.Offset()).
			Find(&items).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).
			Model(&models.Feedback{}).
			Scopes(sc.Feedback).
			Count(&total).Error
	})

	if err := g.Wait(); err != nil {
		log.Printf("ERROR: Failed to list feedback for scope %s: %v", sc, err)
		return nil, 0, apperrors.NewStorageError("list feedback", err)
	}
	return items, total, nil
}
