package storage

import (
	"context"
	"errors"
	"fmt"
	"log"

	"fixitfast/backend/internal/apperrors"
	"fixitfast/backend/internal/models"
	"fixitfast/backend/internal/scope"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MutateFunc changes a locked complaint in place. Returning an error aborts the
// mutation and nothing is written.
type MutateFunc func(c *models.Complaint) error

// Storage is the complaint store. Every read that returns more than one complaint
// takes a scope.Scope and applies it inside the query.
type Storage interface {
	CreateComplaint(ctx context.Context, c *models.Complaint) error
	GetComplaint(ctx context.Context, id string) (*models.Complaint, error)
	MutateComplaint(ctx context.Context, id string, fn MutateFunc) (*models.Complaint, error)
	ListComplaints(ctx context.Context, sc scope.Scope, f ComplaintFilter) ([]models.Complaint, error)

	CountByStatus(ctx context.Context, sc scope.Scope) (map[models.Status]int64, error)
	CountBy(ctx context.Context, sc scope.Scope, field GroupField, limit int) ([]models.Bucket, error)
	RecentComplaints(ctx context.Context, sc scope.Scope, limit int) ([]models.Complaint, error)

	SaveUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ListLabour(ctx context.Context, sc scope.Scope) ([]models.User, error)
	CountLabour(ctx context.Context, sc scope.Scope) (int64, error)

	CreateFeedback(ctx context.Context, f *models.Feedback) error
	ListFeedback(ctx context.Context, sc scope.Scope, p FeedbackPage) ([]models.Feedback, int64, error)
}

// EventBus carries committed complaint changes to live subscribers.
type EventBus interface {
	PublishEvent(ctx context.Context, ev models.ComplaintEvent) error
	SubscribeEvents(ctx context.Context) (<-chan models.ComplaintEvent, error)
}

// Service is the PostgreSQL (gorm) store with Redis pub/sub for events.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// Migrate creates or updates the tables used by the store.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.Complaint{},
		&models.StatusEntry{},
		&models.Evidence{},
		&models.Feedback{},
	)
}

// checkID rejects ids that cannot exist in a uuid column before they reach
// PostgreSQL, which would fail the query instead of finding nothing.
func checkID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewNotFoundError(kind, id)
	}
	return nil
}

// CreateComplaint inserts a complaint together with its initial history entries.
func (s *Service) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	if err := s.DB.WithContext(ctx).Create(c).Error; err != nil {
		log.Printf("ERROR: Failed to save complaint for citizen %s: %v", c.SubmittedBy, err)
		return apperrors.NewStorageError("create complaint", err)
	}
	return nil
}

// GetComplaint loads a complaint with its ordered history and evidence.
func (s *Service) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	if err := checkID("complaint", id); err != nil {
		return nil, err
	}

	var c models.Complaint
	err := s.DB.WithContext(ctx).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("seq asc") }).
		Preload("Evidence", func(db *gorm.DB) *gorm.DB { return db.Order("uploaded_at asc, id asc") }).
		Where("id = ?", id).
		First(&c).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("complaint", id)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("load complaint", err)
	}
	return &c, nil
}

// MutateComplaint locks the complaint row (SELECT ... FOR UPDATE), hands the loaded
// record to fn and writes the result in the same transaction. Only status,
// assigned labour and updated_at are written back; history and evidence rows
// appended by fn are inserted, existing ones are never rewritten.
func (s *Service) MutateComplaint(ctx context.Context, id string, fn MutateFunc) (*models.Complaint, error) {
	if err := checkID("complaint", id); err != nil {
		return nil, err
	}

	var out models.Complaint

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Complaint
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&c).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFoundError("complaint", id)
		}
		if err != nil {
			return apperrors.NewStorageError("lock complaint", err)
		}
		if err := tx.Where("complaint_id = ?", id).Order("seq asc").Find(&c.StatusHistory).Error; err != nil {
			return apperrors.NewStorageError("load history", err)
		}
		if err := tx.Where("complaint_id = ?", id).Order("uploaded_at asc, id asc").Find(&c.Evidence).Error; err != nil {
			return apperrors.NewStorageError("load evidence", err)
		}

		historyLen, evidenceLen := len(c.StatusHistory), len(c.Evidence)

		if err := fn(&c); err != nil {
			return err
		}
		if len(c.StatusHistory) < historyLen || len(c.Evidence) < evidenceLen {
			return fmt.Errorf("complaint %s: history and evidence are append-only", id)
		}

		err = tx.Model(&models.Complaint{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":          c.Status,
			"assigned_labour": c.AssignedLabour,
			"updated_at":      c.UpdatedAt,
		}).Error
		if err != nil {
			return apperrors.NewStorageError("update complaint", err)
		}

		if added := c.StatusHistory[historyLen:]; len(added) > 0 {
			for i := range added {
				added[i].ComplaintID = id
			}
			if err := tx.Create(&added).Error; err != nil {
				return apperrors.NewStorageError("append history", err)
			}
		}
		if added := c.Evidence[evidenceLen:]; len(added) > 0 {
			for i := range added {
				added[i].ComplaintID = id
			}
			if err := tx.Create(&added).Error; err != nil {
				return apperrors.NewStorageError("append evidence", err)
			}
		}

		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListComplaints returns the complaints inside sc matching f, newest first.
func (s *Service) ListComplaints(ctx context.Context, sc scope.Scope, f ComplaintFilter) ([]models.Complaint, error) {
	f = f.Normalize()

	var list []models.Complaint
	err := s.DB.WithContext(ctx).
		Model(&models.Complaint{}).
		Scopes(sc.Complaints, f.apply).
		Order("created_at desc, id desc").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&list).Error
	if err != nil {
		log.Printf("ERROR: Failed to list complaints for scope %s: %v", sc, err)
		return nil, apperrors.NewStorageError("list complaints", err)
	}
	return list, nil
}

// CountByStatus groups the complaints inside sc by status.
func (s *Service) CountByStatus(ctx context.Context, sc scope.Scope) (map[models.Status]int64, error) {
	var rows []struct {
		Status models.Status
		Count  int64
	}
	err := s.DB.WithContext(ctx).
		Model(&models.Complaint{}).
		Scopes(sc.Complaints).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.NewStorageError("count by status", err)
	}

	counts := make(map[models.Status]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// CountBy groups the complaints inside sc by field, largest groups first. A
// non-positive limit returns every group.
func (s *Service) CountBy(ctx context.Context, sc scope.Scope, field GroupField, limit int) ([]models.Bucket, error) {
	if !field.valid() {
		return nil, apperrors.NewValidationError("group", fmt.Sprintf("cannot group by %q", field))
	}

	q := s.DB.WithContext(ctx).
		Model(&models.Complaint{}).
		Scopes(sc.Complaints).
		Select(fmt.Sprintf("%s AS key, COUNT(*) AS count", field)).
		Group(string(field)).
		Order("count desc, key asc")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var buckets []models.Bucket
	if err := q.Scan(&buckets).Error; err != nil {
		return nil, apperrors.NewStorageError("count by "+string(field), err)
	}
	return buckets, nil
}

// RecentComplaints returns the newest complaints inside sc.
func (s *Service) RecentComplaints(ctx context.Context, sc scope.Scope, limit int) ([]models.Complaint, error) {
	var list []models.Complaint
	err := s.DB.WithContext(ctx).
		Model(&models.Complaint{}).
		Scopes(sc.Complaints).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, apperrors.NewStorageError("recent complaints", err)
	}
	return list, nil
}
