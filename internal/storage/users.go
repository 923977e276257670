package storage

import (
	"context"
	"errors"

	"fixitfast/backend/internal/apperrors"
	"fixitfast/backend/internal/models"
	"fixitfast/backend/internal/scope"

	"gorm.io/gorm"
)

// SaveUser inserts or updates a directory entry.
func (s *Service) SaveUser(ctx context.Context, u *models.User) error {
	if err := s.DB.WithContext(ctx).Save(u).Error; err != nil {
		return apperrors.NewStorageError("save user", err)
	}
	return nil
}

// GetUserByID loads a directory entry.
func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if err := checkID("user", id); err != nil {
		return nil, err
	}

	var u models.User
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("user", id)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("load user", err)
	}
	return &u, nil
}

// ListUsers returns the full directory. Maintenance tooling only.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).Order("id asc").Find(&users).Error; err != nil {
		return nil, apperrors.NewStorageError("list users", err)
	}
	return users, nil
}

// ListLabour returns the active labour visible in sc, ordered by name.
func (s *Service) ListLabour(ctx context.Context, sc scope.Scope) ([]models.User, error) {
	var users []models.User
	err := s.DB.WithContext(ctx).
		Model(&models.User{}).
		Scopes(sc.Labour).
		Where("active = ?", true).
		Order("name asc, id asc").
		Find(&users).Error
	if err != nil {
		return nil, apperrors.NewStorageError("list labour", err)
	}
	return users, nil
}

// CountLabour counts the active labour visible in sc.
func (s *Service) CountLabour(ctx context.Context, sc scope.Scope) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).
		Model(&models.User{}).
		Scopes(sc.Labour).
		Where("active = ?", true).
		Count(&n).Error
	if err != nil {
		return 0, apperrors.NewStorageError("count labour", err)
	}
	return n, nil
}
