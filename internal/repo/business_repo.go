// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// BusinessProfile model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-bizchat-backend/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// GetBusiness returns the business profile for the given id, or ErrNotFound.
func GetBusiness(ctx context.Context, db *gorm.DB, businessID string) (*domain.BusinessProfile, error) {
	var b domain.BusinessProfile
	err := db.WithContext(ctx).First(&b, "id = ?", businessID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBusiness inserts a new business profile.
func CreateBusiness(ctx context.Context, db *gorm.DB, b *domain.BusinessProfile) error {
	return db.WithContext(ctx).Create(b).Error
}
