// Package services – LeadService
//
// This file implements the admin-facing read side of captured leads:
// paginated listing with an optional status filter, scoped to a verified
// business.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-bizchat-backend/internal/domain"
	"github.com/tbourn/go-bizchat-backend/internal/repo"
)

// LeadService exposes captured leads to the owner dashboard.
type LeadService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewLeadService constructs a LeadService.
func NewLeadService(db *gorm.DB) *LeadService {
	return &LeadService{DB: db}
}

// ListPage returns one page of the business's leads, newest first. An
// unknown status filter is rejected with a *ValidationError; an unknown
// business with ErrBusinessNotFound.
func (s *LeadService) ListPage(ctx context.Context, businessID, status string, page, pageSize int) ([]domain.Lead, int64, error) {
	if status != "" {
		valid := false
		for _, st := range domain.LeadStatuses {
			if status == st {
				valid = true
				break
			}
		}
		if !valid {
			return nil, 0, &ValidationError{Fields: []string{"status must be one of: new, contacted, qualified, converted, rejected"}}
		}
	}

	if _, err := repo.GetBusiness(ctx, s.DB, businessID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, 0, ErrBusinessNotFound
		}
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	return repo.ListLeadsPage(ctx, s.DB, businessID, status, offset, pageSize)
}
