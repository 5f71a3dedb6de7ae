// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Feedback
// model: append-only writes plus the aggregates behind the stats endpoint.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-bizchat-backend/internal/domain"
)

// FeedbackStats aggregates thumbs-up/down counts for a business.
type FeedbackStats struct {
	Total    int64 `json:"total"`
	Positive int64 `json:"positive"`
	Negative int64 `json:"negative"`
}

// CreateFeedback inserts one feedback row. Append-only.
func CreateFeedback(ctx context.Context, db *gorm.DB, f *domain.Feedback) error {
	return db.WithContext(ctx).Create(f).Error
}

// CountFeedback returns aggregate feedback counts for a business.
func CountFeedback(ctx context.Context, db *gorm.DB, businessID string) (FeedbackStats, error) {
	var s FeedbackStats
	err := db.WithContext(ctx).Model(&domain.Feedback{}).
		Where("business_id = ?", businessID).
		Count(&s.Total).Error
	if err != nil {
		return FeedbackStats{}, err
	}
	err = db.WithContext(ctx).Model(&domain.Feedback{}).
		Where("business_id = ? AND was_helpful = ?", businessID, true).
		Count(&s.Positive).Error
	if err != nil {
		return FeedbackStats{}, err
	}
	s.Negative = s.Total - s.Positive
	return s, nil
}

// ListRecentFeedback returns the newest feedback rows that carry a comment,
// capped at limit. Used by the stats endpoint to surface written remarks.
func ListRecentFeedback(ctx context.Context, db *gorm.DB, businessID string, limit int) ([]domain.Feedback, error) {
	var out []domain.Feedback
	err := db.WithContext(ctx).
		Where("business_id = ? AND comment IS NOT NULL AND comment <> ''", businessID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
