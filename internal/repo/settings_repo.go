// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ChatbotSettings model, including the lazy get-or-create path used on
// first access to a business.
package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-bizchat-backend/internal/domain"
)

// DefaultSettings returns the settings row that is lazily created the first
// time a business is accessed and no explicit configuration exists yet.
func DefaultSettings(businessID string) *domain.ChatbotSettings {
	return &domain.ChatbotSettings{
		ID:                 uuid.NewString(),
		BusinessID:         businessID,
		IsEnabled:          true,
		WelcomeMessage:     "Hi there! How can I help you today?",
		Tone:               domain.ToneProfessional,
		CustomFAQs:         []domain.FAQ{},
		MaxHistoryLength:   10,
		LeadCaptureEnabled: true,
	}
}

// GetOrCreateSettings fetches the settings row for a business, inserting the
// defaults if none exists. The insert uses ON CONFLICT DO NOTHING on the
// business_id unique index, so two concurrent first requests both converge
// on the same single row.
func GetOrCreateSettings(ctx context.Context, db *gorm.DB, businessID string) (*domain.ChatbotSettings, error) {
	row := DefaultSettings(businessID)
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "business_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return nil, res.Error
	}

	// Re-select regardless of whether our insert won: the surviving row may
	// be the one a concurrent request (or an earlier update) wrote.
	var out domain.ChatbotSettings
	err := db.WithContext(ctx).First(&out, "business_id = ?", businessID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSettings fetches the settings row for a business without creating one.
func GetSettings(ctx context.Context, db *gorm.DB, businessID string) (*domain.ChatbotSettings, error) {
	var out domain.ChatbotSettings
	err := db.WithContext(ctx).First(&out, "business_id = ?", businessID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveSettings persists the full settings row (all mutable fields).
func SaveSettings(ctx context.Context, db *gorm.DB, s *domain.ChatbotSettings) error {
	return db.WithContext(ctx).
		Model(s).
		Select("is_enabled", "welcome_message", "tone", "custom_faqs", "max_history_length", "lead_capture_enabled").
		Updates(s).Error
}
