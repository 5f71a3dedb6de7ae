// Package services – SettingsService
//
// This file implements per-business chatbot configuration: lazy creation of
// defaults on first access and validated partial updates. Validation
// collects every violated field in one pass so a client can fix the whole
// payload in a single round trip.
package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-bizchat-backend/internal/domain"
	"github.com/tbourn/go-bizchat-backend/internal/repo"
)

// SettingsUpdate is the closed set of fields a settings update may change.
// Nil pointers mean "leave unchanged".
type SettingsUpdate struct {
	IsEnabled          *bool         `json:"is_enabled,omitempty"`
	WelcomeMessage     *string       `json:"welcome_message,omitempty"`
	Tone               *string       `json:"tone,omitempty"`
	CustomFAQs         *[]domain.FAQ `json:"custom_faqs,omitempty"`
	MaxHistoryLength   *int          `json:"max_history_length,omitempty"`
	LeadCaptureEnabled *bool         `json:"lead_capture_enabled,omitempty"`
}

// SettingsService resolves and mutates per-business chatbot settings.
type SettingsService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{DB: db}
}

// Get returns the settings for a business, creating the default row on
// first access. Concurrent first calls converge on a single row.
func (s *SettingsService) Get(ctx context.Context, businessID string) (*domain.ChatbotSettings, error) {
	return repo.GetOrCreateSettings(ctx, s.DB, businessID)
}

// Update validates upd, merges it over the existing settings (creating the
// default row first if none exists), and persists the result. Invalid input
// is rejected with a *ValidationError listing every violated field; nothing
// is written in that case.
func (s *SettingsService) Update(ctx context.Context, businessID string, upd SettingsUpdate) (*domain.ChatbotSettings, error) {
	if verr := validateSettingsUpdate(upd); verr != nil {
		return nil, verr
	}

	cur, err := repo.GetOrCreateSettings(ctx, s.DB, businessID)
	if err != nil {
		return nil, err
	}

	if upd.IsEnabled != nil {
		cur.IsEnabled = *upd.IsEnabled
	}
	if upd.WelcomeMessage != nil {
		cur.WelcomeMessage = strings.TrimSpace(*upd.WelcomeMessage)
	}
	if upd.Tone != nil {
		cur.Tone = *upd.Tone
	}
	if upd.CustomFAQs != nil {
		cur.CustomFAQs = *upd.CustomFAQs
	}
	if upd.MaxHistoryLength != nil {
		cur.MaxHistoryLength = *upd.MaxHistoryLength
	}
	if upd.LeadCaptureEnabled != nil {
		cur.LeadCaptureEnabled = *upd.LeadCaptureEnabled
	}

	if err := repo.SaveSettings(ctx, s.DB, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

// validateSettingsUpdate returns a *ValidationError listing every violation
// in upd, or nil when the update is acceptable.
func validateSettingsUpdate(upd SettingsUpdate) error {
	var errs []string

	if upd.Tone != nil {
		valid := false
		for _, t := range domain.Tones {
			if *upd.Tone == t {
				valid = true
				break
			}
		}
		if !valid {
			errs = append(errs, "Tone must be one of: "+strings.Join(domain.Tones, ", "))
		}
	}

	if upd.CustomFAQs != nil {
		for i, faq := range *upd.CustomFAQs {
			if strings.TrimSpace(faq.Question) == "" {
				errs = append(errs, fmt.Sprintf("FAQ #%d is missing a valid question", i+1))
			}
			if strings.TrimSpace(faq.Answer) == "" {
				errs = append(errs, fmt.Sprintf("FAQ #%d is missing a valid answer", i+1))
			}
		}
	}

	if upd.WelcomeMessage != nil && strings.TrimSpace(*upd.WelcomeMessage) == "" {
		errs = append(errs, "welcome_message must be a non-empty string")
	}

	if upd.MaxHistoryLength != nil && (*upd.MaxHistoryLength < 1 || *upd.MaxHistoryLength > 20) {
		errs = append(errs, "max_history_length must be between 1 and 20")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
