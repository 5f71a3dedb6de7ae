// Package services – FeedbackService
//
// This file implements the FeedbackService, which records thumbs-up/down
// feedback on individual transcript entries and aggregates it for the stats
// surface. The referenced transcript entry must exist for the same business
// and session; that referential check is deliberately stricter than a pure
// append (a feedback row pointing at nothing is useless to the owner).
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-bizchat-backend/internal/domain"
	"github.com/tbourn/go-bizchat-backend/internal/repo"
)

// FeedbackService implements the use-cases around turn feedback.
type FeedbackService struct {
	// DB is the database handle used for all feedback operations.
	DB *gorm.DB
}

// NewFeedbackService constructs a FeedbackService.
func NewFeedbackService(db *gorm.DB) *FeedbackService {
	return &FeedbackService{DB: db}
}

// FeedbackInput is one feedback submission. WasHelpful is a pointer so the
// caller can distinguish "absent" from an explicit false.
type FeedbackInput struct {
	BusinessID string
	SessionID  string
	LogID      string
	WasHelpful *bool
	Comment    string
}

// Record validates and persists one feedback submission.
//
// Semantics and validation:
//   - BusinessID, SessionID, and LogID must be non-empty, and WasHelpful
//     must be present (false is valid, absent is not); every missing field
//     is reported together in a *ValidationError.
//   - LogID must reference a transcript entry of the same (business,
//     session); otherwise ErrLogNotFound.
func (s *FeedbackService) Record(ctx context.Context, in FeedbackInput) (*domain.Feedback, error) {
	var missing []string
	if strings.TrimSpace(in.BusinessID) == "" {
		missing = append(missing, "businessId is required")
	}
	if strings.TrimSpace(in.SessionID) == "" {
		missing = append(missing, "sessionId is required")
	}
	if strings.TrimSpace(in.LogID) == "" {
		missing = append(missing, "logId is required")
	}
	if in.WasHelpful == nil {
		missing = append(missing, "wasHelpful is required")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	log, err := repo.GetChatLog(ctx, s.DB, in.BusinessID, in.LogID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrLogNotFound
		}
		return nil, err
	}
	if log.SessionID != in.SessionID {
		return nil, ErrLogNotFound
	}

	f := &domain.Feedback{
		ID:         uuid.NewString(),
		BusinessID: in.BusinessID,
		SessionID:  in.SessionID,
		LogID:      in.LogID,
		WasHelpful: *in.WasHelpful,
	}
	if c := strings.TrimSpace(in.Comment); c != "" {
		f.Comment = &c
	}
	if err := repo.CreateFeedback(ctx, s.DB, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Stats returns aggregate feedback counts for a business plus its most
// recent written comments.
func (s *FeedbackService) Stats(ctx context.Context, businessID string) (repo.FeedbackStats, []domain.Feedback, error) {
	stats, err := repo.CountFeedback(ctx, s.DB, businessID)
	if err != nil {
		return repo.FeedbackStats{}, nil, err
	}
	recent, err := repo.ListRecentFeedback(ctx, s.DB, businessID, 20)
	if err != nil {
		return repo.FeedbackStats{}, nil, err
	}
	return stats, recent, nil
}
