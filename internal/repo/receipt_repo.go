// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the TurnReceipt
// model used to implement safe-retry semantics for POST /chat.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-bizchat-backend/internal/domain"
)

// ErrDuplicate indicates that a turn receipt already exists for the given
// (business_id, session_id, key) tuple.
var ErrDuplicate = errors.New("duplicate")

// GetReceipt returns a non-expired receipt or ErrNotFound.
func GetReceipt(ctx context.Context, db *gorm.DB, businessID, sessionID, key string, now time.Time) (*domain.TurnReceipt, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrNotFound
	}
	var rec domain.TurnReceipt
	err := db.WithContext(ctx).
		Where("business_id = ? AND session_id = ? AND key = ? AND expires_at > ?", businessID, sessionID, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CreateReceipt inserts a receipt and returns ErrDuplicate on unique violation.
func CreateReceipt(ctx context.Context, db *gorm.DB, businessID, sessionID, key, logID string, status int, ttl time.Duration) (*domain.TurnReceipt, error) {
	now := time.Now().UTC()
	rec := &domain.TurnReceipt{
		ID:         uuid.NewString(),
		BusinessID: businessID,
		SessionID:  sessionID,
		Key:        key,
		LogID:      logID,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}
