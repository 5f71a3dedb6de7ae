// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the ChatLog
// model: append-only transcript writes and the ordered reads used both for
// rendering history and for replaying context to the completion provider.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-bizchat-backend/internal/domain"
)

// CreateChatLog appends one completed conversation turn to the transcript.
func CreateChatLog(ctx context.Context, db *gorm.DB, log *domain.ChatLog) error {
	return db.WithContext(ctx).Create(log).Error
}

// ListChatLogs returns the full transcript for a session, oldest first.
// The (created_at, id) tiebreak keeps same-timestamp turns stable.
func ListChatLogs(ctx context.Context, db *gorm.DB, businessID, sessionID string) ([]domain.ChatLog, error) {
	var out []domain.ChatLog
	err := db.WithContext(ctx).
		Where("business_id = ? AND session_id = ?", businessID, sessionID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecentChatLogs returns the last `limit` turns of a session in
// chronological order, i.e. the tail of the transcript oldest-first. This
// is the window replayed to the completion provider as context.
func RecentChatLogs(ctx context.Context, db *gorm.DB, businessID, sessionID string, limit int) ([]domain.ChatLog, error) {
	if limit <= 0 {
		return nil, nil
	}
	var out []domain.ChatLog
	err := db.WithContext(ctx).
		Where("business_id = ? AND session_id = ?", businessID, sessionID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// GetChatLog fetches one transcript entry by id, scoped to its business.
func GetChatLog(ctx context.Context, db *gorm.DB, businessID, logID string) (*domain.ChatLog, error) {
	var out domain.ChatLog
	err := db.WithContext(ctx).
		First(&out, "id = ? AND business_id = ?", logID, businessID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CountChatLogs returns the number of transcript entries for a session.
func CountChatLogs(ctx context.Context, db *gorm.DB, businessID, sessionID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.ChatLog{}).
		Where("business_id = ? AND session_id = ?", businessID, sessionID).
		Count(&n).Error
	return n, err
}
