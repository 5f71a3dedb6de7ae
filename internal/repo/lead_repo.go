// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Lead
// model. The central operation is a merge-style upsert that never
// overwrites contact fields already captured earlier in the session.
package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-bizchat-backend/internal/domain"
)

// LeadInfo carries the contact fields detected in a single message. Empty
// strings mean "not seen in this message".
type LeadInfo struct {
	Name  string
	Email string
	Phone string
}

// Empty reports whether no contact field was detected at all.
func (l LeadInfo) Empty() bool { return l.Name == "" && l.Email == "" && l.Phone == "" }

// UpsertLead merges newly detected contact details into the session's lead
// row, creating it with status "new" if absent. Merging only fills fields
// that are still empty; populated fields and the status are never changed
// by the pipeline. Runs in a transaction so a concurrent upsert for the
// same session cannot produce two rows.
func UpsertLead(ctx context.Context, db *gorm.DB, businessID, sessionID string, info LeadInfo, notes string) (*domain.Lead, error) {
	var out domain.Lead
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&out, "business_id = ? AND session_id = ?", businessID, sessionID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			out = domain.Lead{
				ID:         uuid.NewString(),
				BusinessID: businessID,
				SessionID:  sessionID,
				Name:       info.Name,
				Email:      info.Email,
				Phone:      info.Phone,
				Notes:      notes,
				Status:     domain.StatusNew,
			}
			return tx.Create(&out).Error
		case err != nil:
			return err
		}

		updates := map[string]any{}
		if out.Name == "" && info.Name != "" {
			updates["name"] = info.Name
		}
		if out.Email == "" && info.Email != "" {
			updates["email"] = info.Email
		}
		if out.Phone == "" && info.Phone != "" {
			updates["phone"] = info.Phone
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&out).Updates(updates).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLead returns the lead captured for a session, or ErrNotFound.
func GetLead(ctx context.Context, db *gorm.DB, businessID, sessionID string) (*domain.Lead, error) {
	var out domain.Lead
	err := db.WithContext(ctx).
		First(&out, "business_id = ? AND session_id = ?", businessID, sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListLeadsPage returns one page of a business's leads, newest first,
// optionally filtered by status. Also returns the total row count for the
// same filter so callers can compute page counts.
func ListLeadsPage(ctx context.Context, db *gorm.DB, businessID, status string, offset, limit int) ([]domain.Lead, int64, error) {
	q := db.WithContext(ctx).Model(&domain.Lead{}).Where("business_id = ?", businessID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []domain.Lead
	err := q.Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
