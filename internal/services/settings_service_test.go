package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-bizchat-backend/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(
		&domain.BusinessProfile{},
		&domain.ChatbotSettings{},
		&domain.ChatLog{},
		&domain.Lead{},
		&domain.Feedback{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func faqsPtr(f []domain.FAQ) *[]domain.FAQ { return &f }

func TestSettings_Get_CreatesDefaults(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettingsService(db)

	got, err := svc.Get(context.Background(), "b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.IsEnabled {
		t.Fatal("defaults must be enabled")
	}
	if got.Tone != domain.ToneProfessional {
		t.Fatalf("tone = %q", got.Tone)
	}
	if got.MaxHistoryLength != 10 {
		t.Fatalf("max history = %d", got.MaxHistoryLength)
	}
	if !got.LeadCaptureEnabled {
		t.Fatal("lead capture defaults to enabled")
	}
	if got.WelcomeMessage == "" {
		t.Fatal("welcome message must be non-empty")
	}

	// Second access returns the same row, not a second default.
	again, err := svc.Get(context.Background(), "b1")
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if again.ID != got.ID {
		t.Fatalf("ids differ: %q vs %q", again.ID, got.ID)
	}

	var n int64
	if err := db.Model(&domain.ChatbotSettings{}).Where("business_id = ?", "b1").Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}

func TestSettings_Update_MergesPartial(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettingsService(db)

	upd := SettingsUpdate{
		Tone:       strPtr(domain.ToneFriendly),
		CustomFAQs: faqsPtr([]domain.FAQ{{Question: "hours?", Answer: "9-5"}}),
	}
	got, err := svc.Update(context.Background(), "b1", upd)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Tone != domain.ToneFriendly {
		t.Fatalf("tone = %q", got.Tone)
	}
	// Untouched fields keep their defaults.
	if !got.IsEnabled || got.MaxHistoryLength != 10 {
		t.Fatalf("unrelated fields changed: %+v", got)
	}

	// The FAQ list round-trips through the JSON column.
	reread, err := svc.Get(context.Background(), "b1")
	if err != nil {
		t.Fatalf("reread: %v", err)
	}
	if len(reread.CustomFAQs) != 1 || reread.CustomFAQs[0].Answer != "9-5" {
		t.Fatalf("faqs = %+v", reread.CustomFAQs)
	}
}

func TestSettings_Update_InvalidTone(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettingsService(db)

	_, err := svc.Update(context.Background(), "b1", SettingsUpdate{Tone: strPtr("sarcastic")})
	verr, ok := AsValidation(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 1 || !strings.Contains(verr.Fields[0], "Tone must be one of:") {
		t.Fatalf("fields = %v", verr.Fields)
	}

	// Invalid updates must write nothing, not even the default row.
	var n int64
	if err := db.Model(&domain.ChatbotSettings{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("rows = %d, want 0", n)
	}
}

func TestSettings_Update_CollectsAllViolations(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettingsService(db)

	upd := SettingsUpdate{
		Tone:             strPtr("sarcastic"),
		WelcomeMessage:   strPtr("   "),
		MaxHistoryLength: intPtr(0),
		CustomFAQs: faqsPtr([]domain.FAQ{
			{Question: "ok?", Answer: "yes"},
			{Question: "", Answer: "orphan"},
		}),
	}
	_, err := svc.Update(context.Background(), "b1", upd)
	verr, ok := AsValidation(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 4 {
		t.Fatalf("fields = %v, want 4 entries", verr.Fields)
	}

	joined := strings.Join(verr.Fields, "\n")
	for _, want := range []string{
		"Tone must be one of:",
		"welcome_message must be a non-empty string",
		"max_history_length must be between 1 and 20",
		"FAQ #2 is missing a valid question",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %v", want, verr.Fields)
		}
	}
}

func TestSettings_Update_HistoryBounds(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettingsService(db)

	for _, bad := range []int{0, -1, 21} {
		if _, err := svc.Update(context.Background(), "b1", SettingsUpdate{MaxHistoryLength: intPtr(bad)}); err == nil {
			t.Fatalf("max_history_length=%d accepted", bad)
		}
	}
	for _, good := range []int{1, 20} {
		if _, err := svc.Update(context.Background(), "b1", SettingsUpdate{MaxHistoryLength: intPtr(good)}); err != nil {
			t.Fatalf("max_history_length=%d rejected: %v", good, err)
		}
	}
}
