package domain

import (
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(BusinessProfile{}).TableName(): "businesses",
		(ChatbotSettings{}).TableName(): "chatbot_settings",
		(ChatLog{}).TableName():         "chatbot_logs",
		(Lead{}).TableName():            "chatbot_leads",
		(Feedback{}).TableName():        "chatbot_feedback",
		(TurnReceipt{}).TableName():     "turn_receipts",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName = %q, want %q", got, want)
		}
	}
}

func TestMigrations_IndexesAndUniqueConstraints(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(
		&BusinessProfile{}, &ChatbotSettings{}, &ChatLog{},
		&Lead{}, &Feedback{}, &TurnReceipt{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()

	for _, tbl := range []any{
		&BusinessProfile{}, &ChatbotSettings{}, &ChatLog{},
		&Lead{}, &Feedback{}, &TurnReceipt{},
	} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}

	if !m.HasIndex(&ChatbotSettings{}, "ux_settings_business") {
		t.Fatal("expected unique index ux_settings_business on chatbot_settings")
	}
	if !m.HasIndex(&ChatLog{}, "idx_session_logs") {
		t.Fatal("expected index idx_session_logs on chatbot_logs")
	}
	if !m.HasIndex(&Lead{}, "ux_lead_session") {
		t.Fatal("expected unique index ux_lead_session on chatbot_leads")
	}
	if !m.HasIndex(&TurnReceipt{}, "ux_business_session_key") {
		t.Fatal("expected unique index ux_business_session_key on turn_receipts")
	}

	// One settings row per business.
	now := time.Now().UTC()
	s1 := &ChatbotSettings{ID: uuid.NewString(), BusinessID: "b1", Tone: "friendly", MaxHistoryLength: 10, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(s1).Error; err != nil {
		t.Fatalf("insert settings: %v", err)
	}
	dup := &ChatbotSettings{ID: uuid.NewString(), BusinessID: "b1", Tone: "casual", MaxHistoryLength: 10, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(dup).Error; err == nil {
		t.Fatal("expected unique violation for second settings row with same business")
	}

	// One lead per (business, session).
	l1 := &Lead{ID: uuid.NewString(), BusinessID: "b1", SessionID: "s1", Status: "new", CreatedAt: now, UpdatedAt: now}
	if err := db.Create(l1).Error; err != nil {
		t.Fatalf("insert lead: %v", err)
	}
	l2 := &Lead{ID: uuid.NewString(), BusinessID: "b1", SessionID: "s1", Status: "new", CreatedAt: now, UpdatedAt: now}
	if err := db.Create(l2).Error; err == nil {
		t.Fatal("expected unique violation for second lead in same session")
	}

	// One receipt per (business, session, key).
	r1 := &TurnReceipt{ID: uuid.NewString(), BusinessID: "b1", SessionID: "s1", Key: "k1", LogID: "lg1", Status: 200, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(r1).Error; err != nil {
		t.Fatalf("insert receipt: %v", err)
	}
	r2 := &TurnReceipt{ID: uuid.NewString(), BusinessID: "b1", SessionID: "s1", Key: "k1", LogID: "lg2", Status: 200, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(r2).Error; err == nil {
		t.Fatal("expected unique violation for duplicate receipt key")
	}
}

func TestFAQSerializerRoundTrip(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&ChatbotSettings{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	now := time.Now().UTC()
	s := &ChatbotSettings{
		ID:               uuid.NewString(),
		BusinessID:       "b-faq",
		Tone:             "professional",
		MaxHistoryLength: 10,
		CustomFAQs: []FAQ{
			{Question: "What are your hours?", Answer: "9 to 5"},
			{Question: "Where are you located?", Answer: "Main St"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}

	var got ChatbotSettings
	if err := db.First(&got, "business_id = ?", "b-faq").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if len(got.CustomFAQs) != 2 || got.CustomFAQs[0].Question != "What are your hours?" || got.CustomFAQs[1].Answer != "Main St" {
		t.Fatalf("faq round trip mismatch: %+v", got.CustomFAQs)
	}
}
