// Package domain defines the persistence models for business profiles,
// chatbot settings, conversation transcripts, captured leads, and feedback.
// These types are mapped with GORM and form the core data layer of the
// chatbot application.
package domain

import "time"

// Chatbot tone values accepted by ChatbotSettings.Tone. The tone influences
// both the system prompt wording and the sampling temperature used for the
// completion call.
const (
	ToneProfessional = "professional"
	ToneFriendly     = "friendly"
	ToneCasual       = "casual"
	ToneFormal       = "formal"
	ToneHelpful      = "helpful"
)

// Tones lists every valid chatbot tone, in the order surfaced to clients
// in validation messages.
var Tones = []string{ToneProfessional, ToneFriendly, ToneCasual, ToneFormal, ToneHelpful}

// Lead status lifecycle values. The conversation pipeline only ever creates
// leads with StatusNew; later transitions are an admin concern.
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusQualified = "qualified"
	StatusConverted = "converted"
	StatusRejected  = "rejected"
)

// LeadStatuses lists every valid lead status.
var LeadStatuses = []string{StatusNew, StatusContacted, StatusQualified, StatusConverted, StatusRejected}

// BusinessProfile holds the descriptive facts about a business that are
// folded into the chatbot's system prompt (name, industry, contact details,
// opening hours). The profile is owned by the wider platform; this service
// only reads it.
type BusinessProfile struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	Name        string    `json:"name"        gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	Industry    string    `json:"industry"    gorm:"type:varchar(128)"`
	Address     string    `json:"address"     gorm:"type:varchar(255)"`
	Phone       string    `json:"phone"       gorm:"type:varchar(64)"`
	Email       string    `json:"email"       gorm:"type:varchar(255)"`
	Hours       string    `json:"hours"       gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for BusinessProfile.
func (BusinessProfile) TableName() string { return "businesses" }

// FAQ is a single question/answer pair configured by the business owner.
// Order matters: the matcher walks the list front to back and the first
// hit wins.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ChatbotSettings is the per-business chatbot configuration. Exactly one
// row exists per business (unique business_id); the row is created lazily
// with defaults on first access.
//
// Fields:
//   - IsEnabled: gates all processing; when false the pipeline returns a
//     fixed disabled message without calling the completion provider.
//   - WelcomeMessage: greeting shown by the embedded widget.
//   - Tone: one of the Tone* constants; validated on update.
//   - CustomFAQs: ordered FAQ list, stored as a JSON column.
//   - MaxHistoryLength: how many prior transcript entries are replayed as
//     context (1..20).
//   - LeadCaptureEnabled: whether contact details are extracted and stored.
type ChatbotSettings struct {
	ID                 string    `json:"id"                   gorm:"type:char(36);primaryKey"`
	BusinessID         string    `json:"business_id"          gorm:"type:char(36);not null;uniqueIndex:ux_settings_business"`
	IsEnabled          bool      `json:"is_enabled"           gorm:"not null;default:true"`
	WelcomeMessage     string    `json:"welcome_message"      gorm:"type:varchar(512);not null"`
	Tone               string    `json:"tone"                 gorm:"type:varchar(32);not null;default:'professional'"`
	CustomFAQs         []FAQ     `json:"custom_faqs"          gorm:"column:custom_faqs;serializer:json"`
	MaxHistoryLength   int       `json:"max_history_length"   gorm:"not null;default:10"`
	LeadCaptureEnabled bool      `json:"lead_capture_enabled" gorm:"not null;default:true"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName returns the database table name for ChatbotSettings.
func (ChatbotSettings) TableName() string { return "chatbot_settings" }

// ChatLog is one completed conversation turn: the visitor's message and the
// bot's reply, plus the token cost of producing it (0 for FAQ answers).
// Rows are append-only; they are never mutated after creation.
//
// Entries for a (business_id, session_id) pair are totally ordered by
// (created_at, id); readers rely on that ordering both for replaying
// context and for rendering history.
type ChatLog struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	BusinessID  string    `json:"business_id"  gorm:"type:char(36);not null;index:idx_session_logs,priority:1"`
	SessionID   string    `json:"session_id"   gorm:"type:varchar(128);not null;index:idx_session_logs,priority:2"`
	UserMessage string    `json:"user_message" gorm:"type:text;not null"`
	BotResponse string    `json:"bot_response" gorm:"type:text;not null"`
	TokensUsed  int       `json:"tokens_used"  gorm:"not null;default:0"`
	CreatedAt   time.Time `json:"created_at"   gorm:"index:idx_session_logs,priority:3"`
}

// TableName returns the database table name for ChatLog.
func (ChatLog) TableName() string { return "chatbot_logs" }

// Lead is the contact information captured from a chat session. At most one
// row exists per (business_id, session_id); later detections only fill
// fields that are still empty and never overwrite populated ones.
//
// Status starts at "new" and is only changed through the admin surface,
// never by the conversation pipeline.
type Lead struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	BusinessID string    `json:"business_id" gorm:"type:char(36);not null;uniqueIndex:ux_lead_session,priority:1"`
	SessionID  string    `json:"session_id"  gorm:"type:varchar(128);not null;uniqueIndex:ux_lead_session,priority:2"`
	Name       string    `json:"name,omitempty"  gorm:"type:varchar(255)"`
	Email      string    `json:"email,omitempty" gorm:"type:varchar(255)"`
	Phone      string    `json:"phone,omitempty" gorm:"type:varchar(64)"`
	Notes      string    `json:"notes,omitempty" gorm:"type:text"`
	Status     string    `json:"status"      gorm:"type:varchar(32);not null;default:'new'"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for Lead.
func (Lead) TableName() string { return "chatbot_leads" }

// Feedback records a thumbs-up/down on a specific transcript entry, with an
// optional free-form comment. Append-only; there is no update or delete.
type Feedback struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	BusinessID string    `json:"business_id" gorm:"type:char(36);not null;index"`
	SessionID  string    `json:"session_id"  gorm:"type:varchar(128);not null"`
	LogID      string    `json:"log_id"      gorm:"type:char(36);not null;index"`
	WasHelpful bool      `json:"was_helpful" gorm:"not null"`
	Comment    *string   `json:"comment,omitempty" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "chatbot_feedback" }
