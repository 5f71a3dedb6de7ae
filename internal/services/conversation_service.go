// Package services – ConversationService
//
// This file implements the per-turn conversation pipeline: resolve the
// business's settings, short-circuit on FAQ matches, assemble the prompt
// from business context plus a bounded history window, call the completion
// provider, persist the transcript entry, and capture detected lead details
// best-effort. Provider failures degrade to a fixed apologetic reply rather
// than erroring out to the chat widget.
//
// Observability: public methods are OpenTelemetry-instrumented, and turn
// outcomes are counted with Prometheus so FAQ hit rates and provider
// failures are visible on dashboards.
package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/tbourn/go-bizchat-backend/internal/completion"
	"github.com/tbourn/go-bizchat-backend/internal/domain"
	"github.com/tbourn/go-bizchat-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Fixed replies for the terminal states that never reach the provider.
const (
	DisabledMessage = "Sorry, this chatbot is currently disabled."
	FallbackMessage = "I'm sorry, I encountered an error processing your message. Please try again later."
	emptyReply      = "I'm sorry, I couldn't generate a response."
)

// System instruction injected when the turn qualifies as a lead-capture
// moment and the bot has not already asked for contact details in the
// current history window.
const leadNudgeInstruction = "If the user seems interested in the business's services or has specific questions that indicate they might become a customer, POLITELY ask for their contact information (email or phone) so the business can follow up with them. But don't be pushy or ask for contact info more than once."

const completionMaxTokens = 500

var (
	// turnOutcomes counts processed turns by terminal state.
	turnOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_turns_total",
			Help: "Total number of processed chat turns by outcome.",
		},
		[]string{"outcome"}, // disabled | faq | completed | fallback
	)

	// completionTokens accumulates token usage reported by the provider.
	completionTokens = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatbot_completion_tokens_total",
			Help: "Total completion tokens consumed across all turns.",
		},
	)

	// leadsCaptured counts successful lead-store writes from the pipeline.
	leadsCaptured = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatbot_leads_captured_total",
			Help: "Total number of lead upserts performed by the pipeline.",
		},
	)
)

func init() {
	prometheus.MustRegister(turnOutcomes, completionTokens, leadsCaptured)
}

// TurnResult is the outcome of one processed chat turn.
//
// Fields:
//   - Response: the text to show the visitor; always set.
//   - LogID: id of the persisted transcript entry; empty when the turn did
//     not produce one (disabled chatbot, provider fallback).
//   - LeadInfo: contact details detected in the visitor's message.
//   - IsLeadCollectionAttempt: whether the contact-info nudge instruction
//     was injected into this turn's prompt.
//   - LeadErr: failure of the best-effort lead-store write. Never affects
//     Response; callers log it and move on.
type TurnResult struct {
	Response                string
	LogID                   string
	LeadInfo                repo.LeadInfo
	IsLeadCollectionAttempt bool
	LeadErr                 error
}

// ConversationService orchestrates one chat turn end to end.
type ConversationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Provider generates assistant replies.
	Provider completion.Provider
	// Settings resolves per-business configuration.
	Settings *SettingsService

	// MaxMessageRunes caps inbound message length by rune count.
	MaxMessageRunes int
}

// NewConversationService constructs a ConversationService with the default
// inbound message cap.
func NewConversationService(db *gorm.DB, p completion.Provider, settings *SettingsService) *ConversationService {
	return &ConversationService{
		DB:              db,
		Provider:        p,
		Settings:        settings,
		MaxMessageRunes: 4000,
	}
}

// ProcessTurn runs the full pipeline for one inbound message. Terminal on
// the first reachable end state: disabled chatbot, FAQ hit, provider
// fallback, or a completed provider turn.
func (s *ConversationService) ProcessTurn(ctx context.Context, businessID, sessionID, message string) (*TurnResult, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "ProcessTurn",
		trace.WithAttributes(
			attribute.String("business.id", businessID),
			attribute.String("session.id", sessionID),
		),
	)
	defer span.End()

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(message) > s.MaxMessageRunes {
		return nil, ErrMessageTooLong
	}

	settings, err := s.Settings.Get(ctx, businessID)
	if err != nil {
		return nil, err
	}

	if !settings.IsEnabled {
		turnOutcomes.WithLabelValues("disabled").Inc()
		return &TurnResult{Response: DisabledMessage}, nil
	}

	// FAQ short-circuit: answer from the configured list without touching
	// the provider. Token cost is recorded as zero.
	if answer, ok := MatchFAQ(message, settings.CustomFAQs); ok {
		log, err := s.appendLog(ctx, businessID, sessionID, message, answer, 0)
		if err != nil {
			return nil, err
		}
		turnOutcomes.WithLabelValues("faq").Inc()
		return &TurnResult{Response: answer, LogID: log.ID}, nil
	}

	history, err := repo.RecentChatLogs(ctx, s.DB, businessID, sessionID, settings.MaxHistoryLength)
	if err != nil {
		return nil, err
	}

	var leadInfo repo.LeadInfo
	if settings.LeadCaptureEnabled {
		leadInfo = DetectLeadInfo(message)
	}

	nudge := settings.LeadCaptureEnabled &&
		ShouldCaptureLead(history, message) &&
		!BotAskedForContact(history)

	msgs := s.buildPrompt(ctx, businessID, settings, history, message, nudge)

	reply, tokens, perr := s.Provider.Complete(ctx, msgs, completion.Options{
		Temperature: temperatureForTone(settings.Tone),
		MaxTokens:   completionMaxTokens,
	})
	if perr != nil {
		// Degrade to the apologetic fallback; no transcript entry is
		// written for the failed attempt.
		span.RecordError(perr)
		turnOutcomes.WithLabelValues("fallback").Inc()
		return &TurnResult{Response: FallbackMessage}, nil
	}
	if reply == "" {
		reply = emptyReply
	}
	completionTokens.Add(float64(tokens))

	log, err := s.appendLog(ctx, businessID, sessionID, message, reply, tokens)
	if err != nil {
		return nil, err
	}

	res := &TurnResult{
		Response:                reply,
		LogID:                   log.ID,
		LeadInfo:                leadInfo,
		IsLeadCollectionAttempt: nudge,
	}

	// Best-effort lead capture: a store failure here must not fail the
	// turn, the response has already been generated.
	if settings.LeadCaptureEnabled && !leadInfo.Empty() {
		if _, lerr := repo.UpsertLead(ctx, s.DB, businessID, sessionID, leadInfo, ""); lerr != nil {
			span.RecordError(lerr)
			res.LeadErr = lerr
		} else {
			leadsCaptured.Inc()
		}
	}

	turnOutcomes.WithLabelValues("completed").Inc()
	return res, nil
}

// History returns a session's full transcript, oldest first.
func (s *ConversationService) History(ctx context.Context, businessID, sessionID string) ([]domain.ChatLog, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "History",
		trace.WithAttributes(
			attribute.String("business.id", businessID),
			attribute.String("session.id", sessionID),
		),
	)
	defer span.End()

	return repo.ListChatLogs(ctx, s.DB, businessID, sessionID)
}

func (s *ConversationService) appendLog(ctx context.Context, businessID, sessionID, userMessage, botResponse string, tokens int) (*domain.ChatLog, error) {
	log := &domain.ChatLog{
		ID:          uuid.NewString(),
		BusinessID:  businessID,
		SessionID:   sessionID,
		UserMessage: userMessage,
		BotResponse: botResponse,
		TokensUsed:  tokens,
	}
	if err := repo.CreateChatLog(ctx, s.DB, log); err != nil {
		return nil, err
	}
	return log, nil
}

// buildPrompt assembles the role-tagged message list sent to the provider:
// optional nudge instruction, business-context system prompt, the bounded
// history window oldest-first, then the new visitor message.
func (s *ConversationService) buildPrompt(ctx context.Context, businessID string, settings *domain.ChatbotSettings, history []domain.ChatLog, message string, nudge bool) []completion.Message {
	msgs := make([]completion.Message, 0, 2*len(history)+3)
	if nudge {
		msgs = append(msgs, completion.Message{Role: completion.RoleSystem, Content: leadNudgeInstruction})
	}
	msgs = append(msgs, completion.Message{
		Role:    completion.RoleSystem,
		Content: s.businessContext(ctx, businessID, settings),
	})
	for _, h := range history {
		msgs = append(msgs,
			completion.Message{Role: completion.RoleUser, Content: h.UserMessage},
			completion.Message{Role: completion.RoleAssistant, Content: h.BotResponse},
		)
	}
	return append(msgs, completion.Message{Role: completion.RoleUser, Content: message})
}

// businessContext renders the system prompt from the business profile. A
// missing or unreadable profile falls back to a generic assistant persona
// rather than failing the turn.
func (s *ConversationService) businessContext(ctx context.Context, businessID string, settings *domain.ChatbotSettings) string {
	b, err := repo.GetBusiness(ctx, s.DB, businessID)
	if err != nil {
		return "You are a helpful assistant for a business."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a %s customer service AI for %s.\n", settings.Tone, b.Name)
	sb.WriteString("Business information:\n")
	fmt.Fprintf(&sb, "- Name: %s\n", b.Name)
	fmt.Fprintf(&sb, "- Description: %s\n", orDefault(b.Description, "Not provided"))
	fmt.Fprintf(&sb, "- Industry: %s\n", orDefault(b.Industry, "service"))
	fmt.Fprintf(&sb, "- Address: %s\n", orDefault(b.Address, "Not provided"))
	fmt.Fprintf(&sb, "- Phone: %s\n", orDefault(b.Phone, "Not provided"))
	fmt.Fprintf(&sb, "- Email: %s\n", orDefault(b.Email, "Not provided"))
	if b.Hours != "" {
		fmt.Fprintf(&sb, "- Business Hours: %s\n", b.Hours)
	}
	sb.WriteString(`
Your goal is to provide helpful information about the business, answer questions, and assist potential customers.
Be friendly but professional. If you don't know an answer, be honest and suggest the customer contact the business directly.
If the customer asks for specific availability or pricing that you don't have, suggest they call or email the business.
If they want to book an appointment or place an order, collect their information and let them know someone from the business will contact them.
`)
	return sb.String()
}

// temperatureForTone maps the configured tone to a sampling temperature.
func temperatureForTone(tone string) float64 {
	switch tone {
	case domain.ToneFriendly:
		return 0.7
	case domain.ToneProfessional:
		return 0.3
	default:
		return 0.5
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
