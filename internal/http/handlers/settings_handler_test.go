package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/tbourn/go-bizchat-backend/internal/domain"
	"github.com/tbourn/go-bizchat-backend/internal/services"
)

func TestGetSettings_RequiresBusinessID(t *testing.T) {
	r := newTestRouter(t, testDeps{})

	w := doJSON(r, http.MethodGet, "/chat/settings", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGetSettings_Success(t *testing.T) {
	st := &stubSettings{settings: &domain.ChatbotSettings{
		ID:             "st1",
		BusinessID:     "b1",
		IsEnabled:      true,
		WelcomeMessage: "Hi there!",
		Tone:           domain.ToneProfessional,
	}}
	r := newTestRouter(t, testDeps{settings: st})

	w := doJSON(r, http.MethodGet, "/chat/settings?businessId=b1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp SettingsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Settings == nil || resp.Settings.BusinessID != "b1" {
		t.Fatalf("resp = %+v", resp.Settings)
	}
}

func TestUpdateSettings_BindFailure(t *testing.T) {
	r := newTestRouter(t, testDeps{})

	// Missing businessId fails binding before reaching the service.
	w := doJSON(r, http.MethodPut, "/chat/settings", `{"settings":{}}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestUpdateSettings_ValidationEnvelope(t *testing.T) {
	st := &stubSettings{err: &services.ValidationError{Fields: []string{
		"Tone must be one of: professional, friendly, casual, formal, helpful",
		"welcome_message must be a non-empty string",
	}}}
	r := newTestRouter(t, testDeps{settings: st})

	w := doJSON(r, http.MethodPut, "/chat/settings",
		`{"businessId":"b1","settings":{"tone":"sarcastic","welcome_message":""}}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Code != ErrCodeInvalidSettings || resp.Message != "Invalid settings" {
		t.Fatalf("envelope = %+v", resp)
	}
	if len(resp.ValidationErrors) != 2 {
		t.Fatalf("validation errors = %v", resp.ValidationErrors)
	}
}

func TestUpdateSettings_Success(t *testing.T) {
	st := &stubSettings{settings: &domain.ChatbotSettings{
		ID:         "st1",
		BusinessID: "b1",
		Tone:       domain.ToneFriendly,
	}}
	r := newTestRouter(t, testDeps{settings: st})

	w := doJSON(r, http.MethodPut, "/chat/settings",
		`{"businessId":"b1","settings":{"tone":"friendly","max_history_length":5}}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}

	// Partial-update fields arrive as pointers; absent ones stay nil.
	if st.gotUpd.Tone == nil || *st.gotUpd.Tone != "friendly" {
		t.Fatalf("tone = %v", st.gotUpd.Tone)
	}
	if st.gotUpd.MaxHistoryLength == nil || *st.gotUpd.MaxHistoryLength != 5 {
		t.Fatalf("max history = %v", st.gotUpd.MaxHistoryLength)
	}
	if st.gotUpd.IsEnabled != nil || st.gotUpd.WelcomeMessage != nil {
		t.Fatalf("absent fields must stay nil: %+v", st.gotUpd)
	}
}
