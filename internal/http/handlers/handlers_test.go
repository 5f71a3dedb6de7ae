package handlers

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-bizchat-backend/internal/domain"
	"github.com/tbourn/go-bizchat-backend/internal/http/middleware"
	"github.com/tbourn/go-bizchat-backend/internal/repo"
	"github.com/tbourn/go-bizchat-backend/internal/services"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.BusinessProfile{},
		&domain.ChatbotSettings{},
		&domain.ChatLog{},
		&domain.Lead{},
		&domain.Feedback{},
		&domain.TurnReceipt{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// ----- Service stubs -----

type stubConv struct {
	res     *services.TurnResult
	err     error
	hist    []domain.ChatLog
	histErr error

	turnCalls   int
	gotBusiness string
	gotSession  string
	gotMessage  string
}

func (s *stubConv) ProcessTurn(ctx context.Context, businessID, sessionID, message string) (*services.TurnResult, error) {
	s.turnCalls++
	s.gotBusiness, s.gotSession, s.gotMessage = businessID, sessionID, message
	return s.res, s.err
}

func (s *stubConv) History(ctx context.Context, businessID, sessionID string) ([]domain.ChatLog, error) {
	return s.hist, s.histErr
}

type stubSettings struct {
	settings *domain.ChatbotSettings
	err      error
	gotUpd   services.SettingsUpdate
}

func (s *stubSettings) Get(ctx context.Context, businessID string) (*domain.ChatbotSettings, error) {
	return s.settings, s.err
}

func (s *stubSettings) Update(ctx context.Context, businessID string, upd services.SettingsUpdate) (*domain.ChatbotSettings, error) {
	s.gotUpd = upd
	return s.settings, s.err
}

type stubFeedback struct {
	err    error
	stats  repo.FeedbackStats
	recent []domain.Feedback
	gotIn  services.FeedbackInput
}

func (s *stubFeedback) Record(ctx context.Context, in services.FeedbackInput) (*domain.Feedback, error) {
	s.gotIn = in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Feedback{ID: "f1"}, nil
}

func (s *stubFeedback) Stats(ctx context.Context, businessID string) (repo.FeedbackStats, []domain.Feedback, error) {
	return s.stats, s.recent, s.err
}

type stubLeads struct {
	items []domain.Lead
	total int64
	err   error

	gotStatus string
	gotPage   int
	gotSize   int
}

func (s *stubLeads) ListPage(ctx context.Context, businessID, status string, page, pageSize int) ([]domain.Lead, int64, error) {
	s.gotStatus, s.gotPage, s.gotSize = status, page, pageSize
	return s.items, s.total, s.err
}

// ----- Router helper -----

type testDeps struct {
	conv     *stubConv
	settings *stubSettings
	fb       *stubFeedback
	leads    *stubLeads
	db       *gorm.DB
}

func newTestRouter(t *testing.T, d testDeps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if d.conv == nil {
		d.conv = &stubConv{}
	}
	if d.settings == nil {
		d.settings = &stubSettings{}
	}
	if d.fb == nil {
		d.fb = &stubFeedback{}
	}
	if d.leads == nil {
		d.leads = &stubLeads{}
	}

	h := New(d.conv, d.settings, d.fb, d.leads, d.db, time.Hour)

	r := gin.New()
	r.Use(middleware.RequestID())
	if d.db != nil {
		r.Use(middleware.TurnKeyValidator(middleware.TurnKeyOptions{},
			func(ctx context.Context, businessID, sessionID, key string, now time.Time) (bool, error) {
				rec, err := repo.GetReceipt(ctx, d.db, businessID, sessionID, key, now)
				if err != nil || rec == nil {
					return false, nil
				}
				return true, nil
			}))
	}
	r.POST("/chat", h.Chat)
	r.GET("/chat/history", h.History)
	r.POST("/chat/feedback", h.Feedback)
	r.GET("/chat/feedback/stats", h.FeedbackStats)
	r.GET("/chat/settings", h.GetSettings)
	r.PUT("/chat/settings", h.UpdateSettings)
	r.GET("/chat/leads", h.ListLeads)
	return r
}

func doJSON(r *gin.Engine, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
