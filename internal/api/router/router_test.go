package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rufoof/tracking-api/internal/enrich"
	"github.com/rufoof/tracking-api/internal/events"
	"github.com/rufoof/tracking-api/internal/leads"
	"github.com/rufoof/tracking-api/internal/pii"
	"github.com/rufoof/tracking-api/internal/tracking"
	"github.com/rufoof/tracking-api/pkg/logging"
)

type okAdapter struct{ name string }

func (a okAdapter) Name() string  { return a.name }
func (a okAdapter) Enabled() bool { return true }
func (a okAdapter) Send(context.Context, *events.Event) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	svc := tracking.NewService(
		[]tracking.Adapter{okAdapter{name: "meta"}, okAdapter{name: "google"}},
		enrich.New(enrich.Config{BaseLeadValue: 500, Currency: "SAR"}),
		pii.NewHasher("966"),
		nil,
		nil,
		logging.Nop(),
		tracking.Config{},
	)
	leadsHandler := leads.NewHandler(leads.NewInMemoryRepository(), nil, nil, logging.Nop())
	return New(&Config{
		Logger:          logging.Nop(),
		TrackingHandler: tracking.NewHandler(svc, logging.Nop()),
		LeadsHandler:    leadsHandler,
		CRMWebhook:      tracking.NewCRMWebhookHandler(svc, pii.NewHasher("966"), "", logging.Nop()),
	})
}

func TestHealthRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestTrackingRoutes(t *testing.T) {
	r := newTestRouter(t)

	body := bytes.NewBufferString(`{"email":"a@b.com","phone":"0501234567","name":"Ahmed Ali"}`)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tracking/enhanced", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success         bool   `json:"success"`
		EventID         string `json:"event_id"`
		TrackingResults struct {
			TotalPlatforms int `json:"total_platforms"`
		} `json:"tracking_results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.EventID)
	assert.Equal(t, 2, resp.TrackingResults.TotalPlatforms)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tracking/enhanced", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"enhanced-tracking"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tracking/pageview", bytes.NewBufferString(`{"page_url":"https://rufoof.sa/"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLeadRoutes(t *testing.T) {
	r := newTestRouter(t)

	body := bytes.NewBufferString(`{"name":"Ahmed Ali","email":"a@b.com","phone":"0501234567"}`)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/leads/", body))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Lead leads.Lead `json:"lead"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Lead.ID)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leads/"+created.Lead.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCRMWebhookRoute(t *testing.T) {
	r := newTestRouter(t)

	body := bytes.NewBufferString(`[{"object_id":"42","status":"customer","amount":2500}]`)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/crm", body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"processed":1`)
}

func TestRateLimitAppliesToTracking(t *testing.T) {
	svc := tracking.NewService(
		[]tracking.Adapter{okAdapter{name: "meta"}},
		enrich.New(enrich.Config{BaseLeadValue: 500, Currency: "SAR"}),
		pii.NewHasher("966"),
		nil,
		nil,
		logging.Nop(),
		tracking.Config{},
	)
	r := New(&Config{
		TrackingHandler:    tracking.NewHandler(svc, logging.Nop()),
		RateLimitPerSecond: 1,
		RateLimitBurst:     1,
	})

	req := func() *http.Request {
		q := httptest.NewRequest(http.MethodGet, "/api/tracking/enhanced", nil)
		q.Header.Set("X-Real-Ip", "203.0.113.10")
		return q
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
