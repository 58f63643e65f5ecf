package tracking

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rufoof/tracking-api/internal/events"
	"github.com/rufoof/tracking-api/internal/pii"
	"github.com/rufoof/tracking-api/pkg/logging"
)

var assertAnError = errors.New("simulated platform failure")

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestCRMWebhookDispatchesSystemEvents(t *testing.T) {
	fake := &fakeAdapter{name: "meta", enabled: true}
	svc := newTestService(fake)
	h := NewCRMWebhookHandler(svc, pii.NewHasher("966"), "", logging.Nop())

	body := `[{"object_id":"42","status":"qualified","email":"a@b.com","phone":"+966501234567"}]`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/crm", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1.0, resp["processed"])

	ev := fake.lastEvent()
	require.NotNil(t, ev)
	assert.Equal(t, "Lead", ev.EventName)
	assert.Equal(t, events.ActionSourceSystem, ev.ActionSource)
	assert.Equal(t, 100.0, ev.CustomData.Value)
	assert.Equal(t, "qualified", ev.CustomData.Status)
	assert.NotEmpty(t, ev.UserData.Email)
	assert.NotEmpty(t, ev.UserData.ExternalID)
}

func TestCRMWebhookStatusMapping(t *testing.T) {
	cases := []struct {
		status    string
		amount    float64
		wantName  string
		wantValue float64
	}{
		{"qualified", 0, "Lead", 100},
		{"mql", 0, "Lead", 100},
		{"sql", 0, "Lead", 200},
		{"opportunity", 0, "InitiateCheckout", 500},
		{"customer", 0, "Purchase", 1000},
		{"closed_won", 2500, "Purchase", 2500},
		{"new", 0, "Lead", 50},
	}
	for _, tc := range cases {
		name, value := eventForStatus(tc.status, tc.amount)
		assert.Equal(t, tc.wantName, name, tc.status)
		assert.Equal(t, tc.wantValue, value, tc.status)
	}
}

func TestCRMWebhookSignature(t *testing.T) {
	fake := &fakeAdapter{name: "meta", enabled: true}
	svc := newTestService(fake)
	h := NewCRMWebhookHandler(svc, pii.NewHasher("966"), "topsecret", logging.Nop())

	body := []byte(`[{"object_id":"42","status":"sql"}]`)

	t.Run("valid signature accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/crm", strings.NewReader(string(body)))
		req.Header.Set("X-Webhook-Signature", sign("topsecret", body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("bad signature rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/crm", strings.NewReader(string(body)))
		req.Header.Set("X-Webhook-Signature", sign("wrong", body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing signature rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/crm", strings.NewReader(string(body)))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCRMWebhookInvalidPayload(t *testing.T) {
	h := NewCRMWebhookHandler(newTestService(), pii.NewHasher("966"), "", logging.Nop())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/crm", strings.NewReader(`{"not":"an array"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
