package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rufoof/tracking-api/internal/events"
)

func testEvent() *events.Event {
	return &events.Event{
		EventName:      "Lead",
		EventTime:      1700000000,
		EventID:        "lead_1700000000000_abc123def",
		EventSourceURL: "https://rufoof.sa/",
		ActionSource:   events.ActionSourceWebsite,
		UserData:       events.UserData{ExternalID: "hashedextid", ClientUserAgent: "ua"},
		CustomData: events.CustomData{
			Currency: "SAR", Value: 7500, LeadType: "high_value_lead",
			LeadSource: "search_engine", CustomerSegmentation: "new_customer_to_business",
			DeviceType: "desktop",
		},
	}
}

func TestSendBuildsMeasurementPayload(t *testing.T) {
	var gotQuery map[string][]string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/mp/collect", r.URL.Path)
		gotQuery = r.URL.Query()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(Config{Enabled: true, MeasurementID: "G-ABC123", APISecret: "s3cret"})
	c.SetBaseURL(srv.URL)

	_, err := c.Send(context.Background(), testEvent())
	require.NoError(t, err)

	assert.Equal(t, []string{"G-ABC123"}, gotQuery["measurement_id"])
	assert.Equal(t, []string{"s3cret"}, gotQuery["api_secret"])
	assert.Equal(t, "hashedextid", gotBody["client_id"])

	evs := gotBody["events"].([]any)
	require.Len(t, evs, 1)
	ev := evs[0].(map[string]any)
	assert.Equal(t, "generate_lead", ev["name"])
	params := ev["params"].(map[string]any)
	assert.Equal(t, 7500.0, params["value"])
	assert.Equal(t, "SAR", params["currency"])

	props := gotBody["user_properties"].(map[string]any)
	assert.Equal(t, map[string]any{"value": "search_engine"}, props["lead_source"])
}

func TestSendFallsBackToUnknownClientID(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(Config{Enabled: true, MeasurementID: "G-ABC123", APISecret: "s"})
	c.SetBaseURL(srv.URL)

	ev := testEvent()
	ev.UserData.ExternalID = ""
	_, err := c.Send(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, "unknown", gotBody["client_id"])
}

func TestSendPageViewEventName(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(Config{Enabled: true, MeasurementID: "G-ABC123", APISecret: "s"})
	c.SetBaseURL(srv.URL)

	ev := testEvent()
	ev.EventName = "ViewContent"
	_, err := c.Send(context.Background(), ev)
	require.NoError(t, err)
	name := gotBody["events"].([]any)[0].(map[string]any)["name"]
	assert.Equal(t, "page_view", name)
}

func TestSendRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(Config{Enabled: true, MeasurementID: "G-ABC123", APISecret: "s"})
	c.SetBaseURL(srv.URL)

	_, err := c.Send(context.Background(), testEvent())
	assert.Error(t, err)
}
