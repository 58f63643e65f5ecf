package tracking

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rufoof/tracking-api/internal/events"
	"github.com/rufoof/tracking-api/internal/pii"
	"github.com/rufoof/tracking-api/pkg/logging"
)

// CRMWebhookHandler converts CRM lifecycle changes into server-originated
// conversion events. Dispatch failures are logged per platform; the webhook
// itself acknowledges as long as the payload was readable.
type CRMWebhookHandler struct {
	svc    *Service
	hasher *pii.Hasher
	secret string
	logger *logging.Logger
}

// NewCRMWebhookHandler creates the webhook handler. An empty secret disables
// signature verification (useful in development).
func NewCRMWebhookHandler(svc *Service, hasher *pii.Hasher, secret string, logger *logging.Logger) *CRMWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CRMWebhookHandler{svc: svc, hasher: hasher, secret: secret, logger: logger}
}

// StatusChangeEvent is one CRM lifecycle notification.
type StatusChangeEvent struct {
	ObjectID   string  `json:"object_id"`
	Status     string  `json:"status"`
	Email      string  `json:"email,omitempty"`
	Phone      string  `json:"phone,omitempty"`
	FirstName  string  `json:"first_name,omitempty"`
	LastName   string  `json:"last_name,omitempty"`
	Amount     float64 `json:"amount,omitempty"`
	OccurredAt int64   `json:"occurred_at,omitempty"`
}

// eventForStatus maps a CRM status to a conversion event name and value.
func eventForStatus(status string, amount float64) (string, float64) {
	switch strings.ToLower(status) {
	case "qualified", "mql":
		return "Lead", 100
	case "sql":
		return "Lead", 200
	case "opportunity":
		return "InitiateCheckout", 500
	case "customer", "closed_won":
		if amount > 0 {
			return "Purchase", amount
		}
		return "Purchase", 1000
	default:
		return "Lead", 50
	}
}

// ServeHTTP handles POST /webhooks/crm.
func (h *CRMWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	if !h.verifySignature(body, r.Header.Get("X-Webhook-Signature")) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	var changes []StatusChangeEvent
	if err := json.Unmarshal(body, &changes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	for _, change := range changes {
		h.process(r.Context(), change)
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "processed": len(changes)})
}

func (h *CRMWebhookHandler) process(ctx context.Context, change StatusChangeEvent) {
	eventName, value := eventForStatus(change.Status, change.Amount)

	userData := h.hasher.HashIdentity(pii.Identity{
		Email:      change.Email,
		Phone:      change.Phone,
		FirstName:  change.FirstName,
		LastName:   change.LastName,
		ExternalID: change.ObjectID,
	})

	opts := []events.Option{
		events.WithActionSource(events.ActionSourceSystem),
		events.WithUserData(userData),
		events.WithCustomData(events.CustomData{
			Currency: "SAR",
			Value:    value,
			Status:   strings.ToLower(change.Status),
			OrderID:  change.ObjectID,
		}),
	}
	if change.OccurredAt > 0 {
		opts = append(opts, events.WithEventTime(time.UnixMilli(change.OccurredAt)))
	}

	ev := events.New(eventName, opts...)
	resp := h.svc.TrackEvent(ctx, ev)
	h.logger.Info("crm status change dispatched",
		"object_id", change.ObjectID,
		"status", change.Status,
		"event_name", eventName,
		"failure_count", resp.FailureCount,
	)
}

func (h *CRMWebhookHandler) verifySignature(body []byte, signature string) bool {
	if h.secret == "" {
		return true
	}
	signature = strings.TrimPrefix(signature, "sha256=")
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	expectedRaw, _ := hex.DecodeString(expected)
	return hmac.Equal(sig, expectedRaw)
}
