package leads

import (
	"strings"
	"time"
)

// Lead is a persisted form submission. The database row is the record of
// truth for the business; tracking fan-out is best-effort telemetry on top.
type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Quantity  string    `json:"quantity,omitempty"`
	Company   string    `json:"company,omitempty"`
	City      string    `json:"city,omitempty"`
	Country   string    `json:"country,omitempty"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateLeadRequest is the request body for creating a lead.
type CreateLeadRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Quantity string `json:"quantity,omitempty"`
	Company  string `json:"company,omitempty"`
	City     string `json:"city,omitempty"`
	Country  string `json:"country,omitempty"`

	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	UTMTerm     string `json:"utm_term,omitempty"`
	UTMContent  string `json:"utm_content,omitempty"`

	URL       string `json:"url,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	VisitorID string `json:"visitor_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Validate checks the fields the business cannot follow up without.
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(r.Email) == "" || strings.TrimSpace(r.Phone) == "" {
		return ErrMissingContact
	}
	return nil
}
