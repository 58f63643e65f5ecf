// Package notify delivers backup notifications for new leads. The database
// row is the record of truth; these emails are a safety net so the sales
// team sees the lead even if the CRM relay is down.
package notify

import (
	"context"
	"fmt"

	"github.com/rufoof/tracking-api/internal/leads"
	"github.com/rufoof/tracking-api/pkg/logging"
)

// Service sends lead backup emails to the configured recipients.
type Service struct {
	email      EmailSender
	recipients []string
	logger     *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, recipients []string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:      email,
		recipients: recipients,
		logger:     logger,
	}
}

// LeadCreated emails the lead details to every configured recipient. One
// recipient failing does not stop delivery to the others.
func (s *Service) LeadCreated(ctx context.Context, lead *leads.Lead) error {
	if s.email == nil || len(s.recipients) == 0 {
		s.logger.Debug("notify: no email recipients configured, skipping backup")
		return nil
	}

	subject := fmt.Sprintf("New Lead - %s", lead.Name)
	body := fmt.Sprintf(`A new lead has come in!

Name: %s
Phone: %s
Email: %s
Quantity: %s
City: %s
Source: %s
Submitted: %s
`, lead.Name, lead.Phone, lead.Email, lead.Quantity, lead.City, lead.Source,
		lead.CreatedAt.Format("January 2, 2006 at 3:04 PM"))

	var errs []error
	for _, recipient := range s.recipients {
		msg := EmailMessage{
			To:      recipient,
			Subject: subject,
			Body:    body,
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send backup email", "error", err, "to", recipient)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d notification(s) failed", len(errs))
	}
	return nil
}
