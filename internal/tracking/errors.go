package tracking

import "errors"

// ErrMissingFields rejects a lead before any enrichment or outbound call.
var ErrMissingFields = errors.New("tracking: missing required fields: email, phone, name")
