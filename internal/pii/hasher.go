// Package pii normalizes and SHA-256 hashes personally identifying fields
// according to the ad platforms' advanced-matching specifications. Invalid
// or missing input always yields an empty string so downstream adapters omit
// the field rather than sending a hash of "".
package pii

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/rufoof/tracking-api/internal/events"
)

// countryAliases maps common country names to the ISO codes the platforms expect.
var countryAliases = map[string]string{
	"united states":        "us",
	"usa":                  "us",
	"united kingdom":       "gb",
	"uk":                   "gb",
	"saudi arabia":         "sa",
	"ksa":                  "sa",
	"uae":                  "ae",
	"united arab emirates": "ae",
}

// Identity holds raw, un-hashed identity fields as submitted.
type Identity struct {
	Email       string
	Phone       string
	FirstName   string
	LastName    string
	Gender      string
	DateOfBirth string
	City        string
	State       string
	Zip         string
	Country     string
	ExternalID  string
}

// Hasher hashes identity fields. Phone numbers are canonicalized with the
// configured default country code before hashing so local and E.164 forms of
// the same subscriber produce identical digests.
type Hasher struct {
	defaultCountryCode string
}

// NewHasher creates a hasher. defaultCountryCode is the digits-only calling
// code substituted for a single leading zero (e.g. "966" for Saudi Arabia).
func NewHasher(defaultCountryCode string) *Hasher {
	return &Hasher{defaultCountryCode: strings.TrimSpace(defaultCountryCode)}
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Email hashes a trimmed, lowercased email address.
func (h *Hasher) Email(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return ""
	}
	return sha256Hex(normalized)
}

// NormalizePhone returns the canonical digit string for a phone number:
// non-digits stripped, a leading "00" international prefix removed, and a
// single leading "0" replaced with the default country code.
func (h *Hasher) NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case digits == "":
		return ""
	case strings.HasPrefix(digits, "00"):
		return strings.TrimPrefix(digits, "00")
	case strings.HasPrefix(digits, "0") && h.defaultCountryCode != "":
		return h.defaultCountryCode + digits[1:]
	default:
		return digits
	}
}

// Phone hashes the canonical digit string.
func (h *Hasher) Phone(phone string) string {
	digits := h.NormalizePhone(phone)
	if digits == "" {
		return ""
	}
	return sha256Hex(digits)
}

// Name hashes a trimmed, lowercased name with everything outside a-z stripped.
// Used for both first and last names.
func (h *Hasher) Name(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range lowered {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return sha256Hex(b.String())
}

// Gender hashes "m" or "f"; anything else is rejected.
func (h *Hasher) Gender(gender string) string {
	normalized := strings.ToLower(strings.TrimSpace(gender))
	if normalized != "m" && normalized != "f" {
		return ""
	}
	return sha256Hex(normalized)
}

// DateOfBirth hashes an 8-digit YYYYMMDD string. Dash and slash separators
// are stripped first; anything that is not exactly 8 digits is rejected.
func (h *Hasher) DateOfBirth(dob string) string {
	normalized := strings.NewReplacer("-", "", "/", "").Replace(strings.TrimSpace(dob))
	if len(normalized) != 8 {
		return ""
	}
	for _, r := range normalized {
		if !unicode.IsDigit(r) {
			return ""
		}
	}
	return sha256Hex(normalized)
}

// City hashes a trimmed, lowercased city with non a-z/space characters
// stripped and runs of whitespace collapsed.
func (h *Hasher) City(city string) string {
	lowered := strings.ToLower(strings.TrimSpace(city))
	var b strings.Builder
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || r == ' ' {
			b.WriteRune(r)
		}
	}
	collapsed := strings.Join(strings.Fields(b.String()), " ")
	if collapsed == "" {
		return ""
	}
	return sha256Hex(collapsed)
}

// State hashes a trimmed, lowercased state.
func (h *Hasher) State(state string) string {
	normalized := strings.ToLower(strings.TrimSpace(state))
	if normalized == "" {
		return ""
	}
	return sha256Hex(normalized)
}

// Zip hashes a trimmed, lowercased zip with non-alphanumerics stripped.
func (h *Hasher) Zip(zip string) string {
	lowered := strings.ToLower(strings.TrimSpace(zip))
	var b strings.Builder
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return sha256Hex(b.String())
}

// Country hashes a trimmed, lowercased country, mapping known full names to
// their two-letter ISO codes first.
func (h *Hasher) Country(country string) string {
	normalized := strings.ToLower(strings.TrimSpace(country))
	if normalized == "" {
		return ""
	}
	if code, ok := countryAliases[normalized]; ok {
		normalized = code
	}
	return sha256Hex(normalized)
}

// ExternalID hashes a trimmed external id.
func (h *Hasher) ExternalID(id string) string {
	normalized := strings.TrimSpace(id)
	if normalized == "" {
		return ""
	}
	return sha256Hex(normalized)
}

// HashIdentity hashes every populated field of the identity into the shared
// user-data block. Fields that fail normalization come back empty and are
// omitted on the wire.
func (h *Hasher) HashIdentity(id Identity) events.UserData {
	return events.UserData{
		Email:       h.Email(id.Email),
		Phone:       h.Phone(id.Phone),
		FirstName:   h.Name(id.FirstName),
		LastName:    h.Name(id.LastName),
		Gender:      h.Gender(id.Gender),
		DateOfBirth: h.DateOfBirth(id.DateOfBirth),
		City:        h.City(id.City),
		State:       h.State(id.State),
		Zip:         h.Zip(id.Zip),
		Country:     h.Country(id.Country),
		ExternalID:  h.ExternalID(id.ExternalID),
	}
}
