// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalidNumber is returned when input cannot be parsed as a valid number.
var ErrInvalidNumber = errors.New("invalid phone number")

// Normalizer formats numbers to E.164 using a default region for numbers
// written without a country code.
type Normalizer struct {
	region string
}

// NewNormalizer returns a Normalizer for region (ISO 3166 alpha-2).
func NewNormalizer(region string) Normalizer {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = "AR"
	}
	return Normalizer{region: region}
}

// E164 parses input and returns its E.164 form.
func (n Normalizer) E164(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", ErrInvalidNumber
	}
	// WhatsApp JIDs arrive as "5491122334455@s.whatsapp.net".
	if at := strings.IndexByte(trimmed, '@'); at > 0 {
		trimmed = "+" + strings.TrimPrefix(trimmed[:at], "+")
	}

	number, err := phonenumbers.Parse(trimmed, n.region)
	if err != nil {
		return "", ErrInvalidNumber
	}
	if !phonenumbers.IsValidNumber(number) {
		return "", ErrInvalidNumber
	}
	return phonenumbers.Format(number, phonenumbers.E164), nil
}

// NormalizeE164 is E164 that falls back to the trimmed input on failure.
func (n Normalizer) NormalizeE164(input string) string {
	formatted, err := n.E164(input)
	if err != nil {
		return strings.TrimSpace(input)
	}
	return formatted
}

// Digits strips everything but digits, the form the WhatsApp gateway expects.
func Digits(e164 string) string {
	var b strings.Builder
	for _, r := range e164 {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
