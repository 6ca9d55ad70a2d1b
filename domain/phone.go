package domain

import (
	"fmt"
	"strings"
)

const maxE164Digits = 15

// PhoneNumber is a parsed phone with its canonical form and the textual
// variations it may have been stored under.
type PhoneNumber struct {
	Canonical  string
	National   string
	Variations []string
}

// PhoneNormalizer canonicalizes phones for one home country
type PhoneNormalizer struct {
	CountryCode    string
	NationalLength int
	MinDigits      int
}

// NewPhoneNormalizer creates a normalizer, filling unset fields with the
// India defaults (country code 91, 10 digit national numbers, 7 digit minimum).
func NewPhoneNormalizer(countryCode string, nationalLength, minDigits int) *PhoneNormalizer {
	n := &PhoneNormalizer{
		CountryCode:    strings.TrimPrefix(strings.TrimSpace(countryCode), "+"),
		NationalLength: nationalLength,
		MinDigits:      minDigits,
	}
	if n.CountryCode == "" {
		n.CountryCode = "91"
	}
	if n.NationalLength <= 0 {
		n.NationalLength = 10
	}
	if n.MinDigits <= 0 {
		n.MinDigits = 7
	}
	return n
}

// Normalize returns the canonical +<cc><national> form of raw
func (n *PhoneNormalizer) Normalize(raw string) (string, error) {
	p, err := n.Parse(raw)
	if err != nil {
		return "", err
	}
	return p.Canonical, nil
}

// Variations returns every textual form raw may be stored under,
// canonical form first.
func (n *PhoneNormalizer) Variations(raw string) ([]string, error) {
	p, err := n.Parse(raw)
	if err != nil {
		return nil, err
	}
	return p.Variations, nil
}

// Parse cleans raw and derives the canonical form and variations
func (n *PhoneNormalizer) Parse(raw string) (PhoneNumber, error) {
	cleaned := cleanPhone(raw)
	plus := strings.HasPrefix(cleaned, "+")
	digits := strings.TrimPrefix(cleaned, "+")

	if len(digits) < n.MinDigits {
		return PhoneNumber{}, fmt.Errorf("%w: %q has fewer than %d digits", ErrMalformedPhone, raw, n.MinDigits)
	}

	if national, ok := n.national(digits, plus); ok {
		canonical := "+" + n.CountryCode + national
		return PhoneNumber{
			Canonical: canonical,
			National:  national,
			Variations: dedupe([]string{
				canonical,
				national,
				"0" + national,
				n.CountryCode + national,
			}),
		}, nil
	}

	// Foreign numbers are only accepted when written in international form.
	// No country code starts with 0.
	if plus && digits != "" && !strings.HasPrefix(digits, "0") && len(digits) <= maxE164Digits {
		canonical := "+" + digits
		return PhoneNumber{
			Canonical:  canonical,
			Variations: dedupe([]string{canonical, digits}),
		}, nil
	}
	return PhoneNumber{}, fmt.Errorf("%w: %q", ErrMalformedPhone, raw)
}

// national extracts the home-country national number from digits
func (n *PhoneNormalizer) national(digits string, plus bool) (string, bool) {
	cc := n.CountryCode
	if len(digits) == len(cc)+n.NationalLength && strings.HasPrefix(digits, cc) {
		return digits[len(cc):], true
	}
	if plus {
		// +<cc>0<national>: trunk zero kept after the country code
		if len(digits) == len(cc)+1+n.NationalLength && strings.HasPrefix(digits, cc+"0") {
			return digits[len(cc)+1:], true
		}
		return "", false
	}
	switch {
	case len(digits) == n.NationalLength:
		return digits, true
	case len(digits) == n.NationalLength+1 && digits[0] == '0':
		return digits[1:], true
	case len(digits) == 2+len(cc)+n.NationalLength && strings.HasPrefix(digits, "00"+cc):
		return digits[2+len(cc):], true
	}
	return "", false
}

// cleanPhone keeps digits and a leading plus sign
func cleanPhone(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	if strings.HasPrefix(raw, "+") {
		b.WriteByte('+')
		raw = raw[1:]
	}
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
