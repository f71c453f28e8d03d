package utils

import (
	"fmt"
	"strings"
	"unicode"
)

// NormalizePhone converts a phone number into canonical E.164 form
// ("+" followed by digits only). Numbers without a country prefix get the
// supplied default country code; local numbers with a leading zero have it
// stripped first (e.g. "0712 345 678" with "+254" -> "+254712345678").
func NormalizePhone(raw, defaultCountryCode string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("phone number is empty")
	}

	hasPlus := strings.HasPrefix(raw, "+")
	var digits strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	num := digits.String()
	if len(num) < 7 {
		return "", fmt.Errorf("phone number %q is too short", raw)
	}

	if hasPlus {
		return "+" + num, nil
	}

	cc := strings.TrimPrefix(defaultCountryCode, "+")
	if cc == "" {
		return "", fmt.Errorf("no default country code configured")
	}
	num = strings.TrimPrefix(num, "0")
	if strings.HasPrefix(num, cc) {
		return "+" + num, nil
	}
	return "+" + cc + num, nil
}
