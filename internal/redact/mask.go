package redact

import (
	"strings"
)

// MaskEmail keeps the first two characters of the local part:
// "john@x.com" → "jo***@x.com". Short local parts are fully elided.
func MaskEmail(email string) string {
	if email == "" || !strings.Contains(email, "@") {
		return "[INVALID_EMAIL]"
	}
	local, domain, _ := strings.Cut(email, "@")
	masked := "***"
	if r := []rune(local); len(r) >= 2 {
		masked = string(r[:2]) + "***"
	}
	return masked + "@" + domain
}

// MaskPhone keeps only the last four digits of a phone number.
func MaskPhone(phone string) string {
	if phone == "" {
		return "[NO_PHONE]"
	}
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) >= 10 {
		return "***-***-" + d[len(d)-4:]
	}
	return "***-***-****"
}
