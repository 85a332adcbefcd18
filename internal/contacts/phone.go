package contacts

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is assumed for numbers written without a country code.
const DefaultRegion = "IN"

var nonPhoneChars = regexp.MustCompile(`[^\d+]`)

// NormalizePhone returns the number in E.164 form when it parses as a valid
// number, reading national numbers as DefaultRegion. Anything else is
// returned stripped of formatting but otherwise unchanged.
func NormalizePhone(raw string) string {
	cleaned := nonPhoneChars.ReplaceAllString(strings.TrimSpace(raw), "")
	if cleaned == "" {
		return ""
	}
	num, err := phonenumbers.Parse(raw, DefaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return cleaned
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

// ValidPhone reports whether phone is a valid number for its country.
func ValidPhone(phone string) bool {
	if strings.TrimSpace(phone) == "" {
		return false
	}
	num, err := phonenumbers.Parse(phone, DefaultRegion)
	return err == nil && phonenumbers.IsValidNumber(num)
}
