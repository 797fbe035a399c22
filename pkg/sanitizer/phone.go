package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion applies to numbers written without a country code.
var DefaultPhoneRegion = "US"

// NormalizePhone formats a parseable number as E.164. Input that is not a
// possible phone number is returned trimmed, so validation rejects it with
// the text the member actually sent.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	num, err := phonenumbers.Parse(phone, DefaultPhoneRegion)
	if err != nil || !phonenumbers.IsPossibleNumber(num) {
		return phone
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
