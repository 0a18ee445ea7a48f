package common

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone converts phone-shaped input to E.164. Ten digit numbers are
// taken as North American and get the +1 country code; anything else keeps
// its digits behind a leading '+'.
func NormalizePhone(phone string) string {
	digits := nonDigits.ReplaceAllString(strings.TrimSpace(phone), "")
	if len(digits) == 10 {
		return "+1" + digits
	}
	return "+" + digits
}
