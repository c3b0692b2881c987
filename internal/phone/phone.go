// Package phone turns user-entered numbers and chat handles into identities.
package phone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalid is returned when a number cannot be parsed into E.164
var ErrInvalid = errors.New("invalid phone number")

// Normalize joins a country calling code ("+57", "57") with a national number and
// returns the E.164 form, e.g. "+573001234567". Spaces, dashes and parentheses are tolerated.
func Normalize(countryCode, number string) (string, error) {
	cc := strings.TrimPrefix(digitsOnly(countryCode, true), "+")
	national := digitsOnly(number, false)
	if cc == "" || national == "" {
		return "", fmt.Errorf("%w: country code and number are required", ErrInvalid)
	}

	num, err := phonenumbers.Parse("+"+cc+national, "")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return "", fmt.Errorf("%w: +%s%s", ErrInvalid, cc, national)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// NormalizeHandle returns a Telegram identity: numeric chat ids are kept as-is,
// usernames get a single leading '@'.
func NormalizeHandle(handle string) (string, error) {
	h := strings.TrimSpace(handle)
	if h == "" {
		return "", fmt.Errorf("%w: empty telegram user", ErrInvalid)
	}
	if digitsOnly(h, true) == h {
		return h, nil
	}
	return "@" + strings.TrimLeft(h, "@"), nil
}

// Mask hides everything but the first and last two characters, e.g. +5*********67
func Mask(identity string) string {
	if len(identity) <= 4 {
		return "****"
	}
	return identity[:2] + strings.Repeat("*", len(identity)-4) + identity[len(identity)-2:]
}

func digitsOnly(s string, keepPlus bool) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(s) {
		if r == '+' && i == 0 && keepPlus {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
