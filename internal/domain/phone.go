package domain

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidPhone is returned when a number is not a Kenyan mobile number.
var ErrInvalidPhone = errors.New("phone must be a Kenyan mobile number such as +254712345678")

var kenyanMobile = regexp.MustCompile(`^\+254[17]\d{8}$`)

var phoneNoise = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// NormalizePhone converts local and international spellings to +254XXXXXXXXX.
// A leading "whatsapp:" channel prefix is ignored.
func NormalizePhone(raw string) (string, error) {
	phone := strings.TrimSpace(raw)
	phone = strings.TrimPrefix(strings.ToLower(phone), "whatsapp:")
	phone = phoneNoise.Replace(phone)

	switch {
	case strings.HasPrefix(phone, "+"):
	case strings.HasPrefix(phone, "254"):
		phone = "+" + phone
	case strings.HasPrefix(phone, "0") && len(phone) == 10:
		phone = "+254" + phone[1:]
	}

	if !kenyanMobile.MatchString(phone) {
		return "", ErrInvalidPhone
	}
	return phone, nil
}

// ValidPhone reports whether raw normalizes to an accepted number.
func ValidPhone(raw string) bool {
	_, err := NormalizePhone(raw)
	return err == nil
}
