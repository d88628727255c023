package validation

import (
	"errors"
	"strings"
	"unicode"
)

// ErrCityEmpty is returned when city is empty or whitespace-only after trim.
var ErrCityEmpty = errors.New("city is required")

// ErrCityTooShort is returned when city length is below the minimum.
var ErrCityTooShort = errors.New("city too short")

// ErrCityTooLong is returned when city length exceeds the maximum.
var ErrCityTooLong = errors.New("city too long")

// ErrCityInvalidChars is returned when city contains disallowed characters.
var ErrCityInvalidChars = errors.New("city contains invalid characters")

// ErrUsernameEmpty is returned when username is empty after trim.
var ErrUsernameEmpty = errors.New("username is required")

// ErrUsernameTooLong is returned when username exceeds the maximum length.
var ErrUsernameTooLong = errors.New("username too long")

// ErrUsernameInvalidChars is returned when username contains disallowed characters.
var ErrUsernameInvalidChars = errors.New("username contains invalid characters")

// ErrPasswordEmpty is returned when password is empty.
var ErrPasswordEmpty = errors.New("password is required")

// ErrPasswordTooLong is returned when password exceeds the bcrypt input limit.
var ErrPasswordTooLong = errors.New("password too long")

// ErrDaysOutOfRange is returned when the forecast day count is outside 1..5.
var ErrDaysOutOfRange = errors.New("days must be between 1 and 5")

// MaxUsernameLength bounds usernames; longer names are rejected at registration.
const MaxUsernameLength = 64

// maxPasswordLength is the bcrypt input limit (72 bytes).
const maxPasswordLength = 72

// MaxForecastDays is the provider's forecast horizon (5 days of 3-hour slots).
const MaxForecastDays = 5

// ValidateCity trims the input, enforces length bounds (minLen, maxLen in runes),
// and restricts to allowed characters: letters (Unicode), digits, space, comma, hyphen.
// Returns the trimmed string or an error suitable for 400 INVALID_CITY responses.
// Normalization (e.g. lowercase) is left to the service layer.
func ValidateCity(input string, minLen, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	n := len(r)
	if n == 0 {
		return "", ErrCityEmpty
	}
	if minLen > 0 && n < minLen {
		return "", ErrCityTooShort
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrCityTooLong
	}
	for _, c := range r {
		if !isAllowedCityRune(c) {
			return "", ErrCityInvalidChars
		}
	}
	return s, nil
}

// isAllowedCityRune returns true for letters (Unicode), digits, space, comma, hyphen.
func isAllowedCityRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '-':
		return true
	}
	return false
}

// ValidateUsername trims the input and restricts it to letters, digits, dot,
// underscore, and hyphen. Returns the trimmed username.
func ValidateUsername(input string) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	if len(r) == 0 {
		return "", ErrUsernameEmpty
	}
	if len(r) > MaxUsernameLength {
		return "", ErrUsernameTooLong
	}
	for _, c := range r {
		if !isAllowedUsernameRune(c) {
			return "", ErrUsernameInvalidChars
		}
	}
	return s, nil
}

func isAllowedUsernameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case '.', '_', '-':
		return true
	}
	return false
}

// ValidatePassword rejects empty or whitespace-only passwords and passwords
// over the bcrypt 72-byte limit. The password itself is returned unmodified;
// leading and trailing whitespace is significant.
func ValidatePassword(input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", ErrPasswordEmpty
	}
	if len(input) > maxPasswordLength {
		return "", ErrPasswordTooLong
	}
	return input, nil
}

// ValidateDays parses the forecast day count. Empty input defaults to
// MaxForecastDays. Out-of-range or non-numeric input is rejected.
func ValidateDays(input string) (int, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return MaxForecastDays, nil
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, ErrDaysOutOfRange
		}
		n = n*10 + int(c-'0')
		if n > MaxForecastDays {
			return 0, ErrDaysOutOfRange
		}
	}
	if n < 1 {
		return 0, ErrDaysOutOfRange
	}
	return n, nil
}
