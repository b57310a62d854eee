package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Rhymond/go-money"
)

var ErrValidationFailed = errors.New("validation failed")

const (
	MaxSymbolLength       = 20
	MaxCurrencyCodeLength = 3
	MaxNotesLength        = 1024
)

var symbolRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-&^=]*$`)

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// ValidateStringRegex checks if a string matches a given regex pattern.
func ValidateStringRegex(s string, pattern *regexp.Regexp, fieldName, formatDescription string) error {
	if !pattern.MatchString(s) {
		return fmt.Errorf("%w: %s ('%s') is not in the expected format (%s)", ErrValidationFailed, fieldName, s, formatDescription)
	}
	return nil
}

// ValidateSymbol checks a ticker such as AAPL, RELIANCE.NS or BRK-B. Case is ignored.
func ValidateSymbol(s string) error {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if err := ValidateStringNotEmpty(trimmed, "symbol"); err != nil {
		return err
	}
	if err := ValidateStringMaxLength(trimmed, MaxSymbolLength, "symbol"); err != nil {
		return err
	}
	return ValidateStringRegex(trimmed, symbolRegex, "symbol", "letters, digits and . - & ^ =")
}

// ValidateCurrencyCode checks an ISO 4217 code against the go-money currency table.
// An empty code is allowed and means "infer from the symbol".
func ValidateCurrencyCode(s string) error {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if trimmed == "" {
		return nil
	}
	if err := ValidateStringMaxLength(trimmed, MaxCurrencyCodeLength, "currency"); err != nil {
		return err
	}
	if money.GetCurrency(trimmed) == nil {
		return fmt.Errorf("%w: currency ('%s') is not a known ISO 4217 code", ErrValidationFailed, s)
	}
	return nil
}

// ValidateNotes bounds the length of free-text notes.
func ValidateNotes(s string) error {
	return ValidateStringMaxLength(s, MaxNotesLength, "notes")
}
