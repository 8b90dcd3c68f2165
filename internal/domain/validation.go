package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Password length bounds in bytes. bcrypt ignores input past 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	hasLetter  = regexp.MustCompile(`[A-Za-z]`)
	hasDigit   = regexp.MustCompile(`[0-9]`)
)

// MaxAmount bounds a single movement in minor units.
const MaxAmount int64 = 100_000_000_000_000

// Supported currencies and their minor-unit exponent (ISO 4217).
var currencyExponents = map[string]int32{
	"NGN": 2, "USD": 2, "EUR": 2, "GBP": 2, "JPY": 0,
	"CNY": 2, "AUD": 2, "CAD": 2, "CHF": 2, "SEK": 2,
	"NZD": 2, "KRW": 0, "SGD": 2, "NOK": 2, "MXN": 2,
	"INR": 2, "BRL": 2, "ZAR": 2, "KES": 2, "GHS": 2,
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// ValidateCurrency validates currency code
func ValidateCurrency(currency string) error {
	code := NormalizeCurrency(currency)
	if _, ok := currencyExponents[code]; !ok {
		return &Error{Kind: KindInvalidCurrency, Msg: fmt.Sprintf("%q is not a supported currency", currency)}
	}
	return nil
}

// ValidateAmount checks that amount is a positive number of minor units.
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > MaxAmount {
		return &Error{Kind: KindInvalidAmount, Msg: fmt.Sprintf("amount exceeds maximum of %d", MaxAmount)}
	}
	return nil
}

// ValidateEmail checks the address format after normalization.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(NormalizeEmail(email)) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidatePassword checks length and that the password mixes letters and digits.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("must not exceed %d bytes", MaxPasswordLength)
	}
	if !hasLetter.MatchString(password) || !hasDigit.MatchString(password) {
		return fmt.Errorf("must contain letters and numbers")
	}
	return nil
}

// ValidateID checks that id is a well-formed ULID.
func ValidateID(id string) error {
	if _, err := ulid.ParseStrict(id); err != nil {
		return fmt.Errorf("invalid id %q: %w", id, err)
	}
	return nil
}

// FormatMinor renders minor units as a major-unit decimal string, e.g. 1050 USD -> "10.50".
func FormatMinor(amount int64, currency string) string {
	exp, ok := currencyExponents[NormalizeCurrency(currency)]
	if !ok {
		exp = 2
	}
	return decimal.New(amount, -exp).StringFixed(exp)
}

// ParseMajor converts a major-unit decimal string into minor units.
func ParseMajor(value, currency string) (int64, error) {
	exp, ok := currencyExponents[NormalizeCurrency(currency)]
	if !ok {
		exp = 2
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, &Error{Kind: KindInvalidAmount, Msg: fmt.Sprintf("invalid amount %q", value)}
	}
	minor := d.Shift(exp)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, &Error{Kind: KindInvalidAmount, Msg: fmt.Sprintf("amount %q has too many decimal places", value)}
	}
	return minor.IntPart(), nil
}
