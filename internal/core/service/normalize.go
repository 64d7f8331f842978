package service

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// Password length policy, counted in characters.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 16
)

// NormalizeUsername returns the canonical form used for uniqueness and lookup:
// trimmed, NFC-composed and lower-cased. It is idempotent.
func NormalizeUsername(raw string) string {
	// cases.Caser is stateful; one per call.
	lower := cases.Lower(language.Und)
	s := norm.NFC.String(strings.TrimSpace(raw))
	return norm.NFC.String(lower.String(s))
}

func checkPasswordPolicy(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return domain.ErrInvalidPassword
	}
	return nil
}
