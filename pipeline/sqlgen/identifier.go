// Package sqlgen centralizes all query-text generation. Every identifier,
// string literal, and numeric literal embedded into generated SQL goes
// through this package so formatting stays locale-invariant and escaping
// stays in one place.
package sqlgen

import (
	"regexp"
	"strings"

	"github.com/gear6io/terrapipe/pkg/errors"
)

// Package-specific error codes for SQL generation
var (
	InvalidIdentifier = errors.MustNewCode("sqlgen.invalid_identifier")
)

// identifierRe allows alphanumeric + underscores, starting with a letter or underscore.
var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// maxIdentifierLen is the maximum length allowed for a SQL identifier.
const maxIdentifierLen = 128

// ValidateIdentifier checks that name is a safe SQL identifier:
//   - Non-empty
//   - At most 128 characters
//   - Matches [a-zA-Z_][a-zA-Z0-9_]*
func ValidateIdentifier(name string) error {
	if name == "" {
		return errors.New(InvalidIdentifier, "identifier is required", nil)
	}
	if len(name) > maxIdentifierLen {
		return errors.Newf(InvalidIdentifier, "identifier must be at most %d characters", maxIdentifierLen).
			AddContext("identifier", name)
	}
	if !identifierRe.MatchString(name) {
		return errors.New(InvalidIdentifier, "identifier must match [a-zA-Z_][a-zA-Z0-9_]*", nil).
			AddContext("identifier", name)
	}
	return nil
}

// QuoteIdentifier wraps a SQL identifier in double quotes, escaping any
// embedded double-quote characters by doubling them (standard SQL).
//
// Always quotes unconditionally — the caller should validate first if needed.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral wraps a string value in single quotes, escaping any
// embedded single-quote characters by doubling them (standard SQL).
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
