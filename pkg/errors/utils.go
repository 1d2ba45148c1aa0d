package errors

import (
	"errors"
	"fmt"
	"strings"
)

// GetContext extracts the context map from a coded error, nil otherwise.
func GetContext(err error) map[string]string {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Context
	}
	return nil
}

// GetCode returns the code string of a coded error, empty otherwise.
func GetCode(err error) string {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code.String()
	}
	return ""
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code.Equals(code)
	}
	return false
}

// AsError converts any error to the internal *Error format.
// Coded errors pass through unchanged; standard errors are wrapped
// under CommonInternal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded
	}
	return New(CommonInternal, err.Error(), err)
}

// FormatError renders an error with code, context and cause for logging.
func FormatError(err error) string {
	var coded *Error
	if !errors.As(err, &coded) {
		return err.Error()
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("Code: %s", coded.Code))
	parts = append(parts, fmt.Sprintf("Message: %s", coded.Message))

	if len(coded.Context) > 0 {
		parts = append(parts, "Context:")
		for k, v := range coded.Context {
			parts = append(parts, fmt.Sprintf("  %s: %v", k, v))
		}
	}

	if coded.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause: %v", coded.Cause))
	}

	return strings.Join(parts, "\n")
}
