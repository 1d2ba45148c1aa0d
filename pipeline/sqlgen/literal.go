package sqlgen

import "strconv"

// FormatFloat renders a float for embedding in query text. The output always
// uses a decimal point and never an exponent or thousands separator,
// regardless of the host locale. Locale-sensitive formatting here corrupts
// generated query syntax under comma-decimal system locales.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatInt renders an integer for embedding in query text.
func FormatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
