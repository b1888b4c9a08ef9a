package logger

import "fmt"

const previewLen = 6

// Redact hides a secret entirely and keeps only its length.
// Use it for passwords and MFA codes.
func Redact(secret string) string {
	return fmt.Sprintf("[redacted len=%d]", len(secret))
}

// Preview keeps the first few characters of a token so log lines can be
// correlated without exposing a usable credential.
func Preview(token string) string {
	if token == "" {
		return "[empty]"
	}
	if len(token) <= previewLen*2 {
		return Redact(token)
	}
	return fmt.Sprintf("%s…[len=%d]", token[:previewLen], len(token))
}
