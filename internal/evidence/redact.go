package evidence

import "regexp"

// redactPatterns matches the token/DNI/email/password shapes spec.md §6.3
// calls out by name. DNI: 8 digits + letter. Email: standard shape. Password
// fields: value attributes named password/pwd/pass. Bearer/API tokens: long
// opaque alphanumeric runs following a token-ish key.
var redactPatterns = regexp.MustCompile(
	`(?i)\b\d{8}[a-z]\b` + // DNI
		`|[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}` + // email
		`|(?:password|pwd|pass|token|secret)\s*[:=]\s*["']?[^"'\s>]+`, // credential-shaped key=value
)
