package validation

import (
	"strings"
	"unicode"
)

// maxSmsBodyLen caps inbound SMS bodies.
const maxSmsBodyLen = 2048

const maxSenderLen = 64

// StripUnprintable removes non-printable characters, allowing common whitespace
// like space, tab, newline, and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1 // Drop the rune
	}, s)
}

// SanitizeSmsBody normalizes an inbound message body: strips unprintable
// runes, trims surrounding whitespace, and caps the length.
func SanitizeSmsBody(body string) string {
	body = strings.TrimSpace(StripUnprintable(body))
	if len(body) > maxSmsBodyLen {
		body = body[:maxSmsBodyLen]
	}
	return body
}

// SanitizeSender normalizes an inbound sender id.
func SanitizeSender(sender string) string {
	sender = strings.TrimSpace(StripUnprintable(sender))
	if len(sender) > maxSenderLen {
		sender = sender[:maxSenderLen]
	}
	return sender
}
