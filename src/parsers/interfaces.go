package parsers

import (
	"github.com/ikppramesh/everypaisa/backend/src/models"
)

// BankParser is one bank or payment app's detect-and-extract capability.
// CanParse decides whether the message belongs to this bank; Parse turns
// it into a structured transaction, or nil when the message carries no
// usable transaction (typically: no amount).
type BankParser interface {
	CanParse(sender, body string) bool
	Parse(sender, body string) *models.ParsedTransaction
	BankName() string
}
