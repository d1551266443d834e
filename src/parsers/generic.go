package parsers

import (
	"strings"
	"time"

	"github.com/ikppramesh/everypaisa/backend/src/models"
)

// genericParser is the catch-all for banks and apps without a dedicated
// identifier. It claims a message only when it is structurally a
// transaction: an amount, a transaction keyword, and either an account
// reference or a non-INR currency code.
type genericParser struct{}

func (g *genericParser) BankName() string { return "Bank" }

var genericTxnKeywords = []string{
	"debited", "credited", "spent", "paid", "withdrawn", "received",
	"purchase", "transfer", "sent", "deposited", "charged",
}

func (g *genericParser) CanParse(sender, body string) bool {
	lower := strings.ToLower(body)
	if !containsAny(lower, genericTxnKeywords) {
		return false
	}

	currency := ExtractCurrency(body)
	if _, ok := ExtractAmount(body, currency); !ok {
		return false
	}

	hasAccountRef := ExtractAccountLast4(body) != "" || ExtractCardLast4(body) != ""
	return hasAccountRef || currency != "INR"
}

func (g *genericParser) Parse(sender, body string) *models.ParsedTransaction {
	currency := ExtractCurrency(body)
	amount, ok := ExtractAmount(body, currency)
	if !ok {
		return nil
	}

	return &models.ParsedTransaction{
		Amount:       amount,
		MerchantName: ExtractMerchant(body, "Bank"),
		Type:         DetermineTxnType(body),
		DateTime:     time.Now(),
		BankName:     "Bank",
		AccountLast4: ExtractAccountLast4(body),
		CardLast4:    ExtractCardLast4(body),
		Balance:      ExtractBalance(body),
		RawMessage:   body,
		Currency:     currency,
	}
}
