package processors

import (
	"strings"
)

// nonTransactionalGroups are independent keyword groups; a hit in any
// group rejects the message before dispatch. Grouped by the kind of
// message they describe: OTP/verification, credit-limit notices, balance
// inquiries, statements, promotions, payment-due reminders, and
// welcome/thank-you messages.
var nonTransactionalGroups = [][]string{
	{"otp", "one time password", "one-time password", "verification code", "do not share"},
	{"credit limit", "limit increased", "limit enhanced", "limit has been"},
	{"balance inquiry", "balance enquiry", "bal enquiry", "your balance is", "check your balance"},
	{"statement", "e-statement", "stmt generated"},
	{"offer", "% off", "discount", "cashback offer", "hurry", "apply now", "congratulations", "exclusive deal", "limited period"},
	{"payment due", "min amt due", "minimum amount due", "bill is due", "due by", "reminder", "outstanding amount"},
	{"welcome to", "thank you for registering", "thank you for choosing", "thank you for banking"},
}

// IsNonTransactional reports whether the message is informational noise
// (OTP, promo, statement, reminder, ...) that must never reach a bank
// identifier.
func IsNonTransactional(body string) bool {
	lower := strings.ToLower(body)
	for _, group := range nonTransactionalGroups {
		for _, kw := range group {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

var failedKeywords = []string{
	"failed", "declined", "unsuccessful", "could not be", "reversed",
	"reversal", "refunded", "credited back",
}

// IsFailedOrReversed reports whether the message describes a failed or
// reversed transaction, which routes to the failed-transaction handler
// instead of normal synthesis.
func IsFailedOrReversed(body string) bool {
	return containsAnyKeyword(strings.ToLower(body), failedKeywords)
}

func containsAnyKeyword(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
