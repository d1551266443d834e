package parsers

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ikppramesh/everypaisa/backend/src/models"
	"github.com/shopspring/decimal"
)

// Amounts outside this range are treated as misparses (balances, account
// numbers, reference ids) and the next pattern is tried instead.
var (
	minValidAmount = decimal.Zero
	maxValidAmount = decimal.NewFromInt(5000000)
)

// currencyMarkers is scanned in declaration order; the first marker found
// in the message wins. Markers for one currency are mutually exclusive with
// the others in real bank messages, so first-match is safe.
var currencyMarkers = []struct {
	marker string
	code   string
}{
	{"usd", "USD"},
	{"$", "USD"},
	{"aed", "AED"},
	{"dirham", "AED"},
	{"dubai", "AED"},
	{"npr", "NPR"},
	{"₨", "NPR"},
	{"eur", "EUR"},
	{"€", "EUR"},
	{"gbp", "GBP"},
	{"£", "GBP"},
}

// ExtractCurrency returns the ISO-like code of the first currency marker
// found in the text, defaulting to INR.
func ExtractCurrency(text string) string {
	lower := strings.ToLower(text)
	for _, cm := range currencyMarkers {
		if strings.Contains(lower, cm.marker) {
			return cm.code
		}
	}
	return "INR"
}

// currencySymbols maps a detected currency code to the symbols that may
// prefix an amount for it, used to build currency-specific amount patterns.
var currencySymbols = map[string][]string{
	"USD": {`\$`},
	"AED": {},
	"NPR": {`₨`},
	"EUR": {`€`},
	"GBP": {`£`},
}

const numberGroup = `([0-9]+(?:,[0-9]+)*(?:\.[0-9]+)?)`

// inrAmountPatterns are the fallback patterns, tried in order after any
// currency-specific patterns fail.
var inrAmountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:rs\.?|inr|₹)\s*:?\s*` + numberGroup),
	regexp.MustCompile(`(?i)\bamt\b[.:]?\s*(?:of\s+)?(?:rs\.?|inr|₹)?\s*` + numberGroup),
	regexp.MustCompile(`(?i)\b(?:txn|transaction|payment)\s+of\s+(?:rs\.?|inr|₹)?\s*` + numberGroup),
	regexp.MustCompile(`(?i)\bamount\b[.:]?\s*(?:of\s+)?(?:rs\.?|inr|₹)?\s*` + numberGroup),
}

// currencyAmountPatterns is built once at init so concurrent extraction
// never mutates shared state.
var currencyAmountPatterns = buildCurrencyAmountPatterns()

func buildCurrencyAmountPatterns() map[string][]*regexp.Regexp {
	out := make(map[string][]*regexp.Regexp, len(currencySymbols))
	for code, syms := range currencySymbols {
		pats := []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b` + code + `\.?\s*` + numberGroup),
		}
		for _, sym := range syms {
			pats = append(pats, regexp.MustCompile(sym+`\s*`+numberGroup))
		}
		out[code] = pats
	}
	return out
}

func amountPatternsFor(currency string) []*regexp.Regexp {
	return currencyAmountPatterns[currency]
}

// ExtractAmount finds the transaction amount, preferring patterns specific
// to the currency already detected for this message and falling back to the
// INR-style patterns. Out-of-range matches are skipped, not returned.
func ExtractAmount(text, currency string) (decimal.Decimal, bool) {
	patterns := make([]*regexp.Regexp, 0, 8)
	if currency != "" && currency != "INR" {
		patterns = append(patterns, amountPatternsFor(currency)...)
	}
	patterns = append(patterns, inrAmountPatterns...)

	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			amt, ok := parseDecimal(m[1])
			if !ok {
				continue
			}
			if amt.GreaterThan(minValidAmount) && amt.LessThan(maxValidAmount) {
				return amt, true
			}
		}
	}
	return decimal.Decimal{}, false
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

var accountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\ba/c\s*(?:no\.?)?\s*[x\*]*(\d{4})`),
	regexp.MustCompile(`(?i)\bacc(?:oun)?t\s*(?:no\.?)?\s*[x\*]*(\d{4})`),
	regexp.MustCompile(`(?i)[x\*]{2,}(\d{4})\b`),
}

// ExtractAccountLast4 returns the last 4 digits of the account referenced
// in the message, or "" when no pattern matches.
func ExtractAccountLast4(text string) string {
	for _, re := range accountPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

var cardPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bcard\s+ending\s*(?:in\s+)?[x\*]*(\d{4})`),
	regexp.MustCompile(`(?i)\bcard\s*(?:no\.?)?\s*[x\*]*(\d{4})`),
	regexp.MustCompile(`(?i)\b(?:credit|debit)\s+card\s*[x\*]*(\d{4})`),
}

// ExtractCardLast4 returns the last 4 digits of the card referenced in the
// message, or "" when no pattern matches.
func ExtractCardLast4(text string) string {
	for _, re := range cardPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

var balancePattern = regexp.MustCompile(`(?i)(?:avl|avail(?:able)?)\.?\s*bal(?:ance)?\.?\s*:?\s*(?:rs\.?|inr|₹)?\s*` + numberGroup)

// ExtractBalance returns the available balance quoted in the message, if any.
func ExtractBalance(text string) *decimal.Decimal {
	if m := balancePattern.FindStringSubmatch(text); m != nil {
		if d, ok := parseDecimal(m[1]); ok {
			return &d
		}
	}
	return nil
}

var debitKeywords = []string{
	"debited", "spent", "paid", "withdrawn", "purchase", "charged",
	"deducted", "sent", "payment made", "dr.",
}

var creditKeywords = []string{
	"credited to", "credited with", "credited in", "received", "deposited",
	"refund", "cashback", "salary credited", "reversed", "credited back",
}

var cardContextKeywords = []string{"credit card", "cr card", "cc ending"}

// moneyBackKeywords is the subset of credit signals that mean money
// genuinely flowing back onto a card. Inside a credit-card context a plain
// "credited to" refers to the card account and still describes a spend.
var moneyBackKeywords = []string{"refund", "cashback", "reversed", "credited back", "payment received"}

// DetermineTxnType resolves the direction of money flow. Ambiguous or
// unclassifiable messages classify as DEBIT.
func DetermineTxnType(text string) models.TxnType {
	lower := strings.ToLower(text)

	if containsAny(lower, cardContextKeywords) && !containsAny(lower, moneyBackKeywords) {
		return models.TxnDebit
	}
	if containsAny(lower, debitKeywords) {
		// Debit presence wins even when credit signals are also present.
		return models.TxnDebit
	}
	if containsAny(lower, creditKeywords) {
		return models.TxnCredit
	}
	return models.TxnDebit
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

const merchantMaxLen = 40

// merchantBoundary ends a merchant capture at the next clause of the
// message: prepositions, verbs that follow the name, or punctuation.
const merchantBoundary = `(?:\s+(?:on|for|from|via|using|with|ref|is|has|was|will|failed|declined)\b|\s*[.,;\n]|$)`

var merchantPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:\bat\b|@)\s*([A-Za-z0-9&.'\-_ ]+?)` + merchantBoundary),
	regexp.MustCompile(`(?i)\b(?:to|towards)\s+([A-Za-z0-9&.'\-_ ]+?)` + merchantBoundary),
	regexp.MustCompile(`(?i)\b(?:paid|spent)\s+(?:at\s+|to\s+)?([A-Za-z&][A-Za-z0-9&.'\-_ ]+?)` + merchantBoundary),
	regexp.MustCompile(`(?i)\b(?:purchase|txn|transaction)\s+(?:at|with)\s+([A-Za-z0-9&.'\-_ ]+?)` + merchantBoundary),
	regexp.MustCompile(`(?i)\binfo:\s*([^.,;\n]+)`),
}

// ExtractMerchant captures the counterparty name from the message,
// returning the bank-specific fallback label when no candidate validates.
func ExtractMerchant(text, fallback string) string {
	for _, re := range merchantPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			candidate := strings.TrimSpace(m[1])
			if validMerchant(candidate) {
				return truncateMerchant(candidate)
			}
		}
	}
	return fallback
}

// truncateMerchant caps a candidate name at merchantMaxLen bytes, backing
// off to a rune boundary so the result stays valid UTF-8.
func truncateMerchant(candidate string) string {
	if len(candidate) <= merchantMaxLen {
		return candidate
	}
	cut := merchantMaxLen
	for cut > 0 && !utf8.RuneStart(candidate[cut]) {
		cut--
	}
	return strings.TrimSpace(candidate[:cut])
}

var pureNumberPattern = regexp.MustCompile(`^[\d\s.,]+$`)

func validMerchant(candidate string) bool {
	if len(candidate) <= 2 {
		return false
	}
	if pureNumberPattern.MatchString(candidate) {
		return false
	}
	lower := strings.ToLower(candidate)
	if strings.HasPrefix(lower, "your") || strings.HasPrefix(lower, "the ") {
		return false
	}
	if strings.Contains(lower, "avl bal") || strings.Contains(lower, "available") {
		return false
	}
	return true
}
