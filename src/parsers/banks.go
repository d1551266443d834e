package parsers

import (
	"regexp"
	"strings"
	"time"

	"github.com/ikppramesh/everypaisa/backend/src/models"
)

// bankParser is a configurable identifier for one bank or payment app.
// Detection is a sender-substring allowlist (uppercased comparison) plus an
// optional body-substring allowlist; extraction is assembled from the field
// extractors, with per-bank quirks handled by an optional customize hook.
type bankParser struct {
	name             string
	senderTokens     []string
	bodyTokens       []string
	merchantFallback string
	defaultCurrency  string
	rejectTokens     []string
	customize        func(body string, tx *models.ParsedTransaction)
}

func (b *bankParser) BankName() string { return b.name }

func (b *bankParser) CanParse(sender, body string) bool {
	lowerBody := strings.ToLower(body)
	for _, tok := range b.rejectTokens {
		if strings.Contains(lowerBody, tok) {
			return false
		}
	}

	upperSender := strings.ToUpper(sender)
	for _, tok := range b.senderTokens {
		if strings.Contains(upperSender, tok) {
			return true
		}
	}
	for _, tok := range b.bodyTokens {
		if strings.Contains(lowerBody, tok) {
			return true
		}
	}
	return false
}

func (b *bankParser) Parse(sender, body string) *models.ParsedTransaction {
	currency := ExtractCurrency(body)
	if currency == "INR" && b.defaultCurrency != "" {
		currency = b.defaultCurrency
	}

	amount, ok := ExtractAmount(body, currency)
	if !ok {
		return nil
	}

	fallback := b.merchantFallback
	if fallback == "" {
		fallback = b.name
	}

	tx := &models.ParsedTransaction{
		Amount:       amount,
		MerchantName: ExtractMerchant(body, fallback),
		Type:         DetermineTxnType(body),
		DateTime:     time.Now(),
		BankName:     b.name,
		AccountLast4: ExtractAccountLast4(body),
		CardLast4:    ExtractCardLast4(body),
		Balance:      ExtractBalance(body),
		RawMessage:   body,
		Currency:     currency,
	}

	if b.customize != nil {
		b.customize(body, tx)
	}
	return tx
}

var enbdRefPattern = regexp.MustCompile(`(?i)\bref:?\s*([^.,;\n]+)`)

// newBankParsers builds the bank-specific identifiers in dispatch priority
// order. The generic fallback is appended separately by the registry.
func newBankParsers() []BankParser {
	return []BankParser{
		&bankParser{
			name:         "HDFC Bank",
			senderTokens: []string{"HDFCBK", "HDFC"},
			bodyTokens:   []string{"hdfc bank"},
		},
		&bankParser{
			name:         "ICICI Bank",
			senderTokens: []string{"ICICIB", "ICICI"},
			bodyTokens:   []string{"icici bank"},
		},
		&bankParser{
			name:         "SBI",
			senderTokens: []string{"SBIINB", "SBIPSG", "SBIUPI", "CBSSBI", "SBI"},
			bodyTokens:   []string{"state bank of india"},
		},
		&bankParser{
			name:         "Axis Bank",
			senderTokens: []string{"AXISBK", "AXIS"},
			bodyTokens:   []string{"axis bank"},
		},
		&bankParser{
			name:         "Kotak Bank",
			senderTokens: []string{"KOTAKB", "KOTAK"},
			bodyTokens:   []string{"kotak bank", "kotak mahindra"},
		},
		&bankParser{
			name:         "IDFC First Bank",
			senderTokens: []string{"IDFCFB", "IDFCBK", "IDFC"},
			bodyTokens:   []string{"idfc first"},
			// IDFC sends e-statement and OTP notices that carry amount-like
			// figures; they are not transactions.
			rejectTokens: []string{"e-statement", "estatement", "otp"},
		},
		&bankParser{
			name:         "Federal Bank",
			senderTokens: []string{"FEDBNK", "FEDERAL"},
			bodyTokens:   []string{"federal bank"},
		},
		&bankParser{
			name:         "PNB",
			senderTokens: []string{"PNBSMS", "PUNBNK", "PNB"},
			bodyTokens:   []string{"punjab national bank"},
		},
		&bankParser{
			name:         "Bank of Baroda",
			senderTokens: []string{"BOBTXN", "BOBSMS", "BOBIBN"},
			bodyTokens:   []string{"bank of baroda"},
		},
		&bankParser{
			name:         "Canara Bank",
			senderTokens: []string{"CANBNK", "CANARA"},
			bodyTokens:   []string{"canara bank"},
		},
		&bankParser{
			name:         "Union Bank",
			senderTokens: []string{"UNIONB", "UBOI"},
			bodyTokens:   []string{"union bank"},
		},
		&bankParser{
			name:            "Emirates NBD",
			senderTokens:    []string{"EMIRATESNBD", "ENBD"},
			bodyTokens:      []string{"emirates nbd"},
			defaultCurrency: "AED",
			// Emirates NBD quotes the merchant in a trailing "Ref:" field
			// rather than the usual at/to phrasing.
			customize: func(body string, tx *models.ParsedTransaction) {
				if m := enbdRefPattern.FindStringSubmatch(body); m != nil {
					candidate := strings.TrimSpace(m[1])
					if validMerchant(candidate) {
						tx.MerchantName = truncateMerchant(candidate)
					}
				}
			},
		},
		&bankParser{
			name:             "Google Pay",
			senderTokens:     []string{"GOOGLEPAY", "GPAY"},
			bodyTokens:       []string{"google pay", "gpay"},
			merchantFallback: "Google Pay",
		},
		&bankParser{
			name:             "PhonePe",
			senderTokens:     []string{"PHONPE", "PHONEPE"},
			bodyTokens:       []string{"phonepe"},
			merchantFallback: "PhonePe",
		},
		&bankParser{
			name:             "Paytm",
			senderTokens:     []string{"PAYTM", "PYTM"},
			bodyTokens:       []string{"paytm"},
			merchantFallback: "Paytm",
		},
		&bankParser{
			name:             "Amazon Pay",
			senderTokens:     []string{"AMZPAY", "AMAZONPAY"},
			bodyTokens:       []string{"amazon pay"},
			merchantFallback: "Amazon Pay",
		},
	}
}
