package processors

import (
	"context"
	"strings"

	"github.com/ikppramesh/everypaisa/backend/src/ledger"
	"github.com/ikppramesh/everypaisa/backend/src/logger"
	"github.com/ikppramesh/everypaisa/backend/src/models"
	"github.com/patrickmn/go-cache"
)

const (
	// DefaultCategory is assigned when neither the mapping table nor the
	// keyword tables produce a category.
	DefaultCategory = "Others"

	ckMerchantCategory = "merchant_cat_"
)

// expenseCategoryTable maps keyword groups to expense categories,
// evaluated in declaration order against the merchant name and then the
// raw message.
var expenseCategoryTable = []struct {
	category string
	keywords []string
}{
	{"Food & Dining", []string{"swiggy", "zomato", "restaurant", "cafe", "pizza", "dominos", "mcdonald", "kfc", "burger", "biryani", "dhaba", "eatery", "dining"}},
	{"Groceries", []string{"bigbasket", "blinkit", "zepto", "grofers", "dmart", "grocery", "supermarket", "kirana", "mart"}},
	{"Shopping", []string{"amazon", "flipkart", "myntra", "ajio", "nykaa", "mall", "store", "shopping", "retail"}},
	{"Transportation", []string{"uber", "ola", "rapido", "irctc", "redbus", "metro", "petrol", "diesel", "fuel", "parking", "toll", "cab"}},
	{"Entertainment", []string{"netflix", "spotify", "hotstar", "prime video", "bookmyshow", "movie", "cinema", "pvr", "inox", "gaming"}},
	{"Bills & Utilities", []string{"electricity", "water bill", "gas", "broadband", "recharge", "dth", "postpaid", "prepaid", "bill payment", "insurance", "emi"}},
}

// incomeCategoryTable applies to CREDIT-type parses only.
var incomeCategoryTable = []struct {
	category string
	keywords []string
}{
	{"Salary", []string{"salary", "sal credited", "payroll"}},
	{"Refunds", []string{"refund", "reversed", "reversal", "credited back"}},
	{"Cashback", []string{"cashback", "cash back", "reward"}},
	{"Interest", []string{"interest", "int credited", "int. credited"}},
}

const defaultIncomeCategory = "Income"

// KeywordCategorizer resolves the category for a parsed transaction:
// the user's merchant-mapping override table first (cached), then the
// keyword tables, then the default.
type KeywordCategorizer struct {
	ledger ledger.Ledger
	cache  *cache.Cache
}

func NewKeywordCategorizer(l ledger.Ledger, c *cache.Cache) *KeywordCategorizer {
	return &KeywordCategorizer{ledger: l, cache: c}
}

func (kc *KeywordCategorizer) Categorize(ctx context.Context, merchantName, rawBody string, txnType models.TxnType) string {
	if mapped, ok := kc.lookupMapping(ctx, merchantName); ok {
		return mapped
	}

	lowerMerchant := strings.ToLower(merchantName)
	lowerBody := strings.ToLower(rawBody)

	if txnType == models.TxnCredit || txnType == models.TxnRefund {
		for _, entry := range incomeCategoryTable {
			if containsAnyKeyword(lowerMerchant, entry.keywords) || containsAnyKeyword(lowerBody, entry.keywords) {
				return entry.category
			}
		}
		return defaultIncomeCategory
	}

	for _, entry := range expenseCategoryTable {
		if containsAnyKeyword(lowerMerchant, entry.keywords) || containsAnyKeyword(lowerBody, entry.keywords) {
			return entry.category
		}
	}
	return DefaultCategory
}

func (kc *KeywordCategorizer) lookupMapping(ctx context.Context, merchantName string) (string, bool) {
	if merchantName == "" {
		return "", false
	}

	cacheKey := ckMerchantCategory + merchantName
	if kc.cache != nil {
		if cached, found := kc.cache.Get(cacheKey); found {
			return cached.(string), true
		}
	}

	category, found, err := kc.ledger.CategoryForMerchant(ctx, merchantName)
	if err != nil {
		logger.L.Warn("Merchant mapping lookup failed, falling back to keyword tables", "merchant", merchantName, "error", err)
		return "", false
	}
	if !found {
		return "", false
	}

	if kc.cache != nil {
		kc.cache.Set(cacheKey, category, cache.DefaultExpiration)
	}
	return category, true
}
