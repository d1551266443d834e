package parsers

import (
	"github.com/ikppramesh/everypaisa/backend/src/models"
)

// registry holds every identifier in dispatch priority order. Bank-specific
// identifiers come before the generic fallback so that a message matching
// both is always parsed by the more precise one.
var registry = buildRegistry()

func buildRegistry() []BankParser {
	parsers := newBankParsers()
	return append(parsers, &genericParser{})
}

// Registry returns the identifiers in dispatch priority order.
func Registry() []BankParser {
	return registry
}

// Dispatch hands the message to the first identifier that claims it and
// returns that identifier's parse. No identifier is tried after a claim:
// a claimed message whose extraction fails yields nil rather than falling
// through to a less precise identifier, which keeps dispatch deterministic.
func Dispatch(sender, body string) *models.ParsedTransaction {
	for _, p := range registry {
		if p.CanParse(sender, body) {
			return p.Parse(sender, body)
		}
	}
	return nil
}
