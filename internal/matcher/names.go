package matcher

import (
	"regexp"
	"strings"
)

var (
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// CleanInvoiceName normalizes an invoice-side customer name for token
// matching. Invoice names may carry a trailing qualifier separated by a dash;
// everything from the first dash on is discarded before the shared cleaning
// steps.
func (c *MatchingConfig) CleanInvoiceName(name string) string {
	return c.cleanName(name, true)
}

// CleanPOName normalizes a purchase-order-side customer name for token
// matching. PO names keep their dashes until the punctuation strip.
func (c *MatchingConfig) CleanPOName(name string) string {
	return c.cleanName(name, false)
}

// cleanName lowercases, optionally truncates at the first dash, strips
// honorific titles matched as whole tokens (with an optional period), removes
// everything that is not alphanumeric or space, collapses whitespace, and
// trims.
func (c *MatchingConfig) cleanName(name string, truncateAtDash bool) string {
	s := strings.ToLower(name)

	if truncateAtDash {
		if i := strings.Index(s, "-"); i >= 0 {
			s = s[:i]
		}
	}

	if re := c.titleRegexp(); re != nil {
		s = re.ReplaceAllString(s, " ")
	}

	s = nonAlnumRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// TokenSet splits a cleaned name on whitespace into a set of tokens.
func TokenSet(cleaned string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(cleaned) {
		tokens[tok] = struct{}{}
	}
	return tokens
}

// NameMatches reports whether a cleaned purchase-order name matches a cleaned
// invoice name: the PO token set must be non-empty and fully contained in the
// invoice token set. Order is irrelevant and extra invoice tokens (middle
// names, suffixes) are allowed.
func NameMatches(invoiceClean, poClean string) bool {
	poTokens := TokenSet(poClean)
	if len(poTokens) == 0 {
		return false
	}

	invoiceTokens := TokenSet(invoiceClean)
	for tok := range poTokens {
		if _, ok := invoiceTokens[tok]; !ok {
			return false
		}
	}
	return true
}
