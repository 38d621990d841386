// Package matcher implements the cascading matching passes that link invoice
// lines to purchase-order lines.
//
// Three ordered passes run over disjoint invoice subsets:
//
//	Pass 1: direct customer-ID join for lines with a valid-format ID
//	Pass 2: token-subset name matching for lines without a valid-format ID
//	Pass 3: token-subset name matching for Pass 1 failures, flagged as
//	        ID mismatches with a provenance note
//
// Each pass is a pure function of its inputs: it returns candidate links and
// an unmatched residue without touching shared state, so pass ordering alone
// determines the outcome. The name passes scan purchase orders in original
// order and keep the first match per invoice line; this first-match-wins
// policy is deliberate and keeps runs reproducible. Both name passes are
// cross products, acceptable for the small batch files this service handles.
package matcher

import (
	"fmt"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/logger"
)

// Link is a candidate association between exactly one invoice line and one
// purchase-order line. Links are ephemeral: they exist only between the
// cascade and the amount reconciler and never reach the final output.
type Link struct {
	Invoice *models.InvoiceLine
	PO      *models.POLine
	Method  models.LinkMethod

	// Note carries human-readable provenance for ID-mismatch links.
	Note string
}

// CascadeResult is the full output of the matching cascade.
type CascadeResult struct {
	// Links holds every candidate link from all passes: Pass 1 links
	// first, then Pass 2, then Pass 3, invoice order within each pass.
	Links []*Link

	// Unmatched holds the invoice lines no pass could link: Pass 2
	// residue followed by Pass 3 residue.
	Unmatched []*models.InvoiceLine
}

// CascadeMatcher runs the three matching passes over an invoice set.
type CascadeMatcher struct {
	config *MatchingConfig
	logger logger.Logger
}

// NewCascadeMatcher creates a matcher with the given configuration.
func NewCascadeMatcher(config *MatchingConfig) (*CascadeMatcher, error) {
	if config == nil {
		config = DefaultMatchingConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching configuration: %w", err)
	}

	return &CascadeMatcher{
		config: config,
		logger: logger.WithComponent("cascade_matcher"),
	}, nil
}

// Run executes the cascade over an invoice set against an indexed
// purchase-order set and returns all candidate links plus the unmatched
// residue. Inputs are not mutated.
func (m *CascadeMatcher) Run(invoices *models.InvoiceSet, index *POIndex) *CascadeResult {
	validID, noValidID := m.config.Partition(invoices.Lines)

	idLinks, idFailures := m.matchByID(validID, index)
	nameLinks, unmatchedPass2 := m.matchByName(noValidID, index, models.LinkMethodName)
	mismatchLinks, unmatchedPass3 := m.matchByName(idFailures, index, models.LinkMethodIDMismatch)

	result := &CascadeResult{}
	result.Links = append(result.Links, idLinks...)
	result.Links = append(result.Links, nameLinks...)
	result.Links = append(result.Links, mismatchLinks...)
	result.Unmatched = append(result.Unmatched, unmatchedPass2...)
	result.Unmatched = append(result.Unmatched, unmatchedPass3...)

	m.logger.WithFields(logger.Fields{
		"invoice_lines":  len(invoices.Lines),
		"valid_id_lines": len(validID),
		"id_links":       len(idLinks),
		"name_links":     len(nameLinks),
		"mismatch_links": len(mismatchLinks),
		"unmatched":      len(result.Unmatched),
	}).Info("Matching cascade complete")

	return result
}

// matchByID performs Pass 1: a left join of the valid-ID invoice subset
// against the purchase orders on extracted customer ID. An invoice line whose
// ID hits several purchase orders yields one link per hit; lines with no hit
// feed Pass 3.
func (m *CascadeMatcher) matchByID(lines []*models.InvoiceLine, index *POIndex) (links []*Link, failures []*models.InvoiceLine) {
	for _, inv := range lines {
		candidates := index.ByCustomerID[inv.CustomerID]
		if len(candidates) == 0 {
			failures = append(failures, inv)
			continue
		}

		for _, po := range candidates {
			links = append(links, &Link{
				Invoice: inv,
				PO:      po,
				Method:  models.LinkMethodID,
			})
		}
	}
	return links, failures
}

// matchByName performs Pass 2 or Pass 3: each invoice line is tested against
// every purchase order with a non-empty cleaned name, in original PO order,
// and the first match wins. Lines with no match join the unmatched residue.
func (m *CascadeMatcher) matchByName(lines []*models.InvoiceLine, index *POIndex, method models.LinkMethod) (links []*Link, unmatched []*models.InvoiceLine) {
	for _, inv := range lines {
		invoiceClean := m.config.CleanInvoiceName(inv.CustomerName)

		var matched *models.POLine
		for _, candidate := range index.NameCandidates {
			if NameMatches(invoiceClean, candidate.CleanName) {
				matched = candidate.Line
				break
			}
		}

		if matched == nil {
			unmatched = append(unmatched, inv)
			continue
		}

		link := &Link{
			Invoice: inv,
			PO:      matched,
			Method:  method,
		}
		if method == models.LinkMethodIDMismatch {
			link.Note = fmt.Sprintf("Inv CID %s not in POs; name matched to PO CID %s",
				inv.CustomerID, matched.ExtractedCustomerID)
		}
		links = append(links, link)
	}
	return links, unmatched
}
