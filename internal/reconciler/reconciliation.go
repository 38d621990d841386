// Package reconciler resolves candidate invoice/purchase-order links into
// final reconciled records and assembles the output dataset.
//
// Resolution is a two-level claim procedure. Level 1 greedily claims perfect
// matches: links whose invoice amount equals the purchase-order amount within
// tolerance, deduplicated first per invoice line and then per purchase-order
// line so the claimed set is a strict one-to-one matching. Level 2 takes the
// links left fully unclaimed, collapses each invoice line's purchase-order
// side into one aggregate, and proportionally allocates each customer group's
// purchase-order total across the group's invoice lines by invoice-amount
// share. Invoice lines with no link at all end as unmatched with a zero
// purchase-order amount.
package reconciler

import (
	"strings"

	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// AmountReconciler performs the two-level claim procedure over the link set.
type AmountReconciler struct {
	config *matcher.MatchingConfig
	logger logger.Logger
}

// NewAmountReconciler creates an amount reconciler sharing the matcher's
// tolerance configuration.
func NewAmountReconciler(config *matcher.MatchingConfig) *AmountReconciler {
	if config == nil {
		config = matcher.DefaultMatchingConfig()
	}
	return &AmountReconciler{
		config: config,
		logger: logger.WithComponent("amount_reconciler"),
	}
}

// ClaimOutcome holds the records produced by the two claim levels.
type ClaimOutcome struct {
	Perfect   []*models.ReconciledRecord
	Allocated []*models.ReconciledRecord
}

// Claim resolves the link set. poExtraColumns names the purchase-order
// passthrough columns carried into the output; it drives the aggregation of
// many-to-one links during allocation.
func (r *AmountReconciler) Claim(links []*matcher.Link, poExtraColumns []string) *ClaimOutcome {
	perfect := r.claimPerfectMatches(links)

	claimedInvoices := make(map[int]bool, len(perfect))
	claimedPOs := make(map[int]bool, len(perfect))
	for _, rec := range perfect {
		claimedInvoices[rec.Invoice.LineID] = true
		claimedPOs[rec.claimedPOLineID] = true
	}

	var remaining []*matcher.Link
	for _, link := range links {
		if !claimedInvoices[link.Invoice.LineID] && !claimedPOs[link.PO.LineID] {
			remaining = append(remaining, link)
		}
	}

	allocated := r.allocate(remaining, poExtraColumns)

	r.logger.WithFields(logger.Fields{
		"links":     len(links),
		"perfect":   len(perfect),
		"remaining": len(remaining),
		"allocated": len(allocated),
	}).Info("Amount claim complete")

	outcome := &ClaimOutcome{Allocated: allocated}
	for _, rec := range perfect {
		outcome.Perfect = append(outcome.Perfect, rec.ReconciledRecord)
	}
	return outcome
}

// perfectRecord pairs a reconciled record with the PO line it claims, so the
// claim bookkeeping does not leak into the output type.
type perfectRecord struct {
	*models.ReconciledRecord
	claimedPOLineID int
}

// isPerfect reports whether a link's two amounts both coerced and are equal
// within tolerance. Values that failed coercion can never match exactly.
func (r *AmountReconciler) isPerfect(link *matcher.Link) bool {
	if !link.Invoice.HasUnitPrice || !link.PO.HasOrderedAmount {
		return false
	}
	return models.AmountsEqual(link.Invoice.UnitPrice, link.PO.OrderedAmount, r.config.AmountTolerance)
}

// claimPerfectMatches applies the Level 1 two-step deduplication: among
// perfect-match candidates in link order, keep the first candidate per
// invoice line, then among those keep the first per purchase-order line. The
// result is one-to-one. An invoice line whose surviving candidate loses its
// purchase order to an earlier invoice line drops out of Level 1 entirely;
// its links fall through to allocation.
func (r *AmountReconciler) claimPerfectMatches(links []*matcher.Link) []*perfectRecord {
	seenInvoice := make(map[int]bool)
	var perInvoice []*matcher.Link
	for _, link := range links {
		if !r.isPerfect(link) {
			continue
		}
		if seenInvoice[link.Invoice.LineID] {
			continue
		}
		seenInvoice[link.Invoice.LineID] = true
		perInvoice = append(perInvoice, link)
	}

	seenPO := make(map[int]bool)
	var records []*perfectRecord
	for _, link := range perInvoice {
		if seenPO[link.PO.LineID] {
			continue
		}
		seenPO[link.PO.LineID] = true

		records = append(records, &perfectRecord{
			ReconciledRecord: &models.ReconciledRecord{
				Invoice:           link.Invoice,
				OrderedAmount:     link.PO.OrderedAmount,
				POItemDescription: link.PO.ItemDescription,
				POExtra:           copyValues(link.PO.Extra),
				MatchMethod:       link.Method.AmountMatchMethod(),
				Notes:             link.Note,
			},
			claimedPOLineID: link.PO.LineID,
		})
	}

	return records
}

// allocate performs Level 2. Remaining links are grouped per invoice line in
// first-appearance order and their purchase-order sides collapsed into one
// aggregate record; customer groups with strictly positive totals on both
// sides are then proportionally split.
func (r *AmountReconciler) allocate(remaining []*matcher.Link, poExtraColumns []string) []*models.ReconciledRecord {
	if len(remaining) == 0 {
		return nil
	}

	numericColumn := r.numericColumns(remaining, poExtraColumns)

	byInvoice := make(map[int][]*matcher.Link)
	var invoiceOrder []*models.InvoiceLine
	for _, link := range remaining {
		id := link.Invoice.LineID
		if _, seen := byInvoice[id]; !seen {
			invoiceOrder = append(invoiceOrder, link.Invoice)
		}
		byInvoice[id] = append(byInvoice[id], link)
	}

	var allocated []*allocatedRecord
	for _, inv := range invoiceOrder {
		links := byInvoice[inv.LineID]
		allocated = append(allocated, &allocatedRecord{
			ReconciledRecord: r.aggregate(inv, links, poExtraColumns, numericColumn),
			links:            links,
		})
	}

	r.splitCustomerGroups(allocated)

	records := make([]*models.ReconciledRecord, len(allocated))
	for i, rec := range allocated {
		records[i] = rec.ReconciledRecord
	}
	return records
}

// allocatedRecord pairs an aggregate record with the links behind it, so the
// group split can count each contributing purchase-order line exactly once.
type allocatedRecord struct {
	*models.ReconciledRecord
	links []*matcher.Link
}

// aggregate collapses one invoice line's links into a single allocated
// record: the purchase-order amounts are summed, numeric passthrough columns
// are summed, and the rest join as deduplicated comma-separated lists of
// distinct values in first-appearance order.
func (r *AmountReconciler) aggregate(inv *models.InvoiceLine, links []*matcher.Link, poExtraColumns []string, numericColumn map[string]bool) *models.ReconciledRecord {
	record := &models.ReconciledRecord{
		Invoice:     inv,
		MatchMethod: models.MatchMethodAllocated,
		POExtra:     make(map[string]string, len(poExtraColumns)),
	}

	total := decimal.Zero
	for _, link := range links {
		if link.PO.HasOrderedAmount {
			total = total.Add(link.PO.OrderedAmount)
		}
	}
	record.OrderedAmount = total

	var descriptions []string
	for _, link := range links {
		descriptions = append(descriptions, link.PO.ItemDescription)
	}
	record.POItemDescription = joinDistinct(descriptions)

	for _, col := range poExtraColumns {
		if numericColumn[col] {
			sum := decimal.Zero
			for _, link := range links {
				if v, ok := models.ParseAmount(link.PO.Extra[col]); ok {
					sum = sum.Add(v)
				}
			}
			record.POExtra[col] = sum.String()
			continue
		}

		var values []string
		for _, link := range links {
			values = append(values, link.PO.Extra[col])
		}
		record.POExtra[col] = joinDistinct(values)
	}

	var notes []string
	for _, link := range links {
		notes = append(notes, link.Note)
	}
	record.Notes = joinDistinctSep(notes, "; ")

	return record
}

// splitCustomerGroups overwrites allocated amounts inside each customer group
// by proportional share when both group totals are strictly positive. The
// group's purchase-order total counts each contributing purchase-order line
// once, even when several invoice lines link to it, so the split never
// allocates more than the group actually ordered. Groups whose invoice or
// purchase-order total is zero or negative keep the unsplit aggregates, which
// can leave large amount differences; that behavior is deliberate. Lines
// without a raw customer ID are never grouped.
func (r *AmountReconciler) splitCustomerGroups(records []*allocatedRecord) {
	groups := make(map[string][]*allocatedRecord)
	var order []string
	for _, rec := range records {
		cid := rec.Invoice.CustomerID
		if strings.TrimSpace(cid) == "" {
			continue
		}
		if _, seen := groups[cid]; !seen {
			order = append(order, cid)
		}
		groups[cid] = append(groups[cid], rec)
	}

	for _, cid := range order {
		group := groups[cid]

		totalInvoice := decimal.Zero
		totalPO := decimal.Zero
		seenPO := make(map[int]bool)
		for _, rec := range group {
			if rec.Invoice.HasUnitPrice {
				totalInvoice = totalInvoice.Add(rec.Invoice.UnitPrice)
			}
			for _, link := range rec.links {
				if seenPO[link.PO.LineID] || !link.PO.HasOrderedAmount {
					continue
				}
				seenPO[link.PO.LineID] = true
				totalPO = totalPO.Add(link.PO.OrderedAmount)
			}
		}

		if !totalInvoice.IsPositive() || !totalPO.IsPositive() {
			continue
		}

		for _, rec := range group {
			if !rec.Invoice.HasUnitPrice {
				rec.OrderedAmount = decimal.Zero
				continue
			}
			rec.OrderedAmount = rec.Invoice.UnitPrice.Div(totalInvoice).Mul(totalPO)
		}
	}
}

// numericColumns decides, per purchase-order passthrough column, whether
// aggregation sums or joins: a column is numeric when every non-empty value
// among the remaining links coerces to a number.
func (r *AmountReconciler) numericColumns(remaining []*matcher.Link, poExtraColumns []string) map[string]bool {
	numeric := make(map[string]bool, len(poExtraColumns))
	for _, col := range poExtraColumns {
		sawValue := false
		isNumeric := true
		for _, link := range remaining {
			v := strings.TrimSpace(link.PO.Extra[col])
			if v == "" {
				continue
			}
			sawValue = true
			if _, ok := models.ParseAmount(v); !ok {
				isNumeric = false
				break
			}
		}
		numeric[col] = sawValue && isNumeric
	}
	return numeric
}

// joinDistinct joins non-empty values as a comma-separated list of distinct
// entries in first-appearance order.
func joinDistinct(values []string) string {
	return joinDistinctSep(values, ", ")
}

func joinDistinctSep(values []string, sep string) string {
	seen := make(map[string]bool)
	var distinct []string
	for _, v := range values {
		if strings.TrimSpace(v) == "" || seen[v] {
			continue
		}
		seen[v] = true
		distinct = append(distinct, v)
	}
	return strings.Join(distinct, sep)
}

func copyValues(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
