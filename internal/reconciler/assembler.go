package reconciler

import (
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/parsers"
)

// Canonical output column names. Working columns (line IDs, extracted
// fields, triage flags, cleaned names) never appear in the output.
const (
	ColCustomerID          = "CustomerID"
	ColCustomerName        = "CustomerName"
	ColUnitPriceInvoice    = "UnitPriceInvoice"
	ColItemDescription     = "ItemDescription"
	ColOrderedAmount       = "OrderedAmount"
	ColMatchMethod         = "MatchMethod"
	ColReconciliationNotes = "ReconciliationNotes"
	ColAmountDifference    = "AmountDifference"
)

// Assemble unions the perfect matches, allocated matches, and unmatched
// residue into the final record list: exactly one record per input invoice
// line, in claim order (perfect, then allocated, then unmatched). Unmatched
// lines get a zero ordered amount, and every record with a coerced unit
// price gets AmountDifference = UnitPrice - OrderedAmount.
//
// allLines is the full ordered invoice line list. An invoice line can leave
// the claim procedure with no record at all: every purchase order it linked
// to was claimed by an earlier line, so it is neither perfect, nor allocated,
// nor in the matching residue. Such lines are backfilled as unmatched; the
// one-record-per-line invariant holds for any input.
func Assemble(outcome *ClaimOutcome, unmatched []*models.InvoiceLine, allLines []*models.InvoiceLine) []*models.ReconciledRecord {
	records := make([]*models.ReconciledRecord, 0,
		len(outcome.Perfect)+len(outcome.Allocated)+len(unmatched))
	records = append(records, outcome.Perfect...)
	records = append(records, outcome.Allocated...)

	for _, inv := range unmatched {
		records = append(records, &models.ReconciledRecord{
			Invoice:     inv,
			MatchMethod: models.MatchMethodUnmatched,
			POExtra:     map[string]string{},
		})
	}

	covered := make(map[int]bool, len(records))
	for _, rec := range records {
		covered[rec.Invoice.LineID] = true
	}
	for _, inv := range allLines {
		if covered[inv.LineID] {
			continue
		}
		records = append(records, &models.ReconciledRecord{
			Invoice:     inv,
			MatchMethod: models.MatchMethodUnmatched,
			POExtra:     map[string]string{},
		})
	}

	for _, rec := range records {
		if rec.Invoice.HasUnitPrice {
			rec.AmountDifference = rec.Invoice.UnitPrice.Sub(rec.OrderedAmount)
			rec.HasAmountDifference = true
		}
	}

	return records
}

// RenderTable lays the reconciled records out as the output dataset: the
// canonical invoice columns and invoice passthrough columns first, then the
// purchase-order side, then the reconciliation columns.
func RenderTable(records []*models.ReconciledRecord, invoiceExtra, poExtra []string) *parsers.Table {
	columns := []string{ColCustomerID, ColCustomerName, ColUnitPriceInvoice}
	columns = append(columns, invoiceExtra...)
	columns = append(columns, ColItemDescription)
	columns = append(columns, poExtra...)
	columns = append(columns, ColOrderedAmount, ColMatchMethod, ColReconciliationNotes, ColAmountDifference)

	table := &parsers.Table{Columns: columns}

	for _, rec := range records {
		row := make([]string, 0, len(columns))

		price := rec.Invoice.UnitPriceRaw
		if rec.Invoice.HasUnitPrice {
			price = rec.Invoice.UnitPrice.String()
		}
		row = append(row, rec.Invoice.CustomerID, rec.Invoice.CustomerName, price)
		for _, col := range invoiceExtra {
			row = append(row, rec.Invoice.Extra[col])
		}

		row = append(row, rec.POItemDescription)
		for _, col := range poExtra {
			row = append(row, rec.POExtra[col])
		}

		difference := ""
		if rec.HasAmountDifference {
			difference = rec.AmountDifference.String()
		}
		row = append(row, rec.OrderedAmount.String(), rec.MatchMethod.String(), rec.Notes, difference)

		table.Rows = append(table.Rows, row)
	}

	return table
}
