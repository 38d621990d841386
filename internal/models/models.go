// Package models defines the record types flowing through the reconciliation
// pipeline: invoice lines, purchase-order lines, candidate links, and the
// reconciled output records.
package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// LinkMethod identifies which matching pass produced a candidate link.
type LinkMethod string

const (
	// LinkMethodID marks a link produced by the direct customer-ID pass
	LinkMethodID LinkMethod = "ID"
	// LinkMethodName marks a link produced by the name pass over lines
	// without a valid-format customer ID
	LinkMethodName LinkMethod = "Name"
	// LinkMethodIDMismatch marks a link produced by the name pass over
	// lines whose valid-format ID found no purchase order
	LinkMethodIDMismatch LinkMethod = "ID_Mismatch_Name_Match"
)

// String returns the string representation of LinkMethod
func (m LinkMethod) String() string {
	return string(m)
}

// IsValid checks if the link method is valid
func (m LinkMethod) IsValid() bool {
	return m == LinkMethodID || m == LinkMethodName || m == LinkMethodIDMismatch
}

// AmountMatchMethod returns the final match method assigned when a link of
// this method is claimed as a perfect amount match.
func (m LinkMethod) AmountMatchMethod() MatchMethod {
	return MatchMethod(string(m) + "_Amount_Match")
}

// MatchMethod identifies how an invoice line was resolved in the final output.
type MatchMethod string

const (
	MatchMethodIDAmount         MatchMethod = "ID_Amount_Match"
	MatchMethodNameAmount       MatchMethod = "Name_Amount_Match"
	MatchMethodIDMismatchAmount MatchMethod = "ID_Mismatch_Name_Match_Amount_Match"
	MatchMethodAllocated        MatchMethod = "Customer_Allocated"
	MatchMethodUnmatched        MatchMethod = "Unmatched"
)

// String returns the string representation of MatchMethod
func (m MatchMethod) String() string {
	return string(m)
}

// IsValid checks that the match method belongs to the closed output set
func (m MatchMethod) IsValid() bool {
	switch m {
	case MatchMethodIDAmount, MatchMethodNameAmount, MatchMethodIDMismatchAmount,
		MatchMethodAllocated, MatchMethodUnmatched:
		return true
	default:
		return false
	}
}

// InvoiceLine represents one invoice item row.
//
// LineID is the stable handle assigned once at ingestion (source row
// position) and carried through every derived structure. CustomerID and
// CustomerName hold the raw source values; UnitPrice is the coerced amount
// with HasUnitPrice reporting whether coercion succeeded. Extra holds
// passthrough column values keyed by source column name.
type InvoiceLine struct {
	LineID       int
	CustomerID   string
	CustomerName string
	UnitPriceRaw string
	UnitPrice    decimal.Decimal
	HasUnitPrice bool
	Extra        map[string]string
}

// String returns a string representation of the InvoiceLine
func (l *InvoiceLine) String() string {
	price := "n/a"
	if l.HasUnitPrice {
		price = l.UnitPrice.String()
	}
	return fmt.Sprintf("InvoiceLine{ID: %d, CustomerID: %q, Name: %q, UnitPrice: %s}",
		l.LineID, l.CustomerID, l.CustomerName, price)
}

// POLine represents one purchase-order item row.
//
// ItemDescription encodes customer ID and customer name joined by a pipe;
// ExtractedCustomerID and ExtractedCustomerName are the split results (a
// missing description leaves both absent). OrderedAmount is the coerced
// amount with HasOrderedAmount reporting whether coercion succeeded.
type POLine struct {
	LineID           int
	ItemDescription  string
	HasDescription   bool
	OrderedAmountRaw string
	OrderedAmount    decimal.Decimal
	HasOrderedAmount bool
	Extra            map[string]string

	ExtractedCustomerID      string
	HasExtractedCustomerID   bool
	ExtractedCustomerName    string
	HasExtractedCustomerName bool
}

// String returns a string representation of the POLine
func (p *POLine) String() string {
	amount := "n/a"
	if p.HasOrderedAmount {
		amount = p.OrderedAmount.String()
	}
	return fmt.Sprintf("POLine{ID: %d, CustomerID: %q, Name: %q, OrderedAmount: %s}",
		p.LineID, p.ExtractedCustomerID, p.ExtractedCustomerName, amount)
}

// InvoiceSet holds the ordered invoice lines plus the ordered names of the
// passthrough columns preserved from the source table.
type InvoiceSet struct {
	Lines        []*InvoiceLine
	ExtraColumns []string
}

// POSet holds the ordered purchase-order lines plus the ordered names of the
// passthrough columns preserved from the source table.
type POSet struct {
	Lines        []*POLine
	ExtraColumns []string
}

// ReconciledRecord is the output unit: exactly one per input invoice line.
type ReconciledRecord struct {
	Invoice *InvoiceLine

	// OrderedAmount is the resolved purchase-order amount: the claimed
	// line's amount for perfect matches, the aggregated or allocated
	// amount for customer allocation, zero for unmatched lines.
	OrderedAmount decimal.Decimal

	// POItemDescription and POExtra carry purchase-order passthrough
	// values into the output: direct values for perfect matches,
	// aggregates for allocation, empty for unmatched lines.
	POItemDescription string
	POExtra           map[string]string

	MatchMethod MatchMethod
	Notes       string

	// AmountDifference = UnitPrice - OrderedAmount. HasAmountDifference is
	// false when the invoice unit price never coerced to a number.
	AmountDifference    decimal.Decimal
	HasAmountDifference bool
}

// ParseAmount coerces a raw amount string to a decimal. Common currency
// symbols and thousand separators are stripped first. The boolean result is
// false when the value does not represent a number; coercion failures never
// abort a run.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}

	return d, true
}

// AmountsEqual compares two decimal amounts within an absolute tolerance.
func AmountsEqual(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}
