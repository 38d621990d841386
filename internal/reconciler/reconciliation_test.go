package reconciler

import (
	"testing"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/parsers"

	"github.com/shopspring/decimal"
)

func invoiceTable(rows ...[]string) *parsers.Table {
	return &parsers.Table{
		Columns: []string{"CustomerID", "CustomerName", "UnitPrice"},
		Rows:    rows,
	}
}

func poTable(rows ...[]string) *parsers.Table {
	return &parsers.Table{
		Columns: []string{"ItemDescription", "OrderedAmount"},
		Rows:    rows,
	}
}

func runEngine(t *testing.T, invoices, pos *parsers.Table) (*parsers.Table, *Summary) {
	t.Helper()

	engine, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	output, summary, err := engine.Reconcile(invoices, pos)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	return output, summary
}

func cell(t *testing.T, table *parsers.Table, row int, column string) string {
	t.Helper()

	idx, ok := table.ColumnIndex(column)
	if !ok {
		t.Fatalf("Output table has no column %q (columns: %v)", column, table.Columns)
	}
	return table.Cell(row, idx)
}

func findRowByCustomerID(t *testing.T, table *parsers.Table, cid string) int {
	t.Helper()

	idx, ok := table.ColumnIndex(ColCustomerID)
	if !ok {
		t.Fatal("Output table has no CustomerID column")
	}
	for i := range table.Rows {
		if table.Cell(i, idx) == cid {
			return i
		}
	}
	t.Fatalf("No output row for customer ID %q", cid)
	return -1
}

func TestReconcileDirectIDPerfectMatch(t *testing.T) {
	output, summary := runEngine(t,
		invoiceTable([]string{"AB123", "John Smith", "100"}),
		poTable([]string{"AB123|John Smith", "100"}),
	)

	if len(output.Rows) != 1 {
		t.Fatalf("Expected 1 output row, got %d", len(output.Rows))
	}
	if got := cell(t, output, 0, ColMatchMethod); got != "ID_Amount_Match" {
		t.Errorf("Expected ID_Amount_Match, got %s", got)
	}
	if got := cell(t, output, 0, ColOrderedAmount); got != "100" {
		t.Errorf("Expected ordered amount 100, got %s", got)
	}
	if got := cell(t, output, 0, ColAmountDifference); got != "0" {
		t.Errorf("Expected zero difference, got %s", got)
	}
	if summary.PerfectMatches != 1 {
		t.Errorf("Expected 1 perfect match in summary, got %d", summary.PerfectMatches)
	}
}

func TestReconcileNamePerfectMatch(t *testing.T) {
	output, _ := runEngine(t,
		invoiceTable([]string{"", "Jane Doe - Account", "50"}),
		poTable([]string{"XY999|Jane Doe", "50"}),
	)

	if got := cell(t, output, 0, ColMatchMethod); got != "Name_Amount_Match" {
		t.Errorf("Expected Name_Amount_Match, got %s", got)
	}
	if got := cell(t, output, 0, ColAmountDifference); got != "0" {
		t.Errorf("Expected zero difference, got %s", got)
	}
}

func TestReconcileIDMismatchNameAllocation(t *testing.T) {
	output, _ := runEngine(t,
		invoiceTable([]string{"ZZ000", "Bob Lee", "30"}),
		poTable([]string{"QQ111|Bob Lee", "40"}),
	)

	if got := cell(t, output, 0, ColMatchMethod); got != "Customer_Allocated" {
		t.Errorf("Expected Customer_Allocated, got %s", got)
	}

	// The amounts differ, so the link falls through to allocation; the whole
	// group amount lands on the single invoice line.
	amount := decimal.RequireFromString(cell(t, output, 0, ColOrderedAmount))
	if !amount.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected allocated amount 40, got %s", amount)
	}

	difference := decimal.RequireFromString(cell(t, output, 0, ColAmountDifference))
	if !difference.Equal(decimal.NewFromInt(-10)) {
		t.Errorf("Expected difference -10, got %s", difference)
	}

	notes := cell(t, output, 0, ColReconciliationNotes)
	expected := "Inv CID ZZ000 not in POs; name matched to PO CID QQ111"
	if notes != expected {
		t.Errorf("Expected mismatch note to survive allocation: %q", notes)
	}
}

func TestReconcileProportionalAllocation(t *testing.T) {
	output, summary := runEngine(t,
		invoiceTable(
			[]string{"AA111", "Customer One", "60"},
			[]string{"AA111", "Customer One", "40"},
		),
		poTable(
			[]string{"AA111|Customer One", "150"},
			[]string{"AA111|Customer One", "50"},
		),
	)

	if len(output.Rows) != 2 {
		t.Fatalf("Expected 2 output rows, got %d", len(output.Rows))
	}

	totalAllocated := decimal.Zero
	for i := range output.Rows {
		if got := cell(t, output, i, ColMatchMethod); got != "Customer_Allocated" {
			t.Errorf("Row %d: expected Customer_Allocated, got %s", i, got)
		}
		totalAllocated = totalAllocated.Add(decimal.RequireFromString(cell(t, output, i, ColOrderedAmount)))
	}

	// 60 and 40 against a group PO total of 200 split 120/80; each PO line
	// counts once toward the group total even though both invoice lines
	// link to both PO lines.
	first := decimal.RequireFromString(cell(t, output, 0, ColOrderedAmount))
	second := decimal.RequireFromString(cell(t, output, 1, ColOrderedAmount))
	if !first.Equal(decimal.NewFromInt(120)) || !second.Equal(decimal.NewFromInt(80)) {
		t.Errorf("Expected allocation 120/80, got %s/%s", first, second)
	}
	if !totalAllocated.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected allocated total to equal group PO total 200, got %s", totalAllocated)
	}
	if summary.AllocatedLines != 2 {
		t.Errorf("Expected 2 allocated lines in summary, got %d", summary.AllocatedLines)
	}
}

func TestReconcileUnmatchedLine(t *testing.T) {
	output, summary := runEngine(t,
		invoiceTable([]string{"NOPE1", "Nobody Known", "75.50"}),
		poTable([]string{"AB123|John Smith", "100"}),
	)

	if got := cell(t, output, 0, ColMatchMethod); got != "Unmatched" {
		t.Errorf("Expected Unmatched, got %s", got)
	}
	if got := cell(t, output, 0, ColOrderedAmount); got != "0" {
		t.Errorf("Expected zero ordered amount, got %s", got)
	}
	if got := cell(t, output, 0, ColAmountDifference); got != "75.5" {
		t.Errorf("Expected difference to equal the unit price, got %s", got)
	}
	if got := cell(t, output, 0, ColItemDescription); got != "" {
		t.Errorf("Expected empty PO fields for unmatched line, got %q", got)
	}
	if summary.UnmatchedLines != 1 {
		t.Errorf("Expected 1 unmatched line in summary, got %d", summary.UnmatchedLines)
	}
}

func TestReconcileRowCountConservation(t *testing.T) {
	invoices := invoiceTable(
		[]string{"AB123", "John Smith", "100"},
		[]string{"AB123", "John Smith", "100"},
		[]string{"", "Jane Doe", "200"},
		[]string{"ZZ000", "Bob Lee", "30"},
		[]string{"XXXXX", "Nobody Known", "10"},
		[]string{"", "", ""},
	)
	pos := poTable(
		[]string{"AB123|John Smith", "100"},
		[]string{"AB123|John Smith", "100"},
		[]string{"XY456|Jane Doe", "200"},
		[]string{"QQ111|Bob Lee", "40"},
	)

	output, summary := runEngine(t, invoices, pos)

	if len(output.Rows) != len(invoices.Rows) {
		t.Fatalf("Expected one output row per invoice line: %d != %d",
			len(output.Rows), len(invoices.Rows))
	}
	if total := summary.PerfectMatches + summary.AllocatedLines + summary.UnmatchedLines; total != len(invoices.Rows) {
		t.Errorf("Summary counts do not cover all lines: %d != %d", total, len(invoices.Rows))
	}

	methodIdx, _ := output.ColumnIndex(ColMatchMethod)
	for i := range output.Rows {
		method := models.MatchMethod(output.Cell(i, methodIdx))
		if !method.IsValid() {
			t.Errorf("Row %d has a method outside the closed set: %q", i, method)
		}
	}
}

func TestReconcileNoDoubleClaim(t *testing.T) {
	// Two invoice lines match the same single PO line perfectly; only one
	// may claim it. The loser's only link points at a claimed PO, so it
	// cannot be allocated either and must surface as unmatched rather than
	// disappear.
	output, summary := runEngine(t,
		invoiceTable(
			[]string{"AB123", "John Smith", "100"},
			[]string{"AB123", "John Smith", "100"},
		),
		poTable([]string{"AB123|John Smith", "100"}),
	)

	if len(output.Rows) != 2 {
		t.Fatalf("Expected one row per invoice line, got %d", len(output.Rows))
	}
	if summary.PerfectMatches != 1 {
		t.Fatalf("Expected exactly 1 perfect match, got %d", summary.PerfectMatches)
	}
	if summary.UnmatchedLines != 1 {
		t.Fatalf("Expected the losing line to be unmatched, got %d unmatched", summary.UnmatchedLines)
	}
	if got := cell(t, output, 0, ColMatchMethod); got != "ID_Amount_Match" {
		t.Errorf("Expected the first line to claim the PO, got %s", got)
	}
	if got := cell(t, output, 1, ColOrderedAmount); got != "0" {
		t.Errorf("Expected zero ordered amount for the losing line, got %s", got)
	}
}

func TestReconcileDeterminism(t *testing.T) {
	invoices := invoiceTable(
		[]string{"AB123", "John Smith", "100"},
		[]string{"", "Jane Doe", "200"},
		[]string{"ZZ000", "Bob Lee", "30"},
	)
	pos := poTable(
		[]string{"AB123|John Smith", "100"},
		[]string{"XY456|Jane Doe", "180"},
		[]string{"QQ111|Bob Lee", "40"},
	)

	first, _ := runEngine(t, invoices, pos)
	second, _ := runEngine(t, invoices, pos)

	if len(first.Rows) != len(second.Rows) {
		t.Fatalf("Run produced different row counts: %d vs %d", len(first.Rows), len(second.Rows))
	}
	for i := range first.Rows {
		for j := range first.Columns {
			if first.Cell(i, j) != second.Cell(i, j) {
				t.Errorf("Cell (%d,%d) differs between runs: %q vs %q",
					i, j, first.Cell(i, j), second.Cell(i, j))
			}
		}
	}
}

func TestReconcileNonPositiveGroupTotals(t *testing.T) {
	// Amounts differ so the link is not perfect; the group PO total is
	// negative, so the unsplit aggregate is kept as-is.
	output, _ := runEngine(t,
		invoiceTable([]string{"ZB900", "Carol Jones", "100"}),
		poTable([]string{"ZB900|Carol Jones", "-50"}),
	)

	if got := cell(t, output, 0, ColMatchMethod); got != "Customer_Allocated" {
		t.Errorf("Expected Customer_Allocated, got %s", got)
	}
	amount := decimal.RequireFromString(cell(t, output, 0, ColOrderedAmount))
	if !amount.Equal(decimal.NewFromInt(-50)) {
		t.Errorf("Expected unsplit aggregate -50, got %s", amount)
	}
	difference := decimal.RequireFromString(cell(t, output, 0, ColAmountDifference))
	if !difference.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Expected difference 150, got %s", difference)
	}
}

func TestReconcileUncoercedUnitPrice(t *testing.T) {
	output, _ := runEngine(t,
		invoiceTable(
			[]string{"AA222", "Dana White", "pending"},
			[]string{"AA222", "Dana White", "100"},
		),
		poTable([]string{"AA222|Dana White", "80"}),
	)

	row := -1
	priceIdx, _ := output.ColumnIndex(ColUnitPriceInvoice)
	for i := range output.Rows {
		if output.Cell(i, priceIdx) == "pending" {
			row = i
			break
		}
	}
	if row < 0 {
		t.Fatal("Expected the uncoerced raw price to appear in the output")
	}

	// A member without a coerced price gets a zero allocation and no
	// amount difference.
	if got := cell(t, output, row, ColOrderedAmount); got != "0" {
		t.Errorf("Expected zero allocation for uncoerced price, got %s", got)
	}
	if got := cell(t, output, row, ColAmountDifference); got != "" {
		t.Errorf("Expected absent difference for uncoerced price, got %q", got)
	}
}

func TestReconcileAggregationJoinsDescriptions(t *testing.T) {
	output, _ := runEngine(t,
		invoiceTable([]string{"CC333", "Eve Adams", "10"}),
		poTable(
			[]string{"CC333|Eve Adams", "3"},
			[]string{"CC333|Eve Adams", "4"},
			[]string{"CC333|Other Desc", "5"},
		),
	)

	desc := cell(t, output, 0, ColItemDescription)
	expected := "CC333|Eve Adams, CC333|Other Desc"
	if desc != expected {
		t.Errorf("Expected deduplicated joined descriptions %q, got %q", expected, desc)
	}
}

func TestReconcileNumericPassthroughAggregation(t *testing.T) {
	invoices := invoiceTable([]string{"DD444", "Frank Green", "10"})
	pos := &parsers.Table{
		Columns: []string{"ItemDescription", "OrderedAmount", "Qty", "Site"},
		Rows: [][]string{
			{"DD444|Frank Green", "3", "2", "East"},
			{"DD444|Frank Green", "4", "5", "West"},
		},
	}

	output, _ := runEngine(t, invoices, pos)

	// Qty parses on every row and is summed; Site does not and is joined.
	if got := cell(t, output, 0, "Qty"); got != "7" {
		t.Errorf("Expected numeric passthrough sum 7, got %q", got)
	}
	if got := cell(t, output, 0, "Site"); got != "East, West" {
		t.Errorf("Expected joined passthrough values, got %q", got)
	}
}

func TestReconcileSchemaErrorAborts(t *testing.T) {
	engine, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	badInvoices := &parsers.Table{
		Columns: []string{"CustomerID", "CustomerName"},
		Rows:    [][]string{{"AB123", "John Smith"}},
	}

	_, _, err = engine.Reconcile(badInvoices, poTable([]string{"AB123|John Smith", "100"}))
	if err == nil {
		t.Fatal("Expected schema error to abort the run")
	}
}

func TestSummaryTotals(t *testing.T) {
	_, summary := runEngine(t,
		invoiceTable(
			[]string{"AB123", "John Smith", "100"},
			[]string{"NOPE9", "Nobody Known", "50"},
		),
		poTable([]string{"AB123|John Smith", "100"}),
	)

	if summary.TotalInvoiceLines != 2 || summary.TotalPOLines != 1 {
		t.Errorf("Unexpected line totals: %d invoices, %d POs",
			summary.TotalInvoiceLines, summary.TotalPOLines)
	}
	if !summary.TotalInvoiceAmount.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Expected total invoice amount 150, got %s", summary.TotalInvoiceAmount)
	}
	if !summary.TotalOrderedAmount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected total ordered amount 100, got %s", summary.TotalOrderedAmount)
	}
	if !summary.TotalDifference.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected total difference 50, got %s", summary.TotalDifference)
	}
	if summary.MethodCounts["ID_Amount_Match"] != 1 || summary.MethodCounts["Unmatched"] != 1 {
		t.Errorf("Unexpected method counts: %v", summary.MethodCounts)
	}
}
