package reconciler

import (
	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/parsers"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Config collects the component configurations the engine needs.
type Config struct {
	Matching      *matcher.MatchingConfig
	InvoiceParser *parsers.InvoiceParserConfig
	POParser      *parsers.POParserConfig
}

// DefaultConfig returns an engine configuration with all defaults.
func DefaultConfig() *Config {
	return &Config{
		Matching:      matcher.DefaultMatchingConfig(),
		InvoiceParser: parsers.DefaultInvoiceParserConfig(),
		POParser:      parsers.DefaultPOParserConfig(),
	}
}

// Summary provides aggregate statistics about one reconciliation run.
type Summary struct {
	TotalInvoiceLines int `json:"total_invoice_lines"`
	TotalPOLines      int `json:"total_po_lines"`
	PerfectMatches    int `json:"perfect_matches"`
	AllocatedLines    int `json:"allocated_lines"`
	UnmatchedLines    int `json:"unmatched_lines"`

	MethodCounts map[string]int `json:"method_counts"`

	TotalInvoiceAmount decimal.Decimal `json:"total_invoice_amount"`
	TotalOrderedAmount decimal.Decimal `json:"total_ordered_amount"`
	TotalDifference    decimal.Decimal `json:"total_difference"`
}

// Engine runs the full reconciliation pipeline over two raw tables.
//
// The computation is synchronous and single-threaded; every invocation
// builds its own working set and never mutates its inputs, so an Engine is
// safe to share across concurrent requests.
type Engine struct {
	config        *Config
	invoiceParser *parsers.InvoiceParser
	poParser      *parsers.POParser
	cascade       *matcher.CascadeMatcher
	amounts       *AmountReconciler
	logger        logger.Logger
}

// NewEngine creates a reconciliation engine with the given configuration.
func NewEngine(config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Matching == nil {
		config.Matching = matcher.DefaultMatchingConfig()
	}

	invoiceParser, err := parsers.NewInvoiceParser(config.InvoiceParser)
	if err != nil {
		return nil, err
	}
	poParser, err := parsers.NewPOParser(config.POParser)
	if err != nil {
		return nil, err
	}
	cascade, err := matcher.NewCascadeMatcher(config.Matching)
	if err != nil {
		return nil, err
	}

	return &Engine{
		config:        config,
		invoiceParser: invoiceParser,
		poParser:      poParser,
		cascade:       cascade,
		amounts:       NewAmountReconciler(config.Matching),
		logger:        logger.WithComponent("reconciliation_engine"),
	}, nil
}

// Reconcile runs the five pipeline stages over the invoice and
// purchase-order tables and returns the output table plus a run summary.
// Schema problems abort; unmatched lines and coercion failures do not.
func (e *Engine) Reconcile(invoiceTable, poTable *parsers.Table) (*parsers.Table, *Summary, error) {
	invoices, err := e.invoiceParser.BuildInvoiceSet(invoiceTable)
	if err != nil {
		return nil, nil, err
	}
	pos, err := e.poParser.BuildPOSet(poTable)
	if err != nil {
		return nil, nil, err
	}

	index := matcher.NewPOIndex(pos, e.config.Matching)
	cascade := e.cascade.Run(invoices, index)

	outcome := e.amounts.Claim(cascade.Links, pos.ExtraColumns)
	records := Assemble(outcome, cascade.Unmatched, invoices.Lines)

	summary := e.summarize(invoices, pos, records)
	e.logger.WithFields(logger.Fields{
		"invoice_lines": summary.TotalInvoiceLines,
		"po_lines":      summary.TotalPOLines,
		"perfect":       summary.PerfectMatches,
		"allocated":     summary.AllocatedLines,
		"unmatched":     summary.UnmatchedLines,
	}).Info("Reconciliation complete")

	return RenderTable(records, invoices.ExtraColumns, pos.ExtraColumns), summary, nil
}

func (e *Engine) summarize(invoices *models.InvoiceSet, pos *models.POSet, records []*models.ReconciledRecord) *Summary {
	summary := &Summary{
		TotalInvoiceLines:  len(invoices.Lines),
		TotalPOLines:       len(pos.Lines),
		MethodCounts:       make(map[string]int),
		TotalInvoiceAmount: decimal.Zero,
		TotalOrderedAmount: decimal.Zero,
		TotalDifference:    decimal.Zero,
	}

	for _, rec := range records {
		summary.MethodCounts[rec.MatchMethod.String()]++
		switch rec.MatchMethod {
		case models.MatchMethodAllocated:
			summary.AllocatedLines++
		case models.MatchMethodUnmatched:
			summary.UnmatchedLines++
		default:
			summary.PerfectMatches++
		}

		if rec.Invoice.HasUnitPrice {
			summary.TotalInvoiceAmount = summary.TotalInvoiceAmount.Add(rec.Invoice.UnitPrice)
		}
		summary.TotalOrderedAmount = summary.TotalOrderedAmount.Add(rec.OrderedAmount)
		if rec.HasAmountDifference {
			summary.TotalDifference = summary.TotalDifference.Add(rec.AmountDifference)
		}
	}

	return summary
}
