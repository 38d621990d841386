package parsers

import (
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// InvoiceParser binds invoice tables to typed invoice line sets
type InvoiceParser struct {
	config *InvoiceParserConfig
	logger logger.Logger
}

// NewInvoiceParser creates a new InvoiceParser with the given configuration
func NewInvoiceParser(config *InvoiceParserConfig) (*InvoiceParser, error) {
	if config == nil {
		config = DefaultInvoiceParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigError(errors.CodeInvalidConfig, "invoice_parser", err)
	}

	return &InvoiceParser{
		config: config,
		logger: logger.WithComponent("invoice_parser"),
	}, nil
}

// BuildInvoiceSet binds a raw table to invoice lines. Line IDs are assigned
// from row position and never recomputed. Required columns missing from the
// header abort with a schema error; unit prices that fail numeric coercion
// are recorded as absent, not fatal.
func (p *InvoiceParser) BuildInvoiceSet(table *Table) (*models.InvoiceSet, error) {
	idIdx, ok := resolveColumn(table.Columns, p.config.CustomerIDColumn, p.config.ColumnAliases)
	if !ok {
		return nil, errors.SchemaError("invoice", p.config.CustomerIDColumn)
	}
	nameIdx, ok := resolveColumn(table.Columns, p.config.CustomerNameColumn, p.config.ColumnAliases)
	if !ok {
		return nil, errors.SchemaError("invoice", p.config.CustomerNameColumn)
	}
	priceIdx, ok := resolveColumn(table.Columns, p.config.UnitPriceColumn, p.config.ColumnAliases)
	if !ok {
		return nil, errors.SchemaError("invoice", p.config.UnitPriceColumn)
	}

	bound := map[int]bool{idIdx: true, nameIdx: true, priceIdx: true}
	var extraColumns []string
	var extraIdx []int
	for i, col := range table.Columns {
		if !bound[i] {
			extraColumns = append(extraColumns, col)
			extraIdx = append(extraIdx, i)
		}
	}

	set := &models.InvoiceSet{ExtraColumns: extraColumns}
	coercionFailures := 0

	for row := range table.Rows {
		line := &models.InvoiceLine{
			LineID:       row,
			CustomerID:   table.Cell(row, idIdx),
			CustomerName: table.Cell(row, nameIdx),
			UnitPriceRaw: table.Cell(row, priceIdx),
			Extra:        make(map[string]string, len(extraColumns)),
		}

		line.UnitPrice, line.HasUnitPrice = models.ParseAmount(line.UnitPriceRaw)
		if !line.HasUnitPrice && line.UnitPriceRaw != "" {
			coercionFailures++
		}

		for j, col := range extraColumns {
			line.Extra[col] = table.Cell(row, extraIdx[j])
		}

		set.Lines = append(set.Lines, line)
	}

	p.logger.WithFields(logger.Fields{
		"lines":             len(set.Lines),
		"coercion_failures": coercionFailures,
	}).Debug("Built invoice line set")

	return set, nil
}
