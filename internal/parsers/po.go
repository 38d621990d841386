package parsers

import (
	"strings"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// POParser binds purchase-order tables to typed purchase-order line sets
type POParser struct {
	config *POParserConfig
	logger logger.Logger
}

// NewPOParser creates a new POParser with the given configuration
func NewPOParser(config *POParserConfig) (*POParser, error) {
	if config == nil {
		config = DefaultPOParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigError(errors.CodeInvalidConfig, "po_parser", err)
	}

	return &POParser{
		config: config,
		logger: logger.WithComponent("po_parser"),
	}, nil
}

// BuildPOSet binds a raw table to purchase-order lines, splitting each item
// description into its customer ID and customer name segments. Line IDs are
// assigned from row position and never recomputed.
func (p *POParser) BuildPOSet(table *Table) (*models.POSet, error) {
	descIdx, ok := resolveColumn(table.Columns, p.config.ItemDescriptionColumn, p.config.ColumnAliases)
	if !ok {
		return nil, errors.SchemaError("purchase order", p.config.ItemDescriptionColumn)
	}
	amountIdx, ok := resolveColumn(table.Columns, p.config.OrderedAmountColumn, p.config.ColumnAliases)
	if !ok {
		return nil, errors.SchemaError("purchase order", p.config.OrderedAmountColumn)
	}

	bound := map[int]bool{descIdx: true, amountIdx: true}
	var extraColumns []string
	var extraIdx []int
	for i, col := range table.Columns {
		if !bound[i] {
			extraColumns = append(extraColumns, col)
			extraIdx = append(extraIdx, i)
		}
	}

	set := &models.POSet{ExtraColumns: extraColumns}

	for row := range table.Rows {
		line := &models.POLine{
			LineID:           row,
			ItemDescription:  table.Cell(row, descIdx),
			OrderedAmountRaw: table.Cell(row, amountIdx),
			Extra:            make(map[string]string, len(extraColumns)),
		}
		line.HasDescription = strings.TrimSpace(line.ItemDescription) != ""
		line.OrderedAmount, line.HasOrderedAmount = models.ParseAmount(line.OrderedAmountRaw)

		ExtractCustomerInfo(line)

		for j, col := range extraColumns {
			line.Extra[col] = table.Cell(row, extraIdx[j])
		}

		set.Lines = append(set.Lines, line)
	}

	p.logger.WithField("lines", len(set.Lines)).Debug("Built purchase-order line set")

	return set, nil
}

// ExtractCustomerInfo splits a purchase-order item description into the
// customer ID and customer name segments it encodes, joined by a pipe. The
// first segment (trimmed) becomes the extracted customer ID, the second the
// extracted customer name; a missing description leaves both absent. The
// operation is idempotent: re-extracting an already extracted line yields the
// same values.
func ExtractCustomerInfo(line *models.POLine) {
	line.HasExtractedCustomerID = false
	line.HasExtractedCustomerName = false
	line.ExtractedCustomerID = ""
	line.ExtractedCustomerName = ""

	if !line.HasDescription {
		return
	}

	parts := strings.SplitN(line.ItemDescription, "|", 3)
	line.ExtractedCustomerID = strings.TrimSpace(parts[0])
	line.HasExtractedCustomerID = true
	if len(parts) > 1 {
		line.ExtractedCustomerName = strings.TrimSpace(parts[1])
		line.HasExtractedCustomerName = true
	}
}
