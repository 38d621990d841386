package parsers

import (
	"fmt"
	"strings"
)

// InvoiceParserConfig holds configuration for binding invoice tables
type InvoiceParserConfig struct {
	CustomerIDColumn   string            `json:"customer_id_column"`
	CustomerNameColumn string            `json:"customer_name_column"`
	UnitPriceColumn    string            `json:"unit_price_column"`
	ColumnAliases      map[string]string `json:"column_aliases,omitempty"`
}

// DefaultInvoiceParserConfig returns the invoice binding configuration for
// the canonical export schema.
func DefaultInvoiceParserConfig() *InvoiceParserConfig {
	return &InvoiceParserConfig{
		CustomerIDColumn:   "CustomerID",
		CustomerNameColumn: "CustomerName",
		UnitPriceColumn:    "UnitPrice",
		ColumnAliases: map[string]string{
			// Common header variants seen in upstream exports
			"customer name": "CustomerName",
			"customer_name": "CustomerName",
			"customer id":   "CustomerID",
			"customer_id":   "CustomerID",
			"unit price":    "UnitPrice",
			"unit_price":    "UnitPrice",
			"price":         "UnitPrice",
		},
	}
}

// Validate checks if the invoice parser configuration is valid
func (c *InvoiceParserConfig) Validate() error {
	if strings.TrimSpace(c.CustomerIDColumn) == "" {
		return fmt.Errorf("customer ID column cannot be empty")
	}
	if strings.TrimSpace(c.CustomerNameColumn) == "" {
		return fmt.Errorf("customer name column cannot be empty")
	}
	if strings.TrimSpace(c.UnitPriceColumn) == "" {
		return fmt.Errorf("unit price column cannot be empty")
	}
	return nil
}

// POParserConfig holds configuration for binding purchase-order tables
type POParserConfig struct {
	ItemDescriptionColumn string            `json:"item_description_column"`
	OrderedAmountColumn   string            `json:"ordered_amount_column"`
	ColumnAliases         map[string]string `json:"column_aliases,omitempty"`
}

// DefaultPOParserConfig returns the purchase-order binding configuration for
// the canonical export schema.
func DefaultPOParserConfig() *POParserConfig {
	return &POParserConfig{
		ItemDescriptionColumn: "ItemDescription",
		OrderedAmountColumn:   "OrderedAmount",
		ColumnAliases: map[string]string{
			"item description": "ItemDescription",
			"item_description": "ItemDescription",
			"description":      "ItemDescription",
			"ordered amount":   "OrderedAmount",
			"ordered_amount":   "OrderedAmount",
			"amount":           "OrderedAmount",
		},
	}
}

// Validate checks if the purchase-order parser configuration is valid
func (c *POParserConfig) Validate() error {
	if strings.TrimSpace(c.ItemDescriptionColumn) == "" {
		return fmt.Errorf("item description column cannot be empty")
	}
	if strings.TrimSpace(c.OrderedAmountColumn) == "" {
		return fmt.Errorf("ordered amount column cannot be empty")
	}
	return nil
}

// resolveColumn locates a canonical column in a table header, matching the
// canonical name case-insensitively and then any alias that maps to it.
func resolveColumn(columns []string, canonical string, aliases map[string]string) (int, bool) {
	for i, col := range columns {
		if strings.EqualFold(strings.TrimSpace(col), canonical) {
			return i, true
		}
	}
	for i, col := range columns {
		key := strings.ToLower(strings.TrimSpace(col))
		if target, ok := aliases[key]; ok && target == canonical {
			return i, true
		}
	}
	return 0, false
}
