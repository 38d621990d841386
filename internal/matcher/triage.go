package matcher

import (
	"strings"

	"invoice-reconciliation-service/internal/models"
)

// ValidCustomerID reports whether a raw customer ID has a valid format:
// non-empty and matching the configured pattern (by default exactly five
// alphanumeric characters).
func (c *MatchingConfig) ValidCustomerID(cid string) bool {
	if strings.TrimSpace(cid) == "" {
		return false
	}
	return c.validIDRegexp().MatchString(cid)
}

// Partition splits invoice lines into the valid-ID and no-valid-ID subsets.
// The two subsets are disjoint, preserve input order, and their union is the
// input; the same input always yields the same partition.
func (c *MatchingConfig) Partition(lines []*models.InvoiceLine) (validID, noValidID []*models.InvoiceLine) {
	for _, line := range lines {
		if c.ValidCustomerID(line.CustomerID) {
			validID = append(validID, line)
		} else {
			noValidID = append(noValidID, line)
		}
	}
	return validID, noValidID
}
