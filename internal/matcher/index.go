package matcher

import (
	"invoice-reconciliation-service/internal/models"
)

// POIndex provides candidate lookup over a purchase-order line set. Slices
// preserve original PO order everywhere; that order is the first-match-wins
// tie-break for the name passes and must not be disturbed.
type POIndex struct {
	// AllLines is the full ordered purchase-order line list.
	AllLines []*models.POLine

	// ByCustomerID maps an extracted customer ID to its PO lines in
	// original order.
	ByCustomerID map[string][]*models.POLine

	// NameCandidates are the PO lines with a non-empty cleaned customer
	// name, in original order, paired with that cleaned name.
	NameCandidates []NameCandidate
}

// NameCandidate pairs a purchase-order line with its cleaned customer name.
type NameCandidate struct {
	Line      *models.POLine
	CleanName string
}

// NewPOIndex builds the lookup structures for a purchase-order set. Cleaned
// names are computed once here and reused by both name passes.
func NewPOIndex(set *models.POSet, config *MatchingConfig) *POIndex {
	index := &POIndex{
		AllLines:     set.Lines,
		ByCustomerID: make(map[string][]*models.POLine),
	}

	for _, line := range set.Lines {
		if line.HasExtractedCustomerID {
			id := line.ExtractedCustomerID
			index.ByCustomerID[id] = append(index.ByCustomerID[id], line)
		}

		if line.HasExtractedCustomerName {
			clean := config.CleanPOName(line.ExtractedCustomerName)
			if clean != "" {
				index.NameCandidates = append(index.NameCandidates, NameCandidate{
					Line:      line,
					CleanName: clean,
				})
			}
		}
	}

	return index
}
