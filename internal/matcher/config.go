package matcher

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// MatchingConfig holds the tunable rules of the matching cascade.
type MatchingConfig struct {
	// ValidIDPattern is the anchored pattern a raw customer ID must match
	// to count as a valid-format ID during triage.
	ValidIDPattern string `json:"valid_id_pattern"`

	// HonorificTitles are stripped as whole tokens (optionally followed by
	// a period) during name cleaning.
	HonorificTitles []string `json:"honorific_titles"`

	// AmountTolerance is the absolute tolerance used when comparing an
	// invoice unit price against a purchase-order amount.
	AmountTolerance decimal.Decimal `json:"amount_tolerance"`

	validIDRe *regexp.Regexp
	titleRe   *regexp.Regexp
}

// DefaultMatchingConfig returns the matching rules used in production:
// five-alphanumeric customer IDs, the common English honorifics, and a
// tolerance that absorbs floating-point noise without conflating cents.
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		ValidIDPattern:  `^[a-zA-Z0-9]{5}$`,
		HonorificTitles: []string{"mr", "mrs", "ms", "miss", "dr"},
		AmountTolerance: decimal.New(1, -6),
	}
}

// Validate checks the configuration and compiles its patterns.
func (c *MatchingConfig) Validate() error {
	if c.ValidIDPattern == "" {
		return fmt.Errorf("valid ID pattern cannot be empty")
	}

	re, err := regexp.Compile(c.ValidIDPattern)
	if err != nil {
		return fmt.Errorf("invalid ID pattern %q: %w", c.ValidIDPattern, err)
	}
	c.validIDRe = re

	if c.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount tolerance cannot be negative")
	}

	if len(c.HonorificTitles) > 0 {
		alternation := ""
		for i, title := range c.HonorificTitles {
			if title == "" {
				return fmt.Errorf("honorific title cannot be empty")
			}
			if i > 0 {
				alternation += "|"
			}
			alternation += regexp.QuoteMeta(title)
		}
		c.titleRe, err = regexp.Compile(`\b(` + alternation + `)\.?( |$)`)
		if err != nil {
			return fmt.Errorf("invalid honorific titles: %w", err)
		}
	}

	return nil
}

// validIDRegexp returns the compiled valid-ID pattern, compiling defaults on
// first use when Validate was not called explicitly.
func (c *MatchingConfig) validIDRegexp() *regexp.Regexp {
	if c.validIDRe == nil {
		c.validIDRe = regexp.MustCompile(c.ValidIDPattern)
	}
	return c.validIDRe
}

// titleRegexp returns the compiled honorific pattern, or nil when no titles
// are configured.
func (c *MatchingConfig) titleRegexp() *regexp.Regexp {
	if c.titleRe == nil && len(c.HonorificTitles) > 0 {
		if err := c.Validate(); err != nil {
			panic(err)
		}
	}
	return c.titleRe
}
