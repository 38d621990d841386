package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{"plain integer", "100", "100", true},
		{"decimal value", "123.45", "123.45", true},
		{"currency symbol", "$1,234.50", "1234.5", true},
		{"thousand separators", "1,000,000", "1000000", true},
		{"negative value", "-45.10", "-45.1", true},
		{"surrounding whitespace", "  99.99  ", "99.99", true},
		{"empty string", "", "0", false},
		{"whitespace only", "   ", "0", false},
		{"non-numeric", "pending", "0", false},
		{"partial numeric", "12abc", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAmount(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseAmount(%q) ok = %v, expected %v", tt.input, ok, tt.ok)
			}
			if got.String() != tt.expected {
				t.Errorf("ParseAmount(%q) = %s, expected %s", tt.input, got.String(), tt.expected)
			}
		})
	}
}

func TestAmountsEqual(t *testing.T) {
	tolerance := decimal.New(1, -6)

	tests := []struct {
		name     string
		a        string
		b        string
		expected bool
	}{
		{"identical", "100.50", "100.50", true},
		{"within tolerance", "100.5000001", "100.5000002", true},
		{"outside tolerance", "100.50", "100.51", false},
		{"sign matters", "100", "-100", false},
		{"zero both sides", "0", "0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := decimal.RequireFromString(tt.a)
			b := decimal.RequireFromString(tt.b)
			if got := AmountsEqual(a, b, tolerance); got != tt.expected {
				t.Errorf("AmountsEqual(%s, %s) = %v, expected %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestLinkMethodAmountMatchMethod(t *testing.T) {
	tests := []struct {
		method   LinkMethod
		expected MatchMethod
	}{
		{LinkMethodID, MatchMethodIDAmount},
		{LinkMethodName, MatchMethodNameAmount},
		{LinkMethodIDMismatch, MatchMethodIDMismatchAmount},
	}

	for _, tt := range tests {
		if got := tt.method.AmountMatchMethod(); got != tt.expected {
			t.Errorf("AmountMatchMethod(%s) = %s, expected %s", tt.method, got, tt.expected)
		}
	}
}

func TestMatchMethodIsValid(t *testing.T) {
	valid := []MatchMethod{
		MatchMethodIDAmount,
		MatchMethodNameAmount,
		MatchMethodIDMismatchAmount,
		MatchMethodAllocated,
		MatchMethodUnmatched,
	}
	for _, m := range valid {
		if !m.IsValid() {
			t.Errorf("Expected %s to be valid", m)
		}
	}

	invalid := []MatchMethod{"", "ID", "Partial_Match", "id_amount_match"}
	for _, m := range invalid {
		if m.IsValid() {
			t.Errorf("Expected %q to be invalid", m)
		}
	}
}

func TestInvoiceLineString(t *testing.T) {
	line := &InvoiceLine{
		LineID:       3,
		CustomerID:   "AB123",
		CustomerName: "John Smith",
		UnitPriceRaw: "oops",
	}
	if got := line.String(); got != `InvoiceLine{ID: 3, CustomerID: "AB123", Name: "John Smith", UnitPrice: n/a}` {
		t.Errorf("Unexpected string representation: %s", got)
	}

	line.UnitPrice = decimal.RequireFromString("12.5")
	line.HasUnitPrice = true
	if got := line.String(); got != `InvoiceLine{ID: 3, CustomerID: "AB123", Name: "John Smith", UnitPrice: 12.5}` {
		t.Errorf("Unexpected string representation: %s", got)
	}
}
