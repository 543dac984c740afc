// Package util provides utility functions for the operations ledger.
package util

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Record prefixes. Items and tools carry them in their generated IDs; the
// rest tag the sub-records of orders and tools.
const (
	ItemPrefix        = "MAT"
	ToolPrefix        = "T"
	LoanPrefix        = "LN"
	MaintenancePrefix = "MT"
	LaborPrefix       = "LB"
	ServicePrefix     = "SV"
	TaskPrefix        = "TK"
	CommentPrefix     = "CM"
)

// Document number prefixes for supply receipts and stock dispatches.
const (
	ReceiptPrefix  = "RCP"
	DispatchPrefix = "DSP"
)

// IDGenerator issues time-ordered UUIDv7 identifiers. The zero value is
// ready to use.
type IDGenerator struct{}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// NewID returns a fresh UUIDv7, falling back to a random UUID if the
// clock cannot be read.
func (g *IDGenerator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// NewPrefixedID returns prefix-UUIDv7, e.g. LN-01901c8e-7b4a-7000-8c1d-2f0e9a6b3c4d.
func (g *IDGenerator) NewPrefixedID(prefix string) string {
	return prefix + "-" + g.NewID()
}

// IsValidID reports whether s is a UUID, with or without a record prefix.
func IsValidID(s string) bool {
	if err := uuid.Validate(s); err == nil {
		return true
	}
	_, rest, ok := strings.Cut(s, "-")
	return ok && uuid.Validate(rest) == nil
}

// DocumentNumber formats the next receipt or dispatch number of a year
// as PREFIX-YYYY-NNNN, e.g. RCP-2024-1001. existing is how many were
// already issued that year; numbering starts at 1001 and keeps four digits.
func DocumentNumber(prefix string, year, existing int) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, (existing+1001)%10000)
}

// ParseDocumentNumber splits a document number into its parts.
func ParseDocumentNumber(doc string) (prefix string, year, sequence int, err error) {
	prefix, rest, ok := strings.Cut(doc, "-")
	if !ok || prefix == "" {
		return "", 0, 0, fmt.Errorf("invalid document number %q", doc)
	}
	if _, err := fmt.Sscanf(rest, "%d-%d", &year, &sequence); err != nil {
		return "", 0, 0, fmt.Errorf("invalid document number %q: %w", doc, err)
	}
	return prefix, year, sequence, nil
}
