// internal/app/features/maintenance/money.go
package maintenance

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

var errBadAmount = errors.New("invalid amount")

// parseCents reads a euro amount as typed in a Portuguese form ("1.234,56",
// "80,5", "99" or "12.30") and returns it in cents. Blank means no cost.
func parseCents(s string) (*int64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "€"))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return nil, nil
	}

	intPart, frac := s, ""
	switch {
	case strings.Contains(s, ","):
		i := strings.LastIndex(s, ",")
		intPart, frac = strings.ReplaceAll(s[:i], ".", ""), s[i+1:]
	case strings.Count(s, ".") == 1 && len(s)-strings.Index(s, ".")-1 <= 2:
		i := strings.Index(s, ".")
		intPart, frac = s[:i], s[i+1:]
	default:
		intPart = strings.ReplaceAll(s, ".", "")
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(frac) > 2 {
		return nil, errBadAmount
	}

	euros, err := strconv.ParseUint(intPart, 10, 40)
	if err != nil {
		return nil, errBadAmount
	}
	var cents uint64
	if frac != "" {
		c, err := strconv.ParseUint(frac, 10, 8)
		if err != nil {
			return nil, errBadAmount
		}
		if len(frac) == 1 {
			c *= 10
		}
		cents = c
	}
	total := int64(euros*100 + cents)
	return &total, nil
}

// formatCents renders cents as "1.234,56 €".
func formatCents(c int64) string {
	return fmt.Sprintf("%s,%02d €", humanize.FormatInteger("#.###,", int(c/100)), c%100)
}
