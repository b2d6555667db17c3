// Package contract resolves raw futures contract symbols to their canonical
// root and the dollar value of one point of price movement.
package contract

import (
	"regexp"
	"strings"
)

// multipliers maps a root symbol to dollars per point. Process-wide read-only
// configuration; unknown roots resolve to 1.0 rather than an error.
var multipliers = map[string]float64{
	// Micro E-mini contracts
	"MNQ": 2.0, // Micro E-mini NASDAQ-100
	"MES": 5.0, // Micro E-mini S&P 500
	"MYM": 0.5, // Micro E-mini Dow
	"M2K": 1.0, // Micro Russell 2000

	// E-micro contracts
	"MGC": 10.0, // E-micro Gold
	"MCL": 10.0, // E-micro Crude Oil
	"M6E": 1.25, // E-micro Euro FX

	// Full-size contracts
	"NQ": 20.0,  // E-mini NASDAQ-100
	"ES": 50.0,  // E-mini S&P 500
	"GC": 100.0, // Gold
	"CL": 100.0, // Crude Oil
}

// Contract format: ROOT + month code + 1-2 digit year, e.g. MGCG6, MNQH6,
// MESM24. The expiration suffix is optional so bare roots also match.
var symbolPattern = regexp.MustCompile(`^([A-Z]{2,4})(?:[A-Z]\d{1,2})?$`)

var letterPrefix = regexp.MustCompile(`^[A-Z]+`)

// Root strips the expiration month/year code from a contract symbol:
// "MGCG6" -> "MGC", "MNQH6" -> "MNQ", "MES" -> "MES". When the symbol does
// not fit the standard format the letter prefix is shortened until a known
// root is found, else the full letter prefix is returned.
func Root(symbol string) string {
	if symbol == "" {
		return ""
	}
	s := strings.ToUpper(strings.TrimSpace(symbol))

	if m := symbolPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}

	prefix := letterPrefix.FindString(s)
	if prefix == "" {
		return s
	}
	for i := len(prefix); i > 1; i-- {
		if _, ok := multipliers[prefix[:i]]; ok {
			return prefix[:i]
		}
	}
	return prefix
}

// Multiplier returns the dollars-per-point value for a contract symbol,
// accepting either a bare root or a full symbol with expiration code.
// Unknown or empty symbols return 1.0.
func Multiplier(symbol string) float64 {
	if symbol == "" {
		return 1.0
	}
	if m, ok := multipliers[Root(symbol)]; ok {
		return m
	}
	return 1.0
}
