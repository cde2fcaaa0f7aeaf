package signal

import (
	"regexp"
	"strings"
)

var (
	commaSplit  = regexp.MustCompile(`\s*,\s*`)
	dashToSplit = regexp.MustCompile(`\s*(?:-|to)\s*`)
	looseNumber = regexp.MustCompile(`[+-]?[\d.,]+`)
)

// ParseRange parses a user-entered range: "min,max", "min-max",
// "min to max", two whitespace-separated numbers, or a single value used
// for both bounds. Inverted bounds are swapped so lo <= hi always holds.
func ParseRange(input string) (lo, hi float64, ok bool) {
	t := strings.ToLower(strings.TrimSpace(input))
	switch t {
	case "", "skip", "none":
		return 0, 0, false
	}
	t = strings.NewReplacer("–", "-", "—", "-").Replace(t)

	var a, b float64
	var aOK, bOK bool
	if parts := commaSplit.Split(t, -1); len(parts) == 2 {
		a, aOK = ParseNumber(parts[0])
		b, bOK = ParseNumber(parts[1])
	} else if parts := dashToSplit.Split(t, -1); len(parts) == 2 {
		a, aOK = ParseNumber(parts[0])
		b, bOK = ParseNumber(parts[1])
	} else if numbers := looseNumber.FindAllString(t, -1); len(numbers) == 2 {
		a, aOK = ParseNumber(numbers[0])
		b, bOK = ParseNumber(numbers[1])
	} else {
		a, aOK = ParseNumber(t)
		b, bOK = a, aOK
	}
	if !aOK || !bOK {
		return 0, 0, false
	}
	if a > b {
		a, b = b, a
	}
	return a, b, true
}
