// Package signal turns unstructured listing-message text into typed values.
// Parsing is total: a value that cannot be extracted is simply absent.
package signal

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Fields is the per-message parse result. Nil pointers mean the signal was
// not present in the text; Fields are derived fresh per message and never
// persisted.
type Fields struct {
	FirstBuyPct *float64
	BalanceSOL  *float64
	TxCount     *int
	Label       string
}

// Known label phrases, checked against lower-cased text in priority order.
const (
	LabelEnoughMoney = "Dev Has Enough Money"
	LabelWalletEmpty = "Dev Wallet Empty"
)

var labelPhrases = []struct {
	phrase string
	label  string
}{
	{"dev has enough money", LabelEnoughMoney},
	{"dev wallet empty", LabelWalletEmpty},
}

var (
	firstBuyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)first\s*buy[^\n%\d]*([\d.,]+)\s*%`),
		regexp.MustCompile(`(?i)first\s*buy\s*%[^\d]*([\d.,]+)`),
		regexp.MustCompile(`(?i)first\s*purchase[^\n%\d]*([\d.,]+)\s*%`),
		regexp.MustCompile(`(?i)first\s*buyers?[^\n%\d]*([\d.,]+)\s*%`),
	}
	firstBuyLineFallback = regexp.MustCompile(`([\d.,]+)\s*%`)

	balancePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:balance|sol\s*balance|wallet\s*balance)[^\n\d]*([\d.,]+)\s*sol`),
		regexp.MustCompile(`(?i)([\d.,]+)\s*sol\b`),
	}

	txPattern = regexp.MustCompile(`(?i)(?:transactions|txs?|tx\b)[^\n\d]*([\d,\.]+)\b`)

	tokenPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[A-Za-z0-9]{32,44}`),
		regexp.MustCompile(`CA:\s*([A-Za-z0-9]{32,44})`),
		regexp.MustCompile(`Token:\s*([A-Za-z0-9]{32,44})`),
	}

	numberScrub    = regexp.MustCompile(`[^0-9.+-]`)
	bareNumber     = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	durationTokens = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([smhd])`)
)

// Parse extracts all known signals from text. For each signal a fixed,
// ordered pattern list is tried and the first match wins.
func Parse(text string) Fields {
	var fields Fields
	if strings.TrimSpace(text) == "" {
		return fields
	}
	lower := strings.ToLower(text)

	for _, entry := range labelPhrases {
		if strings.Contains(lower, entry.phrase) {
			fields.Label = entry.label
			break
		}
	}

	for _, pattern := range firstBuyPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			if value, ok := ParseNumber(match[1]); ok {
				fields.FirstBuyPct = &value
			}
			break
		}
	}
	if fields.FirstBuyPct == nil {
		for _, line := range strings.Split(text, "\n") {
			if !strings.Contains(strings.ToLower(line), "first") {
				continue
			}
			if match := firstBuyLineFallback.FindStringSubmatch(line); match != nil {
				if value, ok := ParseNumber(match[1]); ok {
					fields.FirstBuyPct = &value
				}
				break
			}
		}
	}

	for _, pattern := range balancePatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			if value, ok := ParseNumber(match[1]); ok {
				fields.BalanceSOL = &value
			}
			break
		}
	}

	if match := txPattern.FindStringSubmatch(text); match != nil {
		if value, ok := ParseNumber(match[1]); ok {
			count := int(math.Round(value))
			fields.TxCount = &count
		}
	}

	return fields
}

// ExtractTokenAddress returns the first base58-like token address (32-44
// alphanumeric characters) found anywhere in the text, or "".
func ExtractTokenAddress(text string) string {
	for _, pattern := range tokenPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		if len(match) > 1 {
			return match[1]
		}
		return match[0]
	}
	return ""
}

// ParseNumber parses a human-entered number. A comma is accepted as the
// decimal separator when no dot is present, internal spaces are stripped,
// and strings that reduce to only signs or dots are rejected.
func ParseNumber(input string) (float64, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	s = numberScrub.ReplaceAllString(s, "")
	switch s {
	case "", "+", "-", ".", "+.", "-.":
		return 0, false
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ParseDurationMinutes parses "45s", "30m", "2h", "1d" and sums like
// "1h30m" or "1d 2h 5m". A bare number is taken as minutes. Returns false
// when no valid unit token is present and the input is not purely numeric.
func ParseDurationMinutes(input string) (float64, bool) {
	t := strings.ToLower(strings.TrimSpace(input))
	if t == "" {
		return 0, false
	}
	if bareNumber.MatchString(t) {
		value, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return value, true
	}
	total := 0.0
	matched := false
	for _, token := range durationTokens.FindAllStringSubmatch(t, -1) {
		value, err := strconv.ParseFloat(token[1], 64)
		if err != nil {
			continue
		}
		matched = true
		switch token[2] {
		case "s":
			total += value / 60.0
		case "m":
			total += value
		case "h":
			total += value * 60.0
		case "d":
			total += value * 1440.0
		}
	}
	if matched && total > 0 {
		return total, true
	}
	return 0, false
}

// FormatMinutes renders a minute count as a short human duration like
// "1h 30m" or "45s". Unset or non-positive values render as "Not set".
func FormatMinutes(minutes *float64) string {
	if minutes == nil {
		return "Not set"
	}
	totalSeconds := int(math.Round(*minutes * 60))
	if totalSeconds <= 0 {
		return "Not set"
	}
	days := totalSeconds / 86400
	rem := totalSeconds % 86400
	hours := rem / 3600
	rem %= 3600
	mins := rem / 60
	secs := rem % 60

	parts := []string{}
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	if secs > 0 && len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	if len(parts) == 0 {
		return "0m"
	}
	return strings.Join(parts, " ")
}
