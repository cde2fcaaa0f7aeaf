package signal

import (
	"strings"
	"testing"
)

func TestParseNumber(t *testing.T) {
	cases := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"1 000,50", 1000.50, true},
		{"12.3abc", 12.3, true},
		{"3,5", 3.5, true},
		{"-", 0, false},
		{"+.", 0, false},
		{"", 0, false},
		{"   ", 0, false},
		{"42", 42, true},
		{"-1.5", -1.5, true},
	}
	for _, tc := range cases {
		got, ok := ParseNumber(tc.input)
		if ok != tc.ok {
			t.Fatalf("ParseNumber(%q) ok = %v, want %v", tc.input, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("ParseNumber(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestParseDurationMinutes(t *testing.T) {
	cases := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"1h30m", 90, true},
		{"45s", 0.75, true},
		{"10", 10, true},
		{"2h", 120, true},
		{"1d 2h 5m", 1565, true},
		{"bogus", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseDurationMinutes(tc.input)
		if ok != tc.ok {
			t.Fatalf("ParseDurationMinutes(%q) ok = %v, want %v", tc.input, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("ParseDurationMinutes(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestExtractTokenAddress(t *testing.T) {
	address := "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	if got := ExtractTokenAddress("New listing! CA: " + address + " pump it"); got != address {
		t.Fatalf("address = %q, want %q", got, address)
	}
	if got := ExtractTokenAddress("no address here"); got != "" {
		t.Fatalf("expected empty address, got %q", got)
	}
}

func TestParseFields(t *testing.T) {
	text := strings.Join([]string{
		"New token detected",
		"First Buy: 12,5%",
		"Wallet Balance: 3.2 SOL",
		"Transactions: 42",
		"Dev has enough money to push",
	}, "\n")
	fields := Parse(text)
	if fields.FirstBuyPct == nil || *fields.FirstBuyPct != 12.5 {
		t.Fatalf("first buy = %v, want 12.5", fields.FirstBuyPct)
	}
	if fields.BalanceSOL == nil || *fields.BalanceSOL != 3.2 {
		t.Fatalf("balance = %v, want 3.2", fields.BalanceSOL)
	}
	if fields.TxCount == nil || *fields.TxCount != 42 {
		t.Fatalf("tx count = %v, want 42", fields.TxCount)
	}
	if fields.Label != LabelEnoughMoney {
		t.Fatalf("label = %q, want %q", fields.Label, LabelEnoughMoney)
	}
}

func TestParseFieldsFirstBuyLineFallback(t *testing.T) {
	fields := Parse("first movers grabbed 8% of supply")
	if fields.FirstBuyPct == nil || *fields.FirstBuyPct != 8 {
		t.Fatalf("first buy fallback = %v, want 8", fields.FirstBuyPct)
	}
}

func TestParseFieldsAbsentSignals(t *testing.T) {
	fields := Parse("nothing useful in this message")
	if fields.FirstBuyPct != nil || fields.BalanceSOL != nil || fields.TxCount != nil || fields.Label != "" {
		t.Fatalf("expected all-absent fields, got %+v", fields)
	}
}

func TestParseRange(t *testing.T) {
	cases := []struct {
		input  string
		lo, hi float64
		ok     bool
	}{
		{"1,5", 1, 5, true},
		{"1 - 5", 1, 5, true},
		{"1 to 5", 1, 5, true},
		{"5,1", 1, 5, true},
		{"3", 3, 3, true},
		{"skip", 0, 0, false},
		{"abc", 0, 0, false},
	}
	for _, tc := range cases {
		lo, hi, ok := ParseRange(tc.input)
		if ok != tc.ok {
			t.Fatalf("ParseRange(%q) ok = %v, want %v", tc.input, ok, tc.ok)
		}
		if ok && (lo != tc.lo || hi != tc.hi) {
			t.Fatalf("ParseRange(%q) = %v..%v, want %v..%v", tc.input, lo, hi, tc.lo, tc.hi)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	minutes := func(v float64) *float64 { return &v }
	cases := []struct {
		input *float64
		want  string
	}{
		{minutes(90), "1h 30m"},
		{minutes(0.75), "45s"},
		{minutes(2883), "2d 3m"},
		{minutes(0), "Not set"},
		{nil, "Not set"},
	}
	for _, tc := range cases {
		if got := FormatMinutes(tc.input); got != tc.want {
			t.Fatalf("FormatMinutes(%v) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
