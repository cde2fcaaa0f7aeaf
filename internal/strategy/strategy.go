// Package strategy holds the durable rule-set model and its JSON document
// store. The on-disk shape keeps the historical field names (including the
// display-name filter keys) so documents written by older builds stay
// readable; legacy aliases are migrated once at load time.
package strategy

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Display-name filter keys used in the persisted document.
const (
	FilterKeyTokenAge = "Token Age (minutes)"
	FilterKeyFirstBuy = "First Buy (%)"
	FilterKeyBalance  = "Balance (SOL)"
	FilterKeyTx       = "Transactions (count)"
	FilterKeyLabel    = "Label"

	legacyKeyFirstBuy = "First Buy (count)"
	legacyKeyLabel    = "Mention"
)

// LabelAny is the wildcard label value; it never constrains a match and
// does not count as a set filter.
const LabelAny = "Any"

// Range is an inclusive numeric interval. From <= To always holds after
// normalization.
type Range struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

// Filters is the tagged form of a strategy's filter map. Nil ranges and an
// empty label mean the filter is not set (filters are opt-in).
type Filters struct {
	TokenAge *Range
	FirstBuy *Range
	Balance  *Range
	Tx       *Range
	Label    string
}

// Action is an optional outbound templated message bound to a match.
type Action struct {
	Target   string `json:"target,omitempty"`
	Template string `json:"template,omitempty"`
}

// Trojan holds the order parameters for the execution venue. All four
// fields must be set before a strategy can emit an order.
type Trojan struct {
	Amount        *float64 `json:"amount,omitempty"`
	ExpiryMinutes *float64 `json:"expiry_minutes,omitempty"`
	SlippagePct   *float64 `json:"slippage_pct,omitempty"`
	TriggerPrice  *float64 `json:"trigger_price,omitempty"`
}

// Complete reports whether every order parameter is present.
func (t *Trojan) Complete() bool {
	return t != nil && t.Amount != nil && t.ExpiryMinutes != nil && t.SlippagePct != nil && t.TriggerPrice != nil
}

// Strategy is a named, owner-scoped rule set binding a source group to
// filters, an optional action, and optional order parameters. A nil
// OwnerID marks a legacy strategy visible to every owner.
type Strategy struct {
	ID      string
	Name    string
	OwnerID *int64
	Group   string
	Enabled bool
	Filters Filters
	Action  *Action
	Trojan  *Trojan
}

// BelongsTo reports whether the strategy is visible to ownerID. Legacy
// strategies with no owner belong to everyone; this is a compatibility
// rule, not a security boundary.
func (s *Strategy) BelongsTo(ownerID int64) bool {
	return s.OwnerID == nil || *s.OwnerID == ownerID
}

type strategyDoc struct {
	ID      json.RawMessage `json:"id,omitempty"`
	Name    string          `json:"name"`
	Group   string          `json:"group"`
	Enabled *bool           `json:"enabled"`
	Filters Filters         `json:"filters"`
	Action  *Action         `json:"action,omitempty"`
	Trojan  *Trojan         `json:"trojan,omitempty"`
	OwnerID *int64          `json:"owner_id,omitempty"`
}

func (s Strategy) MarshalJSON() ([]byte, error) {
	enabled := s.Enabled
	return json.Marshal(strategyDoc{
		ID:      json.RawMessage(strconv.Quote(s.ID)),
		Name:    s.Name,
		Group:   s.Group,
		Enabled: &enabled,
		Filters: s.Filters,
		Action:  s.Action,
		Trojan:  s.Trojan,
		OwnerID: s.OwnerID,
	})
}

func (s *Strategy) UnmarshalJSON(data []byte) error {
	var doc strategyDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	s.ID = rawID(doc.ID)
	s.Name = doc.Name
	s.Group = doc.Group
	s.Enabled = doc.Enabled == nil || *doc.Enabled
	s.Filters = doc.Filters
	s.Action = doc.Action
	s.Trojan = doc.Trojan
	s.OwnerID = doc.OwnerID
	return nil
}

// rawID accepts both the historical numeric ids and the current string ids.
func rawID(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	if unquoted, err := strconv.Unquote(trimmed); err == nil {
		return unquoted
	}
	return trimmed
}

func (f Filters) MarshalJSON() ([]byte, error) {
	doc := map[string]any{}
	if f.TokenAge != nil {
		doc[FilterKeyTokenAge] = f.TokenAge
	}
	if f.FirstBuy != nil {
		doc[FilterKeyFirstBuy] = f.FirstBuy
	}
	if f.Balance != nil {
		doc[FilterKeyBalance] = f.Balance
	}
	if f.Tx != nil {
		doc[FilterKeyTx] = f.Tx
	}
	if f.Label != "" {
		doc[FilterKeyLabel] = f.Label
	}
	return json.Marshal(doc)
}

func (f *Filters) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*f = Filters{}
	f.TokenAge = rangeFromDoc(doc[FilterKeyTokenAge])
	f.FirstBuy = rangeFromDoc(doc[FilterKeyFirstBuy])
	f.Balance = rangeFromDoc(doc[FilterKeyBalance])
	f.Tx = rangeFromDoc(doc[FilterKeyTx])
	f.Label = labelFromDoc(doc[FilterKeyLabel])
	if f.FirstBuy == nil {
		f.FirstBuy = rangeFromDoc(doc[legacyKeyFirstBuy])
	}
	if f.Label == "" {
		f.Label = labelFromDoc(doc[legacyKeyLabel])
	}
	return nil
}

// rangeFromDoc reads a {from, to} object permissively: malformed entries
// and entries missing a bound behave as an unset filter. Inverted bounds
// are swapped.
func rangeFromDoc(raw json.RawMessage) *Range {
	if len(raw) == 0 {
		return nil
	}
	var doc struct {
		From *flexFloat `json:"from"`
		To   *flexFloat `json:"to"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	if doc.From == nil || doc.To == nil {
		return nil
	}
	r := &Range{From: float64(*doc.From), To: float64(*doc.To)}
	if r.From > r.To {
		r.From, r.To = r.To, r.From
	}
	return r
}

func labelFromDoc(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var label string
	if err := json.Unmarshal(raw, &label); err != nil {
		return ""
	}
	return strings.TrimSpace(label)
}

// flexFloat accepts bounds written either as numbers or numeric strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(trimmed); err == nil {
		trimmed = strings.TrimSpace(unquoted)
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fmt.Errorf("parse range bound %q: %w", trimmed, err)
	}
	*f = flexFloat(value)
	return nil
}

// CountFilledFilters counts the filter options that are meaningfully set:
// every present range, plus a label that is set and not the wildcard.
func CountFilledFilters(f Filters) int {
	count := 0
	for _, r := range []*Range{f.TokenAge, f.FirstBuy, f.Balance, f.Tx} {
		if r != nil {
			count++
		}
	}
	if f.Label != "" && f.Label != LabelAny {
		count++
	}
	return count
}
