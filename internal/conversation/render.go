package conversation

import (
	"fmt"
	"strings"

	"github.com/solwatch/solwatch/internal/dispatch"
	"github.com/solwatch/solwatch/internal/signal"
	"github.com/solwatch/solwatch/internal/strategy"
)

const pageSize = 6

func (m *Manager) statusText() string {
	enabled, total := m.store.Counts()
	return fmt.Sprintf(
		"🚀 Solwatch Dashboard\n• Paused: %t\n• Bot: %s\n• Strategies: %d/%d enabled\n• Dedup cache: %d entries",
		m.pause.Paused(),
		orUnknown(m.getIdentity()),
		enabled,
		total,
		m.cache.Len(),
	)
}

func orUnknown(value string) string {
	if value == "" {
		return "(unknown)"
	}
	return value
}

func dashboardButtons() [][]dispatch.Button {
	return [][]dispatch.Button{
		{{Label: "📊 STATUS", Data: "stat"}},
		{{Label: "🟢 ON", Data: "resume"}},
		{{Label: "🔴 OFF", Data: "pause"}},
		{{Label: "📁 MY STRATEGIES", Data: "strats"}},
		{{Label: "➕ NEW STRATEGY", Data: "new"}},
	}
}

func statusButtons() [][]dispatch.Button {
	return [][]dispatch.Button{
		{{Label: "🟢 ON", Data: "resume"}},
		{{Label: "🔴 OFF", Data: "pause"}},
		{{Label: "🔄 Refresh", Data: "stat"}},
		{{Label: "⬅️ Back", Data: "dash"}},
	}
}

func (m *Manager) groupChoiceButtons(backData string) [][]dispatch.Button {
	rows := [][]dispatch.Button{}
	for _, group := range m.groups {
		rows = append(rows, []dispatch.Button{{Label: group, Data: "new_group:" + group}})
	}
	label := "⬅️ Back"
	if backData == "cancel" {
		label = "❌ Cancel"
	}
	rows = append(rows, []dispatch.Button{{Label: label, Data: backData}})
	return rows
}

// strategiesPage renders one page of the owner's strategy list with
// paging and processing controls.
func (m *Manager) strategiesPage(ownerID int64, page int) (string, [][]dispatch.Button) {
	if page < 1 {
		page = 1
	}
	list, _ := m.store.LoadAll()
	owned := strategy.OwnedBy(list, ownerID)
	total := len(owned)
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	if start > total {
		start = total
	}

	rows := [][]dispatch.Button{}
	for i := start; i < end; i++ {
		item := owned[i]
		rows = append(rows, []dispatch.Button{{
			Label: fmt.Sprintf("#%d %s %s", i+1, enabledFlag(item.Enabled), orUnnamed(item.Name)),
			Data:  fmt.Sprintf("view:%d", i+1),
		}})
	}
	nav := []dispatch.Button{}
	if start > 0 {
		nav = append(nav, dispatch.Button{Label: "⬅️ Prev", Data: fmt.Sprintf("page:%d", page-1)})
	}
	if end < total {
		nav = append(nav, dispatch.Button{Label: "Next ➡️", Data: fmt.Sprintf("page:%d", page+1)})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	if m.pause.Paused() {
		rows = append(rows, []dispatch.Button{{Label: "▶ Resume", Data: "resume"}, {Label: "🔁 Reload", Data: "reload"}})
	} else {
		rows = append(rows, []dispatch.Button{{Label: "⏸ Pause", Data: "pause"}, {Label: "🔁 Reload", Data: "reload"}})
	}
	rows = append(rows, []dispatch.Button{{Label: "🔄 Refresh", Data: "strats"}, {Label: "⬅️ Back", Data: "dash"}})
	return fmt.Sprintf("📁 My Strategies – Page %d", page), rows
}

func enabledFlag(enabled bool) string {
	if enabled {
		return "✅"
	}
	return "⏸️"
}

func orUnnamed(name string) string {
	if strings.TrimSpace(name) == "" {
		return "(unnamed)"
	}
	return name
}

func formatRange(r *strategy.Range) string {
	if r == nil {
		return "Not set"
	}
	return fmt.Sprintf("%v to %v", r.From, r.To)
}

func formatRangeArrow(r *strategy.Range) string {
	if r == nil {
		return "Not set"
	}
	return fmt.Sprintf("%v → %v", r.From, r.To)
}

func formatOpt(value *float64) string {
	if value == nil {
		return "Not set"
	}
	return fmt.Sprintf("%v", *value)
}

func labelOrAny(label string) string {
	if strings.TrimSpace(label) == "" {
		return strategy.LabelAny
	}
	return label
}

// strategyDetail is the human-readable per-strategy view.
func (m *Manager) strategyDetail(index int, item strategy.Strategy) string {
	status := "✅ Enabled"
	if !item.Enabled {
		status = "⏸️ Disabled"
	}
	filters := item.Filters
	filterText := strings.Join([]string{
		"- " + strategy.FilterKeyTokenAge + ": " + formatRangeArrow(filters.TokenAge),
		"- " + strategy.FilterKeyFirstBuy + ": " + formatRangeArrow(filters.FirstBuy),
		"- " + strategy.FilterKeyBalance + ": " + formatRangeArrow(filters.Balance),
		"- " + strategy.FilterKeyTx + ": " + formatRangeArrow(filters.Tx),
		"- " + strategy.FilterKeyLabel + ": " + labelOrAny(filters.Label),
	}, "\n")

	actionText := "None"
	if item.Action != nil {
		actionText = fmt.Sprintf("- Target: %s\n- Template: %s",
			orNotSet(item.Action.Target), orNotSet(item.Action.Template))
	}
	trojanText := "None"
	if item.Trojan != nil {
		trojanText = fmt.Sprintf(
			"- Amount (SOL): %s\n- Expiry: %s\n- Slippage (%%): %s\n- Trigger (SOL): %s",
			formatOpt(item.Trojan.Amount),
			signal.FormatMinutes(item.Trojan.ExpiryMinutes),
			formatOpt(item.Trojan.SlippagePct),
			formatOpt(item.Trojan.TriggerPrice),
		)
	}
	return fmt.Sprintf(
		"Strategy #%d\nName: %s\nGroup: %s\nStatus: %s\n\nFilters:\n%s\n\nAction:\n%s\n\nOrder (%s):\n%s",
		index,
		orUnnamed(item.Name),
		item.Group,
		status,
		filterText,
		actionText,
		m.store.VenueGroup(),
		trojanText,
	)
}

func orNotSet(value string) string {
	if strings.TrimSpace(value) == "" {
		return "Not set"
	}
	return value
}

func detailButtons(index int, enabled bool) [][]dispatch.Button {
	toggle := "⏸ Disable"
	if !enabled {
		toggle = "✅ Enable"
	}
	return [][]dispatch.Button{
		{{Label: "✏️ Edit", Data: fmt.Sprintf("edit_strategy:%d", index)}},
		{{Label: toggle, Data: fmt.Sprintf("toggle:%d", index)}},
		{{Label: "⚡ Quick Action", Data: fmt.Sprintf("act:%d", index)}},
		{{Label: "🗑 Delete", Data: fmt.Sprintf("delete:%d", index)}},
		{{Label: "⬅️ Back", Data: "strats"}},
	}
}

func builderText() string {
	return "Strategy Builder"
}

// builderButtons renders the builder keyboard; the venue group hides the
// field filters since orders there are driven purely by trojan settings.
func (m *Manager) builderButtons(st *state) [][]dispatch.Button {
	draft := st.draft
	rows := [][]dispatch.Button{}

	name := draft.Name
	if strings.TrimSpace(name) == "" {
		name = "(set name)"
	}
	rows = append(rows, []dispatch.Button{{Label: "📛 Strategy: " + name, Data: "edit:name"}})
	groupLabel := draft.Group
	if groupLabel == "" {
		groupLabel = "(choose group)"
	}
	rows = append(rows, []dispatch.Button{{Label: "👥 Group: " + groupLabel, Data: "change_group"}})

	if draft.Group != m.store.VenueGroup() {
		filters := draft.Filters
		rows = append(rows,
			[]dispatch.Button{{Label: "Token Age (min): " + formatRange(filters.TokenAge), Data: "edit:token_age"}},
			[]dispatch.Button{{Label: "First Buy (%): " + formatRange(filters.FirstBuy), Data: "edit:first_buy"}},
			[]dispatch.Button{{Label: "Balance (SOL): " + formatRange(filters.Balance), Data: "edit:balance"}},
			[]dispatch.Button{{Label: "Transactions: " + formatRange(filters.Tx), Data: "edit:tx"}},
			[]dispatch.Button{{Label: "🏷️ Label: " + labelOrAny(filters.Label), Data: "menu:label"}},
			[]dispatch.Button{{Label: "📣 Action Target: " + orNotSet(actionTarget(draft.Action)), Data: "edit:action_target"}},
			[]dispatch.Button{{Label: "📝 Action Template: " + orNotSet(actionTemplate(draft.Action)), Data: "edit:action_template"}},
		)
	}

	trojan := draft.Trojan
	rows = append(rows,
		[]dispatch.Button{{Label: "⚙️ LIMIT – Quick Picks", Data: "menu:order"}},
		[]dispatch.Button{{Label: "Amt: " + formatOpt(trojanAmount(trojan)), Data: "edit:amount"}},
		[]dispatch.Button{{Label: "Exp: " + signal.FormatMinutes(trojanExpiry(trojan)), Data: "edit:expiry"}},
		[]dispatch.Button{{Label: "Slip: " + formatOpt(trojanSlippage(trojan)) + "%", Data: "edit:slippage"}},
		[]dispatch.Button{{Label: "Trig: " + formatOpt(trojanTrigger(trojan)), Data: "edit:trigger"}},
	)
	rows = append(rows, []dispatch.Button{{Label: "✅ Save", Data: "save"}, {Label: "❌ Cancel", Data: "cancel"}})
	rows = append(rows, []dispatch.Button{{Label: "⬅️ Back", Data: "dash"}})
	return rows
}

func actionTarget(action *strategy.Action) string {
	if action == nil {
		return ""
	}
	return action.Target
}

func actionTemplate(action *strategy.Action) string {
	if action == nil {
		return ""
	}
	return action.Template
}

func trojanAmount(t *strategy.Trojan) *float64 {
	if t == nil {
		return nil
	}
	return t.Amount
}

func trojanExpiry(t *strategy.Trojan) *float64 {
	if t == nil {
		return nil
	}
	return t.ExpiryMinutes
}

func trojanSlippage(t *strategy.Trojan) *float64 {
	if t == nil {
		return nil
	}
	return t.SlippagePct
}

func trojanTrigger(t *strategy.Trojan) *float64 {
	if t == nil {
		return nil
	}
	return t.TriggerPrice
}

func labelMenuText(st *state) string {
	return fmt.Sprintf("🏷️ Label\nCurrent: %s\n\nChoose:", labelOrAny(st.draft.Filters.Label))
}

func labelMenuButtons() [][]dispatch.Button {
	return [][]dispatch.Button{
		{{Label: "Any", Data: "label:" + strategy.LabelAny}},
		{{Label: "Has Enough Money", Data: "label:" + signal.LabelEnoughMoney}},
		{{Label: "Wallet Empty", Data: "label:" + signal.LabelWalletEmpty}},
		{{Label: "⬅️ Back", Data: "builder"}},
	}
}

func orderMenuText(st *state) string {
	trojan := st.draft.Trojan
	return fmt.Sprintf(
		"⚙️ Order LIMIT\nAmount (SOL): %s\nExpiry: %s\nSlippage (%%): %s\nTrigger (SOL): %s\n\nQuick picks or edit:",
		formatOpt(trojanAmount(trojan)),
		signal.FormatMinutes(trojanExpiry(trojan)),
		formatOpt(trojanSlippage(trojan)),
		formatOpt(trojanTrigger(trojan)),
	)
}

func orderMenuButtons() [][]dispatch.Button {
	return [][]dispatch.Button{
		{{Label: "Amount 0.5", Data: "set:amount:0.5"}, {Label: "1", Data: "set:amount:1"}, {Label: "2", Data: "set:amount:2"}},
		{{Label: "Expiry 10m", Data: "set:expiry:10m"}, {Label: "30m", Data: "set:expiry:30m"}, {Label: "1h", Data: "set:expiry:1h"}},
		{{Label: "Slippage 1%", Data: "set:slippage:1"}, {Label: "2%", Data: "set:slippage:2"}, {Label: "5%", Data: "set:slippage:5"}},
		{{Label: "Trigger 0.1", Data: "set:trigger:0.1"}, {Label: "0.5", Data: "set:trigger:0.5"}, {Label: "1", Data: "set:trigger:1"}},
		{{Label: "✏️ Amount", Data: "edit:amount"}, {Label: "✏️ Expiry", Data: "edit:expiry"}},
		{{Label: "✏️ Slippage", Data: "edit:slippage"}, {Label: "✏️ Trigger", Data: "edit:trigger"}},
		{{Label: "⬅️ Back", Data: "builder"}},
	}
}

func backRow(data string) [][]dispatch.Button {
	return dispatch.Row(dispatch.Button{Label: "⬅️ Back", Data: data})
}

// editPrompts maps a builder edit key to its free-text prompt.
var editPrompts = map[string]string{
	"name":            "Enter strategy name:",
	"token_age":       "Enter Token Age as 'min,max' (minutes) or a single value:",
	"first_buy":       "Enter First Buy % as 'min,max' or a single value:",
	"balance":         "Enter Balance (SOL) as 'min,max' or a single value:",
	"tx":              "Enter Transactions as 'min,max' or a single value:",
	"amount":          "Amount (SOL):",
	"expiry":          "Expiry (e.g., 45s, 30m, 2h, 1d):",
	"slippage":        "Slippage %:",
	"trigger":         "Trigger Price (SOL):",
	"action_target":   "Action Target (e.g., @mychannel):",
	"action_template": "Action Template (e.g., buy {token}):",
}

// editSteps maps the same keys onto state steps.
var editSteps = map[string]Step{
	"name":            StepEditName,
	"token_age":       StepEditTokenAge,
	"first_buy":       StepEditFirstBuy,
	"balance":         StepEditBalance,
	"tx":              StepEditTx,
	"amount":          StepEditAmount,
	"expiry":          StepEditExpiry,
	"slippage":        StepEditSlippage,
	"trigger":         StepEditTrigger,
	"action_target":   StepEditActionTarget,
	"action_template": StepEditActionTemplate,
}
