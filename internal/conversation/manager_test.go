package conversation

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/solwatch/solwatch/internal/dispatch"
	"github.com/solwatch/solwatch/internal/engine"
	"github.com/solwatch/solwatch/internal/strategy"
)

const testVenue = "@solana_trojanbot"

type sentMessage struct {
	destination string
	text        string
	buttons     [][]dispatch.Button
}

type editedMessage struct {
	chatID    int64
	messageID int64
	text      string
	buttons   [][]dispatch.Button
}

type fakeSender struct {
	sent    []sentMessage
	edited  []editedMessage
	answers []string
	deleted []int64
	nextID  int64
}

func (s *fakeSender) Send(_ context.Context, destination, text string, buttons [][]dispatch.Button) (int64, error) {
	s.sent = append(s.sent, sentMessage{destination: destination, text: text, buttons: buttons})
	s.nextID++
	return s.nextID, nil
}

func (s *fakeSender) Edit(_ context.Context, chatID, messageID int64, text string, buttons [][]dispatch.Button) error {
	s.edited = append(s.edited, editedMessage{chatID: chatID, messageID: messageID, text: text, buttons: buttons})
	return nil
}

func (s *fakeSender) AnswerCallback(_ context.Context, _, text string) error {
	s.answers = append(s.answers, text)
	return nil
}

func (s *fakeSender) Delete(_ context.Context, _, messageID int64) error {
	s.deleted = append(s.deleted, messageID)
	return nil
}

func (s *fakeSender) lastEdit(t *testing.T) editedMessage {
	t.Helper()
	if len(s.edited) == 0 {
		t.Fatal("no edits recorded")
	}
	return s.edited[len(s.edited)-1]
}

func (s *fakeSender) lastSent(t *testing.T) sentMessage {
	t.Helper()
	if len(s.sent) == 0 {
		t.Fatal("no sends recorded")
	}
	return s.sent[len(s.sent)-1]
}

type limitOrder struct {
	token    string
	amount   float64
	expiry   float64
	slippage float64
	trigger  float64
}

type fakeOrders struct {
	orders []limitOrder
}

func (o *fakeOrders) SendLimitOrder(_ context.Context, token string, amount, expiryMinutes, slippage, trigger float64) error {
	o.orders = append(o.orders, limitOrder{token, amount, expiryMinutes, slippage, trigger})
	return nil
}

type fakeCache struct{ size int }

func (c *fakeCache) Len() int { return c.size }

type fixture struct {
	manager  *Manager
	sender   *fakeSender
	store    *strategy.Store
	path     string
	registry *dispatch.Registry
	pause    *engine.Pause
	orders   *fakeOrders
}

func newFixture(t *testing.T, allowed []int64) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "strategies.json")
	store := strategy.NewStore(path, testVenue, logger)
	registry := dispatch.NewRegistry(0)
	pause := engine.NewPause()
	orders := &fakeOrders{}
	sender := &fakeSender{}

	manager := NewManager(
		store, registry, dispatch.NewControl(allowed), pause, orders, &fakeCache{size: 3},
		[]string{"@SolanaNewPumpfun", testVenue}, allowed, logger,
	)
	manager.SetSender(sender)
	manager.SetIdentity("@solwatch_bot")
	return &fixture{manager: manager, sender: sender, store: store, path: path, registry: registry, pause: pause, orders: orders}
}

func rangePtr(from, to float64) *strategy.Range {
	return &strategy.Range{From: from, To: to}
}

func seedStrategy(t *testing.T, store *strategy.Store, ownerID int64, name string) {
	t.Helper()
	_, err := store.Create(ownerID, strategy.Strategy{
		Name:  name,
		Group: "@SolanaNewPumpfun",
		Filters: strategy.Filters{
			TokenAge: rangePtr(0, 30),
			Balance:  rangePtr(1, 5),
			Tx:       rangePtr(10, 100),
		},
	})
	if err != nil {
		t.Fatalf("seed strategy: %v", err)
	}
}

func TestUnauthorizedSenderIgnored(t *testing.T) {
	f := newFixture(t, []int64{100})
	f.manager.HandlePrivateMessage(context.Background(), 200, 200, 1, "/start")
	if len(f.sender.sent) != 0 {
		t.Fatalf("unauthorized sender got %d replies", len(f.sender.sent))
	}
}

func TestStartShowsDashboardAndClearsState(t *testing.T) {
	f := newFixture(t, nil)
	f.manager.setState(7, &state{mode: ModeCreate, step: StepBuilder})

	f.manager.HandlePrivateMessage(context.Background(), 7, 7, 1, "/start")

	if _, ok := f.manager.getState(7); ok {
		t.Fatal("stale state survived /start")
	}
	got := f.sender.lastSent(t)
	if !strings.Contains(got.text, "Solwatch Dashboard") {
		t.Fatalf("dashboard text = %q", got.text)
	}
	if len(got.buttons) != 5 {
		t.Fatalf("dashboard rows = %d, want 5", len(got.buttons))
	}
}

func TestStatusCommand(t *testing.T) {
	f := newFixture(t, nil)
	seedStrategy(t, f.store, 7, "alpha")
	f.pause.Set(true)

	f.manager.HandlePrivateMessage(context.Background(), 7, 7, 1, "/status")

	text := f.sender.lastSent(t).text
	for _, want := range []string{"Paused: true", "Strategies: 1/1 enabled", "Dedup cache: 3 entries", "@solwatch_bot"} {
		if !strings.Contains(text, want) {
			t.Fatalf("status %q missing %q", text, want)
		}
	}
}

func TestStrategiesCommandListsOwned(t *testing.T) {
	f := newFixture(t, nil)
	seedStrategy(t, f.store, 7, "alpha")
	seedStrategy(t, f.store, 8, "other-owner")

	f.manager.HandlePrivateMessage(context.Background(), 7, 7, 1, "/strategies")

	text := f.sender.lastSent(t).text
	if !strings.Contains(text, "#1 ✅ alpha — @SolanaNewPumpfun") {
		t.Fatalf("list = %q", text)
	}
	if strings.Contains(text, "other-owner") {
		t.Fatalf("foreign strategy leaked into %q", text)
	}
}

func TestEnableDisableByRef(t *testing.T) {
	f := newFixture(t, nil)
	seedStrategy(t, f.store, 7, "alpha")

	f.manager.HandlePrivateMessage(context.Background(), 7, 7, 1, "/disable #1")
	if got := f.sender.lastSent(t).text; got != "Disabled: alpha" {
		t.Fatalf("disable reply = %q", got)
	}
	item, err := f.store.GetOwned(7, 1)
	if err != nil || item.Enabled {
		t.Fatalf("strategy still enabled after /disable (err=%v)", err)
	}

	f.manager.HandlePrivateMessage(context.Background(), 7, 7, 2, "/enable alpha")
	item, _ = f.store.GetOwned(7, 1)
	if !item.Enabled {
		t.Fatal("strategy still disabled after /enable by name")
	}
}

func TestPauseResumeCommands(t *testing.T) {
	f := newFixture(t, nil)
	f.manager.HandlePrivateMessage(context.Background(), 7, 7, 1, "/pause")
	if !f.pause.Paused() {
		t.Fatal("pause flag not set")
	}
	f.manager.HandlePrivateMessage(context.Background(), 7, 7, 2, "/resume")
	if f.pause.Paused() {
		t.Fatal("pause flag not cleared")
	}
}

func TestBuilderFlowCreatesStrategy(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.manager.HandlePrivateMessage(ctx, 7, 7, 1, "/new")
	f.manager.HandleCallback(ctx, 7, 7, 10, "cb1", "new_group:@SolanaNewPumpfun")

	// Three ranges through the free-text edit steps.
	f.manager.HandleCallback(ctx, 7, 7, 10, "cb2", "edit:token_age")
	f.manager.HandlePrivateMessage(ctx, 7, 7, 2, "0,30")
	f.manager.HandleCallback(ctx, 7, 7, 10, "cb3", "edit:balance")
	f.manager.HandlePrivateMessage(ctx, 7, 7, 3, "1,5")
	f.manager.HandleCallback(ctx, 7, 7, 10, "cb4", "edit:tx")
	f.manager.HandlePrivateMessage(ctx, 7, 7, 4, "10-100")

	f.manager.HandleCallback(ctx, 7, 7, 10, "cb5", "edit:name")
	f.manager.HandlePrivateMessage(ctx, 7, 7, 5, "momentum")

	f.manager.HandleCallback(ctx, 7, 7, 10, "cb6", "save")

	if got := f.sender.lastEdit(t).text; got != "Saved ✅" {
		t.Fatalf("save result = %q", got)
	}
	if _, ok := f.manager.getState(7); ok {
		t.Fatal("state not cleared after save")
	}
	item, err := f.store.GetOwned(7, 1)
	if err != nil {
		t.Fatalf("saved strategy missing: %v", err)
	}
	if item.Name != "momentum" || item.Group != "@SolanaNewPumpfun" {
		t.Fatalf("saved strategy = %+v", item)
	}
	if item.Filters.Balance == nil || item.Filters.Balance.From != 1 || item.Filters.Balance.To != 5 {
		t.Fatalf("balance filter = %+v", item.Filters.Balance)
	}
	if item.OwnerID == nil || *item.OwnerID != 7 {
		t.Fatalf("owner = %v", item.OwnerID)
	}
}

func TestSaveRejectedBelowFilterMinimum(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.manager.HandlePrivateMessage(ctx, 7, 7, 1, "/new")
	f.manager.HandleCallback(ctx, 7, 7, 10, "cb1", "new_group:@SolanaNewPumpfun")
	f.manager.HandleCallback(ctx, 7, 7, 10, "cb2", "edit:balance")
	f.manager.HandlePrivateMessage(ctx, 7, 7, 2, "1,5")

	f.manager.HandleCallback(ctx, 7, 7, 10, "cb3", "save")

	answer := f.sender.answers[len(f.sender.answers)-1]
	if !strings.Contains(answer, "at least 3 filter options") {
		t.Fatalf("save answer = %q", answer)
	}
	if _, ok := f.manager.getState(7); !ok {
		t.Fatal("builder state discarded on rejected save")
	}
	if _, err := f.store.GetOwned(7, 1); err == nil {
		t.Fatal("rejected draft was persisted")
	}
}

func TestInvalidRangeRePromptsWithoutMutating(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.manager.HandlePrivateMessage(ctx, 7, 7, 1, "/new")
	f.manager.HandleCallback(ctx, 7, 7, 10, "cb1", "new_group:@SolanaNewPumpfun")
	f.manager.HandleCallback(ctx, 7, 7, 10, "cb2", "edit:balance")

	f.manager.HandlePrivateMessage(ctx, 7, 7, 2, "garbage")

	st, ok := f.manager.getState(7)
	if !ok {
		t.Fatal("state lost")
	}
	if st.step != StepEditBalance {
		t.Fatalf("step advanced to %v on invalid input", st.step)
	}
	if st.draft.Filters.Balance != nil {
		t.Fatal("draft mutated by invalid input")
	}
	if got := f.sender.lastEdit(t).text; !strings.Contains(got, "Invalid format") {
		t.Fatalf("re-prompt = %q", got)
	}
}

func TestVenueDraftSkipsFilterGate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.manager.HandlePrivateMessage(ctx, 7, 7, 1, "/new")
	f.manager.HandleCallback(ctx, 7, 7, 10, "cb1", "new_group:"+testVenue)
	f.manager.HandleCallback(ctx, 7, 7, 10, "cb2", "set:amount:0.5")
	f.manager.HandleCallback(ctx, 7, 7, 10, "cb3", "set:expiry:30m")

	f.manager.HandleCallback(ctx, 7, 7, 10, "cb4", "save")

	if got := f.sender.lastEdit(t).text; got != "Saved ✅" {
		t.Fatalf("venue save result = %q", got)
	}
	item, err := f.store.GetOwned(7, 1)
	if err != nil {
		t.Fatalf("venue strategy missing: %v", err)
	}
	if item.Trojan == nil || item.Trojan.Amount == nil || *item.Trojan.Amount != 0.5 {
		t.Fatalf("trojan amount = %+v", item.Trojan)
	}
	if item.Trojan.ExpiryMinutes == nil || *item.Trojan.ExpiryMinutes != 30 {
		t.Fatalf("trojan expiry = %+v", item.Trojan)
	}
}

func TestEditFlowUpdatesExisting(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	seedStrategy(t, f.store, 7, "alpha")

	f.manager.HandleCallback(ctx, 7, 7, 10, "cb1", "edit_strategy:1")
	f.manager.HandleCallback(ctx, 7, 7, 10, "cb2", "edit:name")
	f.manager.HandlePrivateMessage(ctx, 7, 7, 2, "alpha-2")
	f.manager.HandleCallback(ctx, 7, 7, 10, "cb3", "save")

	if got := f.sender.lastEdit(t).text; got != "Updated ✅" {
		t.Fatalf("edit save result = %q", got)
	}
	item, _ := f.store.GetOwned(7, 1)
	if item.Name != "alpha-2" {
		t.Fatalf("name = %q after edit", item.Name)
	}
}

func TestConfirmDelete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	seedStrategy(t, f.store, 7, "alpha")

	f.manager.HandleCallback(ctx, 7, 7, 10, "cb1", "delete:1")
	if got := f.sender.lastEdit(t).text; !strings.Contains(got, "Delete strategy #1 'alpha'?") {
		t.Fatalf("confirm prompt = %q", got)
	}
	// Still present until confirmed.
	if _, err := f.store.GetOwned(7, 1); err != nil {
		t.Fatal("strategy deleted before confirmation")
	}

	f.manager.HandleCallback(ctx, 7, 7, 10, "cb2", "confirm_delete:1")
	if _, err := f.store.GetOwned(7, 1); err == nil {
		t.Fatal("strategy survived confirmed delete")
	}
}

func TestLimitFlowFromMatchContext(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	seedStrategy(t, f.store, 7, "alpha")

	cid := f.registry.Put(dispatch.MatchContext{
		Token:        "7dHbWXmci3dT8UFYWYZweBLXgycu7Y3iL6trKn1Y7ARj",
		StrategyName: "alpha",
	})

	f.manager.HandleCallback(ctx, 7, 7, 10, "cb1", "limit:"+cid)
	if got := f.sender.lastEdit(t).text; !strings.Contains(got, "Amount (SOL) for 7dHbW") {
		t.Fatalf("amount prompt = %q", got)
	}

	f.manager.HandlePrivateMessage(ctx, 7, 7, 2, "1")
	f.manager.HandlePrivateMessage(ctx, 7, 7, 3, "30m")
	f.manager.HandlePrivateMessage(ctx, 7, 7, 4, "2.5")
	f.manager.HandlePrivateMessage(ctx, 7, 7, 5, "0.5")

	if len(f.orders.orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(f.orders.orders))
	}
	got := f.orders.orders[0]
	want := limitOrder{token: "7dHbWXmci3dT8UFYWYZweBLXgycu7Y3iL6trKn1Y7ARj", amount: 1, expiry: 30, slippage: 2.5, trigger: 0.5}
	if got != want {
		t.Fatalf("order = %+v, want %+v", got, want)
	}
	if f.sender.lastSent(t).text != "LIMIT sent ✅" {
		t.Fatalf("confirmation = %q", f.sender.lastSent(t).text)
	}
	if _, ok := f.manager.getState(7); ok {
		t.Fatal("state not cleared after dispatch")
	}
}

func TestLimitFlowExpiredContext(t *testing.T) {
	f := newFixture(t, nil)
	f.manager.HandleCallback(context.Background(), 7, 7, 10, "cb1", "limit:deadbeef")
	if got := f.sender.answers[len(f.sender.answers)-1]; got != "Context expired" {
		t.Fatalf("answer = %q", got)
	}
	if _, ok := f.manager.getState(7); ok {
		t.Fatal("state created for expired context")
	}
}

func TestAdHocLimitFlow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.manager.HandleCallback(ctx, 7, 7, 10, "cb1", "limit_menu")
	f.manager.HandlePrivateMessage(ctx, 7, 7, 2, "SomeTokenAddr111111111111111111111111111")
	f.manager.HandlePrivateMessage(ctx, 7, 7, 3, "bad-amount")
	f.manager.HandlePrivateMessage(ctx, 7, 7, 4, "2")
	f.manager.HandlePrivateMessage(ctx, 7, 7, 5, "1h")
	f.manager.HandlePrivateMessage(ctx, 7, 7, 6, "1")
	f.manager.HandlePrivateMessage(ctx, 7, 7, 7, "0.1")

	if len(f.orders.orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(f.orders.orders))
	}
	got := f.orders.orders[0]
	if got.amount != 2 || got.expiry != 60 || got.slippage != 1 || got.trigger != 0.1 {
		t.Fatalf("order = %+v", got)
	}
}

func TestQuickActionFlow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	seedStrategy(t, f.store, 7, "alpha")

	f.manager.HandleCallback(ctx, 7, 7, 10, "cb1", "act:1")
	f.manager.HandlePrivateMessage(ctx, 7, 7, 2, "mychannel")
	f.manager.HandlePrivateMessage(ctx, 7, 7, 3, "buy {token} via {name}")

	item, _ := f.store.GetOwned(7, 1)
	if item.Action == nil || item.Action.Target != "@mychannel" {
		t.Fatalf("action = %+v", item.Action)
	}
	if item.Action.Template != "buy {token} via {name}" {
		t.Fatalf("template = %q", item.Action.Template)
	}

	var actionSend *sentMessage
	for i := range f.sender.sent {
		if f.sender.sent[i].destination == "@mychannel" {
			actionSend = &f.sender.sent[i]
		}
	}
	if actionSend == nil {
		t.Fatal("no message sent to action target")
	}
	if actionSend.text != "buy  via alpha" {
		t.Fatalf("rendered action = %q", actionSend.text)
	}
}

func TestQuickActionUsesLastMatchedToken(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	seedStrategy(t, f.store, 7, "alpha")
	f.registry.Put(dispatch.MatchContext{
		Token:        "7dHbWXmci3dT8UFYWYZweBLXgycu7Y3iL6trKn1Y7ARj",
		StrategyName: "alpha",
	})

	f.manager.HandleCallback(ctx, 7, 7, 10, "cb1", "act:1")
	f.manager.HandlePrivateMessage(ctx, 7, 7, 2, "mychannel")
	f.manager.HandlePrivateMessage(ctx, 7, 7, 3, "buy {token}")

	var actionSend *sentMessage
	for i := range f.sender.sent {
		if f.sender.sent[i].destination == "@mychannel" {
			actionSend = &f.sender.sent[i]
		}
	}
	if actionSend == nil {
		t.Fatal("no message sent to action target")
	}
	if actionSend.text != "buy 7dHbWXmci3dT8UFYWYZweBLXgycu7Y3iL6trKn1Y7ARj" {
		t.Fatalf("rendered action = %q", actionSend.text)
	}
}

func TestStrategiesPagePaging(t *testing.T) {
	f := newFixture(t, nil)
	for i := 0; i < 8; i++ {
		seedStrategy(t, f.store, 7, "s"+strings.Repeat("x", i+1))
	}

	text, rows := f.manager.strategiesPage(7, 1)
	if !strings.Contains(text, "Page 1") {
		t.Fatalf("page text = %q", text)
	}
	// 6 items + nav + controls + footer.
	if len(rows) != 9 {
		t.Fatalf("page 1 rows = %d, want 9", len(rows))
	}
	nav := rows[6]
	if len(nav) != 1 || nav[0].Data != "page:2" {
		t.Fatalf("nav row = %+v", nav)
	}

	_, rows = f.manager.strategiesPage(7, 2)
	// 2 items + nav + controls + footer.
	if len(rows) != 5 {
		t.Fatalf("page 2 rows = %d, want 5", len(rows))
	}
}

func TestReloadCallbackReportsLoadFailure(t *testing.T) {
	f := newFixture(t, nil)
	seedStrategy(t, f.store, 7, "alpha")

	f.manager.HandleCallback(context.Background(), 7, 7, 10, "cb1", "reload")
	if got := f.sender.answers[len(f.sender.answers)-1]; got != "Reloaded" {
		t.Fatalf("answer = %q, want Reloaded", got)
	}

	if err := os.WriteFile(f.path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt strategy file: %v", err)
	}
	f.manager.HandleCallback(context.Background(), 7, 7, 10, "cb2", "reload")
	if got := f.sender.answers[len(f.sender.answers)-1]; got != "Reload failed" {
		t.Fatalf("answer = %q, want Reload failed", got)
	}
}

func TestCallbackUnauthorized(t *testing.T) {
	f := newFixture(t, []int64{100})
	f.manager.HandleCallback(context.Background(), 200, 200, 10, "cb1", "dash")
	if got := f.sender.answers[len(f.sender.answers)-1]; got != "Not allowed" {
		t.Fatalf("answer = %q", got)
	}
	if len(f.sender.edited) != 0 {
		t.Fatal("unauthorized callback edited the message")
	}
}
