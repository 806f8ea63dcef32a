package alert

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anuragv/floodwatch/internal/model"
	"github.com/anuragv/floodwatch/internal/storage"
)

// fakeSender records attempts and answers from a script, defaulting to
// success once the script is exhausted.
type fakeSender struct {
	calls   []string
	script  []bool
	panicOn string
}

func (f *fakeSender) Send(_ context.Context, address, _ string) bool {
	if address == f.panicOn {
		panic("sender blew up")
	}
	f.calls = append(f.calls, address)
	if len(f.script) > 0 {
		ok := f.script[0]
		f.script = f.script[1:]
		return ok
	}
	return true
}

func setupNotifier(t *testing.T, clock clockwork.Clock, sender *fakeSender) (*Notifier, storage.Store) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Init(context.Background()))
	return NewNotifier(logger, clock, store, sender, DefaultCooldown), store
}

func register(t *testing.T, store storage.Store, phone, name string) *model.Recipient {
	t.Helper()
	ctx := context.Background()
	_, err := store.RegisterRecipient(ctx, phone, name, "Clement Town", 30.27, 78.0)
	require.NoError(t, err)
	recipients, err := store.ListActive(ctx)
	require.NoError(t, err)
	return &recipients[len(recipients)-1]
}

func TestNotify_FirstAlertAlwaysAttempted(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sender := &fakeSender{}
	notifier, store := setupNotifier(t, clock, sender)
	recipient := register(t, store, "+911111111111", "Asha Rawat")

	outcome, err := notifier.Notify(context.Background(), recipient, model.RiskHigh)
	require.NoError(t, err)
	require.Equal(t, OutcomeSent, outcome)
	require.Len(t, sender.calls, 1)

	recipients, err := store.ListActive(context.Background())
	require.NoError(t, err)
	require.NotNil(t, recipients[0].LastAlertAt)
}

func TestNotify_CooldownWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sender := &fakeSender{}
	notifier, store := setupNotifier(t, clock, sender)
	recipient := register(t, store, "+911111111111", "Asha Rawat")

	outcome, err := notifier.Notify(context.Background(), recipient, model.RiskSevere)
	require.NoError(t, err)
	require.Equal(t, OutcomeSent, outcome)

	// 59 minutes later: still inside the window.
	clock.Advance(59 * time.Minute)
	recipients, _ := store.ListActive(context.Background())
	outcome, err = notifier.Notify(context.Background(), &recipients[0], model.RiskSevere)
	require.NoError(t, err)
	require.Equal(t, OutcomeSuppressed, outcome)
	require.Len(t, sender.calls, 1)

	// 61 minutes after the first send: window elapsed.
	clock.Advance(2 * time.Minute)
	recipients, _ = store.ListActive(context.Background())
	outcome, err = notifier.Notify(context.Background(), &recipients[0], model.RiskSevere)
	require.NoError(t, err)
	require.Equal(t, OutcomeSent, outcome)
	require.Len(t, sender.calls, 2)
}

func TestNotify_LowRiskSuppressedEvenWithoutHistory(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sender := &fakeSender{}
	notifier, store := setupNotifier(t, clock, sender)
	recipient := register(t, store, "+911111111111", "Asha Rawat")

	for _, level := range []model.RiskLevel{model.RiskLow, model.RiskMild} {
		outcome, err := notifier.Notify(context.Background(), recipient, level)
		require.NoError(t, err)
		require.Equal(t, OutcomeSuppressed, outcome)
	}
	require.Empty(t, sender.calls)
}

func TestNotify_FailedSendKeepsCooldownOpen(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sender := &fakeSender{script: []bool{false, true}}
	notifier, store := setupNotifier(t, clock, sender)
	recipient := register(t, store, "+911111111111", "Asha Rawat")
	ctx := context.Background()

	outcome, err := notifier.Notify(ctx, recipient, model.RiskHigh)
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, outcome)

	// The failure is on the record but does not start a cool-down.
	records, err := store.AlertsFor(ctx, recipient.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, model.DeliveryFailed, records[0].Status)

	recipients, _ := store.ListActive(ctx)
	require.Nil(t, recipients[0].LastAlertAt)

	// The very next attempt goes through without waiting.
	outcome, err = notifier.Notify(ctx, &recipients[0], model.RiskHigh)
	require.NoError(t, err)
	require.Equal(t, OutcomeSent, outcome)
}

func TestNotifyAll_ShortCircuitBelowHigh(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sender := &fakeSender{}
	notifier, store := setupNotifier(t, clock, sender)
	register(t, store, "+911111111111", "Asha Rawat")

	summary, err := notifier.NotifyAll(context.Background(), model.RiskMild, 0.5)
	require.NoError(t, err)
	require.Zero(t, summary.Total)
	require.Zero(t, summary.Sent)
	require.Zero(t, summary.Failed)
	require.Empty(t, sender.calls)
}

func TestNotifyAll_IsolatesRecipientFailures(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sender := &fakeSender{panicOn: "+912222222222"}
	notifier, store := setupNotifier(t, clock, sender)
	register(t, store, "+911111111111", "First Person")
	register(t, store, "+912222222222", "Broken Person")
	register(t, store, "+913333333333", "Third Person")

	summary, err := notifier.NotifyAll(context.Background(), model.RiskSevere, 0.82)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Total)
	require.Equal(t, 2, summary.Sent)
	require.Equal(t, 1, summary.Failed)
	require.ElementsMatch(t, []string{"+911111111111", "+913333333333"}, sender.calls)
}

func TestNotifyAll_SevereEndToEnd(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sender := &fakeSender{}
	notifier, store := setupNotifier(t, clock, sender)
	recipient := register(t, store, "+911111111111", "Asha Rawat")
	ctx := context.Background()

	level := model.ClassifyRisk(0.82)
	require.Equal(t, model.RiskSevere, level)

	summary, err := notifier.NotifyAll(ctx, level, 0.82)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Sent)

	records, err := store.AlertsFor(ctx, recipient.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, model.DeliverySent, records[0].Status)
	require.Equal(t, model.RiskSevere, records[0].RiskLevel)

	recipients, _ := store.ListActive(ctx)
	require.NotNil(t, recipients[0].LastAlertAt)
	require.True(t, recipients[0].LastAlertAt.Equal(clock.Now()))
}
