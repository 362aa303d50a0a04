package dispatch

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"confighub/database"
	"confighub/database/model"
	"confighub/internal/service"
	"confighub/util/common"
)

type delivery struct {
	channelId   string
	fingerprint string
}

type fakeCourier struct {
	deliveries []delivery
	retracted  []delivery
	failing    map[string]bool
	nextId     int
}

func (f *fakeCourier) Deliver(channelId string, rec *model.ConfigRecord) (int, error) {
	if f.failing[rec.Fingerprint] {
		return 0, common.NewError("send failed")
	}
	f.nextId++
	f.deliveries = append(f.deliveries, delivery{channelId, rec.Fingerprint})
	return f.nextId, nil
}

func (f *fakeCourier) Retract(channelId string, messageId int) error {
	f.retracted = append(f.retracted, delivery{channelId, fmt.Sprint(messageId)})
	return nil
}

type fixture struct {
	dispatcher *Dispatcher
	courier    *fakeCourier
	sleeps     []time.Duration
}

func setupDispatchTest(t *testing.T, channels ...string) *fixture {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "confighub.db")
	if err := database.InitDB("sqlite", dbPath); err != nil {
		t.Fatalf("init test db: %v", err)
	}
	t.Cleanup(func() { database.CloseDB() })

	courier := &fakeCourier{failing: map[string]bool{}}
	f := &fixture{courier: courier}
	f.dispatcher = NewDispatcher(
		&service.ConfigService{},
		&service.SettingService{},
		&service.StatService{},
		&service.ChannelService{},
		courier,
	)
	f.dispatcher.sleep = func(d time.Duration) { f.sleeps = append(f.sleeps, d) }
	f.dispatcher.shuffle = func(n int, swap func(i, j int)) {}

	for _, channelId := range channels {
		if err := f.dispatcher.ChannelService.Add(channelId, channelId); err != nil {
			t.Fatalf("add channel: %v", err)
		}
	}
	return f
}

func (f *fixture) seedPending(t *testing.T, n int) {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < n; i++ {
		fp := fmt.Sprintf("fp-%03d", i)
		rec := &model.ConfigRecord{
			Fingerprint: fp,
			Protocol:    model.VLESS,
			Link:        "vless://" + fp + "@1.2.3.4:443#x",
			Location:    "🇩🇪 Germany",
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}
		if _, err := f.dispatcher.ConfigService.Upsert(rec); err != nil {
			t.Fatalf("seed %s: %v", fp, err)
		}
	}
}

func (f *fixture) set(t *testing.T, key string, value string) {
	t.Helper()
	if err := f.dispatcher.SettingService.SetString(key, value); err != nil {
		t.Fatalf("set %s: %v", key, err)
	}
}

func TestDrainStopsAtDailyLimit(t *testing.T) {
	f := setupDispatchTest(t, "@chan")
	f.seedPending(t, 210)

	result, err := f.dispatcher.Drain("test", 0)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if result.Reason != ReasonLimit {
		t.Fatalf("expected limit reason, got %s", result.Reason)
	}
	if result.Delivered != 200 || result.Remaining != 10 {
		t.Fatalf("expected 200 delivered / 10 remaining, got %+v", result)
	}

	pending, err := f.dispatcher.ConfigService.CountPending()
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if pending != 10 {
		t.Fatalf("expected 10 pending rows, got %d", pending)
	}
}

func TestDrainLimitCountsPriorDeliveries(t *testing.T) {
	f := setupDispatchTest(t, "@chan")
	f.set(t, "daily_limit", "5")
	f.seedPending(t, 10)

	// Three already delivered today leave room for two more.
	now := time.Now()
	for _, fp := range []string{"fp-000", "fp-001", "fp-002"} {
		if err := f.dispatcher.ConfigService.MarkSent(fp, "@chan", 1, now); err != nil {
			t.Fatalf("mark sent: %v", err)
		}
		if err := f.dispatcher.StatService.IncrementDaily("🇩🇪 Germany", now); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	result, err := f.dispatcher.Drain("test", 0)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if result.Delivered != 2 || result.Reason != ReasonLimit {
		t.Fatalf("expected 2 delivered then limit, got %+v", result)
	}
}

func TestDrainLimitHoldsAfterRetraction(t *testing.T) {
	f := setupDispatchTest(t, "@chan")
	f.set(t, "daily_limit", "2")
	f.seedPending(t, 3)

	result, err := f.dispatcher.Drain("test", 0)
	if err != nil {
		t.Fatalf("first drain: %v", err)
	}
	if result.Delivered != 2 || result.Reason != ReasonLimit {
		t.Fatalf("unexpected first run: %+v", result)
	}

	// Retract one of the delivered configs: the row disappears but the
	// day's quota must not reopen.
	if err := f.dispatcher.ConfigService.Delete("fp-000"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	result, err = f.dispatcher.Drain("test", 0)
	if err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if result.Delivered != 0 || result.Reason != ReasonLimit {
		t.Fatalf("retraction must not free quota, got %+v", result)
	}
	if len(f.courier.deliveries) != 2 {
		t.Fatalf("expected 2 deliveries total today, got %d", len(f.courier.deliveries))
	}
}

func TestDrainRespectsKillSwitch(t *testing.T) {
	f := setupDispatchTest(t, "@chan")
	f.seedPending(t, 4)
	f.set(t, "stop_sending", "true")

	result, err := f.dispatcher.Drain("test", 0)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if result.Reason != ReasonStopped || result.Delivered != 0 || result.Remaining != 4 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(f.courier.deliveries) != 0 {
		t.Fatal("nothing must be delivered while stopped")
	}
}

func TestDrainFailureLeavesRecordPending(t *testing.T) {
	f := setupDispatchTest(t, "@chan")
	f.seedPending(t, 3)
	f.courier.failing["fp-001"] = true

	result, err := f.dispatcher.Drain("test", 0)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if result.Delivered != 2 || result.Failed != 1 || result.Reason != ReasonCompleted {
		t.Fatalf("unexpected result: %+v", result)
	}

	rec, err := f.dispatcher.ConfigService.GetByFingerprint("fp-001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !rec.Pending() {
		t.Fatal("failed record must stay pending")
	}
}

func TestDrainFansOutAndRecordsFirstSuccess(t *testing.T) {
	f := setupDispatchTest(t, "@first", "@second")
	f.seedPending(t, 1)

	result, err := f.dispatcher.Drain("test", 0)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if result.Delivered != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(f.courier.deliveries) != 2 {
		t.Fatalf("expected fan-out to both channels, got %+v", f.courier.deliveries)
	}

	rec, err := f.dispatcher.ConfigService.GetByFingerprint("fp-000")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.ChannelId != "@first" || rec.MessageId == nil {
		t.Fatalf("first success must be recorded: %+v", rec)
	}
}

func TestDrainPacing(t *testing.T) {
	f := setupDispatchTest(t, "@chan")
	f.set(t, "batch_size", "2")
	f.set(t, "interval", "120")
	f.set(t, "delay", "3")
	f.seedPending(t, 5)

	result, err := f.dispatcher.Drain("test", 0)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if result.Delivered != 5 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// Batches [2,2,1]: an interval before the 2nd and 3rd batch, a delay
	// inside each full batch.
	var intervals, delays int
	for _, slept := range f.sleeps {
		switch slept {
		case 120 * time.Second:
			intervals++
		case 3 * time.Second:
			delays++
		default:
			t.Fatalf("unexpected sleep %v", slept)
		}
	}
	if intervals != 2 || delays != 2 {
		t.Fatalf("expected 2 intervals and 2 delays, got %d/%d", intervals, delays)
	}
}

func TestDrainFetchLimitCapsRun(t *testing.T) {
	f := setupDispatchTest(t, "@chan")
	f.seedPending(t, 5)

	result, err := f.dispatcher.Drain("test", 2)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if result.Delivered != 2 || result.Remaining != 0 || result.Reason != ReasonCompleted {
		t.Fatalf("unexpected result: %+v", result)
	}

	pending, err := f.dispatcher.ConfigService.CountPending()
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if pending != 3 {
		t.Fatalf("expected 3 still pending, got %d", pending)
	}
}

func TestDrainSingleFlight(t *testing.T) {
	f := setupDispatchTest(t, "@chan")
	f.dispatcher.running.Store(true)

	if _, err := f.dispatcher.Drain("test", 0); err != ErrDrainActive {
		t.Fatalf("expected ErrDrainActive, got %v", err)
	}
}

func TestDrainNoChannels(t *testing.T) {
	f := setupDispatchTest(t)
	f.seedPending(t, 1)

	if _, err := f.dispatcher.Drain("test", 0); err != ErrNoChannels {
		t.Fatalf("expected ErrNoChannels, got %v", err)
	}
}

func TestDrainDailyStats(t *testing.T) {
	f := setupDispatchTest(t, "@chan")
	f.seedPending(t, 3)

	if _, err := f.dispatcher.Drain("test", 0); err != nil {
		t.Fatalf("drain: %v", err)
	}

	stat, histogram, err := f.dispatcher.StatService.GetDaily(time.Now())
	if err != nil {
		t.Fatalf("get daily: %v", err)
	}
	if stat.Count != 3 || histogram["Germany"] != 3 {
		t.Fatalf("unexpected stats: count=%d histogram=%v", stat.Count, histogram)
	}
}
