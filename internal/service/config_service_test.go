package service

import (
	"path/filepath"
	"testing"
	"time"

	"confighub/database"
	"confighub/database/model"

	"gorm.io/gorm"
)

func setupServiceTestDB(t *testing.T) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "confighub.db")
	if err := database.InitDB("sqlite", dbPath); err != nil {
		t.Fatalf("init test db: %v", err)
	}
	t.Cleanup(func() {
		if err := database.CloseDB(); err != nil {
			t.Errorf("close test db: %v", err)
		}
	})
}

func makeRecord(fingerprint string) *model.ConfigRecord {
	return &model.ConfigRecord{
		Fingerprint: fingerprint,
		Protocol:    model.VLESS,
		Link:        "vless://" + fingerprint + "@1.2.3.4:443#x",
		Server:      "1.2.3.4",
		Port:        443,
		Location:    "🇩🇪 Germany",
		Ping:        "42ms",
		Quality:     model.QualityGreen,
	}
}

func TestUpsertInsertAndMerge(t *testing.T) {
	setupServiceTestDB(t)
	configService := &ConfigService{}
	settingService := &SettingService{}

	inserted, err := configService.Upsert(makeRecord("fp-1"))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !inserted {
		t.Fatal("expected a fresh insert")
	}
	if got := settingService.GetTotalConfigs(); got != 1 {
		t.Fatalf("expected total_configs 1, got %d", got)
	}

	// Deliver it, then re-sight the same fingerprint with new metadata.
	if err := configService.MarkSent("fp-1", "@chan", 77, time.Now()); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	resight := makeRecord("fp-1")
	resight.Ping = "99ms"
	resight.Quality = model.QualityYellow
	inserted, err = configService.Upsert(resight)
	if err != nil {
		t.Fatalf("upsert resight: %v", err)
	}
	if inserted {
		t.Fatal("resight must not count as insert")
	}
	if got := settingService.GetTotalConfigs(); got != 1 {
		t.Fatalf("total_configs must not grow on merge, got %d", got)
	}

	rec, err := configService.GetByFingerprint("fp-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Ping != "99ms" || rec.Quality != model.QualityYellow {
		t.Fatalf("metadata not merged: %q %s", rec.Ping, rec.Quality)
	}
	if rec.MessageId == nil || *rec.MessageId != 77 || rec.ChannelId != "@chan" {
		t.Fatalf("delivery state must survive the merge: %+v", rec)
	}
}

func TestIngestCountsOnlyInserts(t *testing.T) {
	setupServiceTestDB(t)
	configService := &ConfigService{}

	insertedCount, err := configService.Ingest([]*model.ConfigRecord{
		makeRecord("fp-a"), makeRecord("fp-b"), makeRecord("fp-a"),
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if insertedCount != 2 {
		t.Fatalf("expected 2 inserts, got %d", insertedCount)
	}

	dup, err := configService.IsDuplicate("vless://fp-a@9.9.9.9:1#y")
	if err != nil {
		t.Fatalf("is duplicate: %v", err)
	}
	if !dup {
		t.Fatal("fp-a must be a duplicate")
	}
}

func TestListPendingOrderAndLimit(t *testing.T) {
	setupServiceTestDB(t)
	configService := &ConfigService{}

	base := time.Now().Add(-time.Hour)
	for i, fp := range []string{"fp-1", "fp-2", "fp-3"} {
		rec := makeRecord(fp)
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := configService.Upsert(rec); err != nil {
			t.Fatalf("upsert %s: %v", fp, err)
		}
	}
	if err := configService.MarkSent("fp-2", "@chan", 1, time.Now()); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	pending, err := configService.ListPending(0)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 || pending[0].Fingerprint != "fp-1" || pending[1].Fingerprint != "fp-3" {
		t.Fatalf("unexpected pending set: %+v", pending)
	}

	limited, err := configService.ListPending(1)
	if err != nil {
		t.Fatalf("list pending limited: %v", err)
	}
	if len(limited) != 1 || limited[0].Fingerprint != "fp-1" {
		t.Fatalf("limit must keep creation order, got %+v", limited)
	}
}

func TestUpsertRecoversCorruptTotalCounter(t *testing.T) {
	setupServiceTestDB(t)
	configService := &ConfigService{}
	settingService := &SettingService{}

	if err := settingService.SetString("total_configs", "garbage"); err != nil {
		t.Fatalf("corrupt counter: %v", err)
	}
	inserted, err := configService.Upsert(makeRecord("fp-1"))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !inserted {
		t.Fatal("expected a fresh insert")
	}
	if got := settingService.GetTotalConfigs(); got != 1 {
		t.Fatalf("counter must restart from the corrupt value, got %d", got)
	}
}

func TestIncrementBadReportAndCopyCount(t *testing.T) {
	setupServiceTestDB(t)
	configService := &ConfigService{}

	if _, err := configService.Upsert(makeRecord("fp-1")); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if count, err := configService.IncrementBadReport("fp-1"); err != nil || count != 1 {
		t.Fatalf("first report: count=%d err=%v", count, err)
	}
	if count, err := configService.IncrementBadReport("fp-1"); err != nil || count != 2 {
		t.Fatalf("second report: count=%d err=%v", count, err)
	}

	if err := configService.IncrementCopyCount("fp-1"); err != nil {
		t.Fatalf("copy count: %v", err)
	}
	rec, err := configService.GetByFingerprint("fp-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.CopyCount != 1 {
		t.Fatalf("expected copy count 1, got %d", rec.CopyCount)
	}
}

func TestCleanupOlderThan(t *testing.T) {
	setupServiceTestDB(t)
	configService := &ConfigService{}

	old := makeRecord("fp-old")
	old.CreatedAt = time.Now().AddDate(0, 0, -40)
	if _, err := configService.Upsert(old); err != nil {
		t.Fatalf("upsert old: %v", err)
	}
	if _, err := configService.Upsert(makeRecord("fp-new")); err != nil {
		t.Fatalf("upsert new: %v", err)
	}

	removed, err := configService.CleanupOlderThan(30)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := configService.GetByFingerprint("fp-old"); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected fp-old gone, got %v", err)
	}
	if _, err := configService.GetByFingerprint("fp-new"); err != nil {
		t.Fatalf("fp-new must survive: %v", err)
	}
}

func TestCollapseDuplicatesOnCleanTable(t *testing.T) {
	setupServiceTestDB(t)
	configService := &ConfigService{}

	for _, fp := range []string{"fp-1", "fp-2"} {
		if _, err := configService.Upsert(makeRecord(fp)); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	// The unique index keeps live data collision free; the sweep only
	// matters for rows imported before the index existed.
	removed, err := configService.CollapseDuplicates()
	if err != nil {
		t.Fatalf("collapse: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected nothing to collapse, got %d", removed)
	}
}
