package telegram

import (
	"strings"
	"testing"

	"confighub/database/model"
	"confighub/internal/service"
)

func TestConfigPost(t *testing.T) {
	rec := &model.ConfigRecord{
		Fingerprint: "fp-1",
		Protocol:    model.VLESS,
		Link:        "vless://fp-1@1.2.3.4:443?type=ws#NONEcore",
		Server:      "1.2.3.4",
		Location:    "🇩🇪 Germany",
		Ping:        "42ms",
		Quality:     model.QualityGreen,
	}

	post := ConfigPost(rec, "@nonecorebot")
	for _, want := range []string{
		"VLESS",
		"🇩🇪 Germany",
		"🟢 پینگ: 42ms",
		"<code>vless://fp-1@1.2.3.4:443?type=ws#NONEcore</code>",
		"#VLESS #Germany",
		"@nonecorebot",
	} {
		if !strings.Contains(post, want) {
			t.Fatalf("post missing %q:\n%s", want, post)
		}
	}
}

func TestConfigPostMultiWordLocationTag(t *testing.T) {
	rec := &model.ConfigRecord{
		Protocol: model.VLESS,
		Link:     "vless://fp-2@1.2.3.4:443#x",
		Server:   "1.2.3.4",
		Location: "🇭🇰 Hong Kong",
		Ping:     "80ms",
		Quality:  model.QualityYellow,
	}

	post := ConfigPost(rec, "@nonecorebot")
	if !strings.Contains(post, "#HongKong") {
		t.Fatalf("expected the full country name in the tag:\n%s", post)
	}
}

func TestConfigPostHidesUnknownServer(t *testing.T) {
	rec := &model.ConfigRecord{
		Protocol: model.VMess,
		Link:     "vmess://abc",
		Server:   "unknown",
		Location: "Unknown",
		Ping:     "---",
		Quality:  model.QualityUnknown,
	}

	post := ConfigPost(rec, "@nonecorebot")
	if strings.Contains(post, "سرور") {
		t.Fatalf("unknown server must not be rendered:\n%s", post)
	}
	if !strings.Contains(post, "⚪️ پینگ: ---") {
		t.Fatalf("expected unknown ping line:\n%s", post)
	}
	if strings.Contains(post, "#Unknown") {
		t.Fatalf("unknown location must not become a hashtag:\n%s", post)
	}
	if !strings.Contains(post, "#VMESS") {
		t.Fatalf("expected protocol hashtag:\n%s", post)
	}
}

func TestConfigPostEscapesHTML(t *testing.T) {
	rec := &model.ConfigRecord{
		Protocol: model.VLESS,
		Link:     `vless://a@1.2.3.4:443#<b>`,
		Server:   "1.2.3.4",
		Quality:  model.QualityGreen,
	}

	post := ConfigPost(rec, "@nonecorebot")
	if strings.Contains(post, "#<b>") {
		t.Fatalf("link must be HTML-escaped:\n%s", post)
	}
	if !strings.Contains(post, "&lt;b&gt;") {
		t.Fatalf("expected escaped fragment:\n%s", post)
	}
}

func TestDailyStatsHistogramOrder(t *testing.T) {
	stat := &model.DailyStat{Date: "2026-08-28", Count: 6, CopyCount: 2, BadReports: 1}
	histogram := map[string]int{"Germany": 3, "France": 2, "Iran": 1}

	text := DailyStats(stat, histogram)
	germanyAt := strings.Index(text, "Germany")
	franceAt := strings.Index(text, "France")
	iranAt := strings.Index(text, "Iran")
	if germanyAt < 0 || franceAt < 0 || iranAt < 0 {
		t.Fatalf("missing buckets:\n%s", text)
	}
	if !(germanyAt < franceAt && franceAt < iranAt) {
		t.Fatalf("buckets must be ordered by count:\n%s", text)
	}
}

func TestQueueStatus(t *testing.T) {
	stopped := QueueStatus(12, 30, 200, true)
	if !strings.Contains(stopped, "⛔️") {
		t.Fatalf("expected stopped marker:\n%s", stopped)
	}
	active := QueueStatus(12, 30, 200, false)
	if !strings.Contains(active, "✅") || !strings.Contains(active, "30 از 200") {
		t.Fatalf("unexpected active status:\n%s", active)
	}
}

func TestAdminStats(t *testing.T) {
	overview := &service.AdminStats{
		Total:     10,
		Pending:   4,
		SentToday: 3,
		Today:     &model.DailyStat{CopyCount: 2, BadReports: 1},
	}
	text := AdminStats(overview, &service.HostStatus{CPUPercent: 12.5, MemUsed: 1 << 30, MemTotal: 2 << 30, Uptime: 7200})
	for _, want := range []string{"10", "4", "3", "12.5%", "2h"} {
		if !strings.Contains(text, want) {
			t.Fatalf("stats missing %q:\n%s", want, text)
		}
	}
}
