// Package telegram renders and delivers channel posts and runs the admin
// bot.
package telegram

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"confighub/database/model"
	"confighub/internal/service"
)

// ConfigPost renders the HTML caption of a config post. The link sits in a
// <code> block so readers can tap-to-copy it.
func ConfigPost(rec *model.ConfigRecord, brandChannel string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "⚡️ کانفیگ %s\n\n", rec.Protocol)
	fmt.Fprintf(&b, "📍 لوکیشن: %s\n", rec.Location)
	fmt.Fprintf(&b, "%s پینگ: %s\n", rec.Quality.Glyph(), rec.Ping)
	if rec.Server != "" && rec.Server != "unknown" {
		fmt.Fprintf(&b, "🖥 سرور: %s\n", html.EscapeString(rec.Server))
	}
	fmt.Fprintf(&b, "\n<code>%s</code>\n", html.EscapeString(rec.Link))

	tags := "#" + string(rec.Protocol)
	if tag := hashtag(rec.Location); tag != "" {
		tags += " #" + tag
	}
	fmt.Fprintf(&b, "\n%s\n%s", tags, brandChannel)

	return b.String()
}

// hashtag reduces a location label to a tag-safe token: the flag glyph
// dropped, the name fields concatenated ("🇭🇰 Hong Kong" → "HongKong"),
// empty for unknown locations.
func hashtag(label string) string {
	fields := strings.Fields(label)
	if len(fields) > 1 {
		r, _ := utf8.DecodeRuneInString(fields[0])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			fields = fields[1:]
		}
	}
	if len(fields) == 0 || (len(fields) == 1 && fields[0] == "Unknown") {
		return ""
	}
	var b strings.Builder
	for _, field := range fields {
		for _, r := range field {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// ClientsPost lists the recommended client apps, appended to posts when
// the send_clients setting is on.
func ClientsPost() string {
	return strings.Join([]string{
		"📱 برنامه‌های پیشنهادی:",
		"• اندروید: v2rayNG , NekoBox",
		"• آیفون: Streisand , V2Box",
		"• ویندوز: v2rayN , Nekoray",
	}, "\n")
}

// DailyStats renders the daily broadcast message.
func DailyStats(stat *model.DailyStat, histogram map[string]int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 آمار روزانه (%s)\n\n", stat.Date)
	fmt.Fprintf(&b, "📤 کانفیگ ارسال شده: %d\n", stat.Count)
	fmt.Fprintf(&b, "📋 کپی شده: %d\n", stat.CopyCount)
	fmt.Fprintf(&b, "⚠️ گزارش خرابی: %d\n", stat.BadReports)

	if len(histogram) > 0 {
		b.WriteString("\n🌍 لوکیشن‌ها:\n")
		for _, entry := range sortedHistogram(histogram) {
			fmt.Fprintf(&b, "• %s: %d\n", entry.name, entry.count)
		}
	}
	b.WriteString("\n#آمار_روزانه")

	return b.String()
}

// AdminStats renders the /stats overview for the admin.
func AdminStats(overview *service.AdminStats, hostStatus *service.HostStatus) string {
	var b strings.Builder

	b.WriteString("📊 وضعیت سیستم\n\n")
	fmt.Fprintf(&b, "🗂 کل کانفیگ‌ها: %d\n", overview.Total)
	fmt.Fprintf(&b, "⏳ در صف ارسال: %d\n", overview.Pending)
	fmt.Fprintf(&b, "📤 ارسال امروز: %d\n", overview.SentToday)
	fmt.Fprintf(&b, "📋 کپی امروز: %d\n", overview.Today.CopyCount)
	fmt.Fprintf(&b, "⚠️ گزارش امروز: %d\n", overview.Today.BadReports)

	if hostStatus != nil {
		b.WriteString("\n🖥 سرور:\n")
		fmt.Fprintf(&b, "• CPU: %.1f%%\n", hostStatus.CPUPercent)
		if hostStatus.MemTotal > 0 {
			fmt.Fprintf(&b, "• RAM: %d/%d MB\n",
				hostStatus.MemUsed/1024/1024, hostStatus.MemTotal/1024/1024)
		}
		fmt.Fprintf(&b, "• آپتایم: %dh\n", hostStatus.Uptime/3600)
	}

	return b.String()
}

// Settings renders the current runtime settings.
func Settings(all map[string]string) string {
	var b strings.Builder

	b.WriteString("⚙️ تنظیمات\n\n")
	keys := make([]string, 0, len(all))
	for key := range all {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, "• %s: %s\n", key, all[key])
	}

	return b.String()
}

// QueueStatus renders the /send preflight summary.
func QueueStatus(pending int64, sentToday int64, dailyLimit int, stopped bool) string {
	var b strings.Builder

	b.WriteString("📬 وضعیت صف\n\n")
	fmt.Fprintf(&b, "⏳ در انتظار: %d\n", pending)
	fmt.Fprintf(&b, "📤 ارسال امروز: %d از %d\n", sentToday, dailyLimit)
	if stopped {
		b.WriteString("\n⛔️ ارسال متوقف است")
	} else {
		b.WriteString("\n✅ ارسال فعال است")
	}

	return b.String()
}

type histogramEntry struct {
	name  string
	count int
}

// sortedHistogram orders buckets by count descending, name ascending on
// ties, so the broadcast is stable.
func sortedHistogram(histogram map[string]int) []histogramEntry {
	entries := make([]histogramEntry, 0, len(histogram))
	for name, count := range histogram {
		entries = append(entries, histogramEntry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	return entries
}
