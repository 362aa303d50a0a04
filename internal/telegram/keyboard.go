package telegram

import (
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Callback data prefixes. The fingerprint rides after the prefix.
const (
	cbCopy          = "copy_"
	cbReport        = "report_"
	cbConfirmReport = "confirm_report_"
	cbCancelReport  = "cancel_report_"
)

// Admin menu callbacks. Toggles carry the setting key after the prefix.
const (
	cbMenuStats    = "admin_stats"
	cbMenuSettings = "admin_settings"
	cbMenuQueue    = "admin_queue"
	cbMenuChannels = "admin_channels"
	cbToggle       = "toggle_"
)

func mainMenuButtons() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📊 آمار").WithCallbackData(cbMenuStats),
			tu.InlineKeyboardButton("⚙️ تنظیمات").WithCallbackData(cbMenuSettings),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📬 صف ارسال").WithCallbackData(cbMenuQueue),
			tu.InlineKeyboardButton("📢 کانال‌ها").WithCallbackData(cbMenuChannels),
		),
	)
}

func toggleMark(on bool) string {
	if on {
		return "🟢"
	}
	return "🔴"
}

// settingsButtons renders one toggle row per boolean setting with its
// current state.
func settingsButtons(stopped bool, reminder bool, sendClients bool) *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(toggleMark(!stopped)+" ارسال").
				WithCallbackData(cbToggle+"stop_sending"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(toggleMark(reminder)+" یادآور آمار").
				WithCallbackData(cbToggle+"reminder_enabled"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(toggleMark(sendClients)+" معرفی برنامه‌ها").
				WithCallbackData(cbToggle+"send_clients"),
		),
	)
}

// configButtons is the keyboard attached to every channel post.
func configButtons(fingerprint string) *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📋 کپی کردم").WithCallbackData(cbCopy+fingerprint),
			tu.InlineKeyboardButton("⚠️ خرابه").WithCallbackData(cbReport+fingerprint),
		),
	)
}

// confirmReportButtons is the second step of a bad report.
func confirmReportButtons(fingerprint string) *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("✅ بله خرابه").WithCallbackData(cbConfirmReport+fingerprint),
			tu.InlineKeyboardButton("❌ انصراف").WithCallbackData(cbCancelReport+fingerprint),
		),
	)
}

func callbackPayload(data string, prefix string) string {
	return strings.TrimPrefix(data, prefix)
}
