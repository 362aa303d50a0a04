package telegram

import (
	"fmt"
	"strings"
	"time"

	"confighub/config"
	"confighub/internal/dispatch"
	"confighub/internal/extract"
	"confighub/internal/service"
	"confighub/logger"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Bot runs the Telegram side: admin commands over long polling and the
// feedback callbacks coming from channel posts.
type Bot struct {
	bot     *telego.Bot
	handler *th.BotHandler
	cfg     *config.Config

	configService  *service.ConfigService
	settingService *service.SettingService
	statService    *service.StatService
	channelService *service.ChannelService
	feedback       *service.FeedbackService
	serverStat     *service.ServerStatService
	dispatcher     *dispatch.Dispatcher
	extractor      *extract.Extractor
}

func NewBot(
	cfg *config.Config,
	bot *telego.Bot,
	configService *service.ConfigService,
	settingService *service.SettingService,
	statService *service.StatService,
	channelService *service.ChannelService,
	feedback *service.FeedbackService,
	serverStat *service.ServerStatService,
	dispatcher *dispatch.Dispatcher,
) *Bot {
	return &Bot{
		bot:            bot,
		cfg:            cfg,
		configService:  configService,
		settingService: settingService,
		statService:    statService,
		channelService: channelService,
		feedback:       feedback,
		serverStat:     serverStat,
		dispatcher:     dispatcher,
		extractor:      extract.NewExtractor(cfg.Remark()),
	}
}

// Start begins long polling and dispatches updates in the background.
func (b *Bot) Start() error {
	updates, err := b.bot.UpdatesViaLongPolling(&telego.GetUpdatesParams{Timeout: 30})
	if err != nil {
		return err
	}
	handler, err := th.NewBotHandler(b.bot, updates)
	if err != nil {
		return err
	}
	b.handler = handler
	b.register()

	go b.handler.Start()
	logger.Info("telegram bot started")
	return nil
}

func (b *Bot) Stop() {
	if b.handler != nil {
		b.bot.StopLongPolling()
		b.handler.Stop()
	}
}

func (b *Bot) register() {
	adminOnly := b.fromAdmin()

	b.handler.HandleMessage(b.onStart, th.CommandEqual("start"), adminOnly)
	b.handler.HandleMessage(b.onStats, th.CommandEqual("stats"), adminOnly)
	b.handler.HandleMessage(b.onSettings, th.CommandEqual("settings"), adminOnly)
	b.handler.HandleMessage(b.onSet, th.CommandEqual("set"), adminOnly)
	b.handler.HandleMessage(b.onChannels, th.CommandEqual("channels"), adminOnly)
	b.handler.HandleMessage(b.onAddChannel, th.CommandEqual("addchannel"), adminOnly)
	b.handler.HandleMessage(b.onDelChannel, th.CommandEqual("delchannel"), adminOnly)
	b.handler.HandleMessage(b.onClients, th.CommandEqual("clients"), adminOnly)
	b.handler.HandleMessage(b.onSend, th.CommandEqual("send"), adminOnly)
	b.handler.HandleMessage(b.onStop, th.CommandEqual("stop"), adminOnly)
	b.handler.HandleMessage(b.onResume, th.CommandEqual("resume"), adminOnly)
	b.handler.HandleMessage(b.onDocument, b.adminDocument())
	b.handler.HandleMessage(b.onText, b.adminText())

	adminCallback := b.fromAdminCallback()
	b.handler.HandleCallbackQuery(b.onMenuStats,
		th.AnyCallbackQueryWithMessage(), th.CallbackDataEqual(cbMenuStats), adminCallback)
	b.handler.HandleCallbackQuery(b.onMenuSettings,
		th.AnyCallbackQueryWithMessage(), th.CallbackDataEqual(cbMenuSettings), adminCallback)
	b.handler.HandleCallbackQuery(b.onMenuQueue,
		th.AnyCallbackQueryWithMessage(), th.CallbackDataEqual(cbMenuQueue), adminCallback)
	b.handler.HandleCallbackQuery(b.onMenuChannels,
		th.AnyCallbackQueryWithMessage(), th.CallbackDataEqual(cbMenuChannels), adminCallback)
	b.handler.HandleCallbackQuery(b.onToggle,
		th.AnyCallbackQueryWithMessage(), th.CallbackDataPrefix(cbToggle), adminCallback)

	b.handler.HandleCallbackQuery(b.onCopy,
		th.AnyCallbackQueryWithMessage(), th.CallbackDataPrefix(cbCopy))
	b.handler.HandleCallbackQuery(b.onReport,
		th.AnyCallbackQueryWithMessage(), th.CallbackDataPrefix(cbReport))
	b.handler.HandleCallbackQuery(b.onConfirmReport,
		th.AnyCallbackQueryWithMessage(), th.CallbackDataPrefix(cbConfirmReport))
	b.handler.HandleCallbackQuery(b.onCancelReport,
		th.AnyCallbackQueryWithMessage(), th.CallbackDataPrefix(cbCancelReport))
}

func (b *Bot) fromAdmin() th.Predicate {
	return func(update telego.Update) bool {
		return update.Message != nil &&
			update.Message.From != nil &&
			update.Message.From.ID == b.cfg.AdminID
	}
}

func (b *Bot) fromAdminCallback() th.Predicate {
	return func(update telego.Update) bool {
		return update.CallbackQuery != nil &&
			update.CallbackQuery.From.ID == b.cfg.AdminID
	}
}

func (b *Bot) adminDocument() th.Predicate {
	return func(update telego.Update) bool {
		return update.Message != nil &&
			update.Message.From != nil &&
			update.Message.From.ID == b.cfg.AdminID &&
			update.Message.Document != nil
	}
}

// adminText matches plain admin messages that are neither commands nor
// documents, so pasted links get ingested directly.
func (b *Bot) adminText() th.Predicate {
	return func(update telego.Update) bool {
		return update.Message != nil &&
			update.Message.From != nil &&
			update.Message.From.ID == b.cfg.AdminID &&
			update.Message.Document == nil &&
			update.Message.Text != "" &&
			!strings.HasPrefix(update.Message.Text, "/")
	}
}

func (b *Bot) reply(chatId int64, text string) {
	_, err := b.bot.SendMessage(tu.Message(tu.ID(chatId), text).WithParseMode(telego.ModeHTML))
	if err != nil {
		logger.Warningf("reply to %d: %v", chatId, err)
	}
}

func (b *Bot) onStart(_ *telego.Bot, message telego.Message) {
	text := strings.Join([]string{
		"🤖 ربات مدیریت کانفیگ",
		"",
		"/stats - آمار سیستم",
		"/settings - تنظیمات",
		"/set - تغییر تنظیم",
		"/channels - کانال‌ها",
		"/addchannel - افزودن کانال",
		"/delchannel - حذف کانال",
		"/send - ارسال صف",
		"/stop - توقف ارسال",
		"/resume - ادامه ارسال",
		"/clients - برنامه‌های پیشنهادی",
		"",
		"فایل یا متن حاوی کانفیگ را بفرستید تا استخراج شود.",
	}, "\n")
	_, err := b.bot.SendMessage(tu.Message(tu.ID(message.Chat.ID), text).
		WithReplyMarkup(mainMenuButtons()))
	if err != nil {
		logger.Warningf("reply to %d: %v", message.Chat.ID, err)
	}
}

func (b *Bot) sendStats(chatId int64) {
	overview, err := b.statService.Overview(b.configService, time.Now())
	if err != nil {
		b.reply(chatId, "خطا در خواندن آمار: "+err.Error())
		return
	}
	b.reply(chatId, AdminStats(overview, b.serverStat.Status()))
}

func (b *Bot) onStats(_ *telego.Bot, message telego.Message) {
	b.sendStats(message.Chat.ID)
}

func (b *Bot) sendSettings(chatId int64) {
	all, err := b.settingService.All()
	if err != nil {
		b.reply(chatId, "خطا در خواندن تنظیمات: "+err.Error())
		return
	}
	_, err = b.bot.SendMessage(tu.Message(tu.ID(chatId), Settings(all)).
		WithReplyMarkup(b.currentSettingsButtons()))
	if err != nil {
		logger.Warningf("reply to %d: %v", chatId, err)
	}
}

func (b *Bot) currentSettingsButtons() *telego.InlineKeyboardMarkup {
	return settingsButtons(
		b.settingService.IsStopSending(),
		b.settingService.IsReminderEnabled(),
		b.settingService.IsSendClients(),
	)
}

func (b *Bot) onSettings(_ *telego.Bot, message telego.Message) {
	b.sendSettings(message.Chat.ID)
}

// onSet handles "/set <key> <value>".
func (b *Bot) onSet(_ *telego.Bot, message telego.Message) {
	fields := strings.Fields(message.Text)
	if len(fields) != 3 {
		b.reply(message.Chat.ID, "فرمت: /set <key> <value>")
		return
	}
	if err := b.settingService.SetString(fields[1], fields[2]); err != nil {
		b.reply(message.Chat.ID, "خطا: "+err.Error())
		return
	}
	b.reply(message.Chat.ID, fmt.Sprintf("✅ %s = %s", fields[1], fields[2]))
}

func (b *Bot) sendChannels(chatId int64) {
	channels, err := b.channelService.List()
	if err != nil {
		b.reply(chatId, "خطا: "+err.Error())
		return
	}
	if len(channels) == 0 {
		b.reply(chatId, "کانالی ثبت نشده است")
		return
	}
	var lines []string
	for _, ch := range channels {
		lines = append(lines, "• "+ch.ChannelId)
	}
	b.reply(chatId, "📢 کانال‌ها:\n"+strings.Join(lines, "\n"))
}

func (b *Bot) onChannels(_ *telego.Bot, message telego.Message) {
	b.sendChannels(message.Chat.ID)
}

func (b *Bot) sendQueue(chatId int64) {
	pending, err := b.configService.CountPending()
	if err != nil {
		b.reply(chatId, "خطا: "+err.Error())
		return
	}
	sentToday, err := b.statService.SentToday(time.Now())
	if err != nil {
		b.reply(chatId, "خطا: "+err.Error())
		return
	}
	b.reply(chatId, QueueStatus(pending, int64(sentToday),
		b.settingService.GetDailyLimit(), b.settingService.IsStopSending()))
}

func (b *Bot) onAddChannel(_ *telego.Bot, message telego.Message) {
	fields := strings.Fields(message.Text)
	if len(fields) != 2 {
		b.reply(message.Chat.ID, "فرمت: /addchannel @channel")
		return
	}
	if err := b.channelService.Add(fields[1], fields[1]); err != nil {
		b.reply(message.Chat.ID, "خطا: "+err.Error())
		return
	}
	b.reply(message.Chat.ID, "✅ کانال اضافه شد: "+fields[1])
}

func (b *Bot) onDelChannel(_ *telego.Bot, message telego.Message) {
	fields := strings.Fields(message.Text)
	if len(fields) != 2 {
		b.reply(message.Chat.ID, "فرمت: /delchannel @channel")
		return
	}
	if err := b.channelService.Remove(fields[1]); err != nil {
		b.reply(message.Chat.ID, "خطا: "+err.Error())
		return
	}
	b.reply(message.Chat.ID, "✅ کانال حذف شد: "+fields[1])
}

func (b *Bot) onClients(_ *telego.Bot, message telego.Message) {
	b.reply(message.Chat.ID, ClientsPost())
}

func (b *Bot) onSend(_ *telego.Bot, message telego.Message) {
	b.sendQueue(message.Chat.ID)

	chatId := message.Chat.ID
	go func() {
		result, err := b.dispatcher.Drain("manual", 0)
		if err != nil {
			b.reply(chatId, "خطا در ارسال: "+err.Error())
			return
		}
		b.reply(chatId, fmt.Sprintf("📤 ارسال تمام شد: %d موفق، %d ناموفق، %d باقی‌مانده",
			result.Delivered, result.Failed, result.Remaining))
	}()
}

func (b *Bot) onStop(_ *telego.Bot, message telego.Message) {
	if err := b.settingService.SetStopSending(true); err != nil {
		b.reply(message.Chat.ID, "خطا: "+err.Error())
		return
	}
	b.reply(message.Chat.ID, "⛔️ ارسال متوقف شد")
}

func (b *Bot) onResume(_ *telego.Bot, message telego.Message) {
	if err := b.settingService.SetStopSending(false); err != nil {
		b.reply(message.Chat.ID, "خطا: "+err.Error())
		return
	}
	b.reply(message.Chat.ID, "✅ ارسال فعال شد")
}

// onDocument downloads an uploaded text export and ingests every config
// found in it.
func (b *Bot) onDocument(_ *telego.Bot, message telego.Message) {
	file, err := b.bot.GetFile(&telego.GetFileParams{FileID: message.Document.FileID})
	if err != nil {
		b.reply(message.Chat.ID, "خطا در دریافت فایل: "+err.Error())
		return
	}
	data, err := tu.DownloadFile(b.bot.FileDownloadURL(file.FilePath))
	if err != nil {
		b.reply(message.Chat.ID, "خطا در دانلود فایل: "+err.Error())
		return
	}
	b.ingestText(message.Chat.ID, string(data))
}

func (b *Bot) onText(_ *telego.Bot, message telego.Message) {
	b.ingestText(message.Chat.ID, message.Text)
}

func (b *Bot) ingestText(chatId int64, text string) {
	records := b.extractor.Extract(text)
	if len(records) == 0 {
		b.reply(chatId, "کانفیگی پیدا نشد")
		return
	}
	insertedCount, err := b.configService.Ingest(records)
	if err != nil {
		b.reply(chatId, "خطا در ذخیره: "+err.Error())
		return
	}
	b.reply(chatId, fmt.Sprintf("🔍 %d کانفیگ پیدا شد، %d جدید به صف اضافه شد",
		len(records), insertedCount))
}

func (b *Bot) answer(queryId string, text string) {
	err := b.bot.AnswerCallbackQuery(tu.CallbackQuery(queryId).WithText(text))
	if err != nil {
		logger.Warningf("answer callback: %v", err)
	}
}

func (b *Bot) onCopy(_ *telego.Bot, query telego.CallbackQuery) {
	fingerprint := callbackPayload(query.Data, cbCopy)
	if err := b.feedback.ReportCopy(fingerprint, time.Now()); err != nil {
		logger.Warningf("report copy %s: %v", fingerprint, err)
	}
	b.answer(query.ID, "✅ لینک را از روی پیام کپی کنید")
}

// onReport swaps the post's keyboard for the confirmation step.
func (b *Bot) onReport(_ *telego.Bot, query telego.CallbackQuery) {
	fingerprint := callbackPayload(query.Data, cbReport)
	_, err := b.bot.EditMessageReplyMarkup(&telego.EditMessageReplyMarkupParams{
		ChatID:      tu.ID(query.Message.GetChat().ID),
		MessageID:   query.Message.GetMessageID(),
		ReplyMarkup: confirmReportButtons(fingerprint),
	})
	if err != nil {
		logger.Warningf("confirm keyboard %s: %v", fingerprint, err)
	}
	b.answer(query.ID, "مطمئنید کانفیگ خرابه؟")
}

func (b *Bot) onConfirmReport(_ *telego.Bot, query telego.CallbackQuery) {
	fingerprint := callbackPayload(query.Data, cbConfirmReport)
	count, retracted, err := b.feedback.ReportBad(fingerprint, time.Now())
	if err != nil {
		b.answer(query.ID, "این کانفیگ دیگر موجود نیست")
		return
	}
	if retracted {
		b.answer(query.ID, "🗑 کانفیگ خراب حذف شد، ممنون از گزارش شما")
		return
	}
	b.answer(query.ID, fmt.Sprintf("⚠️ گزارش ثبت شد (%d)", count))
	b.restoreButtons(query, fingerprint)
}

func (b *Bot) onCancelReport(_ *telego.Bot, query telego.CallbackQuery) {
	fingerprint := callbackPayload(query.Data, cbCancelReport)
	b.answer(query.ID, "انصراف داده شد")
	b.restoreButtons(query, fingerprint)
}

func (b *Bot) onMenuStats(_ *telego.Bot, query telego.CallbackQuery) {
	b.answer(query.ID, "")
	b.sendStats(query.Message.GetChat().ID)
}

func (b *Bot) onMenuSettings(_ *telego.Bot, query telego.CallbackQuery) {
	b.answer(query.ID, "")
	b.sendSettings(query.Message.GetChat().ID)
}

func (b *Bot) onMenuQueue(_ *telego.Bot, query telego.CallbackQuery) {
	b.answer(query.ID, "")
	b.sendQueue(query.Message.GetChat().ID)
}

func (b *Bot) onMenuChannels(_ *telego.Bot, query telego.CallbackQuery) {
	b.answer(query.ID, "")
	b.sendChannels(query.Message.GetChat().ID)
}

// onToggle flips one of the boolean settings and refreshes the settings
// message in place.
func (b *Bot) onToggle(_ *telego.Bot, query telego.CallbackQuery) {
	key := callbackPayload(query.Data, cbToggle)
	switch key {
	case "stop_sending", "reminder_enabled", "send_clients":
	default:
		b.answer(query.ID, "تنظیم ناشناخته")
		return
	}

	value, err := b.settingService.Toggle(key)
	if err != nil {
		b.answer(query.ID, "خطا: "+err.Error())
		return
	}
	b.answer(query.ID, fmt.Sprintf("%s = %t", key, value))

	all, err := b.settingService.All()
	if err != nil {
		return
	}
	_, err = b.bot.EditMessageText(&telego.EditMessageTextParams{
		ChatID:      tu.ID(query.Message.GetChat().ID),
		MessageID:   query.Message.GetMessageID(),
		Text:        Settings(all),
		ReplyMarkup: b.currentSettingsButtons(),
	})
	if err != nil {
		logger.Warningf("refresh settings message: %v", err)
	}
}

func (b *Bot) restoreButtons(query telego.CallbackQuery, fingerprint string) {
	_, err := b.bot.EditMessageReplyMarkup(&telego.EditMessageReplyMarkupParams{
		ChatID:      tu.ID(query.Message.GetChat().ID),
		MessageID:   query.Message.GetMessageID(),
		ReplyMarkup: configButtons(fingerprint),
	})
	if err != nil {
		logger.Warningf("restore keyboard %s: %v", fingerprint, err)
	}
}
