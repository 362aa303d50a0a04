package telegram

import (
	"bytes"
	"strconv"

	"confighub/database/model"
	"confighub/internal/service"
	"confighub/logger"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/skip2/go-qrcode"
)

const qrSize = 512

// Courier posts config records to channels through the bot API and deletes
// them again on retraction. It satisfies the dispatcher's Courier
// interface.
type Courier struct {
	bot            *telego.Bot
	settingService *service.SettingService
	brandChannel   string
}

func NewCourier(bot *telego.Bot, settingService *service.SettingService, brandChannel string) *Courier {
	return &Courier{
		bot:            bot,
		settingService: settingService,
		brandChannel:   brandChannel,
	}
}

// chatRef turns a stored channel id ("@name" or a numeric id) into the
// bot API chat reference.
func chatRef(channelId string) telego.ChatID {
	if numeric, err := strconv.ParseInt(channelId, 10, 64); err == nil {
		return tu.ID(numeric)
	}
	return tu.Username(channelId)
}

// Deliver posts the record as a QR photo with the caption and feedback
// buttons; when QR encoding fails it degrades to a plain text post. The
// returned message id is what Retract later needs.
func (c *Courier) Deliver(channelId string, rec *model.ConfigRecord) (int, error) {
	caption := ConfigPost(rec, c.brandChannel)
	if c.settingService.IsSendClients() {
		caption += "\n\n" + ClientsPost()
	}
	buttons := configButtons(rec.Fingerprint)

	png, err := qrcode.Encode(rec.Link, qrcode.Medium, qrSize)
	if err != nil {
		logger.Warningf("qr encode %s: %v", rec.Fingerprint, err)
		msg, sendErr := c.bot.SendMessage(
			tu.Message(chatRef(channelId), caption).
				WithParseMode(telego.ModeHTML).
				WithReplyMarkup(buttons))
		if sendErr != nil {
			return 0, sendErr
		}
		return msg.MessageID, nil
	}

	msg, err := c.bot.SendPhoto(
		tu.Photo(chatRef(channelId), tu.File(tu.NameReader(bytes.NewReader(png), "config.png"))).
			WithCaption(caption).
			WithParseMode(telego.ModeHTML).
			WithReplyMarkup(buttons))
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// Retract deletes a previously posted message.
func (c *Courier) Retract(channelId string, messageId int) error {
	return c.bot.DeleteMessage(&telego.DeleteMessageParams{
		ChatID:    chatRef(channelId),
		MessageID: messageId,
	})
}

// Broadcast sends a plain text message to every given channel; failures
// are logged per channel and do not stop the rest.
func (c *Courier) Broadcast(channelIds []string, text string) {
	for _, channelId := range channelIds {
		_, err := c.bot.SendMessage(
			tu.Message(chatRef(channelId), text).WithParseMode(telego.ModeHTML))
		if err != nil {
			logger.Warningf("broadcast to %s: %v", channelId, err)
		}
	}
}
