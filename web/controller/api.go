// Package controller exposes the admin REST API.
package controller

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"confighub/internal/dispatch"
	"confighub/internal/extract"
	"confighub/internal/service"
	"confighub/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// APIController serves the JSON endpoints used to drive the pipeline
// without going through the bot.
type APIController struct {
	configService  *service.ConfigService
	settingService *service.SettingService
	statService    *service.StatService
	channelService *service.ChannelService
	serverStat     *service.ServerStatService
	dispatcher     *dispatch.Dispatcher
	extractor      *extract.Extractor
}

func NewAPIController(
	g *gin.RouterGroup,
	configService *service.ConfigService,
	settingService *service.SettingService,
	statService *service.StatService,
	channelService *service.ChannelService,
	serverStat *service.ServerStatService,
	dispatcher *dispatch.Dispatcher,
	extractor *extract.Extractor,
) *APIController {
	a := &APIController{
		configService:  configService,
		settingService: settingService,
		statService:    statService,
		channelService: channelService,
		serverStat:     serverStat,
		dispatcher:     dispatcher,
		extractor:      extractor,
	}
	a.initRouter(g)
	return a
}

func (a *APIController) initRouter(g *gin.RouterGroup) {
	g.GET("/stats", a.stats)
	g.GET("/queue", a.queue)
	g.GET("/settings", a.settings)
	g.POST("/settings", a.updateSetting)
	g.GET("/channels", a.channels)
	g.POST("/channels", a.addChannel)
	g.DELETE("/channels/:id", a.delChannel)
	g.POST("/upload", a.upload)
	g.POST("/drain", a.drain)
}

func (a *APIController) stats(c *gin.Context) {
	overview, err := a.statService.Overview(a.configService, time.Now())
	if err != nil {
		jsonMsg(c, "stats", err)
		return
	}
	jsonObj(c, gin.H{
		"total":      overview.Total,
		"pending":    overview.Pending,
		"sentToday":  overview.SentToday,
		"copyToday":  overview.Today.CopyCount,
		"badReports": overview.Today.BadReports,
		"host":       a.serverStat.Status(),
	}, nil)
}

func (a *APIController) queue(c *gin.Context) {
	pending, err := a.configService.CountPending()
	if err != nil {
		jsonMsg(c, "queue", err)
		return
	}
	sentToday, err := a.statService.SentToday(time.Now())
	if err != nil {
		jsonMsg(c, "queue", err)
		return
	}
	jsonObj(c, gin.H{
		"pending":    pending,
		"sentToday":  sentToday,
		"dailyLimit": a.settingService.GetDailyLimit(),
		"stopped":    a.settingService.IsStopSending(),
		"draining":   a.dispatcher.Running(),
	}, nil)
}

func (a *APIController) settings(c *gin.Context) {
	all, err := a.settingService.All()
	jsonObj(c, all, err)
}

func (a *APIController) updateSetting(c *gin.Context) {
	var form struct {
		Key   string `json:"key" binding:"required"`
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&form); err != nil {
		jsonMsg(c, "update setting", err)
		return
	}
	err := a.settingService.SetString(form.Key, form.Value)
	jsonMsg(c, "setting updated", err)
}

func (a *APIController) channels(c *gin.Context) {
	channels, err := a.channelService.List()
	jsonObj(c, channels, err)
}

func (a *APIController) addChannel(c *gin.Context) {
	var form struct {
		ChannelId   string `json:"channelId" binding:"required"`
		ChannelName string `json:"channelName"`
	}
	if err := c.ShouldBindJSON(&form); err != nil {
		jsonMsg(c, "add channel", err)
		return
	}
	if form.ChannelName == "" {
		form.ChannelName = form.ChannelId
	}
	err := a.channelService.Add(form.ChannelId, form.ChannelName)
	jsonMsg(c, "channel added", err)
}

func (a *APIController) delChannel(c *gin.Context) {
	err := a.channelService.Remove(c.Param("id"))
	jsonMsg(c, "channel removed", err)
}

// upload ingests a text export posted as multipart form data. The file is
// spooled to a uniquely named temp path so concurrent uploads never clash.
func (a *APIController) upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		jsonMsg(c, "upload", err)
		return
	}

	tmpPath := filepath.Join(os.TempDir(), uuid.NewString()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, tmpPath); err != nil {
		jsonMsg(c, "upload", err)
		return
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			logger.Warningf("remove upload %s: %v", tmpPath, err)
		}
	}()

	f, err := os.Open(tmpPath)
	if err != nil {
		jsonMsg(c, "upload", err)
		return
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		jsonMsg(c, "upload", err)
		return
	}

	records := a.extractor.Extract(string(data))
	insertedCount, err := a.configService.Ingest(records)
	if err != nil {
		jsonMsg(c, "ingest", err)
		return
	}
	jsonObj(c, gin.H{"found": len(records), "inserted": insertedCount}, nil)
}

// drain starts a background drain run; an optional "limit" query param
// caps how many records it attempts. A run already in flight is reported
// as a conflict.
func (a *APIController) drain(c *gin.Context) {
	if a.dispatcher.Running() {
		c.JSON(http.StatusConflict, apiResponse{Success: false, Msg: dispatch.ErrDrainActive.Error()})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		limit = 0
	}
	go func() {
		result, err := a.dispatcher.Drain("api", limit)
		if err != nil {
			logger.Warningf("api drain: %v", err)
			return
		}
		logger.Infof("api drain: delivered %d, failed %d, remaining %d",
			result.Delivered, result.Failed, result.Remaining)
	}()
	jsonMsg(c, "drain started", nil)
}
