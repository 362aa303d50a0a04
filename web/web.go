// Package web runs the HTTP API server, schedules the background jobs and
// owns the Telegram bot lifecycle.
package web

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"confighub/config"
	"confighub/internal/dispatch"
	"confighub/internal/extract"
	"confighub/internal/service"
	"confighub/internal/telegram"
	"confighub/logger"
	"confighub/web/controller"
	"confighub/web/job"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/mymmrac/telego"
	"github.com/robfig/cron/v3"
)

// Server wires the services, the dispatcher, the bot and the cron jobs
// together and serves the JSON API.
type Server struct {
	cfg *config.Config

	httpServer *http.Server
	listener   net.Listener

	api *controller.APIController

	configService  service.ConfigService
	settingService service.SettingService
	statService    service.StatService
	channelService service.ChannelService
	serverStat     service.ServerStatService

	bot        *telegram.Bot
	courier    *telegram.Courier
	dispatcher *dispatch.Dispatcher

	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Server) initRouter() (*gin.Engine, error) {
	gin.DefaultWriter = io.Discard
	gin.DefaultErrorWriter = io.Discard
	gin.SetMode(gin.ReleaseMode)

	engine := gin.Default()
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	g := engine.Group("/api")
	s.api = controller.NewAPIController(g,
		&s.configService,
		&s.settingService,
		&s.statService,
		&s.channelService,
		&s.serverStat,
		s.dispatcher,
		extract.NewExtractor(s.cfg.Remark()),
	)

	engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNotFound)
	})

	return engine, nil
}

// startTask schedules the periodic drain, the daily stats broadcast and
// the nightly cleanup.
func (s *Server) startTask() {
	_, err := s.cron.AddJob(s.cfg.DrainSchedule, job.NewDrainJob(s.dispatcher))
	if err != nil {
		logger.Errorf("schedule drain job (%s): %v", s.cfg.DrainSchedule, err)
	}

	// Daily stats broadcast at 21:00.
	s.cron.AddJob("0 0 21 * * *", job.NewStatsNotifyJob(
		&s.statService, &s.settingService, &s.channelService, s.courier))

	s.cron.AddJob("@midnight", job.NewCleanupJob(&s.configService, s.cfg.CleanupDays))
}

// Start brings up the bot, the cron scheduler and the HTTP listener.
func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			s.Stop()
		}
	}()

	tgBot, err := telego.NewBot(s.cfg.BotToken, telego.WithDefaultLogger(false, true))
	if err != nil {
		return err
	}
	s.courier = telegram.NewCourier(tgBot, &s.settingService, s.cfg.BrandChannel)
	s.dispatcher = dispatch.NewDispatcher(
		&s.configService,
		&s.settingService,
		&s.statService,
		&s.channelService,
		s.courier,
	)

	feedback := &service.FeedbackService{
		ConfigService: &s.configService,
		StatService:   &s.statService,
		Threshold:     s.cfg.ReportThreshold,
		Retractor:     s.courier,
	}
	s.bot = telegram.NewBot(s.cfg, tgBot,
		&s.configService,
		&s.settingService,
		&s.statService,
		&s.channelService,
		feedback,
		&s.serverStat,
		s.dispatcher,
	)
	if err = s.bot.Start(); err != nil {
		return err
	}

	s.cron = cron.New(cron.WithLocation(time.Local), cron.WithSeconds())
	s.cron.Start()
	s.startTask()

	engine, err := s.initRouter()
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", s.cfg.HTTPListen)
	if err != nil {
		return err
	}
	s.listener = listener
	logger.Infof("web server running on %s", listener.Addr())

	s.httpServer = &http.Server{
		Handler: engine,
	}
	go func() {
		s.httpServer.Serve(listener)
	}()

	return nil
}

// Stop shuts everything down in reverse start order.
func (s *Server) Stop() error {
	s.cancel()

	if s.bot != nil {
		s.bot.Stop()
	}
	if s.cron != nil {
		s.cron.Stop()
	}

	var err error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.httpServer.Shutdown(ctx)
	}
	return err
}
