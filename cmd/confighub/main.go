package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"confighub/config"
	"confighub/database"
	"confighub/internal/service"
	"confighub/logger"
	"confighub/web"
)

func main() {
	configPath := flag.String("config", "confighub.toml", "path to the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}

	if err := database.InitDB(cfg.DBDriver, cfg.DBDSN); err != nil {
		logger.Errorf("init database: %v", err)
		os.Exit(1)
	}
	defer database.CloseDB()

	channelService := service.ChannelService{}
	if err := channelService.SyncFromConfig(cfg.Channels); err != nil {
		logger.Errorf("sync channels: %v", err)
		os.Exit(1)
	}

	server := web.NewServer(cfg)
	if err := server.Start(); err != nil {
		logger.Errorf("start server: %v", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	if err := server.Stop(); err != nil {
		logger.Warningf("stop server: %v", err)
	}
}
