package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"sanoqchi/bot"
	"sanoqchi/impl/core"
	"sanoqchi/internal/config"
	"sanoqchi/internal/database"
	"sanoqchi/internal/http-server/api"
	"sanoqchi/internal/scheduler"
	"sanoqchi/lib/sl"
)

const (
	envLocal    = "local"
	envDev      = "dev"
	envProd     = "prod"
	logFileName = "sanoqchi.log"
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	logger := setupLogger(conf.Env, *logPath)
	logger.Info("starting sanoqchi", slog.String("config", *configPath), slog.String("env", conf.Env))

	db := database.NewMongoClient(conf)
	if db == nil {
		logger.Error("mongo storage is required")
		os.Exit(1)
	}

	engine := core.New(db, logger)
	if conf.Api.Token != "" {
		engine.SetOwnerToken(conf.Api.Token, conf.Telegram.OwnerId)
	}

	tgBot, err := bot.NewTgBot(conf.Telegram.ApiKey, engine, logger, bot.BotConfig{
		OwnerId:         conf.Telegram.OwnerId,
		LeaderboardSize: conf.Challenge.LeaderboardSize,
	})
	if err != nil {
		logger.Error("creating telegram bot", sl.Err(err))
		os.Exit(1)
	}

	sweepInterval := time.Duration(conf.Challenge.SweepIntervalSec) * time.Second
	sched := scheduler.New(db, tgBot, logger, sweepInterval, conf.Challenge.LeaderboardSize)
	sched.Start()

	go func() {
		if err := tgBot.Start(); err != nil {
			logger.Error("telegram bot stopped", sl.Err(err))
		}
	}()

	go func() {
		if err := api.New(conf, logger, engine); err != nil {
			logger.Error("api server stopped", sl.Err(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	sched.Stop()
	tgBot.Stop()
}

func setupLogger(env, path string) *slog.Logger {
	var logger *slog.Logger
	var logFile *os.File
	var err error

	if env != envLocal {
		logPath := logFilePath(path)
		logFile, err = os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("error opening log file: ", err)
		}
		log.Printf("env: %s; log file: %s", env, logPath)
	}

	switch env {
	case envLocal:
		logger = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		logger = slog.New(
			slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		logger = slog.New(
			slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log.Fatal("invalid environment: ", env)
	}

	return logger
}

func logFilePath(path string) string {
	return filepath.Join(path, logFileName)
}
