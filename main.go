package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/eosang60/futures-bot-binance-third/internal/gateway"
	"github.com/eosang60/futures-bot-binance-third/internal/notify"
	"github.com/eosang60/futures-bot-binance-third/internal/orchestrator"
	"github.com/eosang60/futures-bot-binance-third/internal/strategy"
	"github.com/eosang60/futures-bot-binance-third/pkg/config"
	"github.com/eosang60/futures-bot-binance-third/pkg/journal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config load failed: %v", err)
	}
	setupLogging(cfg)

	params, err := strategy.LoadParams(cfg.StrategyFile)
	if err != nil {
		logrus.Fatalf("strategy params: %v", err)
	}

	notifier := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)

	var jw journal.Writer
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			logrus.Fatalf("journal open failed: %v", err)
		}
		defer j.Close()
		jw = j
	}

	gw := gateway.New(gateway.Config{
		APIKey:    cfg.BinanceAPIKey,
		APISecret: cfg.BinanceAPISecret,
		Testnet:   cfg.BinanceTestnet,
	}, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logrus.Info("starting futures agent")
	orch := orchestrator.New(cfg, params, gw, notifier, jw)
	if err := orch.Run(ctx); err != nil {
		logrus.Fatalf("orchestrator: %v", err)
	}
	logrus.Info("shutdown complete")
}

func setupLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}
		logrus.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}
}
