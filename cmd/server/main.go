package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/levelbot/backend/internal/config"
	"github.com/levelbot/backend/internal/gateway"
	"github.com/levelbot/backend/internal/leveling"
	"github.com/levelbot/backend/internal/logging"
	"github.com/levelbot/backend/internal/mock"
	"github.com/levelbot/backend/internal/roster"
)

func main() {
	mockMode := flag.Bool("mock", false, "Generate fake chat activity")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Environment, "levelbot")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if *port > 0 {
		cfg.Server.Port = *port
	}

	table := roster.NewTable(cfg.Bot.DataDir, cfg.Bot.TableFile, logger)
	if err := table.EnsureExists(); err != nil {
		logger.Fatal("failed to initialize user table", zap.Error(err))
	}
	logger.Info("user table ready", zap.String("path", table.Path()))

	cooldown := leveling.NewCooldown(cfg.Bot.Cooldown)
	engine := leveling.NewEngine(table, cooldown, cfg.Bot.XPPerMessage, cfg.Bot.IgnoreBots, logger)

	broadcaster := gateway.NewBroadcaster(logger)
	engine.OnLevelUp(broadcaster.BroadcastLevelUp)

	server := gateway.NewServer(engine, broadcaster, logger, cfg.Server.AuthToken)
	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *mockMode {
		gen := mock.NewGenerator(engine, logger)
		gen.Start(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		logger.Sync()
		os.Exit(0)
	}()

	if err := gateway.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
