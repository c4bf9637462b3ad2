package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/cuotos/broadcastbot/database"
	"github.com/cuotos/broadcastbot/handler"
	"github.com/hashicorp/logutils"
	"github.com/joho/godotenv"
)

const counterTTL = 24 * time.Hour

var logFilter = &logutils.LevelFilter{
	Levels:   []logutils.LogLevel{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL"},
	MinLevel: logutils.LogLevel("INFO"),
	Writer:   os.Stderr,
}

func main() {
	log.SetOutput(logFilter)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := run(); err != nil {
		log.Fatal("[FATAL] ", err)
	}
}

func run() error {

	// .env is only expected when running locally
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	level := logutils.LogLevel(strings.ToUpper(cfg.LogLevel))
	if !slices.Contains(logFilter.Levels, level) {
		return fmt.Errorf("LOG_LEVEL must be one of %v, got %q", logFilter.Levels, cfg.LogLevel)
	}
	logFilter.SetMinLevel(level)

	lambdaMode := runningInLambda()
	if err := cfg.Validate(lambdaMode); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if len(cfg.BroadcastChannels) == 0 {
		log.Println("[WARN] BROADCAST_CHANNEL_IDS is empty, broadcasts will be refused")
	}

	sender, err := NewSlackSender(cfg.SlackBotToken, cfg.SlackAppToken)
	if err != nil {
		return fmt.Errorf("failed to create slack client: %w", err)
	}

	var counters database.Database
	if cfg.RedisAddr != "" {
		counters, err = database.NewRedisDatabase(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, counterTTL)
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoJoinChannels {
		EnsureMembership(ctx, sender, cfg.BroadcastChannels)
	}

	broadcaster := handler.NewBroadcastHandler(handler.BroadcastConfig{
		Command:             cfg.SlashCommand,
		Channels:            cfg.BroadcastChannels,
		AllowedBroadcasters: cfg.AllowedBroadcasters,
		SendInterval:        cfg.SendInterval,
	}, sender, counters)

	if lambdaMode {
		log.Println("[INFO] starting lambda handler")
		lambda.StartWithOptions(LambdaHandler(handler.NewRealSlackHandler(broadcaster, cfg.SlashCommand, cfg.SlackSigningSecret)), lambda.WithContext(ctx))
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", HealthCheckHandler(counters))
	server := &http.Server{Addr: cfg.HealthAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Printf("[INFO] health check listening on %s", cfg.HealthAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[ERROR] health check server: %s", err)
		}
	}()
	defer server.Shutdown(context.Background())

	log.Printf("[INFO] listening for %s, broadcasting to %d channel(s)", cfg.SlashCommand, len(cfg.BroadcastChannels))

	return NewSocketListener(sender.client, cfg.SlashCommand, broadcaster).Run(ctx)
}
