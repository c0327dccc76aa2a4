package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cybergift/api"
	"cybergift/config"
	"cybergift/core/events"
	coretypes "cybergift/core/types"
	"cybergift/native/gift"
	"cybergift/native/passport"
	"cybergift/observability/logging"
	"cybergift/storage"
)

const envVar = "GIFT_ENV"

// slogEmitter forwards engine events into the structured log stream.
type slogEmitter struct {
	logger *slog.Logger
}

func (e slogEmitter) Emit(evt events.Event) {
	type attributed interface {
		Event() *coretypes.Event
	}
	args := []any{slog.String("type", evt.EventType())}
	if a, ok := evt.(attributed); ok {
		if payload := a.Event(); payload != nil {
			for k, v := range payload.Attributes {
				args = append(args, slog.String(k, v))
			}
		}
	}
	e.logger.Info("event", args...)
}

// logSink records payout instructions. Settlement against the bank ledger
// happens out of process from this journal.
type logSink struct {
	logger *slog.Logger
}

func (s logSink) Send(in gift.Instruction) error {
	s.logger.Info("payout instruction",
		slog.String("recipient", in.Recipient),
		slog.String("denom", in.Denom),
		slog.String("amount", in.Amount.String()),
		slog.String("kind", in.Kind),
	)
	return nil
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	memory := flag.Bool("memory", false, "DEV ONLY: run against an in-memory database")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envVar))
	logger := logging.Setup("giftd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	var db storage.Database
	if *memory {
		db = storage.NewMemDB()
	} else {
		leveldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			panic(fmt.Sprintf("Failed to open database: %v", err))
		}
		db = leveldb
	}
	defer db.Close()

	params, err := cfg.Params()
	if err != nil {
		logger.Error("Invalid campaign parameters", slog.Any("error", err))
		os.Exit(1)
	}

	registry := passport.NewRegistry(db)

	engine := gift.NewEngine()
	engine.SetState(gift.NewStore(db))
	engine.SetEmitter(slogEmitter{logger: logger})
	engine.SetSink(logSink{logger: logger})
	if cfg.ClaimMode == config.ClaimModePassport {
		engine.SetOracle(registry)
	}
	if err := engine.Initialize(params); err != nil {
		logger.Error("Failed to initialise campaign", slog.Any("error", err))
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           api.NewServer(engine, registry, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("API server listening",
			slog.String("address", cfg.ListenAddress),
			slog.String("network", cfg.NetworkName),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("API server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", slog.Any("error", err))
	}
}
