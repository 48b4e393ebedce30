// Binary bot runs the automated short-position trader against Bitget
// USDT-margined perpetual futures.
package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/odiszapc/bitget-bot/internal/calendar"
	"github.com/odiszapc/bitget-bot/internal/config"
	"github.com/odiszapc/bitget-bot/internal/engine"
	"github.com/odiszapc/bitget-bot/internal/exchange"
	"github.com/odiszapc/bitget-bot/internal/metrics"
	"github.com/odiszapc/bitget-bot/internal/recorder"
	"github.com/odiszapc/bitget-bot/internal/state"
	"github.com/odiszapc/bitget-bot/internal/util"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	dryRun := flag.Bool("dry-run", false, "log intended orders instead of placing them")
	flag.Parse()

	// Missing .env is fine; real deployments use environment variables.
	_ = godotenv.Load()

	log := util.NewLogger("info")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log = util.NewLogger(cfg.App.LogLevel)

	if cfg.Exchange.APIKey == "" || cfg.Exchange.APISecret == "" {
		log.Fatal().Msg("missing BITGET_API_KEY / BITGET_API_SECRET")
	}

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	cal, err := calendar.FromConfig(cfg.News)
	if err != nil {
		log.Fatal().Err(err).Msg("news calendar")
	}

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("sqlite recorder unavailable, trade history disabled")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	bitget := exchange.NewBitget(
		cfg.Exchange.BaseURL,
		cfg.Exchange.APIKey,
		cfg.Exchange.APISecret,
		cfg.Exchange.Passphrase,
		cfg.Exchange.Demo,
		log,
	)
	var client exchange.Client = bitget
	if *dryRun || cfg.Trading.DryRun {
		log.Warn().Msg("dry-run mode, no orders will be placed")
		client = exchange.NewDryRun(bitget, log)
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stream := exchange.NewPriceStream(cfg.Exchange.WsURL, log)
	go func() {
		if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("price stream stopped")
		}
	}()

	eng := engine.New(cfg, engine.Deps{
		Client:   client,
		Meter:    bitget,
		Stream:   stream,
		Store:    state.NewStore(cfg.State.Path),
		Recorder: rec,
		Calendar: cal,
		Log:      log,
	})

	log.Info().
		Str("baseURL", cfg.Exchange.BaseURL).
		Bool("demo", cfg.Exchange.Demo).
		Int("cycleMinutes", cfg.Trading.CycleMinutes).
		Msg("bot starting")
	if err := eng.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("engine stopped")
	}
	log.Info().Msg("shutdown complete")
}
