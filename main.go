package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"holdemcfr/abstraction"
	"holdemcfr/appconfig"
	"holdemcfr/checkpoint"
	"holdemcfr/metrics"
	"holdemcfr/strategy"
	"holdemcfr/trainer"
)

// Process exit codes, one per fatal category.
const (
	exitConfig      = 2
	exitCheckpoints = 3
	exitAbstraction = 4
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config, optional")
	flag.Parse()

	_ = godotenv.Load()

	log := newLogger()

	cfg, err := appconfig.LoadAppConfig(*configPath)
	if err != nil {
		log.Error().Err(err).Msg("configuration invalid")
		os.Exit(exitConfig)
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(lvl)
	}

	table, err := loadOrBuildTable(log, cfg)
	if err != nil {
		log.Error().Err(err).Msg("abstraction table unavailable")
		os.Exit(exitAbstraction)
	}

	store, err := metrics.Open(cfg.MetricsPath)
	if err != nil {
		log.Error().Err(err).Msg("metrics db unavailable")
		os.Exit(exitConfig)
	}
	defer store.Close()

	orch, err := trainer.New(cfg, table, log, store)
	if err != nil {
		log.Error().Err(err).Msg("orchestrator init failed")
		os.Exit(exitConfig)
	}

	resumed, err := orch.Resume()
	switch {
	case errors.Is(err, trainer.ErrAbstractionMismatch):
		log.Error().Err(err).Msg("checkpoint belongs to a different abstraction, refusing to resume")
		os.Exit(exitAbstraction)
	case errors.Is(err, checkpoint.ErrAllCorrupt):
		log.Error().Err(err).Msg("every checkpoint generation failed verification, operator intervention required")
		os.Exit(exitCheckpoints)
	case err != nil:
		log.Error().Err(err).Msg("resume failed")
		os.Exit(exitCheckpoints)
	}
	if resumed {
		log.Info().Int("iteration", orch.Iteration()).Msg("continuing previous run")
	} else {
		log.Info().Str("run_id", orch.RunID()).Msg("starting fresh run")
	}

	// Interrupts stop at the next cycle boundary, after a final
	// checkpoint.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := orch.Run(ctx); err != nil {
		log.Error().Err(err).Msg("training failed")
		os.Exit(1)
	}

	var priors map[string]strategy.Prior
	if cfg.PriorsPath != "" {
		priors, err = strategy.LoadPriors(cfg.PriorsPath)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.PriorsPath).Msg("priors chart unreadable")
			os.Exit(exitConfig)
		}
		log.Info().Int("infosets", len(priors)).Msg("priors chart loaded")
	}
	if err := orch.ExportStrategy(cfg.StrategyPath, priors, 0); err != nil {
		log.Error().Err(err).Msg("strategy export failed")
		os.Exit(1)
	}
	log.Info().Int("iteration", orch.Iteration()).Msg("done")
}

func newLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// loadOrBuildTable reuses a saved abstraction artifact when present,
// otherwise builds and saves one. Building is deterministic for a
// config, so reruns agree with the artifact.
func loadOrBuildTable(log zerolog.Logger, cfg *appconfig.AppConfig) (*abstraction.Table, error) {
	if _, err := os.Stat(cfg.AbstractionPath); err == nil {
		table, err := abstraction.Load(cfg.AbstractionPath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.AbstractionPath).Str("digest", table.Digest()[:12]).
			Msg("abstraction table loaded")
		return table, nil
	}

	log.Info().Msg("building abstraction table, this runs once per config")
	started := time.Now()
	table := abstraction.Build(cfg.Abstraction)
	if err := table.Save(cfg.AbstractionPath); err != nil {
		return nil, err
	}
	log.Info().Dur("took", time.Since(started)).Str("digest", table.Digest()[:12]).
		Msg("abstraction table built")
	return table, nil
}
