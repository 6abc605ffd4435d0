// Command simulate drives one run of the closed-economy ledger/dealer
// simulator end to end: load configuration, load a scenario file, build
// the ledger (and optional dealer subsystem), run the daily loop to
// completion, and persist events/balances/dealer metrics to an artifact
// store as it goes.
//
// The entry-point shape — load config, build the logger, wire
// dependencies, run, handle a shutdown signal, clean up — follows the
// teacher's main() (cmd/simulate/main.go.orig), re-architected from a
// long-running HTTP service into a single bounded simulation run: there
// is no server to start, so "shutdown" here means "finish the day in
// flight, flush the artifact store, and exit" rather than draining HTTP
// connections.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/closedloop/econsim/internal/artifact"
	"github.com/closedloop/econsim/internal/config"
	"github.com/closedloop/econsim/internal/dealermetrics"
	"github.com/closedloop/econsim/internal/scenario"
	"github.com/closedloop/econsim/pkg/logger"
)

func main() {
	scenarioFlag := flag.String("scenario", "", "path to a scenario file (overrides ECONSIM_SCENARIO)")
	flag.Parse()
	if *scenarioFlag != "" {
		os.Setenv("ECONSIM_SCENARIO", *scenarioFlag)
	}

	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})
	log.Info().Str("scenario", cfg.ScenarioPath).Msg("starting econsim")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Warn().Msg("interrupt received, finishing current day before exiting")
		cancel()
	}()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("simulation run failed")
	}
	log.Info().Msg("simulation run complete")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	f, err := scenario.Load(cfg.ScenarioPath)
	if err != nil {
		return err
	}

	sim, err := scenario.Build(f, uint64(cfg.Seed), log)
	if err != nil {
		return err
	}

	store, err := artifact.Open(artifact.Config{
		Path:    filepath.Join(cfg.ArtifactDir, f.Name+".db"),
		Profile: artifact.ProfileRun,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	runRow, err := store.StartRun(f.Name, uint64(cfg.Seed), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}

	maxDays := f.Run.MaxDays
	quietDays := f.Run.QuietDays
	if maxDays <= 0 {
		maxDays = cfg.MaxDays
	}
	if quietDays <= 0 {
		quietDays = cfg.QuietDays
	}

	seq := 0
	consecutiveQuiet := 0
	for day := 1; day <= maxDays; day++ {
		select {
		case <-ctx.Done():
			log.Warn().Int("day", day-1).Msg("stopping early on interrupt")
			return persistAndReturn(store, runRow.ID, sim, day-1)
		default:
		}

		report, err := sim.State.RunDay()
		if err != nil {
			return err
		}
		if err := store.RecordEvents(runRow.ID, seq, report.Events); err != nil {
			return err
		}
		seq += len(report.Events)

		if sim.Dealer != nil {
			metrics := dealermetrics.CollectBucketMetrics(day, sim.Dealer, report.Events)
			if err := store.RecordDealerBucketMetrics(runRow.ID, metrics); err != nil {
				return err
			}
			margins := dealermetrics.SafetyMargins(sim.Dealer, sim.Dealer.Config().TraderIDs, day)
			if err := store.RecordSafetyMarginSummary(runRow.ID, day, dealermetrics.Summarize(margins)); err != nil {
				return err
			}
		}

		if f.Run.Mode == "until_stable" {
			stable := report.Quiet && (sim.State.Policy.RolloverEnabled || report.OpenObligations == 0)
			if stable {
				consecutiveQuiet++
			} else {
				consecutiveQuiet = 0
			}
			if consecutiveQuiet >= quietDays {
				log.Info().Int("day", day).Msg("reached stable state")
				break
			}
		}
	}

	return persistAndReturn(store, runRow.ID, sim, sim.State.Day)
}

func persistAndReturn(store *artifact.Store, runID int64, sim *scenario.Simulation, day int) error {
	snap := sim.State.Snapshot()
	return store.RecordBalancesSnapshot(runID, snap)
}
