package scenario

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/closedloop/econsim/internal/dealer"
	"github.com/closedloop/econsim/internal/ledger"
)

// Simulation is everything a driver needs to run a loaded scenario: the
// ledger itself, the wired-in dealer subsystem (nil if the scenario has
// none), and the run parameters from the scenario's "run" block.
type Simulation struct {
	State  *ledger.State
	Dealer *dealer.Subsystem
	Run    RunSpec
}

// Build turns a validated File into a ready-to-run Simulation: it
// creates every agent, applies every initial action, schedules every
// scheduled action, preflights the schedule, and — if the scenario
// carries an enabled dealer block — constructs and initializes the
// dealer.Subsystem before returning. Callers drive the result with
// Simulation.State.Run/RunDay.
func Build(f *File, seed uint64, logger zerolog.Logger) (*Simulation, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	policy := f.ApplyPolicyOverrides(ledger.NewDefaultPolicy())
	if f.Run.DefaultHandling != "" {
		policy.DefaultMode = ledger.DefaultMode(f.Run.DefaultHandling)
	}
	policy.RolloverEnabled = f.Run.RolloverEnabled

	s := ledger.New(policy, logger)
	s.StartSetup()
	if err := f.BuildLedger(s); err != nil {
		return nil, err
	}
	if err := s.EndSetup(); err != nil {
		return nil, fmt.Errorf("scenario: end setup: %w", err)
	}

	scheduled, err := f.ScheduledLedgerActions()
	if err != nil {
		return nil, err
	}
	if err := s.Preflight(scheduled); err != nil {
		return nil, err
	}
	for _, sa := range scheduled {
		s.Schedule(sa.Day, sa.Action)
	}

	sim := &Simulation{State: s, Run: f.Run}

	if f.Dealer != nil && f.Dealer.Enabled {
		if f.Dealer.CentralBankID == "" {
			return nil, fmt.Errorf("scenario: dealer enabled but central_bank_id is empty")
		}
		cfg, err := f.BuildDealerConfig(seed)
		if err != nil {
			return nil, err
		}
		ds := dealer.New(s, cfg)
		if err := ds.Init(); err != nil {
			return nil, fmt.Errorf("scenario: dealer init: %w", err)
		}
		s.Dealer = ds
		sim.Dealer = ds
	}

	return sim, nil
}
