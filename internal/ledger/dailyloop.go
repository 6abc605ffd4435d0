// The daily loop (spec.md §4.6, L11): Phase A (day increment), the
// optional dealer phase, Phase B1 (scheduled actions), Phase B2
// (settlement), Phase C (clearing), in that fixed order every day.
package ledger

import (
	"fmt"
	"sort"

	"github.com/closedloop/econsim/internal/domain"
	"github.com/closedloop/econsim/internal/events"
	"github.com/closedloop/econsim/internal/simerr"
)

// DayReport summarizes one day's loop, letting the outer driver decide
// whether to keep running (SUPPLEMENTED FEATURES #5 of SPEC_FULL.md).
type DayReport struct {
	Day             int
	Quiet           bool
	OpenObligations int
	Events          []events.Event
}

// RunDay executes one full day of spec.md §4.6's sequence. The ledger
// must be in PhaseA (i.e. either just past EndSetup or just past a prior
// RunDay) when this is called.
func (s *State) RunDay() (*DayReport, error) {
	if s.Phase != PhaseA {
		return nil, simerr.NewValidation("bad_phase", fmt.Sprintf("RunDay called outside phase A (phase=%s)", s.Phase))
	}
	s.Day++
	startLen := s.Log.Len()
	s.emit(&events.BeginDayData{Day: s.Day})

	if s.Dealer != nil {
		s.Phase = PhaseDealer
		if err := s.Dealer.RunDailyPhase(s.Day); err != nil {
			return nil, err
		}
	}

	s.Phase = PhaseB1
	s.emit(&events.PhaseMarkerData{Phase: string(events.SubphaseB1)})
	for _, sa := range s.scheduled[s.Day] {
		if err := sa.Action.Apply(s); err != nil {
			return nil, err
		}
	}
	delete(s.scheduled, s.Day)

	s.Phase = PhaseB2
	s.emit(&events.PhaseMarkerData{Phase: string(events.SubphaseB2)})
	if err := s.RunSettlement(s.Day); err != nil {
		return nil, err
	}
	if s.Dealer != nil {
		if err := s.Dealer.AfterSettlement(s.Day); err != nil {
			return nil, err
		}
	}

	s.Phase = PhaseC
	s.emit(&events.PhaseMarkerData{Phase: string(events.PhaseC)})
	if err := s.RunClearing(s.Day); err != nil {
		return nil, err
	}

	if s.Policy.InvariantCheckMode == InvariantCheckDaily {
		if err := s.CheckInvariants(); err != nil {
			return nil, err
		}
	}

	s.Phase = PhaseA
	dayEvents := s.Log.Slice(startLen)
	report := &DayReport{
		Day:             s.Day,
		Quiet:           isQuiet(dayEvents),
		OpenObligations: s.countOpenObligations(),
		Events:          dayEvents,
	}
	return report, nil
}

// isQuiet reports whether the day produced only phase-marker/begin-day
// events (spec.md §4.6 "quiet = no events other than trivial begin/end
// markers").
func isQuiet(dayEvents []events.Event) bool {
	for _, e := range dayEvents {
		switch e.Kind {
		case events.BeginDay, events.PhaseA, events.PhaseB, events.PhaseC, events.SubphaseB1, events.SubphaseB2:
			continue
		default:
			return false
		}
	}
	return true
}

func (s *State) countOpenObligations() int {
	n := 0
	for _, iid := range s.instrOrder {
		inst := s.instruments[iid]
		if inst.Kind == domain.KindPayable || inst.Kind == domain.KindDeliveryObligation {
			n++
		}
	}
	return n
}

// RunResult is the outer driver's summary of a full simulation.
type RunResult struct {
	Days       []*DayReport
	StoppedBy  string // "quiet", "max_days"
	FinalDay   int
}

// Run drives RunDay until either quietDays consecutive quiet days with no
// open obligations occur (when rollover is disabled — with rollover
// enabled the obligation count never has to reach zero, so only
// consecutive quiet days are required) or maxDays is reached (spec.md
// §4.6's outer stop condition).
func (s *State) Run(maxDays, quietDays int) (*RunResult, error) {
	result := &RunResult{}
	consecutiveQuiet := 0
	for day := 1; day <= maxDays; day++ {
		report, err := s.RunDay()
		if err != nil {
			return result, err
		}
		result.Days = append(result.Days, report)
		result.FinalDay = report.Day

		stableEnough := report.Quiet && (s.Policy.RolloverEnabled || report.OpenObligations == 0)
		if stableEnough {
			consecutiveQuiet++
		} else {
			consecutiveQuiet = 0
		}
		if consecutiveQuiet >= quietDays {
			result.StoppedBy = "quiet"
			return result, nil
		}
	}
	result.StoppedBy = "max_days"
	return result, nil
}

// Preflight validates a batch of scheduled actions before day 1 runs,
// catching references to aliases that will never exist by the day they
// are scheduled (SPEC_FULL.md supplemented feature #3; spec.md boundary
// behavior B5: "Unknown alias in a scheduled transfer_claim is rejected
// during preflight validation before day 1"). It only checks
// TransferClaimAction today, since that is the one action whose
// precondition (the contract must already exist) can be decided purely
// from alias bookkeeping without simulating the days in between.
func (s *State) Preflight(scheduled []ScheduledAction) error {
	known := make(map[string]bool, len(s.aliasOrder))
	for _, alias := range s.aliasOrder {
		known[alias] = true
	}
	sorted := append([]ScheduledAction(nil), scheduled...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Day < sorted[j].Day })

	for _, sa := range sorted {
		switch a := sa.Action.(type) {
		case TransferClaimAction:
			if !known[a.ContractAliasOrID] {
				if _, err := s.ResolveAlias(a.ContractAliasOrID); err != nil {
					return simerr.NewValidation("preflight_unknown_alias",
						fmt.Sprintf("day %d: transfer_claim references unknown alias %q", sa.Day, a.ContractAliasOrID))
				}
			}
		case CreatePayableAction:
			if a.Alias != "" {
				known[a.Alias] = true
			}
		case CreateDeliveryObligationAction:
			if a.Alias != "" {
				known[a.Alias] = true
			}
		case MintCashAction:
			if a.Alias != "" {
				known[a.Alias] = true
			}
		case MintReservesAction:
			if a.Alias != "" {
				known[a.Alias] = true
			}
		}
	}
	return nil
}
