// Package ledger implements the double-entry state store, the contract
// lifecycle, and the daily three-phase settlement loop of spec.md §4
// (L4–L11 of the component table in §2). It is the authoritative mutable
// state of one simulation; every mutation flows through an atomic scope
// (atomic.go) so that snapshot/rollback and invariant checking are
// uniform across every operation.
//
// Grounded on the teacher's ledger shape in spirit only: aristath-sentinel
// keeps trades/cash-flows/dividends in a sqlite "ledger.db" as an
// immutable audit trail (see cmd/server/main.go's doc comment); this
// package is the in-memory analogue the spec calls for, with the same
// "append-only event history, single owner, no global mutable state"
// discipline (spec.md §9).
package ledger

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/closedloop/econsim/internal/domain"
	"github.com/closedloop/econsim/internal/events"
	"github.com/closedloop/econsim/internal/simerr"
)

// Phase tags where in the daily loop the ledger currently is (spec.md §3,
// §4.6).
type Phase string

const (
	PhaseSetup  Phase = "setup"
	PhaseA      Phase = "A"
	PhaseB1     Phase = "B1"
	PhaseB2     Phase = "B2"
	PhaseC      Phase = "C"
	PhaseDealer Phase = "dealer"
)

// State is the ledger's full mutable state (spec.md §3 "Ledger state").
type State struct {
	Day   int
	Phase Phase

	Policy *Policy
	Log    *events.Log
	logger zerolog.Logger

	agents      map[string]*domain.Agent
	agentOrder  []string
	instruments map[string]*domain.Instrument
	instrOrder  []string
	stocks      map[string]*domain.StockLot
	stockOrder  []string

	aliases    map[string]string
	aliasOrder []string

	scheduled map[int][]ScheduledAction

	idSeq map[string]uint64

	// Dealer is the optional dealer subsystem handle (spec.md §3 "optional
	// dealer subsystem handle"). nil when no dealer market is configured.
	// Declared as an interface to avoid an import cycle with package
	// dealer, which itself depends on package ledger for the bridge
	// (spec.md §4.11).
	Dealer DealerHook
}

// DealerHook is the narrow interface package dealer implements so the
// daily loop (RunDay) can invoke the optional dealer phase without the
// ledger package importing the dealer package (spec.md §2 dependency
// order: dealer subtree "plugs in at L11's optional hook").
type DealerHook interface {
	// RunDailyPhase executes spec.md §4.10 steps 1–5 for one day: the
	// maturity tick, rebucketing, kernel recompute, eligibility sets, and
	// the seeded order-flow trading round. Runs before Phase B1.
	RunDailyPhase(day int) error

	// AfterSettlement executes spec.md §4.10 steps 6–7: tickets maturing
	// today have already settled via Phase B2 by the time this runs, so
	// the dealer subsystem can read the day's DefaultEvents and apply the
	// per-bucket VBT anchor update (step 7) against their actual realized
	// recovery rates. Runs after Phase B2, before Phase C.
	AfterSettlement(day int) error

	// LiquidateOwnedTickets forcibly sells every ticket debtorID holds as
	// owner into its bucket's dealer or VBT book at the prevailing bid,
	// crediting debtorID in cash (spec.md §4.4's partial-recovery
	// waterfall: "its tickets/claims liquidated at the prevailing dealer
	// bid when a dealer subsystem exists"). Called by the settlement
	// waterfall before it pools a defaulting debtor's liquid assets, so
	// each call runs in its own atomic scope rather than nested inside
	// the waterfall's (ledger/settlement.go's settlePayables runs it
	// before opening its own scope).
	LiquidateOwnedTickets(day int, debtorID string) error
}

// New builds an empty ledger state. logger is injected (never a global),
// matching the "no global mutable state" discipline of spec.md §9.
func New(policy *Policy, logger zerolog.Logger) *State {
	if policy == nil {
		policy = NewDefaultPolicy()
	}
	s := &State{
		Phase:       PhaseSetup,
		Policy:      policy,
		logger:      logger,
		agents:      make(map[string]*domain.Agent),
		instruments: make(map[string]*domain.Instrument),
		stocks:      make(map[string]*domain.StockLot),
		aliases:     make(map[string]string),
		scheduled:   make(map[int][]ScheduledAction),
		idSeq:       make(map[string]uint64),
	}
	s.Log = events.NewLog(logger)
	return s
}

// Logger exposes the injected logger for sibling packages (e.g. dealer)
// that need to log using the same sink.
func (s *State) Logger() zerolog.Logger { return s.logger }

// NextID allocates a fresh, deterministic, kind-prefixed id (SPEC_FULL.md
// supplemented feature #4). Deterministic counters (not random uuids) are
// used for every in-model identifier so that replaying the same scenario
// with the same seed reproduces byte-identical event logs (R3); uuids are
// reserved for run-level metadata outside the deterministic core (see
// package artifact).
func (s *State) NextID(prefix string) string {
	s.idSeq[prefix]++
	return prefix + "_" + strconv.FormatUint(s.idSeq[prefix], 10)
}

// Agent looks up an agent by id.
func (s *State) Agent(id string) (*domain.Agent, bool) {
	a, ok := s.agents[id]
	return a, ok
}

// MustAgent looks up an agent by id, returning a ValidationError if absent.
func (s *State) MustAgent(id string) (*domain.Agent, error) {
	a, ok := s.agents[id]
	if !ok {
		return nil, simerr.NewValidation("unknown_agent", fmt.Sprintf("agent %q does not exist", id))
	}
	return a, nil
}

// Instrument looks up an instrument by id.
func (s *State) Instrument(id string) (*domain.Instrument, bool) {
	i, ok := s.instruments[id]
	return i, ok
}

// MustInstrument looks up an instrument by id, returning a ValidationError
// if absent.
func (s *State) MustInstrument(id string) (*domain.Instrument, error) {
	i, ok := s.instruments[id]
	if !ok {
		return nil, simerr.NewValidation("unknown_instrument", fmt.Sprintf("instrument %q does not exist", id))
	}
	return i, nil
}

// Stock looks up a stock lot by id.
func (s *State) Stock(id string) (*domain.StockLot, bool) {
	st, ok := s.stocks[id]
	return st, ok
}

// AgentIDs returns all agent ids in insertion order.
func (s *State) AgentIDs() []string { return s.agentOrder }

// InstrumentIDs returns all instrument ids in insertion order.
func (s *State) InstrumentIDs() []string { return s.instrOrder }

// StockIDs returns all stock lot ids in insertion order.
func (s *State) StockIDs() []string { return s.stockOrder }

// CreateAgent registers a brand-new agent. Agents are created during
// setup and never deleted (spec.md §3 "Lifecycles").
func (s *State) CreateAgent(id, name string, kind domain.AgentKind) (*domain.Agent, error) {
	if _, exists := s.agents[id]; exists {
		return nil, simerr.NewValidation("duplicate_agent", fmt.Sprintf("agent %q already exists", id))
	}
	a := &domain.Agent{ID: id, Name: name, Kind: kind}
	s.agents[id] = a
	s.agentOrder = append(s.agentOrder, id)
	return a, nil
}

// ResolveAlias resolves an alias or, if alias is already an instrument id,
// returns it unchanged. This lets every public API accept either form, as
// spec.md §3's alias table implies ("may appear in initial actions or
// scheduled actions to reference instruments deterministically").
func (s *State) ResolveAlias(aliasOrID string) (string, error) {
	if id, ok := s.aliases[aliasOrID]; ok {
		return id, nil
	}
	if _, ok := s.instruments[aliasOrID]; ok {
		return aliasOrID, nil
	}
	return "", simerr.NewValidation("unknown_alias", fmt.Sprintf("alias or instrument id %q does not resolve", aliasOrID))
}

// RegisterAlias binds a human-chosen alias to an instrument id. Aliases
// are write-once (I5, spec.md §3).
func (s *State) RegisterAlias(alias, instrumentID string) error {
	if alias == "" {
		return nil
	}
	if _, exists := s.aliases[alias]; exists {
		return simerr.NewValidation("duplicate_alias", fmt.Sprintf("alias %q already registered", alias))
	}
	s.aliases[alias] = instrumentID
	s.aliasOrder = append(s.aliasOrder, alias)
	return nil
}

// emit appends an event tagged with the current day and phase.
func (s *State) emit(data events.Data) {
	s.Log.Append(events.Event{Kind: data.EventType(), Day: s.Day, Phase: string(s.Phase), Data: data})
}

// EmitDealerEvent lets the dealer subsystem (package dealer, which cannot
// see State's unexported emit) append a dealer-originated event tagged
// with the ledger's current day/phase, keeping one ordered event log
// across both subsystems (spec.md §6).
func (s *State) EmitDealerEvent(data events.Data) {
	s.emit(data)
}

// DefaultsOnDay returns every DefaultEventData recorded for day, in log
// order. Used by the dealer subsystem's post-settlement anchor update
// (spec.md §4.10 step 7), which needs each bucket's realized face/
// recovery outcome for today's matured tickets.
func (s *State) DefaultsOnDay(day int) []*events.DefaultEventData {
	var out []*events.DefaultEventData
	for _, ev := range s.Log.Events() {
		if ev.Day != day || ev.Kind != events.DefaultEvent {
			continue
		}
		if d, ok := ev.Data.(*events.DefaultEventData); ok {
			out = append(out, d)
		}
	}
	return out
}

// PayableSettlementsOnDay returns every PayableSettledData recorded for
// day, in log order. Used by the dealer subsystem's trader risk assessor
// (spec.md §4.9, extended) to record a clean payment history entry for
// obligations that matured without defaulting.
func (s *State) PayableSettlementsOnDay(day int) []*events.PayableSettledData {
	var out []*events.PayableSettledData
	for _, ev := range s.Log.Events() {
		if ev.Day != day || ev.Kind != events.PayableSettled {
			continue
		}
		if p, ok := ev.Data.(*events.PayableSettledData); ok {
			out = append(out, p)
		}
	}
	return out
}

// addAsset appends instrumentID to agent's asset list (I1 maintenance).
func addAsset(a *domain.Agent, instrumentID string) {
	a.AssetIDs = append(a.AssetIDs, instrumentID)
}

// addLiability appends instrumentID to agent's liability list.
func addLiability(a *domain.Agent, instrumentID string) {
	a.LiabilityIDs = append(a.LiabilityIDs, instrumentID)
}

// removeAsset removes instrumentID from agent's asset list, preserving
// order of the remaining ids.
func removeAsset(a *domain.Agent, instrumentID string) {
	a.AssetIDs = removeString(a.AssetIDs, instrumentID)
}

// removeLiability removes instrumentID from agent's liability list.
func removeLiability(a *domain.Agent, instrumentID string) {
	a.LiabilityIDs = removeString(a.LiabilityIDs, instrumentID)
}

func removeString(list []string, target string) []string {
	out := list[:0:0]
	for _, v := range list {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

// removeInstrument deletes the instrument record entirely (used on full
// settlement and on full default recovery).
func (s *State) removeInstrument(id string) {
	delete(s.instruments, id)
	s.instrOrder = removeString(s.instrOrder, id)
}

// StartSetup puts the ledger into setup phase (day=0). Setup is the
// context under which initial_actions run; invariant checks are deferred
// until setup completes (spec.md §4.1 "setup() context... defers the
// exit invariant check").
func (s *State) StartSetup() {
	s.Day = 0
	s.Phase = PhaseSetup
}

// EndSetup runs the invariant checker once (if enabled) and transitions
// the ledger to phase A, ready for RunDay to be called with day 1.
func (s *State) EndSetup() error {
	if s.Policy.InvariantCheckMode != InvariantCheckOff {
		if err := s.CheckInvariants(); err != nil {
			return err
		}
	}
	s.Phase = PhaseA
	return nil
}
