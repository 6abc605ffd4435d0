// Package scenario is the "surrounding code" spec.md §6 describes:
// "the core exposes a programmatic API; surrounding code converts files
// to and from it." Scenario file parsing is explicitly out of the
// deterministic core's scope (spec.md §1, actions.go's doc comment), so
// it lives here rather than in package ledger — a thin JSON decoder that
// builds the ledger.State, the optional dealer.Subsystem, and the run
// parameters a driver needs, then gets out of the way.
//
// Grounded on the teacher's own JSON-facing handlers (encoding/json
// throughout trader-go/internal/modules/*/handlers.go) for the decoding
// style, and on internal/config/config.go for the "load, validate, then
// build the thing the rest of the program wants" shape.
package scenario

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/closedloop/econsim/internal/dealer"
	"github.com/closedloop/econsim/internal/domain"
	"github.com/closedloop/econsim/internal/ledger"
	"github.com/closedloop/econsim/internal/money"
)

// File is the top-level structure of spec.md §6's "Scenario input".
type File struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Version     int         `json:"version"`
	Agents      []AgentSpec `json:"agents"`

	InitialActions   []ActionSpec          `json:"initial_actions"`
	ScheduledActions []ScheduledActionSpec `json:"scheduled_actions,omitempty"`

	PolicyOverrides *PolicyOverrides `json:"policy_overrides,omitempty"`
	Dealer          *DealerSpec      `json:"dealer,omitempty"`
	Run             RunSpec          `json:"run"`
}

// AgentSpec describes one scenario-defined economic participant.
type AgentSpec struct {
	ID   string           `json:"id"`
	Kind domain.AgentKind `json:"kind"`
	Name string           `json:"name"`
}

// ScheduledActionSpec pairs a day with an action.
type ScheduledActionSpec struct {
	Day    int        `json:"day"`
	Action ActionSpec `json:"action"`
}

// PolicyOverrides carries spec.md §6's "e.g. per-kind MOP rank" — the one
// named example, and the only override this type carries.
type PolicyOverrides struct {
	MOPRank map[domain.AgentKind][]domain.InstrumentKind `json:"mop_rank,omitempty"`
}

// RunSpec is spec.md §6's "run" block: the outer stop conditions.
type RunSpec struct {
	Mode            string `json:"mode"` // "step" or "until_stable"
	MaxDays         int    `json:"max_days"`
	QuietDays       int    `json:"quiet_days"`
	DefaultHandling string `json:"default_handling"` // "fail-fast" or "expel-agent"
	RolloverEnabled bool   `json:"rollover_enabled"`
}

// Load reads and JSON-decodes a scenario file from path. It does not
// validate or build anything; call Validate and Build after.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("scenario: parse %s: %w", path, err)
	}
	return &f, nil
}

// Validate rejects a scenario that cannot possibly build: wrong version,
// duplicate agent ids, or a scheduled action referencing a day before the
// sim can reach it.
func (f *File) Validate() error {
	if f.Version != 1 {
		return fmt.Errorf("scenario: unsupported version %d (must be 1)", f.Version)
	}
	seen := make(map[string]bool, len(f.Agents))
	for _, a := range f.Agents {
		if a.ID == "" {
			return fmt.Errorf("scenario: agent with empty id")
		}
		if seen[a.ID] {
			return fmt.Errorf("scenario: duplicate agent id %q", a.ID)
		}
		seen[a.ID] = true
	}
	for _, sa := range f.ScheduledActions {
		if sa.Day < 1 {
			return fmt.Errorf("scenario: scheduled action day must be >= 1, got %d", sa.Day)
		}
	}
	switch f.Run.Mode {
	case "step", "until_stable":
	default:
		return fmt.Errorf("scenario: unknown run mode %q", f.Run.Mode)
	}
	return nil
}

// parseAmount converts a decimal-string scenario amount to an integer
// minor-unit money.Amount (spec.md §6: "amounts are decimal strings that
// the loader converts to integer minor units"). Non-finite/non-decimal
// strings are rejected by money.PriceFromString itself.
func parseAmount(s string) (money.Amount, error) {
	p, err := money.PriceFromString(s)
	if err != nil {
		return 0, err
	}
	return money.RoundAmount(p), nil
}

// BuildLedger creates every scenario-defined agent, in order, on a fresh
// ledger.State already past StartSetup.
func (f *File) BuildLedger(s *ledger.State) error {
	for _, a := range f.Agents {
		if _, err := s.CreateAgent(a.ID, a.Name, a.Kind); err != nil {
			return fmt.Errorf("scenario: create agent %s: %w", a.ID, err)
		}
	}
	for i, as := range f.InitialActions {
		action, err := as.Build()
		if err != nil {
			return fmt.Errorf("scenario: initial_actions[%d]: %w", i, err)
		}
		if err := action.Apply(s); err != nil {
			return fmt.Errorf("scenario: initial_actions[%d] (%s): %w", i, as.Type, err)
		}
	}
	return nil
}

// ScheduledLedgerActions converts every scheduled_actions entry into a
// ledger.ScheduledAction, preserving declaration order within a day.
func (f *File) ScheduledLedgerActions() ([]ledger.ScheduledAction, error) {
	out := make([]ledger.ScheduledAction, 0, len(f.ScheduledActions))
	for i, sa := range f.ScheduledActions {
		action, err := sa.Action.Build()
		if err != nil {
			return nil, fmt.Errorf("scenario: scheduled_actions[%d]: %w", i, err)
		}
		out = append(out, ledger.ScheduledAction{Day: sa.Day, Action: action})
	}
	return out, nil
}

// ApplyPolicyOverrides layers policy_overrides onto a base Policy,
// returning the same Policy value for chaining.
func (f *File) ApplyPolicyOverrides(p *ledger.Policy) *ledger.Policy {
	if f.PolicyOverrides == nil {
		return p
	}
	if f.PolicyOverrides.MOPRank != nil {
		if p.MOPRank == nil {
			p.MOPRank = make(map[domain.AgentKind][]domain.InstrumentKind)
		}
		for kind, rank := range f.PolicyOverrides.MOPRank {
			p.MOPRank[kind] = rank
		}
	}
	return p
}

// BuildDealerConfig converts the optional dealer block into a
// dealer.Config, or returns nil if the scenario has no dealer block or
// dealer.enabled is false.
func (f *File) BuildDealerConfig(seed uint64) (*dealer.Config, error) {
	if f.Dealer == nil || !f.Dealer.Enabled {
		return nil, nil
	}
	return f.Dealer.build(seed)
}
