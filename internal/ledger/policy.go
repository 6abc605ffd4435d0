package ledger

import "github.com/closedloop/econsim/internal/domain"

// DefaultMode selects what happens when a debtor cannot meet an
// obligation after the means-of-payment selector is exhausted (spec.md
// §4.4, §7).
type DefaultMode string

const (
	ModeFailFast   DefaultMode = "fail-fast"
	ModeExpelAgent DefaultMode = "expel-agent"
)

// Policy collects every configurable knob of the core into one read-only
// value built once by the driver (spec.md §9: "Dynamic config objects →
// an explicit policy struct"). It is consulted but never mutated once a
// simulation starts.
type Policy struct {
	// MOPRank is the per-agent-kind ordered preference list of
	// instrument kinds used to discharge an obligation (spec.md §4.3).
	// A nil or missing entry falls back to DefaultMOPRank.
	MOPRank map[domain.AgentKind][]domain.InstrumentKind

	DefaultMode     DefaultMode
	RolloverEnabled bool

	// InvariantCheckMode controls when the invariant checker runs inside
	// an atomic scope: "off", "commit" (after every commit), or "daily"
	// (once at the end of each day). See spec.md §4.1.
	InvariantCheckMode string
}

const (
	InvariantCheckOff    = "off"
	InvariantCheckCommit = "commit"
	InvariantCheckDaily  = "daily"
)

// DefaultMOPRank returns the default means-of-payment preference order
// for the given debtor kind, per spec.md §4.3.
func DefaultMOPRank(kind domain.AgentKind) []domain.InstrumentKind {
	switch kind {
	case domain.KindHousehold, domain.KindFirm, domain.KindDealer, domain.KindVBT:
		return []domain.InstrumentKind{domain.KindBankDeposit, domain.KindCash}
	case domain.KindBank:
		return []domain.InstrumentKind{domain.KindReserveDeposit}
	case domain.KindCentralBank:
		return []domain.InstrumentKind{domain.KindReserveDeposit}
	case domain.KindTreasury:
		return []domain.InstrumentKind{domain.KindReserveDeposit, domain.KindBankDeposit}
	default:
		return []domain.InstrumentKind{domain.KindBankDeposit, domain.KindCash}
	}
}

// RankFor returns the effective MOP preference order for kind, applying
// the policy override if present.
func (p *Policy) RankFor(kind domain.AgentKind) []domain.InstrumentKind {
	if p != nil && p.MOPRank != nil {
		if r, ok := p.MOPRank[kind]; ok && len(r) > 0 {
			return r
		}
	}
	return DefaultMOPRank(kind)
}

// NewDefaultPolicy returns a Policy with spec.md's documented defaults:
// expel-agent default handling is NOT assumed here — callers must choose;
// this constructor picks fail-fast as the conservative default and
// invariant checks on commit, matching "configurable as off / on-commit /
// daily" with on-commit as the safest default for a freshly authored
// scenario.
func NewDefaultPolicy() *Policy {
	return &Policy{
		DefaultMode:        ModeFailFast,
		RolloverEnabled:    false,
		InvariantCheckMode: InvariantCheckCommit,
	}
}
