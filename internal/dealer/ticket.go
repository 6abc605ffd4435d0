package dealer

import "github.com/closedloop/econsim/internal/money"

// HolderKind tags which participant class currently holds a ticket
// (spec.md §4.7's {dealers, VBTs, traders} split).
type HolderKind string

const (
	HolderDealer HolderKind = "dealer"
	HolderVBT    HolderKind = "vbt"
	HolderTrader HolderKind = "trader"
)

// Ticket is a tradable unit-face representation of a payable within the
// dealer subsystem (spec.md §3 "Tickets", GLOSSARY "Ticket").
type Ticket struct {
	ID     string
	Serial uint64 // monotonic, assigned at creation; used for tie-breaks

	// SourcePayableID is the ledger payable this ticket represents the
	// claim against; transfer_claim on this id mirrors every ownership
	// change (spec.md §4.11).
	SourcePayableID string
	IssuerID        string // debtor of the source payable

	OwnerID    string // current holder agent id
	HolderKind HolderKind

	Face        money.Amount
	MaturityDay int

	RemainingTau int
	Bucket       string // "" once matured (RemainingTau <= 0)
}

// Recompute refreshes RemainingTau and Bucket for day (spec.md §4.10
// step 1 "maturity tick" and §4.7 "Bucket assignment is recomputed after
// every day-rollover and maturity decrement"). Returns the previous
// bucket so the caller can detect a bucket change for rebucketing.
func (t *Ticket) Recompute(cfg *Config, day int) (previousBucket string) {
	previousBucket = t.Bucket
	if t.MaturityDay-day <= 0 {
		t.RemainingTau = 0
	} else {
		t.RemainingTau = t.MaturityDay - day
	}
	t.Bucket = cfg.BucketFor(t.RemainingTau)
	return previousBucket
}

// Matured reports whether the ticket has reached its source payable's
// due day and should be handed back to Phase B2 (spec.md §4.10 step 1).
func (t *Ticket) Matured() bool { return t.RemainingTau <= 0 }
