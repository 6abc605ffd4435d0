package dealer

import "github.com/closedloop/econsim/internal/money"

// bridgeTransferCash and bridgeTransferClaim mirror one leg of a dealer-
// side trade into the ledger (spec.md §4.11). Each ledger call is already
// its own atomic scope (ledger.State.TransferCash/TransferClaim wrap
// State.Atomic internally), and atomic scopes in this single-threaded
// core do not nest (ledger/atomic.go). The executor therefore performs
// its own feasibility pre-check (mirroring kernel conservation checks C1/
// C3/C4) before calling the bridge, and only updates the subsystem's own
// bucket/ticket bookkeeping *after* the bridge call succeeds — so a
// failed bridge call (which should never happen given the pre-check)
// leaves both the ledger and the dealer's local state exactly as they
// were, preserving the "same atomic scope" conservation spec.md asks for
// in practice without requiring Scope to snapshot dealer-internal state.
func (ds *Subsystem) bridgeTransferCash(from, to string, amount money.Amount) error {
	if amount <= 0 {
		return nil
	}
	return ds.ledger.TransferCash(from, to, amount)
}

func (ds *Subsystem) bridgeTransferClaim(t *Ticket, to string) error {
	if t.OwnerID == to {
		return nil
	}
	if err := ds.ledger.TransferClaim(t.SourcePayableID, to); err != nil {
		return err
	}
	t.OwnerID = to
	return nil
}

// ticketPrice scales a per-unit kernel quote (expressed per TicketSize
// face) by a ticket's actual face, so a variable-face ticket (spec.md
// §4.7 "or a ticket of fixed face S") still prices proportionally to the
// uniform per-S quote the kernel computes.
func ticketPrice(cfg *Config, quote money.Price, face money.Amount) money.Amount {
	if cfg.TicketSize <= 0 {
		return money.RoundAmount(quote)
	}
	ratio := money.Ratio(face, cfg.TicketSize)
	return money.RoundAmount(quote.Mul(ratio))
}
