package dealer

import (
	"fmt"

	"github.com/closedloop/econsim/internal/money"
	"github.com/closedloop/econsim/internal/simerr"
)

// CheckInvariants verifies I7/I8 and the static quote/equity identities
// D-C2/D-C5 (spec.md §3, §7) against the subsystem's own ticket registry
// and bucket records. Conservation (D-C1), feasibility-matches-execution
// (D-C3), and passthrough invariance (D-C4) are properties of individual
// trades rather than of the resting state, and are exercised by the
// executor's own pre-checks and by tests rather than by a standing scan.
func (ds *Subsystem) CheckInvariants() error {
	if err := ds.checkTicketOwnership(); err != nil {
		return err
	}
	if err := ds.checkTicketConservation(); err != nil {
		return err
	}
	return ds.checkBucketIdentities()
}

// checkTicketOwnership verifies I7: a ticket's owner agrees with its
// source payable's effective creditor whenever the payable still exists
// (it may have already settled out of the ledger if the ticket matured
// this tick and tickAndRebucket hasn't dropped it yet).
func (ds *Subsystem) checkTicketOwnership() error {
	for _, tid := range ds.ticketOrder {
		t := ds.tickets[tid]
		inst, ok := ds.ledger.Instrument(t.SourcePayableID)
		if !ok {
			continue
		}
		if inst.EffectiveCreditor() != t.OwnerID {
			return simerr.NewValidation("dealer_ticket_owner_mismatch",
				fmt.Sprintf("ticket %s owner %s != payable %s effective creditor %s",
					t.ID, t.OwnerID, t.SourcePayableID, inst.EffectiveCreditor()))
		}
	}
	return nil
}

// checkTicketConservation verifies I8: every live ticket appears in
// exactly one bucket's dealer or VBT inventory list when its holder is
// the dealer or VBT, and in none when a trader holds it.
func (ds *Subsystem) checkTicketConservation() error {
	located := make(map[string]int)
	for _, name := range ds.bucketOrder {
		bs := ds.buckets[name]
		for _, tid := range bs.DealerTickets {
			located[tid]++
		}
		for _, tid := range bs.VBTTickets {
			located[tid]++
		}
	}
	for _, tid := range ds.ticketOrder {
		t := ds.tickets[tid]
		count := located[tid]
		switch t.HolderKind {
		case HolderDealer, HolderVBT:
			if count != 1 {
				return simerr.NewValidation("dealer_ticket_not_conserved",
					fmt.Sprintf("ticket %s held by %s appears in %d bucket inventories, want 1", tid, t.HolderKind, count))
			}
		case HolderTrader:
			if count != 0 {
				return simerr.NewValidation("dealer_ticket_not_conserved",
					fmt.Sprintf("ticket %s held by a trader still appears in %d bucket inventories", tid, count))
			}
		}
	}
	return nil
}

// checkBucketIdentities verifies D-C2 (quote bounds and pin consistency)
// and D-C5 (the equity identity V = C + M·a) for every bucket, using the
// values as of the bucket's last Recompute.
func (ds *Subsystem) checkBucketIdentities() error {
	for _, name := range ds.bucketOrder {
		bs := ds.buckets[name]
		if bs.Bid.LessThan(bs.B) {
			return simerr.NewValidation("dealer_bid_below_outside",
				fmt.Sprintf("bucket %s bid %s < outside B %s", name, bs.Bid, bs.B))
		}
		if bs.Ask.GreaterThan(bs.A) {
			return simerr.NewValidation("dealer_ask_above_outside",
				fmt.Sprintf("bucket %s ask %s > outside A %s", name, bs.Ask, bs.A))
		}
		if bs.PinnedBid != bs.Bid.Equal(bs.B) {
			return simerr.NewValidation("dealer_pin_bid_inconsistent",
				fmt.Sprintf("bucket %s is_pinned_bid=%v but bid==B is %v", name, bs.PinnedBid, bs.Bid.Equal(bs.B)))
		}
		if bs.PinnedAsk != bs.Ask.Equal(bs.A) {
			return simerr.NewValidation("dealer_pin_ask_inconsistent",
				fmt.Sprintf("bucket %s is_pinned_ask=%v but ask==A is %v", name, bs.PinnedAsk, bs.Ask.Equal(bs.A)))
		}
		if bs.Guarded {
			continue
		}
		a := money.PriceFromInt(int64(len(bs.DealerTickets)))
		wantV := bs.M.Mul(a).Add(money.PriceFromInt(int64(bs.DealerCash)))
		if !bs.V.Equal(wantV) {
			return simerr.NewValidation("dealer_equity_identity_violated",
				fmt.Sprintf("bucket %s V=%s but C+M*a=%s", name, bs.V, wantV))
		}
	}
	return nil
}
