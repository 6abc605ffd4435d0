// Trade executor (spec.md §4.9, D4): customer SELL (customer hands the
// dealer a ticket, receives cash) and customer BUY (customer receives a
// ticket, pays cash), each either filled against the dealer's own book
// (interior) or passed through to the bucket's VBT at its outside quote.
//
// Feasibility naming follows spec.md §4.9 literally, which states each
// check from the *dealer's* side of the trade: a customer SELL is an
// "interior BUY" for the dealer (the dealer takes on the ticket), and a
// customer BUY is an "interior SELL" for the dealer (the dealer gives up
// a ticket it already holds).
package dealer

import (
	"sort"

	"github.com/closedloop/econsim/internal/events"
	"github.com/closedloop/econsim/internal/money"
)

// pickTraderTicket selects the ticket traderID will sell: lowest
// maturity_day, then lowest serial (spec.md §4.9's tie-break rule,
// applied symmetrically to the customer's own side of the trade).
func (ds *Subsystem) pickTraderTicket(traderID string) *Ticket {
	var owned []*Ticket
	for _, tid := range ds.ticketOrder {
		t := ds.tickets[tid]
		if t.OwnerID == traderID {
			owned = append(owned, t)
		}
	}
	if len(owned) == 0 {
		return nil
	}
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].MaturityDay != owned[j].MaturityDay {
			return owned[i].MaturityDay < owned[j].MaturityDay
		}
		return owned[i].Serial < owned[j].Serial
	})
	return owned[0]
}

// executeSell runs a customer SELL: traderID gives up one ticket and
// receives cash (spec.md §4.9).
func (ds *Subsystem) executeSell(day int, traderID string) error {
	t := ds.pickTraderTicket(traderID)
	if t == nil {
		return nil
	}
	bs := ds.buckets[t.Bucket]
	if bs == nil {
		return nil
	}

	interiorBuyFeasible := bs.X+ds.cfg.TicketSize <= bs.XStar && amountAtLeast(bs.DealerCash, bs.Bid)
	if interiorBuyFeasible {
		price := ticketPrice(ds.cfg, bs.Bid, t.Face)
		if err := ds.bridgeTransferCash(bs.DealerAgentID, traderID, price); err != nil {
			return err
		}
		if err := ds.bridgeTransferClaim(t, bs.DealerAgentID); err != nil {
			return err
		}
		bs.DealerCash -= price
		t.HolderKind = HolderDealer
		bs.DealerTickets = append(bs.DealerTickets, t.ID)
		ds.emitTrade(day, bs, "sell", traderID, t, price, false)
		bs.Recompute(ds.cfg)
		return nil
	}

	price := ticketPrice(ds.cfg, bs.B, t.Face)
	if err := ds.bridgeTransferCash(bs.VBTAgentID, traderID, price); err != nil {
		return err
	}
	if err := ds.bridgeTransferClaim(t, bs.VBTAgentID); err != nil {
		return err
	}
	t.HolderKind = HolderVBT
	bs.VBTTickets = append(bs.VBTTickets, t.ID)
	ds.emitTrade(day, bs, "sell", traderID, t, price, true)
	return nil
}

// executeBuy runs a customer BUY: traderID receives one ticket and pays
// cash (spec.md §4.9). The bucket to trade from is the first configured
// bucket (in order) whose dealer book can fill the order interior;
// failing that, the first bucket whose VBT has inventory to pass through.
func (ds *Subsystem) executeBuy(day int, traderID string) error {
	for _, name := range ds.bucketOrder {
		bs := ds.buckets[name]
		interiorSellFeasible := bs.X >= ds.cfg.TicketSize && bs.XStar > 0 && len(bs.DealerTickets) > 0
		if !interiorSellFeasible {
			continue
		}
		t := ds.tickets[bs.DealerTickets[0]]
		price := ticketPrice(ds.cfg, bs.Ask, t.Face)
		if err := ds.bridgeTransferCash(traderID, bs.DealerAgentID, price); err != nil {
			return err
		}
		if err := ds.bridgeTransferClaim(t, traderID); err != nil {
			return err
		}
		bs.DealerCash += price
		bs.DealerTickets = removeTicketID(bs.DealerTickets, t.ID)
		t.HolderKind = HolderTrader
		ds.emitTrade(day, bs, "buy", traderID, t, price, false)
		bs.Recompute(ds.cfg)
		return nil
	}

	for _, name := range ds.bucketOrder {
		bs := ds.buckets[name]
		if len(bs.VBTTickets) == 0 {
			continue
		}
		t := ds.tickets[bs.VBTTickets[0]]
		price := ticketPrice(ds.cfg, bs.A, t.Face)
		if err := ds.bridgeTransferCash(traderID, bs.VBTAgentID, price); err != nil {
			return err
		}
		if err := ds.bridgeTransferClaim(t, traderID); err != nil {
			return err
		}
		bs.VBTTickets = removeTicketID(bs.VBTTickets, t.ID)
		t.HolderKind = HolderTrader
		ds.emitTrade(day, bs, "buy", traderID, t, price, true)
		return nil
	}

	return errNoInventory
}

// LiquidateOwnedTickets forcibly sells every ticket ownerID holds into
// its bucket's dealer (or, failing dealer capacity, VBT) book at the
// prevailing bid, crediting ownerID in cash. Called by the ledger's
// partial-recovery waterfall (spec.md §4.4 "its tickets/claims
// liquidated at the prevailing dealer bid when a dealer subsystem
// exists") before it pools a defaulting debtor's liquid assets. A ticket
// whose bucket has no liquidity in either book is left with ownerID and
// simply does not join the pool this round.
func (ds *Subsystem) LiquidateOwnedTickets(day int, ownerID string) error {
	for _, tid := range append([]string(nil), ds.ticketOrder...) {
		t, ok := ds.tickets[tid]
		if !ok || t.OwnerID != ownerID {
			continue
		}
		bs := ds.buckets[t.Bucket]
		if bs == nil {
			continue
		}
		if err := ds.liquidateTicket(day, bs, t, ownerID); err != nil {
			return err
		}
	}
	return nil
}

func (ds *Subsystem) liquidateTicket(day int, bs *BucketState, t *Ticket, ownerID string) error {
	interiorFeasible := bs.X+ds.cfg.TicketSize <= bs.XStar && amountAtLeast(bs.DealerCash, bs.Bid)
	switch {
	case interiorFeasible:
		price := ticketPrice(ds.cfg, bs.Bid, t.Face)
		if err := ds.bridgeTransferCash(bs.DealerAgentID, ownerID, price); err != nil {
			return err
		}
		if err := ds.bridgeTransferClaim(t, bs.DealerAgentID); err != nil {
			return err
		}
		bs.DealerCash -= price
		t.HolderKind = HolderDealer
		bs.DealerTickets = append(bs.DealerTickets, t.ID)
		ds.emitLiquidation(bs, ownerID, t, price, false)
		bs.Recompute(ds.cfg)
	case amountAtLeast(bs.VBTCash, bs.B):
		price := ticketPrice(ds.cfg, bs.B, t.Face)
		if err := ds.bridgeTransferCash(bs.VBTAgentID, ownerID, price); err != nil {
			return err
		}
		if err := ds.bridgeTransferClaim(t, bs.VBTAgentID); err != nil {
			return err
		}
		bs.VBTCash -= price
		t.HolderKind = HolderVBT
		bs.VBTTickets = append(bs.VBTTickets, t.ID)
		ds.emitLiquidation(bs, ownerID, t, price, true)
	default:
		// Neither book has the liquidity to absorb this ticket today.
	}
	return nil
}

func (ds *Subsystem) emitLiquidation(bs *BucketState, ownerID string, t *Ticket, price money.Amount, passthrough bool) {
	ds.ledger.EmitDealerEvent(&events.DealerLiquidationData{
		Bucket: bs.Name, OwnerID: ownerID, TicketID: t.ID,
		Price: money.PriceFromInt(int64(price)).String(), Passthrough: passthrough,
	})
}

func (ds *Subsystem) emitTrade(day int, bs *BucketState, side, traderID string, t *Ticket, price money.Amount, passthrough bool) {
	ds.ledger.EmitDealerEvent(&events.DealerTradeData{
		Bucket: bs.Name, Side: side, TraderID: traderID, DealerID: bs.DealerAgentID,
		TicketID: t.ID, Price: money.PriceFromInt(int64(price)).String(),
		Passthrough: passthrough,
	})
}
