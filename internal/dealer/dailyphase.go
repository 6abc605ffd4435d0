package dealer

import (
	"github.com/closedloop/econsim/internal/domain"
	"github.com/closedloop/econsim/internal/events"
	"github.com/closedloop/econsim/internal/money"
	"github.com/closedloop/econsim/internal/simerr"
)

// tickAndRebucket runs spec.md §4.10 steps 1–2: every ticket's
// remaining_tau is decremented, matured tickets are dropped from
// inventory (they settle through their source payable in Phase B2), and
// any ticket whose bucket changed is rebucketed.
func (ds *Subsystem) tickAndRebucket(day int) error {
	for _, tid := range append([]string(nil), ds.ticketOrder...) {
		t, ok := ds.tickets[tid]
		if !ok {
			continue
		}
		prevBucket := t.Recompute(ds.cfg, day)
		if t.Matured() {
			ds.maturedBucket[t.SourcePayableID] = prevBucket
			ds.dropFromInventory(prevBucket, t)
			delete(ds.tickets, tid)
			ds.ticketOrder = removeTicketID(ds.ticketOrder, tid)
			continue
		}
		if t.Bucket != prevBucket && prevBucket != "" {
			if err := ds.rebucket(t, prevBucket); err != nil {
				return err
			}
		}
	}
	return nil
}

func removeTicketID(list []string, target string) []string {
	out := list[:0:0]
	for _, v := range list {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

func (ds *Subsystem) dropFromInventory(bucket string, t *Ticket) {
	bs := ds.buckets[bucket]
	if bs == nil {
		return
	}
	switch t.HolderKind {
	case HolderDealer:
		bs.DealerTickets = removeTicketID(bs.DealerTickets, t.ID)
	case HolderVBT:
		bs.VBTTickets = removeTicketID(bs.VBTTickets, t.ID)
	}
}

// rebucket moves t from its previous bucket's inventory into its new
// bucket's inventory (spec.md §4.10 step 2). A dealer-held ticket trades
// internally at the receiving bucket's mid M'; a VBT-held ticket trades
// at the source bucket's mid M; a trader-held ticket is simply relabeled.
func (ds *Subsystem) rebucket(t *Ticket, prevBucket string) error {
	from := ds.buckets[prevBucket]
	to := ds.buckets[t.Bucket]
	if from == nil || to == nil {
		return nil
	}
	switch t.HolderKind {
	case HolderDealer:
		price := ticketPrice(ds.cfg, to.M, t.Face)
		if err := ds.bridgeTransferCash(to.DealerAgentID, from.DealerAgentID, price); err != nil {
			return err
		}
		if err := ds.bridgeTransferClaim(t, to.DealerAgentID); err != nil {
			return err
		}
		from.DealerCash += price
		to.DealerCash -= price
		from.DealerTickets = removeTicketID(from.DealerTickets, t.ID)
		to.DealerTickets = append(to.DealerTickets, t.ID)
	case HolderVBT:
		price := ticketPrice(ds.cfg, from.M, t.Face)
		if err := ds.bridgeTransferCash(to.VBTAgentID, from.VBTAgentID, price); err != nil {
			return err
		}
		if err := ds.bridgeTransferClaim(t, to.VBTAgentID); err != nil {
			return err
		}
		from.VBTCash += price
		to.VBTCash -= price
		from.VBTTickets = removeTicketID(from.VBTTickets, t.ID)
		to.VBTTickets = append(to.VBTTickets, t.ID)
	}
	ds.ledger.EmitDealerEvent(&events.DealerRebucketData{
		TicketID: t.ID, FromBucket: prevBucket, ToBucket: t.Bucket, HolderKind: string(t.HolderKind),
	})
	return nil
}

// buildEligibility computes spec.md §4.10 step 4's SELL/BUY pools, in
// the deterministic order of cfg.TraderIDs.
func (ds *Subsystem) buildEligibility(day int) (sell, buy []string) {
	for _, id := range ds.cfg.TraderIDs {
		if ds.sellEligible(id, day) {
			sell = append(sell, id)
		}
		if ds.buyEligible(id, day) {
			buy = append(buy, id)
		}
	}
	return sell, buy
}

func (ds *Subsystem) sellEligible(traderID string, day int) bool {
	if ds.traderTicketCount(traderID) == 0 {
		return false
	}
	h := ds.cfg.TraderPolicy.HorizonH
	duesWithinHorizon := ds.liabilitiesDueWithin(traderID, day, h)
	expected := ds.liquidFunds(traderID) + ds.claimsMaturingWithin(traderID, day, h)
	return duesWithinHorizon > expected
}

func (ds *Subsystem) buyEligible(traderID string, day int) bool {
	if ds.liquidFunds(traderID) <= ds.cfg.TraderPolicy.BufferB {
		return false
	}
	next := ds.nextLiabilityDue(traderID, day)
	return next < 0 || next >= ds.cfg.TraderPolicy.HorizonH
}

func (ds *Subsystem) traderTicketCount(traderID string) int {
	n := 0
	for _, tid := range ds.ticketOrder {
		if ds.tickets[tid].OwnerID == traderID {
			n++
		}
	}
	return n
}

func (ds *Subsystem) liquidFunds(agentID string) money.Amount {
	a, ok := ds.ledger.Agent(agentID)
	if !ok {
		return 0
	}
	var total money.Amount
	for _, iid := range a.AssetIDs {
		inst, ok := ds.ledger.Instrument(iid)
		if !ok {
			continue
		}
		if inst.Kind.IsCashlike() {
			total += inst.Amount
		}
	}
	return total
}

func (ds *Subsystem) liabilitiesDueWithin(agentID string, day, horizon int) money.Amount {
	a, ok := ds.ledger.Agent(agentID)
	if !ok {
		return 0
	}
	var total money.Amount
	for _, iid := range a.LiabilityIDs {
		inst, ok := ds.ledger.Instrument(iid)
		if !ok || inst.Kind != domain.KindPayable {
			continue
		}
		if inst.DueDay-day >= 0 && inst.DueDay-day <= horizon {
			total += inst.Amount
		}
	}
	return total
}

func (ds *Subsystem) claimsMaturingWithin(agentID string, day, horizon int) money.Amount {
	a, ok := ds.ledger.Agent(agentID)
	if !ok {
		return 0
	}
	var total money.Amount
	for _, iid := range a.AssetIDs {
		inst, ok := ds.ledger.Instrument(iid)
		if !ok {
			continue
		}
		if inst.DueDay-day >= 0 && inst.DueDay-day <= horizon {
			total += inst.Amount
		}
	}
	return total
}

// SafetyMargin returns a trader's projected cash position against its
// horizon-window obligations: expected liquid funds plus incoming
// maturities, minus dues within the same window (the quantity
// sellEligible's shortfall test compares against zero). Exposed for the
// metrics layer's "trader safety margins" report (spec.md §6).
func (ds *Subsystem) SafetyMargin(traderID string, day int) money.Amount {
	h := ds.cfg.TraderPolicy.HorizonH
	expected := ds.liquidFunds(traderID) + ds.claimsMaturingWithin(traderID, day, h)
	dues := ds.liabilitiesDueWithin(traderID, day, h)
	return expected - dues
}

func (ds *Subsystem) nextLiabilityDue(agentID string, day int) int {
	a, ok := ds.ledger.Agent(agentID)
	if !ok {
		return -1
	}
	best := -1
	for _, iid := range a.LiabilityIDs {
		inst, ok := ds.ledger.Instrument(iid)
		if !ok || inst.DueDay < day {
			continue
		}
		d := inst.DueDay - day
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}

// runOrderFlow draws arrivals and executes them via the trade executor
// (spec.md §4.10 step 5). All draws come from the subsystem's single
// seeded PRNG in the documented order: arrival count, then per-arrival
// direction, then participant.
func (ds *Subsystem) runOrderFlow(day int, sellPool, buyPool []string) error {
	n := ds.rng.IntN(ds.cfg.OrderFlow.NMax) + 1
	for i := 0; i < n; i++ {
		if len(sellPool) == 0 && len(buyPool) == 0 {
			break
		}
		piSell, _ := ds.cfg.OrderFlow.PiSell.Decimal().Float64()
		isSell := ds.rng.Float64() < piSell

		if isSell && len(sellPool) == 0 {
			isSell = false
		}
		if !isSell && len(buyPool) == 0 {
			isSell = true
		}

		if isSell {
			idx := ds.rng.IntN(len(sellPool))
			trader := sellPool[idx]
			// A declined offer is a no-op: the eligible set is left
			// unchanged, so the same trader may be drawn on a later arrival.
			if !ds.sellRejectedByRisk(day, trader) {
				if err := ds.executeSell(day, trader); err != nil {
					return err
				}
			}
			if !ds.sellEligible(trader, day) {
				sellPool = removeTicketID(sellPool, trader)
			}
		} else {
			idx := ds.rng.IntN(len(buyPool))
			trader := buyPool[idx]
			if !ds.buyRejectedByRisk(day, trader) {
				if err := ds.executeBuy(day, trader); err != nil {
					return err
				}
			}
			if !ds.buyEligible(trader, day) {
				buyPool = removeTicketID(buyPool, trader)
			}
		}
	}
	return nil
}

var errNoInventory = simerr.NewValidation("dealer_empty_inventory",
	"no bucket had inventory available for this arrival")

// traderShortfall returns a trader's immediate payment shortfall:
// max(0, obligations due today - liquid cash).
func (ds *Subsystem) traderShortfall(traderID string, day int) money.Price {
	due := ds.liabilitiesDueWithin(traderID, day, 0)
	cash := ds.liquidFunds(traderID)
	if due <= cash {
		return money.Zero
	}
	return money.PriceFromInt(int64(due - cash))
}

// traderAssetValue sums the risk assessor's expected value of every
// ticket traderID owns, for the urgency-threshold calculation.
func (ds *Subsystem) traderAssetValue(traderID string, day int) money.Price {
	total := money.Zero
	for _, tid := range ds.ticketOrder {
		t := ds.tickets[tid]
		if t.OwnerID == traderID {
			total = total.Add(ds.risk.ExpectedValue(t, day))
		}
	}
	return total
}

// sellRejectedByRisk reports whether the risk-assessment gate declines
// the SELL that executeSell would otherwise perform for trader (spec.md
// §4.9, extended). Always false when no risk assessor is configured.
func (ds *Subsystem) sellRejectedByRisk(day int, traderID string) bool {
	if ds.risk == nil {
		return false
	}
	t := ds.pickTraderTicket(traderID)
	if t == nil {
		return false
	}
	bs := ds.buckets[t.Bucket]
	if bs == nil {
		return false
	}
	cash := money.PriceFromInt(int64(ds.liquidFunds(traderID)))
	shortfall := ds.traderShortfall(traderID, day)
	assetValue := ds.traderAssetValue(traderID, day)
	accepted := ds.risk.ShouldSell(t, bs.Bid, day, cash, shortfall, assetValue)
	if !accepted {
		ds.ledger.EmitDealerEvent(&events.DealerOrderRejectedData{
			Bucket: bs.Name, Side: "sell", TraderID: traderID, TicketID: t.ID,
			OfferedPrice: bs.Bid.String(), ExpectedValue: ds.risk.ExpectedValue(t, day).String(),
			Reason: "price_below_ev_plus_threshold",
		})
	}
	return !accepted
}

// pickBuyCandidate mirrors executeBuy's bucket scan without mutating any
// state, so the risk gate can evaluate the exact ticket and price
// executeBuy would trade at before committing to the trade.
func (ds *Subsystem) pickBuyCandidate() (*Ticket, money.Price) {
	for _, name := range ds.bucketOrder {
		bs := ds.buckets[name]
		interiorSellFeasible := bs.X >= ds.cfg.TicketSize && bs.XStar > 0 && len(bs.DealerTickets) > 0
		if !interiorSellFeasible {
			continue
		}
		return ds.tickets[bs.DealerTickets[0]], bs.Ask
	}
	for _, name := range ds.bucketOrder {
		bs := ds.buckets[name]
		if len(bs.VBTTickets) == 0 {
			continue
		}
		return ds.tickets[bs.VBTTickets[0]], bs.A
	}
	return nil, money.Zero
}

// buyRejectedByRisk reports whether the risk-assessment gate declines
// the BUY that executeBuy would otherwise perform for traderID.
func (ds *Subsystem) buyRejectedByRisk(day int, traderID string) bool {
	if ds.risk == nil {
		return false
	}
	t, ask := ds.pickBuyCandidate()
	if t == nil {
		return false
	}
	accepted := ds.risk.ShouldBuy(t, ask, day)
	if !accepted {
		ds.ledger.EmitDealerEvent(&events.DealerOrderRejectedData{
			Bucket: t.Bucket, Side: "buy", TraderID: traderID, TicketID: t.ID,
			OfferedPrice: ask.String(), ExpectedValue: ds.risk.ExpectedValue(t, day).String(),
			Reason: "cost_exceeds_ev_minus_threshold",
		})
	}
	return !accepted
}
