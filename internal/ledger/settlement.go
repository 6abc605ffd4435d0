// Phase B2: settlement of obligations maturing today (spec.md §4.4, L9).
package ledger

import (
	"sort"

	"github.com/closedloop/econsim/internal/domain"
	"github.com/closedloop/econsim/internal/events"
	"github.com/closedloop/econsim/internal/money"
	"github.com/closedloop/econsim/internal/simerr"
)

// maturingObligation is one payable or delivery_obligation due today,
// paired with its resolved debtor for grouping.
type maturingObligation struct {
	id     string
	kind   domain.InstrumentKind
	debtor string
}

func kindPriority(k domain.InstrumentKind) int {
	if k == domain.KindDeliveryObligation {
		return 0
	}
	return 1
}

// RunSettlement executes Phase B2 for the given day: every payable and
// delivery_obligation with due_day == day is grouped by debtor and
// settled per spec.md §4.4.
func (s *State) RunSettlement(day int) error {
	var due []maturingObligation
	for _, iid := range s.instrOrder {
		inst := s.instruments[iid]
		if (inst.Kind == domain.KindPayable || inst.Kind == domain.KindDeliveryObligation) && inst.DueDay == day {
			due = append(due, maturingObligation{id: iid, kind: inst.Kind, debtor: inst.LiabilityIssuerID})
		}
	}
	if len(due) == 0 {
		return nil
	}

	byDebtor := make(map[string][]maturingObligation)
	var debtorOrder []string
	for _, ob := range due {
		if _, seen := byDebtor[ob.debtor]; !seen {
			debtorOrder = append(debtorOrder, ob.debtor)
		}
		byDebtor[ob.debtor] = append(byDebtor[ob.debtor], ob)
	}
	sort.Strings(debtorOrder)

	for _, debtorID := range debtorOrder {
		obs := byDebtor[debtorID]
		sort.Slice(obs, func(i, j int) bool {
			if kindPriority(obs[i].kind) != kindPriority(obs[j].kind) {
				return kindPriority(obs[i].kind) < kindPriority(obs[j].kind)
			}
			return obs[i].id < obs[j].id
		})
		if err := s.settleDebtor(debtorID, obs); err != nil {
			return err
		}
	}
	return nil
}

// settleDebtor processes one debtor's same-day obligations: deliveries
// first (each independent, since they draw on stock rather than the cash
// pool), then payables as a group (full settlement if the pool covers
// total_due, else the pro-rata waterfall).
func (s *State) settleDebtor(debtorID string, obs []maturingObligation) error {
	var payables []maturingObligation
	for _, ob := range obs {
		if ob.kind == domain.KindDeliveryObligation {
			if err := s.settleDelivery(debtorID, ob.id); err != nil {
				return err
			}
			continue
		}
		payables = append(payables, ob)
	}
	if len(payables) == 0 {
		return nil
	}
	return s.settlePayables(debtorID, payables)
}

// settleDelivery transfers the obligation's SKU quantity from debtor to
// creditor if available, else defaults per policy.
func (s *State) settleDelivery(debtorID, obligationID string) error {
	return s.Atomic(func(sc *Scope) error {
		inst, err := s.MustInstrument(obligationID)
		if err != nil {
			return err
		}
		creditorID := inst.EffectiveCreditor()
		debtor, err := s.MustAgent(debtorID)
		if err != nil {
			return err
		}
		available := s.stockBalance(debtorID, inst.SKU)
		if available >= inst.Quantity {
			if err := s.moveStockQuantity(sc, debtor, creditorID, inst.SKU, inst.Quantity); err != nil {
				return err
			}
			sc.TouchAgent(debtorID)
			removeLiability(debtor, obligationID)
			sc.TouchAgent(creditorID)
			if creditor, ok := s.agents[creditorID]; ok {
				removeAsset(creditor, obligationID)
			}
			s.removeInstrument(obligationID)
			s.emit(&events.DeliveryObligationSettledData{
				InstrumentID: obligationID, DebtorID: debtorID, CreditorID: creditorID,
				SKU: inst.SKU, Quantity: inst.Quantity, Defaulted: false,
			})
			return nil
		}
		if s.Policy.DefaultMode == ModeFailFast {
			return &simerr.DefaultError{DebtorID: debtorID, ObligationID: obligationID, AmountDue: int64(inst.Quantity), AmountRaised: int64(available)}
		}
		sc.TouchAgent(debtorID)
		debtor.Defaulted = true
		sc.TouchInstrument(obligationID)
		sc.TouchAgent(creditorID)
		if creditor, ok := s.agents[creditorID]; ok {
			removeAsset(creditor, obligationID)
		}
		removeLiability(debtor, obligationID)
		s.removeInstrument(obligationID)
		s.emit(&events.DeliveryObligationSettledData{
			InstrumentID: obligationID, DebtorID: debtorID, CreditorID: creditorID,
			SKU: inst.SKU, Quantity: inst.Quantity, Defaulted: true,
		})
		s.emit(&events.DefaultEventData{InstrumentID: obligationID, DebtorID: debtorID, CreditorID: creditorID,
			Face: int64(inst.ValuedAmount), Recovered: 0, RecoveryRate: "0"})
		return s.expelAgent(sc, debtorID)
	})
}

func (s *State) stockBalance(ownerID, sku string) int64 {
	var total int64
	owner, ok := s.agents[ownerID]
	if !ok {
		return 0
	}
	for _, sid := range owner.StockIDs {
		lot := s.stocks[sid]
		if lot.SKU == sku {
			total += lot.Quantity
		}
	}
	return total
}

// moveStockQuantity transfers quantity units of sku from debtor to
// toID across as many lots as needed, in lot creation order.
func (s *State) moveStockQuantity(sc *Scope, debtor *domain.Agent, toID, sku string, quantity int64) error {
	remaining := quantity
	ids := append([]string(nil), debtor.StockIDs...)
	for _, sid := range ids {
		if remaining <= 0 {
			break
		}
		lot := s.stocks[sid]
		if lot.SKU != sku {
			continue
		}
		draw := lot.Quantity
		if draw > remaining {
			draw = remaining
		}
		if err := s.TransferStock(sid, toID, draw); err != nil {
			return err
		}
		remaining -= draw
	}
	return nil
}

// settlePayables settles a debtor's full set of same-day payables: either
// everyone is paid in full (pool covers total_due) or the pro-rata
// waterfall runs and the debtor is expelled (spec.md §4.4).
func (s *State) settlePayables(debtorID string, obs []maturingObligation) error {
	if s.Dealer != nil {
		if err := s.Dealer.LiquidateOwnedTickets(s.Day, debtorID); err != nil {
			return err
		}
	}
	return s.Atomic(func(sc *Scope) error {
		type claim struct {
			id         string
			creditorID string
			amount     money.Amount
		}
		claims := make([]claim, 0, len(obs))
		var totalDue money.Amount
		for _, ob := range obs {
			inst, err := s.MustInstrument(ob.id)
			if err != nil {
				return err
			}
			claims = append(claims, claim{id: ob.id, creditorID: inst.EffectiveCreditor(), amount: inst.Amount})
			totalDue = totalDue.Add(inst.Amount)
		}

		pool := s.availableFunds(debtorID)
		if pool >= totalDue {
			for _, c := range claims {
				portions, raised, err := s.raiseFunds(sc, debtorID, c.amount)
				if err != nil {
					return err
				}
				if raised < c.amount {
					return simerr.NewValidation("mop_inconsistent",
						"debtor balance changed unexpectedly between pool check and draw")
				}
				if err := s.settleFromPortions(sc, c.creditorID, portions); err != nil {
					return err
				}
				if err := s.closeOutPayable(sc, c.id, debtorID, c.creditorID, c.amount, true); err != nil {
					return err
				}
			}
			return nil
		}

		// Shortfall across the group.
		if s.Policy.DefaultMode == ModeFailFast {
			first := claims[0]
			return &simerr.DefaultError{DebtorID: debtorID, ObligationID: first.id, AmountDue: int64(totalDue), AmountRaised: int64(pool)}
		}

		portions, raised, err := s.raiseFunds(sc, debtorID, pool)
		if err != nil {
			return err
		}
		rate := money.Ratio(raised, totalDue)

		var distributed money.Amount
		for i, c := range claims {
			var share money.Amount
			if i == len(claims)-1 {
				share = raised - distributed
			} else {
				share = money.FloorAmount(rate.Mul(money.PriceFromInt(int64(c.amount))))
			}
			distributed = distributed.Add(share)
			claimPortions, err := takePortions(&portions, share)
			if err != nil {
				return err
			}
			if err := s.settleFromPortions(sc, c.creditorID, claimPortions); err != nil {
				return err
			}
			if err := s.closeOutPayable(sc, c.id, debtorID, c.creditorID, c.amount, false); err != nil {
				return err
			}
			s.emit(&events.DefaultEventData{
				InstrumentID: c.id, DebtorID: debtorID, CreditorID: c.creditorID,
				Face: int64(c.amount), Recovered: int64(share), RecoveryRate: rate.String(),
			})
		}

		debtor, err := s.MustAgent(debtorID)
		if err != nil {
			return err
		}
		sc.TouchAgent(debtorID)
		debtor.Defaulted = true
		return s.expelAgent(sc, debtorID)
	})
}

// takePortions removes up to `amount` worth of raised funds from the
// front of portions (mutating the slice it points to) and returns them as
// a standalone slice, splitting the boundary portion if needed. This lets
// the single pool raised for a debtor's shortfall be divided among
// several creditors while preserving each slice's (kind, issuer)
// attribution.
func takePortions(portions *[]raisedPortion, amount money.Amount) ([]raisedPortion, error) {
	var taken []raisedPortion
	remaining := amount
	rest := *portions
	i := 0
	for ; i < len(rest) && remaining > 0; i++ {
		p := rest[i]
		if p.Amount <= remaining {
			taken = append(taken, p)
			remaining -= p.Amount
			continue
		}
		taken = append(taken, raisedPortion{Kind: p.Kind, IssuerID: p.IssuerID, Amount: remaining})
		rest[i] = raisedPortion{Kind: p.Kind, IssuerID: p.IssuerID, Amount: p.Amount - remaining}
		remaining = 0
		break
	}
	*portions = rest[i:]
	if remaining > 0 {
		return nil, simerr.NewValidation("waterfall_pool_exhausted", "waterfall pool ran out before every share was distributed")
	}
	return taken, nil
}

// closeOutPayable removes a settled (in full, when allowRollover is true)
// or written-off (under default, when allowRollover is false) payable
// instrument from the ledger and emits PayableSettled, applying rollover
// only on successful full settlement (spec.md §4.4 "on successful
// settlement the debtor issues a fresh payable") and only if the payable
// carried a maturity distance.
func (s *State) closeOutPayable(sc *Scope, payableID, debtorID, creditorID string, faceAmount money.Amount, allowRollover bool) error {
	inst, err := s.MustInstrument(payableID)
	if err != nil {
		return err
	}
	maturityDistance := inst.MaturityDistance
	hasMaturityDistance := inst.HasMaturityDist
	rolled := allowRollover && s.Policy.RolloverEnabled && hasMaturityDistance

	sc.TouchInstrument(payableID)
	if debtor, ok := s.agents[debtorID]; ok {
		sc.TouchAgent(debtorID)
		removeLiability(debtor, payableID)
	}
	if creditor, ok := s.agents[creditorID]; ok {
		sc.TouchAgent(creditorID)
		removeAsset(creditor, payableID)
	}
	s.removeInstrument(payableID)
	s.emit(&events.PayableSettledData{InstrumentID: payableID, DebtorID: debtorID, CreditorID: creditorID, Amount: int64(faceAmount), Rolled: rolled})

	if rolled {
		newDueDay := s.Day + maturityDistance
		if _, err := s.newInstrument(sc, domain.KindPayable, faceAmount, creditorID, debtorID, func(i *domain.Instrument) {
			i.DueDay = newDueDay
			i.MaturityDistance = maturityDistance
			i.HasMaturityDist = true
		}); err != nil {
			return err
		}
		s.emit(&events.PayableCreatedData{DebtorID: debtorID, CreditorID: creditorID, Amount: int64(faceAmount), DueDay: newDueDay})
	}
	return nil
}

// expelAgent marks debtor defaulted (if not already) and writes off every
// remaining instrument in its asset/liability lists: not-yet-due
// liabilities are forgiven and any residual assets are forfeited, rather
// than left dangling, since the defaulted agent is leaving the economy
// (spec.md §4.4 "remove all its remaining asset/liability links").
func (s *State) expelAgent(sc *Scope, debtorID string) error {
	debtor, ok := s.agents[debtorID]
	if !ok {
		return nil
	}
	sc.TouchAgent(debtorID)
	debtor.Defaulted = true

	for _, iid := range append([]string(nil), debtor.LiabilityIDs...) {
		inst, ok := s.instruments[iid]
		if !ok {
			continue
		}
		sc.TouchInstrument(iid)
		if creditor, ok := s.agents[inst.EffectiveCreditor()]; ok {
			sc.TouchAgent(creditor.ID)
			removeAsset(creditor, iid)
		}
		removeLiability(debtor, iid)
		s.removeInstrument(iid)
	}
	for _, iid := range append([]string(nil), debtor.AssetIDs...) {
		inst, ok := s.instruments[iid]
		if !ok {
			continue
		}
		sc.TouchInstrument(iid)
		if issuer, ok := s.agents[inst.LiabilityIssuerID]; ok {
			sc.TouchAgent(issuer.ID)
			removeLiability(issuer, iid)
		}
		removeAsset(debtor, iid)
		s.removeInstrument(iid)
	}
	return nil
}
