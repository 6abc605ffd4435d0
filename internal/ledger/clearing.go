// Phase C: interbank clearing/netting (spec.md §4.5, L10).
package ledger

import (
	"sort"

	"github.com/closedloop/econsim/internal/domain"
	"github.com/closedloop/econsim/internal/events"
	"github.com/closedloop/econsim/internal/money"
)

type bankPair struct{ a, b string }

func orderedPair(x, y string) bankPair {
	if x <= y {
		return bankPair{x, y}
	}
	return bankPair{y, x}
}

// RunClearing nets every pair of banks with offsetting interbank_overnight
// instruments due today: the smaller is fully absorbed, the larger is
// reduced by it, and the residual (if any) settles immediately via a
// reserve transfer before being removed. Clearing never creates new
// obligations (spec.md §4.5).
func (s *State) RunClearing(day int) error {
	return s.Atomic(func(sc *Scope) error {
		grouped := make(map[bankPair][]string)
		var pairOrder []bankPair
		for _, iid := range s.instrOrder {
			inst := s.instruments[iid]
			if inst.Kind != domain.KindInterbankOvernight || inst.DueDay != day {
				continue
			}
			p := orderedPair(inst.DebtorBankID, inst.CreditorBankID)
			if _, seen := grouped[p]; !seen {
				pairOrder = append(pairOrder, p)
			}
			grouped[p] = append(grouped[p], iid)
		}
		sort.Slice(pairOrder, func(i, j int) bool {
			if pairOrder[i].a != pairOrder[j].a {
				return pairOrder[i].a < pairOrder[j].a
			}
			return pairOrder[i].b < pairOrder[j].b
		})

		for _, p := range pairOrder {
			ids := grouped[p]
			sort.Strings(ids)
			var netAB, netBA money.Amount // a owes b, b owes a
			for _, iid := range ids {
				inst := s.instruments[iid]
				if inst.DebtorBankID == p.a {
					netAB = netAB.Add(inst.Amount)
				} else {
					netBA = netBA.Add(inst.Amount)
				}
				sc.TouchInstrument(iid)
			}
			for _, iid := range ids {
				s.detachInterbank(sc, iid)
			}

			var debtor, creditor string
			var residual money.Amount
			switch {
			case netAB > netBA:
				debtor, creditor, residual = p.a, p.b, netAB-netBA
			case netBA > netAB:
				debtor, creditor, residual = p.b, p.a, netBA-netAB
			default:
				s.emit(&events.InterbankClearedData{DebtorBankID: p.a, CreditorBankID: p.b, NetAmount: 0})
				continue
			}

			if err := s.debitHolding(sc, debtor, domain.KindReserveDeposit, "", residual); err != nil {
				return err
			}
			if err := s.creditHolding(sc, creditor, domain.KindReserveDeposit, s.cashIssuerFor(domain.KindReserveDeposit), residual); err != nil {
				return err
			}
			s.emit(&events.InterbankClearedData{DebtorBankID: debtor, CreditorBankID: creditor, NetAmount: int64(residual)})
		}
		return nil
	})
}

// detachInterbank removes an interbank_overnight instrument from both
// banks' lists and deletes it, ahead of the net residual transfer.
func (s *State) detachInterbank(sc *Scope, iid string) {
	inst, ok := s.instruments[iid]
	if !ok {
		return
	}
	if creditor, ok := s.agents[inst.EffectiveCreditor()]; ok {
		sc.TouchAgent(creditor.ID)
		removeAsset(creditor, iid)
	}
	if debtor, ok := s.agents[inst.LiabilityIssuerID]; ok {
		sc.TouchAgent(debtor.ID)
		removeLiability(debtor, iid)
	}
	s.removeInstrument(iid)
}
