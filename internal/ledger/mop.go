// Means-of-payment selection (spec.md §4.3, L8). An obligation is
// discharged by draining the debtor's holdings in the agent kind's ranked
// instrument-kind preference order, within each kind consuming lots in
// creation order — never by value, size, or any other tie-break — so that
// replaying the same scenario always drains the same lots in the same
// order (R3).
//
// When a dealer subsystem is configured, settlement.go's settlePayables
// calls DealerHook.LiquidateOwnedTickets before computing availableFunds,
// converting the debtor's dealer tickets into cash at the prevailing bid
// (spec.md §4.4). That conversion happens outside this file: it runs in
// its own atomic scope (mirroring how every other dealer/ledger bridge
// call works), before the waterfall's own scope opens, so by the time
// availableFunds and raiseFunds run here they see ordinary cash/deposit
// balances and need no dealer-specific branch of their own.
package ledger

import (
	"github.com/closedloop/econsim/internal/domain"
	"github.com/closedloop/econsim/internal/money"
)

// raisedPortion records one drained slice of a debtor's holdings: how
// much, of which kind, and (for bank_deposit) which bank it was drawn
// from.
type raisedPortion struct {
	Kind     domain.InstrumentKind
	IssuerID string
	Amount   money.Amount
}

// availableFunds reports how much debtor could raise across its full MOP
// rank, without mutating anything. Settlement uses this to compute the
// recovery rate before committing to a scope.
func (s *State) availableFunds(debtorID string) money.Amount {
	debtor, ok := s.agents[debtorID]
	if !ok {
		return 0
	}
	rank := s.Policy.RankFor(debtor.Kind)
	var total money.Amount
	for _, kind := range rank {
		for _, iid := range debtor.AssetIDs {
			inst := s.instruments[iid]
			if inst.Kind == kind {
				total = total.Add(inst.Amount)
			}
		}
	}
	return total
}

// raiseFunds drains up to `amount` from debtor's holdings in MOP rank
// order (and, within a kind, lot creation order). If the debtor's total
// available funds are less than amount, every available unit is drained
// and the shortfall is reflected in the returned raised total; raiseFunds
// itself never decides default handling.
func (s *State) raiseFunds(sc *Scope, debtorID string, amount money.Amount) ([]raisedPortion, money.Amount, error) {
	debtor, err := s.MustAgent(debtorID)
	if err != nil {
		return nil, 0, err
	}
	rank := s.Policy.RankFor(debtor.Kind)
	var portions []raisedPortion
	remaining := amount

	for _, kind := range rank {
		if remaining <= 0 {
			break
		}
		ids := append([]string(nil), debtor.AssetIDs...)
		byIssuer := make(map[string]money.Amount)
		issuerOrder := []string{}
		for _, iid := range ids {
			if remaining <= 0 {
				break
			}
			inst := s.instruments[iid]
			if inst.Kind != kind {
				continue
			}
			draw := money.Min(remaining, inst.Amount)
			if draw <= 0 {
				continue
			}
			sc.TouchInstrument(iid)
			inst.Amount -= draw
			remaining -= draw
			if _, seen := byIssuer[inst.LiabilityIssuerID]; !seen {
				issuerOrder = append(issuerOrder, inst.LiabilityIssuerID)
			}
			byIssuer[inst.LiabilityIssuerID] = byIssuer[inst.LiabilityIssuerID].Add(draw)
			if inst.Amount == 0 {
				s.detachInstrument(sc, inst)
			}
		}
		for _, issuer := range issuerOrder {
			portions = append(portions, raisedPortion{Kind: kind, IssuerID: issuer, Amount: byIssuer[issuer]})
		}
	}
	return portions, amount - remaining, nil
}

// settleFromPortions credits creditorID with funds raised from a debtor,
// routing each portion the way the matching primitive op would: cash and
// reserve_deposit transfer directly; bank_deposit routes as a
// client_payment would, creating/augmenting an interbank_overnight if the
// drained bank differs from the creditor's bank (spec.md §4.3 "For
// bank_deposit, issue a client_payment routed through the appropriate
// banks").
func (s *State) settleFromPortions(sc *Scope, creditorID string, portions []raisedPortion) error {
	creditor, err := s.MustAgent(creditorID)
	if err != nil {
		return err
	}
	for _, p := range portions {
		if p.Kind != domain.KindBankDeposit {
			if err := s.creditHolding(sc, creditorID, p.Kind, p.IssuerID, p.Amount); err != nil {
				return err
			}
			continue
		}
		payeeBank := creditor.BankID
		if payeeBank == "" {
			payeeBank = p.IssuerID
		}
		if err := s.creditHolding(sc, creditorID, domain.KindBankDeposit, payeeBank, p.Amount); err != nil {
			return err
		}
		if payeeBank != p.IssuerID {
			if err := s.augmentInterbank(sc, p.IssuerID, payeeBank, p.Amount); err != nil {
				return err
			}
		}
	}
	return nil
}
