// Balances snapshot reporting (spec.md §6 "balances snapshot"): for every
// agent and instrument kind, the net financial asset and liability
// totals at a chosen moment, plus stock holdings with quantities and
// valuations. Delivery obligations appear only as balance rows with zero
// asset and liability amounts; their quantities and valuations are not
// reported. Grounded on dailyloop.go's DayReport: a small, immutable
// value the outer driver (or package artifact) pulls out of the ledger
// rather than the ledger pushing anything to an external sink itself.
package ledger

import (
	"sort"

	"github.com/closedloop/econsim/internal/domain"
	"github.com/closedloop/econsim/internal/money"
)

// BalanceLine is one agent/instrument-kind row of a BalancesSnapshot.
type BalanceLine struct {
	AgentID        string
	AgentKind      domain.AgentKind
	InstrumentKind domain.InstrumentKind
	NetAssets      money.Amount
	NetLiabilities money.Amount
}

// StockLine is one agent/SKU row of a BalancesSnapshot.
type StockLine struct {
	AgentID  string
	SKU      string
	Quantity int64
	Value    money.Price
}

// BalancesSnapshot is the full point-in-time balances report of spec.md
// §6. Lines are emitted in agent-insertion order, then instrument-kind
// declaration order, so two snapshots of the same state are byte-
// comparable regardless of map iteration (spec.md §9 "never by a hash
// order").
type BalancesSnapshot struct {
	Day    int
	Lines  []BalanceLine
	Stocks []StockLine
}

// instrumentKindOrder fixes the row order within one agent so that
// output is deterministic without sorting instrument kinds themselves.
var instrumentKindOrder = []domain.InstrumentKind{
	domain.KindCash,
	domain.KindBankDeposit,
	domain.KindReserveDeposit,
	domain.KindPayable,
	domain.KindDeliveryObligation,
	domain.KindInterbankOvernight,
}

// Snapshot builds a BalancesSnapshot of the ledger's current state. It
// never mutates the ledger and may be called from any phase.
func (s *State) Snapshot() *BalancesSnapshot {
	type key struct {
		agent string
		kind  domain.InstrumentKind
	}
	totals := make(map[key]*BalanceLine)

	line := func(agentID string, kind domain.InstrumentKind) *BalanceLine {
		k := key{agentID, kind}
		l, ok := totals[k]
		if !ok {
			agent := s.agents[agentID]
			l = &BalanceLine{AgentID: agentID, AgentKind: agent.Kind, InstrumentKind: kind}
			totals[k] = l
		}
		return l
	}

	for _, iid := range s.instrOrder {
		inst := s.instruments[iid]
		creditor := inst.EffectiveCreditor()
		if creditor != "" {
			if _, ok := s.agents[creditor]; ok {
				l := line(creditor, inst.Kind)
				if inst.Kind == domain.KindDeliveryObligation {
					l.NetAssets += money.Amount(0) // listed with a zero amount; not valued
				} else {
					l.NetAssets += inst.Amount
				}
			}
		}
		if inst.LiabilityIssuerID != "" {
			if _, ok := s.agents[inst.LiabilityIssuerID]; ok {
				l := line(inst.LiabilityIssuerID, inst.Kind)
				if inst.Kind != domain.KindDeliveryObligation {
					l.NetLiabilities += inst.Amount
				}
			}
		}
	}

	snap := &BalancesSnapshot{Day: s.Day}
	for _, agentID := range s.agentOrder {
		for _, kind := range instrumentKindOrder {
			if l, ok := totals[key{agentID, kind}]; ok {
				snap.Lines = append(snap.Lines, *l)
			}
		}
	}

	stockTotals := make(map[string][]*domain.StockLot)
	for _, sid := range s.stockOrder {
		lot := s.stocks[sid]
		stockTotals[lot.OwnerID] = append(stockTotals[lot.OwnerID], lot)
	}
	for _, agentID := range s.agentOrder {
		lots := stockTotals[agentID]
		sort.SliceStable(lots, func(i, j int) bool { return lots[i].SKU < lots[j].SKU })
		for _, lot := range lots {
			snap.Stocks = append(snap.Stocks, StockLine{
				AgentID:  agentID,
				SKU:      lot.SKU,
				Quantity: lot.Quantity,
				Value:    lot.Value(),
			})
		}
	}
	return snap
}
