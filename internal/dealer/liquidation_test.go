package dealer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLiquidateOwnedTickets_InteriorFill covers the happy path required
// by spec.md §4.4's partial-recovery waterfall: a defaulting debtor's
// ticket is sold into the dealer's own book at the prevailing bid when
// the dealer has the cash to absorb it.
func TestLiquidateOwnedTickets_InteriorFill(t *testing.T) {
	st := newTestLedger(t)
	_, err := st.MintCash("dealer1", 5, "cb", "")
	require.NoError(t, err)
	payableID, err := st.CreatePayable("issuer1", "trader1", 1, 10, 0, false, "")
	require.NoError(t, err)
	require.NoError(t, st.EndSetup())

	bs := &BucketState{Name: "b1", DealerAgentID: "dealer1", VBTAgentID: "vbt1", M: mustPrice("1"), O: mustPrice("0.3"), DealerCash: 5}
	ds, cfg := newTestSubsystem(st, bs)
	bs.Recompute(cfg)

	ticket := &Ticket{
		ID: st.NextID("tk"), Serial: 1, SourcePayableID: payableID, IssuerID: "issuer1",
		OwnerID: "trader1", HolderKind: HolderTrader, Face: 1, MaturityDay: 10, RemainingTau: 10, Bucket: "b1",
	}
	ds.tickets[ticket.ID] = ticket
	ds.ticketOrder = append(ds.ticketOrder, ticket.ID)

	require.NoError(t, ds.LiquidateOwnedTickets(0, "trader1"))

	assert.Equal(t, HolderDealer, ticket.HolderKind)
	assert.Equal(t, "dealer1", ticket.OwnerID)
	assert.Equal(t, []string{ticket.ID}, bs.DealerTickets)

	traderAgent, _ := st.Agent("trader1")
	assert.NotEmpty(t, traderAgent.AssetIDs) // credited cash from the forced sale
}

// TestLiquidateOwnedTickets_PassthroughWhenDealerBookLacksCash covers the
// VBT fallback branch when the dealer's own book can't absorb the sale.
func TestLiquidateOwnedTickets_PassthroughWhenDealerBookLacksCash(t *testing.T) {
	st := newTestLedger(t)
	_, err := st.MintCash("vbt1", 5, "cb", "")
	require.NoError(t, err)
	payableID, err := st.CreatePayable("issuer1", "trader1", 1, 10, 0, false, "")
	require.NoError(t, err)
	require.NoError(t, st.EndSetup())

	bs := &BucketState{Name: "b1", DealerAgentID: "dealer1", VBTAgentID: "vbt1", M: mustPrice("1"), O: mustPrice("0.3"), VBTCash: 5}
	ds, cfg := newTestSubsystem(st, bs)
	bs.Recompute(cfg)

	ticket := &Ticket{
		ID: st.NextID("tk"), Serial: 1, SourcePayableID: payableID, IssuerID: "issuer1",
		OwnerID: "trader1", HolderKind: HolderTrader, Face: 1, MaturityDay: 10, RemainingTau: 10, Bucket: "b1",
	}
	ds.tickets[ticket.ID] = ticket
	ds.ticketOrder = append(ds.ticketOrder, ticket.ID)

	require.NoError(t, ds.LiquidateOwnedTickets(0, "trader1"))

	assert.Equal(t, HolderVBT, ticket.HolderKind)
	assert.Equal(t, "vbt1", ticket.OwnerID)
	assert.Equal(t, []string{ticket.ID}, bs.VBTTickets)
}

// TestLiquidateOwnedTickets_NoLiquidityLeavesTicketWithOwner covers the
// no-op case: neither book can absorb the sale this round, so the ticket
// stays put rather than erroring or forcing an inconsistent trade.
func TestLiquidateOwnedTickets_NoLiquidityLeavesTicketWithOwner(t *testing.T) {
	st := newTestLedger(t)
	payableID, err := st.CreatePayable("issuer1", "trader1", 1, 10, 0, false, "")
	require.NoError(t, err)
	require.NoError(t, st.EndSetup())

	bs := &BucketState{Name: "b1", DealerAgentID: "dealer1", VBTAgentID: "vbt1", M: mustPrice("1"), O: mustPrice("0.3")}
	ds, cfg := newTestSubsystem(st, bs)
	bs.Recompute(cfg)

	ticket := &Ticket{
		ID: st.NextID("tk"), Serial: 1, SourcePayableID: payableID, IssuerID: "issuer1",
		OwnerID: "trader1", HolderKind: HolderTrader, Face: 1, MaturityDay: 10, RemainingTau: 10, Bucket: "b1",
	}
	ds.tickets[ticket.ID] = ticket
	ds.ticketOrder = append(ds.ticketOrder, ticket.ID)

	require.NoError(t, ds.LiquidateOwnedTickets(0, "trader1"))

	assert.Equal(t, HolderTrader, ticket.HolderKind)
	assert.Equal(t, "trader1", ticket.OwnerID)
	assert.Empty(t, bs.DealerTickets)
	assert.Empty(t, bs.VBTTickets)
}

// TestLiquidateOwnedTickets_IgnoresOtherOwners confirms the sweep only
// touches tickets owned by the given debtor.
func TestLiquidateOwnedTickets_IgnoresOtherOwners(t *testing.T) {
	st := newTestLedger(t)
	_, err := st.MintCash("dealer1", 5, "cb", "")
	require.NoError(t, err)
	payableID, err := st.CreatePayable("issuer1", "trader1", 1, 10, 0, false, "")
	require.NoError(t, err)
	require.NoError(t, st.EndSetup())

	bs := &BucketState{Name: "b1", DealerAgentID: "dealer1", VBTAgentID: "vbt1", M: mustPrice("1"), O: mustPrice("0.3"), DealerCash: 5}
	ds, cfg := newTestSubsystem(st, bs)
	bs.Recompute(cfg)

	ticket := &Ticket{
		ID: st.NextID("tk"), Serial: 1, SourcePayableID: payableID, IssuerID: "issuer1",
		OwnerID: "trader1", HolderKind: HolderTrader, Face: 1, MaturityDay: 10, RemainingTau: 10, Bucket: "b1",
	}
	ds.tickets[ticket.ID] = ticket
	ds.ticketOrder = append(ds.ticketOrder, ticket.ID)

	require.NoError(t, ds.LiquidateOwnedTickets(0, "issuer1"))

	assert.Equal(t, HolderTrader, ticket.HolderKind)
	assert.Equal(t, "trader1", ticket.OwnerID)
}
