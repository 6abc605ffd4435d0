package dealer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSellRejectedByRisk_NilAssessorAlwaysAccepts is the back-compat
// case: a Config with no RiskParams trades unconditionally, exactly as
// before this feature existed.
func TestSellRejectedByRisk_NilAssessorAlwaysAccepts(t *testing.T) {
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

	assert.False(t, ds.sellRejectedByRisk(0, "trader1"))
	assert.False(t, ds.buyRejectedByRisk(0, "trader1"))
}

// TestSellRejectedByRisk_RejectsLowOffer configures a risk assessor with
// a demanding base premium and confirms a low dealer bid is rejected and
// emits a DealerOrderRejected event rather than silently trading.
func TestSellRejectedByRisk_RejectsLowOffer(t *testing.T) {
	st := newTestLedger(t)
	payableID, err := st.CreatePayable("issuer1", "trader1", 1, 10, 0, false, "")
	require.NoError(t, err)
	require.NoError(t, st.EndSetup())

	bs := &BucketState{Name: "b1", DealerAgentID: "dealer1", VBTAgentID: "vbt1", M: mustPrice("0.1"), O: mustPrice("0.3")}
	ds, cfg := newTestSubsystem(st, bs)
	ds.risk = NewRiskAssessor(RiskParams{
		LookbackWindow:       30,
		SmoothingAlpha:       mustPrice("1"),
		NoDataPrior:          mustPrice("0.05"),
		BaseRiskPremium:      mustPrice("0.5"),
		UrgencySensitivity:   mustPrice("0"),
		BuyPremiumMultiplier: mustPrice("2"),
	})
	bs.Recompute(cfg)

	ticket := &Ticket{
		ID: st.NextID("tk"), Serial: 1, SourcePayableID: payableID, IssuerID: "issuer1",
		OwnerID: "trader1", HolderKind: HolderTrader, Face: 1, MaturityDay: 10, RemainingTau: 10, Bucket: "b1",
	}
	ds.tickets[ticket.ID] = ticket
	ds.ticketOrder = append(ds.ticketOrder, ticket.ID)

	assert.True(t, ds.sellRejectedByRisk(0, "trader1"))

	events := ds.ledger.Log.Events()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "DealerOrderRejected", string(last.Kind))
}
