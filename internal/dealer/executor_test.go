package dealer

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/closedloop/econsim/internal/domain"
	"github.com/closedloop/econsim/internal/ledger"
	"github.com/closedloop/econsim/internal/money"
)

func newTestLedger(t *testing.T) *ledger.State {
	t.Helper()
	st := ledger.New(ledger.NewDefaultPolicy(), zerolog.Nop())
	st.StartSetup()
	for _, a := range []struct {
		id   string
		kind domain.AgentKind
	}{
		{"cb", domain.KindCentralBank},
		{"dealer1", domain.KindDealer},
		{"vbt1", domain.KindVBT},
		{"trader1", domain.KindHousehold},
		{"issuer1", domain.KindHousehold},
	} {
		_, err := st.CreateAgent(a.id, a.id, a.kind)
		require.NoError(t, err)
	}
	return st
}

func newTestSubsystem(st *ledger.State, bs *BucketState) (*Subsystem, *Config) {
	cfg := testConfig()
	cfg.CentralBankID = "cb"
	cfg.Buckets = []BucketConfig{{Name: "b1", TauMin: 1, TauMax: -1, DealerAgentID: "dealer1", VBTAgentID: "vbt1"}}
	ds := New(st, cfg)
	ds.buckets["b1"] = bs
	ds.bucketOrder = []string{"b1"}
	return ds, cfg
}

// TestExecuteSell_InteriorFill mirrors spec.md §8 scenario S5: a bucket
// with enough dealer cash to fund the whole ladder (K*=5), zero dealer
// inventory. A customer SELL should fill interior at bid, move the ticket
// to the dealer, and leave the VBT untouched.
func TestExecuteSell_InteriorFill(t *testing.T) {
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

	require.NoError(t, ds.executeSell(0, "trader1"))

	assert.Equal(t, HolderDealer, ticket.HolderKind)
	assert.Equal(t, "dealer1", ticket.OwnerID)
	assert.Equal(t, []string{ticket.ID}, bs.DealerTickets)
	assert.Equal(t, money.Amount(5-1), bs.DealerCash) // bid rounds to 1 at this S=1 scale

	inst, ok := st.Instrument(payableID)
	require.True(t, ok)
	assert.Equal(t, "dealer1", inst.EffectiveCreditor())

	dealerAgent, _ := st.Agent("dealer1")
	traderAgent, _ := st.Agent("trader1")
	assert.NotEmpty(t, traderAgent.AssetIDs)
	assert.NotEmpty(t, dealerAgent.AssetIDs)

	require.NoError(t, ds.CheckInvariants())
}

// TestExecuteBuy_Passthrough mirrors spec.md §8 scenario S6: the dealer
// holds no tickets (x=0 < S), so a customer BUY cannot fill interior and
// passes through to the VBT at the outside ask. The dealer's (x,C) must
// be byte-identical before and after (D-C4).
func TestExecuteBuy_Passthrough(t *testing.T) {
	st := newTestLedger(t)
	_, err := st.MintCash("trader1", 10, "cb", "")
	require.NoError(t, err)
	payableID, err := st.CreatePayable("issuer1", "vbt1", 1, 10, 0, false, "")
	require.NoError(t, err)
	require.NoError(t, st.EndSetup())

	bs := &BucketState{Name: "b1", DealerAgentID: "dealer1", VBTAgentID: "vbt1", M: mustPrice("1"), O: mustPrice("0.3"), DealerCash: 5}
	ds, cfg := newTestSubsystem(st, bs)
	bs.Recompute(cfg)

	ticket := &Ticket{
		ID: st.NextID("tk"), Serial: 1, SourcePayableID: payableID, IssuerID: "issuer1",
		OwnerID: "vbt1", HolderKind: HolderVBT, Face: 1, MaturityDay: 10, RemainingTau: 10, Bucket: "b1",
	}
	ds.tickets[ticket.ID] = ticket
	ds.ticketOrder = append(ds.ticketOrder, ticket.ID)
	bs.VBTTickets = []string{ticket.ID}

	dealerCashBefore := bs.DealerCash
	dealerTicketsBefore := len(bs.DealerTickets)

	require.NoError(t, ds.executeBuy(0, "trader1"))

	assert.Equal(t, HolderTrader, ticket.HolderKind)
	assert.Equal(t, "trader1", ticket.OwnerID)
	assert.Empty(t, bs.VBTTickets)

	// D-C4: dealer (x,C) unchanged across a passthrough.
	assert.Equal(t, dealerCashBefore, bs.DealerCash)
	assert.Equal(t, dealerTicketsBefore, len(bs.DealerTickets))

	inst, ok := st.Instrument(payableID)
	require.True(t, ok)
	assert.Equal(t, "trader1", inst.EffectiveCreditor())

	require.NoError(t, ds.CheckInvariants())
}

// TestExecuteBuy_EmptyVBTInventory_IsValidationError covers boundary
// behavior B4: a passthrough BUY with no VBT inventory is a configuration
// error, not a silent no-op or a DefaultError.
func TestExecuteBuy_EmptyVBTInventory_IsValidationError(t *testing.T) {
	st := newTestLedger(t)
	_, err := st.MintCash("trader1", 10, "cb", "")
	require.NoError(t, err)
	require.NoError(t, st.EndSetup())

	bs := &BucketState{Name: "b1", DealerAgentID: "dealer1", VBTAgentID: "vbt1", M: mustPrice("1"), O: mustPrice("0.3")}
	ds, cfg := newTestSubsystem(st, bs)
	bs.Recompute(cfg)

	err = ds.executeBuy(0, "trader1")
	assert.ErrorIs(t, err, errNoInventory)
}
