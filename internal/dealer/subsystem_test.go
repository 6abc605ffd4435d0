package dealer

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/closedloop/econsim/internal/domain"
	"github.com/closedloop/econsim/internal/ledger"
)

func newSubsystemLedger(t *testing.T) *ledger.State {
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
		{"trader2", domain.KindHousehold},
	} {
		_, err := st.CreateAgent(a.id, a.id, a.kind)
		require.NoError(t, err)
	}
	return st
}

func baseConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Enabled:       true,
		TicketSize:    1,
		DealerShare:   mustPrice("0"),
		VBTShare:      mustPrice("0"),
		CentralBankID: "cb",
		Buckets: []BucketConfig{{
			Name: "b1", TauMin: 1, TauMax: -1,
			DealerAgentID: "dealer1", VBTAgentID: "vbt1",
			InitialM: mustPrice("1"), InitialO: mustPrice("0.3"),
			InitialDealerCash: 50, InitialVBTCash: 50,
		}},
		MMin: mustPrice("0.02"), OMin: mustPrice("0.05"),
		PhiM: mustPrice("0.1"), PhiO: mustPrice("0.1"),
		OrderFlow:    OrderFlowConfig{PiSell: mustPrice("0.5"), NMax: 3},
		TraderPolicy: TraderPolicyConfig{HorizonH: 5, BufferB: 0},
		Seed:         1,
	}
}

func TestInit_FundsBucketsAndConvertsExistingPayableToTicket(t *testing.T) {
	st := newSubsystemLedger(t)
	_, err := st.MintCash("trader1", 100, "cb", "")
	require.NoError(t, err)
	_, err = st.CreatePayable("trader1", "trader2", 10, 5, 0, false, "")
	require.NoError(t, err)
	require.NoError(t, st.EndSetup())

	ds := New(st, baseConfig(t))
	require.NoError(t, ds.Init())

	bs, ok := ds.Bucket("b1")
	require.True(t, ok)
	assert.EqualValues(t, 50, bs.DealerCash)
	assert.EqualValues(t, 50, bs.VBTCash)

	require.Len(t, ds.ticketOrder, 1)
	tk := ds.tickets[ds.ticketOrder[0]]
	assert.Equal(t, "b1", tk.Bucket)
	assert.Equal(t, HolderTrader, tk.HolderKind)
}

func TestRunDailyPhase_NoEligibleTradersIsANoop(t *testing.T) {
	st := newSubsystemLedger(t)
	require.NoError(t, st.EndSetup())

	cfg := baseConfig(t)
	cfg.TraderIDs = nil
	ds := New(st, cfg)
	require.NoError(t, ds.Init())

	require.NoError(t, ds.RunDailyPhase(1))
	require.NoError(t, ds.AfterSettlement(1))
}

func TestSafetyMargin_ReflectsLiquidFundsMinusNearDues(t *testing.T) {
	st := newSubsystemLedger(t)
	_, err := st.MintCash("trader1", 100, "cb", "")
	require.NoError(t, err)
	_, err = st.CreatePayable("trader1", "trader2", 30, 2, 0, false, "")
	require.NoError(t, err)
	require.NoError(t, st.EndSetup())

	cfg := baseConfig(t)
	cfg.TraderIDs = []string{"trader1"}
	ds := New(st, cfg)
	require.NoError(t, ds.Init())

	margin := ds.SafetyMargin("trader1", 1)
	assert.EqualValues(t, 70, margin)
}

func TestConfig_BucketFor(t *testing.T) {
	cfg := &Config{Buckets: []BucketConfig{
		{Name: "short", TauMin: 1, TauMax: 5},
		{Name: "long", TauMin: 6, TauMax: -1},
	}}
	assert.Equal(t, "short", cfg.BucketFor(3))
	assert.Equal(t, "long", cfg.BucketFor(10))
	assert.Equal(t, "", cfg.BucketFor(0))
	assert.Equal(t, "", cfg.BucketFor(-1))
}
