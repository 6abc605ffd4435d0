package dealermetrics

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/closedloop/econsim/internal/dealer"
	"github.com/closedloop/econsim/internal/domain"
	"github.com/closedloop/econsim/internal/events"
	"github.com/closedloop/econsim/internal/ledger"
	"github.com/closedloop/econsim/internal/money"
)

func mustPrice(t *testing.T, s string) money.Price {
	t.Helper()
	p, err := money.PriceFromString(s)
	require.NoError(t, err)
	return p
}

func newLedger(t *testing.T) *ledger.State {
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
	} {
		_, err := st.CreateAgent(a.id, a.id, a.kind)
		require.NoError(t, err)
	}
	require.NoError(t, st.EndSetup())
	return st
}

func TestCollectBucketMetrics_CountsPassthroughAndInterior(t *testing.T) {
	st := newLedger(t)
	cfg := &dealer.Config{
		TicketSize:    1,
		CentralBankID: "cb",
		Buckets: []dealer.BucketConfig{{
			Name: "b1", TauMin: 1, TauMax: -1, DealerAgentID: "dealer1", VBTAgentID: "vbt1",
			InitialM: mustPrice(t, "1"), InitialO: mustPrice(t, "0.3"),
		}},
		MMin: mustPrice(t, "0.02"), OMin: mustPrice(t, "0.05"),
		PhiM: mustPrice(t, "0.1"), PhiO: mustPrice(t, "0.1"),
		ClipBidNonNegative: true,
	}
	ds := dealer.New(st, cfg)
	require.NoError(t, ds.Init())

	dayEvents := []events.Event{
		{Kind: events.DealerTrade, Data: &events.DealerTradeData{Bucket: "b1", Passthrough: false}},
		{Kind: events.DealerPassthrough, Data: &events.DealerTradeData{Bucket: "b1", Passthrough: true}},
		{Kind: events.DealerPassthrough, Data: &events.DealerTradeData{Bucket: "b1", Passthrough: true}},
	}

	metrics := CollectBucketMetrics(5, ds, dayEvents)
	require.Len(t, metrics, 1)
	m := metrics[0]
	assert.Equal(t, "b1", m.Bucket)
	assert.Equal(t, 1, m.InteriorTrades)
	assert.Equal(t, 2, m.PassthroughTrades)
	assert.InDelta(t, 2.0/3.0, m.PassthroughRatio, 1e-9)
}

func TestSummarize_EmptyAndNonEmpty(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))

	s := Summarize([]float64{1, 2, 3, 4})
	assert.InDelta(t, 2.5, s.Mean, 1e-9)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.Equal(t, 4, s.N)
}

func TestBucketPnL_IsDifference(t *testing.T) {
	pnl := BucketPnL(mustPrice(t, "12.5"), mustPrice(t, "10"))
	assert.True(t, pnl.Equal(mustPrice(t, "2.5")))
}
