package artifact

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/closedloop/econsim/internal/dealermetrics"
	"github.com/closedloop/econsim/internal/domain"
	"github.com/closedloop/econsim/internal/events"
	"github.com/closedloop/econsim/internal/ledger"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	uri := "file:" + t.Name() + "?mode=memory&cache=shared"
	st, err := Open(Config{Path: uri, Profile: ProfileScratch})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStartRun_AssignsIDAndUUID(t *testing.T) {
	st := openTestStore(t)
	run, err := st.StartRun("smoke", 42, "2026-07-30T00:00:00Z")
	require.NoError(t, err)
	assert.NotZero(t, run.ID)
	assert.NotEmpty(t, run.UUID)
}

func TestRecordAndLoadEvents_RoundTrips(t *testing.T) {
	st := openTestStore(t)
	run, err := st.StartRun("roundtrip", 1, "2026-07-30T00:00:00Z")
	require.NoError(t, err)

	batch := []events.Event{
		{Kind: events.BeginDay, Day: 1, Phase: "A", Data: &events.BeginDayData{Day: 1}},
		{Kind: events.PayableCreated, Day: 1, Phase: "B1", Data: &events.PayableCreatedData{
			InstrumentID: "pay_1", DebtorID: "alice", CreditorID: "bob", Amount: 100, DueDay: 5,
		}},
		{Kind: events.DealerTrade, Day: 1, Phase: "dealer", Data: &events.DealerTradeData{
			Bucket: "b1", Side: "sell", TraderID: "trader1", DealerID: "dealer1", TicketID: "tk_1",
			Price: "1", Passthrough: false,
		}},
	}
	require.NoError(t, st.RecordEvents(run.ID, 0, batch))

	loaded, err := st.LoadEvents(run.ID)
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	assert.Equal(t, events.BeginDay, loaded[0].Kind)
	bd, ok := loaded[0].Data.(*events.BeginDayData)
	require.True(t, ok)
	assert.Equal(t, 1, bd.Day)

	pc, ok := loaded[1].Data.(*events.PayableCreatedData)
	require.True(t, ok)
	assert.Equal(t, "pay_1", pc.InstrumentID)
	assert.EqualValues(t, 100, pc.Amount)

	dt, ok := loaded[2].Data.(*events.DealerTradeData)
	require.True(t, ok)
	assert.Equal(t, "b1", dt.Bucket)
	assert.False(t, dt.Passthrough)
}

func TestRecordBalancesSnapshot_PersistsLines(t *testing.T) {
	st := openTestStore(t)
	run, err := st.StartRun("balances", 1, "2026-07-30T00:00:00Z")
	require.NoError(t, err)

	ls := ledger.New(ledger.NewDefaultPolicy(), zerolog.Nop())
	ls.StartSetup()
	_, err = ls.CreateAgent("cb", "Central Bank", domain.KindCentralBank)
	require.NoError(t, err)
	_, err = ls.CreateAgent("alice", "Alice", domain.KindHousehold)
	require.NoError(t, err)
	_, err = ls.MintCash("alice", 100, "cb", "")
	require.NoError(t, err)
	require.NoError(t, ls.EndSetup())

	snap := ls.Snapshot()
	require.NoError(t, st.RecordBalancesSnapshot(run.ID, snap))

	var count int
	require.NoError(t, st.conn.QueryRow(`SELECT COUNT(*) FROM balance_lines WHERE run_id = ?`, run.ID).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestRecordDealerBucketMetrics_Persists(t *testing.T) {
	st := openTestStore(t)
	run, err := st.StartRun("dealer-metrics", 1, "2026-07-30T00:00:00Z")
	require.NoError(t, err)

	metrics := []dealermetrics.BucketMetric{
		{Day: 1, Bucket: "b1", Bid: "0.9", Ask: "1.1", Inventory: 3, DealerCash: 5, Equity: "6.8",
			InteriorTrades: 2, PassthroughTrades: 1, PassthroughRatio: 1.0 / 3.0},
	}
	require.NoError(t, st.RecordDealerBucketMetrics(run.ID, metrics))

	var bucket string
	require.NoError(t, st.conn.QueryRow(`SELECT bucket FROM dealer_bucket_metrics WHERE run_id = ?`, run.ID).Scan(&bucket))
	assert.Equal(t, "b1", bucket)
}
