package dealer

import (
	"testing"

	"github.com/closedloop/econsim/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		TicketSize:         1,
		MMin:               mustPrice("0.02"),
		OMin:               mustPrice("0.05"),
		PhiM:               mustPrice("0.1"),
		PhiO:               mustPrice("0.1"),
		ClipBidNonNegative: true,
	}
}

func mustPrice(s string) money.Price {
	p, err := money.PriceFromString(s)
	if err != nil {
		panic(err)
	}
	return p
}

// TestKernelRecompute_GuardRegime exercises spec.md §4.8's guard branch: an
// M at or below M_min pins both quotes to the outside and freezes interior
// trading (X*=0), matching boundary behavior B1.
func TestKernelRecompute_GuardRegime(t *testing.T) {
	cfg := testConfig()
	bs := &BucketState{M: mustPrice("0.02"), O: mustPrice("0.3")}
	bs.Recompute(cfg)

	assert.True(t, bs.Guarded)
	assert.True(t, bs.Bid.Equal(bs.B))
	assert.True(t, bs.Ask.Equal(bs.A))
	assert.True(t, bs.PinnedBid)
	assert.True(t, bs.PinnedAsk)
	assert.Equal(t, money.Amount(0), bs.XStar)
}

// TestKernelRecompute_NormalRegime_S5 mirrors spec.md §8 scenario S5: a
// single bucket with M=1, O=0.3, S=1, zero dealer inventory, and enough
// dealer cash that K*=5 (so X*=5).
func TestKernelRecompute_NormalRegime_S5(t *testing.T) {
	cfg := testConfig()
	bs := &BucketState{M: mustPrice("1"), O: mustPrice("0.3"), DealerCash: 5}
	bs.Recompute(cfg)

	require.False(t, bs.Guarded)
	assert.Equal(t, int64(5), bs.KStar)
	assert.Equal(t, money.Amount(5), bs.XStar)
	assert.Equal(t, int64(6), bs.N)
	assert.True(t, bs.A.Equal(mustPrice("1.15")))
	assert.True(t, bs.B.Equal(mustPrice("0.85")))

	// D-C2: bid >= B, ask <= A, pin flags agree with equality.
	assert.True(t, bs.Bid.GreaterThanOrEqual(bs.B))
	assert.True(t, bs.Ask.LessThanOrEqual(bs.A))
	assert.Equal(t, bs.Bid.Equal(bs.B), bs.PinnedBid)
	assert.Equal(t, bs.Ask.Equal(bs.A), bs.PinnedAsk)

	// D-C5: equity identity V = C + M*a holds with a=0.
	assert.True(t, bs.V.Equal(mustPrice("5")))
}

// TestKernelRecompute_EquityIdentity_NonZeroInventory checks D-C5 with a
// nonzero inventory count, where V = C + M*a must still hold exactly.
func TestKernelRecompute_EquityIdentity_NonZeroInventory(t *testing.T) {
	cfg := testConfig()
	bs := &BucketState{
		M: mustPrice("2"), O: mustPrice("0.4"),
		DealerCash:    10,
		DealerTickets: []string{"tk_1", "tk_2", "tk_3"},
	}
	bs.Recompute(cfg)

	wantV := bs.M.Mul(money.PriceFromInt(3)).Add(money.PriceFromInt(10))
	assert.True(t, bs.V.Equal(wantV))
	assert.Equal(t, money.Amount(3), bs.X)
}

// TestKernelRecompute_BidClippedNonNegative checks the configured clip on B
// when the spread exceeds twice the mid.
func TestKernelRecompute_BidClippedNonNegative(t *testing.T) {
	cfg := testConfig()
	bs := &BucketState{M: mustPrice("1"), O: mustPrice("3"), DealerCash: 5}
	bs.Recompute(cfg)
	assert.True(t, bs.B.IsZero())
}
