package dealer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRiskParams() RiskParams {
	return RiskParams{
		LookbackWindow:       30,
		SmoothingAlpha:       mustPrice("1"),
		NoDataPrior:          mustPrice("0.05"),
		BaseRiskPremium:      mustPrice("0.02"),
		UrgencySensitivity:   mustPrice("0.1"),
		BuyPremiumMultiplier: mustPrice("2"),
	}
}

// TestEstimateDefaultProb_NoHistoryReturnsPrior covers the lookback
// window's empty case: a trader with no recorded outcomes for an issuer
// gets the configured no-data prior rather than a division by zero.
func TestEstimateDefaultProb_NoHistoryReturnsPrior(t *testing.T) {
	ra := NewRiskAssessor(testRiskParams())
	p := ra.EstimateDefaultProb("issuer1", 10)
	assert.True(t, p.Equal(mustPrice("0.05")))
}

// TestEstimateDefaultProb_LaplaceSmoothing mirrors the original's
// estimate_default_probability: (alpha + defaults) / (2*alpha + n).
func TestEstimateDefaultProb_LaplaceSmoothing(t *testing.T) {
	ra := NewRiskAssessor(testRiskParams())
	ra.UpdateHistory(1, "issuer1", true)
	ra.UpdateHistory(2, "issuer1", false)
	ra.UpdateHistory(3, "issuer1", false)

	p := ra.EstimateDefaultProb("issuer1", 10)
	// (1 + 1) / (2 + 3) = 0.4
	assert.True(t, p.Equal(mustPrice("0.4")), "got %s", p)
}

// TestEstimateDefaultProb_OutsideLookbackWindowIsIgnored confirms stale
// history older than the lookback window doesn't affect the estimate.
func TestEstimateDefaultProb_OutsideLookbackWindowIsIgnored(t *testing.T) {
	params := testRiskParams()
	params.LookbackWindow = 5
	ra := NewRiskAssessor(params)
	ra.UpdateHistory(1, "issuer1", true) // day 1, window at day 20 starts at 15: excluded

	p := ra.EstimateDefaultProb("issuer1", 20)
	assert.True(t, p.Equal(mustPrice("0.05")))
}

// TestEstimateDefaultProb_IssuerSpecificIsolatesHistory confirms that
// IssuerSpecific=true tracks each issuer's history independently rather
// than pooling system-wide.
func TestEstimateDefaultProb_IssuerSpecificIsolatesHistory(t *testing.T) {
	params := testRiskParams()
	params.IssuerSpecific = true
	ra := NewRiskAssessor(params)
	ra.UpdateHistory(1, "issuer1", true)
	ra.UpdateHistory(1, "issuer2", false)

	p1 := ra.EstimateDefaultProb("issuer1", 10)
	p2 := ra.EstimateDefaultProb("issuer2", 10)
	assert.True(t, p1.GreaterThan(p2))
}

func TestExpectedValue(t *testing.T) {
	ra := NewRiskAssessor(testRiskParams())
	ra.UpdateHistory(1, "issuer1", false)
	ra.UpdateHistory(2, "issuer1", false)
	ticket := &Ticket{IssuerID: "issuer1", Face: 10}

	ev := ra.ExpectedValue(ticket, 10)
	// p_default = (1+0)/(2+2) = 0.25, EV = (1-0.25)*10 = 7.5
	assert.True(t, ev.Equal(mustPrice("7.5")), "got %s", ev)
}

// TestShouldSell_AcceptsOfferAtOrAboveThreshold exercises the base case:
// no liquidity urgency, no payment history (prior risk only).
func TestShouldSell_AcceptsOfferAtOrAboveThreshold(t *testing.T) {
	ra := NewRiskAssessor(testRiskParams())
	ticket := &Ticket{IssuerID: "issuer1", Face: 10}

	// EV = (1-0.05)*10 = 9.5; required = 9.5 + 0.02*10 = 9.7
	accept := ra.ShouldSell(ticket, mustPrice("0.97"), 10, mustPrice("100"), mustPrice("0"), mustPrice("0"))
	assert.True(t, accept)

	reject := ra.ShouldSell(ticket, mustPrice("0.9"), 10, mustPrice("100"), mustPrice("0"), mustPrice("0"))
	assert.False(t, reject)
}

// TestShouldSell_UrgencyLowersThreshold confirms a cash-shortfall trader
// accepts an offer it would otherwise reject, per the urgency-adjusted
// threshold.
func TestShouldSell_UrgencyLowersThreshold(t *testing.T) {
	ra := NewRiskAssessor(testRiskParams())
	ticket := &Ticket{IssuerID: "issuer1", Face: 10}

	offer := mustPrice("0.9") // rejected with no urgency above
	accept := ra.ShouldSell(ticket, offer, 10, mustPrice("1"), mustPrice("10"), mustPrice("0"))
	assert.True(t, accept)
}

// TestShouldSell_NoWealthStillGatesOnExpectedValue covers the wealth<=0
// edge case: effectiveSellThreshold returns -1, so ShouldSell's required
// offer becomes expected value minus face, which is never positive — a
// trader with zero wealth accepts even a zero bid.
func TestShouldSell_NoWealthStillGatesOnExpectedValue(t *testing.T) {
	ra := NewRiskAssessor(testRiskParams())
	ticket := &Ticket{IssuerID: "issuer1", Face: 10}

	// threshold = -1 (cash=0, assetValue=0); required = EV + (-1)*face = 9.5-10 = -0.5
	accept := ra.ShouldSell(ticket, mustPrice("0"), 10, mustPrice("0"), mustPrice("1"), mustPrice("0"))
	assert.True(t, accept)
}

func TestShouldBuy_RejectsWhenCostExceedsExpectedValue(t *testing.T) {
	ra := NewRiskAssessor(testRiskParams())
	ticket := &Ticket{IssuerID: "issuer1", Face: 10}

	// EV = 9.5; buyThreshold = 0.02*2 = 0.04; required = cost + 0.4
	accept := ra.ShouldBuy(ticket, mustPrice("0.9"), 10)
	assert.True(t, accept) // cost=9.0, required=9.4 <= 9.5

	reject := ra.ShouldBuy(ticket, mustPrice("0.95"), 10)
	assert.False(t, reject) // cost=9.5, required=9.9 > 9.5
}
