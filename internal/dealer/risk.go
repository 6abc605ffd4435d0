package dealer

import "github.com/closedloop/econsim/internal/money"

// RiskParams parameterizes a trader's default-probability estimation and
// the accept/reject gate it applies before trading with the dealer
// (spec.md §4.9's order-flow execution, extended with the expected-
// value-vs-price test a rational counterparty applies before accepting a
// trade). A nil *RiskParams on Config disables the gate entirely: every
// eligible arrival trades unconditionally.
type RiskParams struct {
	LookbackWindow int

	// SmoothingAlpha is the Laplace smoothing constant applied to the
	// default-probability estimate: (alpha + defaults) / (2*alpha + n).
	SmoothingAlpha money.Price

	// NoDataPrior is returned when a trader has no payment history for
	// an issuer within the lookback window.
	NoDataPrior money.Price

	// BaseRiskPremium is the minimum fraction of face value a seller
	// requires above expected value to accept a SELL.
	BaseRiskPremium money.Price

	// UrgencySensitivity scales how much an immediate cash shortfall
	// lowers the effective sell threshold.
	UrgencySensitivity money.Price

	// BuyPremiumMultiplier scales BaseRiskPremium for the (stricter) BUY
	// acceptance threshold.
	BuyPremiumMultiplier money.Price

	// IssuerSpecific tracks default history per issuer rather than
	// system-wide.
	IssuerSpecific bool
}

type paymentOutcome struct {
	day       int
	defaulted bool
}

// RiskAssessor estimates issuer default probabilities from realized
// payment history and gates trader SELL/BUY decisions against the
// dealer's quoted price (spec.md §4.9, extended). One RiskAssessor is
// shared by every trader in a simulation, matching the reference
// system-wide-by-default history tracking.
type RiskAssessor struct {
	params   RiskParams
	history  []paymentOutcome
	byIssuer map[string][]paymentOutcome
}

// NewRiskAssessor builds an empty assessor; history accumulates via
// UpdateHistory as obligations mature.
func NewRiskAssessor(params RiskParams) *RiskAssessor {
	return &RiskAssessor{params: params, byIssuer: make(map[string][]paymentOutcome)}
}

// UpdateHistory records one issuer's realized payment outcome. Call once
// per matured obligation, after settlement (spec.md §4.10 step 6).
func (r *RiskAssessor) UpdateHistory(day int, issuerID string, defaulted bool) {
	o := paymentOutcome{day: day, defaulted: defaulted}
	r.history = append(r.history, o)
	if r.params.IssuerSpecific {
		r.byIssuer[issuerID] = append(r.byIssuer[issuerID], o)
	}
}

func (r *RiskAssessor) recentOutcomes(issuerID string, day int) []paymentOutcome {
	windowStart := day - r.params.LookbackWindow
	var recent []paymentOutcome
	if r.params.IssuerSpecific {
		for _, o := range r.byIssuer[issuerID] {
			if o.day >= windowStart {
				recent = append(recent, o)
			}
		}
		return recent
	}
	for _, o := range r.history {
		if o.day >= windowStart {
			recent = append(recent, o)
		}
	}
	return recent
}

// EstimateDefaultProb estimates issuerID's probability of defaulting on
// its next obligation, Laplace-smoothed over the configured lookback
// window. Returns the no-data prior when there is no recent history.
func (r *RiskAssessor) EstimateDefaultProb(issuerID string, day int) money.Price {
	recent := r.recentOutcomes(issuerID, day)
	if len(recent) == 0 {
		return r.params.NoDataPrior
	}
	var defaults int64
	for _, o := range recent {
		if o.defaulted {
			defaults++
		}
	}
	alpha := r.params.SmoothingAlpha
	numerator := alpha.Add(money.PriceFromInt(defaults))
	denominator := alpha.Mul(money.PriceFromInt(2)).Add(money.PriceFromInt(int64(len(recent))))
	return numerator.Div(denominator)
}

// ExpectedValue returns a ticket's expected payoff if held to maturity:
// (1 - P(default)) * face.
func (r *RiskAssessor) ExpectedValue(t *Ticket, day int) money.Price {
	pDefault := r.EstimateDefaultProb(t.IssuerID, day)
	one := money.PriceFromInt(1)
	return one.Sub(pDefault).Mul(money.PriceFromInt(int64(t.Face)))
}

// effectiveSellThreshold returns the risk premium a seller requires
// above expected value, reduced by liquidity urgency: the worse the
// immediate shortfall relative to total wealth, the lower the bar to
// accept a sale (can go negative under severe distress).
func (r *RiskAssessor) effectiveSellThreshold(cash, shortfall, assetValue money.Price) money.Price {
	wealth := cash.Add(assetValue)
	if !wealth.GreaterThan(money.Zero) {
		return money.PriceFromInt(-1)
	}
	if !shortfall.GreaterThan(money.Zero) {
		return r.params.BaseRiskPremium
	}
	urgency := shortfall.Div(wealth)
	return r.params.BaseRiskPremium.Sub(r.params.UrgencySensitivity.Mul(urgency))
}

// ShouldSell decides whether a trader accepts the dealer's bid for t:
// accept iff the offer meets or exceeds expected value plus the urgency-
// adjusted threshold.
func (r *RiskAssessor) ShouldSell(t *Ticket, dealerBid money.Price, day int, cash, shortfall, assetValue money.Price) bool {
	evHold := r.ExpectedValue(t, day)
	face := money.PriceFromInt(int64(t.Face))
	offer := dealerBid.Mul(face)
	threshold := r.effectiveSellThreshold(cash, shortfall, assetValue)
	required := evHold.Add(threshold.Mul(face))
	return offer.GreaterThanOrEqual(required)
}

// ShouldBuy decides whether a trader accepts the dealer's ask for t:
// accept iff expected value meets or exceeds cost plus the (stricter,
// bid-ask-asymmetric) buy threshold.
func (r *RiskAssessor) ShouldBuy(t *Ticket, dealerAsk money.Price, day int) bool {
	evHold := r.ExpectedValue(t, day)
	face := money.PriceFromInt(int64(t.Face))
	cost := dealerAsk.Mul(face)
	buyThreshold := r.params.BaseRiskPremium.Mul(r.params.BuyPremiumMultiplier)
	required := cost.Add(buyThreshold.Mul(face))
	return evHold.GreaterThanOrEqual(required)
}
