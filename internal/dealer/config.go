// Package dealer implements the optional dealer ring subsystem of spec.md
// §4.7–§4.11 (D1–D5 of the component table): a bucketed, inventory-
// sensitive pricing kernel, a VBT outside-anchor updater, a trade
// executor choosing between interior fills and VBT passthrough, and the
// daily maturity/rebucketing/order-flow pipeline that bridges ticket
// trades back into the ledger.
//
// The subsystem implements ledger.DealerHook and is wired into a
// ledger.State via State.Dealer; the ledger package never imports this
// package (spec.md §2's dependency order: "dealer subtree plugs in at
// L11's optional hook").
package dealer

import "github.com/closedloop/econsim/internal/money"

// BucketConfig describes one maturity band and the outside anchors its
// VBT starts with (spec.md §4.7, §3 "Dealer subsystem state").
type BucketConfig struct {
	Name string
	// TauMin/TauMax bound the band inclusively; TauMax < 0 means
	// unbounded (the last band in the ordered list).
	TauMin int
	TauMax int

	InitialM money.Price
	InitialO money.Price

	// InitialDealerCash/InitialVBTCash fund the bucket's dealer and VBT
	// agents at subsystem initialization. Spec.md §4.11 treats the
	// subsystem as "an outside source of liquidity" for these starting
	// balances, so they are minted rather than transferred from a named
	// counterparty.
	InitialDealerCash money.Amount
	InitialVBTCash    money.Amount

	// DealerAgentID/VBTAgentID name the already-created ledger agents
	// (kind domain.KindDealer / domain.KindVBT) this bucket's records
	// attach to. One dealer and one VBT agent per bucket (spec.md §3).
	DealerAgentID string
	VBTAgentID    string
}

// OrderFlowConfig parameterizes step 5 of the daily phase (spec.md §4.10).
type OrderFlowConfig struct {
	// PiSell is the probability, per arrival, that the draw is a SELL
	// (else BUY). An exact decimal in [0,1].
	PiSell money.Price
	NMax   int // arrivals per day drawn uniformly from 1..NMax
}

// TraderPolicyConfig parameterizes the SELL/BUY eligibility predicates of
// spec.md §4.10 step 4.
type TraderPolicyConfig struct {
	HorizonH int          // days; BUY requires next liability >= H days out
	BufferB  money.Amount // cash cushion a trader must clear to be BUY-eligible
}

// Config collects every dealer-subsystem knob into one read-only value
// built once by the driver, per spec.md §9's "dynamic config objects →
// an explicit policy struct" redesign flag.
type Config struct {
	Enabled bool

	// TicketSize is S, the uniform unit of trade (spec.md §4.7). When
	// FaceFromPayable is true, tickets instead carry the source
	// payable's full face value 1-for-1 and TicketSize is used only as
	// the kernel's layoff-probability/inside-width unit.
	TicketSize      money.Amount
	FaceFromPayable bool

	// Initial allocation split across {dealers, VBTs, traders} on
	// subsystem init (spec.md §4.7); shares sum to <=1, remainder stays
	// with the payable's original creditor (a trader).
	DealerShare money.Price
	VBTShare    money.Price

	Buckets []BucketConfig

	MMin money.Price // guard threshold (default 0.02, spec.md §4.8)
	OMin money.Price // floor on the spread anchor (spec.md §4.10 step 7)
	PhiM money.Price // mid-anchor loss sensitivity
	PhiO money.Price // spread-anchor loss sensitivity

	ClipBidNonNegative bool // "B clipped >= 0 if configured" (spec.md §3)

	OrderFlow    OrderFlowConfig
	TraderPolicy TraderPolicyConfig

	// IssuerPreference carries the scenario's issuer-preference flag.
	// Nothing in this package reads it: BUY ticket selection and trader
	// eligibility do not look at a ticket's issuer, and no single-issuer
	// holding constraint is enforced.
	IssuerPreference bool

	// CentralBankID is the agent whose liability dealer/VBT starting
	// cash is minted against (spec.md §4.11's "outside source").
	CentralBankID string

	// TraderIDs is the scenario-defined population of customer agents
	// (households/firms) eligible to participate in order flow (spec.md
	// §4.10 step 4's SELL/BUY eligibility sets are drawn from this pool).
	TraderIDs []string

	// RiskParams configures the trader acceptance gate applied before
	// every order-flow execution (spec.md §4.9, extended): nil disables
	// the gate and every eligible arrival trades unconditionally.
	RiskParams *RiskParams

	Seed uint64
}

// BucketFor returns the name of the first configured band whose
// [TauMin,TauMax] contains remainingTau, or "" if remainingTau <= 0
// (matured) or no band matches (spec.md §4.7).
func (c *Config) BucketFor(remainingTau int) string {
	if remainingTau <= 0 {
		return ""
	}
	for _, b := range c.Buckets {
		if remainingTau < b.TauMin {
			continue
		}
		if b.TauMax >= 0 && remainingTau > b.TauMax {
			continue
		}
		return b.Name
	}
	return ""
}
