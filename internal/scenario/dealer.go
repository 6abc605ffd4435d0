package scenario

import (
	"fmt"

	"github.com/closedloop/econsim/internal/dealer"
	"github.com/closedloop/econsim/internal/money"
)

// DealerSpec is the JSON shape of spec.md §6's optional "dealer" block,
// mirroring dealer.Config field-for-field with decimal-string amounts.
type DealerSpec struct {
	Enabled bool `json:"enabled"`

	// CentralBankID names the agent dealer/VBT starting cash is minted
	// against (dealer.Config.CentralBankID); must reference an agent
	// declared in the scenario's agents list.
	CentralBankID string `json:"central_bank_id"`

	TicketSize      string `json:"ticket_size"`
	FaceFromPayable bool   `json:"face_from_payable,omitempty"`

	DealerShare string `json:"dealer_share"`
	VBTShare    string `json:"vbt_share"`

	Buckets []BucketSpec `json:"buckets"`

	MMin string `json:"m_min"`
	OMin string `json:"o_min"`
	PhiM string `json:"phi_m"`
	PhiO string `json:"phi_o"`

	ClipBidNonNegative bool `json:"clip_bid_non_negative,omitempty"`

	OrderFlow    OrderFlowSpec    `json:"order_flow"`
	TraderPolicy TraderPolicySpec `json:"trader_policy"`

	IssuerPreference bool `json:"issuer_preference,omitempty"`

	TraderIDs []string `json:"trader_ids"`

	// RiskAssessment is the optional trader accept/reject gate
	// (dealer.RiskParams); nil disables it, so every eligible arrival
	// trades unconditionally.
	RiskAssessment *RiskAssessmentSpec `json:"risk_assessment,omitempty"`
}

// RiskAssessmentSpec is dealer.RiskParams's JSON shape.
type RiskAssessmentSpec struct {
	LookbackWindow       int    `json:"lookback_window"`
	SmoothingAlpha       string `json:"smoothing_alpha"`
	NoDataPrior          string `json:"no_data_prior"`
	BaseRiskPremium      string `json:"base_risk_premium"`
	UrgencySensitivity   string `json:"urgency_sensitivity"`
	BuyPremiumMultiplier string `json:"buy_premium_multiplier"`
	IssuerSpecific       bool   `json:"issuer_specific,omitempty"`
}

func (r *RiskAssessmentSpec) build() (*dealer.RiskParams, error) {
	smoothingAlpha, err := money.PriceFromString(r.SmoothingAlpha)
	if err != nil {
		return nil, fmt.Errorf("smoothing_alpha: %w", err)
	}
	noDataPrior, err := money.PriceFromString(r.NoDataPrior)
	if err != nil {
		return nil, fmt.Errorf("no_data_prior: %w", err)
	}
	baseRiskPremium, err := money.PriceFromString(r.BaseRiskPremium)
	if err != nil {
		return nil, fmt.Errorf("base_risk_premium: %w", err)
	}
	urgencySensitivity, err := money.PriceFromString(r.UrgencySensitivity)
	if err != nil {
		return nil, fmt.Errorf("urgency_sensitivity: %w", err)
	}
	buyPremiumMultiplier, err := money.PriceFromString(r.BuyPremiumMultiplier)
	if err != nil {
		return nil, fmt.Errorf("buy_premium_multiplier: %w", err)
	}
	return &dealer.RiskParams{
		LookbackWindow:       r.LookbackWindow,
		SmoothingAlpha:       smoothingAlpha,
		NoDataPrior:          noDataPrior,
		BaseRiskPremium:      baseRiskPremium,
		UrgencySensitivity:   urgencySensitivity,
		BuyPremiumMultiplier: buyPremiumMultiplier,
		IssuerSpecific:       r.IssuerSpecific,
	}, nil
}

// BucketSpec is one maturity band of the dealer ring (dealer.BucketConfig).
type BucketSpec struct {
	Name   string `json:"name"`
	TauMin int    `json:"tau_min"`
	TauMax int    `json:"tau_max"`

	InitialM string `json:"initial_m"`
	InitialO string `json:"initial_o"`

	InitialDealerCash string `json:"initial_dealer_cash"`
	InitialVBTCash    string `json:"initial_vbt_cash"`

	DealerAgentID string `json:"dealer_agent_id"`
	VBTAgentID    string `json:"vbt_agent_id"`
}

// OrderFlowSpec is dealer.OrderFlowConfig's JSON shape.
type OrderFlowSpec struct {
	PiSell string `json:"pi_sell"`
	NMax   int    `json:"n_max"`
}

// TraderPolicySpec is dealer.TraderPolicyConfig's JSON shape.
type TraderPolicySpec struct {
	HorizonH int    `json:"horizon_h"`
	BufferB  string `json:"buffer_b"`
}

func (d *DealerSpec) build(seed uint64) (*dealer.Config, error) {
	ticketSize, err := parseAmount(d.TicketSize)
	if err != nil {
		return nil, fmt.Errorf("dealer.ticket_size: %w", err)
	}
	dealerShare, err := money.PriceFromString(d.DealerShare)
	if err != nil {
		return nil, fmt.Errorf("dealer.dealer_share: %w", err)
	}
	vbtShare, err := money.PriceFromString(d.VBTShare)
	if err != nil {
		return nil, fmt.Errorf("dealer.vbt_share: %w", err)
	}
	mMin, err := money.PriceFromString(d.MMin)
	if err != nil {
		return nil, fmt.Errorf("dealer.m_min: %w", err)
	}
	oMin, err := money.PriceFromString(d.OMin)
	if err != nil {
		return nil, fmt.Errorf("dealer.o_min: %w", err)
	}
	phiM, err := money.PriceFromString(d.PhiM)
	if err != nil {
		return nil, fmt.Errorf("dealer.phi_m: %w", err)
	}
	phiO, err := money.PriceFromString(d.PhiO)
	if err != nil {
		return nil, fmt.Errorf("dealer.phi_o: %w", err)
	}
	piSell, err := money.PriceFromString(d.OrderFlow.PiSell)
	if err != nil {
		return nil, fmt.Errorf("dealer.order_flow.pi_sell: %w", err)
	}
	bufferB, err := parseAmount(d.TraderPolicy.BufferB)
	if err != nil {
		return nil, fmt.Errorf("dealer.trader_policy.buffer_b: %w", err)
	}

	buckets := make([]dealer.BucketConfig, 0, len(d.Buckets))
	for i, b := range d.Buckets {
		bc, err := b.build()
		if err != nil {
			return nil, fmt.Errorf("dealer.buckets[%d]: %w", i, err)
		}
		buckets = append(buckets, bc)
	}

	var riskParams *dealer.RiskParams
	if d.RiskAssessment != nil {
		riskParams, err = d.RiskAssessment.build()
		if err != nil {
			return nil, fmt.Errorf("dealer.risk_assessment: %w", err)
		}
	}

	return &dealer.Config{
		Enabled:            d.Enabled,
		TicketSize:         ticketSize,
		FaceFromPayable:    d.FaceFromPayable,
		DealerShare:        dealerShare,
		VBTShare:           vbtShare,
		Buckets:            buckets,
		MMin:               mMin,
		OMin:               oMin,
		PhiM:               phiM,
		PhiO:               phiO,
		ClipBidNonNegative: d.ClipBidNonNegative,
		OrderFlow:          dealer.OrderFlowConfig{PiSell: piSell, NMax: d.OrderFlow.NMax},
		TraderPolicy:       dealer.TraderPolicyConfig{HorizonH: d.TraderPolicy.HorizonH, BufferB: bufferB},
		IssuerPreference:   d.IssuerPreference,
		CentralBankID:      d.CentralBankID,
		TraderIDs:          d.TraderIDs,
		RiskParams:         riskParams,
		Seed:               seed,
	}, nil
}

func (b BucketSpec) build() (dealer.BucketConfig, error) {
	initialM, err := money.PriceFromString(b.InitialM)
	if err != nil {
		return dealer.BucketConfig{}, fmt.Errorf("initial_m: %w", err)
	}
	initialO, err := money.PriceFromString(b.InitialO)
	if err != nil {
		return dealer.BucketConfig{}, fmt.Errorf("initial_o: %w", err)
	}
	dealerCash, err := parseAmount(b.InitialDealerCash)
	if err != nil {
		return dealer.BucketConfig{}, fmt.Errorf("initial_dealer_cash: %w", err)
	}
	vbtCash, err := parseAmount(b.InitialVBTCash)
	if err != nil {
		return dealer.BucketConfig{}, fmt.Errorf("initial_vbt_cash: %w", err)
	}
	return dealer.BucketConfig{
		Name: b.Name, TauMin: b.TauMin, TauMax: b.TauMax,
		InitialM: initialM, InitialO: initialO,
		InitialDealerCash: dealerCash, InitialVBTCash: vbtCash,
		DealerAgentID: b.DealerAgentID, VBTAgentID: b.VBTAgentID,
	}, nil
}
