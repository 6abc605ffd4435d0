// Package domain holds the core economic types of the simulator: agents,
// the tagged-union instrument variants, and stock lots (spec.md §3, L1–L3
// of the component table in §2). These are pure data types; all mutation
// lives in package ledger, which owns the id→record maps these types are
// referenced from.
package domain

import "github.com/closedloop/econsim/internal/money"

// AgentKind tags the kind of economic participant.
type AgentKind string

const (
	KindCentralBank AgentKind = "central_bank"
	KindBank        AgentKind = "bank"
	KindHousehold   AgentKind = "household"
	KindFirm        AgentKind = "firm"
	KindTreasury    AgentKind = "treasury"
	KindDealer      AgentKind = "dealer"
	KindVBT         AgentKind = "vbt"
)

// Agent is an economic participant. AssetIDs and LiabilityIDs are kept in
// insertion order (spec.md §9: "iterate by id's insertion order... never
// by a hash order") so that MOP selection and settlement grouping are
// reproducible.
type Agent struct {
	ID           string
	Name         string
	Kind         AgentKind
	AssetIDs     []string
	LiabilityIDs []string
	StockIDs     []string
	Defaulted    bool

	// BankID is set for households/firms/treasuries/dealers/vbts that
	// hold their bank_deposit instruments at a particular bank.
	BankID string

	// ClientIDs is populated only for agents of kind bank: the set of
	// agent ids who hold bank_deposit liabilities issued by this bank.
	// Kept as an ordered slice (not a map) for deterministic iteration.
	ClientIDs []string
}

// HasClient reports whether id is already registered as a client of this
// bank (linear scan; bank client lists are small in any realistic
// scenario, and this keeps ordering simple and explicit).
func (a *Agent) HasClient(id string) bool {
	for _, c := range a.ClientIDs {
		if c == id {
			return true
		}
	}
	return false
}

// InstrumentKind tags the variant of a financial instrument.
type InstrumentKind string

const (
	KindCash               InstrumentKind = "cash"
	KindBankDeposit        InstrumentKind = "bank_deposit"
	KindReserveDeposit     InstrumentKind = "reserve_deposit"
	KindPayable            InstrumentKind = "payable"
	KindDeliveryObligation InstrumentKind = "delivery_obligation"
	KindInterbankOvernight InstrumentKind = "interbank_overnight"
)

// IsFinancial reports whether the kind participates in the closed-system
// identity check P1/I6 (every kind except delivery obligations, which are
// physical-goods contracts valued separately).
func (k InstrumentKind) IsFinancial() bool {
	return k != KindDeliveryObligation
}

// IsCashlike reports whether the kind is subject to the non-negativity
// invariant I3/P3 (cash, bank_deposit, reserve_deposit).
func (k InstrumentKind) IsCashlike() bool {
	switch k {
	case KindCash, KindBankDeposit, KindReserveDeposit:
		return true
	default:
		return false
	}
}

// Instrument is the tagged-union contract type of spec.md §3. Not every
// field is meaningful for every Kind; see the kind-specific accessors
// below for the documented subset each kind uses.
type Instrument struct {
	ID     string
	Kind   InstrumentKind
	Amount money.Amount // integer minor units; ignored for delivery_obligation (use ValuedAmount)

	AssetHolderID     string // the creditor of record
	LiabilityIssuerID string // the debtor

	Denomination string // currency/unit label, scenario-defined

	// payable-specific
	DueDay           int
	MaturityDistance int
	HasMaturityDist  bool
	HolderID         string // secondary-market holder; empty means none
	HasHolder        bool

	// delivery_obligation-specific
	SKU          string
	Quantity     int64
	UnitPrice    money.Price  // exact decimal unit price
	ValuedAmount money.Amount // quantity * unit_price, rounded, computed at creation

	// interbank_overnight-specific
	DebtorBankID   string
	CreditorBankID string
}

// EffectiveCreditor returns HolderID if set (payables only), else
// AssetHolderID. This is the "effective creditor" of spec.md's GLOSSARY.
func (i *Instrument) EffectiveCreditor() string {
	if i.Kind == KindPayable && i.HasHolder && i.HolderID != "" {
		return i.HolderID
	}
	return i.AssetHolderID
}

// IsMaturing reports whether the instrument has a due day (payable or
// delivery_obligation or interbank_overnight) equal to day.
func (i *Instrument) IsMaturing(day int) bool {
	switch i.Kind {
	case KindPayable, KindDeliveryObligation, KindInterbankOvernight:
		return i.DueDay == day
	default:
		return false
	}
}

// StockLot is a quantity of a SKU owned by one agent at one unit price.
// value = quantity * unit_price (spec.md §3).
type StockLot struct {
	ID        string
	OwnerID   string
	SKU       string
	Quantity  int64
	UnitPrice money.Price
}

// Value returns quantity*unit_price as an exact decimal (not rounded to
// an Amount — stock value is a valuation, not a settled cash amount).
func (s *StockLot) Value() money.Price {
	return s.UnitPrice.Mul(money.PriceFromInt(s.Quantity))
}
