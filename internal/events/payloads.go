package events

// BeginDayData marks the start of a simulated day.
type BeginDayData struct {
	Day int `json:"day"`
}

func (d *BeginDayData) EventType() Type { return BeginDay }

// PhaseMarkerData marks a phase transition with no further payload.
type PhaseMarkerData struct {
	Phase string `json:"phase"`
}

func (d *PhaseMarkerData) EventType() Type { return Type(d.Phase) }

// MintData records mint_cash / mint_reserves.
type MintData struct {
	ToAgentID    string `json:"to_agent_id"`
	InstrumentID string `json:"instrument_id"`
	Amount       int64  `json:"amount"`
	Kind         string `json:"kind"`
}

func (d *MintData) EventType() Type { return Type("Mint" + d.Kind) }

// TransferData records transfer_cash / transfer_reserves.
type TransferData struct {
	FromAgentID string `json:"from_agent_id"`
	ToAgentID   string `json:"to_agent_id"`
	Amount      int64  `json:"amount"`
	Kind        string `json:"kind"`
}

func (d *TransferData) EventType() Type { return Type("Transfer" + d.Kind) }

// ClientPaymentData records client_payment (intra- or inter-bank).
type ClientPaymentData struct {
	PayerID        string `json:"payer_id"`
	PayerBankID    string `json:"payer_bank_id"`
	PayeeID        string `json:"payee_id"`
	PayeeBankID    string `json:"payee_bank_id"`
	Amount         int64  `json:"amount"`
	InterbankDrawn bool   `json:"interbank_drawn"`
}

func (d *ClientPaymentData) EventType() Type { return ClientPayment }

// PayableCreatedData records create_payable.
type PayableCreatedData struct {
	InstrumentID string `json:"instrument_id"`
	DebtorID     string `json:"debtor_id"`
	CreditorID   string `json:"creditor_id"`
	Amount       int64  `json:"amount"`
	DueDay       int    `json:"due_day"`
}

func (d *PayableCreatedData) EventType() Type { return PayableCreated }

// PayableSettledData records a fully-paid payable.
type PayableSettledData struct {
	InstrumentID string `json:"instrument_id"`
	DebtorID     string `json:"debtor_id"`
	CreditorID   string `json:"creditor_id"`
	Amount       int64  `json:"amount"`
	Rolled       bool   `json:"rolled"`
}

func (d *PayableSettledData) EventType() Type { return PayableSettled }

// DefaultEventData records one obligation's outcome under the partial-
// recovery waterfall (one per affected obligation, per spec.md §4.4).
type DefaultEventData struct {
	InstrumentID string `json:"instrument_id"`
	DebtorID     string `json:"debtor_id"`
	CreditorID   string `json:"creditor_id"`
	Face         int64  `json:"face"`
	Recovered    int64  `json:"recovered"`
	RecoveryRate string `json:"recovery_rate"` // canonical decimal string
}

func (d *DefaultEventData) EventType() Type { return DefaultEvent }

// StockCreatedData records create_stock.
type StockCreatedData struct {
	StockID   string `json:"stock_id"`
	OwnerID   string `json:"owner_id"`
	SKU       string `json:"sku"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

func (d *StockCreatedData) EventType() Type { return StockCreated }

// StockTransferredData records transfer_stock.
type StockTransferredData struct {
	StockID  string `json:"stock_id"`
	FromID   string `json:"from_id"`
	ToID     string `json:"to_id"`
	SKU      string `json:"sku"`
	Quantity int64  `json:"quantity"`
}

func (d *StockTransferredData) EventType() Type { return StockTransferred }

// DeliveryObligationSettledData records the settlement (or default) of a
// delivery obligation.
type DeliveryObligationSettledData struct {
	InstrumentID string `json:"instrument_id"`
	DebtorID     string `json:"debtor_id"`
	CreditorID   string `json:"creditor_id"`
	SKU          string `json:"sku"`
	Quantity     int64  `json:"quantity"`
	Defaulted    bool   `json:"defaulted"`
}

func (d *DeliveryObligationSettledData) EventType() Type { return DeliveryObligationSettled }

// InterbankClearedData records Phase C netting of one bank pair.
type InterbankClearedData struct {
	DebtorBankID   string `json:"debtor_bank_id"`
	CreditorBankID string `json:"creditor_bank_id"`
	NetAmount      int64  `json:"net_amount"`
}

func (d *InterbankClearedData) EventType() Type { return InterbankCleared }

// ClaimTransferredData records transfer_claim.
type ClaimTransferredData struct {
	InstrumentID string `json:"instrument_id"`
	FromID       string `json:"from_id"`
	ToID         string `json:"to_id"`
}

func (d *ClaimTransferredData) EventType() Type { return ClaimTransferred }

// DealerTradeData records an interior trade execution (spec.md §4.9).
type DealerTradeData struct {
	Bucket      string `json:"bucket"`
	Side        string `json:"side"` // "sell" or "buy" (customer side)
	TraderID    string `json:"trader_id"`
	DealerID    string `json:"dealer_id"`
	TicketID    string `json:"ticket_id"`
	Price       string `json:"price"`
	Passthrough bool   `json:"passthrough"`
}

func (d *DealerTradeData) EventType() Type {
	if d.Passthrough {
		return DealerPassthrough
	}
	return DealerTrade
}

// DealerRebucketData records a ticket moving between maturity buckets
// (spec.md §4.10 step 2).
type DealerRebucketData struct {
	TicketID   string `json:"ticket_id"`
	FromBucket string `json:"from_bucket"`
	ToBucket   string `json:"to_bucket"`
	HolderKind string `json:"holder_kind"`
}

func (d *DealerRebucketData) EventType() Type { return DealerRebucket }

// VbtAnchorUpdateData records a per-bucket VBT anchor update (spec.md
// §4.3 / §4.10 step 7).
type VbtAnchorUpdateData struct {
	Bucket   string `json:"bucket"`
	LossRate string `json:"loss_rate"`
	NewM     string `json:"new_m"`
	NewO     string `json:"new_o"`
}

func (d *VbtAnchorUpdateData) EventType() Type { return VbtAnchorUpdate }

// DealerOrderRejectedData records a trader declining a dealer-quoted
// price under the risk-assessment acceptance gate (spec.md §4.9,
// extended): the offer did not clear expected value plus the
// urgency-adjusted threshold.
type DealerOrderRejectedData struct {
	Bucket        string `json:"bucket"`
	Side          string `json:"side"` // "sell" or "buy"
	TraderID      string `json:"trader_id"`
	TicketID      string `json:"ticket_id"`
	OfferedPrice  string `json:"offered_price"`
	ExpectedValue string `json:"expected_value"`
	Reason        string `json:"reason"`
}

func (d *DealerOrderRejectedData) EventType() Type { return DealerOrderRejected }

// DealerLiquidationData records a ticket forcibly sold into a bucket's
// dealer or VBT book on behalf of a defaulting debtor, so its proceeds
// can join the ledger's partial-recovery pool (spec.md §4.4).
type DealerLiquidationData struct {
	Bucket      string `json:"bucket"`
	OwnerID     string `json:"owner_id"`
	TicketID    string `json:"ticket_id"`
	Price       string `json:"price"`
	Passthrough bool   `json:"passthrough"`
}

func (d *DealerLiquidationData) EventType() Type { return DealerLiquidation }
