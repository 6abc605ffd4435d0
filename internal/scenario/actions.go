package scenario

import (
	"fmt"

	"github.com/closedloop/econsim/internal/ledger"
	"github.com/closedloop/econsim/internal/money"
)

// ActionKind names one of the 12 ledger.Action variants, as spelled in a
// scenario file's "type" field.
type ActionKind string

const (
	ActionMintCash                 ActionKind = "mint_cash"
	ActionMintReserves             ActionKind = "mint_reserves"
	ActionTransferCash             ActionKind = "transfer_cash"
	ActionTransferReserves         ActionKind = "transfer_reserves"
	ActionDepositCash              ActionKind = "deposit_cash"
	ActionWithdrawCash             ActionKind = "withdraw_cash"
	ActionClientPayment            ActionKind = "client_payment"
	ActionCreateStock              ActionKind = "create_stock"
	ActionTransferStock            ActionKind = "transfer_stock"
	ActionCreatePayable            ActionKind = "create_payable"
	ActionCreateDeliveryObligation ActionKind = "create_delivery_obligation"
	ActionTransferClaim            ActionKind = "transfer_claim"
)

// ActionSpec is the JSON shape of one scenario action: a discriminated
// union keyed by Type, with every variant's fields optional and decimal
// amounts carried as strings (spec.md §6).
type ActionSpec struct {
	Type ActionKind `json:"type"`

	From, To      string `json:"from,omitempty"`
	FromBank      string `json:"from_bank,omitempty"`
	ToBank        string `json:"to_bank,omitempty"`
	Payer         string `json:"payer,omitempty"`
	PayerBank     string `json:"payer_bank,omitempty"`
	Payee         string `json:"payee,omitempty"`
	PayeeBank     string `json:"payee_bank,omitempty"`
	Customer      string `json:"customer,omitempty"`
	Bank          string `json:"bank,omitempty"`
	CentralBankID string `json:"central_bank_id,omitempty"`
	Owner         string `json:"owner,omitempty"`
	StockID       string `json:"stock_id,omitempty"`
	ContractID    string `json:"contract_id,omitempty"`
	ToAgentID     string `json:"to_agent_id,omitempty"`
	Alias         string `json:"alias,omitempty"`

	Amount    string `json:"amount,omitempty"`
	Quantity  int64  `json:"quantity,omitempty"`
	UnitPrice string `json:"unit_price,omitempty"`
	SKU       string `json:"sku,omitempty"`

	DueDay              int  `json:"due_day,omitempty"`
	MaturityDistance    int  `json:"maturity_distance,omitempty"`
	HasMaturityDistance bool `json:"has_maturity_distance,omitempty"`
}

// Build converts the JSON-decoded spec into a concrete ledger.Action.
func (a ActionSpec) Build() (ledger.Action, error) {
	switch a.Type {
	case ActionMintCash:
		amt, err := parseAmount(a.Amount)
		if err != nil {
			return nil, err
		}
		return ledger.MintCashAction{To: a.To, Amount: amt, CentralBankID: a.CentralBankID, Alias: a.Alias}, nil

	case ActionMintReserves:
		amt, err := parseAmount(a.Amount)
		if err != nil {
			return nil, err
		}
		return ledger.MintReservesAction{To: a.To, Amount: amt, CentralBankID: a.CentralBankID, Alias: a.Alias}, nil

	case ActionTransferCash:
		amt, err := parseAmount(a.Amount)
		if err != nil {
			return nil, err
		}
		return ledger.TransferCashAction{From: a.From, To: a.To, Amount: amt}, nil

	case ActionTransferReserves:
		amt, err := parseAmount(a.Amount)
		if err != nil {
			return nil, err
		}
		return ledger.TransferReservesAction{FromBank: a.FromBank, ToBank: a.ToBank, Amount: amt}, nil

	case ActionDepositCash:
		amt, err := parseAmount(a.Amount)
		if err != nil {
			return nil, err
		}
		return ledger.DepositCashAction{Customer: a.Customer, Bank: a.Bank, Amount: amt}, nil

	case ActionWithdrawCash:
		amt, err := parseAmount(a.Amount)
		if err != nil {
			return nil, err
		}
		return ledger.WithdrawCashAction{Customer: a.Customer, Bank: a.Bank, Amount: amt}, nil

	case ActionClientPayment:
		amt, err := parseAmount(a.Amount)
		if err != nil {
			return nil, err
		}
		return ledger.ClientPaymentAction{
			Payer: a.Payer, PayerBank: a.PayerBank, Payee: a.Payee, PayeeBank: a.PayeeBank, Amount: amt,
		}, nil

	case ActionCreateStock:
		price, err := money.PriceFromString(a.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("create_stock unit_price: %w", err)
		}
		return ledger.CreateStockAction{Owner: a.Owner, SKU: a.SKU, Quantity: a.Quantity, UnitPrice: price}, nil

	case ActionTransferStock:
		return ledger.TransferStockAction{StockID: a.StockID, To: a.To, Quantity: a.Quantity}, nil

	case ActionCreatePayable:
		amt, err := parseAmount(a.Amount)
		if err != nil {
			return nil, err
		}
		return ledger.CreatePayableAction{
			From: a.From, To: a.To, Amount: amt, DueDay: a.DueDay,
			MaturityDistance: a.MaturityDistance, HasMaturityDistance: a.HasMaturityDistance, Alias: a.Alias,
		}, nil

	case ActionCreateDeliveryObligation:
		price, err := money.PriceFromString(a.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("create_delivery_obligation unit_price: %w", err)
		}
		return ledger.CreateDeliveryObligationAction{
			From: a.From, To: a.To, SKU: a.SKU, Quantity: a.Quantity, UnitPrice: price, DueDay: a.DueDay, Alias: a.Alias,
		}, nil

	case ActionTransferClaim:
		return ledger.TransferClaimAction{ContractAliasOrID: a.ContractID, ToAgentID: a.ToAgentID}, nil

	default:
		return nil, fmt.Errorf("unknown action type %q", a.Type)
	}
}
