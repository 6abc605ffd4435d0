// Action is the programmatic form of spec.md §6's "initial_actions" and
// "scheduled_actions": a variant over the primitive ops, used by an
// external loader to build a scenario and by the daily loop to replay
// scheduled actions in Phase B1. File parsing itself is out of scope
// (spec.md §1); this package only exposes the variant and its Apply.
package ledger

import "github.com/closedloop/econsim/internal/money"

// Action applies one primitive operation to a ledger.
type Action interface {
	Apply(s *State) error
}

// ScheduledAction pairs an Action with the day it should run, matching
// spec.md §3's "per-day FIFO queue of scheduled actions".
type ScheduledAction struct {
	Day    int
	Action Action
}

// Schedule enqueues action to run during Phase B1 of the given day, in
// the order actions are scheduled (FIFO within a day).
func (s *State) Schedule(day int, action Action) {
	s.scheduled[day] = append(s.scheduled[day], ScheduledAction{Day: day, Action: action})
}

type MintCashAction struct {
	To            string
	Amount        money.Amount
	CentralBankID string
	Alias         string
}

func (a MintCashAction) Apply(s *State) error {
	_, err := s.MintCash(a.To, a.Amount, a.CentralBankID, a.Alias)
	return err
}

type MintReservesAction struct {
	To            string
	Amount        money.Amount
	CentralBankID string
	Alias         string
}

func (a MintReservesAction) Apply(s *State) error {
	_, err := s.MintReserves(a.To, a.Amount, a.CentralBankID, a.Alias)
	return err
}

type TransferCashAction struct {
	From, To string
	Amount   money.Amount
}

func (a TransferCashAction) Apply(s *State) error { return s.TransferCash(a.From, a.To, a.Amount) }

type TransferReservesAction struct {
	FromBank, ToBank string
	Amount           money.Amount
}

func (a TransferReservesAction) Apply(s *State) error {
	return s.TransferReserves(a.FromBank, a.ToBank, a.Amount)
}

type DepositCashAction struct {
	Customer, Bank string
	Amount         money.Amount
}

func (a DepositCashAction) Apply(s *State) error { return s.DepositCash(a.Customer, a.Bank, a.Amount) }

type WithdrawCashAction struct {
	Customer, Bank string
	Amount         money.Amount
}

func (a WithdrawCashAction) Apply(s *State) error {
	return s.WithdrawCash(a.Customer, a.Bank, a.Amount)
}

type ClientPaymentAction struct {
	Payer, PayerBank, Payee, PayeeBank string
	Amount                             money.Amount
}

func (a ClientPaymentAction) Apply(s *State) error {
	return s.ClientPayment(a.Payer, a.PayerBank, a.Payee, a.PayeeBank, a.Amount)
}

type CreateStockAction struct {
	Owner     string
	SKU       string
	Quantity  int64
	UnitPrice money.Price
}

func (a CreateStockAction) Apply(s *State) error {
	_, err := s.CreateStock(a.Owner, a.SKU, a.Quantity, a.UnitPrice)
	return err
}

type TransferStockAction struct {
	StockID  string
	To       string
	Quantity int64
}

func (a TransferStockAction) Apply(s *State) error {
	return s.TransferStock(a.StockID, a.To, a.Quantity)
}

type CreatePayableAction struct {
	From, To            string
	Amount              money.Amount
	DueDay              int
	MaturityDistance    int
	HasMaturityDistance bool
	Alias               string
}

func (a CreatePayableAction) Apply(s *State) error {
	_, err := s.CreatePayable(a.From, a.To, a.Amount, a.DueDay, a.MaturityDistance, a.HasMaturityDistance, a.Alias)
	return err
}

type CreateDeliveryObligationAction struct {
	From, To  string
	SKU       string
	Quantity  int64
	UnitPrice money.Price
	DueDay    int
	Alias     string
}

func (a CreateDeliveryObligationAction) Apply(s *State) error {
	_, err := s.CreateDeliveryObligation(a.From, a.To, a.SKU, a.Quantity, a.UnitPrice, a.DueDay, a.Alias)
	return err
}

type TransferClaimAction struct {
	ContractAliasOrID string
	ToAgentID         string
}

func (a TransferClaimAction) Apply(s *State) error {
	return s.TransferClaim(a.ContractAliasOrID, a.ToAgentID)
}
