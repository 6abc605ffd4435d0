// Primitive operations (spec.md §4.2, L7). Each runs inside one atomic
// scope, takes the ledger plus minimal arguments, and emits the events of
// its operation; create_delivery_obligation emits none, and neither does a
// transfer_claim to the claim's current creditor. All amounts are positive integers; each function validates that
// up front so the scope never has to roll back on a trivially-checkable
// precondition.
package ledger

import (
	"fmt"

	"github.com/closedloop/econsim/internal/domain"
	"github.com/closedloop/econsim/internal/events"
	"github.com/closedloop/econsim/internal/money"
	"github.com/closedloop/econsim/internal/simerr"
)

func positive(amount money.Amount, what string) error {
	if amount <= 0 {
		return simerr.NewValidation("non_positive_amount", fmt.Sprintf("%s must be positive, got %d", what, amount))
	}
	return nil
}

// newInstrument allocates and registers a fresh instrument of kind, fully
// wired into the given agents' asset/liability lists, inside sc.
func (s *State) newInstrument(sc *Scope, kind domain.InstrumentKind, amount money.Amount, holderID, issuerID string, setup func(*domain.Instrument)) (*domain.Instrument, error) {
	holder, err := s.MustAgent(holderID)
	if err != nil {
		return nil, err
	}
	issuer, err := s.MustAgent(issuerID)
	if err != nil {
		return nil, err
	}
	id := s.NextID(instrumentPrefix(kind))
	inst := &domain.Instrument{
		ID:                id,
		Kind:              kind,
		Amount:            amount,
		AssetHolderID:     holderID,
		LiabilityIssuerID: issuerID,
	}
	if setup != nil {
		setup(inst)
	}
	s.instruments[id] = inst
	s.instrOrder = append(s.instrOrder, id)
	sc.NoteNewInstrument(id)

	sc.TouchAgent(holderID)
	addAsset(holder, id)
	sc.TouchAgent(issuerID)
	addLiability(issuer, id)
	return inst, nil
}

func instrumentPrefix(kind domain.InstrumentKind) string {
	switch kind {
	case domain.KindCash:
		return "ca"
	case domain.KindBankDeposit:
		return "bd"
	case domain.KindReserveDeposit:
		return "rd"
	case domain.KindPayable:
		return "pa"
	case domain.KindDeliveryObligation:
		return "do"
	case domain.KindInterbankOvernight:
		return "ib"
	default:
		return "in"
	}
}

// MintCash creates a cash instrument issued by centralBankID and held by
// to (spec.md §4.2 mint_cash).
func (s *State) MintCash(to string, amount money.Amount, centralBankID string, alias string) (string, error) {
	if err := positive(amount, "mint amount"); err != nil {
		return "", err
	}
	var instID string
	err := s.Atomic(func(sc *Scope) error {
		inst, err := s.newInstrument(sc, domain.KindCash, amount, to, centralBankID, nil)
		if err != nil {
			return err
		}
		if alias != "" {
			if err := s.RegisterAlias(alias, inst.ID); err != nil {
				return err
			}
			sc.NoteNewAlias(alias)
		}
		instID = inst.ID
		s.emit(&events.MintData{ToAgentID: to, InstrumentID: inst.ID, Amount: int64(amount), Kind: "Cash"})
		return nil
	})
	return instID, err
}

// MintReserves creates a reserve_deposit instrument issued by the central
// bank and held by to (a bank). Symmetric to MintCash.
func (s *State) MintReserves(to string, amount money.Amount, centralBankID string, alias string) (string, error) {
	if err := positive(amount, "mint amount"); err != nil {
		return "", err
	}
	var instID string
	err := s.Atomic(func(sc *Scope) error {
		inst, err := s.newInstrument(sc, domain.KindReserveDeposit, amount, to, centralBankID, nil)
		if err != nil {
			return err
		}
		if alias != "" {
			if err := s.RegisterAlias(alias, inst.ID); err != nil {
				return err
			}
			sc.NoteNewAlias(alias)
		}
		instID = inst.ID
		s.emit(&events.MintData{ToAgentID: to, InstrumentID: inst.ID, Amount: int64(amount), Kind: "Reserves"})
		return nil
	})
	return instID, err
}

// debitHolding removes amount of instruments of kind, issued by issuerID
// (if issuerID != "" — pass "" to match any issuer, used for cash which
// always has the same central-bank issuer but kept general), held by
// holderID, from the ledger, splitting the last lot touched if it is
// larger than the remaining draw. Lots are drawn in creation order
// (instrument id insertion order), per spec.md §4.3's determinism rule.
// Returns an error if the holder's available balance is insufficient.
func (s *State) debitHolding(sc *Scope, holderID string, kind domain.InstrumentKind, issuerID string, amount money.Amount) error {
	holder, err := s.MustAgent(holderID)
	if err != nil {
		return err
	}
	remaining := amount
	// Iterate a stable copy since we mutate AssetIDs while iterating.
	ids := append([]string(nil), holder.AssetIDs...)
	for _, iid := range ids {
		if remaining <= 0 {
			break
		}
		inst := s.instruments[iid]
		if inst.Kind != kind {
			continue
		}
		if issuerID != "" && inst.LiabilityIssuerID != issuerID {
			continue
		}
		draw := money.Min(remaining, inst.Amount)
		if draw <= 0 {
			continue
		}
		sc.TouchInstrument(iid)
		inst.Amount -= draw
		remaining -= draw
		if inst.Amount == 0 {
			s.detachInstrument(sc, inst)
		}
	}
	if remaining > 0 {
		return simerr.NewValidation("insufficient_balance",
			fmt.Sprintf("agent %s has insufficient %s (short by %d)", holderID, kind, remaining))
	}
	return nil
}

// detachInstrument removes a fully-drained instrument from both its
// holder's asset list and its issuer's liability list and deletes it.
func (s *State) detachInstrument(sc *Scope, inst *domain.Instrument) {
	if holder, ok := s.agents[inst.EffectiveCreditor()]; ok {
		sc.TouchAgent(holder.ID)
		removeAsset(holder, inst.ID)
	}
	if issuer, ok := s.agents[inst.LiabilityIssuerID]; ok {
		sc.TouchAgent(issuer.ID)
		removeLiability(issuer, inst.ID)
	}
	s.removeInstrument(inst.ID)
}

// creditHolding adds amount of a cash-like instrument of kind, issued by
// issuerID, to holderID — merging into the first (oldest) lot of that
// (kind, issuer) pair in the holder's asset list if one exists, else
// minting a new lot.
// Merging keeps the asset list from growing unboundedly across many
// small transfers.
func (s *State) creditHolding(sc *Scope, holderID string, kind domain.InstrumentKind, issuerID string, amount money.Amount) error {
	holder, err := s.MustAgent(holderID)
	if err != nil {
		return err
	}
	for _, iid := range holder.AssetIDs {
		inst := s.instruments[iid]
		if inst.Kind == kind && inst.LiabilityIssuerID == issuerID {
			sc.TouchInstrument(iid)
			inst.Amount += amount
			return nil
		}
	}
	_, err = s.newInstrument(sc, kind, amount, holderID, issuerID, nil)
	return err
}

// TransferCash moves amount of cash from one agent to another (spec.md
// §4.2 transfer_cash).
func (s *State) TransferCash(from, to string, amount money.Amount) error {
	return s.transferCashlike(from, to, domain.KindCash, amount)
}

// TransferReserves moves amount of reserve_deposit between two banks
// (spec.md §4.2 transfer_reserves).
func (s *State) TransferReserves(fromBank, toBank string, amount money.Amount) error {
	return s.transferCashlike(fromBank, toBank, domain.KindReserveDeposit, amount)
}

func (s *State) transferCashlike(from, to string, kind domain.InstrumentKind, amount money.Amount) error {
	if err := positive(amount, "transfer amount"); err != nil {
		return err
	}
	return s.Atomic(func(sc *Scope) error {
		// Cash/reserves are always issued by a single central bank in
		// a scenario; matching on kind alone (not a specific issuer) is
		// correct because all cash in the system shares one issuer.
		if err := s.debitHolding(sc, from, kind, "", amount); err != nil {
			return err
		}
		issuerID := s.cashIssuerFor(kind)
		if err := s.creditHolding(sc, to, kind, issuerID, amount); err != nil {
			return err
		}
		s.emit(&events.TransferData{FromAgentID: from, ToAgentID: to, Amount: int64(amount), Kind: string(kind)})
		return nil
	})
}

// cashIssuerFor returns the liability issuer of the first instrument of
// kind found in the ledger — used to preserve the issuer identity across
// a debit/credit pair where the caller did not name an issuer explicitly.
func (s *State) cashIssuerFor(kind domain.InstrumentKind) string {
	for _, iid := range s.instrOrder {
		inst := s.instruments[iid]
		if inst.Kind == kind {
			return inst.LiabilityIssuerID
		}
	}
	return ""
}

// DepositCash moves cash from customer to bank's vault cash and credits
// the customer with a bank_deposit claim on bank (spec.md §4.2
// deposit_cash).
func (s *State) DepositCash(customer, bank string, amount money.Amount) error {
	if err := positive(amount, "deposit amount"); err != nil {
		return err
	}
	return s.Atomic(func(sc *Scope) error {
		if err := s.debitHolding(sc, customer, domain.KindCash, "", amount); err != nil {
			return err
		}
		if err := s.creditHolding(sc, customer, domain.KindBankDeposit, bank, amount); err != nil {
			return err
		}
		if err := s.creditHolding(sc, bank, domain.KindCash, s.cashIssuerFor(domain.KindCash), amount); err != nil {
			return err
		}
		s.registerClient(sc, bank, customer)
		s.emit(&events.TransferData{FromAgentID: customer, ToAgentID: bank, Amount: int64(amount), Kind: "DepositCash"})
		return nil
	})
}

// WithdrawCash is the reverse of DepositCash.
func (s *State) WithdrawCash(customer, bank string, amount money.Amount) error {
	if err := positive(amount, "withdrawal amount"); err != nil {
		return err
	}
	return s.Atomic(func(sc *Scope) error {
		if err := s.debitHolding(sc, customer, domain.KindBankDeposit, bank, amount); err != nil {
			return err
		}
		if err := s.debitHolding(sc, bank, domain.KindCash, "", amount); err != nil {
			return err
		}
		if err := s.creditHolding(sc, customer, domain.KindCash, s.cashIssuerFor(domain.KindCash), amount); err != nil {
			return err
		}
		s.emit(&events.TransferData{FromAgentID: bank, ToAgentID: customer, Amount: int64(amount), Kind: "WithdrawCash"})
		return nil
	})
}

func (s *State) registerClient(sc *Scope, bankID, customerID string) {
	bank, ok := s.agents[bankID]
	if !ok || bank.HasClient(customerID) {
		return
	}
	sc.TouchAgent(bankID)
	bank.ClientIDs = append(bank.ClientIDs, customerID)
}

// ClientPayment discharges amount from payer's bank_deposit at payerBank
// to payee's bank_deposit at payeeBank. If the two banks differ, an
// interbank_overnight claim of payerBank (debtor) on payeeBank (creditor)
// is created/augmented for today; reserves do not move until Phase C
// (spec.md §4.2 client_payment).
func (s *State) ClientPayment(payer, payerBank, payee, payeeBank string, amount money.Amount) error {
	if err := positive(amount, "payment amount"); err != nil {
		return err
	}
	return s.Atomic(func(sc *Scope) error {
		if err := s.debitHolding(sc, payer, domain.KindBankDeposit, payerBank, amount); err != nil {
			return err
		}
		if err := s.creditHolding(sc, payee, domain.KindBankDeposit, payeeBank, amount); err != nil {
			return err
		}
		s.registerClient(sc, payeeBank, payee)
		interbank := payerBank != payeeBank
		if interbank {
			if err := s.augmentInterbank(sc, payerBank, payeeBank, amount); err != nil {
				return err
			}
		}
		s.emit(&events.ClientPaymentData{
			PayerID: payer, PayerBankID: payerBank,
			PayeeID: payee, PayeeBankID: payeeBank,
			Amount: int64(amount), InterbankDrawn: interbank,
		})
		return nil
	})
}

// augmentInterbank finds today's interbank_overnight instrument between
// debtorBank and creditorBank and adds amount to it, or creates a new one
// due today if none exists yet.
func (s *State) augmentInterbank(sc *Scope, debtorBank, creditorBank string, amount money.Amount) error {
	debtor, err := s.MustAgent(debtorBank)
	if err != nil {
		return err
	}
	for _, iid := range debtor.LiabilityIDs {
		inst := s.instruments[iid]
		if inst.Kind == domain.KindInterbankOvernight &&
			inst.DebtorBankID == debtorBank && inst.CreditorBankID == creditorBank &&
			inst.DueDay == s.Day {
			sc.TouchInstrument(iid)
			inst.Amount += amount
			return nil
		}
	}
	_, err = s.newInstrument(sc, domain.KindInterbankOvernight, amount, creditorBank, debtorBank, func(i *domain.Instrument) {
		i.DueDay = s.Day
		i.DebtorBankID = debtorBank
		i.CreditorBankID = creditorBank
	})
	return err
}

// CreateStock creates a fresh stock lot owned by owner (spec.md §4.2
// create_stock).
func (s *State) CreateStock(owner, sku string, quantity int64, unitPrice money.Price) (string, error) {
	if quantity <= 0 {
		return "", simerr.NewValidation("non_positive_quantity", "stock quantity must be positive")
	}
	var lotID string
	err := s.Atomic(func(sc *Scope) error {
		ownerAgent, err := s.MustAgent(owner)
		if err != nil {
			return err
		}
		id := s.NextID("st")
		lot := &domain.StockLot{ID: id, OwnerID: owner, SKU: sku, Quantity: quantity, UnitPrice: unitPrice}
		s.stocks[id] = lot
		s.stockOrder = append(s.stockOrder, id)
		sc.NoteNewStock(id)
		sc.TouchAgent(owner)
		ownerAgent.StockIDs = append(ownerAgent.StockIDs, id)
		lotID = id
		s.emit(&events.StockCreatedData{StockID: id, OwnerID: owner, SKU: sku, Quantity: quantity, UnitPrice: unitPrice.String()})
		return nil
	})
	return lotID, err
}

// TransferStock moves quantity units of stockID from its current owner to
// to, splitting the lot if quantity is less than the lot's full amount
// (spec.md §4.2 transfer_stock). quantity<=0 means transfer the whole lot.
func (s *State) TransferStock(stockID, to string, quantity int64) error {
	return s.Atomic(func(sc *Scope) error {
		lot, ok := s.stocks[stockID]
		if !ok {
			return simerr.NewValidation("unknown_stock", fmt.Sprintf("stock lot %s does not exist", stockID))
		}
		from := lot.OwnerID
		if quantity <= 0 {
			quantity = lot.Quantity
		}
		if quantity > lot.Quantity {
			return simerr.NewValidation("insufficient_stock",
				fmt.Sprintf("lot %s has %d units, cannot transfer %d", stockID, lot.Quantity, quantity))
		}
		fromAgent, err := s.MustAgent(from)
		if err != nil {
			return err
		}
		if _, err := s.MustAgent(to); err != nil {
			return err
		}
		sc.TouchStock(stockID)
		sc.TouchAgent(from)
		if quantity == lot.Quantity {
			lot.OwnerID = to
			fromAgent.StockIDs = removeString(fromAgent.StockIDs, stockID)
		} else {
			lot.Quantity -= quantity
			newID := s.NextID("st")
			newLot := &domain.StockLot{ID: newID, OwnerID: to, SKU: lot.SKU, Quantity: quantity, UnitPrice: lot.UnitPrice}
			s.stocks[newID] = newLot
			s.stockOrder = append(s.stockOrder, newID)
			sc.NoteNewStock(newID)
			stockID = newID
		}
		toAgent, err := s.MustAgent(to)
		if err != nil {
			return err
		}
		sc.TouchAgent(to)
		toAgent.StockIDs = append(toAgent.StockIDs, stockID)
		s.emit(&events.StockTransferredData{StockID: stockID, FromID: from, ToID: to, SKU: lot.SKU, Quantity: quantity})
		return nil
	})
}

// CreatePayable creates a payable of amount from `from` (debtor) to `to`
// (creditor), due on dueDay, optionally carrying maturityDistance for
// rollover (spec.md §4.2 create_payable).
func (s *State) CreatePayable(from, to string, amount money.Amount, dueDay int, maturityDistance int, hasMaturityDistance bool, alias string) (string, error) {
	if err := positive(amount, "payable amount"); err != nil {
		return "", err
	}
	var instID string
	err := s.Atomic(func(sc *Scope) error {
		inst, err := s.newInstrument(sc, domain.KindPayable, amount, to, from, func(i *domain.Instrument) {
			i.DueDay = dueDay
			i.MaturityDistance = maturityDistance
			i.HasMaturityDist = hasMaturityDistance
		})
		if err != nil {
			return err
		}
		if alias != "" {
			if err := s.RegisterAlias(alias, inst.ID); err != nil {
				return err
			}
			sc.NoteNewAlias(alias)
		}
		instID = inst.ID
		s.emit(&events.PayableCreatedData{InstrumentID: inst.ID, DebtorID: from, CreditorID: to, Amount: int64(amount), DueDay: dueDay})
		return nil
	})
	return instID, err
}

// CreateDeliveryObligation creates a contract to deliver quantity units of
// sku at unitPrice, due on dueDay (spec.md §4.2
// create_delivery_obligation).
func (s *State) CreateDeliveryObligation(from, to, sku string, quantity int64, unitPrice money.Price, dueDay int, alias string) (string, error) {
	if quantity <= 0 {
		return "", simerr.NewValidation("non_positive_quantity", "delivery obligation quantity must be positive")
	}
	valued := money.Valued(quantity, unitPrice)
	var instID string
	err := s.Atomic(func(sc *Scope) error {
		inst, err := s.newInstrument(sc, domain.KindDeliveryObligation, 0, to, from, func(i *domain.Instrument) {
			i.SKU = sku
			i.Quantity = quantity
			i.UnitPrice = unitPrice
			i.ValuedAmount = valued
			i.DueDay = dueDay
		})
		if err != nil {
			return err
		}
		if alias != "" {
			if err := s.RegisterAlias(alias, inst.ID); err != nil {
				return err
			}
			sc.NoteNewAlias(alias)
		}
		instID = inst.ID
		return nil
	})
	return instID, err
}

// TransferClaim changes the effective creditor of an existing payable or
// delivery obligation (spec.md §4.2 transfer_claim). For payables, the
// original asset_holder_id is preserved and HolderID is set to the new
// holder (so the secondary-market chain is auditable); for every other
// instrument kind AssetHolderID is reassigned directly, since those kinds
// have no secondary-holder field.
func (s *State) TransferClaim(contractAliasOrID, toAgentID string) error {
	return s.Atomic(func(sc *Scope) error {
		instID, err := s.ResolveAlias(contractAliasOrID)
		if err != nil {
			return err
		}
		inst, ok := s.instruments[instID]
		if !ok {
			return simerr.NewValidation("unknown_instrument", fmt.Sprintf("instrument %s does not exist", instID))
		}
		if _, err := s.MustAgent(toAgentID); err != nil {
			return err
		}
		oldCreditor := inst.EffectiveCreditor()
		if oldCreditor == toAgentID {
			return nil
		}
		oldAgent, err := s.MustAgent(oldCreditor)
		if err != nil {
			return err
		}
		sc.TouchAgent(oldCreditor)
		removeAsset(oldAgent, instID)

		sc.TouchInstrument(instID)
		if inst.Kind == domain.KindPayable {
			inst.HolderID = toAgentID
			inst.HasHolder = true
		} else {
			inst.AssetHolderID = toAgentID
		}

		newAgent, err := s.MustAgent(toAgentID)
		if err != nil {
			return err
		}
		sc.TouchAgent(toAgentID)
		addAsset(newAgent, instID)

		s.emit(&events.ClaimTransferredData{InstrumentID: instID, FromID: oldCreditor, ToID: toAgentID})
		return nil
	})
}
