package ledger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/closedloop/econsim/internal/domain"
)

func TestRunSettlement_FullPayment(t *testing.T) {
	s := newTestState(t)
	_, err := s.CreateAgent("cb", "Central Bank", domain.KindCentralBank)
	require.NoError(t, err)
	_, err = s.CreateAgent("debtor", "Debtor", domain.KindHousehold)
	require.NoError(t, err)
	_, err = s.CreateAgent("creditor", "Creditor", domain.KindHousehold)
	require.NoError(t, err)
	_, err = s.MintCash("debtor", 100, "cb", "")
	require.NoError(t, err)
	payableID, err := s.CreatePayable("debtor", "creditor", 100, 3, 0, false, "")
	require.NoError(t, err)
	require.NoError(t, s.EndSetup())

	s.Day = 3
	require.NoError(t, s.RunSettlement(3))

	_, exists := s.Instrument(payableID)
	assert.False(t, exists)

	creditor, _ := s.Agent("creditor")
	require.Len(t, creditor.AssetIDs, 1)
	inst, _ := s.Instrument(creditor.AssetIDs[0])
	assert.EqualValues(t, 100, inst.Amount)

	debtor, _ := s.Agent("debtor")
	assert.False(t, debtor.Defaulted)
}

func TestRunSettlement_PartialRecoveryWaterfall(t *testing.T) {
	s := newTestState(t)
	s.Policy.DefaultMode = ModeExpelAgent
	_, err := s.CreateAgent("cb", "Central Bank", domain.KindCentralBank)
	require.NoError(t, err)
	_, err = s.CreateAgent("debtor", "Debtor", domain.KindHousehold)
	require.NoError(t, err)
	_, err = s.CreateAgent("creditorA", "CreditorA", domain.KindHousehold)
	require.NoError(t, err)
	_, err = s.CreateAgent("creditorB", "CreditorB", domain.KindHousehold)
	require.NoError(t, err)

	// Debtor owes 100 total (60 + 40) but only has 50 available: a 50%
	// recovery rate, floor-rounded per creditor, last creditor absorbs
	// the remainder (spec.md §4.4).
	_, err = s.MintCash("debtor", 50, "cb", "")
	require.NoError(t, err)
	payA, err := s.CreatePayable("debtor", "creditorA", 60, 3, 0, false, "")
	require.NoError(t, err)
	payB, err := s.CreatePayable("debtor", "creditorB", 40, 3, 0, false, "")
	require.NoError(t, err)
	require.NoError(t, s.EndSetup())

	s.Day = 3
	require.NoError(t, s.RunSettlement(3))

	_, aExists := s.Instrument(payA)
	_, bExists := s.Instrument(payB)
	assert.False(t, aExists)
	assert.False(t, bExists)

	debtor, _ := s.Agent("debtor")
	assert.True(t, debtor.Defaulted)

	creditorA, _ := s.Agent("creditorA")
	creditorB, _ := s.Agent("creditorB")
	require.Len(t, creditorA.AssetIDs, 1)
	require.Len(t, creditorB.AssetIDs, 1)
	instA, _ := s.Instrument(creditorA.AssetIDs[0])
	instB, _ := s.Instrument(creditorB.AssetIDs[0])
	// 60*0.5=30, 40*0.5=20; total recovered == total pool (50).
	assert.EqualValues(t, 30, instA.Amount)
	assert.EqualValues(t, 20, instB.Amount)
}

func TestRunSettlement_FailFastOnShortfall(t *testing.T) {
	s := newTestState(t)
	_, err := s.CreateAgent("cb", "Central Bank", domain.KindCentralBank)
	require.NoError(t, err)
	_, err = s.CreateAgent("debtor", "Debtor", domain.KindHousehold)
	require.NoError(t, err)
	_, err = s.CreateAgent("creditor", "Creditor", domain.KindHousehold)
	require.NoError(t, err)
	_, err = s.MintCash("debtor", 10, "cb", "")
	require.NoError(t, err)
	_, err = s.CreatePayable("debtor", "creditor", 100, 3, 0, false, "")
	require.NoError(t, err)
	require.NoError(t, s.EndSetup())

	s.Day = 3
	err = s.RunSettlement(3)
	assert.Error(t, err)
}

func TestCheckInvariants_CleanLedgerPasses(t *testing.T) {
	s := New(NewDefaultPolicy(), zerolog.Nop())
	s.StartSetup()
	_, err := s.CreateAgent("cb", "Central Bank", domain.KindCentralBank)
	require.NoError(t, err)
	_, err = s.CreateAgent("alice", "Alice", domain.KindHousehold)
	require.NoError(t, err)
	_, err = s.MintCash("alice", 100, "cb", "")
	require.NoError(t, err)
	assert.NoError(t, s.CheckInvariants())
}
