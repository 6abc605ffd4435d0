package ledger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/closedloop/econsim/internal/domain"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	s := New(NewDefaultPolicy(), zerolog.Nop())
	s.StartSetup()
	return s
}

func TestMintCash_CreditsHolderAndIssuer(t *testing.T) {
	s := newTestState(t)
	_, err := s.CreateAgent("cb", "Central Bank", domain.KindCentralBank)
	require.NoError(t, err)
	_, err = s.CreateAgent("alice", "Alice", domain.KindHousehold)
	require.NoError(t, err)

	id, err := s.MintCash("alice", 100, "cb", "")
	require.NoError(t, err)

	inst, ok := s.Instrument(id)
	require.True(t, ok)
	assert.Equal(t, "alice", inst.EffectiveCreditor())
	assert.Equal(t, "cb", inst.LiabilityIssuerID)
	assert.EqualValues(t, 100, inst.Amount)
	require.NoError(t, s.EndSetup())
}

func TestMintCash_RejectsNonPositiveAmount(t *testing.T) {
	s := newTestState(t)
	_, err := s.CreateAgent("cb", "Central Bank", domain.KindCentralBank)
	require.NoError(t, err)
	_, err = s.CreateAgent("alice", "Alice", domain.KindHousehold)
	require.NoError(t, err)

	_, err = s.MintCash("alice", 0, "cb", "")
	assert.Error(t, err)
}

func TestTransferCash_MovesBalance(t *testing.T) {
	s := newTestState(t)
	_, err := s.CreateAgent("cb", "Central Bank", domain.KindCentralBank)
	require.NoError(t, err)
	_, err = s.CreateAgent("alice", "Alice", domain.KindHousehold)
	require.NoError(t, err)
	_, err = s.CreateAgent("bob", "Bob", domain.KindHousehold)
	require.NoError(t, err)
	_, err = s.MintCash("alice", 100, "cb", "")
	require.NoError(t, err)
	require.NoError(t, s.EndSetup())

	require.NoError(t, s.TransferCash("alice", "bob", 40))

	alice, _ := s.Agent("alice")
	bob, _ := s.Agent("bob")
	assert.Len(t, alice.AssetIDs, 1)
	aliceInst, _ := s.Instrument(alice.AssetIDs[0])
	assert.EqualValues(t, 60, aliceInst.Amount)
	require.Len(t, bob.AssetIDs, 1)
	bobInst, _ := s.Instrument(bob.AssetIDs[0])
	assert.EqualValues(t, 40, bobInst.Amount)
}

func TestTransferCash_InsufficientBalance(t *testing.T) {
	s := newTestState(t)
	_, err := s.CreateAgent("cb", "Central Bank", domain.KindCentralBank)
	require.NoError(t, err)
	_, err = s.CreateAgent("alice", "Alice", domain.KindHousehold)
	require.NoError(t, err)
	_, err = s.CreateAgent("bob", "Bob", domain.KindHousehold)
	require.NoError(t, err)
	_, err = s.MintCash("alice", 10, "cb", "")
	require.NoError(t, err)
	require.NoError(t, s.EndSetup())

	err = s.TransferCash("alice", "bob", 40)
	assert.Error(t, err)

	// A rolled-back transfer must leave alice's balance untouched.
	alice, _ := s.Agent("alice")
	inst, _ := s.Instrument(alice.AssetIDs[0])
	assert.EqualValues(t, 10, inst.Amount)
}

func TestTransferClaim_ChangesEffectiveCreditor(t *testing.T) {
	s := newTestState(t)
	_, err := s.CreateAgent("debtor", "Debtor", domain.KindHousehold)
	require.NoError(t, err)
	_, err = s.CreateAgent("creditor1", "Creditor1", domain.KindHousehold)
	require.NoError(t, err)
	_, err = s.CreateAgent("creditor2", "Creditor2", domain.KindHousehold)
	require.NoError(t, err)
	payableID, err := s.CreatePayable("debtor", "creditor1", 50, 5, 0, false, "")
	require.NoError(t, err)
	require.NoError(t, s.EndSetup())

	require.NoError(t, s.TransferClaim(payableID, "creditor2"))

	inst, ok := s.Instrument(payableID)
	require.True(t, ok)
	assert.Equal(t, "creditor2", inst.EffectiveCreditor())

	c1, _ := s.Agent("creditor1")
	c2, _ := s.Agent("creditor2")
	assert.NotContains(t, c1.AssetIDs, payableID)
	assert.Contains(t, c2.AssetIDs, payableID)
}

func TestRegisterAlias_WriteOnce(t *testing.T) {
	s := newTestState(t)
	_, err := s.CreateAgent("cb", "Central Bank", domain.KindCentralBank)
	require.NoError(t, err)
	_, err = s.CreateAgent("alice", "Alice", domain.KindHousehold)
	require.NoError(t, err)

	_, err = s.MintCash("alice", 10, "cb", "alice-cash")
	require.NoError(t, err)

	_, err = s.MintCash("alice", 5, "cb", "alice-cash")
	assert.Error(t, err)
}
