package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/closedloop/econsim/internal/domain"
)

func TestRunDay_MovesThroughPhasesAndBackToA(t *testing.T) {
	s := newTestState(t)
	_, err := s.CreateAgent("cb", "Central Bank", domain.KindCentralBank)
	require.NoError(t, err)
	_, err = s.CreateAgent("alice", "Alice", domain.KindHousehold)
	require.NoError(t, err)
	_, err = s.MintCash("alice", 100, "cb", "")
	require.NoError(t, err)
	require.NoError(t, s.EndSetup())

	report, err := s.RunDay()
	require.NoError(t, err)
	assert.Equal(t, 1, report.Day)
	assert.True(t, report.Quiet)
	assert.Equal(t, PhaseA, s.Phase)
}

func TestRunDay_RejectsWhenNotInPhaseA(t *testing.T) {
	s := newTestState(t)
	_, err := s.CreateAgent("cb", "Central Bank", domain.KindCentralBank)
	require.NoError(t, err)
	require.NoError(t, s.EndSetup())

	s.Phase = PhaseB1
	_, err = s.RunDay()
	assert.Error(t, err)
}

func TestRun_StopsOnQuietDays(t *testing.T) {
	s := newTestState(t)
	_, err := s.CreateAgent("cb", "Central Bank", domain.KindCentralBank)
	require.NoError(t, err)
	_, err = s.CreateAgent("alice", "Alice", domain.KindHousehold)
	require.NoError(t, err)
	require.NoError(t, s.EndSetup())

	result, err := s.Run(30, 2)
	require.NoError(t, err)
	assert.Equal(t, "quiet", result.StoppedBy)
	assert.Equal(t, 2, result.FinalDay)
}

func TestRun_StopsOnMaxDaysWhenNeverQuiet(t *testing.T) {
	s := newTestState(t)
	_, err := s.CreateAgent("cb", "Central Bank", domain.KindCentralBank)
	require.NoError(t, err)
	_, err = s.CreateAgent("alice", "Alice", domain.KindHousehold)
	require.NoError(t, err)
	_, err = s.CreateAgent("bob", "Bob", domain.KindHousehold)
	require.NoError(t, err)
	_, err = s.MintCash("alice", 1000, "cb", "")
	require.NoError(t, err)
	require.NoError(t, s.EndSetup())

	for day := 1; day <= 5; day++ {
		s.Schedule(day, TransferCashAction{From: "alice", To: "bob", Amount: 1})
	}

	result, err := s.Run(3, 2)
	require.NoError(t, err)
	assert.Equal(t, "max_days", result.StoppedBy)
	assert.Equal(t, 3, result.FinalDay)
}

func TestPreflight_RejectsUnknownAliasInScheduledTransferClaim(t *testing.T) {
	s := newTestState(t)
	_, err := s.CreateAgent("cb", "Central Bank", domain.KindCentralBank)
	require.NoError(t, err)
	_, err = s.CreateAgent("alice", "Alice", domain.KindHousehold)
	require.NoError(t, err)
	require.NoError(t, s.EndSetup())

	err = s.Preflight([]ScheduledAction{
		{Day: 2, Action: TransferClaimAction{ContractAliasOrID: "never_declared", ToAgentID: "alice"}},
	})
	assert.Error(t, err)
}

func TestPreflight_AcceptsAliasDeclaredByAnEarlierScheduledAction(t *testing.T) {
	s := newTestState(t)
	_, err := s.CreateAgent("cb", "Central Bank", domain.KindCentralBank)
	require.NoError(t, err)
	_, err = s.CreateAgent("alice", "Alice", domain.KindHousehold)
	require.NoError(t, err)
	_, err = s.CreateAgent("bob", "Bob", domain.KindHousehold)
	require.NoError(t, err)
	require.NoError(t, s.EndSetup())

	err = s.Preflight([]ScheduledAction{
		{Day: 1, Action: CreatePayableAction{From: "alice", To: "bob", Amount: 10, DueDay: 5, Alias: "rent"}},
		{Day: 2, Action: TransferClaimAction{ContractAliasOrID: "rent", ToAgentID: "bob"}},
	})
	assert.NoError(t, err)
}
