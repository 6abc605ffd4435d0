package scenario

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/closedloop/econsim/internal/domain"
)

func minimalFile() *File {
	return &File{
		Version: 1,
		Name:    "smoke",
		Agents: []AgentSpec{
			{ID: "cb", Name: "Central Bank", Kind: domain.KindCentralBank},
			{ID: "alice", Name: "Alice", Kind: domain.KindHousehold},
			{ID: "bob", Name: "Bob", Kind: domain.KindHousehold},
		},
		InitialActions: []ActionSpec{
			{Type: ActionMintCash, To: "alice", Amount: "100", CentralBankID: "cb"},
		},
		ScheduledActions: []ScheduledActionSpec{
			{Day: 1, Action: ActionSpec{Type: ActionTransferCash, From: "alice", To: "bob", Amount: "25"}},
		},
		Run: RunSpec{Mode: "step", MaxDays: 3, QuietDays: 2, DefaultHandling: "fail-fast"},
	}
}

func TestValidate_RejectsBadVersionAndDuplicateAgents(t *testing.T) {
	f := minimalFile()
	f.Version = 2
	assert.Error(t, f.Validate())

	f2 := minimalFile()
	f2.Agents = append(f2.Agents, AgentSpec{ID: "alice", Name: "dup", Kind: domain.KindHousehold})
	assert.Error(t, f2.Validate())

	f3 := minimalFile()
	f3.ScheduledActions[0].Day = 0
	assert.Error(t, f3.Validate())
}

func TestBuild_CreatesAgentsAppliesAndSchedulesActions(t *testing.T) {
	f := minimalFile()
	sim, err := Build(f, 7, zerolog.Nop())
	require.NoError(t, err)
	require.Nil(t, sim.Dealer)

	snap := sim.State.Snapshot()
	var aliceCash int64
	for _, l := range snap.Lines {
		if l.AgentID == "alice" && l.InstrumentKind == domain.KindCash {
			aliceCash = int64(l.NetAssets)
		}
	}
	assert.EqualValues(t, 100, aliceCash)

	report, err := sim.State.RunDay()
	require.NoError(t, err)
	assert.Equal(t, 1, report.Day)

	snap2 := sim.State.Snapshot()
	var aliceCash2, bobCash2 int64
	for _, l := range snap2.Lines {
		if l.InstrumentKind != domain.KindCash {
			continue
		}
		switch l.AgentID {
		case "alice":
			aliceCash2 = int64(l.NetAssets)
		case "bob":
			bobCash2 = int64(l.NetAssets)
		}
	}
	assert.EqualValues(t, 75, aliceCash2)
	assert.EqualValues(t, 25, bobCash2)
}

func TestBuild_RejectsUnknownAliasInScheduledTransferClaim(t *testing.T) {
	f := minimalFile()
	f.ScheduledActions = []ScheduledActionSpec{
		{Day: 1, Action: ActionSpec{Type: ActionTransferClaim, ContractID: "no_such_alias", ToAgentID: "bob"}},
	}
	_, err := Build(f, 1, zerolog.Nop())
	assert.Error(t, err)
}

func TestActionSpec_Build_UnknownTypeErrors(t *testing.T) {
	_, err := ActionSpec{Type: "bogus"}.Build()
	assert.Error(t, err)
}
