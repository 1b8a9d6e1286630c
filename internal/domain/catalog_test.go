package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_EveryStateBelongsToKnownFlow(t *testing.T) {
	for _, s := range AllStates() {
		_, ok := FlowByID(s.FlowID)
		assert.Truef(t, ok, "state %d references unknown flow %d", s.ID, s.FlowID)
	}
}

func TestCatalog_UniqueIDs(t *testing.T) {
	seen := make(map[int]bool)
	for _, s := range allStates {
		require.Falsef(t, seen[s.ID], "duplicate state id %d", s.ID)
		seen[s.ID] = true
	}

	seen = make(map[int]bool)
	for _, f := range allFlows {
		require.Falsef(t, seen[f.ID], "duplicate flow id %d", f.ID)
		seen[f.ID] = true
	}
}

func TestStateByID(t *testing.T) {
	s, ok := StateByID(StateClaimImported.ID)
	require.True(t, ok)
	assert.Equal(t, StateClaimImported, s)

	_, ok = StateByID(-1)
	assert.False(t, ok)
}

func TestStatesInFlow(t *testing.T) {
	states := StatesInFlow(FlowReferenceFile.ID)
	assert.Equal(t, []State{
		StateReferenceFileReceived,
		StateReferenceFileProcessed,
		StateReferenceFileErrored,
	}, states)
}

func TestNonRestartablePaymentStates_InPaymentFlow(t *testing.T) {
	for _, s := range NonRestartablePaymentStates {
		assert.Equal(t, FlowDelegatedPayment.ID, s.FlowID)
		assert.NotEqual(t, StatePaymentFailedMaxWeeklyBenefitAmountValidation, s)
	}
}

func TestParseAssociatedType(t *testing.T) {
	typ, ok := ParseAssociatedType("payment")
	require.True(t, ok)
	assert.Equal(t, AssociatedTypePayment, typ)

	_, ok = ParseAssociatedType("vendor")
	assert.False(t, ok)
}

func TestImportLog_Lifecycle(t *testing.T) {
	l := &ImportLog{Status: ImportLogStatusInProgress}
	assert.False(t, l.IsFinished())
	assert.Zero(t, l.Duration())

	l.MarkFailed(map[string]any{"processed": 3}, "boom")
	assert.True(t, l.IsFinished())
	assert.Equal(t, ImportLogStatusError, l.Status)
	assert.Equal(t, "boom", l.Report["message"])
	assert.Equal(t, 3, l.Report["processed"])
}
