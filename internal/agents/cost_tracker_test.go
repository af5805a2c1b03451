package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decisionflow/internal/adapters/ai"
)

func gpt4Info() *ai.ModelInfo {
	return &ai.ModelInfo{
		Provider:        ai.ProviderNameOpenAI,
		Name:            "gpt-4",
		InputCostPer1K:  0.03,
		OutputCostPer1K: 0.06,
	}
}

func TestCalculateCost(t *testing.T) {
	cost := CalculateCost(gpt4Info(), 1000, 500)
	assert.InDelta(t, 0.03+0.03, cost, 1e-9)
}

func TestCostTracker_RecordAndAggregate(t *testing.T) {
	ct := NewCostTracker()

	first := ct.RecordUsage(gpt4Info(), 1000, 500)
	second := ct.RecordUsage(gpt4Info(), 2000, 1000)
	assert.Greater(t, second, first)

	mc, ok := ct.GetCost("gpt-4")
	require.True(t, ok)
	assert.Equal(t, int64(3000), mc.InputTokens)
	assert.Equal(t, int64(1500), mc.OutputTokens)
	assert.Equal(t, int64(2), mc.CallCount)
	assert.InDelta(t, first+second, mc.TotalCostUSD, 1e-9)
	assert.InDelta(t, first+second, ct.TotalCost(), 1e-9)
}

func TestCostTracker_Reset(t *testing.T) {
	ct := NewCostTracker()
	ct.RecordUsage(gpt4Info(), 100, 100)
	ct.Reset()

	_, ok := ct.GetCost("gpt-4")
	assert.False(t, ok)
	assert.Zero(t, ct.TotalCost())
}

func TestCostTracker_SnapshotIsCopy(t *testing.T) {
	ct := NewCostTracker()
	ct.RecordUsage(gpt4Info(), 100, 100)

	snapshot := ct.GetAllCosts()
	entry := snapshot["gpt-4"]
	entry.TotalCostUSD = 999

	mc, _ := ct.GetCost("gpt-4")
	assert.Less(t, mc.TotalCostUSD, 1.0)
}
