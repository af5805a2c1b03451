package agents

import (
	"sync"

	"decisionflow/internal/adapters/ai"
	"decisionflow/internal/metrics"
)

// CostTracker tracks AI model usage costs for an agent process.
type CostTracker struct {
	mu    sync.RWMutex
	costs map[string]*ModelCost // model ID -> cost data
}

// ModelCost tracks cost for a specific model.
type ModelCost struct {
	ModelID      string
	InputTokens  int64
	OutputTokens int64
	TotalCostUSD float64
	CallCount    int64
}

// NewCostTracker creates a new cost tracker.
func NewCostTracker() *CostTracker {
	return &CostTracker{
		costs: make(map[string]*ModelCost),
	}
}

// RecordUsage records token usage for a model and returns the cost of the
// call in dollars.
func (ct *CostTracker) RecordUsage(modelInfo *ai.ModelInfo, inputTokens, outputTokens int) float64 {
	cost := CalculateCost(modelInfo, inputTokens, outputTokens)

	ct.mu.Lock()
	defer ct.mu.Unlock()

	if _, exists := ct.costs[modelInfo.Name]; !exists {
		ct.costs[modelInfo.Name] = &ModelCost{
			ModelID: modelInfo.Name,
		}
	}

	mc := ct.costs[modelInfo.Name]
	mc.InputTokens += int64(inputTokens)
	mc.OutputTokens += int64(outputTokens)
	mc.TotalCostUSD += cost
	mc.CallCount++

	metrics.RecordLLMUsage(string(modelInfo.Provider), modelInfo.Name, inputTokens, outputTokens)
	metrics.RecordLLMCost(string(modelInfo.Provider), modelInfo.Name, cost)

	return cost
}

// GetCost returns cost data for a specific model.
func (ct *CostTracker) GetCost(modelID string) (*ModelCost, bool) {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	cost, ok := ct.costs[modelID]
	return cost, ok
}

// GetAllCosts returns a snapshot of all cost data.
func (ct *CostTracker) GetAllCosts() map[string]ModelCost {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	costs := make(map[string]ModelCost, len(ct.costs))
	for id, cost := range ct.costs {
		costs[id] = *cost
	}

	return costs
}

// TotalCost returns the total cost across all models.
func (ct *CostTracker) TotalCost() float64 {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	var total float64
	for _, cost := range ct.costs {
		total += cost.TotalCostUSD
	}

	return total
}

// Reset clears all cost data.
func (ct *CostTracker) Reset() {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.costs = make(map[string]*ModelCost)
}

// CalculateCost calculates the dollar cost for a given token usage.
func CalculateCost(modelInfo *ai.ModelInfo, inputTokens, outputTokens int) float64 {
	inputCost := float64(inputTokens) / 1_000.0 * modelInfo.InputCostPer1K
	outputCost := float64(outputTokens) / 1_000.0 * modelInfo.OutputCostPer1K
	return inputCost + outputCost
}
