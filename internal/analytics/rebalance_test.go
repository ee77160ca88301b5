package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noDataSentiments yields equal 0.25 targets for four securities.
func noDataSentiments() []Sentiment {
	return []Sentiment{
		{SecurityID: 1, Symbol: "A"},
		{SecurityID: 2, Symbol: "B"},
		{SecurityID: 3, Symbol: "C"},
		{SecurityID: 4, Symbol: "D"},
	}
}

func TestPlanRebalanceEmptyPortfolio(t *testing.T) {
	plan := PlanRebalance(nil, noDataSentiments(), DefaultConfig())
	assert.Equal(t, ErrEmptyPortfolio, plan.Error)
	assert.Empty(t, plan.Trades)

	plan = PlanRebalance([]Position{{SecurityID: 1, Symbol: "A"}}, noDataSentiments(), DefaultConfig())
	assert.Equal(t, ErrEmptyPortfolio, plan.Error)
}

func TestPlanRebalanceThreshold(t *testing.T) {
	const eps = 1e-6
	const total = 3_000_000.0

	t.Run("just below threshold", func(t *testing.T) {
		// A sits at 0.2+eps, so its diff to 0.25 is threshold-eps.
		positions := []Position{
			{SecurityID: 1, Symbol: "A", CurrentValue: 600_003},
			{SecurityID: 2, Symbol: "B", CurrentValue: 799_999},
			{SecurityID: 3, Symbol: "C", CurrentValue: 799_999},
			{SecurityID: 4, Symbol: "D", CurrentValue: 799_999},
		}
		plan := PlanRebalance(positions, noDataSentiments(), DefaultConfig())
		require.Empty(t, plan.Error)
		assert.InDelta(t, total, plan.PortfolioValue, 1e-6)
		assert.Empty(t, plan.Trades)
	})

	t.Run("just above threshold", func(t *testing.T) {
		positions := []Position{
			{SecurityID: 1, Symbol: "A", CurrentValue: 599_997},
			{SecurityID: 2, Symbol: "B", CurrentValue: 800_001},
			{SecurityID: 3, Symbol: "C", CurrentValue: 800_001},
			{SecurityID: 4, Symbol: "D", CurrentValue: 800_001},
		}
		plan := PlanRebalance(positions, noDataSentiments(), DefaultConfig())
		require.Len(t, plan.Trades, 1)

		trade := plan.Trades[0]
		assert.Equal(t, "A", trade.Symbol)
		assert.Equal(t, TradeBuy, trade.Type)
		assert.InDelta(t, 0.05+eps, trade.Diff, 1e-12)
		assert.InDelta(t, (0.05+eps)*total, trade.TradeValue, 1e-6)
	})
}

func TestPlanRebalanceBuysUnheldAndSortsByValue(t *testing.T) {
	positions := []Position{
		{SecurityID: 1, Symbol: "A", CurrentValue: 7500},
		{SecurityID: 2, Symbol: "B", CurrentValue: 2500},
	}
	plan := PlanRebalance(positions, noDataSentiments(), DefaultConfig())
	require.Empty(t, plan.Error)
	require.Len(t, plan.Trades, 3, "B already sits on target")

	assert.Equal(t, "A", plan.Trades[0].Symbol)
	assert.Equal(t, TradeSell, plan.Trades[0].Type)
	assert.InDelta(t, 5000, plan.Trades[0].TradeValue, 1e-9)

	for i := 1; i < len(plan.Trades); i++ {
		assert.GreaterOrEqual(t, plan.Trades[i-1].TradeValue, plan.Trades[i].TradeValue)
	}
	var buys []string
	for _, tr := range plan.Trades {
		if tr.Type == TradeBuy {
			buys = append(buys, tr.Symbol)
		}
	}
	assert.ElementsMatch(t, []string{"C", "D"}, buys)

	assert.InDelta(t, 0.75, plan.CurrentWeights["A"], 1e-12)
	assert.InDelta(t, 0.25, plan.TargetWeights["D"], 1e-12)
}

func TestApproximatePrice(t *testing.T) {
	assert.Equal(t, 1.0, ApproximatePrice(0))
	assert.Equal(t, 250.5, ApproximatePrice(250.5))
}
