package analytics

import (
	"math"
	"sort"
)

// ErrEmptyPortfolio is reported in a plan, not returned, when holdings are worth nothing.
const ErrEmptyPortfolio = "Empty portfolio"

type TradeType string

const (
	TradeBuy  TradeType = "buy"
	TradeSell TradeType = "sell"
)

// Position is a current holding valued at its last recorded current_value.
type Position struct {
	SecurityID   uint
	Symbol       string
	CurrentValue float64
}

// Trade is one instruction needed to move a weight to its target.
type Trade struct {
	SecurityID    uint      `json:"security_id"`
	Symbol        string    `json:"symbol"`
	Type          TradeType `json:"type"`
	CurrentWeight float64   `json:"current_weight"`
	TargetWeight  float64   `json:"target_weight"`
	Diff          float64   `json:"diff"`
	TradeValue    float64   `json:"trade_value"`
	WSS           float64   `json:"wss"`
	Signal        Signal    `json:"signal"`
}

// RebalancePlan is the outcome of diffing holdings against targets. Error is set
// instead of the other fields for an empty portfolio.
type RebalancePlan struct {
	PortfolioValue float64            `json:"portfolio_value"`
	CurrentWeights map[string]float64 `json:"current_weights"`
	TargetWeights  map[string]float64 `json:"target_weights"`
	Trades         []Trade            `json:"trades"`
	Error          string             `json:"error,omitempty"`
}

// PlanRebalance computes trades for every security in the sentiment snapshot whose
// weight diff reaches cfg.RebalanceThreshold. Trades are sorted by value, largest first.
func PlanRebalance(positions []Position, sentiments []Sentiment, cfg Config) RebalancePlan {
	var total float64
	for _, p := range positions {
		total += p.CurrentValue
	}
	if total <= 0 {
		return RebalancePlan{Error: ErrEmptyPortfolio}
	}

	current := make(map[string]float64, len(positions))
	for _, p := range positions {
		current[p.Symbol] += p.CurrentValue / total
	}

	target := CalculateTargetWeights(sentiments, cfg)

	trades := make([]Trade, 0)
	for _, s := range sentiments {
		tw, ok := target[s.Symbol]
		if !ok {
			continue
		}
		cw := current[s.Symbol]
		diff := tw - cw
		if math.Abs(diff) < cfg.RebalanceThreshold {
			continue
		}
		tradeType := TradeBuy
		if diff < 0 {
			tradeType = TradeSell
		}
		trades = append(trades, Trade{
			SecurityID:    s.SecurityID,
			Symbol:        s.Symbol,
			Type:          tradeType,
			CurrentWeight: cw,
			TargetWeight:  tw,
			Diff:          diff,
			TradeValue:    math.Abs(diff) * total,
			WSS:           s.WSS,
			Signal:        s.Signal,
		})
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].TradeValue > trades[j].TradeValue
	})

	return RebalancePlan{
		PortfolioValue: total,
		CurrentWeights: current,
		TargetWeights:  target,
		Trades:         trades,
	}
}

// ApproximatePrice stands in for a quote; there is no price feed, so one trade is one share.
func ApproximatePrice(tradeValue float64) float64 {
	if tradeValue <= 0 {
		return 1
	}
	return tradeValue
}
