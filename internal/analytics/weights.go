package analytics

import (
	"gonum.org/v1/gonum/floats"
)

// capEpsilon absorbs float noise when checking a weight against the cap.
const capEpsilon = 1e-12

// CalculateTargetWeights turns a sentiment snapshot into target weights summing to 1.
//
// Securities with articles get a sentiment-proportional share of (wss+1)/2; those
// without fall back to 1/N. The share is blended with the equal weight 1/N by
// cfg.SentimentWeight, capped at cfg.MaxPosition() and renormalized.
func CalculateTargetWeights(sentiments []Sentiment, cfg Config) map[string]float64 {
	weights := make(map[string]float64, len(sentiments))
	n := len(sentiments)
	if n == 0 {
		return weights
	}
	equal := 1 / float64(n)

	var normSum float64
	active := 0
	for _, s := range sentiments {
		if s.ArticleCount > 0 {
			normSum += (ClampUnit(s.WSS) + 1) / 2
			active++
		}
	}
	if active == 0 {
		for _, s := range sentiments {
			weights[s.Symbol] = equal
		}
		return weights
	}

	f := cfg.SentimentWeight
	for _, s := range sentiments {
		sw := equal
		if s.ArticleCount > 0 {
			norm := (ClampUnit(s.WSS) + 1) / 2
			if normSum > 0 {
				sw = norm / normSum
			} else {
				// every active security is maximally bearish
				sw = 1 / float64(active)
			}
		}
		weights[s.Symbol] = f*sw + (1-f)*equal
	}

	applyCap(weights, cfg.MaxPosition())
	return weights
}

// applyCap caps every weight and renormalizes to 1. When renormalization lifts a
// capped weight back over the ceiling, capped weights are pinned and the remainder
// is spread over the uncapped ones in proportion to their weight. If the cap cannot
// be met at all (N*cap < 1) the weights end up equal.
func applyCap(weights map[string]float64, maxPos float64) {
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	if maxPos <= 0 || maxPos*float64(len(keys)) < 1-capEpsilon {
		for _, k := range keys {
			weights[k] = 1 / float64(len(keys))
		}
		return
	}

	vals := make([]float64, len(keys))
	for i, k := range keys {
		vals[i] = weights[k]
		if vals[i] > maxPos {
			vals[i] = maxPos
		}
	}
	total := floats.Sum(vals)
	if total > 0 {
		floats.Scale(1/total, vals)
	}

	pinned := make([]bool, len(vals))
	for iter := 0; iter < len(vals); iter++ {
		over := false
		for i, v := range vals {
			if !pinned[i] && v > maxPos+capEpsilon {
				pinned[i] = true
				over = true
			}
		}
		if !over {
			break
		}
		free := 1.0
		var freeSum float64
		for i := range vals {
			if pinned[i] {
				vals[i] = maxPos
				free -= maxPos
			} else {
				freeSum += vals[i]
			}
		}
		for i := range vals {
			if !pinned[i] && freeSum > 0 {
				vals[i] = vals[i] / freeSum * free
			}
		}
	}

	for i, k := range keys {
		weights[k] = vals[i]
	}
}
