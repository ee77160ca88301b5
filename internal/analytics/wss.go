package analytics

import (
	"math"
	"sort"
	"time"
)

// ScorePoint is one persisted raw score attributed to a security.
type ScorePoint struct {
	SecurityID uint
	RawScore   float64
	AnalyzedAt time.Time
}

// WSS is the time-decayed weighted sentiment for one security.
type WSS struct {
	WSS          float64 `json:"wss"`
	ArticleCount int     `json:"article_count"`
}

// DecayWeight is exp(-hours/(24*days)); the decay constant scales with the window.
func DecayWeight(age time.Duration, days int) float64 {
	if days <= 0 {
		days = 1
	}
	hours := age.Hours()
	if hours < 0 {
		hours = 0
	}
	return math.Exp(-hours / (24 * float64(days)))
}

// ComputeWSS aggregates the points analyzed within the last days days before now.
// Points outside the window are ignored; no points yields the zero value.
func ComputeWSS(points []ScorePoint, now time.Time, days int) WSS {
	if days <= 0 {
		days = 1
	}
	since := now.Add(-time.Duration(days) * 24 * time.Hour)

	var num, den float64
	count := 0
	for _, p := range points {
		if p.AnalyzedAt.Before(since) {
			continue
		}
		w := DecayWeight(now.Sub(p.AnalyzedAt), days)
		num += p.RawScore * w
		den += w
		count++
	}
	if count == 0 || den == 0 {
		return WSS{}
	}
	return WSS{WSS: ClampUnit(num / den), ArticleCount: count}
}

// SecurityRef identifies a tracked security.
type SecurityRef struct {
	ID     uint
	Symbol string
	Name   string
}

// Sentiment is the live sentiment snapshot for one security.
type Sentiment struct {
	SecurityID   uint    `json:"security_id"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	WSS          float64 `json:"wss"`
	ArticleCount int     `json:"article_count"`
	Signal       Signal  `json:"signal"`
}

// BuildSentiments groups a batch of points by security and computes WSS for every
// listed security, including those without data. Results are ordered by |wss|
// descending; equal magnitudes keep the input order.
func BuildSentiments(securities []SecurityRef, points []ScorePoint, now time.Time, days int) []Sentiment {
	bySecurity := make(map[uint][]ScorePoint, len(securities))
	for _, p := range points {
		bySecurity[p.SecurityID] = append(bySecurity[p.SecurityID], p)
	}

	out := make([]Sentiment, 0, len(securities))
	for _, s := range securities {
		w := ComputeWSS(bySecurity[s.ID], now, days)
		out = append(out, Sentiment{
			SecurityID:   s.ID,
			Symbol:       s.Symbol,
			Name:         s.Name,
			WSS:          w.WSS,
			ArticleCount: w.ArticleCount,
			Signal:       SignalFor(w.WSS),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].WSS) > math.Abs(out[j].WSS)
	})
	return out
}
