package analytics

import "sort"

// LabeledScore is one sentiment row as seen by the daily fold.
type LabeledScore struct {
	SecurityID uint
	Label      Label
	RawScore   float64
}

// DailyFold is one security's aggregate for a single day.
type DailyFold struct {
	SecurityID        uint
	AvgSentiment      float64
	WeightedSentiment float64
	ArticleCount      int
	PositiveCount     int
	NegativeCount     int
	NeutralCount      int
}

// FoldDaily groups one day's scores per security. Average and weighted sentiment
// are both the plain mean of raw scores; the result is ordered by security id.
func FoldDaily(scores []LabeledScore) []DailyFold {
	bySecurity := make(map[uint]*DailyFold)
	sums := make(map[uint]float64)
	for _, s := range scores {
		f, ok := bySecurity[s.SecurityID]
		if !ok {
			f = &DailyFold{SecurityID: s.SecurityID}
			bySecurity[s.SecurityID] = f
		}
		f.ArticleCount++
		sums[s.SecurityID] += s.RawScore
		switch s.Label {
		case LabelPositive:
			f.PositiveCount++
		case LabelNegative:
			f.NegativeCount++
		default:
			f.NeutralCount++
		}
	}

	out := make([]DailyFold, 0, len(bySecurity))
	for id, f := range bySecurity {
		avg := ClampUnit(sums[id] / float64(f.ArticleCount))
		f.AvgSentiment = avg
		f.WeightedSentiment = avg
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SecurityID < out[j].SecurityID })
	return out
}
