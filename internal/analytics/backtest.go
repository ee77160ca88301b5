package analytics

import (
	"errors"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

var ErrInvalidDateRange = errors.New("start date must be before end date")

// BacktestConfig holds the synthetic return model constants.
type BacktestConfig struct {
	BaseMonthlyReturn     float64 `mapstructure:"base_monthly_return" json:"base_monthly_return"`
	SentimentMultiplier   float64 `mapstructure:"sentiment_multiplier" json:"sentiment_multiplier"`
	NoDataMonthlyReturn   float64 `mapstructure:"no_data_monthly_return" json:"no_data_monthly_return"`
	GapMonthlyReturn      float64 `mapstructure:"gap_monthly_return" json:"gap_monthly_return"`
	MaxMonthlyReturn      float64 `mapstructure:"max_monthly_return" json:"max_monthly_return"`
	RiskFreeRate          float64 `mapstructure:"risk_free_rate" json:"risk_free_rate"`
	BenchmarkAnnualReturn float64 `mapstructure:"benchmark_annual_return" json:"benchmark_annual_return"`
}

// DefaultBacktestConfig returns the model constants. The no-data (0.0065) and gap
// (0.006) returns are distinct on purpose: they tell total from partial absence apart.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		BaseMonthlyReturn:     0.008,
		SentimentMultiplier:   0.02,
		NoDataMonthlyReturn:   0.0065,
		GapMonthlyReturn:      0.006,
		MaxMonthlyReturn:      0.15,
		RiskFreeRate:          0.04,
		BenchmarkAnnualReturn: 0.10,
	}
}

// DailyValue is one security's aggregate on one date.
type DailyValue struct {
	Date              time.Time
	WeightedSentiment float64
}

// DailyPoint is the cross-security mean sentiment on one date.
type DailyPoint struct {
	Date   time.Time `json:"date"`
	AvgWSS float64   `json:"avg_wss"`
}

// AverageByDate averages weighted sentiment per calendar date (UTC), ascending.
func AverageByDate(values []DailyValue) []DailyPoint {
	type acc struct {
		sum float64
		n   int
	}
	byDate := make(map[time.Time]*acc)
	for _, v := range values {
		d := dayOf(v.Date)
		a, ok := byDate[d]
		if !ok {
			a = &acc{}
			byDate[d] = a
		}
		a.sum += v.WeightedSentiment
		a.n++
	}
	out := make([]DailyPoint, 0, len(byDate))
	for d, a := range byDate {
		out = append(out, DailyPoint{Date: d, AvgWSS: ClampUnit(a.sum / float64(a.n))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// EquityPoint is the portfolio and benchmark value at the end of one simulated month.
type EquityPoint struct {
	Date           time.Time `json:"date"`
	PortfolioValue float64   `json:"portfolio_value"`
	BenchmarkValue float64   `json:"benchmark_value"`
	MonthlyReturn  float64   `json:"monthly_return"`
}

// BacktestOutcome is the full simulation output.
type BacktestOutcome struct {
	InitialCapital    float64       `json:"initial_capital"`
	FinalValue        float64       `json:"final_value"`
	TotalReturn       float64       `json:"total_return"`
	CAGR              float64       `json:"cagr"`
	SharpeRatio       float64       `json:"sharpe_ratio"`
	MaxDrawdown       float64       `json:"max_drawdown"`
	Alpha             float64       `json:"alpha"`
	Years             float64       `json:"years"`
	MonthsSimulated   int           `json:"months_simulated"`
	SentimentDataUsed bool          `json:"sentiment_data_used"`
	DataPoints        int           `json:"data_points"`
	MonthlyReturns    []float64     `json:"monthly_returns"`
	EquityCurve       []EquityPoint `json:"equity_curve"`
}

// Simulate replays daily sentiment into monthly synthetic returns.
// Month i covers [start+i months, start+i+1 months). daily may be unsorted and may
// extend past the range; points outside [start, end] are ignored.
func Simulate(start, end time.Time, capital float64, daily []DailyPoint, cfg BacktestConfig) (*BacktestOutcome, error) {
	start, end = start.UTC(), end.UTC()
	if !start.Before(end) {
		return nil, ErrInvalidDateRange
	}
	if capital <= 0 {
		return nil, errors.New("initial capital must be positive")
	}

	years := end.Sub(start).Hours() / 24 / 365
	months := int(math.Floor(years * 12))
	if months < 1 {
		months = 1
	}

	inRange := make([]DailyPoint, 0, len(daily))
	for _, p := range daily {
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		inRange = append(inRange, p)
	}
	dataUsed := len(inRange) > 0

	equity := capital
	peak := capital
	maxDrawdown := 0.0
	returns := make([]float64, 0, months)
	curve := make([]EquityPoint, 0, months)

	for m := 0; m < months; m++ {
		from := start.AddDate(0, m, 0)
		to := start.AddDate(0, m+1, 0)

		var sum float64
		n := 0
		for _, p := range inRange {
			if !p.Date.Before(from) && p.Date.Before(to) {
				sum += p.AvgWSS
				n++
			}
		}

		var r float64
		switch {
		case !dataUsed:
			r = cfg.NoDataMonthlyReturn
		case n == 0:
			r = cfg.GapMonthlyReturn
		default:
			r = cfg.BaseMonthlyReturn + (sum/float64(n))*cfg.SentimentMultiplier
		}
		r = Clamp(r, -cfg.MaxMonthlyReturn, cfg.MaxMonthlyReturn)

		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak; dd > maxDrawdown {
			maxDrawdown = dd
		}

		returns = append(returns, r)
		curve = append(curve, EquityPoint{
			Date:           to,
			PortfolioValue: equity,
			BenchmarkValue: capital * math.Pow(1+cfg.BenchmarkAnnualReturn, float64(m+1)/12),
			MonthlyReturn:  r,
		})
	}

	cagr := math.Pow(equity/capital, 1/years) - 1

	return &BacktestOutcome{
		InitialCapital:    capital,
		FinalValue:        equity,
		TotalReturn:       (equity - capital) / capital,
		CAGR:              cagr,
		SharpeRatio:       sharpe(returns, cfg.RiskFreeRate/12),
		MaxDrawdown:       maxDrawdown,
		Alpha:             cagr - cfg.BenchmarkAnnualReturn,
		Years:             years,
		MonthsSimulated:   months,
		SentimentDataUsed: dataUsed,
		DataPoints:        len(inRange),
		MonthlyReturns:    returns,
		EquityCurve:       curve,
	}, nil
}

// sharpe annualizes monthly excess return over the population standard deviation.
func sharpe(returns []float64, monthlyRiskFree float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return (mean - monthlyRiskFree) / std * math.Sqrt(12)
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
