package orders

import (
	"math"

	"github.com/aristath/portfoliobot/internal/domain"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// SideSlippage summarises executed orders of one side.
// Percentages are signed so that favourable fills are positive.
type SideSlippage struct {
	Count     int     `json:"count"`
	MeanPct   float64 `json:"mean_pct"`
	StdDevPct float64 `json:"stddev_pct"`
	BestPct   float64 `json:"best_pct"`
	WorstPct  float64 `json:"worst_pct"`
}

// SlippageStats summarises executed orders
type SlippageStats struct {
	Buy           SideSlippage    `json:"buy"`
	Sell          SideSlippage    `json:"sell"`
	TotalNotional decimal.Decimal `json:"total_notional"`
	Executed      int             `json:"executed"`
}

// SlippagePct returns the signed slippage of an executed order in percent of target.
// A BUY filled below target or a SELL filled above it is positive.
func SlippagePct(order *domain.Order) float64 {
	if order.ExecutedPrice == nil || order.TargetPrice.IsZero() {
		return 0
	}

	diff := order.Slippage()
	if order.Side.IsBuy() {
		diff = diff.Neg()
	}

	pct, _ := diff.Div(order.TargetPrice).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

// ComputeSlippageStats aggregates the executed orders in list; others are ignored
func ComputeSlippageStats(list []domain.Order) SlippageStats {
	var buys, sells []float64
	stats := SlippageStats{TotalNotional: decimal.Zero}

	for i := range list {
		order := &list[i]
		if order.Status != domain.OrderStatusExecuted || order.ExecutedPrice == nil {
			continue
		}

		stats.Executed++
		stats.TotalNotional = stats.TotalNotional.Add(order.ExecutedPrice.Mul(order.Quantity))

		if order.Side.IsBuy() {
			buys = append(buys, SlippagePct(order))
		} else {
			sells = append(sells, SlippagePct(order))
		}
	}

	stats.Buy = summarise(buys)
	stats.Sell = summarise(sells)
	return stats
}

func summarise(pcts []float64) SideSlippage {
	if len(pcts) == 0 {
		return SideSlippage{}
	}

	s := SideSlippage{
		Count:    len(pcts),
		BestPct:  pcts[0],
		WorstPct: pcts[0],
	}

	if len(pcts) == 1 {
		s.MeanPct = pcts[0]
	} else {
		s.MeanPct, s.StdDevPct = stat.MeanStdDev(pcts, nil)
	}

	for _, p := range pcts[1:] {
		s.BestPct = math.Max(s.BestPct, p)
		s.WorstPct = math.Min(s.WorstPct, p)
	}

	return s
}
