package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/BerniceZTT/crm_analytics/models"
)

// quintiles 评分档数
const quintiles = 5

// QuintileScores 按总体排名把 values 分成五个等大的档位，返回与输入同序的1..5评分。
// higherIsBetter 为 false 时方向反转，最小值得5分。相同数值跨越档位边界时按输入顺序稳定切分。
func QuintileScores(values []float64, higherIsBetter bool) []int {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := values[order[a]], values[order[b]]
		if higherIsBetter {
			return va < vb
		}
		return va > vb
	})

	scores := make([]int, n)
	for pos, idx := range order {
		scores[idx] = pos*quintiles/n + 1
	}
	return scores
}

// ScoreCustomers 为每个客户计算 R/F/M/P 评分和分群
func ScoreCustomers(aggs []CustomerAggregate, settings models.AnalyticsSettings, now time.Time, runID string) []models.CustomerScore {
	n := len(aggs)
	if n == 0 {
		return nil
	}

	recency := make([]float64, n)
	frequency := make([]float64, n)
	monetary := make([]float64, n)
	payment := make([]float64, n)
	for i, a := range aggs {
		recency[i] = float64(daysBetween(a.LastOrderDate, now))
		frequency[i] = float64(a.OrderCount)
		monetary[i] = a.TotalSpent
		payment[i] = a.AverageDaysLate()
	}

	rScores := QuintileScores(recency, false)
	fScores := QuintileScores(frequency, true)
	mScores := QuintileScores(monetary, true)
	pScores := QuintileScores(payment, false)

	segmenter := NewSegmenter(settings.SegmentMode)
	scores := make([]models.CustomerScore, n)
	for i, a := range aggs {
		r, f, m, p := rScores[i], fScores[i], mScores[i], pScores[i]
		scores[i] = models.CustomerScore{
			CustomerID:        a.CustomerID,
			CustomerName:      a.CustomerName,
			RecencyScore:      r,
			FrequencyScore:    f,
			MonetaryScore:     m,
			PaymentScore:      p,
			AverageScore:      float64(r+f+m+p) / 4,
			RFMCode:           fmt.Sprintf("%d-%d-%d", r, f, m),
			Segment:           segmenter.Assign(r, f, m, p),
			TotalSpent:        a.TotalSpent,
			TotalOrders:       a.OrderCount,
			DaysSincePurchase: int(recency[i]),
			AverageDaysLate:   payment[i],
			LastPurchaseDate:  a.LastOrderDate,
			LastCalculated:    now,
			RunID:             runID,
		}
	}
	return scores
}
