package service

import (
	"math"
	"sort"
	"time"

	"github.com/BerniceZTT/crm_analytics/models"
)

const shareEpsilon = 1e-9

// ABCResult 单个产品的ABC分类结果
type ABCResult struct {
	Category        string
	Share           float64
	CumulativeShare float64
}

// ClassifyABC 按收入降序累计占比做帕累托切分，结果与输入同序。
// 累计占比（含自身）不超过 cutoffA 为A，不超过 cutoffB 为B，其余为C；收入最高的产品总是A。
func ClassifyABC(items []ItemAggregate, cutoffA, cutoffB float64) []ABCResult {
	results := make([]ABCResult, len(items))

	total := 0.0
	for _, it := range items {
		if it.Revenue > 0 {
			total += it.Revenue
		}
	}
	if total <= 0 {
		for i := range results {
			results[i].Category = models.ABCClassC
		}
		return results
	}

	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := items[order[a]], items[order[b]]
		if ia.Revenue != ib.Revenue {
			return ia.Revenue > ib.Revenue
		}
		return ia.ItemID < ib.ItemID
	})

	cumulative := 0.0
	for pos, idx := range order {
		revenue := math.Max(items[idx].Revenue, 0)
		share := revenue / total * 100
		cumulative += share

		category := models.ABCClassC
		switch {
		case pos == 0 || cumulative <= cutoffA+shareEpsilon:
			category = models.ABCClassA
		case cumulative <= cutoffB+shareEpsilon:
			category = models.ABCClassB
		}
		results[idx] = ABCResult{Category: category, Share: share, CumulativeShare: cumulative}
	}
	return results
}

// CoefficientOfVariation 总体标准差除以均值；均值为0时无定义
func CoefficientOfVariation(series []float64) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(len(series))
	if mean == 0 {
		return 0, false
	}

	variance := 0.0
	for _, v := range series {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(series))
	return math.Sqrt(variance) / mean, true
}

// ClassifyXYZ 变异系数低于 cutoffX 为X，不超过 cutoffY 为Y，其余或无定义为Z
func ClassifyXYZ(cv float64, defined bool, cutoffX, cutoffY float64) string {
	switch {
	case !defined:
		return models.XYZClassZ
	case cv < cutoffX:
		return models.XYZClassX
	case cv <= cutoffY:
		return models.XYZClassY
	default:
		return models.XYZClassZ
	}
}

// InventoryRatios 周转率 = 销售成本/库存价值，GMROI = 毛利/库存价值，库存价值为0时返回哨兵值
func InventoryRatios(item ItemAggregate) (turnover, gmroi float64) {
	inventoryValue := item.StockOnHand * item.UnitCost
	if inventoryValue <= 0 {
		return models.RatioUndefined, models.RatioUndefined
	}
	return item.Cost / inventoryValue, item.Profit / inventoryValue
}

// ClassifyItems 生成每个产品的ABC-XYZ分析结果
func ClassifyItems(items []ItemAggregate, settings models.AnalyticsSettings, now time.Time, runID string) []models.ItemAnalytics {
	abc := ClassifyABC(items, settings.ABCCutoffA, settings.ABCCutoffB)

	out := make([]models.ItemAnalytics, len(items))
	for i, it := range items {
		cv, defined := CoefficientOfVariation(it.Quantities)
		demandCV := cv
		if !defined {
			demandCV = models.RatioUndefined
		}
		turnover, gmroi := InventoryRatios(it)

		out[i] = models.ItemAnalytics{
			ItemID:          it.ItemID,
			ItemName:        it.ItemName,
			ABCCategory:     abc[i].Category,
			XYZCategory:     ClassifyXYZ(cv, defined, settings.XYZCutoffX, settings.XYZCutoffY),
			TurnoverRatio:   turnover,
			GMROI:           gmroi,
			Revenue:         it.Revenue,
			Profit:          it.Profit,
			SalesCount:      it.SalesCount,
			TotalQuantity:   it.TotalQuantity,
			RevenueShare:    abc[i].Share,
			CumulativeShare: abc[i].CumulativeShare,
			DemandCV:        demandCV,
			LastCalculated:  now,
			RunID:           runID,
		}
	}
	return out
}
