package service

import (
	"sort"
	"time"

	"github.com/BerniceZTT/crm_analytics/models"
)

// Window 统计时间窗口 [Start, End]
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow 以 now 为终点、回溯 lookbackDays 天
func NewWindow(now time.Time, lookbackDays int) Window {
	return Window{Start: now.AddDate(0, 0, -lookbackDays), End: now}
}

// Contains 判断时间是否落在窗口内
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// CustomerAggregate 单个客户在窗口内的统计量，仅在一次运行中存在
type CustomerAggregate struct {
	CustomerID    string
	CustomerName  string
	LastOrderDate time.Time
	OrderCount    int
	TotalSpent    float64
	TotalLateDays int
	Lateness      []int
}

// AverageDaysLate 平均逾期天数
func (a CustomerAggregate) AverageDaysLate() float64 {
	if len(a.Lateness) == 0 {
		return 0
	}
	return float64(a.TotalLateDays) / float64(len(a.Lateness))
}

// ItemAggregate 单个产品在窗口内的统计量
type ItemAggregate struct {
	ItemID        string
	ItemName      string
	Quantities    []float64
	Revenue       float64
	Cost          float64
	Profit        float64
	SalesCount    int
	TotalQuantity float64
	StockOnHand   float64
	UnitCost      float64
}

// qualifies 已提交且落在窗口内的发票才参与统计
func qualifies(inv models.SalesInvoice, window Window) bool {
	return inv.Status == models.InvoiceStatusSubmitted && window.Contains(inv.PostingDate)
}

// dateOf 截断到UTC日期
func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween 两个日期之间的整天数
func daysBetween(from, to time.Time) int {
	return int(dateOf(to).Sub(dateOf(from)).Hours() / 24)
}

// invoiceLateness 付款日减到期日，未付且已过期按 now 计算，提前付款记0
func invoiceLateness(inv models.SalesInvoice, now time.Time) int {
	if inv.DueDate.IsZero() {
		return 0
	}
	end := inv.PaidDate
	if end.IsZero() {
		end = now
	}
	days := daysBetween(inv.DueDate, end)
	if days < 0 {
		return 0
	}
	return days
}

// AggregateCustomers 汇总每个客户的订单统计，返回按客户ID排序的结果和无交易客户数
func AggregateCustomers(invoices []models.SalesInvoice, customers []models.Customer, window Window) ([]CustomerAggregate, int) {
	names := make(map[string]string, len(customers))
	for _, c := range customers {
		names[c.ID.Hex()] = c.Name
	}

	byID := make(map[string]*CustomerAggregate)
	for _, inv := range invoices {
		if inv.CustomerID == "" || !qualifies(inv, window) {
			continue
		}
		agg, ok := byID[inv.CustomerID]
		if !ok {
			name := names[inv.CustomerID]
			if name == "" {
				name = inv.CustomerName
			}
			agg = &CustomerAggregate{CustomerID: inv.CustomerID, CustomerName: name}
			byID[inv.CustomerID] = agg
		}

		if inv.PostingDate.After(agg.LastOrderDate) {
			agg.LastOrderDate = inv.PostingDate
		}
		agg.OrderCount++
		agg.TotalSpent += inv.GrandTotal

		late := invoiceLateness(inv, window.End)
		agg.Lateness = append(agg.Lateness, late)
		agg.TotalLateDays += late
	}

	out := make([]CustomerAggregate, 0, len(byID))
	for _, agg := range byID {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })

	skipped := 0
	for id := range names {
		if _, ok := byID[id]; !ok {
			skipped++
		}
	}
	return out, skipped
}

// bucketIndex 从窗口终点往回按整桶划分，不足一整桶的起始零头不计入需求序列
func bucketIndex(t time.Time, window Window, buckets int, span time.Duration) (int, bool) {
	if span <= 0 {
		return 0, true
	}
	back := int(window.End.Sub(t) / span)
	if back < 0 || back >= buckets {
		return 0, false
	}
	return buckets - 1 - back, true
}

// AggregateItems 汇总每个产品的销售统计与按桶划分的销量序列
func AggregateItems(invoices []models.SalesInvoice, products []models.Product, window Window, settings models.AnalyticsSettings) ([]ItemAggregate, int) {
	catalog := make(map[string]models.Product, len(products))
	for _, p := range products {
		catalog[p.ID.Hex()] = p
	}

	buckets := settings.BucketCount()
	bucketSpan := time.Duration(settings.XYZBucketDays) * 24 * time.Hour

	byID := make(map[string]*ItemAggregate)
	for _, inv := range invoices {
		if !qualifies(inv, window) {
			continue
		}
		bucket, inSeries := bucketIndex(inv.PostingDate, window, buckets, bucketSpan)

		for _, line := range inv.Items {
			if line.ProductID == "" {
				continue
			}
			agg, ok := byID[line.ProductID]
			if !ok {
				agg = &ItemAggregate{
					ItemID:     line.ProductID,
					ItemName:   line.ProductName,
					Quantities: make([]float64, buckets),
				}
				if p, found := catalog[line.ProductID]; found {
					if p.ModelName != "" {
						agg.ItemName = p.ModelName
					}
					agg.StockOnHand = float64(p.Stock)
					agg.UnitCost = p.ValuationRate
				}
				byID[line.ProductID] = agg
			}

			if inSeries {
				agg.Quantities[bucket] += line.Quantity
			}
			agg.Revenue += line.Amount()
			agg.Cost += line.Quantity * line.CostRate
			agg.TotalQuantity += line.Quantity
			agg.SalesCount++
		}
	}

	out := make([]ItemAggregate, 0, len(byID))
	for _, agg := range byID {
		agg.Profit = agg.Revenue - agg.Cost
		if agg.UnitCost <= 0 && agg.TotalQuantity > 0 {
			agg.UnitCost = agg.Cost / agg.TotalQuantity
		}
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })

	skipped := 0
	for id := range catalog {
		if _, ok := byID[id]; !ok {
			skipped++
		}
	}
	return out, skipped
}

// BuildBaskets 每张发票内去重后的产品集合，产品ID有序
func BuildBaskets(invoices []models.SalesInvoice, window Window) [][]string {
	var baskets [][]string
	for _, inv := range invoices {
		if !qualifies(inv, window) {
			continue
		}
		seen := make(map[string]struct{}, len(inv.Items))
		basket := make([]string, 0, len(inv.Items))
		for _, line := range inv.Items {
			if line.ProductID == "" {
				continue
			}
			if _, dup := seen[line.ProductID]; dup {
				continue
			}
			seen[line.ProductID] = struct{}{}
			basket = append(basket, line.ProductID)
		}
		if len(basket) == 0 {
			continue
		}
		sort.Strings(basket)
		baskets = append(baskets, basket)
	}
	return baskets
}

// ItemNames 产品ID到名称的映射
func ItemNames(items []ItemAggregate) map[string]string {
	names := make(map[string]string, len(items))
	for _, it := range items {
		names[it.ItemID] = it.ItemName
	}
	return names
}
