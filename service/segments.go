package service

import "github.com/BerniceZTT/crm_analytics/models"

// ScoreRange 闭区间评分范围
type ScoreRange struct {
	Min, Max int
}

func (r ScoreRange) contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// SegmentRule 按 (R,F,M) 评分匹配的分群规则
type SegmentRule struct {
	Segment   string
	Recency   ScoreRange
	Frequency ScoreRange
	Monetary  ScoreRange
}

func (r SegmentRule) matches(recency, frequency, monetary int) bool {
	return r.Recency.contains(recency) && r.Frequency.contains(frequency) && r.Monetary.contains(monetary)
}

// AverageRule 按平均分下限匹配的分群规则
type AverageRule struct {
	Segment    string
	MinAverage float64
}

func exact(r, f, m int, segment string) SegmentRule {
	return SegmentRule{
		Segment:   segment,
		Recency:   ScoreRange{r, r},
		Frequency: ScoreRange{f, f},
		Monetary:  ScoreRange{m, m},
	}
}

// rfmRules 按优先级排列，首条命中生效
var rfmRules = []SegmentRule{
	exact(5, 5, 5, models.SegmentChampions),
	exact(5, 5, 4, models.SegmentChampions),
	exact(5, 4, 5, models.SegmentChampions),
	exact(4, 5, 5, models.SegmentLoyal),
	exact(5, 5, 3, models.SegmentLoyal),
	exact(4, 5, 4, models.SegmentLoyal),
	exact(4, 4, 5, models.SegmentLoyal),
	exact(4, 4, 4, models.SegmentLoyal),
	exact(5, 4, 4, models.SegmentLoyal),
	exact(5, 3, 3, models.SegmentPotentialLoyalists),
	exact(4, 3, 3, models.SegmentPotentialLoyalists),
	exact(5, 2, 2, models.SegmentPotentialLoyalists),
	exact(4, 2, 3, models.SegmentPotentialLoyalists),
	exact(5, 1, 1, models.SegmentNewCustomers),
	exact(5, 1, 2, models.SegmentNewCustomers),
	exact(4, 1, 1, models.SegmentNewCustomers),
	exact(4, 2, 1, models.SegmentPromising),
	exact(3, 3, 3, models.SegmentNeedAttention),
	exact(3, 3, 2, models.SegmentNeedAttention),
	exact(3, 2, 3, models.SegmentNeedAttention),
	exact(2, 3, 3, models.SegmentAboutToSleep),
	exact(2, 2, 3, models.SegmentAboutToSleep),
	exact(2, 3, 2, models.SegmentAboutToSleep),
	exact(2, 5, 5, models.SegmentAtRisk),
	exact(2, 5, 4, models.SegmentAtRisk),
	exact(2, 4, 5, models.SegmentAtRisk),
	exact(2, 4, 4, models.SegmentAtRisk),
	exact(1, 5, 5, models.SegmentCantLose),
	exact(1, 5, 4, models.SegmentCantLose),
	exact(1, 4, 5, models.SegmentCantLose),
	exact(2, 2, 2, models.SegmentHibernating),
	exact(2, 2, 1, models.SegmentHibernating),
	exact(2, 1, 2, models.SegmentHibernating),
	exact(1, 2, 2, models.SegmentHibernating),
	exact(1, 1, 1, models.SegmentLost),
	exact(1, 1, 2, models.SegmentLost),
	exact(1, 2, 1, models.SegmentLost),
}

// rfmFallback 三元组未命中时按 R,F,M 平均分兜底
var rfmFallback = []AverageRule{
	{models.SegmentLoyal, 4},
	{models.SegmentNeedAttention, 3},
	{models.SegmentHibernating, 2},
	{models.SegmentLost, 0},
}

// averageTiers 平均分模式下按四项平均分分档
var averageTiers = []AverageRule{
	{models.SegmentChampions, 4.5},
	{models.SegmentLoyal, 4},
	{models.SegmentNeedAttention, 3},
	{models.SegmentHibernating, 2},
	{models.SegmentLost, 0},
}

// segmentRanks 分群全序，数值越大越好
var segmentRanks = map[string]int{
	models.SegmentChampions:          10,
	models.SegmentLoyal:              9,
	models.SegmentPotentialLoyalists: 8,
	models.SegmentNewCustomers:       7,
	models.SegmentPromising:          6,
	models.SegmentNeedAttention:      5,
	models.SegmentAboutToSleep:       4,
	models.SegmentAtRisk:             3,
	models.SegmentCantLose:           2,
	models.SegmentHibernating:        1,
	models.SegmentLost:               0,
}

// SegmentRank 返回分群排名，未知标签按中间档处理
func SegmentRank(segment string) int {
	if rank, ok := segmentRanks[segment]; ok {
		return rank
	}
	return 5
}

// Segmenter 分群规则表
type Segmenter struct {
	Mode     models.SegmentMode
	Rules    []SegmentRule
	Fallback []AverageRule
	Tiers    []AverageRule
}

// NewSegmenter 按模式构建默认规则表
func NewSegmenter(mode models.SegmentMode) Segmenter {
	return Segmenter{
		Mode:     mode,
		Rules:    rfmRules,
		Fallback: rfmFallback,
		Tiers:    averageTiers,
	}
}

// Assign 根据四项评分确定分群
func (s Segmenter) Assign(recency, frequency, monetary, payment int) string {
	if s.Mode == models.SegmentModeAverage {
		avg := float64(recency+frequency+monetary+payment) / 4
		return matchAverage(s.Tiers, avg)
	}

	for _, rule := range s.Rules {
		if rule.matches(recency, frequency, monetary) {
			return rule.Segment
		}
	}
	return matchAverage(s.Fallback, float64(recency+frequency+monetary)/3)
}

func matchAverage(rules []AverageRule, avg float64) string {
	for _, rule := range rules {
		if avg >= rule.MinAverage {
			return rule.Segment
		}
	}
	return models.SegmentLost
}
