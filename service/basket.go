package service

import (
	"fmt"
	"sort"

	"github.com/BerniceZTT/crm_analytics/models"
	"github.com/BerniceZTT/crm_analytics/utils"
)

type itemPair struct {
	a, b string
}

// MineBaskets 计算全部有序产品对的支持度与置信度（百分比），
// 丢弃低于 minSupport 的组合，按置信度降序返回完整规则表。
// 保留的规则数超过 maxPairs 时视为参数错误。
func MineBaskets(baskets [][]string, names map[string]string, minSupport float64, maxPairs int) ([]models.BasketAssociation, error) {
	total := len(baskets)
	if total == 0 {
		return nil, nil
	}

	itemCounts := make(map[string]int)
	pairCounts := make(map[itemPair]int)
	for _, basket := range baskets {
		for i, a := range basket {
			itemCounts[a]++
			for _, b := range basket[i+1:] {
				// 篮子已排序去重，a < b
				pairCounts[itemPair{a, b}]++
			}
		}
	}

	rules := make([]models.BasketAssociation, 0, len(pairCounts)*2)
	for pair, both := range pairCounts {
		support := float64(both) / float64(total) * 100
		if support < minSupport {
			continue
		}
		rules = append(rules,
			newAssociation(pair.a, pair.b, both, support, itemCounts[pair.a], names),
			newAssociation(pair.b, pair.a, both, support, itemCounts[pair.b], names),
		)
	}

	if maxPairs > 0 && len(rules) > maxPairs {
		return nil, utils.NewAnalyticsError(utils.KindInvalidSettings,
			fmt.Sprintf("购物篮规则数 %d 超过上限 %d，请提高最小支持度", len(rules), maxPairs), nil)
	}

	sortAssociations(rules)
	return rules, nil
}

func newAssociation(a, b string, both int, support float64, countA int, names map[string]string) models.BasketAssociation {
	return models.BasketAssociation{
		ItemA:      a,
		ItemAName:  names[a],
		ItemB:      b,
		ItemBName:  names[b],
		Support:    support,
		Confidence: float64(both) / float64(countA) * 100,
		PairCount:  both,
	}
}

// sortAssociations 置信度降序，其次支持度降序，最后按产品ID
func sortAssociations(rules []models.BasketAssociation) {
	sort.Slice(rules, func(i, j int) bool {
		ri, rj := rules[i], rules[j]
		if ri.Confidence != rj.Confidence {
			return ri.Confidence > rj.Confidence
		}
		if ri.Support != rj.Support {
			return ri.Support > rj.Support
		}
		if ri.ItemA != rj.ItemA {
			return ri.ItemA < rj.ItemA
		}
		return ri.ItemB < rj.ItemB
	})
}

// TopPerItem 每个前项产品只保留前 n 条规则，输入需已排序
func TopPerItem(rules []models.BasketAssociation, n int) []models.BasketAssociation {
	if n <= 0 {
		return rules
	}
	kept := make(map[string]int)
	out := make([]models.BasketAssociation, 0, len(rules))
	for _, r := range rules {
		if kept[r.ItemA] >= n {
			continue
		}
		kept[r.ItemA]++
		out = append(out, r)
	}
	return out
}
