package service

import (
	"time"

	"github.com/BerniceZTT/crm_analytics/models"
)

// DetectSegmentChanges 对比新旧分群。分群变化时在评分上记录上一分群，
// alertsEnabled 时按排名生成升级/降级预警；无历史记录的客户不产生预警。
func DetectSegmentChanges(scores []models.CustomerScore, prior map[string]models.SegmentState, alertsEnabled bool, now time.Time, runID string) []models.SegmentAlert {
	var alerts []models.SegmentAlert
	for i := range scores {
		score := &scores[i]
		state, ok := prior[score.CustomerID]
		if !ok || state.Segment == "" {
			continue
		}

		if state.Segment == score.Segment {
			// 未变化时沿用上一次的变化记录
			score.PreviousSegment = state.PreviousSegment
			score.SegmentChangedOn = state.SegmentChangedOn
			continue
		}

		score.PreviousSegment = state.Segment
		score.SegmentChangedOn = now

		if !alertsEnabled {
			continue
		}
		alertType, changed := alertDirection(state.Segment, score.Segment)
		if !changed {
			continue
		}
		alerts = append(alerts, models.SegmentAlert{
			CustomerID:      score.CustomerID,
			CustomerName:    score.CustomerName,
			AlertType:       alertType,
			PreviousSegment: state.Segment,
			NewSegment:      score.Segment,
			CreatedOn:       now,
			RunID:           runID,
		})
	}
	return alerts
}

// alertDirection 排名升高为升级，降低为降级，排名相同不报警
func alertDirection(previous, next string) (models.AlertType, bool) {
	oldRank, newRank := SegmentRank(previous), SegmentRank(next)
	switch {
	case newRank > oldRank:
		return models.AlertTypeUpgrade, true
	case newRank < oldRank:
		return models.AlertTypeDowngrade, true
	default:
		return "", false
	}
}
