package service

import (
	"fmt"
	"strings"

	"github.com/BerniceZTT/crm_analytics/models"
	"github.com/BerniceZTT/crm_analytics/utils"
)

// ValidateSettings 校验分析参数，任何问题都在写入之前中止运行
func ValidateSettings(s models.AnalyticsSettings) error {
	var problems []string

	if s.LookbackDays < 1 {
		problems = append(problems, "lookbackDays 必须大于0")
	}
	if s.SegmentMode != models.SegmentModeRFM && s.SegmentMode != models.SegmentModeAverage {
		problems = append(problems, fmt.Sprintf("未知的 segmentMode: %q", s.SegmentMode))
	}
	if s.ABCCutoffA <= 0 || s.ABCCutoffA > 100 {
		problems = append(problems, "abcCutoffA 必须在 (0, 100] 之间")
	}
	if s.ABCCutoffB < s.ABCCutoffA || s.ABCCutoffB > 100 {
		problems = append(problems, "abcCutoffB 必须不小于 abcCutoffA 且不超过100")
	}
	if s.XYZCutoffX <= 0 {
		problems = append(problems, "xyzCutoffX 必须大于0")
	}
	if s.XYZCutoffY < s.XYZCutoffX {
		problems = append(problems, "xyzCutoffY 必须不小于 xyzCutoffX")
	}
	if s.XYZBucketDays < 1 || s.XYZBucketDays > s.LookbackDays {
		problems = append(problems, "xyzBucketDays 必须在 [1, lookbackDays] 之间")
	}
	if s.BasketMinSupport < 0 || s.BasketMinSupport > 100 {
		problems = append(problems, "basketMinSupport 必须在 [0, 100] 之间")
	}
	if s.BasketTopN < 1 {
		problems = append(problems, "basketTopN 必须大于0")
	}
	if s.BasketMaxPairs < 1 {
		problems = append(problems, "basketMaxPairs 必须大于0")
	}

	if len(problems) > 0 {
		return utils.NewAnalyticsError(utils.KindInvalidSettings, strings.Join(problems, "; "), nil)
	}
	return nil
}
