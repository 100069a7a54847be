package models

// SegmentMode 分群方式
type SegmentMode string

const (
	// SegmentModeRFM 按 (R,F,M) 三元组查规则表
	SegmentModeRFM SegmentMode = "rfm"
	// SegmentModeAverage 按四项平均分分档
	SegmentModeAverage SegmentMode = "average"
)

// AnalyticsSettings 分析参数快照，每次运行只读
type AnalyticsSettings struct {
	LookbackDays     int         `json:"lookbackDays" bson:"lookbackDays" yaml:"lookback_days"`
	SegmentMode      SegmentMode `json:"segmentMode" bson:"segmentMode" yaml:"segment_mode"`
	ABCCutoffA       float64     `json:"abcCutoffA" bson:"abcCutoffA" yaml:"abc_cutoff_a"`
	ABCCutoffB       float64     `json:"abcCutoffB" bson:"abcCutoffB" yaml:"abc_cutoff_b"`
	XYZCutoffX       float64     `json:"xyzCutoffX" bson:"xyzCutoffX" yaml:"xyz_cutoff_x"`
	XYZCutoffY       float64     `json:"xyzCutoffY" bson:"xyzCutoffY" yaml:"xyz_cutoff_y"`
	XYZBucketDays    int         `json:"xyzBucketDays" bson:"xyzBucketDays" yaml:"xyz_bucket_days"`
	BasketMinSupport float64     `json:"basketMinSupport" bson:"basketMinSupport" yaml:"basket_min_support"`
	BasketTopN       int         `json:"basketTopN" bson:"basketTopN" yaml:"basket_top_n"`
	BasketMaxPairs   int         `json:"basketMaxPairs" bson:"basketMaxPairs" yaml:"basket_max_pairs"`
	AlertsEnabled    bool        `json:"alertsEnabled" bson:"alertsEnabled" yaml:"alerts_enabled"`
}

// DefaultAnalyticsSettings 默认分析参数
func DefaultAnalyticsSettings() AnalyticsSettings {
	return AnalyticsSettings{
		LookbackDays:     365,
		SegmentMode:      SegmentModeRFM,
		ABCCutoffA:       80,
		ABCCutoffB:       95,
		XYZCutoffX:       0.5,
		XYZCutoffY:       1.0,
		XYZBucketDays:    7,
		BasketMinSupport: 1,
		BasketTopN:       10,
		BasketMaxPairs:   200000,
		AlertsEnabled:    true,
	}
}

// BucketCount 需求序列的桶数，只计完整的桶
func (s AnalyticsSettings) BucketCount() int {
	if s.XYZBucketDays <= 0 {
		return 1
	}
	n := s.LookbackDays / s.XYZBucketDays
	if n < 1 {
		return 1
	}
	return n
}
