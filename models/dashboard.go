package models

// SegmentCount 分群分布项
type SegmentCount struct {
	Segment string `json:"segment" bson:"_id"`
	Count   int    `json:"count" bson:"count"`
}

// MatrixCell ABC-XYZ 矩阵单元
type MatrixCell struct {
	ABCCategory string `json:"abcCategory" bson:"abcCategory"`
	XYZCategory string `json:"xyzCategory" bson:"xyzCategory"`
	Count       int    `json:"count" bson:"count"`
}

// CustomerRunResult 客户评分重算结果
type CustomerRunResult struct {
	RunID         string `json:"runId"`
	Processed     int    `json:"processed"`
	AlertsCreated int    `json:"alerts_created"`
	Skipped       int    `json:"skipped"`
}

// ProductRunResult 产品分析重算结果
type ProductRunResult struct {
	RunID        string `json:"runId"`
	Processed    int    `json:"processed"`
	Associations int    `json:"associations"`
	Skipped      int    `json:"skipped"`
}
