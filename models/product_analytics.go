package models

import "time"

// ABC/XYZ 分类
const (
	ABCClassA = "A"
	ABCClassB = "B"
	ABCClassC = "C"

	XYZClassX = "X"
	XYZClassY = "Y"
	XYZClassZ = "Z"
)

// RatioUndefined 分母为零时比率字段的哨兵值
const RatioUndefined = -1.0

// ItemAnalytics 产品分析结果，每次重算整体替换
type ItemAnalytics struct {
	ItemID          string    `json:"itemCode" bson:"itemCode"`
	ItemName        string    `json:"itemName" bson:"itemName"`
	ABCCategory     string    `json:"abcCategory" bson:"abcCategory"`
	XYZCategory     string    `json:"xyzCategory" bson:"xyzCategory"`
	TurnoverRatio   float64   `json:"turnoverRatio" bson:"turnoverRatio"`
	GMROI           float64   `json:"gmroi" bson:"gmroi"`
	Revenue         float64   `json:"revenue" bson:"revenue"`
	Profit          float64   `json:"profit" bson:"profit"`
	SalesCount      int       `json:"salesCount" bson:"salesCount"`
	TotalQuantity   float64   `json:"totalQuantity" bson:"totalQuantity"`
	RevenueShare    float64   `json:"revenueShare" bson:"revenueShare"`
	CumulativeShare float64   `json:"cumulativeShare" bson:"cumulativeShare"`
	DemandCV        float64   `json:"demandCv" bson:"demandCv"`
	LastCalculated  time.Time `json:"lastCalculated" bson:"lastCalculated"`
	RunID           string    `json:"runId" bson:"runId"`
}

// BasketAssociation 购物篮关联规则 A→B（有方向）
type BasketAssociation struct {
	ItemA      string  `json:"itemA" bson:"itemA"`
	ItemAName  string  `json:"itemAName" bson:"itemAName"`
	ItemB      string  `json:"itemB" bson:"itemB"`
	ItemBName  string  `json:"itemBName" bson:"itemBName"`
	Support    float64 `json:"support" bson:"support"`
	Confidence float64 `json:"confidence" bson:"confidence"`
	PairCount  int     `json:"pairCount" bson:"pairCount"`
	RunID      string  `json:"runId" bson:"runId"`
}
