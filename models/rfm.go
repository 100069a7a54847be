package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 客户分群标签
const (
	SegmentChampions          = "Champions"
	SegmentLoyal              = "Loyal"
	SegmentPotentialLoyalists = "Potential Loyalists"
	SegmentNewCustomers       = "New Customers"
	SegmentPromising          = "Promising"
	SegmentNeedAttention      = "Need Attention"
	SegmentAboutToSleep       = "About to Sleep"
	SegmentAtRisk             = "At Risk"
	SegmentCantLose           = "Cant Lose"
	SegmentHibernating        = "Hibernating"
	SegmentLost               = "Lost"
)

// AlertType 分群变化预警类型
type AlertType string

const (
	AlertTypeUpgrade   AlertType = "Upgrade"
	AlertTypeDowngrade AlertType = "Downgrade"
)

// CustomerScore 客户RFM(P)评分，每次重算整体替换
type CustomerScore struct {
	CustomerID        string    `json:"customerId" bson:"customerId"`
	CustomerName      string    `json:"customerName" bson:"customerName"`
	RecencyScore      int       `json:"recencyScore" bson:"recencyScore"`
	FrequencyScore    int       `json:"frequencyScore" bson:"frequencyScore"`
	MonetaryScore     int       `json:"monetaryScore" bson:"monetaryScore"`
	PaymentScore      int       `json:"paymentScore" bson:"paymentScore"`
	AverageScore      float64   `json:"averageScore" bson:"averageScore"`
	RFMCode           string    `json:"rfmScore" bson:"rfmScore"`
	Segment           string    `json:"segment" bson:"segment"`
	TotalSpent        float64   `json:"totalSpent" bson:"totalSpent"`
	TotalOrders       int       `json:"totalOrders" bson:"totalOrders"`
	DaysSincePurchase int       `json:"daysSincePurchase" bson:"daysSincePurchase"`
	AverageDaysLate   float64   `json:"averageDaysLate" bson:"averageDaysLate"`
	LastPurchaseDate  time.Time `json:"lastPurchaseDate" bson:"lastPurchaseDate"`
	PreviousSegment   string    `json:"previousSegment,omitempty" bson:"previousSegment,omitempty"`
	SegmentChangedOn  time.Time `json:"segmentChangedOn,omitempty" bson:"segmentChangedOn,omitempty"`
	LastCalculated    time.Time `json:"lastCalculated" bson:"lastCalculated"`
	RunID             string    `json:"runId" bson:"runId"`
}

// SegmentAlert 分群变化预警，只追加
type SegmentAlert struct {
	ID              primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	CustomerID      string             `json:"customerId" bson:"customerId"`
	CustomerName    string             `json:"customerName" bson:"customerName"`
	AlertType       AlertType          `json:"alertType" bson:"alertType"`
	PreviousSegment string             `json:"previousSegment" bson:"previousSegment"`
	NewSegment      string             `json:"newSegment" bson:"newSegment"`
	CreatedOn       time.Time          `json:"createdOn" bson:"createdOn"`
	IsRead          bool               `json:"isRead" bson:"isRead"`
	RunID           string             `json:"runId" bson:"runId"`
}

// RFMHistory 每日评分快照，用于趋势分析
type RFMHistory struct {
	ID             primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	CustomerID     string             `json:"customerId" bson:"customerId"`
	SnapshotDate   string             `json:"snapshotDate" bson:"snapshotDate"` // YYYY-MM-DD
	RecencyScore   int                `json:"recencyScore" bson:"recencyScore"`
	FrequencyScore int                `json:"frequencyScore" bson:"frequencyScore"`
	MonetaryScore  int                `json:"monetaryScore" bson:"monetaryScore"`
	PaymentScore   int                `json:"paymentScore" bson:"paymentScore"`
	Segment        string             `json:"segment" bson:"segment"`
	RFMCode        string             `json:"rfmScore" bson:"rfmScore"`
}

// SegmentState 上一次保存的分群状态，供变化检测使用
type SegmentState struct {
	Segment          string    `bson:"segment"`
	PreviousSegment  string    `bson:"previousSegment,omitempty"`
	SegmentChangedOn time.Time `bson:"segmentChangedOn,omitempty"`
}
