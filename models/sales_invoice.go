package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InvoiceStatus 销售发票状态
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSubmitted InvoiceStatus = "submitted"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// InvoiceLine 发票明细行
type InvoiceLine struct {
	ProductID   string  `json:"productId" bson:"productId"`
	ProductName string  `json:"productName" bson:"productName"`
	Quantity    float64 `json:"quantity" bson:"quantity"`
	Rate        float64 `json:"rate" bson:"rate"`
	CostRate    float64 `json:"costRate" bson:"costRate"`
}

// Amount 行金额
func (l InvoiceLine) Amount() float64 {
	return l.Quantity * l.Rate
}

// SalesInvoice 销售发票，一张发票即一笔订单
type SalesInvoice struct {
	ID           primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	InvoiceNo    string             `json:"invoiceNo" bson:"invoiceNo"`
	CustomerID   string             `json:"customerId" bson:"customerId"`
	CustomerName string             `json:"customerName" bson:"customerName"`
	PostingDate  time.Time          `json:"postingDate" bson:"postingDate"`
	DueDate      time.Time          `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	PaidDate     time.Time          `json:"paidDate,omitempty" bson:"paidDate,omitempty"`
	GrandTotal   float64            `json:"grandTotal" bson:"grandTotal"`
	Status       InvoiceStatus      `json:"status" bson:"status"`
	Items        []InvoiceLine      `json:"items" bson:"items"`
}
