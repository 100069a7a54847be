package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRole 用户角色枚举
type UserRole string

const (
	UserRoleSUPER_ADMIN       UserRole = "SUPER_ADMIN"       // 超级管理员
	UserRoleFACTORY_SALES     UserRole = "FACTORY_SALES"     // 原厂销售
	UserRoleAGENT             UserRole = "AGENT"             // 代理商
	UserRoleINVENTORY_MANAGER UserRole = "INVENTORY_MANAGER" // 库存管理员
)

// Customer 客户模型（分析引擎只读取身份字段）
type Customer struct {
	ID             primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Name           string             `json:"name" bson:"name"`
	Nature         string             `json:"nature" bson:"nature"`
	Importance     string             `json:"importance" bson:"importance"`
	RelatedSalesID string             `json:"relatedSalesId" bson:"relatedsalesid"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdat"`
}

// 各种请求和响应结构
type (
	// RecomputeResponse 重算任务提交响应
	RecomputeResponse struct {
		JobID  string `json:"jobId"`
		Status string `json:"status"`
	}

	// MarkAlertReadRequest 标记预警已读请求
	MarkAlertReadRequest struct {
		IsRead *bool `json:"isRead"`
	}
)
