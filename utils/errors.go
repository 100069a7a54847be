package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ApiError 自定义API错误
type ApiError struct {
	StatusCode int
	Message    string
	ErrorCode  string
}

// Error 实现error接口
func (e *ApiError) Error() string {
	return e.Message
}

// NewApiError 创建API错误
func NewApiError(message string, statusCode int, errorCode string) *ApiError {
	return &ApiError{
		StatusCode: statusCode,
		Message:    message,
		ErrorCode:  errorCode,
	}
}

// CreateNotFoundError 创建资源不存在错误
func CreateNotFoundError(resource string) *ApiError {
	return NewApiError(resource+"不存在", http.StatusNotFound, "RESOURCE_NOT_FOUND")
}

// CreateBadRequestError 创建错误请求错误
func CreateBadRequestError(message string) *ApiError {
	return NewApiError(message, http.StatusBadRequest, "BAD_REQUEST")
}

// ErrorKind 分析引擎错误类别
type ErrorKind string

const (
	KindInsufficientData      ErrorKind = "InsufficientData"
	KindInvalidSettings       ErrorKind = "InvalidSettings"
	KindConcurrentRunConflict ErrorKind = "ConcurrentRunConflict"
	KindPartialComputeFailure ErrorKind = "PartialComputeFailure"
)

// AnalyticsError 分析引擎错误，携带类别与可读信息
type AnalyticsError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error 实现error接口
func (e *AnalyticsError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap 返回底层错误
func (e *AnalyticsError) Unwrap() error {
	return e.Err
}

// StatusCode 错误类别对应的HTTP状态码
func (e *AnalyticsError) StatusCode() int {
	switch e.Kind {
	case KindInvalidSettings:
		return http.StatusBadRequest
	case KindConcurrentRunConflict:
		return http.StatusConflict
	case KindInsufficientData:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// NewAnalyticsError 创建分析引擎错误
func NewAnalyticsError(kind ErrorKind, message string, err error) *AnalyticsError {
	return &AnalyticsError{Kind: kind, Message: message, Err: err}
}

// IsKind 判断错误链中是否有指定类别的分析错误
func IsKind(err error, kind ErrorKind) bool {
	var ae *AnalyticsError
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// HandleError 处理错误并返回适当的响应
func HandleError(c *gin.Context, err error) {
	if c == nil {
		return
	}
	// 记录错误
	LogError(err, map[string]interface{}{
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
	}, "API错误")

	// 处理API错误
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		response := gin.H{"success": false, "error": apiErr.Message}
		if apiErr.ErrorCode != "" {
			response["code"] = apiErr.ErrorCode
		}
		c.JSON(apiErr.StatusCode, response)
		return
	}

	// 分析引擎错误
	var analyticsErr *AnalyticsError
	if errors.As(err, &analyticsErr) {
		c.JSON(analyticsErr.StatusCode(), gin.H{
			"success": false,
			"error":   analyticsErr.Message,
			"code":    string(analyticsErr.Kind),
		})
		return
	}

	// 其他未预期的错误
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   err.Error(),
		"success": false,
	})
}

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, data interface{}, message string, statusCode ...int) {
	code := http.StatusOK
	if len(statusCode) > 0 {
		code = statusCode[0]
	}

	response := gin.H{"success": true}
	if data != nil {
		response["data"] = data
	}
	if message != "" {
		response["message"] = message
	}

	c.JSON(code, response)
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, message string, statusCode int) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error":   message,
	})
}
