package utils

import (
	"fmt"
	"time"

	"github.com/BerniceZTT/crm_analytics/config"
	"github.com/BerniceZTT/crm_analytics/models"

	"github.com/dgrijalva/jwt-go"
)

// 与CRM主服务共用同一签名密钥
var jwtSecret = []byte(config.LoadConfig().JWTKey)

// SetJWTSecret 覆盖签名密钥
func SetJWTSecret(secret string) {
	jwtSecret = []byte(secret)
}

// GenerateToken 生成JWT令牌（仅测试使用，线上令牌由CRM签发）
func GenerateToken(id, username string, role models.UserRole, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"id":       id,
		"username": username,
		"role":     string(role),
		"exp":      time.Now().Add(ttl).Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		Logger.Error().Err(err).Msg("生成token失败")
		return "", err
	}
	return tokenString, nil
}

// ParseToken 解析和验证JWT令牌
func ParseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	// 验证token并提取claims
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("无效的token")
}

// HasPermission 检查用户是否有权限
func HasPermission(role models.UserRole, resource string, action string) bool {
	// 超级管理员拥有所有权限
	if role == models.UserRoleSUPER_ADMIN {
		return true
	}

	// 定义各角色权限
	permissions := map[models.UserRole]map[string][]string{
		models.UserRoleFACTORY_SALES: {
			"analytics": {"read"},
			"alerts":    {"read", "update"},
		},
		models.UserRoleINVENTORY_MANAGER: {
			"analytics": {"read"},
		},
	}

	// 检查特定角色的权限
	if resourceActions, exists := permissions[role]; exists {
		if actions, hasResource := resourceActions[resource]; hasResource {
			for _, a := range actions {
				if a == action {
					return true
				}
			}
		}
	}

	return false
}
