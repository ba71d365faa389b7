package web

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	codes "github.com/lk2023060901/flotilla/pkg/web/errors"
)

// BindJSON 绑定并校验 JSON 请求体，失败时已写出 400 响应
func BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			Error(c, codes.CodeInvalidParams, verrs.Error())
			return false
		}
		Error(c, codes.CodeInvalidParams, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// GetQuery 获取查询参数，带默认值
func GetQuery(c *gin.Context, key, defaultValue string) string {
	val := c.Query(key)
	if val == "" {
		return defaultValue
	}
	return val
}
