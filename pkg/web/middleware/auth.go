package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/lk2023060901/flotilla/pkg/web/errors"
)

// ClaimsKey gin.Context 中保存已验证 claims 的键
const ClaimsKey = "auth.claims"

// AuthConfig Bearer JWT 认证配置，Secret 为空时关闭
type AuthConfig struct {
	// Secret HS256 共享密钥
	Secret string `mapstructure:"secret"`
	// Issuer 非空时要求 iss 一致
	Issuer    string   `mapstructure:"issuer"`
	SkipPaths []string `mapstructure:"skip_paths"`
}

// Enabled 是否启用
func (c *AuthConfig) Enabled() bool {
	return c.Secret != ""
}

// Auth 校验 Authorization: Bearer <token>，通过后把 claims 放入上下文
func Auth(cfg *AuthConfig) gin.HandlerFunc {
	skip := toSet(cfg.SkipPaths)
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)
	key := []byte(cfg.Secret)

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			abort(c, errors.CodeUnauthorized, "missing bearer token")
			return
		}

		claims := jwt.MapClaims{}
		_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return key, nil
		})
		if err != nil {
			abort(c, errors.CodeUnauthorized, "invalid token: "+err.Error())
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// GetClaims 读取 Auth 放入的 claims
func GetClaims(c *gin.Context) (jwt.MapClaims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(jwt.MapClaims)
	return claims, ok
}
