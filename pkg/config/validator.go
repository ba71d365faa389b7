package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator 返回共享的 validator 实例（validator.Validate 并发安全，且内部缓存结构体元信息）
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate 按 struct tag 验证配置
// 支持 required、min/max、oneof、hostname_port、url 等标准 tag
func Validate(cfg any) error {
	if cfg == nil {
		return ErrNilConfig
	}

	if err := Validator().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %s", ErrValidationFailed, formatValidationErrors(err))
	}
	return nil
}

// formatValidationErrors 格式化验证错误信息
func formatValidationErrors(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	parts := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		msg := fmt.Sprintf("field '%s' failed on '%s'", fieldErr.Namespace(), fieldErr.Tag())
		if fieldErr.Param() != "" {
			msg += fmt.Sprintf(" (%s)", fieldErr.Param())
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}
