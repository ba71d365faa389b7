package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var once sync.Once

// Init 让校验错误使用 json 字段名，多次调用只生效一次
func Init() {
	once.Do(register)
}

func register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		// 注册 tag 名称转换逻辑，使错误信息显示 json tag 而非 struct 字段名
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

	}
}
