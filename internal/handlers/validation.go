package handlers

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators 在 gin 的校验引擎上注册自定义规则，启动时调用一次
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	// 错误信息里用 json 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v.RegisterValidation("vote_type", validVoteType)
}

// validVoteType 只接受 -1、0、1
func validVoteType(fl validator.FieldLevel) bool {
	f := fl.Field()
	if f.Kind() == reflect.Ptr {
		if f.IsNil() {
			return false
		}
		f = f.Elem()
	}
	switch f.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := f.Int()
		return n >= -1 && n <= 1
	}
	return false
}
