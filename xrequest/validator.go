package xrequest

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	enLocal "github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTrans "github.com/go-playground/validator/v10/translations/en"
	"gomod.pri/codec/xerror"
)

// Validate checks v's validate tags and reports the first failure as CodeInvalidParams.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		return xerror.New(xerror.CodeInvalidParams, errors.New(errs[0].Translate(trans)), true)
	}
	return xerror.New(xerror.CodeInvalidParams, err, true)
}

var (
	validate *validator.Validate
	trans    ut.Translator
)

type customRule struct {
	tag  string
	msg  string
	test validator.Func
}

var customRules = []customRule{
	{"timestamp", "{0} must be epoch seconds or milliseconds", isTimestamp},
	{"nonce", "{0} must be 1-64 printable characters without spaces", isNonce},
}

func init() {
	validate = validator.New()
	// 错误信息里优先用 label，其次 json 字段名
	validate.RegisterTagNameFunc(fieldName)

	local := enLocal.New()
	trans, _ = ut.New(local).GetTranslator(local.Locale())
	_ = enTrans.RegisterDefaultTranslations(validate, trans)

	for _, rule := range customRules {
		_ = validate.RegisterValidation(rule.tag, rule.test)
		registerTranslation(rule.tag, rule.msg)
	}
}

func registerTranslation(tag, msg string) {
	_ = validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, msg, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			s, err := ut.T(tag, fe.Field())
			if err != nil {
				return fe.Error()
			}
			return s
		})
}

func fieldName(field reflect.StructField) string {
	if label := field.Tag.Get("label"); label != "" {
		return label
	}
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name != "" {
		return name
	}
	return field.Name
}

func isTimestamp(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 10 && len(s) != 13 {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

func isNonce(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) == 0 || len(s) > 64 {
		return false
	}
	for _, r := range s {
		if r <= ' ' || r > '~' {
			return false
		}
	}
	return true
}
