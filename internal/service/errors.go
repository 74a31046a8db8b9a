package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrPostNotFound          = errors.New("post not found")
	ErrCommentNotFound       = errors.New("comment not found")
	ErrParentCommentNotFound = errors.New("parent comment not found")
	ErrImageNotFound         = errors.New("image not found")

	// ErrSpamRejected 是所有反垃圾拒绝原因的公共父错误。
	ErrSpamRejected     = errors.New("comment rejected as spam")
	ErrHoneypotFilled   = fmt.Errorf("%w: honeypot field is not empty", ErrSpamRejected)
	ErrSubmittedTooFast = fmt.Errorf("%w: form submitted too quickly", ErrSpamRejected)

	// ErrTooManyComments 与 ErrSpamRejected 区分开，调用方据此返回限流信号。
	ErrTooManyComments = errors.New("too many comments from this address")
)

// ValidationError 表示输入不合法，Field 指明出错字段。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// validateStruct 执行结构体校验，并把第一条失败转换为 ValidationError。
func validateStruct(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	return newValidationError(fe.Field(), describeFieldError(fe))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "hexcolor":
		return "must be a hex color"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
