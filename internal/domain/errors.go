package domain

import (
	"errors"
	"fmt"
)

// 错误分级（见 HTTP 层的映射）：
// - NotFound 类：页面内联提示，不视为致命
// - ValidationError：阻止提交，不产生任何写入
// - ExternalServiceError：store/geocoder 调用失败，由用户重试
// - Authorization 类：管理操作对非管理员隐藏（fail closed）
var (
	ErrNotFound        = errors.New("not found")
	ErrTemplateMissing = errors.New("template not found")          // tether 引用的模板已被删除（悬挂引用）
	ErrTetherExists    = errors.New("tether already assigned")     // Assign 仅允许从 unbound 状态发起
	ErrLocked          = errors.New("tether is locked")            // locked 状态拒绝新日志提交
	ErrAuthorization   = errors.New("not authorized")              // 管理员专属操作
	ErrSignInRequired  = errors.New("sign-in required")            // aura 写入要求非匿名身份
	ErrConfirmRequired = errors.New("confirmation required")       // reset 等破坏性操作需显式确认
)

// ValidationError schema 或表单校验失败（哪个字段、为什么）
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// IsValidation 判断 err 是否为校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ExternalServiceError 外部协作方（store/geocoder）调用失败
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }
