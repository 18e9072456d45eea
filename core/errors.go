package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）、消息（Message）以及出错参数（Param/Value）
//   - 支持错误检查函数（IsXXX）与 errors.Is
//
// 使用场景：
//   - 挖掘错误：INVALID_INPUT, EMPTY_RESULT
//   - 规则错误：INVALID_METRIC, PRECONDITION
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
type DomainError struct {
	Code    string // 错误代码（如 "INVALID_INPUT", "EMPTY_RESULT"）
	Message string // 错误消息
	Module  string // 模块名称（如 "mining", "rules", "store"）
	Param   string // 出错的参数名（可选）
	Value   any    // 出错的参数值（可选）
	Err     error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	msg := e.Message
	if e.Param != "" {
		msg = fmt.Sprintf("%s (%s=%v)", msg, e.Param, e.Value)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is 让 errors.Is 按 Module + Code 匹配，而不是按指针。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Module == "" || e.Module == t.Module)
}

// WithParam 返回附带参数上下文的副本，原错误（通常是哨兵值）不被修改。
func (e *DomainError) WithParam(param string, value any) *DomainError {
	cp := *e
	cp.Param = param
	cp.Value = value
	return &cp
}

// Wrap 返回包装了 cause 的副本。
func (e *DomainError) Wrap(cause error) *DomainError {
	cp := *e
	cp.Err = cause
	return &cp
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取 DomainError（支持被 %w 包装的情况），如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	// 挖掘 / 规则相关错误代码
	ErrorCodeEmptyResult   = "EMPTY_RESULT"   // 阈值把所有结果都剪掉了
	ErrorCodeInvalidMetric = "INVALID_METRIC" // 度量名称不支持或阈值越界
	ErrorCodePrecondition  = "PRECONDITION"   // 上游阶段尚未产出所需输入
)

// 模块名称常量
const (
	ModuleStore  = "store"  // 存储模块
	ModuleMining = "mining" // 频繁项集挖掘
	ModuleRules  = "rules"  // 关联规则生成
	ModuleRecall = "recall" // 推荐匹配
	ModuleEngine = "engine" // 编排与快照
	ModuleConfig = "config" // 配置
)

// 领域哨兵错误。使用时通过 WithParam 附带出错参数，例如：
//
//	return core.ErrInvalidInput.WithParam("rows", 0)
var (
	ErrInvalidInput  = NewDomainError("", ErrorCodeInvalidInput, "invalid input")
	ErrEmptyResult   = NewDomainError("", ErrorCodeEmptyResult, "threshold pruned every item")
	ErrInvalidMetric = NewDomainError("", ErrorCodeInvalidMetric, "invalid metric")
	ErrPrecondition  = NewDomainError("", ErrorCodePrecondition, "precondition not met")
)

// InvalidInputError 创建 INVALID_INPUT 错误。
func InvalidInputError(module, message, param string, value any) *DomainError {
	return &DomainError{Module: module, Code: ErrorCodeInvalidInput, Message: message, Param: param, Value: value}
}

// EmptyResultError 创建 EMPTY_RESULT 错误。
func EmptyResultError(module, message, param string, value any) *DomainError {
	return &DomainError{Module: module, Code: ErrorCodeEmptyResult, Message: message, Param: param, Value: value}
}

// InvalidMetricError 创建 INVALID_METRIC 错误。
func InvalidMetricError(module, message, param string, value any) *DomainError {
	return &DomainError{Module: module, Code: ErrorCodeInvalidMetric, Message: message, Param: param, Value: value}
}

// PreconditionError 创建 PRECONDITION 错误。
func PreconditionError(module, message, param string, value any) *DomainError {
	return &DomainError{Module: module, Code: ErrorCodePrecondition, Message: message, Param: param, Value: value}
}

// 通用错误检查函数

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsEmptyResult 检查错误是否为 EMPTY_RESULT
func IsEmptyResult(err error) bool { return hasCode(err, ErrorCodeEmptyResult) }

// IsInvalidMetric 检查错误是否为 INVALID_METRIC
func IsInvalidMetric(err error) bool { return hasCode(err, ErrorCodeInvalidMetric) }

// IsPrecondition 检查错误是否为 PRECONDITION
func IsPrecondition(err error) bool { return hasCode(err, ErrorCodePrecondition) }
