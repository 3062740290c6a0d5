package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sync"
)

// Code 表示系统内的统一错误码。
type Code string

// Severity 描述错误的严重程度，用于日志分级。
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Attributes 为错误码提供默认行为。
type Attributes struct {
	Message  string
	Severity Severity
	// Surfaced 表示该类错误会以提示的形式展示给最终用户。
	Surfaced bool
}

const (
	CodeUnknown            Code = "UNKNOWN"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeNoProvider         Code = "NO_PROVIDER"
	CodeConnectFailed      Code = "WALLET_CONNECT_FAILED"
	CodeNotConnected       Code = "NOT_CONNECTED"
	CodeScoreUnavailable   Code = "SCORE_UNAVAILABLE"
	CodeInsightUnavailable Code = "INSIGHT_UNAVAILABLE"
	CodeMissingCredential  Code = "MISSING_CREDENTIAL"
	CodeUpstreamFailure    Code = "UPSTREAM_FAILURE"
	CodeTimeout            Code = "TIMEOUT"
)

var (
	registryMu sync.RWMutex
	registry   = map[Code]Attributes{
		CodeUnknown:            {Message: "unknown error", Severity: SeverityCritical},
		CodeInvalidArgument:    {Message: "invalid argument", Severity: SeverityInfo},
		CodeNoProvider:         {Message: "no compatible wallet installed", Severity: SeverityInfo, Surfaced: true},
		CodeConnectFailed:      {Message: "wallet connection failed", Severity: SeverityWarning, Surfaced: true},
		CodeNotConnected:       {Message: "wallet not connected", Severity: SeverityInfo, Surfaced: true},
		CodeScoreUnavailable:   {Message: "score service unavailable", Severity: SeverityInfo},
		CodeInsightUnavailable: {Message: "insight service unavailable", Severity: SeverityInfo},
		CodeMissingCredential:  {Message: "upstream credential missing", Severity: SeverityCritical},
		CodeUpstreamFailure:    {Message: "upstream service failure", Severity: SeverityWarning},
		CodeTimeout:            {Message: "operation timed out", Severity: SeverityWarning},
	}
)

// Register 允许业务模块在初始化阶段注册新的错误码描述。
func Register(code Code, attr Attributes) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[code] = attr
}

// AttributesOf 返回错误码对应的属性。若未注册则返回 UNKNOWN 的属性。
func AttributesOf(code Code) Attributes {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if attr, ok := registry[code]; ok {
		return attr
	}
	return registry[CodeUnknown]
}

// Error 是系统内统一的错误类型。
type Error struct {
	code     Code
	message  string
	cause    error
	metadata map[string]string
}

// Option 定义可选配置。
type Option func(*Error)

// WithMetadata 附加额外信息。
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// New 创建一个新的错误实例。
func New(code Code, message string, opts ...Option) *Error {
	if message == "" {
		message = AttributesOf(code).Message
	}
	e := &Error{code: code, message: message}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Wrap 在已有错误外包裹统一错误类型。
func Wrap(code Code, cause error, message string, opts ...Option) *Error {
	e := New(code, message, opts...)
	e.cause = cause
	return e
}

// Error 实现 error 接口。
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Unwrap 实现 errors.Unwrap。
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is 允许通过 errors.Is 判断是否相同错误码。
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code
}

// Code 返回错误码。
func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

// Message 返回错误信息。
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Cause 返回被包裹的原始错误。
func (e *Error) Cause() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Metadata 返回附加信息的副本。
func (e *Error) Metadata() map[string]string {
	if e == nil || len(e.metadata) == 0 {
		return nil
	}
	clone := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		clone[k] = v
	}
	return clone
}

// Severity 返回错误严重程度。
func (e *Error) Severity() Severity {
	if e == nil {
		return SeverityInfo
	}
	return AttributesOf(e.code).Severity
}

// From 尝试从 error 中解析统一错误类型。
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if stdErrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf 返回错误对应的错误码。
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code()
	}
	return CodeUnknown
}

// Surfaced 判断错误是否需要展示给用户。
func Surfaced(err error) bool {
	if e, ok := From(err); ok {
		return AttributesOf(e.Code()).Surfaced
	}
	return false
}

// IsTimeout 判断错误是否由超时引起，包括上下文截止与 net/http 超时。
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeout interface{ Timeout() bool }
	return stdErrors.As(err, &timeout) && timeout.Timeout()
}

// Classify 为下游失败选择错误码：超时归为 TIMEOUT，其余使用 fallback。
func Classify(err error, fallback Code) Code {
	if IsTimeout(err) {
		return CodeTimeout
	}
	return fallback
}
