package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	ErrCodeConnection   ErrorCode = "CONNECTION_ERROR"
	ErrCodeSchema       ErrorCode = "SCHEMA_ERROR"
	ErrCodeInputFile    ErrorCode = "INPUT_FILE_ERROR"
	ErrCodeBatchWrite   ErrorCode = "BATCH_WRITE_ERROR"
	ErrCodeEmbedding    ErrorCode = "EMBEDDING_ERROR"
	ErrCodeEmptyInput   ErrorCode = "EMPTY_INPUT"
	ErrCodeConfig       ErrorCode = "CONFIG_ERROR"
	ErrCodeQuery        ErrorCode = "QUERY_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// ErrorType 错误类型
type ErrorType int

const (
	ErrorTypeSystem ErrorType = iota
	ErrorTypeInput
	ErrorTypeExternal
)

// AppError 应用错误结构体
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	Type     ErrorType   `json:"type"`
	HTTPCode int         `json:"-"`
	Details  interface{} `json:"details,omitempty"`
	Cause    error       `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加错误详情
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause 添加错误原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Fatal 是否需要终止进程
func (e *AppError) Fatal() bool {
	switch e.Code {
	case ErrCodeEmptyInput, ErrCodeInvalidInput, ErrCodeQuery:
		return false
	default:
		return true
	}
}

// ExitCode 进程退出码。
// Fatal 只决定交互循环是否继续；单次命令以任何错误结束时都返回非零，空输入除外。
func (e *AppError) ExitCode() int {
	switch e.Code {
	case ErrCodeEmptyInput:
		return 0
	case ErrCodeConfig:
		return 2
	case ErrCodeConnection:
		return 3
	case ErrCodeSchema:
		return 4
	case ErrCodeInputFile:
		return 5
	case ErrCodeBatchWrite, ErrCodeEmbedding:
		return 6
	default:
		return 1
	}
}

// 错误构造函数

// NewConnectionError 数据库或外部服务无法连接
func NewConnectionError(message string, cause error) *AppError {
	return &AppError{
		Code:     ErrCodeConnection,
		Message:  message,
		Type:     ErrorTypeExternal,
		HTTPCode: http.StatusServiceUnavailable,
		Cause:    cause,
	}
}

// NewSchemaError 建表/扩展/索引失败
func NewSchemaError(message string, cause error) *AppError {
	return &AppError{
		Code:     ErrCodeSchema,
		Message:  message,
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

// NewInputFileError 输入文件缺失或格式错误
func NewInputFileError(path, reason string, cause error) *AppError {
	return &AppError{
		Code:     ErrCodeInputFile,
		Message:  fmt.Sprintf("input file %s: %s", path, reason),
		Type:     ErrorTypeInput,
		HTTPCode: http.StatusBadRequest,
		Cause:    cause,
	}
}

// NewBatchWriteError 批次写入失败，之前已提交的批次保留
func NewBatchWriteError(batch, committed int, cause error) *AppError {
	return &AppError{
		Code:     ErrCodeBatchWrite,
		Message:  fmt.Sprintf("batch %d failed after %d rows committed", batch, committed),
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
		Details:  map[string]int{"batch": batch, "committed": committed},
		Cause:    cause,
	}
}

// NewEmbeddingError 嵌入模型调用失败
func NewEmbeddingError(message string, cause error) *AppError {
	return &AppError{
		Code:     ErrCodeEmbedding,
		Message:  message,
		Type:     ErrorTypeExternal,
		HTTPCode: http.StatusBadGateway,
		Cause:    cause,
	}
}

// NewEmptyInputError 没有可处理的输入
func NewEmptyInputError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeEmptyInput,
		Message:  message,
		Type:     ErrorTypeInput,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewConfigError 配置加载失败
func NewConfigError(cause error) *AppError {
	return &AppError{
		Code:     ErrCodeConfig,
		Message:  "failed to load configuration",
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

// NewQueryError 单次检索失败
func NewQueryError(cause error) *AppError {
	return &AppError{
		Code:     ErrCodeQuery,
		Message:  "similarity query failed",
		Type:     ErrorTypeExternal,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

// NewInvalidInputError 创建输入无效错误
func NewInvalidInputError(field, reason string) *AppError {
	return &AppError{
		Code:     ErrCodeInvalidInput,
		Message:  fmt.Sprintf("Invalid input for field '%s': %s", field, reason),
		Type:     ErrorTypeInput,
		HTTPCode: http.StatusBadRequest,
	}
}

// GetAppError 获取错误链中的AppError，如果不存在则包装为系统错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:     "INTERNAL_ERROR",
		Message:  "internal error",
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
		Cause:    err,
	}
}

// HasCode 判断错误链中是否包含指定错误码
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}
