package errors

import (
	"go.uber.org/zap"
)

// ErrorLogger 错误日志器
type ErrorLogger struct {
	logger *zap.Logger
}

// NewErrorLogger 创建错误日志器
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{
		logger: logger,
	}
}

// LogError 记录错误，日志级别由错误是否致命决定
func (el *ErrorLogger) LogError(err error, fields ...zap.Field) {
	if err == nil {
		return
	}

	appErr := GetAppError(err)
	logFields := append([]zap.Field{
		zap.String("error_code", string(appErr.Code)),
		zap.String("error_type", getErrorTypeString(appErr.Type)),
		zap.Bool("fatal", appErr.Fatal()),
	}, fields...)

	if appErr.Details != nil {
		logFields = append(logFields, zap.Any("error_details", appErr.Details))
	}
	if appErr.Cause != nil {
		logFields = append(logFields, zap.NamedError("cause", appErr.Cause))
	}

	if appErr.Fatal() {
		el.logger.Error(appErr.Message, logFields...)
	} else {
		el.logger.Warn(appErr.Message, logFields...)
	}
}

func getErrorTypeString(errorType ErrorType) string {
	switch errorType {
	case ErrorTypeSystem:
		return "system"
	case ErrorTypeInput:
		return "input"
	case ErrorTypeExternal:
		return "external"
	default:
		return "unknown"
	}
}
