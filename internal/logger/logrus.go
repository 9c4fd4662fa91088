package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogrus 迁移与健康检查使用的 logrus 日志器，格式与级别与 zap 保持一致
func NewLogrus(env, level string) *logrus.Logger {
	log := logrus.New()
	log.Out = os.Stderr

	if env == "development" {
		log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	} else {
		log.Formatter = &logrus.JSONFormatter{}
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}
