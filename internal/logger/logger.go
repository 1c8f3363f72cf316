package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log 全局 logrus 实例，Init 之前也可用（默认 Info 级别、文本格式）
var Log = logrus.New()

// Init 配置全局 Logger：JSON 格式输出到标准输出
func Init(level string) {
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})
	Log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
		Log.WithField("level", level).Warn("unknown log level, falling back to info")
	}
	Log.SetLevel(lvl)
}
