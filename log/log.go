package log

import (
	"sync/atomic"

	"github.com/hatlonely/rdbx/log/logger"
	"github.com/hatlonely/rdbx/ref"
	"github.com/pkg/errors"
)

type holder struct {
	logger.Logger
}

var defaultLogger atomic.Value

func init() {
	// 默认向标准错误输出 text 格式日志
	l, err := logger.NewSLogWithOptions(&logger.SLogOptions{Level: "info", Format: "text"})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	defaultLogger.Store(holder{l})
}

func Default() logger.Logger {
	return defaultLogger.Load().(holder).Logger
}

func SetDefault(l logger.Logger) {
	if l != nil {
		defaultLogger.Store(holder{l})
	}
}

// NewLoggerWithOptions 按配置创建日志器，Namespace 为空时使用 logger 包
// options 为 nil 时返回默认日志器
func NewLoggerWithOptions(options *ref.TypeOptions) (logger.Logger, error) {
	if options == nil || options.Type == "" {
		return Default(), nil
	}
	if options.Namespace == "" {
		o := *options
		o.Namespace = logger.Namespace
		options = &o
	}
	l, err := ref.Build[logger.Logger](options)
	if err != nil {
		return nil, errors.WithMessage(err, "create logger failed")
	}
	return l, nil
}
