package writer

import (
	"io"

	"github.com/hatlonely/rdbx/ref"
)

// Writer 日志输出器
type Writer interface {
	io.Writer
	io.Closer
}

func init() {
	ref.MustRegisterT[ConsoleWriter](NewConsoleWriterWithOptions)
	ref.MustRegisterT[FileWriter](NewFileWriterWithOptions)
	ref.MustRegisterT[MultiWriter](NewMultiWriterWithOptions)
}

const Namespace = "github.com/hatlonely/rdbx/log/writer"
