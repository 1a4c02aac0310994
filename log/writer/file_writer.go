package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

type FileWriterOptions struct {
	Path string `cfg:"path" validate:"required"`
	// 单个文件的最大字节数，超过后轮转，0 表示不轮转
	MaxSize int64 `cfg:"maxSize"`
	// 保留的历史文件个数 path.1 ... path.N
	MaxBackups int `cfg:"maxBackups" def:"3"`
}

type FileWriter struct {
	options *FileWriterOptions

	mu   sync.Mutex
	file *os.File
	size int64
}

func NewFileWriterWithOptions(options *FileWriterOptions) (*FileWriter, error) {
	if options == nil || options.Path == "" {
		return nil, errors.New("file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(options.Path), 0755); err != nil {
		return nil, errors.Wrapf(err, "create directory for [%s] failed", options.Path)
	}
	w := &FileWriter{options: options}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *FileWriter) open() error {
	file, err := os.OpenFile(w.options.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return errors.Wrapf(err, "open [%s] failed", w.options.Path)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return errors.Wrapf(err, "stat [%s] failed", w.options.Path)
	}
	w.file = file
	w.size = info.Size()
	return nil
}

func (w *FileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, errors.New("file writer is closed")
	}
	if w.options.MaxSize > 0 && w.size > 0 && w.size+int64(len(p)) > w.options.MaxSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// path.N-1 => path.N, ..., path => path.1
func (w *FileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return errors.Wrap(err, "close log file failed")
	}
	w.file = nil

	backups := w.options.MaxBackups
	if backups <= 0 {
		backups = 1
	}
	_ = os.Remove(fmt.Sprintf("%s.%d", w.options.Path, backups))
	for i := backups - 1; i >= 1; i-- {
		_ = os.Rename(fmt.Sprintf("%s.%d", w.options.Path, i), fmt.Sprintf("%s.%d", w.options.Path, i+1))
	}
	if err := os.Rename(w.options.Path, w.options.Path+".1"); err != nil {
		return errors.Wrap(err, "rotate log file failed")
	}
	return w.open()
}

func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
