package writer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hatlonely/rdbx/ref"
	. "github.com/smartystreets/goconvey/convey"
)

func TestConsoleWriter(t *testing.T) {
	Convey("测试 ConsoleWriter", t, func() {
		w, err := NewConsoleWriterWithOptions(&ConsoleWriterOptions{Target: "stdout"})
		So(err, ShouldBeNil)
		So(w.w, ShouldEqual, os.Stdout)
		So(w.Close(), ShouldBeNil)

		w, err = NewConsoleWriterWithOptions(nil)
		So(err, ShouldBeNil)
		So(w.w, ShouldEqual, os.Stderr)

		_, err = NewConsoleWriterWithOptions(&ConsoleWriterOptions{Target: "printer"})
		So(err, ShouldNotBeNil)
	})
}

func TestFileWriter(t *testing.T) {
	Convey("测试 FileWriter", t, func() {
		dir := t.TempDir()

		Convey("追加写入并自动创建目录", func() {
			path := filepath.Join(dir, "sub", "app.log")
			w, err := NewFileWriterWithOptions(&FileWriterOptions{Path: path})
			So(err, ShouldBeNil)
			_, err = w.Write([]byte("hello\n"))
			So(err, ShouldBeNil)
			So(w.Close(), ShouldBeNil)
			So(w.Close(), ShouldBeNil)

			_, err = w.Write([]byte("closed\n"))
			So(err, ShouldNotBeNil)

			w, err = NewFileWriterWithOptions(&FileWriterOptions{Path: path})
			So(err, ShouldBeNil)
			_, _ = w.Write([]byte("world\n"))
			_ = w.Close()

			buf, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(buf), ShouldEqual, "hello\nworld\n")
		})

		Convey("超过大小后轮转", func() {
			path := filepath.Join(dir, "rotate.log")
			w, err := NewFileWriterWithOptions(&FileWriterOptions{Path: path, MaxSize: 10, MaxBackups: 2})
			So(err, ShouldBeNil)
			for _, line := range []string{"12345678\n", "abcdefgh\n", "ABCDEFGH\n"} {
				_, err := w.Write([]byte(line))
				So(err, ShouldBeNil)
			}
			So(w.Close(), ShouldBeNil)

			current, _ := os.ReadFile(path)
			first, _ := os.ReadFile(path + ".1")
			second, _ := os.ReadFile(path + ".2")
			So(string(current), ShouldEqual, "ABCDEFGH\n")
			So(string(first), ShouldEqual, "abcdefgh\n")
			So(string(second), ShouldEqual, "12345678\n")
		})

		Convey("路径不能为空", func() {
			_, err := NewFileWriterWithOptions(&FileWriterOptions{})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestMultiWriter(t *testing.T) {
	Convey("测试 MultiWriter", t, func() {
		dir := t.TempDir()
		a := filepath.Join(dir, "a.log")
		b := filepath.Join(dir, "b.log")

		w, err := ref.Build[Writer](&ref.TypeOptions{
			Namespace: Namespace,
			Type:      "MultiWriter",
			Options: &MultiWriterOptions{
				Writers: []ref.TypeOptions{
					{Namespace: Namespace, Type: "FileWriter", Options: &FileWriterOptions{Path: a}},
					{Namespace: Namespace, Type: "FileWriter", Options: &FileWriterOptions{Path: b}},
				},
			},
		})
		So(err, ShouldBeNil)

		n, err := w.Write([]byte("both\n"))
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 5)
		So(w.Close(), ShouldBeNil)

		for _, path := range []string{a, b} {
			buf, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(buf), ShouldEqual, "both\n")
		}

		_, err = NewMultiWriterWithOptions(&MultiWriterOptions{})
		So(err, ShouldNotBeNil)

		_, err = NewMultiWriterWithOptions(&MultiWriterOptions{
			Writers: []ref.TypeOptions{{Namespace: Namespace, Type: "Unknown"}},
		})
		So(err, ShouldNotBeNil)
	})
}
