package literal

import (
	"database/sql"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

// 按 SQL 字符串字面量语法还原内容：去掉外层单引号，反斜杠转义下一个字符
func unquoteSQL(s string) string {
	s = s[1 : len(s)-1]
	var buf strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		buf.WriteByte(s[i])
	}
	return buf.String()
}

func TestEncode(t *testing.T) {
	Convey("测试 Encode 方法", t, func() {
		Convey("NULL", func() {
			So(MustEncode(nil), ShouldEqual, "NULL")
			var p *int
			So(MustEncode(p), ShouldEqual, "NULL")
			So(MustEncode(sql.NullString{}), ShouldEqual, "NULL")
			var b []byte
			So(MustEncode(b), ShouldEqual, "NULL")
		})

		Convey("字符串转义", func() {
			So(MustEncode("abc"), ShouldEqual, "'abc'")
			So(MustEncode("b'c"), ShouldEqual, `'b\'c'`)
			So(MustEncode(`a\b`), ShouldEqual, `'a\\b'`)
			So(MustEncode(`a\'b`), ShouldEqual, `'a\\\'b'`)
			So(MustEncode([]byte("x'y")), ShouldEqual, `'x\'y'`)
			So(MustEncode(sql.NullString{String: "ok", Valid: true}), ShouldEqual, "'ok'")
		})

		Convey("含反斜杠和单引号的字符串可以按 SQL 语法还原", func() {
			for _, s := range []string{`\'`, `'\`, `\\''`, `it's a\b`, `\\\'''\`, `''`, `\`} {
				encoded := MustEncode(s)
				So(encoded, ShouldStartWith, "'")
				So(encoded, ShouldEndWith, "'")
				So(unquoteSQL(encoded), ShouldEqual, s)
			}
		})

		Convey("数值原样输出", func() {
			So(MustEncode(42), ShouldEqual, "42")
			So(MustEncode(int64(-7)), ShouldEqual, "-7")
			So(MustEncode(uint8(3)), ShouldEqual, "3")
			So(MustEncode(1.5), ShouldEqual, "1.5")
			So(MustEncode(float32(0.25)), ShouldEqual, "0.25")
			So(MustEncode(1e21), ShouldEqual, "1000000000000000000000")
		})

		Convey("布尔值", func() {
			So(MustEncode(true), ShouldEqual, "1")
			So(MustEncode(false), ShouldEqual, "0")
		})

		Convey("日期和时间", func() {
			morning := time.Date(2024, 3, 5, 9, 7, 3, 0, time.UTC)
			afternoon := time.Date(2024, 12, 31, 14, 59, 0, 0, time.FixedZone("CST", 8*3600))
			So(MustEncode(morning), ShouldEqual, "'2024-03-05  9:07:03'")
			So(MustEncode(afternoon), ShouldEqual, "'2024-12-31 14:59:00'")
			So(MustEncode(&afternoon), ShouldEqual, "'2024-12-31 14:59:00'")
			So(MustEncode(NewDate(morning)), ShouldEqual, "'2024-03-05'")
			So(MustEncode(Date{Year: 1999, Month: time.January, Day: 2}), ShouldEqual, "'1999-01-02'")
		})

		Convey("序列递归编码", func() {
			So(MustEncode([]any{1, "a", nil}), ShouldEqual, "(1,'a',NULL)")
			So(MustEncode([]int{1, 2, 3}), ShouldEqual, "(1,2,3)")
			So(MustEncode([][]int{{1, 2}, {3}}), ShouldEqual, "((1,2),(3))")
			So(MustEncode([2]string{"x", "y"}), ShouldEqual, "('x','y')")
			So(MustEncode([]string{}), ShouldEqual, "()")
		})

		Convey("不支持的类型", func() {
			_, err := Encode(map[string]int{"a": 1})
			So(err, ShouldNotBeNil)
			var target *UnsupportedValueError
			So(errors.As(err, &target), ShouldBeTrue)

			_, err = Encode([]any{1, struct{}{}})
			So(err, ShouldNotBeNil)

			So(func() { MustEncode(make(chan int)) }, ShouldPanic)
		})

		Convey("NaN 和 Inf 没有字面量", func() {
			for _, v := range []any{math.NaN(), math.Inf(1), math.Inf(-1), float32(math.Inf(1))} {
				_, err := Encode(v)
				var target *UnsupportedValueError
				So(errors.As(err, &target), ShouldBeTrue)
			}
			_, err := Encode([]float64{1, math.NaN()})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestIsTruthy(t *testing.T) {
	Convey("测试 IsTruthy 方法", t, func() {
		for _, c := range []struct {
			value  any
			expect bool
		}{
			{true, true},
			{false, false},
			{nil, false},
			{0, false},
			{1, true},
			{-3, true},
			{int64(0), false},
			{uint(7), true},
		} {
			ok, err := IsTruthy(c.value)
			So(err, ShouldBeNil)
			So(ok, ShouldEqual, c.expect)
		}

		_, err := IsTruthy("yes")
		So(err, ShouldNotBeNil)
		_, err = IsTruthy(1.0)
		So(err, ShouldNotBeNil)
	})
}

func TestQuoteIdentifier(t *testing.T) {
	Convey("测试 QuoteIdentifier 方法", t, func() {
		So(QuoteIdentifier("users"), ShouldEqual, "`users`")
		So(QuoteIdentifier("a`b"), ShouldEqual, "`a`b`")
		So(QuoteIdentifiers("id", "name"), ShouldResemble, []string{"`id`", "`name`"})
	})
}

func TestBind(t *testing.T) {
	Convey("测试 Bind 方法", t, func() {
		Convey("按顺序替换占位符", func() {
			s, err := Bind("id = ? AND name = ?", 1, "x'y")
			So(err, ShouldBeNil)
			So(s, ShouldEqual, `id = 1 AND name = 'x\'y'`)
		})

		Convey("IN 列表", func() {
			s, err := Bind("id IN ?", []int{1, 2})
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "id IN (1,2)")
		})

		Convey("引号内的问号不替换", func() {
			s, err := Bind("name = '?' AND `what?` = ? AND note = 'it\\'s ?'", 3)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "name = '?' AND `what?` = 3 AND note = 'it\\'s ?'")
		})

		Convey("没有占位符也没有参数", func() {
			s, err := Bind("deleted = 0")
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "deleted = 0")
		})

		Convey("参数数量不匹配", func() {
			_, err := Bind("id = ? AND name = ?", 1)
			So(errors.Cause(err), ShouldEqual, ErrBindCount)

			_, err = Bind("id = ?", 1, 2)
			So(errors.Cause(err), ShouldEqual, ErrBindCount)
		})

		Convey("参数编码失败", func() {
			_, err := Bind("id = ?", map[int]int{})
			So(err, ShouldNotBeNil)
		})
	})
}
