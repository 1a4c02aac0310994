package literal

import (
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var ErrBindCount = errors.New("wrong number of bind variables")

// UnsupportedValueError 值类型没有对应的字面量编码规则
type UnsupportedValueError struct {
	Type reflect.Type
}

func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("unsupported value type %v", e.Type)
}

// Date 只包含日期部分的值，编码为 'YYYY-MM-DD'
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate 截取 time.Time 的日期部分
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

var (
	dateType   = reflect.TypeOf(Date{})
	timeType   = reflect.TypeOf(time.Time{})
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

// Encode 将值编码为 MySQL 字面量
//
// nil 编码为 NULL，字符串加单引号并转义反斜杠和单引号，数值原样输出，
// 日期输出 'YYYY-MM-DD'，时间输出 'YYYY-MM-DD HH:MM:SS'（小时用空格补齐两位），
// 切片递归编码后用括号包裹，可用于 IN 列表和批量插入的值组
func Encode(v any) (string, error) {
	if v == nil {
		return "NULL", nil
	}
	return encodeValue(reflect.ValueOf(v))
}

// MustEncode 与 Encode 相同，编码失败时 panic
func MustEncode(v any) string {
	s, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return s
}

func encodeValue(rv reflect.Value) (string, error) {
	if !rv.IsValid() {
		return "NULL", nil
	}

	switch rv.Type() {
	case dateType:
		return "'" + rv.Interface().(Date).String() + "'", nil
	case timeType:
		return encodeTime(rv.Interface().(time.Time)), nil
	}

	if rv.Type().Implements(valuerType) {
		if rv.Kind() == reflect.Ptr && rv.IsNil() {
			return "NULL", nil
		}
		value, err := rv.Interface().(driver.Valuer).Value()
		if err != nil {
			return "", errors.Wrap(err, "driver.Valuer.Value failed")
		}
		return Encode(value)
	}

	if rv.Kind() == reflect.Struct || rv.Kind() == reflect.Array {
		if stringer, ok := rv.Interface().(fmt.Stringer); ok {
			return quoteString(stringer.String()), nil
		}
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "NULL", nil
		}
		return encodeValue(rv.Elem())
	case reflect.String:
		return quoteString(rv.String()), nil
	case reflect.Bool:
		if rv.Bool() {
			return "1", nil
		}
		return "0", nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		// NaN 和 Inf 没有对应的 SQL 字面量
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", &UnsupportedValueError{Type: rv.Type()}
		}
		return strconv.FormatFloat(f, 'f', -1, rv.Type().Bits()), nil
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			if rv.Kind() == reflect.Slice && rv.IsNil() {
				return "NULL", nil
			}
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return quoteString(string(b)), nil
		}
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			part, err := encodeValue(rv.Index(i))
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		return "(" + strings.Join(parts, ",") + ")", nil
	}

	return "", &UnsupportedValueError{Type: rv.Type()}
}

// 先加倍反斜杠再转义单引号，顺序不能颠倒
func quoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// strftime("%Y-%m-%d %k:%M:%S")
func encodeTime(t time.Time) string {
	return fmt.Sprintf("'%04d-%02d-%02d %2d:%02d:%02d'",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// IsTruthy 真值判断，只对 bool、nil 和整数有定义
// 整数 0 为假，其他整数为真
func IsTruthy(v any) (bool, error) {
	if v == nil {
		return false, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0, nil
	case reflect.Ptr:
		if rv.IsNil() {
			return false, nil
		}
		return IsTruthy(rv.Elem().Interface())
	}
	return false, &UnsupportedValueError{Type: rv.Type()}
}
