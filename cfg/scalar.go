package cfg

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

var timeFormats = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"15:04:05",
}

// setString 把字符串解析为 rv 的类型，默认值和文本格式（ini、命令行）的配置都走这里
func setString(rv reflect.Value, s string) error {
	switch rv.Type() {
	case durationType:
		d, err := time.ParseDuration(s)
		if err != nil {
			n, numErr := strconv.ParseInt(s, 10, 64)
			if numErr != nil {
				return errors.Wrapf(err, "invalid duration [%s]", s)
			}
			d = time.Duration(n)
		}
		rv.SetInt(int64(d))
		return nil
	case timeType:
		for _, format := range timeFormats {
			if t, err := time.Parse(format, s); err == nil {
				rv.Set(reflect.ValueOf(t))
				return nil
			}
		}
		if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
			rv.Set(reflect.ValueOf(time.Unix(ts, 0)))
			return nil
		}
		return errors.Errorf("invalid time [%s]", s)
	}

	switch rv.Kind() {
	case reflect.String:
		rv.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return errors.Wrapf(err, "invalid bool [%s]", s)
		}
		rv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 0, rv.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid int [%s]", s)
		}
		rv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 0, rv.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid uint [%s]", s)
		}
		rv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, rv.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid float [%s]", s)
		}
		rv.SetFloat(f)
	case reflect.Slice:
		// 逗号分隔
		if s == "" {
			rv.Set(reflect.MakeSlice(rv.Type(), 0, 0))
			return nil
		}
		parts := strings.Split(s, ",")
		slice := reflect.MakeSlice(rv.Type(), len(parts), len(parts))
		for i, part := range parts {
			if err := setString(slice.Index(i), strings.TrimSpace(part)); err != nil {
				return errors.WithMessagef(err, "element %d", i)
			}
		}
		rv.Set(slice)
	case reflect.Ptr:
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return setString(rv.Elem(), s)
	case reflect.Interface:
		if rv.Type().NumMethod() != 0 {
			return errors.Errorf("cannot set string to %v", rv.Type())
		}
		rv.Set(reflect.ValueOf(s))
	default:
		return errors.Errorf("cannot set string to %v", rv.Type())
	}
	return nil
}
