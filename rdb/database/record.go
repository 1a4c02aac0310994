package database

import (
	"database/sql"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Record 查询结果的一行，保留列顺序
type Record struct {
	columns []string
	values  []any
}

func NewRecord(columns []string, values []any) *Record {
	return &Record{columns: columns, values: values}
}

func (r *Record) Columns() []string {
	return r.columns
}

func (r *Record) Values() []any {
	return r.values
}

func (r *Record) Get(column string) (any, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return nil, false
}

func (r *Record) Fields() map[string]any {
	fields := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		fields[c] = r.values[i]
	}
	return fields
}

// Scan 按 rdb tag 把列映射到结构体字段，没有 tag 时用字段名
func (r *Record) Scan(dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return errors.Errorf("dest must be a pointer to struct, got %T", dest)
	}
	rv = rv.Elem()
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag := field.Tag.Get("rdb"); tag != "" {
			name = strings.Split(tag, ",")[0]
		}
		if name == "-" {
			continue
		}
		value, ok := r.Get(name)
		if !ok || value == nil {
			continue
		}
		if err := setField(rv.Field(i), value); err != nil {
			return errors.WithMessagef(err, "scan column %s", name)
		}
	}
	return nil
}

var sqliteTimeFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02",
}

func setField(field reflect.Value, value any) error {
	if field.Kind() == reflect.Ptr {
		ptr := reflect.New(field.Type().Elem())
		if err := setField(ptr.Elem(), value); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	}

	if scanner, ok := field.Addr().Interface().(sql.Scanner); ok {
		return scanner.Scan(value)
	}

	// mysql 驱动返回的文本列是 []byte，record 中已转换为 string
	if s, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
			return nil
		case reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return errors.Wrapf(err, "parse bool [%s]", s)
			}
			field.SetBool(b)
			return nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "parse int [%s]", s)
			}
			field.SetInt(n)
			return nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			n, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "parse uint [%s]", s)
			}
			field.SetUint(n)
			return nil
		case reflect.Float32, reflect.Float64:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return errors.Wrapf(err, "parse float [%s]", s)
			}
			field.SetFloat(f)
			return nil
		}
		if field.Type() == reflect.TypeOf(time.Time{}) {
			for _, format := range sqliteTimeFormats {
				if t, err := time.Parse(format, s); err == nil {
					field.Set(reflect.ValueOf(t))
					return nil
				}
			}
			return errors.Errorf("cannot parse time [%s]", s)
		}
	}

	vv := reflect.ValueOf(value)
	if field.Kind() == reflect.Bool {
		switch vv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			field.SetBool(vv.Int() != 0)
			return nil
		}
	}
	if vv.Type().AssignableTo(field.Type()) {
		field.Set(vv)
		return nil
	}
	if vv.Type().ConvertibleTo(field.Type()) && vv.Kind() != reflect.String {
		field.Set(vv.Convert(field.Type()))
		return nil
	}
	return errors.Errorf("cannot convert %T to %v", value, field.Type())
}

func scanRecord(rows *sql.Rows, columns []string) (*Record, error) {
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, errors.Wrap(err, "rows.Scan failed")
	}
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return NewRecord(columns, values), nil
}

func scanRecords(rows *sql.Rows) ([]*Record, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "rows.Columns failed")
	}
	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows, columns)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows.Next failed")
	}
	return records, nil
}
