package bulk

import (
	"reflect"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Field 一列的值
type Field struct {
	Column string
	Value  any
}

// Row 有序的列值，列顺序即插入语句的列顺序
type Row []Field

// Get 按列名取值，列不存在时返回 false
func (r Row) Get(column string) (any, bool) {
	for _, f := range r {
		if f.Column == column {
			return f.Value, true
		}
	}
	return nil, false
}

// Columns 列名列表
func (r Row) Columns() []string {
	columns := make([]string, len(r))
	for i, f := range r {
		columns[i] = f.Column
	}
	return columns
}

// RowFromMap map 没有顺序，按列名排序
func RowFromMap(m map[string]any) Row {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	row := make(Row, 0, len(keys))
	for _, k := range keys {
		row = append(row, Field{Column: k, Value: m[k]})
	}
	return row
}

// RowFromStruct 按结构体字段顺序生成一行
//
// 列名取 rdb tag，没有 tag 时使用字段名，tag 为 "-" 的字段和未导出字段跳过
func RowFromStruct(v any) (Row, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, errors.Errorf("RowFromStruct expects a struct, got %T", v)
	}

	rt := rv.Type()
	row := make(Row, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := strings.Split(field.Tag.Get("rdb"), ",")[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		row = append(row, Field{Column: name, Value: rv.Field(i).Interface()})
	}
	return row, nil
}
