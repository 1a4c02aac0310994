package schema

import (
	"fmt"
	"strings"
)

// UnknownTypeError 列类型在方言类型表中没有对应项，只影响所在表的导出
type UnknownTypeError struct {
	Column  string
	SQLType string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("Unknown type '%s' for column '%s'", e.SQLType, e.Column)
}

// ClassifyError show create 的结果无法判断是表还是视图
type ClassifyError struct {
	Relation string
	Keys     []string
}

func (e *ClassifyError) Error() string {
	return fmt.Sprintf("cannot classify relation '%s' from keys [%s]", e.Relation, strings.Join(e.Keys, ", "))
}

// MetadataError 元数据查询失败
type MetadataError struct {
	Relation string
	Op       string
	Err      error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("%s '%s' failed: %v", e.Op, e.Relation, e.Err)
}

func (e *MetadataError) Unwrap() error {
	return e.Err
}
