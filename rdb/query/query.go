package query

import (
	"strings"

	"github.com/hatlonely/rdbx/rdb/literal"
	"github.com/pkg/errors"
)

// QueryType 查询类型
type QueryType string

const (
	QueryTypeBool     QueryType = "bool"
	QueryTypeTerm     QueryType = "term"
	QueryTypeTerms    QueryType = "terms"
	QueryTypeMatch    QueryType = "match"
	QueryTypeRange    QueryType = "range"
	QueryTypeExists   QueryType = "exists"
	QueryTypeWildcard QueryType = "wildcard"
	QueryTypePrefix   QueryType = "prefix"
	QueryTypeRegexp   QueryType = "regexp"
)

// Query 条件节点，生成带 ? 占位符的 WHERE 片段和对应参数
type Query interface {
	Type() QueryType
	ToSQL() (string, []any, error)
}

var ErrEmptyField = errors.New("empty field")

// 字段名按 . 分段加反引号，users.name => `users`.`name`
func quoteField(field string) (string, error) {
	if field == "" {
		return "", ErrEmptyField
	}
	parts := strings.Split(field, ".")
	return strings.Join(literal.QuoteIdentifiers(parts...), "."), nil
}

// Compile 生成条件并把参数直接绑定为字面量
func Compile(q Query) (string, error) {
	fragment, args, err := q.ToSQL()
	if err != nil {
		return "", errors.WithMessagef(err, "%s query", q.Type())
	}
	return literal.Bind(fragment, args...)
}
