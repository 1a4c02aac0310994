package query

import (
	"fmt"
	"strings"
)

// LIKE 模式中的 % 和 _ 需要转义才能按字面匹配
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// MatchQuery 子串匹配，LIKE '%value%'
type MatchQuery struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

func (q *MatchQuery) Type() QueryType {
	return QueryTypeMatch
}

func (q *MatchQuery) ToSQL() (string, []any, error) {
	field, err := quoteField(q.Field)
	if err != nil {
		return "", nil, err
	}
	return field + " LIKE ?", []any{"%" + likeEscaper.Replace(fmt.Sprint(q.Value)) + "%"}, nil
}

// PrefixQuery 前缀匹配，LIKE 'value%'
type PrefixQuery struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (q *PrefixQuery) Type() QueryType {
	return QueryTypePrefix
}

func (q *PrefixQuery) ToSQL() (string, []any, error) {
	field, err := quoteField(q.Field)
	if err != nil {
		return "", nil, err
	}
	return field + " LIKE ?", []any{likeEscaper.Replace(q.Value) + "%"}, nil
}

// WildcardQuery 通配符匹配，* 匹配任意个字符，? 匹配单个字符
type WildcardQuery struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (q *WildcardQuery) Type() QueryType {
	return QueryTypeWildcard
}

func (q *WildcardQuery) ToSQL() (string, []any, error) {
	field, err := quoteField(q.Field)
	if err != nil {
		return "", nil, err
	}
	pattern := likeEscaper.Replace(q.Value)
	pattern = strings.NewReplacer("*", "%", "?", "_").Replace(pattern)
	return field + " LIKE ?", []any{pattern}, nil
}

// RegexpQuery 正则匹配
type RegexpQuery struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (q *RegexpQuery) Type() QueryType {
	return QueryTypeRegexp
}

func (q *RegexpQuery) ToSQL() (string, []any, error) {
	field, err := quoteField(q.Field)
	if err != nil {
		return "", nil, err
	}
	return field + " REGEXP ?", []any{q.Value}, nil
}
