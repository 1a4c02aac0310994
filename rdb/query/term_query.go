package query

import (
	"reflect"

	"github.com/pkg/errors"
)

// TermQuery 精确匹配，Value 为 nil 时生成 IS NULL
type TermQuery struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

func (q *TermQuery) Type() QueryType {
	return QueryTypeTerm
}

func (q *TermQuery) ToSQL() (string, []any, error) {
	field, err := quoteField(q.Field)
	if err != nil {
		return "", nil, err
	}
	if q.Value == nil {
		return field + " IS NULL", nil, nil
	}
	return field + " = ?", []any{q.Value}, nil
}

// TermsQuery 多值匹配，生成 IN 列表
type TermsQuery struct {
	Field  string `json:"field"`
	Values any    `json:"values"`
}

func (q *TermsQuery) Type() QueryType {
	return QueryTypeTerms
}

func (q *TermsQuery) ToSQL() (string, []any, error) {
	field, err := quoteField(q.Field)
	if err != nil {
		return "", nil, err
	}
	rv := reflect.ValueOf(q.Values)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return "", nil, errors.Errorf("terms values of field [%s] must be a slice, got %T", q.Field, q.Values)
	}
	// IN () 不是合法语法，空集合恒为假
	if rv.Len() == 0 {
		return "1=0", nil, nil
	}
	return field + " IN ?", []any{q.Values}, nil
}
