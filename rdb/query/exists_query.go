package query

// ExistsQuery 字段非空
type ExistsQuery struct {
	Field string `json:"field"`
}

func (q *ExistsQuery) Type() QueryType {
	return QueryTypeExists
}

func (q *ExistsQuery) ToSQL() (string, []any, error) {
	field, err := quoteField(q.Field)
	if err != nil {
		return "", nil, err
	}
	return field + " IS NOT NULL", nil, nil
}
