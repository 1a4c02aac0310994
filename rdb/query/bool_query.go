package query

import (
	"fmt"
	"strings"
)

// BoolQuery 布尔组合
//
// Must 和 Filter 全部满足，MustNot 全部不满足，Should 至少满足 MinShouldMatch 个（默认 1 个）
type BoolQuery struct {
	Must           []Query `json:"must,omitempty"`
	Should         []Query `json:"should,omitempty"`
	MustNot        []Query `json:"must_not,omitempty"`
	Filter         []Query `json:"filter,omitempty"`
	MinShouldMatch *int    `json:"minimum_should_match,omitempty"`
}

func (q *BoolQuery) Type() QueryType {
	return QueryTypeBool
}

func (q *BoolQuery) ToSQL() (string, []any, error) {
	var conditions []string
	var args []any

	collect := func(queries []Query, wrap func(string) string) ([]string, error) {
		fragments := make([]string, 0, len(queries))
		for _, query := range queries {
			fragment, queryArgs, err := query.ToSQL()
			if err != nil {
				return nil, err
			}
			fragments = append(fragments, wrap(fragment))
			args = append(args, queryArgs...)
		}
		return fragments, nil
	}
	paren := func(s string) string { return "(" + s + ")" }

	for _, queries := range [][]Query{q.Must, q.Filter} {
		fragments, err := collect(queries, paren)
		if err != nil {
			return "", nil, err
		}
		if len(fragments) > 0 {
			conditions = append(conditions, "("+strings.Join(fragments, " AND ")+")")
		}
	}

	shoulds, err := collect(q.Should, paren)
	if err != nil {
		return "", nil, err
	}
	if len(shoulds) > 0 {
		if q.MinShouldMatch != nil && *q.MinShouldMatch != 1 {
			cases := make([]string, len(shoulds))
			for i, fragment := range shoulds {
				cases[i] = fmt.Sprintf("CASE WHEN %s THEN 1 ELSE 0 END", fragment)
			}
			conditions = append(conditions, fmt.Sprintf("(%s) >= %d", strings.Join(cases, " + "), *q.MinShouldMatch))
		} else {
			conditions = append(conditions, "("+strings.Join(shoulds, " OR ")+")")
		}
	}

	mustNots, err := collect(q.MustNot, func(s string) string { return "NOT (" + s + ")" })
	if err != nil {
		return "", nil, err
	}
	if len(mustNots) > 0 {
		conditions = append(conditions, "("+strings.Join(mustNots, " AND ")+")")
	}

	if len(conditions) == 0 {
		return "1=1", nil, nil
	}
	return strings.Join(conditions, " AND "), args, nil
}
