package bulk

import (
	"fmt"
	"strings"

	"github.com/hatlonely/rdbx/rdb/literal"
	"github.com/pkg/errors"
)

// CompileInsert 生成多行插入语句
//
// nil 行先被去掉，没有剩余行时返回空字符串，调用方应跳过执行。
// 列名取第一行的列及其顺序，其余行按这些列取值，缺失的列写 NULL。
// 所有行应当有相同的列，这里不做校验
func CompileInsert(table string, rows []Row) (string, error) {
	rows = compact(rows)
	if len(rows) == 0 {
		return "", nil
	}

	columns := rows[0].Columns()
	values := make([]string, 0, len(rows))
	for i, row := range rows {
		encoded := make([]string, len(columns))
		for j, column := range columns {
			v, _ := row.Get(column)
			s, err := literal.Encode(v)
			if err != nil {
				return "", errors.WithMessagef(err, "row %d column [%s]", i, column)
			}
			encoded[j] = s
		}
		values = append(values, "("+strings.Join(encoded, ",")+")")
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		table,
		strings.Join(literal.QuoteIdentifiers(columns...), ","),
		strings.Join(values, ","),
	), nil
}

// ResetStatements 清空表并重置自增计数
func ResetStatements(table string) []string {
	return []string{
		"DELETE FROM " + table,
		"ALTER TABLE " + table + " AUTO_INCREMENT=1",
	}
}

func compact(rows []Row) []Row {
	res := make([]Row, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			res = append(res, row)
		}
	}
	return res
}
