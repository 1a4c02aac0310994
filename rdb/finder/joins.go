package finder

import (
	"fmt"
	"strings"

	"github.com/hatlonely/rdbx/rdb/literal"
	"github.com/pkg/errors"
)

// LimitedIDsBuilder 生成限制主键范围的条件片段，替代 joined 查询外层的 LIMIT
type LimitedIDsBuilder func(spec *QuerySpec, scope *Scope, joins *JoinSpec) (string, error)

// JoinSpec 预加载关联时由外部 join 构造器提供的片段
type JoinSpec struct {
	ColumnAliases    string // 消除同名列歧义的 select 列表
	AssociationJoins string
	Limitable        bool // 关联都是一对一时可以直接 LIMIT
	LimitedIDs       LimitedIDsBuilder
}

// CompileWithJoins 生成 joined 模式（存在预加载关联）的查询语句
//
// 需要分页且关联不能直接 LIMIT 时，把 limited ids 条件追加到 WHERE，外层不再 LIMIT
func CompileWithJoins(spec *QuerySpec, scope *Scope, joins *JoinSpec) (string, error) {
	if joins == nil {
		return Compile(spec, scope)
	}
	if scope == nil {
		scope = &Scope{}
	}
	if strings.TrimSpace(joins.ColumnAliases) == "" {
		return "", errors.New("empty column aliases")
	}
	b, err := newBuilder(spec, scope)
	if err != nil {
		return "", err
	}

	limit, _ := b.limitOffset()
	limited := ""
	if limit > 0 && !joins.Limitable {
		build := joins.LimitedIDs
		if build == nil {
			build = DefaultLimitedIDs
		}
		if limited, err = build(spec, scope, joins); err != nil {
			return "", errors.WithMessage(err, "build limited ids condition")
		}
	}

	b.selectClause(joins.ColumnAliases)
	b.fromClause()
	b.add(joins.AssociationJoins, b.joins)
	if err := b.whereClause(limited); err != nil {
		return "", err
	}
	b.groupClause()
	b.orderClause()
	if joins.Limitable {
		b.limitClause()
	}
	b.lockClause()
	return b.String(), nil
}

// DefaultLimitedIDs 用派生表子查询按主键限制范围
//
//	`t`.`id` IN (SELECT `id` FROM (SELECT DISTINCT `t`.`id` FROM ... LIMIT n) AS limited_ids)
//
// 派生表绕开 MySQL 不支持 IN 子查询直接 LIMIT 的限制。
// DISTINCT 要求排序表达式出现在 select 列表中，主键以外的排序表达式以
// limited_order_N 别名加入内层 select，外层只取主键
func DefaultLimitedIDs(spec *QuerySpec, scope *Scope, joins *JoinSpec) (string, error) {
	if spec.Table == "" {
		return "", ErrNoTable
	}
	if scope == nil {
		scope = &Scope{}
	}
	pk := spec.PrimaryKey
	if pk == "" {
		pk = "id"
	}
	qualified := literal.QuoteIdentifier(spec.Table) + "." + literal.QuoteIdentifier(pk)

	b, err := newBuilder(spec, scope)
	if err != nil {
		return "", err
	}
	columns := []string{qualified}
	for i, expr := range orderExpressions(MergeOrder(spec.Order, scope.Order), spec.Table, pk) {
		columns = append(columns, fmt.Sprintf("%s AS limited_order_%d", expr, i))
	}
	b.add("SELECT DISTINCT", strings.Join(columns, ", "))
	b.fromClause()
	if joins != nil {
		b.add(joins.AssociationJoins)
	}
	b.add(b.joins)
	if err := b.whereClause(""); err != nil {
		return "", err
	}
	b.orderClause()
	b.limitClause()

	return qualified + " IN (SELECT " + literal.QuoteIdentifier(pk) + " FROM (" + b.String() + ") AS limited_ids)", nil
}

// orderExpressions 去掉排序方向后的排序表达式，跳过主键本身
func orderExpressions(order string, table string, pk string) []string {
	var exprs []string
	seen := map[string]bool{}
	for _, token := range strings.Split(order, ",") {
		fields := strings.Fields(token)
		if n := len(fields); n > 1 && (strings.EqualFold(fields[n-1], "asc") || strings.EqualFold(fields[n-1], "desc")) {
			fields = fields[:n-1]
		}
		expr := strings.Join(fields, " ")
		if expr == "" || seen[expr] {
			continue
		}
		seen[expr] = true
		name := strings.ReplaceAll(expr, "`", "")
		if name == pk || name == table+"."+pk {
			continue
		}
		exprs = append(exprs, expr)
	}
	return exprs
}
