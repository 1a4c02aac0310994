package finder

import (
	"fmt"
	"strings"

	"github.com/hatlonely/rdbx/rdb/literal"
	"github.com/hatlonely/rdbx/rdb/query"
	"github.com/pkg/errors"
)

// FoundRowsSQL 读取上一条 SQL_CALC_FOUND_ROWS 查询的总行数
// 必须在同一个会话上紧跟分页查询执行
const FoundRowsSQL = "SELECT FOUND_ROWS()"

var (
	ErrNoTable   = errors.New("no table or from expression")
	ErrNoColumns = errors.New("no columns to select")
)

// QuerySpec 一次查找的显式参数
type QuerySpec struct {
	Table      string
	PrimaryKey string // 默认 id，joined 模式构造 limited ids 子查询时使用
	Select     string
	From       string
	Joins      []string
	Conditions string // 带 ? 占位符的条件片段，按顺序绑定 Args
	Args       []any
	Group      string
	Having     string
	Order      string
	Limit      int // <= 0 表示不限制
	Offset     int
	Lock       bool
	LockClause string // 非空时替代 FOR UPDATE
	IndexHint  []string
	CountRows  bool
}

// Where 生成条件片段和参数，可直接赋给 QuerySpec.Conditions 和 Args
func Where(q query.Query) (string, []any, error) {
	fragment, args, err := q.ToSQL()
	if err != nil {
		return "", nil, errors.WithMessagef(err, "%s query", q.Type())
	}
	return fragment, args, nil
}

// Compile 生成普通模式（无预加载关联）的查询语句
func Compile(spec *QuerySpec, scope *Scope) (string, error) {
	if scope == nil {
		scope = &Scope{}
	}
	b, err := newBuilder(spec, scope)
	if err != nil {
		return "", err
	}

	b.selectClause(firstNonEmpty(spec.Select, scope.Select, b.defaultSelect()))
	b.fromClause()
	b.add(b.joins)
	if err := b.whereClause(""); err != nil {
		return "", err
	}
	b.groupClause()
	b.orderClause()
	b.limitClause()
	b.lockClause()
	return b.String(), nil
}

// CompileSelectColumns 只查询指定列，忽略 select/from/group/lock
func CompileSelectColumns(spec *QuerySpec, scope *Scope, columns ...string) (string, error) {
	if len(columns) == 0 {
		return "", ErrNoColumns
	}
	if spec.Table == "" {
		return "", ErrNoTable
	}
	if scope == nil {
		scope = &Scope{}
	}
	b, err := newBuilder(spec, scope)
	if err != nil {
		return "", err
	}

	b.add("SELECT", strings.Join(literal.QuoteIdentifiers(columns...), ","), "FROM", literal.QuoteIdentifier(spec.Table))
	b.add(b.joins)
	if err := b.whereClause(""); err != nil {
		return "", err
	}
	b.orderClause()
	b.limitClause()
	return b.String(), nil
}

type builder struct {
	spec  *QuerySpec
	scope *Scope
	parts []string
	joins string
}

func newBuilder(spec *QuerySpec, scope *Scope) (*builder, error) {
	if spec == nil {
		return nil, errors.New("nil query spec")
	}
	if spec.Table == "" && spec.From == "" && scope.From == "" {
		return nil, ErrNoTable
	}
	return &builder{spec: spec, scope: scope, joins: mergeJoins(scope.Joins, spec.Joins)}, nil
}

func (b *builder) add(parts ...string) {
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.parts = append(b.parts, part)
		}
	}
}

func (b *builder) String() string {
	return strings.Join(b.parts, " ")
}

func (b *builder) defaultSelect() string {
	if b.joins != "" && b.spec.Table != "" {
		return literal.QuoteIdentifier(b.spec.Table) + ".*"
	}
	return "*"
}

func (b *builder) selectClause(selectExpr string) {
	b.add("SELECT")
	if b.spec.CountRows {
		b.add("SQL_CALC_FOUND_ROWS")
	}
	b.add(selectExpr)
}

func (b *builder) fromClause() {
	b.add("FROM", firstNonEmpty(b.scope.From, b.spec.From, literal.QuoteIdentifier(b.spec.Table)))
	b.add(b.indexHint())
}

// 作用域的索引提示优先，多个提示和逗号分隔的提示都展开成一个列表
func (b *builder) indexHint() string {
	hints := b.scope.IndexHint
	if len(hints) == 0 {
		hints = b.spec.IndexHint
	}
	var names []string
	for _, hint := range hints {
		for _, name := range strings.Split(hint, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, literal.QuoteIdentifier(name))
			}
		}
	}
	if len(names) == 0 {
		return ""
	}
	return "FORCE INDEX (" + strings.Join(names, ",") + ")"
}

func (b *builder) conditions() ([]string, error) {
	var segments []string
	for _, c := range []struct {
		fragment string
		args     []any
	}{
		{b.spec.Conditions, b.spec.Args},
		{b.scope.Conditions, b.scope.Args},
	} {
		if strings.TrimSpace(c.fragment) == "" {
			continue
		}
		bound, err := literal.Bind(c.fragment, c.args...)
		if err != nil {
			return nil, errors.WithMessage(err, "bind conditions")
		}
		segments = append(segments, "("+bound+")")
	}
	return segments, nil
}

// extra 为 joined 模式追加的 limited ids 条件
func (b *builder) whereClause(extra string) error {
	segments, err := b.conditions()
	if err != nil {
		return err
	}
	if extra != "" {
		segments = append(segments, extra)
	}
	if len(segments) > 0 {
		b.add("WHERE " + strings.Join(segments, " AND "))
	}
	return nil
}

func (b *builder) groupClause() {
	group, having := b.spec.Group, b.spec.Having
	if group == "" {
		group, having = b.scope.Group, b.scope.Having
	}
	if group == "" {
		return
	}
	b.add("GROUP BY " + group)
	if having != "" {
		b.add("HAVING " + having)
	}
}

func (b *builder) orderClause() {
	if order := MergeOrder(b.spec.Order, b.scope.Order); order != "" {
		b.add("ORDER BY " + order)
	}
}

func (b *builder) limitOffset() (int, int) {
	limit, offset := b.spec.Limit, b.spec.Offset
	if limit <= 0 {
		limit = b.scope.Limit
	}
	if offset <= 0 {
		offset = b.scope.Offset
	}
	return limit, offset
}

func (b *builder) limitClause() {
	b.add(limitClause(b.limitOffset()))
}

func limitClause(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	if offset > 0 {
		return fmt.Sprintf("LIMIT %d, %d", offset, limit)
	}
	return fmt.Sprintf("LIMIT %d", limit)
}

func (b *builder) lockClause() {
	switch {
	case b.spec.LockClause != "":
		b.add(b.spec.LockClause)
	case b.spec.Lock:
		b.add("FOR UPDATE")
	case b.scope.LockClause != "":
		b.add(b.scope.LockClause)
	case b.scope.Lock:
		b.add("FOR UPDATE")
	}
}

// 作用域的 joins 在前，去重后用空格连接
func mergeJoins(groups ...[]string) string {
	seen := map[string]bool{}
	var joins []string
	for _, group := range groups {
		for _, join := range group {
			join = strings.TrimSpace(join)
			if join == "" || seen[join] {
				continue
			}
			seen[join] = true
			joins = append(joins, join)
		}
	}
	return strings.Join(joins, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
