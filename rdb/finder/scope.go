package finder

// Scope 调用方显式传入的默认查询修饰，与 QuerySpec 同名字段按各自规则合并
// 嵌套作用域通过 Stack 叠加，不依赖任何全局状态
type Scope struct {
	Select     string
	From       string
	Joins      []string
	Conditions string
	Args       []any
	Group      string
	Having     string
	Order      string
	IndexHint  []string
	Limit      int
	Offset     int
	Lock       bool
	LockClause string
}

// Stack 在当前作用域之上叠加内层作用域，返回新的作用域
// 内层的非空字段覆盖外层，条件用 AND 合并，joins 拼接
func (s *Scope) Stack(inner *Scope) *Scope {
	if s == nil && inner == nil {
		return nil
	}
	merged := &Scope{}
	if s != nil {
		*merged = *s
		merged.Joins = append([]string(nil), s.Joins...)
		merged.Args = append([]any(nil), s.Args...)
		merged.IndexHint = append([]string(nil), s.IndexHint...)
	}
	if inner == nil {
		return merged
	}

	override := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	override(&merged.Select, inner.Select)
	override(&merged.From, inner.From)
	override(&merged.Group, inner.Group)
	override(&merged.Having, inner.Having)
	override(&merged.Order, inner.Order)
	override(&merged.LockClause, inner.LockClause)

	merged.Joins = append(merged.Joins, inner.Joins...)

	switch {
	case merged.Conditions == "":
		merged.Conditions = inner.Conditions
		merged.Args = append([]any(nil), inner.Args...)
	case inner.Conditions != "":
		merged.Conditions = "(" + merged.Conditions + ") AND (" + inner.Conditions + ")"
		merged.Args = append(merged.Args, inner.Args...)
	}

	if len(inner.IndexHint) > 0 {
		merged.IndexHint = append([]string(nil), inner.IndexHint...)
	}
	if inner.Limit > 0 {
		merged.Limit = inner.Limit
	}
	if inner.Offset > 0 {
		merged.Offset = inner.Offset
	}
	if inner.Lock {
		merged.Lock = true
	}
	return merged
}
