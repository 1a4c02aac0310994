package finder

import (
	"strings"
)

// MergeOrder 合并显式排序和作用域排序
//
// 显式排序中首个单词与作用域排序中任一项首个单词相同的项被丢弃，
// 作用域排序总是保留在后面，空项和重复项去掉后用 ", " 连接。
// 对同一个作用域重复合并结果不变
func MergeOrder(order string, scopeOrder string) string {
	scopeTokens := strings.Split(scopeOrder, ",")
	scopeColumns := map[string]bool{}
	for _, token := range scopeTokens {
		if fields := strings.Fields(token); len(fields) > 0 {
			scopeColumns[fields[0]] = true
		}
	}

	var segments []string
	for _, token := range strings.Split(order, ",") {
		fields := strings.Fields(token)
		if len(fields) == 0 || scopeColumns[fields[0]] {
			continue
		}
		segments = append(segments, strings.Join(fields, " "))
	}
	for _, token := range scopeTokens {
		segments = append(segments, strings.TrimSpace(token))
	}

	seen := map[string]bool{}
	merged := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment == "" || seen[segment] {
			continue
		}
		seen[segment] = true
		merged = append(merged, segment)
	}
	return strings.Join(merged, ", ")
}
