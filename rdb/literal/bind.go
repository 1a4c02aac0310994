package literal

import (
	"strings"

	"github.com/pkg/errors"
)

// Bind 把片段中的 ? 占位符依次替换为参数的字面量
// 引号（单引号、双引号、反引号）内的 ? 不会被替换
func Bind(fragment string, args ...any) (string, error) {
	var buf strings.Builder
	var quote byte
	n := 0

	for i := 0; i < len(fragment); i++ {
		c := fragment[i]
		switch {
		case quote != 0:
			buf.WriteByte(c)
			if c == '\\' && quote != '`' && i+1 < len(fragment) {
				i++
				buf.WriteByte(fragment[i])
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
			buf.WriteByte(c)
		case c == '?':
			if n >= len(args) {
				return "", errors.Wrapf(ErrBindCount, "%d for %d in: %s", len(args), countPlaceholders(fragment), fragment)
			}
			value, err := Encode(args[n])
			if err != nil {
				return "", errors.WithMessagef(err, "encode bind variable %d", n)
			}
			buf.WriteString(value)
			n++
		default:
			buf.WriteByte(c)
		}
	}

	if n != len(args) {
		return "", errors.Wrapf(ErrBindCount, "%d for %d in: %s", len(args), n, fragment)
	}
	return buf.String(), nil
}

func countPlaceholders(fragment string) int {
	var quote byte
	n := 0
	for i := 0; i < len(fragment); i++ {
		c := fragment[i]
		switch {
		case quote != 0:
			if c == '\\' && quote != '`' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '?':
			n++
		}
	}
	return n
}
