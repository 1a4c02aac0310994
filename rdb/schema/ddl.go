package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hatlonely/rdbx/rdb/literal"
)

func sortedKeys(def map[string]string) []string {
	keys := make([]string, 0, len(def))
	for k := range def {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Classify 根据 show create 结果判断关系类型
//
// 结果只有两个键，如 {"Table": "orders", "Create Table": "..."}，
// 大写 C 排在前面，最小的键以 "Create " 开头，后一个单词决定是表还是视图
func Classify(name string, def map[string]string) (Kind, error) {
	keys := sortedKeys(def)
	if len(keys) == 0 || !strings.HasPrefix(keys[0], "Create ") {
		return "", &ClassifyError{Relation: name, Keys: keys}
	}
	switch strings.TrimPrefix(keys[0], "Create ") {
	case "Table":
		return KindTable, nil
	case "View":
		return KindView, nil
	}
	return "", &ClassifyError{Relation: name, Keys: keys}
}

// Definition 取出 show create 结果中的 DDL 文本
func Definition(name string, def map[string]string) (string, error) {
	if _, err := Classify(name, def); err != nil {
		return "", err
	}
	return def[sortedKeys(def)[0]], nil
}

var (
	reLineBreak     = regexp.MustCompile(`\r?\n`)
	reCloseParen    = regexp.MustCompile(`^\s*\)\s*`)
	reAutoIncrement = regexp.MustCompile(` AUTO_INCREMENT=\d+`)
	reDefiner       = regexp.MustCompile(` DEFINER=\S+`)
	reSQLSecurity   = regexp.MustCompile(` SQL SECURITY DEFINER`)
)

// TableOptions 取建表语句最后一行的表选项，去掉自增计数
// ") ENGINE=InnoDB AUTO_INCREMENT=12 DEFAULT CHARSET=utf8" => "ENGINE=InnoDB DEFAULT CHARSET=utf8"
func TableOptions(ddl string) string {
	lines := reLineBreak.Split(strings.TrimRight(ddl, "\r\n"), -1)
	last := reCloseParen.ReplaceAllString(lines[len(lines)-1], "")
	if loc := reAutoIncrement.FindStringIndex(last); loc != nil {
		last = last[:loc[0]] + last[loc[1]:]
	}
	return last
}

// StripViewDefiner 去掉视图定义中的创建者和安全上下文
func StripViewDefiner(ddl string) string {
	ddl = reDefiner.ReplaceAllString(ddl, "")
	return reSQLSecurity.ReplaceAllString(ddl, "")
}

// IndexName 约定的索引名 index_<table>_on_<c1>_and_<c2>
func IndexName(table string, columns []string) string {
	return fmt.Sprintf("index_%s_on_%s", table, strings.Join(columns, "_and_"))
}

// FulltextIndexName name 为空时使用约定的索引名，结果总是带全文索引前缀
func FulltextIndexName(table string, columns []string, name string) string {
	if name == "" {
		name = IndexName(table, columns)
	}
	return FulltextPrefix + name
}

func AddFulltextIndexSQL(table string, columns []string, name string) string {
	return fmt.Sprintf("CREATE FULLTEXT INDEX %s ON %s (%s)",
		literal.QuoteIdentifier(FulltextIndexName(table, columns, name)),
		table,
		strings.Join(literal.QuoteIdentifiers(columns...), ", "),
	)
}

func RemoveFulltextIndexSQL(table string, columns []string, name string) string {
	return fmt.Sprintf("DROP INDEX %s ON %s", FulltextIndexName(table, columns, name), table)
}
