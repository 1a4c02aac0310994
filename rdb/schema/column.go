package schema

import (
	"regexp"
	"strconv"
	"strings"
)

// ColumnType 列的逻辑类型
type ColumnType string

const (
	TypeUnknown   ColumnType = ""
	TypeString    ColumnType = "string"
	TypeText      ColumnType = "text"
	TypeInteger   ColumnType = "integer"
	TypeFloat     ColumnType = "float"
	TypeDecimal   ColumnType = "decimal"
	TypeDatetime  ColumnType = "datetime"
	TypeTimestamp ColumnType = "timestamp"
	TypeTime      ColumnType = "time"
	TypeDate      ColumnType = "date"
	TypeBinary    ColumnType = "binary"
	TypeBoolean   ColumnType = "boolean"
)

// Temporal 日期时间类型的默认值需要加引号
func (t ColumnType) Temporal() bool {
	switch t {
	case TypeDatetime, TypeTimestamp, TypeTime, TypeDate:
		return true
	}
	return false
}

// Column 反射得到的列定义，创建后不再修改
type Column struct {
	Name      string
	Type      ColumnType
	SQLType   string
	Limit     *int
	Precision *int
	Scale     *int
	Null      bool
	Default   *string
}

// NewColumn 根据数据库报告的类型字符串推导逻辑类型、长度、精度和小数位
func NewColumn(name string, sqlType string, defaultValue *string, null bool) *Column {
	c := &Column{
		Name:    name,
		SQLType: sqlType,
		Null:    null,
		Default: defaultValue,
	}
	c.Limit = extractLimit(sqlType)
	c.Precision = extractPrecision(sqlType)
	c.Scale = extractScale(sqlType)
	c.Type = simplifiedType(sqlType, c.Scale)
	return c
}

var (
	reParens    = regexp.MustCompile(`\((.*)\)`)
	reLeadInt   = regexp.MustCompile(`^\s*(\d+)`)
	reNumeric   = regexp.MustCompile(`(?i)^(numeric|decimal|number)\((\d+)(,(\d+))?\)`)
	reTypeRules = []struct {
		re  *regexp.Regexp
		typ ColumnType
	}{
		{regexp.MustCompile(`(?i)tinyint\(1\)`), TypeBoolean},
		{regexp.MustCompile(`(?i)enum`), TypeString},
		{regexp.MustCompile(`(?i)int`), TypeInteger},
		{regexp.MustCompile(`(?i)float|double`), TypeFloat},
		{regexp.MustCompile(`(?i)decimal|numeric|number`), TypeDecimal},
		{regexp.MustCompile(`(?i)datetime`), TypeDatetime},
		{regexp.MustCompile(`(?i)timestamp`), TypeTimestamp},
		{regexp.MustCompile(`(?i)time`), TypeTime},
		{regexp.MustCompile(`(?i)date`), TypeDate},
		{regexp.MustCompile(`(?i)clob|text`), TypeText},
		{regexp.MustCompile(`(?i)blob|binary`), TypeBinary},
		{regexp.MustCompile(`(?i)char|string`), TypeString},
		{regexp.MustCompile(`(?i)boolean`), TypeBoolean},
	}
)

// 规则按顺序匹配，tinyint(1) 必须先于 int，datetime/timestamp 必须先于 time/date
func simplifiedType(sqlType string, scale *int) ColumnType {
	for _, rule := range reTypeRules {
		if !rule.re.MatchString(sqlType) {
			continue
		}
		if rule.typ == TypeDecimal && scale != nil && *scale == 0 {
			return TypeInteger
		}
		return rule.typ
	}
	return TypeUnknown
}

func extractLimit(sqlType string) *int {
	lower := strings.ToLower(sqlType)
	if strings.Contains(lower, "blob") || strings.Contains(lower, "text") {
		switch {
		case strings.Contains(lower, "tiny"):
			return intPtr(255)
		case strings.Contains(lower, "medium"):
			return intPtr(16777215)
		case strings.Contains(lower, "long"):
			return intPtr(2147483647)
		}
	}
	m := reParens.FindStringSubmatch(sqlType)
	if m == nil {
		return nil
	}
	n := reLeadInt.FindStringSubmatch(m[1])
	if n == nil {
		return nil
	}
	return atoiPtr(n[1])
}

func extractPrecision(sqlType string) *int {
	m := reNumeric.FindStringSubmatch(sqlType)
	if m == nil {
		return nil
	}
	return atoiPtr(m[2])
}

func extractScale(sqlType string) *int {
	m := reNumeric.FindStringSubmatch(sqlType)
	if m == nil {
		return nil
	}
	if m[4] == "" {
		return intPtr(0)
	}
	return atoiPtr(m[4])
}

func intPtr(i int) *int {
	return &i
}

func atoiPtr(s string) *int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &i
}
