package dumper

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hatlonely/rdbx/rdb/schema"
)

// 列选项的固定顺序
var columnKeys = []string{"name", "limit", "precision", "scale", "default", "null"}

var reTrailingComma = regexp.MustCompile(`,\s*$`)

type columnSpec struct {
	typ    string
	values map[string]string
}

func renderTable(buf *bytes.Buffer, table *schema.Table, types schema.Provider) error {
	fmt.Fprintf(buf, "  create_table %s", strconv.Quote(table.Name))
	switch {
	case table.NoID:
		buf.WriteString(", id: false")
	case table.PrimaryKey != schema.DefaultPrimaryKey:
		fmt.Fprintf(buf, ", primary_key: %s", strconv.Quote(table.PrimaryKey))
	}
	fmt.Fprintf(buf, ", options: '%s', force: true do |t|\n", table.Options)

	specs := make([]*columnSpec, 0, len(table.Columns))
	for _, c := range table.Columns {
		info, ok := types.TypeInfo(c.Type)
		if !ok {
			return &schema.UnknownTypeError{Column: c.Name, SQLType: c.SQLType}
		}
		if c.Name == table.PrimaryKey {
			continue
		}
		specs = append(specs, newColumnSpec(c, info))
	}
	renderColumns(buf, specs)

	buf.WriteString("  end\n\n")
	renderIndexes(buf, table.Name, table.Indexes)
	return nil
}

func newColumnSpec(c *schema.Column, info schema.TypeInfo) *columnSpec {
	values := map[string]string{"name": strconv.Quote(c.Name)}
	if c.Limit != nil && c.Type != schema.TypeDecimal && (info.Limit == nil || *info.Limit != *c.Limit) {
		values["limit"] = "limit: " + strconv.Itoa(*c.Limit)
	}
	if c.Precision != nil {
		values["precision"] = "precision: " + strconv.Itoa(*c.Precision)
	}
	if c.Scale != nil {
		values["scale"] = "scale: " + strconv.Itoa(*c.Scale)
	}
	if c.Default != nil {
		values["default"] = "default: " + formatDefault(c)
	}
	if !c.Null {
		values["null"] = "null: false"
	}
	return &columnSpec{typ: string(c.Type), values: values}
}

// 每个选项按所有列中最长的值对齐，缺失的选项用等宽空白填充
func renderColumns(buf *bytes.Buffer, specs []*columnSpec) {
	var keys []string
	var widths []int
	for _, key := range columnKeys {
		width := 0
		for _, spec := range specs {
			if v, ok := spec.values[key]; ok && utf8.RuneCountInString(v)+2 > width {
				width = utf8.RuneCountInString(v) + 2
			}
		}
		if width > 0 {
			keys = append(keys, key)
			widths = append(widths, width)
		}
	}

	typeWidth := 0
	for _, spec := range specs {
		if n := utf8.RuneCountInString(spec.typ); n > typeWidth {
			typeWidth = n
		}
	}

	for _, spec := range specs {
		var line strings.Builder
		fmt.Fprintf(&line, "    t.%-*s ", typeWidth, spec.typ)
		for i, key := range keys {
			if v, ok := spec.values[key]; ok {
				fmt.Fprintf(&line, "%-*s", widths[i], v+", ")
			} else {
				line.WriteString(strings.Repeat(" ", widths[i]))
			}
		}
		buf.WriteString(reTrailingComma.ReplaceAllString(line.String(), ""))
		buf.WriteString("\n")
	}
}

// 数值原样输出，布尔值输出 true/false，日期时间加单引号，其他按字符串转义
func formatDefault(c *schema.Column) string {
	raw := *c.Default
	switch c.Type {
	case schema.TypeInteger:
		if _, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return raw
		}
	case schema.TypeFloat, schema.TypeDecimal:
		if _, err := strconv.ParseFloat(raw, 64); err == nil {
			return raw
		}
	case schema.TypeBoolean:
		switch strings.ToLower(raw) {
		case "1", "true", "t":
			return "true"
		case "0", "false", "f":
			return "false"
		}
	}
	if c.Type.Temporal() {
		return "'" + raw + "'"
	}
	return strconv.Quote(raw)
}

// 渲染结果按文本排序，输出与索引创建顺序无关
func renderIndexes(buf *bytes.Buffer, tableName string, indexes []*schema.Index) {
	if len(indexes) == 0 {
		return
	}
	statements := make([]string, 0, len(indexes))
	for _, index := range indexes {
		statement := "add_index"
		if index.Fulltext() {
			statement = "add_fulltext_index"
		}
		columns := make([]string, len(index.Columns))
		for i, column := range index.Columns {
			columns[i] = strconv.Quote(column)
		}
		table := index.Table
		if table == "" {
			table = tableName
		}
		parts := []string{
			statement + " " + strconv.Quote(table),
			"[" + strings.Join(columns, ", ") + "]",
			"name: " + strconv.Quote(index.Name),
		}
		if index.Unique {
			parts = append(parts, "unique: true")
		}
		statements = append(statements, "  "+strings.Join(parts, ", "))
	}
	sort.Strings(statements)
	buf.WriteString(strings.Join(statements, "\n"))
	buf.WriteString("\n\n")
}

func renderView(buf *bytes.Buffer, view *schema.View) {
	fmt.Fprintf(buf, "  execute(\n    \"%s\"\n  )\n", strings.ReplaceAll(view.Definition, `"`, `\"`))
}
