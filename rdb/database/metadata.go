package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hatlonely/rdbx/rdb/literal"
	"github.com/hatlonely/rdbx/rdb/schema"
	"github.com/pkg/errors"
)

const (
	DialectMySQL  = "mysql"
	DialectSQLite = "sqlite"
)

var _ schema.Provider = (*SQL)(nil)

// 元数据查询的结果列都按字符串读取，NULL 为 nil
func (s *SQL) stringRows(ctx context.Context, query string, args ...any) ([]string, []map[string]*string, error) {
	s.logger.DebugContext(ctx, "metadata", "sql", query)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "query [%s] failed", query)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, errors.Wrap(err, "rows.Columns failed")
	}
	var result []map[string]*string
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, errors.Wrap(err, "rows.Scan failed")
		}
		row := make(map[string]*string, len(columns))
		for i, c := range columns {
			if values[i].Valid {
				v := values[i].String
				row[c] = &v
			} else {
				row[c] = nil
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "rows.Next failed")
	}
	return columns, result, nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func (s *SQL) Relations(ctx context.Context) ([]string, error) {
	query := "SHOW TABLES"
	if s.dialect == DialectSQLite {
		query = "SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name"
	}
	columns, rows, err := s.stringRows(ctx, query)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, str(row[columns[0]]))
	}
	return names, nil
}

func (s *SQL) ShowCreate(ctx context.Context, name string) (map[string]string, error) {
	if s.dialect == DialectSQLite {
		return s.sqliteShowCreate(ctx, name)
	}
	_, rows, err := s.stringRows(ctx, "SHOW CREATE TABLE "+literal.QuoteIdentifier(name))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.Errorf("show create table [%s] returned no rows", name)
	}
	def := map[string]string{}
	for k, v := range rows[0] {
		def[k] = str(v)
	}
	return def, nil
}

func (s *SQL) Columns(ctx context.Context, name string) ([]*schema.Column, error) {
	if s.dialect == DialectSQLite {
		return s.sqliteColumns(ctx, name)
	}
	_, rows, err := s.stringRows(ctx, "SHOW FIELDS FROM "+literal.QuoteIdentifier(name))
	if err != nil {
		return nil, err
	}
	columns := make([]*schema.Column, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, schema.NewColumn(str(row["Field"]), str(row["Type"]), row["Default"], str(row["Null"]) == "YES"))
	}
	return columns, nil
}

// PrimaryKey 只有单列主键时返回
func (s *SQL) PrimaryKey(ctx context.Context, name string) (string, bool, error) {
	if s.dialect == DialectSQLite {
		return s.sqlitePrimaryKey(ctx, name)
	}
	_, rows, err := s.stringRows(ctx, "SHOW KEYS FROM "+literal.QuoteIdentifier(name))
	if err != nil {
		return "", false, err
	}
	var pk []string
	for _, row := range rows {
		if str(row["Key_name"]) == "PRIMARY" {
			pk = append(pk, str(row["Column_name"]))
		}
	}
	if len(pk) != 1 {
		return "", false, nil
	}
	return pk[0], true, nil
}

func (s *SQL) Indexes(ctx context.Context, name string) ([]*schema.Index, error) {
	if s.dialect == DialectSQLite {
		return s.sqliteIndexes(ctx, name)
	}
	_, rows, err := s.stringRows(ctx, "SHOW KEYS FROM "+literal.QuoteIdentifier(name))
	if err != nil {
		return nil, err
	}

	type part struct {
		seq    int
		column string
	}
	var indexes []*schema.Index
	parts := map[string][]part{}
	for _, row := range rows {
		key := str(row["Key_name"])
		if key == "PRIMARY" {
			continue
		}
		if _, ok := parts[key]; !ok {
			indexes = append(indexes, &schema.Index{
				Name:   key,
				Table:  name,
				Unique: str(row["Non_unique"]) == "0",
			})
		}
		seq, _ := strconv.Atoi(str(row["Seq_in_index"]))
		parts[key] = append(parts[key], part{seq: seq, column: str(row["Column_name"])})
	}
	for _, index := range indexes {
		ps := parts[index.Name]
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].seq < ps[j].seq })
		for _, p := range ps {
			index.Columns = append(index.Columns, p.column)
		}
	}
	return indexes, nil
}

func (s *SQL) TypeInfo(typ schema.ColumnType) (schema.TypeInfo, bool) {
	if s.dialect == DialectSQLite {
		return schema.SQLiteTypes.Lookup(typ)
	}
	return schema.MySQLTypes.Lookup(typ)
}

func (s *SQL) sqliteShowCreate(ctx context.Context, name string) (map[string]string, error) {
	_, rows, err := s.stringRows(ctx, "SELECT type, sql FROM sqlite_master WHERE name = ?", name)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.Errorf("relation [%s] not found", name)
	}
	ddl := str(rows[0]["sql"])
	switch str(rows[0]["type"]) {
	case "table":
		return map[string]string{"Table": name, "Create Table": sqliteTableDDL(ddl)}, nil
	case "view":
		return map[string]string{"View": name, "Create View": ddl}, nil
	}
	return map[string]string{"Type": str(rows[0]["type"]), "SQL": ddl}, nil
}

// sqlite 保存的是原始建表语句，把最后的右括号放到单独一行，之后的内容就是表选项
func sqliteTableDDL(ddl string) string {
	ddl = strings.TrimSpace(ddl)
	i := strings.LastIndex(ddl, ")")
	if i < 0 {
		return ddl
	}
	body := strings.TrimRight(ddl[:i], " \t\r\n")
	return body + "\n" + ddl[i:]
}

func (s *SQL) pragma(ctx context.Context, fn string, name string) ([]map[string]*string, error) {
	_, rows, err := s.stringRows(ctx, fmt.Sprintf("PRAGMA %s(%s)", fn, literal.QuoteIdentifier(name)))
	return rows, err
}

func (s *SQL) sqliteColumns(ctx context.Context, name string) ([]*schema.Column, error) {
	rows, err := s.pragma(ctx, "table_info", name)
	if err != nil {
		return nil, err
	}
	columns := make([]*schema.Column, 0, len(rows))
	for _, row := range rows {
		def := row["dflt_value"]
		if def != nil {
			v := strings.TrimSuffix(strings.TrimPrefix(*def, "'"), "'")
			def = &v
		}
		columns = append(columns, schema.NewColumn(str(row["name"]), str(row["type"]), def, str(row["notnull"]) == "0"))
	}
	return columns, nil
}

func (s *SQL) sqlitePrimaryKey(ctx context.Context, name string) (string, bool, error) {
	rows, err := s.pragma(ctx, "table_info", name)
	if err != nil {
		return "", false, err
	}
	var pk []string
	for _, row := range rows {
		if v := str(row["pk"]); v != "" && v != "0" {
			pk = append(pk, str(row["name"]))
		}
	}
	if len(pk) != 1 {
		return "", false, nil
	}
	return pk[0], true, nil
}

func (s *SQL) sqliteIndexes(ctx context.Context, name string) ([]*schema.Index, error) {
	rows, err := s.pragma(ctx, "index_list", name)
	if err != nil {
		return nil, err
	}
	var indexes []*schema.Index
	for _, row := range rows {
		indexName := str(row["name"])
		if str(row["origin"]) == "pk" || strings.HasPrefix(indexName, "sqlite_autoindex_") {
			continue
		}
		info, err := s.pragma(ctx, "index_info", indexName)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(info, func(i, j int) bool {
			a, _ := strconv.Atoi(str(info[i]["seqno"]))
			b, _ := strconv.Atoi(str(info[j]["seqno"]))
			return a < b
		})
		index := &schema.Index{Name: indexName, Table: name, Unique: str(row["unique"]) == "1"}
		for _, col := range info {
			index.Columns = append(index.Columns, str(col["name"]))
		}
		indexes = append(indexes, index)
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i].Name < indexes[j].Name })
	return indexes, nil
}
