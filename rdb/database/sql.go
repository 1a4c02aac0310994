package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/hatlonely/rdbx/log"
	"github.com/hatlonely/rdbx/log/logger"
	"github.com/hatlonely/rdbx/rdb/bulk"
	"github.com/hatlonely/rdbx/rdb/finder"
	"github.com/hatlonely/rdbx/rdb/literal"
	"github.com/hatlonely/rdbx/rdb/schema"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

var ErrRecordNotFound = errors.New("record not found")

type SQLOptions struct {
	Driver          string        `cfg:"driver" def:"mysql"`
	DSN             string        `cfg:"dsn"`
	Host            string        `cfg:"host" def:"localhost"`
	Port            string        `cfg:"port" def:"3306"`
	Database        string        `cfg:"database"`
	Username        string        `cfg:"username"`
	Password        string        `cfg:"password"`
	Charset         string        `cfg:"charset" def:"utf8mb4"`
	MaxConns        int           `cfg:"maxConns" def:"10"`
	MaxIdle         int           `cfg:"maxIdle" def:"5"`
	ConnMaxLifetime time.Duration `cfg:"connMaxLifetime" def:"5m"`
	// 元数据方言，为空时由 Driver 推断：sqlite3 => sqlite，其余 => mysql
	Dialect string `cfg:"dialect" validate:"omitempty,oneof=mysql sqlite"`
}

// SQL 基于 database/sql 的查询执行器，同时是 schema.Provider
type SQL struct {
	db      *sql.DB
	driver  string
	dialect string
	logger  logger.Logger
}

func NewSQLWithOptions(options *SQLOptions) (*SQL, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	dsn := options.DSN
	if dsn == "" {
		switch options.Driver {
		case "mysql":
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
				options.Username, options.Password, options.Host, options.Port, options.Database, options.Charset)
		case "sqlite3":
			dsn = options.Database
		default:
			return nil, errors.Errorf("dsn is required for driver [%s]", options.Driver)
		}
	}

	db, err := sql.Open(options.Driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "sql.Open [%s] failed", options.Driver)
	}
	if options.MaxConns > 0 {
		db.SetMaxOpenConns(options.MaxConns)
	}
	if options.MaxIdle > 0 {
		db.SetMaxIdleConns(options.MaxIdle)
	}
	if options.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(options.ConnMaxLifetime)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "db.Ping failed")
	}

	s := NewSQLWithDB(db, options.Driver)
	if options.Dialect != "" {
		s.dialect = options.Dialect
	}
	return s, nil
}

// NewSQLWithDB 包装已打开的连接池
func NewSQLWithDB(db *sql.DB, driver string) *SQL {
	dialect := DialectMySQL
	if driver == "sqlite3" || driver == "sqlite" {
		dialect = DialectSQLite
	}
	return &SQL{
		db:      db,
		driver:  driver,
		dialect: dialect,
		logger:  log.Default(),
	}
}

func (s *SQL) SetLogger(l logger.Logger) {
	if l != nil {
		s.logger = l
	}
}

func (s *SQL) DB() *sql.DB {
	return s.db
}

func (s *SQL) Dialect() string {
	return s.dialect
}

func (s *SQL) Close() error {
	return s.db.Close()
}

// Queryer *sql.DB、*sql.Conn、*sql.Tx 都满足
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQL) query(ctx context.Context, q Queryer, query string) ([]*Record, error) {
	s.logger.DebugContext(ctx, "query", "sql", query)
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "query [%s] failed", query)
	}
	return scanRecords(rows)
}

func (s *SQL) Exec(ctx context.Context, query string) (int64, error) {
	s.logger.DebugContext(ctx, "exec", "sql", query)
	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, errors.Wrapf(err, "exec [%s] failed", query)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Find 编译并执行查询
func (s *SQL) Find(ctx context.Context, spec *finder.QuerySpec, scope *finder.Scope) ([]*Record, error) {
	query, err := finder.Compile(spec, scope)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, s.db, query)
}

// FindWithCount 在同一个连接上执行 SQL_CALC_FOUND_ROWS 查询和 FOUND_ROWS()，
// 返回忽略 LIMIT 时的总行数
func (s *SQL) FindWithCount(ctx context.Context, spec *finder.QuerySpec, scope *finder.Scope) ([]*Record, int64, error) {
	if spec == nil {
		return nil, 0, errors.New("spec is nil")
	}
	counted := *spec
	counted.CountRows = true
	query, err := finder.Compile(&counted, scope)
	if err != nil {
		return nil, 0, err
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, "db.Conn failed")
	}
	defer conn.Close()

	records, err := s.query(ctx, conn, query)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.FoundRows(ctx, conn)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// FoundRows 必须和上一条 SQL_CALC_FOUND_ROWS 查询使用同一个连接
func (s *SQL) FoundRows(ctx context.Context, q Queryer) (int64, error) {
	var total int64
	if err := q.QueryRowContext(ctx, finder.FoundRowsSQL).Scan(&total); err != nil {
		return 0, errors.Wrap(err, "select found_rows failed")
	}
	return total, nil
}

func (s *SQL) Get(ctx context.Context, table string, id any) (*Record, error) {
	return s.GetBy(ctx, table, schema.DefaultPrimaryKey, id)
}

func (s *SQL) GetBy(ctx context.Context, table string, column string, value any) (*Record, error) {
	records, err := s.Find(ctx, &finder.QuerySpec{
		Table:      table,
		Conditions: literal.QuoteIdentifier(column) + " = ?",
		Args:       []any{value},
		Limit:      1,
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.Wrapf(ErrRecordNotFound, "%s.%s = %v", table, column, value)
	}
	return records[0], nil
}

// SelectValues 单列查询，返回该列的值
func (s *SQL) SelectValues(ctx context.Context, spec *finder.QuerySpec, scope *finder.Scope, column string) ([]any, error) {
	rows, err := s.SelectRows(ctx, spec, scope, column)
	if err != nil {
		return nil, err
	}
	values := make([]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, row[0])
	}
	return values, nil
}

// SelectRows 多列查询，每行按列顺序返回
func (s *SQL) SelectRows(ctx context.Context, spec *finder.QuerySpec, scope *finder.Scope, columns ...string) ([][]any, error) {
	query, err := finder.CompileSelectColumns(spec, scope, columns...)
	if err != nil {
		return nil, err
	}
	records, err := s.query(ctx, s.db, query)
	if err != nil {
		return nil, err
	}
	rows := make([][]any, 0, len(records))
	for _, record := range records {
		rows = append(rows, record.Values())
	}
	return rows, nil
}

// Each 先取出主键列表，再逐条读取，列出后被删除的记录跳过
func (s *SQL) Each(ctx context.Context, spec *finder.QuerySpec, fn func(i int, record *Record) error) error {
	if spec == nil {
		return errors.New("spec is nil")
	}
	pk := spec.PrimaryKey
	if pk == "" {
		pk = schema.DefaultPrimaryKey
	}
	keys, err := s.SelectValues(ctx, spec, nil, pk)
	if err != nil {
		return err
	}
	i := 0
	for _, key := range keys {
		record, err := s.GetBy(ctx, spec.Table, pk, key)
		if errors.Is(err, ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(i, record); err != nil {
			return err
		}
		i++
	}
	return nil
}

// Import 批量插入，没有有效行时不执行
func (s *SQL) Import(ctx context.Context, table string, rows []bulk.Row) (int64, error) {
	query, err := bulk.CompileInsert(table, rows)
	if err != nil {
		return 0, err
	}
	if query == "" {
		return 0, nil
	}
	return s.Exec(ctx, query)
}

// Reset 清空表并重置自增计数
func (s *SQL) Reset(ctx context.Context, table string) error {
	statements := bulk.ResetStatements(table)
	if s.dialect == DialectSQLite {
		statements = statements[:1]
	}
	for _, statement := range statements {
		if _, err := s.Exec(ctx, statement); err != nil {
			return err
		}
	}
	return nil
}
