package database

import (
	"context"
	"sort"
	"strings"

	"github.com/hatlonely/rdbx/log/logger"
	"github.com/hatlonely/rdbx/rdb/schema"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type GormOptions struct {
	// 数据库驱动：mysql, sqlite
	Driver string `cfg:"driver" def:"mysql" validate:"oneof=mysql sqlite"`
	DSN    string `cfg:"dsn" validate:"required"`
}

// Gorm 通过 gorm Migrator 读取列和索引，建表语句仍然走原生查询
type Gorm struct {
	db  *gorm.DB
	raw *SQL
}

func NewGormWithOptions(options *GormOptions) (*Gorm, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	config := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	var db *gorm.DB
	var err error
	switch options.Driver {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(options.DSN), config)
	case "mysql":
		db, err = gorm.Open(mysql.Open(options.DSN), config)
	default:
		return nil, errors.Errorf("unsupported gorm driver [%s]", options.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "gorm.Open failed")
	}
	return NewGormWithDB(db)
}

func NewGormWithDB(db *gorm.DB) (*Gorm, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "gorm.DB failed")
	}
	driver := "mysql"
	if db.Dialector.Name() == "sqlite" {
		driver = "sqlite3"
	}
	return &Gorm{db: db, raw: NewSQLWithDB(sqlDB, driver)}, nil
}

var _ schema.Provider = (*Gorm)(nil)

func (g *Gorm) SetLogger(l logger.Logger) {
	g.raw.SetLogger(l)
}

func (g *Gorm) Close() error {
	return g.raw.Close()
}

func (g *Gorm) migrator(ctx context.Context) gorm.Migrator {
	return g.db.WithContext(ctx).Migrator()
}

func (g *Gorm) Relations(ctx context.Context) ([]string, error) {
	names, err := g.migrator(ctx).GetTables()
	if err != nil {
		return nil, errors.Wrap(err, "migrator.GetTables failed")
	}
	if g.raw.Dialect() == DialectSQLite {
		// sqlite 的 GetTables 不包含视图
		views, err := g.sqliteViews(ctx)
		if err != nil {
			return nil, err
		}
		names = append(names, views...)
	}
	seen := map[string]bool{}
	var res []string
	for _, name := range names {
		if !strings.HasPrefix(name, "sqlite_") && !seen[name] {
			seen[name] = true
			res = append(res, name)
		}
	}
	sort.Strings(res)
	return res, nil
}

func (g *Gorm) sqliteViews(ctx context.Context) ([]string, error) {
	var views []string
	if err := g.db.WithContext(ctx).Raw("SELECT name FROM sqlite_master WHERE type = 'view'").Scan(&views).Error; err != nil {
		return nil, errors.Wrap(err, "list sqlite views failed")
	}
	return views, nil
}

func (g *Gorm) ShowCreate(ctx context.Context, name string) (map[string]string, error) {
	return g.raw.ShowCreate(ctx, name)
}

func (g *Gorm) Columns(ctx context.Context, name string) ([]*schema.Column, error) {
	types, err := g.migrator(ctx).ColumnTypes(name)
	if err != nil {
		return nil, errors.Wrapf(err, "migrator.ColumnTypes [%s] failed", name)
	}
	columns := make([]*schema.Column, 0, len(types))
	for _, t := range types {
		sqlType, ok := t.ColumnType()
		if !ok || sqlType == "" {
			sqlType = t.DatabaseTypeName()
		}
		var def *string
		if v, ok := t.DefaultValue(); ok {
			v = strings.TrimSuffix(strings.TrimPrefix(v, "'"), "'")
			def = &v
		}
		null, ok := t.Nullable()
		if !ok {
			null = true
		}
		columns = append(columns, schema.NewColumn(t.Name(), sqlType, def, null))
	}
	return columns, nil
}

func (g *Gorm) PrimaryKey(ctx context.Context, name string) (string, bool, error) {
	types, err := g.migrator(ctx).ColumnTypes(name)
	if err != nil {
		return "", false, errors.Wrapf(err, "migrator.ColumnTypes [%s] failed", name)
	}
	var pk []string
	for _, t := range types {
		if isPK, ok := t.PrimaryKey(); ok && isPK {
			pk = append(pk, t.Name())
		}
	}
	if len(pk) != 1 {
		return "", false, nil
	}
	return pk[0], true, nil
}

func (g *Gorm) Indexes(ctx context.Context, name string) ([]*schema.Index, error) {
	gormIndexes, err := g.migrator(ctx).GetIndexes(name)
	if err != nil {
		return nil, errors.Wrapf(err, "migrator.GetIndexes [%s] failed", name)
	}
	var indexes []*schema.Index
	for _, idx := range gormIndexes {
		if pk, ok := idx.PrimaryKey(); (ok && pk) || idx.Name() == "PRIMARY" || strings.HasPrefix(idx.Name(), "sqlite_autoindex_") {
			continue
		}
		unique, _ := idx.Unique()
		indexes = append(indexes, &schema.Index{
			Name:    idx.Name(),
			Table:   name,
			Columns: idx.Columns(),
			Unique:  unique,
		})
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i].Name < indexes[j].Name })
	return indexes, nil
}

func (g *Gorm) TypeInfo(typ schema.ColumnType) (schema.TypeInfo, bool) {
	return g.raw.TypeInfo(typ)
}
