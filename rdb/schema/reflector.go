package schema

import (
	"context"
)

// Provider 元数据来源
type Provider interface {
	Relations(ctx context.Context) ([]string, error)
	// ShowCreate 返回两个键的映射，一个是关系名，另一个是 DDL 文本
	ShowCreate(ctx context.Context, name string) (map[string]string, error)
	Columns(ctx context.Context, name string) ([]*Column, error)
	// PrimaryKey 没有单列主键时返回 false
	PrimaryKey(ctx context.Context, name string) (string, bool, error)
	Indexes(ctx context.Context, name string) ([]*Index, error)
	TypeInfo(typ ColumnType) (TypeInfo, bool)
}

// Reflector 把 Provider 的原始元数据组装成表和视图定义，每次调用都重新查询
type Reflector struct {
	provider Provider
}

func NewReflector(provider Provider) *Reflector {
	return &Reflector{provider: provider}
}

func (r *Reflector) Provider() Provider {
	return r.provider
}

func (r *Reflector) Relations(ctx context.Context) ([]string, error) {
	names, err := r.provider.Relations(ctx)
	if err != nil {
		return nil, &MetadataError{Op: "list relations", Err: err}
	}
	return names, nil
}

func (r *Reflector) showCreate(ctx context.Context, name string) (map[string]string, error) {
	def, err := r.provider.ShowCreate(ctx, name)
	if err != nil {
		return nil, &MetadataError{Relation: name, Op: "show create", Err: err}
	}
	return def, nil
}

func (r *Reflector) Kind(ctx context.Context, name string) (Kind, error) {
	def, err := r.showCreate(ctx, name)
	if err != nil {
		return "", err
	}
	return Classify(name, def)
}

// Table 列信息来自 Columns，DDL 只用来提取表选项
func (r *Reflector) Table(ctx context.Context, name string) (*Table, error) {
	columns, err := r.provider.Columns(ctx, name)
	if err != nil {
		return nil, &MetadataError{Relation: name, Op: "list columns", Err: err}
	}

	pk, ok, err := r.provider.PrimaryKey(ctx, name)
	if err != nil {
		return nil, &MetadataError{Relation: name, Op: "primary key", Err: err}
	}
	if !ok || pk == "" {
		pk = DefaultPrimaryKey
	}

	def, err := r.showCreate(ctx, name)
	if err != nil {
		return nil, err
	}
	ddl, err := Definition(name, def)
	if err != nil {
		return nil, err
	}

	indexes, err := r.provider.Indexes(ctx, name)
	if err != nil {
		return nil, &MetadataError{Relation: name, Op: "list indexes", Err: err}
	}

	table := &Table{
		Name:       name,
		PrimaryKey: pk,
		NoID:       true,
		Options:    TableOptions(ddl),
		Columns:    columns,
		Indexes:    indexes,
	}
	for _, c := range columns {
		if c.Name == pk {
			table.NoID = false
			break
		}
	}
	return table, nil
}

func (r *Reflector) View(ctx context.Context, name string) (*View, error) {
	def, err := r.showCreate(ctx, name)
	if err != nil {
		return nil, err
	}
	ddl, err := Definition(name, def)
	if err != nil {
		return nil, err
	}
	return &View{Name: name, Definition: StripViewDefiner(ddl)}, nil
}
