package schema

import (
	"context"

	"github.com/pkg/errors"
)

// StaticRelation 内存中的一个关系
type StaticRelation struct {
	Name       string
	Create     map[string]string
	Columns    []*Column
	PrimaryKey string
	Indexes    []*Index
	Err        error // 非空时该关系的所有元数据查询都返回这个错误
}

// StaticProvider 基于内存数据的 Provider，关系按添加顺序列出
type StaticProvider struct {
	Types     TypeTable
	relations []*StaticRelation
}

func NewStaticProvider(types TypeTable, relations ...*StaticRelation) *StaticProvider {
	return &StaticProvider{Types: types, relations: relations}
}

// StaticTable 构造一个表，DDL 最后一行是表选项
func StaticTable(name string, options string, pk string, columns []*Column, indexes ...*Index) *StaticRelation {
	return &StaticRelation{
		Name: name,
		Create: map[string]string{
			"Table":        name,
			"Create Table": "CREATE TABLE `" + name + "` (\n) " + options,
		},
		Columns:    columns,
		PrimaryKey: pk,
		Indexes:    indexes,
	}
}

func StaticView(name string, ddl string) *StaticRelation {
	return &StaticRelation{
		Name:   name,
		Create: map[string]string{"View": name, "Create View": ddl},
	}
}

func (p *StaticProvider) find(name string) (*StaticRelation, error) {
	for _, r := range p.relations {
		if r.Name == name {
			if r.Err != nil {
				return nil, r.Err
			}
			return r, nil
		}
	}
	return nil, errors.Errorf("relation '%s' not found", name)
}

func (p *StaticProvider) Relations(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(p.relations))
	for _, r := range p.relations {
		names = append(names, r.Name)
	}
	return names, nil
}

func (p *StaticProvider) ShowCreate(ctx context.Context, name string) (map[string]string, error) {
	r, err := p.find(name)
	if err != nil {
		return nil, err
	}
	return r.Create, nil
}

func (p *StaticProvider) Columns(ctx context.Context, name string) ([]*Column, error) {
	r, err := p.find(name)
	if err != nil {
		return nil, err
	}
	return r.Columns, nil
}

func (p *StaticProvider) PrimaryKey(ctx context.Context, name string) (string, bool, error) {
	r, err := p.find(name)
	if err != nil {
		return "", false, err
	}
	return r.PrimaryKey, r.PrimaryKey != "", nil
}

func (p *StaticProvider) Indexes(ctx context.Context, name string) ([]*Index, error) {
	r, err := p.find(name)
	if err != nil {
		return nil, err
	}
	return r.Indexes, nil
}

func (p *StaticProvider) TypeInfo(typ ColumnType) (TypeInfo, bool) {
	return p.Types.Lookup(typ)
}
