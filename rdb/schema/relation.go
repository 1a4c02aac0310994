package schema

import "strings"

// Kind 关系类型
type Kind string

const (
	KindTable Kind = "table"
	KindView  Kind = "view"
)

// FulltextPrefix 全文索引的命名前缀
const FulltextPrefix = "fulltext_"

// DefaultPrimaryKey 元数据没有给出主键时使用的约定主键
const DefaultPrimaryKey = "id"

type Index struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
}

// Fulltext 全文索引由名字前缀约定，不是存储的元数据
func (i *Index) Fulltext() bool {
	return strings.HasPrefix(i.Name, FulltextPrefix)
}

type Table struct {
	Name       string
	PrimaryKey string
	NoID       bool // 主键不在列中
	Options    string
	Columns    []*Column
	Indexes    []*Index
}

// View Definition 是去掉 DEFINER 和 SQL SECURITY DEFINER 后的建视图语句
type View struct {
	Name       string
	Definition string
}
