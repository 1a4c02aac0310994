package schema

// TypeInfo 方言类型表中的一项
type TypeInfo struct {
	Name  string
	Limit *int
}

// TypeTable 逻辑类型到方言原生类型的映射
type TypeTable map[ColumnType]TypeInfo

// Lookup 未知类型返回 false
func (t TypeTable) Lookup(typ ColumnType) (TypeInfo, bool) {
	if typ == TypeUnknown {
		return TypeInfo{}, false
	}
	info, ok := t[typ]
	return info, ok
}

var MySQLTypes = TypeTable{
	TypeString:    {Name: "varchar", Limit: intPtr(255)},
	TypeText:      {Name: "text"},
	TypeInteger:   {Name: "int", Limit: intPtr(11)},
	TypeFloat:     {Name: "float"},
	TypeDecimal:   {Name: "decimal"},
	TypeDatetime:  {Name: "datetime"},
	TypeTimestamp: {Name: "datetime"},
	TypeTime:      {Name: "time"},
	TypeDate:      {Name: "date"},
	TypeBinary:    {Name: "blob"},
	TypeBoolean:   {Name: "tinyint", Limit: intPtr(1)},
}

var SQLiteTypes = TypeTable{
	TypeString:    {Name: "varchar", Limit: intPtr(255)},
	TypeText:      {Name: "text"},
	TypeInteger:   {Name: "integer"},
	TypeFloat:     {Name: "float"},
	TypeDecimal:   {Name: "decimal"},
	TypeDatetime:  {Name: "datetime"},
	TypeTimestamp: {Name: "datetime"},
	TypeTime:      {Name: "time"},
	TypeDate:      {Name: "date"},
	TypeBinary:    {Name: "blob"},
	TypeBoolean:   {Name: "boolean"},
}
