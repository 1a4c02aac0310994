package literal

// QuoteIdentifier 用反引号包裹标识符
// 不处理标识符内部的反引号，调用方需保证标识符是合法的
func QuoteIdentifier(name string) string {
	return "`" + name + "`"
}

func QuoteIdentifiers(names ...string) []string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = QuoteIdentifier(name)
	}
	return quoted
}
