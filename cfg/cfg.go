package cfg

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Load 读取配置文件并转换到 object，按扩展名选择格式
func Load(path string, object any) error {
	node, err := LoadNode(path)
	if err != nil {
		return err
	}
	if err := node.ConvertTo(object); err != nil {
		return errors.WithMessagef(err, "load config [%s]", path)
	}
	return nil
}

func LoadNode(path string) (*Node, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config [%s] failed", path)
	}
	node, err := Decode(FormatOf(path), buf)
	if err != nil {
		return nil, errors.WithMessagef(err, "decode config [%s]", path)
	}
	return node, nil
}

// FormatOf 按扩展名判断格式：yaml, json, toml, ini
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	case ".ini", ".conf", ".cfg":
		return "ini"
	}
	return "json"
}

// Decode 按格式解码配置
func Decode(format string, buf []byte) (*Node, error) {
	var data map[string]any
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(buf, &data); err != nil {
			return nil, errors.Wrap(err, "yaml.Unmarshal failed")
		}
	case "json":
		if err := json.Unmarshal(buf, &data); err != nil {
			return nil, errors.Wrap(err, "json.Unmarshal failed")
		}
	case "toml":
		if err := toml.Unmarshal(buf, &data); err != nil {
			return nil, errors.Wrap(err, "toml.Unmarshal failed")
		}
	case "ini":
		var err error
		if data, err = decodeIni(buf); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unsupported config format [%s]", format)
	}
	if data == nil {
		data = map[string]any{}
	}
	return NewNode(data), nil
}

// ini 的 section 名按 . 展开为嵌套结构，值保持字符串，转换时再解析
func decodeIni(buf []byte) (map[string]any, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:         true,
		SpaceBeforeInlineComment: true,
	}, buf)
	if err != nil {
		return nil, errors.Wrap(err, "ini.Load failed")
	}

	data := map[string]any{}
	for _, section := range file.Sections() {
		m := data
		if section.Name() != ini.DefaultSection {
			for _, part := range strings.Split(section.Name(), ".") {
				sub, ok := m[part].(map[string]any)
				if !ok {
					sub = map[string]any{}
					m[part] = sub
				}
				m = sub
			}
		}
		for _, key := range section.Keys() {
			m[key.Name()] = key.String()
		}
	}
	return data, nil
}
