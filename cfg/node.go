package cfg

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Node 解码后的配置树，map[string]any / []any / 标量
//
// ConvertTo 转换后依次设置默认值并校验，可以直接作为 ref.TypeOptions 的 Options 使用
type Node struct {
	data any
}

func NewNode(data any) *Node {
	return &Node{data: data}
}

func (n *Node) Data() any {
	if n == nil {
		return nil
	}
	return n.data
}

var (
	indexPattern = regexp.MustCompile(`^([^\[]*)((?:\[\d+\])*)$`)
	digits       = regexp.MustCompile(`\d+`)
)

// Sub 按路径取子节点，路径用 . 分隔，数组下标用 [i]，例如 "provider.options.dsn"、"writers[0].type"
// 路径不存在时返回数据为 nil 的节点
func (n *Node) Sub(key string) *Node {
	if key == "" {
		return n
	}
	cur := n.Data()
	for _, part := range strings.Split(key, ".") {
		m := indexPattern.FindStringSubmatch(part)
		if m == nil {
			return NewNode(nil)
		}
		if m[1] != "" {
			cur = lookup(cur, m[1])
		}
		for _, idx := range digits.FindAllString(m[2], -1) {
			i, _ := strconv.Atoi(idx)
			cur = index(cur, i)
		}
	}
	return NewNode(cur)
}

func lookup(data any, key string) any {
	rv := reflect.ValueOf(data)
	if !rv.IsValid() || rv.Kind() != reflect.Map {
		return nil
	}
	for _, k := range rv.MapKeys() {
		if fmt.Sprint(k.Interface()) == key {
			return rv.MapIndex(k).Interface()
		}
	}
	return nil
}

func index(data any, i int) any {
	rv := reflect.ValueOf(data)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) || i >= rv.Len() {
		return nil
	}
	return rv.Index(i).Interface()
}

// ConvertTo 把节点数据转换为 object 指向的类型
func (n *Node) ConvertTo(object any) error {
	rv := reflect.ValueOf(object)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("object must be a non-nil pointer")
	}
	// 先填默认值再覆盖配置项，显式配置的零值不会被默认值替换
	if err := SetDefaults(object); err != nil {
		return err
	}
	if err := convert(n.Data(), rv.Elem(), ""); err != nil {
		return err
	}
	if err := Validate(object); err != nil {
		return errors.Wrap(err, "validate failed")
	}
	return nil
}

func convert(src any, dst reflect.Value, path string) error {
	if src == nil {
		return nil
	}
	if node, ok := src.(*Node); ok {
		return convert(node.Data(), dst, path)
	}

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
			if err := setDefaults(dst); err != nil {
				return errors.WithMessagef(err, "field [%s]", path)
			}
		}
		return convert(src, dst.Elem(), path)
	}

	sv := reflect.ValueOf(src)
	if dst.Kind() == reflect.Interface {
		if dst.Type().NumMethod() != 0 {
			return errors.Errorf("%s: cannot convert %T to %v", path, src, dst.Type())
		}
		// 嵌套的配置保持为节点，由使用方按需要的类型转换
		if sv.Kind() == reflect.Map || sv.Kind() == reflect.Slice {
			dst.Set(reflect.ValueOf(NewNode(src)))
		} else {
			dst.Set(sv)
		}
		return nil
	}

	if sv.Type().AssignableTo(dst.Type()) && (dst.Type() == timeType || (dst.Kind() != reflect.Map && dst.Kind() != reflect.Slice && dst.Kind() != reflect.Struct)) {
		dst.Set(sv)
		return nil
	}

	if s, ok := src.(string); ok {
		if dst.Kind() != reflect.Struct || dst.Type() == timeType {
			return errors.WithMessagef(setString(dst, s), "field [%s]", path)
		}
	}

	switch {
	case dst.Type() == durationType:
		switch sv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			dst.SetInt(sv.Int())
			return nil
		case reflect.Float32, reflect.Float64:
			// 浮点数按秒处理
			dst.SetInt(int64(sv.Float() * 1e9))
			return nil
		}
	case dst.Type() == timeType:
		if sv.Kind() == reflect.Int || sv.Kind() == reflect.Int64 {
			dst.Set(reflect.ValueOf(time.Unix(sv.Int(), 0)))
			return nil
		}
	}

	switch dst.Kind() {
	case reflect.Struct:
		return convertStruct(sv, dst, path)
	case reflect.Map:
		return convertMap(sv, dst, path)
	case reflect.Slice:
		return convertSlice(sv, dst, path)
	case reflect.String:
		switch sv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64, reflect.Bool:
			dst.SetString(fmt.Sprint(src))
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		switch sv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			dst.Set(sv.Convert(dst.Type()))
			return nil
		}
	}

	return errors.Errorf("%s: cannot convert %T to %v", path, src, dst.Type())
}

func convertStruct(sv reflect.Value, dst reflect.Value, path string) error {
	if sv.Kind() != reflect.Map {
		return errors.Errorf("%s: cannot convert %v to %v", path, sv.Type(), dst.Type())
	}

	keys := map[string]reflect.Value{}
	for _, k := range sv.MapKeys() {
		keys[fmt.Sprint(k.Interface())] = sv.MapIndex(k)
	}

	rt := dst.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !dst.Field(i).CanSet() {
			continue
		}
		name := strings.Split(field.Tag.Get("cfg"), ",")[0]
		if name == "-" {
			continue
		}
		value, ok := keys[name]
		if !ok || name == "" {
			for k, v := range keys {
				if strings.EqualFold(k, field.Name) || (name != "" && strings.EqualFold(k, name)) {
					value, ok = v, true
					break
				}
			}
		}
		if !ok {
			continue
		}
		if err := convert(value.Interface(), dst.Field(i), join(path, field.Name)); err != nil {
			return err
		}
	}
	return nil
}

func convertMap(sv reflect.Value, dst reflect.Value, path string) error {
	if sv.Kind() != reflect.Map {
		return errors.Errorf("%s: cannot convert %v to %v", path, sv.Type(), dst.Type())
	}
	if dst.IsNil() {
		dst.Set(reflect.MakeMapWithSize(dst.Type(), sv.Len()))
	}
	for _, k := range sv.MapKeys() {
		key := reflect.New(dst.Type().Key()).Elem()
		if err := convert(k.Interface(), key, path); err != nil {
			return err
		}
		value := reflect.New(dst.Type().Elem()).Elem()
		if err := setDefaults(value); err != nil {
			return err
		}
		if err := convert(sv.MapIndex(k).Interface(), value, join(path, fmt.Sprint(k.Interface()))); err != nil {
			return err
		}
		dst.SetMapIndex(key, value)
	}
	return nil
}

func convertSlice(sv reflect.Value, dst reflect.Value, path string) error {
	if sv.Kind() != reflect.Slice && sv.Kind() != reflect.Array {
		return errors.Errorf("%s: cannot convert %v to %v", path, sv.Type(), dst.Type())
	}
	slice := reflect.MakeSlice(dst.Type(), sv.Len(), sv.Len())
	for i := 0; i < sv.Len(); i++ {
		if err := setDefaults(slice.Index(i)); err != nil {
			return err
		}
		if err := convert(sv.Index(i).Interface(), slice.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	dst.Set(slice)
	return nil
}

func join(path string, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
