package cfg

import (
	"reflect"

	"github.com/pkg/errors"
)

// SetDefaults 为零值字段设置 def tag 中的默认值，递归处理嵌套结构体和非空指针
func SetDefaults(object any) error {
	rv := reflect.ValueOf(object)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("object must be a non-nil pointer")
	}
	return setDefaults(rv.Elem())
}

func setDefaults(rv reflect.Value) error {
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct || rv.Type() == timeType {
		return nil
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		value := rv.Field(i)
		if !value.CanSet() {
			continue
		}

		if def, ok := field.Tag.Lookup("def"); ok && def != "" && value.IsZero() {
			if err := setString(value, def); err != nil {
				return errors.WithMessagef(err, "set default for field %s", field.Name)
			}
			continue
		}

		switch value.Kind() {
		case reflect.Struct, reflect.Ptr:
			if err := setDefaults(value); err != nil {
				return errors.WithMessagef(err, "field %s", field.Name)
			}
		case reflect.Slice:
			for j := 0; j < value.Len(); j++ {
				if err := setDefaults(value.Index(j)); err != nil {
					return errors.WithMessagef(err, "field %s[%d]", field.Name, j)
				}
			}
		}
	}
	return nil
}
