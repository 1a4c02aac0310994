package ref

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// TypeOptions 通过命名空间和类型名选择已注册的构造函数
type TypeOptions struct {
	Namespace string `cfg:"namespace"`
	Type      string `cfg:"type" validate:"required"`
	Options   any    `cfg:"options"`
}

// Convertable 配置节点，构造前转换为构造函数需要的参数类型
type Convertable interface {
	ConvertTo(object any) error
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// 支持 func() T、func() (T, error)、func(O) T、func(O) (T, error)
type constructor struct {
	fn           reflect.Value
	optionsType  reflect.Type
	returnsError bool
}

func newConstructor(fn any) (*constructor, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, errors.Errorf("constructor must be a function, got %T", fn)
	}
	ft := fv.Type()
	if ft.NumIn() > 1 {
		return nil, errors.Errorf("constructor must have at most 1 parameter, got %d", ft.NumIn())
	}
	if ft.NumOut() != 1 && ft.NumOut() != 2 {
		return nil, errors.Errorf("constructor must have 1 or 2 return values, got %d", ft.NumOut())
	}
	if ft.NumOut() == 2 && !ft.Out(1).Implements(errorType) {
		return nil, errors.New("second return value of constructor must be error")
	}

	c := &constructor{fn: fv, returnsError: ft.NumOut() == 2}
	if ft.NumIn() == 1 {
		c.optionsType = ft.In(0)
	}
	return c, nil
}

func (c *constructor) options(options any) (reflect.Value, error) {
	if options == nil {
		return reflect.Value{}, errors.New("constructor requires options but got nil")
	}
	convertable, ok := options.(Convertable)
	if !ok {
		v := reflect.ValueOf(options)
		if !v.Type().AssignableTo(c.optionsType) {
			return reflect.Value{}, errors.Errorf("options type %T is not assignable to %v", options, c.optionsType)
		}
		return v, nil
	}

	if c.optionsType.Kind() == reflect.Ptr {
		v := reflect.New(c.optionsType.Elem())
		if err := convertable.ConvertTo(v.Interface()); err != nil {
			return reflect.Value{}, errors.WithMessagef(err, "convert options to %v", c.optionsType)
		}
		return v, nil
	}
	v := reflect.New(c.optionsType)
	if err := convertable.ConvertTo(v.Interface()); err != nil {
		return reflect.Value{}, errors.WithMessagef(err, "convert options to %v", c.optionsType)
	}
	return v.Elem(), nil
}

func (c *constructor) call(options any) (any, error) {
	var args []reflect.Value
	if c.optionsType != nil {
		v, err := c.options(options)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	out := c.fn.Call(args)
	if c.returnsError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

var constructors sync.Map

func key(namespace string, typ string) string {
	return namespace + ":" + typ
}

// Register 注册构造函数，同一个名字重复注册同一个函数是允许的
func Register(namespace string, typ string, fn any) error {
	c, err := newConstructor(fn)
	if err != nil {
		return errors.WithMessagef(err, "register %s:%s", namespace, typ)
	}
	if existing, ok := constructors.Load(key(namespace, typ)); ok {
		if existing.(*constructor).fn.Pointer() == c.fn.Pointer() {
			return nil
		}
		return errors.Errorf("constructor for %s:%s already registered with different function", namespace, typ)
	}
	constructors.Store(key(namespace, typ), c)
	return nil
}

func MustRegister(namespace string, typ string, fn any) {
	if err := Register(namespace, typ, fn); err != nil {
		panic(err)
	}
}

// typeName 用 T 的包路径和类型名作为默认的命名空间和类型
func typeName[T any]() (string, string, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return "", "", errors.Errorf("cannot determine package path or type name for %v", t)
	}
	return t.PkgPath(), t.Name(), nil
}

func RegisterT[T any](fn any) error {
	namespace, typ, err := typeName[T]()
	if err != nil {
		return err
	}
	return Register(namespace, typ, fn)
}

func MustRegisterT[T any](fn any) {
	if err := RegisterT[T](fn); err != nil {
		panic(err)
	}
}

// New 调用已注册的构造函数，options 可以是参数本身，也可以是 Convertable
func New(namespace string, typ string, options any) (any, error) {
	value, ok := constructors.Load(key(namespace, typ))
	if !ok {
		return nil, errors.Errorf("constructor not found for %s:%s", namespace, typ)
	}
	obj, err := value.(*constructor).call(options)
	if err != nil {
		return nil, errors.WithMessagef(err, "new %s:%s", namespace, typ)
	}
	return obj, nil
}

func NewT[T any](options any) (T, error) {
	var zero T
	namespace, typ, err := typeName[T]()
	if err != nil {
		return zero, err
	}
	return Build[T](&TypeOptions{Namespace: namespace, Type: typ, Options: options})
}

// Build 按 TypeOptions 构造对象并断言为 T，T 通常是接口类型
func Build[T any](options *TypeOptions) (T, error) {
	var zero T
	if options == nil {
		return zero, errors.New("type options is nil")
	}
	obj, err := New(options.Namespace, options.Type, options.Options)
	if err != nil {
		return zero, err
	}
	t, ok := obj.(T)
	if !ok {
		return zero, errors.Errorf("%s:%s created %T, which is not %v",
			options.Namespace, options.Type, obj, reflect.TypeOf((*T)(nil)).Elem())
	}
	return t, nil
}
