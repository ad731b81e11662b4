// pkg/apimount/surface_reflect.go
package apimount

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/vytenisu/api-mount-server/pkg/codec"
)

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// instanceSurface exposes the exported methods of a value, receiver captured,
// so sibling calls through the receiver resolve on the same instance.
type instanceSurface struct {
	typeName string
	methods  []Method
}

func (s *instanceSurface) Methods() []Method { return s.methods }
func (s *instanceSurface) TypeName() string  { return s.typeName }

// FromInstance builds a surface from the exported methods of instance. Pass a
// pointer when the methods use pointer receivers. Method signatures may take
// an optional leading context.Context, any JSON-representable parameters
// (variadic included), and return (), (T), (error), or (T, error).
func FromInstance(instance any) (Surface, error) {
	if instance == nil {
		return nil, fmt.Errorf("apimount: nil instance")
	}
	v := reflect.ValueOf(instance)
	t := v.Type()

	named := t
	for named.Kind() == reflect.Ptr {
		named = named.Elem()
	}

	ms := make([]Method, 0, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		h, err := adaptMethod(v.Method(i))
		if err != nil {
			return nil, fmt.Errorf("apimount: method %s.%s: %w", named.Name(), m.Name, err)
		}
		ms = append(ms, Method{Name: m.Name, Handler: h})
	}
	if len(ms) == 0 {
		return nil, fmt.Errorf("apimount: %s has no exported methods", t)
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].Name < ms[j].Name })

	return &instanceSurface{typeName: named.Name(), methods: ms}, nil
}

// FromType builds a surface from the method set of *T on a zero value, the
// closest Go analog of mounting a type's static members.
func FromType[T any]() (Surface, error) {
	return FromInstance(new(T))
}

// adaptMethod wraps a reflected method as a Handler. Missing trailing
// arguments become zero values; extra arguments are dropped.
func adaptMethod(fn reflect.Value) (Handler, error) {
	ft := fn.Type()

	takesCtx := ft.NumIn() > 0 && ft.In(0) == ctxType

	numOut := ft.NumOut()
	errIdx := -1
	if numOut > 0 && ft.Out(numOut-1) == errType {
		errIdx = numOut - 1
	}
	valCount := numOut
	if errIdx >= 0 {
		valCount--
	}
	if valCount > 1 {
		return nil, fmt.Errorf("unsupported signature: more than one non-error result")
	}

	return func(ctx context.Context, args []any) (any, error) {
		in := make([]reflect.Value, 0, ft.NumIn())
		pi := 0
		if takesCtx {
			in = append(in, reflect.ValueOf(ctx))
			pi = 1
		}

		fixed := ft.NumIn()
		if ft.IsVariadic() {
			fixed--
		}
		ai := 0
		for ; pi < fixed; pi++ {
			var src any
			if ai < len(args) {
				src = args[ai]
			}
			av, err := convertArg(src, ft.In(pi))
			if err != nil {
				return nil, NewError("TypeError", fmt.Sprintf("argument %d: %v", ai, err))
			}
			in = append(in, av)
			ai++
		}
		if ft.IsVariadic() {
			elem := ft.In(ft.NumIn() - 1).Elem()
			for ; ai < len(args); ai++ {
				av, err := convertArg(args[ai], elem)
				if err != nil {
					return nil, NewError("TypeError", fmt.Sprintf("argument %d: %v", ai, err))
				}
				in = append(in, av)
			}
		}

		out := fn.Call(in)

		if errIdx >= 0 {
			if ev := out[errIdx]; !ev.IsNil() {
				return nil, ev.Interface().(error)
			}
		}
		if valCount == 1 {
			return out[0].Interface(), nil
		}
		return nil, nil
	}, nil
}

// convertArg coerces a decoded JSON value onto the parameter type, falling
// back to a JSON round trip for structured parameters.
func convertArg(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	// Numeric coercion covers the float64 that JSON numbers decode to.
	if isNumeric(rv.Kind()) && isNumeric(t.Kind()) {
		return rv.Convert(t), nil
	}
	data, err := codec.JSON.Marshal(v)
	if err != nil {
		return reflect.Value{}, err
	}
	ptr := reflect.New(t)
	if err := codec.JSON.Unmarshal(data, ptr.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return ptr.Elem(), nil
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
