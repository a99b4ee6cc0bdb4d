package pdf

import "fmt"

// Kind identifies the type of a PDF object.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindReal
	KindString
	KindName
	KindArray
	KindDict
	KindStream
	KindRef
)

var kindNames = [...]string{"null", "bool", "int", "real", "string", "name", "array", "dict", "stream", "ref"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Object holds any PDF object value. Only the field matching Kind is set.
type Object struct {
	Kind   Kind
	Bool   bool
	Int    int64
	Real   float64
	Str    []byte
	Name   string
	Array  []*Object
	Dict   Dict
	Stream []byte // raw, still encoded
	Ref    Ref
}

// Ref is an indirect object reference (N G R).
type Ref struct {
	Num int
	Gen int
}

func (r Ref) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

var null = &Object{Kind: KindNull}

// IsNull reports whether o is nil or the null object.
func (o *Object) IsNull() bool { return o == nil || o.Kind == KindNull }

// Number returns the numeric value of an int or real object.
func (o *Object) Number() (float64, bool) {
	if o == nil {
		return 0, false
	}
	switch o.Kind {
	case KindInt:
		return float64(o.Int), true
	case KindReal:
		return o.Real, true
	}
	return 0, false
}

// Float returns the numeric value of o, or 0.
func (o *Object) Float() float64 {
	f, _ := o.Number()
	return f
}

// Value converts o to a plain Go value as used in operator arguments:
// numbers become float64, names string, strings []byte, arrays []any and
// dictionaries map[string]any. References are returned as Ref.
func (o *Object) Value() any {
	if o == nil {
		return nil
	}
	switch o.Kind {
	case KindBool:
		return o.Bool
	case KindInt:
		return float64(o.Int)
	case KindReal:
		return o.Real
	case KindString:
		return o.Str
	case KindName:
		return o.Name
	case KindArray:
		out := make([]any, len(o.Array))
		for i, e := range o.Array {
			out[i] = e.Value()
		}
		return out
	case KindDict, KindStream:
		out := make(map[string]any, len(o.Dict))
		for k, v := range o.Dict {
			out[k] = v.Value()
		}
		return out
	case KindRef:
		return o.Ref
	}
	return nil
}

// Dict is a PDF dictionary (name -> object).
type Dict map[string]*Object

// Int returns the integer value of a Dict entry.
func (d Dict) Int(key string) (int64, bool) {
	obj, ok := d[key]
	if !ok {
		return 0, false
	}
	switch obj.Kind {
	case KindInt:
		return obj.Int, true
	case KindReal:
		return int64(obj.Real), true
	}
	return 0, false
}

// Name returns the name value of a Dict entry.
func (d Dict) Name(key string) (string, bool) {
	obj, ok := d[key]
	if !ok || obj.Kind != KindName {
		return "", false
	}
	return obj.Name, true
}

// Bool returns the boolean value of a Dict entry.
func (d Dict) Bool(key string) bool {
	obj, ok := d[key]
	return ok && obj.Kind == KindBool && obj.Bool
}

// Array returns the array value of a Dict entry. A single object is treated
// as a one-element array.
func (d Dict) Array(key string) ([]*Object, bool) {
	obj, ok := d[key]
	if !ok {
		return nil, false
	}
	if obj.Kind == KindArray {
		return obj.Array, true
	}
	return []*Object{obj}, true
}
