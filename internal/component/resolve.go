package component

import (
	"reflect"
	"strings"
)

// Resolve walks attribute access along a dotted path from a live root value
// and returns the object the path names. The first path segment must match
// rootName. A miss at any segment returns (nil, false); resolution never
// panics, so callers can probe paths recorded by an older index generation
// against a root whose structure has since drifted.
func Resolve(root any, rootName, path string) (any, bool) {
	if root == nil || path == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")
	if segments[0] != rootName {
		return nil, false
	}
	if len(segments) == 1 {
		return root, true
	}

	// Resolution is best-effort: a panic from reflect means the path no
	// longer matches the live structure.
	ok := false
	var out any
	func() {
		defer func() { _ = recover() }()
		out, ok = walkPath(root, segments[1:])
	}()
	return out, ok
}

func walkPath(root any, segments []string) (any, bool) {
	v := reflect.ValueOf(root)
	for _, seg := range segments {
		next, ok := step(v, seg)
		if !ok {
			return nil, false
		}
		v = next
	}
	if !v.IsValid() || !v.CanInterface() {
		return nil, false
	}
	return v.Interface(), true
}

// step resolves one segment against a value: method first (the pointer
// method set), then struct field.
func step(v reflect.Value, name string) (reflect.Value, bool) {
	if !v.IsValid() {
		return reflect.Value{}, false
	}

	// Methods live on the addressable/pointer type.
	if m := v.MethodByName(name); m.IsValid() {
		return m, true
	}
	if v.Kind() != reflect.Pointer && v.CanAddr() {
		if m := v.Addr().MethodByName(name); m.IsValid() {
			return m, true
		}
	}

	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Struct {
		if f := v.FieldByName(name); f.IsValid() && f.CanInterface() {
			return f, true
		}
	}
	return reflect.Value{}, false
}
