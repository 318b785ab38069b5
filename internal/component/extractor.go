package component

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/modscope/modscope/internal/logging"
)

// ErrRootUnintrospectable is returned when the root itself cannot be walked
// (nil root, invalid value, empty package pattern). Per-member failures are
// logged and skipped instead.
var ErrRootUnintrospectable = errors.New("root object is not introspectable")

// DefaultMaxDepth bounds nested type recursion when Options.MaxDepth is zero.
const DefaultMaxDepth = 2

// Options control an extraction run.
type Options struct {
	// MaxDepth bounds recursion into nested struct types. 0 selects
	// DefaultMaxDepth; methods and fields of the root always count as depth 1.
	MaxDepth int

	// IncludePrivate includes unexported struct fields in the walk.
	IncludePrivate bool

	// ExcludePkg decides whether a package path belongs to a foreign
	// dependency that should not be walked into. Nil keeps everything that
	// shares the root type's module prefix plus the standard library.
	ExcludePkg func(pkgPath string) bool
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

// Extractor turns a root into a bounded, deduplicated component table.
// Implementations: ReflectExtractor (live values) and SourceExtractor
// (Go source packages).
type Extractor interface {
	Extract(opts Options) (*Extraction, error)
}

// ReflectExtractor discovers components of a live Go value: its method set,
// its struct fields, and the method sets of nested struct types, bounded by
// depth and visibility policy. Type identities break cycles, so mutually
// referencing types are each visited once.
type ReflectExtractor struct {
	root     any
	rootName string
	logger   *slog.Logger
}

// NewReflectExtractor creates an extractor for the given live root value.
// rootName becomes the first path segment; when empty, the root type's name
// is used.
func NewReflectExtractor(root any, rootName string, logger *slog.Logger) *ReflectExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReflectExtractor{root: root, rootName: rootName, logger: logger}
}

// walker carries the per-run traversal state.
type walker struct {
	opts      Options
	logger    *slog.Logger
	rootPkg   string
	seen      map[reflect.Type]bool
	out       []*Component
	types     map[string]reflect.Type
	typeNames map[string]string
}

// Extract walks the root value and returns its component table together with
// structural containment relationships.
func (e *ReflectExtractor) Extract(opts Options) (*Extraction, error) {
	if e.root == nil {
		return nil, fmt.Errorf("%w: root is nil", ErrRootUnintrospectable)
	}
	v := reflect.ValueOf(e.root)
	if !v.IsValid() {
		return nil, fmt.Errorf("%w: invalid value", ErrRootUnintrospectable)
	}

	t := derefType(v.Type())
	rootName := e.rootName
	if rootName == "" {
		rootName = t.Name()
	}
	if rootName == "" {
		return nil, fmt.Errorf("%w: anonymous root needs an explicit name", ErrRootUnintrospectable)
	}

	w := &walker{
		opts:      opts,
		logger:    e.logger,
		rootPkg:   packageRoot(t.PkgPath()),
		seen:      make(map[reflect.Type]bool),
		types:     make(map[string]reflect.Type),
		typeNames: make(map[string]string),
	}

	w.emit(&Component{
		Path:         rootName,
		Name:         rootName,
		Kind:         KindModule,
		OwningModule: rootName,
	}, t)
	w.walkType(t, rootName, rootName, 1)

	return &Extraction{
		Components:    w.out,
		Relationships: StructuralRelationships(w.types),
		TypeNames:     w.typeNames,
	}, nil
}

func (w *walker) emit(c *Component, t reflect.Type) {
	w.out = append(w.out, c)
	if t != nil {
		w.types[c.Path] = t
		w.typeNames[c.Path] = typeDisplayName(t)
	}
}

// walkType enumerates the methods and fields of t under the given path.
// depth is the depth of t's own members; recursion stops once it exceeds
// the configured maximum.
func (w *walker) walkType(t reflect.Type, path, owner string, depth int) {
	if depth > w.opts.maxDepth() {
		return
	}
	if w.seen[t] {
		return
	}
	w.seen[t] = true

	// The pointer type carries the full method set.
	pt := t
	if pt.Kind() != reflect.Pointer {
		pt = reflect.PointerTo(t)
	}
	for i := 0; i < pt.NumMethod(); i++ {
		w.member(pt.Method(i).Name, func() {
			m := pt.Method(i)
			w.emit(&Component{
				Path:          path + "." + m.Name,
				Name:          m.Name,
				Kind:          KindMethod,
				OwningModule:  owner,
				SignatureText: methodSignature(m),
			}, nil)
		})
	}

	if t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() && !w.opts.IncludePrivate {
			continue
		}
		w.member(f.Name, func() {
			w.field(f, path, owner, depth)
		})
	}
}

// field classifies one struct field and recurses into nested struct types.
func (w *walker) field(f reflect.StructField, path, owner string, depth int) {
	ft := containerElem(derefType(f.Type))
	fieldPath := path + "." + f.Name

	switch {
	case ft.Kind() == reflect.Struct && ft.Name() != "":
		if w.excluded(ft.PkgPath()) {
			return
		}
		w.emit(&Component{
			Path:          fieldPath,
			Name:          f.Name,
			Kind:          KindClass,
			OwningModule:  owner,
			SignatureText: typeDisplayName(ft),
		}, ft)
		w.walkType(ft, fieldPath, owner, depth+1)

	case ft.Kind() == reflect.Func:
		w.emit(&Component{
			Path:          fieldPath,
			Name:          f.Name,
			Kind:          KindFunction,
			OwningModule:  owner,
			SignatureText: ft.String(),
		}, nil)

	default:
		w.emit(&Component{
			Path:          fieldPath,
			Name:          f.Name,
			Kind:          KindConstant,
			OwningModule:  owner,
			SignatureText: f.Type.String(),
		}, nil)
	}
}

// member runs fn, recovering from panics so that one misbehaving descriptor
// cannot abort the whole walk.
func (w *walker) member(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Warn("skipping unintrospectable member",
				logging.Component(name),
				"panic", fmt.Sprint(r),
			)
		}
	}()
	fn()
}

func (w *walker) excluded(pkgPath string) bool {
	if w.opts.ExcludePkg != nil {
		return w.opts.ExcludePkg(pkgPath)
	}
	// Default policy: same module as the root, or the standard library.
	if pkgPath == "" || isStdlib(pkgPath) {
		return false
	}
	return packageRoot(pkgPath) != w.rootPkg
}

// derefType unwraps pointer types.
func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// containerElem unwraps slice, array and map value types so that a
// []Button field is treated as containing Button.
func containerElem(t reflect.Type) reflect.Type {
	for {
		switch t.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map, reflect.Pointer:
			t = t.Elem()
		default:
			return t
		}
	}
}

// methodSignature renders a method's signature without the receiver.
func methodSignature(m reflect.Method) string {
	sig := m.Type.String()
	// Drop the leading "func(" receiver argument for readability:
	// func(*T, int) error -> (int) error
	if i := strings.Index(sig, "("); i >= 0 {
		inner := sig[i+1:]
		if j := strings.Index(inner, ","); j >= 0 {
			return "func(" + strings.TrimSpace(inner[j+1:])
		}
		if j := strings.Index(inner, ")"); j >= 0 {
			return "func()" + inner[j+1:]
		}
	}
	return sig
}

func typeDisplayName(t reflect.Type) string {
	if t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// packageRoot returns the first path element of a package path, used to
// decide whether two packages belong to the same module.
func packageRoot(pkgPath string) string {
	if pkgPath == "" {
		return ""
	}
	parts := strings.SplitN(pkgPath, "/", 4)
	if len(parts) >= 3 && strings.Contains(parts[0], ".") {
		// Hosted module path like github.com/org/repo.
		return strings.Join(parts[:3], "/")
	}
	return parts[0]
}

// isStdlib reports whether a package path is from the Go standard library:
// the first path segment of stdlib packages carries no dot.
func isStdlib(pkgPath string) bool {
	if pkgPath == "" {
		return false
	}
	first := pkgPath
	if i := strings.Index(pkgPath, "/"); i >= 0 {
		first = pkgPath[:i]
	}
	return !strings.Contains(first, ".")
}
