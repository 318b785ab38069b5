package component

import (
	"fmt"
	"go/doc"
	"go/token"
	"go/types"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/modscope/modscope/internal/logging"
)

// SourceExtractor discovers components of Go source packages matched by a
// package pattern (e.g. "encoding/json" or "./..."). Unlike the reflect
// extractor it sees doc comments, so the identity channel of source-indexed
// components carries real documentation.
//
// Go types do not nest, so Options.MaxDepth has no effect here; visibility is
// honoured through Options.IncludePrivate (unexported declarations).
type SourceExtractor struct {
	pattern string
	logger  *slog.Logger
}

// NewSourceExtractor creates an extractor for the given package pattern.
func NewSourceExtractor(pattern string, logger *slog.Logger) *SourceExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceExtractor{pattern: pattern, logger: logger}
}

// Extract loads the pattern and returns the component table of every matched
// package. Packages that fail to load are logged and skipped; the extraction
// fails hard only when nothing loads at all.
func (e *SourceExtractor) Extract(opts Options) (*Extraction, error) {
	pattern := strings.TrimSpace(e.pattern)
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty package pattern", ErrRootUnintrospectable)
	}

	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
			packages.NeedTypes | packages.NeedTypesInfo,
	}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: load %q: %v", ErrRootUnintrospectable, pattern, err)
	}

	ext := &Extraction{TypeNames: make(map[string]string)}
	classTypes := make(map[string]types.Type)
	loaded := 0

	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			e.logger.Warn("skipping package with load errors",
				logging.Component(pkg.PkgPath),
				logging.Err(pkg.Errors[0]),
			)
			continue
		}
		if pkg.Types == nil || len(pkg.Syntax) == 0 {
			continue
		}
		if err := e.extractPackage(pkg, opts, ext, classTypes); err != nil {
			e.logger.Warn("skipping package",
				logging.Component(pkg.PkgPath), logging.Err(err))
			continue
		}
		loaded++
	}
	if loaded == 0 {
		return nil, fmt.Errorf("%w: no loadable packages for %q", ErrRootUnintrospectable, pattern)
	}

	ext.Relationships = sourceRelationships(classTypes)
	return ext, nil
}

func (e *SourceExtractor) extractPackage(pkg *packages.Package, opts Options, ext *Extraction, classTypes map[string]types.Type) error {
	mode := doc.Mode(0)
	if opts.IncludePrivate {
		mode |= doc.AllDecls
	}
	docPkg, err := doc.NewFromFiles(pkg.Fset, pkg.Syntax, pkg.PkgPath, mode)
	if err != nil {
		return err
	}

	base := pkg.PkgPath
	emit := func(c *Component) { ext.Components = append(ext.Components, c) }

	emit(&Component{
		Path:         base,
		Name:         pkg.Name,
		Kind:         KindModule,
		OwningModule: base,
		Docstring:    strings.TrimSpace(docPkg.Doc),
	})

	visible := func(name string) bool {
		return opts.IncludePrivate || token.IsExported(name)
	}

	for _, fn := range docPkg.Funcs {
		if !visible(fn.Name) {
			continue
		}
		emit(&Component{
			Path:          base + "." + fn.Name,
			Name:          fn.Name,
			Kind:          KindFunction,
			OwningModule:  base,
			Docstring:     strings.TrimSpace(fn.Doc),
			SignatureText: signatureText(pkg, "", fn.Name),
		})
	}

	emitValues := func(values []*doc.Value) {
		for _, val := range values {
			for _, name := range val.Names {
				if !visible(name) {
					continue
				}
				emit(&Component{
					Path:          base + "." + name,
					Name:          name,
					Kind:          KindConstant,
					OwningModule:  base,
					Docstring:     strings.TrimSpace(val.Doc),
					SignatureText: signatureText(pkg, "", name),
				})
			}
		}
	}
	emitValues(docPkg.Consts)
	emitValues(docPkg.Vars)

	for _, typ := range docPkg.Types {
		if !visible(typ.Name) {
			continue
		}
		classPath := base + "." + typ.Name
		emit(&Component{
			Path:          classPath,
			Name:          typ.Name,
			Kind:          KindClass,
			OwningModule:  base,
			Docstring:     strings.TrimSpace(typ.Doc),
			SignatureText: signatureText(pkg, "", typ.Name),
		})
		ext.TypeNames[classPath] = base + "." + typ.Name
		if obj := pkg.Types.Scope().Lookup(typ.Name); obj != nil {
			classTypes[classPath] = obj.Type()
		}

		// Constructors are grouped under their result type by go/doc.
		for _, fn := range typ.Funcs {
			if !visible(fn.Name) {
				continue
			}
			emit(&Component{
				Path:          base + "." + fn.Name,
				Name:          fn.Name,
				Kind:          KindFunction,
				OwningModule:  base,
				Docstring:     strings.TrimSpace(fn.Doc),
				SignatureText: signatureText(pkg, "", fn.Name),
			})
		}
		for _, m := range typ.Methods {
			if !visible(m.Name) {
				continue
			}
			emit(&Component{
				Path:          classPath + "." + m.Name,
				Name:          m.Name,
				Kind:          KindMethod,
				OwningModule:  base,
				Docstring:     strings.TrimSpace(m.Doc),
				SignatureText: signatureText(pkg, typ.Name, m.Name),
			})
		}
		emitValues(typ.Consts)
		emitValues(typ.Vars)
	}
	return nil
}

// signatureText renders the declared type of a package-scope object, or of a
// method when typeName is given. Unresolvable names yield "".
func signatureText(pkg *packages.Package, typeName, name string) string {
	scope := pkg.Types.Scope()
	qual := types.RelativeTo(pkg.Types)

	if typeName == "" {
		obj := scope.Lookup(name)
		if obj == nil {
			return ""
		}
		return types.TypeString(obj.Type(), qual)
	}

	obj := scope.Lookup(typeName)
	tn, ok := obj.(*types.TypeName)
	if !ok {
		return ""
	}
	ms := types.NewMethodSet(types.NewPointer(tn.Type()))
	for i := 0; i < ms.Len(); i++ {
		if sel := ms.At(i); sel.Obj().Name() == name {
			return types.TypeString(sel.Obj().Type(), qual)
		}
	}
	return ""
}

// sourceRelationships mirrors StructuralRelationships for source-extracted
// classes, matching struct field types against known class components.
func sourceRelationships(classTypes map[string]types.Type) []Relationship {
	if len(classTypes) == 0 {
		return nil
	}
	paths := make([]string, 0, len(classTypes))
	byType := make(map[types.Type]string, len(classTypes))
	for p := range classTypes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if _, ok := byType[classTypes[p]]; !ok {
			byType[classTypes[p]] = p
		}
	}

	var rels []Relationship
	for _, parent := range paths {
		st, ok := classTypes[parent].Underlying().(*types.Struct)
		if !ok {
			continue
		}
		for i := 0; i < st.NumFields(); i++ {
			f := st.Field(i)
			ft := unwrapSourceType(f.Type())
			child, ok := byType[ft]
			if !ok || child == parent {
				continue
			}
			rels = append(rels, Relationship{
				ParentPath: parent,
				ChildPath:  child,
				FieldName:  f.Name(),
			})
		}
	}
	return rels
}

// unwrapSourceType strips pointer, slice, array and map-value wrappers.
func unwrapSourceType(t types.Type) types.Type {
	for {
		switch u := t.(type) {
		case *types.Pointer:
			t = u.Elem()
		case *types.Slice:
			t = u.Elem()
		case *types.Array:
			t = u.Elem()
		case *types.Map:
			t = u.Elem()
		default:
			return t
		}
	}
}
