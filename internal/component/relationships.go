package component

import (
	"reflect"
	"sort"
)

// StructuralRelationships derives "contains" edges from typed struct fields:
// a parent component whose type has a field of (or of a container of) another
// known component's type gets a directed edge to that component, labelled
// with the field name.
//
// Pointer, slice, array and map-value wrappers are unwrapped, so both
// `Buttons []Button` and `Primary *Button` relate a Card to Button.
// Field types that match no known component are skipped.
func StructuralRelationships(types map[string]reflect.Type) []Relationship {
	if len(types) == 0 {
		return nil
	}

	// Reverse index: type identity -> first discovered path. Components
	// re-exposed at several paths still resolve to one canonical child.
	paths := make([]string, 0, len(types))
	for p := range types {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	byType := make(map[reflect.Type]string, len(types))
	for _, p := range paths {
		t := types[p]
		if _, ok := byType[t]; !ok {
			byType[t] = p
		}
	}

	var rels []Relationship
	for _, parent := range paths {
		t := types[parent]
		if t.Kind() != reflect.Struct {
			continue
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			ft := containerElem(derefType(f.Type))
			child, ok := byType[ft]
			if !ok || child == parent {
				continue
			}
			rels = append(rels, Relationship{
				ParentPath: parent,
				ChildPath:  child,
				FieldName:  f.Name,
			})
		}
	}
	return rels
}

// RelationshipsFor filters edges touching the given path.
func RelationshipsFor(rels []Relationship, path string) (parents, children []Relationship) {
	for _, r := range rels {
		switch path {
		case r.ChildPath:
			parents = append(parents, r)
		case r.ParentPath:
			children = append(children, r)
		}
	}
	return parents, children
}
