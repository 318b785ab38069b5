package component

// Kind classifies what a discovered component is.
type Kind string

// Component kinds. "class" covers named struct types, matching the vocabulary
// used in index payloads and search filters.
const (
	KindFunction Kind = "function"
	KindClass    Kind = "class"
	KindMethod   Kind = "method"
	KindConstant Kind = "constant"
	KindModule   Kind = "module"
)

// Valid reports whether k is one of the known component kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindFunction, KindClass, KindMethod, KindConstant, KindModule:
		return true
	}
	return false
}

// Component is one introspected unit of a wrapped root object: a function,
// type, method, constant or the root module itself.
//
// The record is owned by the index. The underlying live object is never held
// here; it is re-resolved by path at search time so that a rebuilt or swapped
// root does not leave dangling references.
type Component struct {
	// Path is the dotted path from the root, unique within an index,
	// e.g. "encoding/json.Encoder.Encode" or "server.Graph.RecordToolCall".
	Path string `json:"path"`

	// Name is the last path segment.
	Name string `json:"name"`

	// Kind classifies the component.
	Kind Kind `json:"kind"`

	// OwningModule identifies the root the component was discovered under.
	OwningModule string `json:"owning_module"`

	// Docstring holds the doc comment when the extractor can see one
	// (source extraction); empty for purely runtime extraction.
	Docstring string `json:"docstring,omitempty"`

	// Symbol is the short unique token assigned by the symbol assigner.
	Symbol string `json:"symbol,omitempty"`

	// SignatureText is the rendered parameter/type text, used for the
	// "inputs" embedding channel.
	SignatureText string `json:"signature_text,omitempty"`
}

// Relationship is a structural "contains" edge between two components,
// derived from typed fields rather than from runtime call order.
type Relationship struct {
	ParentPath string `json:"parent_path"`
	ChildPath  string `json:"child_path"`
	FieldName  string `json:"field_name"`
}

// Extraction is the result of one extractor run: the ordered component table
// (discovery order), the structural containment edges, and the type table
// used to derive them. TypeNames maps component paths to the fully qualified
// type name backing the component, when the extractor knows one.
type Extraction struct {
	Components    []*Component
	Relationships []Relationship
	TypeNames     map[string]string
}

// Paths returns the component paths in discovery order.
func (e *Extraction) Paths() []string {
	paths := make([]string, len(e.Components))
	for i, c := range e.Components {
		paths[i] = c.Path
	}
	return paths
}

// ByPath returns the component with the given path, or nil.
func (e *Extraction) ByPath(path string) *Component {
	for _, c := range e.Components {
		if c.Path == path {
			return c
		}
	}
	return nil
}
