// Package component turns arbitrary roots into flat, deduplicated tables of
// introspected components with stable dotted paths.
//
// Two extraction strategies implement the Extractor interface:
//
//   - ReflectExtractor walks a live Go value at runtime: its method set, its
//     struct fields, and nested struct types, bounded by depth and visibility
//     policy. Cycles are broken with a visited set keyed by type identity.
//   - SourceExtractor loads Go source packages through go/packages and
//     go/doc, so components carry real doc comments and rendered signatures.
//
// The package also assigns each component a short unique Unicode symbol for
// compact references (AssignSymbols), derives structural "contains" edges
// from typed struct fields (StructuralRelationships), and resolves dotted
// paths back to live objects (Resolve) for search-time handle recovery.
package component
