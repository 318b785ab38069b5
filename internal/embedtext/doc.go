// Package embedtext renders components into the natural-language text blocks
// that get embedded: an identity channel (name, kind, path, symbol, docs), an
// inputs channel (signature text) and a relationships channel (runtime
// co-occurrence plus structural containment). Rendering is deterministic so
// unchanged components re-embed to identical vectors.
package embedtext
