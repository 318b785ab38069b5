// Package vecindex defines the pluggable vector store the semantic index
// persists to: named vectors per point (one embedding channel each), payload
// filters, and cosine-ranked nearest-neighbour queries.
//
// Memory keeps everything in process; SQLite persists points to an embedded
// database. Both report backend loss as ErrUnavailable so callers can tell
// "no matches" apart from "index unreachable".
package vecindex
