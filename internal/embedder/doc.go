// Package embedder provides text embedding for the semantic index.
//
// Gemini calls the official genai embedding endpoint; Hashing is a
// deterministic feature-hashing baseline used offline and in tests; Cached
// wraps either with an LRU so unchanged text is never embedded twice.
package embedder
