package embedder

import (
	"context"
	"fmt"

	genai "google.golang.org/genai"
)

// DefaultGeminiModel is the embedding model used when none is configured.
const DefaultGeminiModel = "gemini-embedding-001"

// DefaultGeminiDim is the requested output dimensionality.
const DefaultGeminiDim = 768

// Gemini is a thin wrapper around the official genai client's embedding
// endpoint. It only focuses on the API call itself; caching and batching
// policy live in the Cached decorator and the caller.
type Gemini struct {
	cli   *genai.Client
	model string
	dim   int
}

// NewGemini creates an embedder backed by the Gemini API. The API key is
// read from the environment by the genai client (GEMINI_API_KEY or
// GOOGLE_API_KEY). model and dim fall back to defaults when zero-valued.
func NewGemini(ctx context.Context, model string, dim int) (*Gemini, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if dim <= 0 {
		dim = DefaultGeminiDim
	}
	return &Gemini{cli: cli, model: model, dim: dim}, nil
}

func (g *Gemini) Dim() int     { return g.dim }
func (g *Gemini) Name() string { return "gemini:" + g.model }

// Embed embeds a batch of texts in one EmbedContent call.
func (g *Gemini) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{Parts: []*genai.Part{{Text: text}}}
	}

	dim := int32(g.dim)
	resp, err := g.cli.Models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("embed %d texts with %s: %w", len(texts), g.model, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("embed: empty embedding at index %d", i)
		}
		out[i] = emb.Values
	}
	return out, nil
}
