// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package encoder turns text into unit-length embedding vectors using a
// local Ollama instance. The model is loaded lazily on first use: the
// primary model is probed once, and if it is unavailable the encoder
// switches to a smaller fallback model for the life of the process.
package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/novelty-engine/internal/metrics"
	"github.com/pdiddy/novelty-engine/pkg/types"
)

const (
	defaultBaseURL = "http://localhost:11434"

	// nomic-embed-text is trained with task prefixes and gives asymmetric
	// query/document embeddings; all-minilm works without prefixes.
	defaultModel         = "nomic-embed-text"
	defaultFallbackModel = "all-minilm"

	defaultTimeout = 60 * time.Second
)

// Encoder embeds text via the Ollama embeddings API. All returned vectors
// are L2-normalized, so a dot product of two of them is their cosine
// similarity. Safe for concurrent use.
type Encoder struct {
	// Metrics counts model fallbacks when set.
	Metrics *metrics.Metrics

	cfg    types.EncoderConfig
	client *http.Client

	initOnce sync.Once
	initErr  error
	model    string
}

// New returns an Encoder for the given configuration. Zero-value fields
// fall back to the package defaults.
func New(cfg types.EncoderConfig) *Encoder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Encoder{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// EncodeQuery embeds a single search query.
func (e *Encoder) EncodeQuery(ctx context.Context, text string) ([]float64, error) {
	vecs, err := e.encode(ctx, modeQuery, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vecs[0], nil
}

// EncodeQueries embeds a batch of query-side strings, such as concept
// terms matched against document embeddings.
func (e *Encoder) EncodeQueries(ctx context.Context, texts []string) ([][]float64, error) {
	return e.encode(ctx, modeQuery, texts)
}

// EncodeDocuments embeds a batch of documents. The result has one vector
// per input, in input order. An empty batch returns nil without touching
// the backend.
func (e *Encoder) EncodeDocuments(ctx context.Context, texts []string) ([][]float64, error) {
	return e.encode(ctx, modeDocument, texts)
}

type mode int

const (
	modeQuery mode = iota
	modeDocument
)

func (e *Encoder) encode(ctx context.Context, m mode, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := e.ensureModel(ctx); err != nil {
		return nil, err
	}

	prefix := modelPrefix(e.model, m)
	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = prefix + t
	}

	vecs, err := e.embed(ctx, e.model, input)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d vectors for %d inputs", len(vecs), len(texts))
	}
	for _, v := range vecs {
		normalize(v)
	}
	return vecs, nil
}

// ensureModel resolves which model to use, exactly once. The primary model
// is probed with a throwaway input; on failure the fallback is probed. A
// failed load is cached and not retried.
func (e *Encoder) ensureModel(ctx context.Context) error {
	e.initOnce.Do(func() {
		primary := e.cfg.Model
		if primary == "" {
			primary = defaultModel
		}
		_, err := e.embed(ctx, primary, []string{"warmup"})
		if err == nil {
			e.model = primary
			return
		}

		fallback := e.cfg.FallbackModel
		if fallback == "" {
			fallback = defaultFallbackModel
		}
		slog.Warn("primary embedding model unavailable, using fallback",
			"model", primary, "fallback", fallback, "error", err)
		e.Metrics.RecordEncoderFallback()
		if _, err := e.embed(ctx, fallback, []string{"warmup"}); err != nil {
			e.initErr = fmt.Errorf("loading fallback embedding model %s: %w", fallback, err)
			return
		}
		e.model = fallback
	})
	return e.initErr
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (e *Encoder) embed(ctx context.Context, model string, input []string) ([][]float64, error) {
	body, err := json.Marshal(embedRequest{Model: model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("encoding embed request: %w", err)
	}

	base := e.cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", e.cfg.UserAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("embedding API returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var er embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("parsing embedding response: %w", err)
	}
	return er.Embeddings, nil
}

// modelPrefix returns the task prefix the model expects for the given mode.
// Only the nomic family uses prefixes.
func modelPrefix(model string, m mode) string {
	if !strings.HasPrefix(model, "nomic") {
		return ""
	}
	if m == modeQuery {
		return "search_query: "
	}
	return "search_document: "
}

// normalize scales v to unit length in place. Zero vectors are left alone.
func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] *= inv
	}
}
