// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package encoder

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/novelty-engine/pkg/types"
)

// fakeOllama emulates the /api/embed endpoint. It records every request
// and can be told to reject specific models.
type fakeOllama struct {
	mu         sync.Mutex
	requests   []embedRequest
	failModels map[string]bool
	vectors    func(input []string) [][]float64
}

func (f *fakeOllama) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.requests = append(f.requests, req)
		fail := f.failModels[req.Model]
		f.mu.Unlock()

		if fail {
			http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
			return
		}

		vectors := f.vectors
		if vectors == nil {
			vectors = func(input []string) [][]float64 {
				out := make([][]float64, len(input))
				for i, s := range input {
					out[i] = []float64{float64(len(s)), 1}
				}
				return out
			}
		}
		json.NewEncoder(w).Encode(embedResponse{Embeddings: vectors(req.Input)})
	}
}

func (f *fakeOllama) recorded() []embedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]embedRequest(nil), f.requests...)
}

func newTestEncoder(t *testing.T, fake *fakeOllama) *Encoder {
	t.Helper()
	ts := httptest.NewServer(fake.handler())
	t.Cleanup(ts.Close)
	return New(types.EncoderConfig{BaseURL: ts.URL})
}

func TestEncodeDocumentsNormalizesVectors(t *testing.T) {
	fake := &fakeOllama{
		vectors: func(input []string) [][]float64 {
			out := make([][]float64, len(input))
			for i := range input {
				out[i] = []float64{3, 4}
			}
			return out
		},
	}
	enc := newTestEncoder(t, fake)

	vecs, err := enc.EncodeDocuments(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	for _, v := range vecs {
		assert.InDelta(t, 0.6, v[0], 1e-12)
		assert.InDelta(t, 0.8, v[1], 1e-12)

		var norm float64
		for _, x := range v {
			norm += x * x
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-12)
	}
}

func TestEncodePrefixesByMode(t *testing.T) {
	fake := &fakeOllama{}
	enc := newTestEncoder(t, fake)

	_, err := enc.EncodeQuery(context.Background(), "hypersonic glide vehicles")
	require.NoError(t, err)
	_, err = enc.EncodeDocuments(context.Background(), []string{"boost-glide trajectory study"})
	require.NoError(t, err)

	reqs := fake.recorded()
	// First request is the model probe, then the two encode calls.
	require.Len(t, reqs, 3)
	assert.Equal(t, "nomic-embed-text", reqs[1].Model)
	assert.Equal(t, []string{"search_query: hypersonic glide vehicles"}, reqs[1].Input)
	assert.Equal(t, []string{"search_document: boost-glide trajectory study"}, reqs[2].Input)
}

func TestFallbackModelDropsPrefix(t *testing.T) {
	fake := &fakeOllama{failModels: map[string]bool{"nomic-embed-text": true}}
	enc := newTestEncoder(t, fake)

	_, err := enc.EncodeQuery(context.Background(), "quantum sensing")
	require.NoError(t, err)

	reqs := fake.recorded()
	// Probe of the primary fails, probe of the fallback succeeds, then the
	// actual encode goes to the fallback without a task prefix.
	require.Len(t, reqs, 3)
	assert.Equal(t, "nomic-embed-text", reqs[0].Model)
	assert.Equal(t, "all-minilm", reqs[1].Model)
	assert.Equal(t, "all-minilm", reqs[2].Model)
	assert.Equal(t, []string{"quantum sensing"}, reqs[2].Input)
}

func TestBothModelsFail(t *testing.T) {
	fake := &fakeOllama{failModels: map[string]bool{
		"nomic-embed-text": true,
		"all-minilm":       true,
	}}
	enc := newTestEncoder(t, fake)

	_, err := enc.EncodeQuery(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback embedding model")

	// The failure is cached: a second call must not re-probe.
	before := len(fake.recorded())
	_, err = enc.EncodeQuery(context.Background(), "anything else")
	require.Error(t, err)
	assert.Equal(t, before, len(fake.recorded()))
}

func TestEmptyBatchSkipsBackend(t *testing.T) {
	fake := &fakeOllama{}
	enc := newTestEncoder(t, fake)

	vecs, err := enc.EncodeDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
	assert.Empty(t, fake.recorded())
}

func TestModelProbeRunsOnce(t *testing.T) {
	fake := &fakeOllama{}
	enc := newTestEncoder(t, fake)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := enc.EncodeQuery(context.Background(), "concurrent load")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	probes := 0
	for _, req := range fake.recorded() {
		if len(req.Input) == 1 && req.Input[0] == "warmup" {
			probes++
		}
	}
	assert.Equal(t, 1, probes)
}

func TestEmbeddingCountMismatch(t *testing.T) {
	fake := &fakeOllama{
		vectors: func(input []string) [][]float64 {
			return [][]float64{{1, 0}}
		},
	}
	enc := newTestEncoder(t, fake)

	_, err := enc.EncodeDocuments(context.Background(), []string{"one", "two"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}
