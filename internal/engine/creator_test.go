package engine

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/gauge-bench/internal/model"
)

const catalogBody = `{"data":[
	{"id":"openai/gpt-4o","name":"GPT-4o","architecture":{"input_modalities":["text","image"]}},
	{"id":"meta-llama/llama-3.2-11b-vision-instruct","name":"Llama Vision","architecture":{"input_modalities":["text","image"]}},
	{"id":"mistralai/mistral-7b","name":"Mistral 7B","architecture":{"input_modalities":["text"]}},
	{"id":"orphan","name":"No Org","architecture":{"input_modalities":["image"]}}
]}`

func catalogServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/models", r.URL.Path)
		_, _ = io.WriteString(w, catalogBody)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCatalogCachesModels(t *testing.T) {
	var hits atomic.Int32
	srv := catalogServer(t, &hits)
	c := New(testConfig(srv.URL)).Catalog()

	models, err := c.Models(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 4)
	assert.True(t, models[0].AcceptsImages())
	assert.False(t, models[2].AcceptsImages())

	m, found, err := c.Lookup(context.Background(), "mistralai/mistral-7b")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Mistral 7B", m.Name)

	_, found, err = c.Lookup(context.Background(), "nope/nope")
	require.NoError(t, err)
	assert.False(t, found)

	assert.EqualValues(t, 1, hits.Load())
}

func TestCatalogBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL)).Catalog().Models(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

type stubLookup struct {
	models map[string]CatalogModel
	err    error
	calls  int
}

func (s *stubLookup) Lookup(_ context.Context, id string) (CatalogModel, bool, error) {
	s.calls++
	if s.err != nil {
		return CatalogModel{}, false, s.err
	}
	m, ok := s.models[id]
	return m, ok, nil
}

func TestResolverResolve(t *testing.T) {
	lookup := &stubLookup{models: map[string]CatalogModel{
		"google/gemini-pro-vision": {ID: "google/gemini-pro-vision"},
		"orphan":                   {ID: "orphan"},
	}}
	r := &Resolver{Catalog: lookup}
	ctx := context.Background()

	assert.Equal(t, OpenAICreator, r.Resolve(ctx, "gpt-4o", model.APIOpenAI))
	assert.Equal(t, 0, lookup.calls, "openai models never hit the catalog")

	assert.Equal(t, "google", r.Resolve(ctx, "google/gemini-pro-vision", model.APIOpenRouter))
	assert.Equal(t, model.UnknownCreator, r.Resolve(ctx, "orphan", model.APIOpenRouter))
	assert.Equal(t, model.UnknownCreator, r.Resolve(ctx, "x/missing", model.APIOpenRouter))
	assert.Equal(t, model.UnknownCreator, r.Resolve(ctx, "google/gemini-pro-vision", "ollama"))
}

func TestResolverLookupFailure(t *testing.T) {
	r := &Resolver{Catalog: &stubLookup{err: errors.New("dial tcp: refused")}}
	assert.Equal(t, model.UnknownCreator, r.Resolve(context.Background(), "google/gemini-pro-vision", model.APIOpenRouter))

	assert.Equal(t, model.UnknownCreator, (&Resolver{}).Resolve(context.Background(), "a/b", model.APIOpenRouter))
}

func TestKnownCreator(t *testing.T) {
	assert.True(t, KnownCreator("OpenAI"))
	assert.False(t, KnownCreator(""))
	assert.False(t, KnownCreator("  "))
	assert.False(t, KnownCreator(model.UnknownCreator))
}
