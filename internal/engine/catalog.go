package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
)

// CatalogModel is one entry of the OpenRouter model catalog.
type CatalogModel struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Architecture struct {
		InputModalities []string `json:"input_modalities"`
	} `json:"architecture"`
}

// AcceptsImages reports whether the model takes image input.
func (m CatalogModel) AcceptsImages() bool {
	return slices.Contains(m.Architecture.InputModalities, "image")
}

// Catalog fetches the OpenRouter model list once and caches it,
// including a failed fetch, for the lifetime of the Catalog.
type Catalog struct {
	BaseURL string
	APIKey  string
	Client  HTTPDoer

	mu     sync.Mutex
	loaded bool
	models []CatalogModel
	err    error
}

// Catalog returns a catalog client for the configured OpenRouter endpoint.
// The API key is optional; the catalog is public.
func (e *Engine) Catalog() *Catalog {
	return &Catalog{
		BaseURL: strings.TrimRight(e.Config.OpenRouter.BaseURL, "/"),
		APIKey:  e.Config.OpenRouter.APIKey,
		Client:  e.Client,
	}
}

// Models returns the catalog, fetching it on first use.
func (c *Catalog) Models(ctx context.Context) ([]CatalogModel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		c.models, c.err = c.fetch(ctx)
		c.loaded = true
	}
	return c.models, c.err
}

// Lookup finds a model by exact id.
func (c *Catalog) Lookup(ctx context.Context, modelID string) (CatalogModel, bool, error) {
	models, err := c.Models(ctx)
	if err != nil {
		return CatalogModel{}, false, err
	}
	for _, m := range models {
		if m.ID == modelID {
			return m, true, nil
		}
	}
	return CatalogModel{}, false, nil
}

func (c *Catalog) fetch(ctx context.Context) ([]CatalogModel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("catalog bad status: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Data []CatalogModel `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return payload.Data, nil
}
