// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package embed computes vector embeddings for graph node bodies, so
// pkg/vectorsearch has something to compare queries against. Embedding is
// a post-processing step: it never runs inside the extractor, only after a
// build or update has committed its nodes.
package embed

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
	"time"

	"github.com/kraklabs/codegraph/pkg/graph"
)

// Provider generates a single embedding vector for a text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RetryConfig bounds the backoff applied to a transient provider failure.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

func defaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialBackoff: 200 * time.Millisecond, MaxBackoff: 2 * time.Second, Multiplier: 2.0}
}

// OllamaProvider talks to a local Ollama server's native /api/embeddings
// endpoint. Ollama is the only embedding backend a self-hosted build can
// assume without an external API key.
type OllamaProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOllamaProvider builds a provider against baseURL (e.g.
// http://localhost:11434) using model (e.g. "nomic-embed-text").
func NewOllamaProvider(baseURL, model string, logger *slog.Logger) *OllamaProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &OllamaProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

type ollamaErrorResponse struct {
	Error string `json:"error"`
}

// isNomicModel models needing the asymmetric "search_document:" prefix
// Nomic's embedding family expects for corpus-side (as opposed to
// query-side) text.
func isNomicModel(model string) bool { return strings.Contains(strings.ToLower(model), "nomic") }

// Embed calls Ollama's /api/embeddings and returns an L2-normalized vector.
func (o *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	prompt := text
	if isNomicModel(o.model) {
		prompt = "search_document: " + text
	}

	body, err := json.Marshal(ollamaEmbedRequest{Model: o.model, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("embed: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: request ollama at %s: %w", o.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embed: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ollamaErrorResponse
		if jsonErr := json.Unmarshal(respBody, &errResp); jsonErr == nil && errResp.Error != "" {
			return nil, fmt.Errorf("embed: ollama status %d: %s", resp.StatusCode, errResp.Error)
		}
		return nil, fmt.Errorf("embed: ollama status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed ollamaEmbedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("embed: parse response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("embed: ollama returned an empty embedding")
	}

	vec := make([]float32, len(parsed.Embedding))
	for i, v := range parsed.Embedding {
		vec[i] = float32(v)
	}
	return normalize(vec), nil
}

func normalize(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Generator drives embedding across many graph nodes with bounded
// concurrency and retry-with-backoff around transient provider failures.
type Generator struct {
	provider Provider
	workers  int
	retry    RetryConfig
	logger   *slog.Logger
}

// NewGenerator builds a Generator. workers <= 0 defaults to 4.
func NewGenerator(provider Provider, workers int, logger *slog.Logger) *Generator {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{provider: provider, workers: workers, retry: defaultRetryConfig(), logger: logger}
}

// SetRetryConfig overrides the default backoff policy.
func (g *Generator) SetRetryConfig(cfg RetryConfig) {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 2 * time.Second
	}
	if cfg.Multiplier <= 1.0 {
		cfg.Multiplier = 2.0
	}
	g.retry = cfg
}

// Result summarizes one embedding pass over a node set.
type Result struct {
	Embedded int
	Skipped  int
	Errors   int
}

// embeddableKinds are the node kinds worth vector search over: code bodies
// with enough substance to carry semantic meaning. Imports, Libraries, and
// bare structural nodes are not embedded.
var embeddableKinds = map[graph.NodeKind]bool{
	graph.Function:  true,
	graph.Class:     true,
	graph.DataModel: true,
	graph.Endpoint:  true,
}

// EmbedGraph computes and writes back an embedding for every node in g
// whose kind is worth embedding and whose body is non-empty, using up to
// g.workers requests in flight at a time.
func (g *Generator) EmbedGraph(ctx context.Context, gr graph.Graph) (*Result, error) {
	result := &Result{}
	var targets []graph.Node
	for kind := range embeddableKinds {
		for _, n := range gr.FindNodesByType(kind) {
			if strings.TrimSpace(n.Data.Body) == "" {
				result.Skipped++
				continue
			}
			targets = append(targets, n)
		}
	}

	jobs := make(chan graph.Node, len(targets))
	results := make(chan error, len(targets))

	for w := 0; w < g.workers; w++ {
		go func() {
			for n := range jobs {
				vec, err := g.embedWithRetry(ctx, n.Data.Body)
				if err != nil {
					results <- err
					continue
				}
				n.Data.Embedding = vec
				results <- gr.AddNode(n.Kind, n.Data)
			}
		}()
	}
	for _, n := range targets {
		jobs <- n
	}
	close(jobs)

	for range targets {
		if err := <-results; err != nil {
			result.Errors++
			g.logger.Warn("embed.generator.node_error", "err", err)
			continue
		}
		result.Embedded++
	}
	return result, nil
}

func (g *Generator) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	backoff := g.retry.InitialBackoff
	var lastErr error
	for attempt := 0; attempt <= g.retry.MaxRetries; attempt++ {
		vec, err := g.provider.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if attempt == g.retry.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = time.Duration(math.Min(float64(backoff)*g.retry.Multiplier, float64(g.retry.MaxBackoff)))
	}
	return nil, fmt.Errorf("embed: exhausted retries: %w", lastErr)
}
