package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPConfig configures the HTTP-backed embedding callback. The
// embedding model itself is out of scope here; this just adapts a local
// embedding server's HTTP API into the Func signature New expects.
type HTTPConfig struct {
	// BaseURL is the embedding server's endpoint, e.g. http://127.0.0.1:11434/api/embeddings.
	BaseURL string

	// Model is the model name sent in the request body.
	Model string

	// PoolSize bounds idle HTTP connections kept warm to the backend.
	PoolSize int
}

type httpEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type httpEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewHTTPFunc builds a Func that calls a local embedding server over
// HTTP. Grounded on the teacher's OllamaEmbedder/MLXEmbedder: a pooled
// transport, and no client-level Timeout so the caller's context
// deadline is what actually bounds the request.
func NewHTTPFunc(cfg HTTPConfig) Func {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	transport := &http.Transport{
		MaxIdleConns:        poolSize,
		MaxIdleConnsPerHost: poolSize,
		MaxConnsPerHost:     poolSize * 2,
		IdleConnTimeout:     10 * time.Second,
	}
	client := &http.Client{Transport: transport}

	return func(ctx context.Context, text string) ([]float32, error) {
		body, err := json.Marshal(httpEmbedRequest{Model: cfg.Model, Input: text})
		if err != nil {
			return nil, fmt.Errorf("marshal embed request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build embed request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("call embedding backend: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return nil, fmt.Errorf("embedding backend returned %d: %s", resp.StatusCode, payload)
		}

		var out httpEmbedResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode embed response: %w", err)
		}
		return out.Embedding, nil
	}
}
