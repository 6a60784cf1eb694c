package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/twilog/twilogd/internal/rpc"
)

// Client is a daemon-facing JSON-RPC client used by the CLI. Each call
// dials a fresh connection: CLI invocations are one-shot processes, so
// there's no persistent connection to amortize the cost over.
type Client struct {
	socketPath string
	timeout    time.Duration
	requestID  atomic.Int64
}

// NewClient creates a daemon client from cfg.
func NewClient(cfg Config) *Client {
	return &Client{
		socketPath: cfg.SocketPath,
		timeout:    cfg.Timeout,
	}
}

// IsRunning reports whether the daemon is accepting connections.
func (c *Client) IsRunning() bool {
	conn, err := c.dial()
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func (c *Client) dial() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	return conn, nil
}

func (c *Client) deadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return deadline
}

// call sends one request and decodes its single, non-streaming reply
// into out.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.SetDeadline(c.deadline(ctx)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}

	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	rc := rpc.NewConn(conn)
	req := rpc.Request{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  rawParams,
	}
	if err := rc.WriteValue(req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	var resp rpc.Response
	if err := rc.ReadValue(&resp); err != nil {
		return fmt.Errorf("receive response: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%s: %s (code %d)", method, resp.Error.Message, resp.Error.Code)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(resp.Result, out)
}

// callStreaming sends one request and collects every chunk of a
// streaming reply, passing each chunk's raw result to onChunk in
// arrival order.
func (c *Client) callStreaming(ctx context.Context, method string, params any, onChunk func(json.RawMessage) error) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.SetDeadline(c.deadline(ctx)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}

	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	rc := rpc.NewConn(conn)
	req := rpc.Request{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  rawParams,
	}
	if err := rc.WriteValue(req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	for {
		var resp rpc.Response
		if err := rc.ReadValue(&resp); err != nil {
			return fmt.Errorf("receive response: %w", err)
		}
		if resp.Error != nil {
			return fmt.Errorf("%s: %s (code %d)", method, resp.Error.Message, resp.Error.Code)
		}
		if err := onChunk(resp.Result); err != nil {
			return err
		}
		if resp.More == nil || !*resp.More {
			return nil
		}
	}
}

// GetStatus requests the daemon's current readiness and model info.
func (c *Client) GetStatus(ctx context.Context) (getStatusResult, error) {
	var out getStatusResult
	err := c.call(ctx, MethodGetStatus, struct{}{}, &out)
	return out, err
}

// StopServer asks the daemon to shut down.
func (c *Client) StopServer(ctx context.Context) error {
	var out stopServerResult
	return c.call(ctx, MethodStopServer, struct{}{}, &out)
}

// EmbedText embeds text and returns the base64 safetensors-encoded vector.
func (c *Client) EmbedText(ctx context.Context, text string) (string, error) {
	var out embedTextResult
	err := c.call(ctx, MethodEmbedText, embedTextParams{Text: text}, &out)
	return out.Vector, err
}

// VectorSearch streams every (post_id, score) chunk of a raw vector
// search, invoking onChunk once per chunk in rank order.
func (c *Client) VectorSearch(ctx context.Context, query string, topK int, mode string, weights []float64, onChunk func(vectorSearchResult) error) error {
	params := vectorSearchParams{Query: query, TopK: topK, Mode: mode, Weights: weights}
	return c.callStreaming(ctx, MethodVectorSearch, params, func(raw json.RawMessage) error {
		var chunk vectorSearchResult
		if err := json.Unmarshal(raw, &chunk); err != nil {
			return fmt.Errorf("decode vector_search chunk: %w", err)
		}
		return onChunk(chunk)
	})
}

// SearchSimilar runs the full filtered, hydrated semantic search pipeline.
func (c *Client) SearchSimilar(ctx context.Context, query string, settings json.RawMessage, mode string, weights []float64) (json.RawMessage, error) {
	var out json.RawMessage
	params := searchSimilarParams{Query: query, Settings: settings, Mode: mode, Weights: weights}
	err := c.call(ctx, MethodSearchSimilar, params, &out)
	return out, err
}

// SearchPostsByText runs a plain substring search over one text source.
func (c *Client) SearchPostsByText(ctx context.Context, term string, limit int, source string) (json.RawMessage, error) {
	var out json.RawMessage
	params := searchPostsByTextParams{SearchTerm: term, Limit: limit, Source: source}
	err := c.call(ctx, MethodSearchPostsByText, params, &out)
	return out, err
}

// GetUserStats returns post counts per author, most active first.
func (c *Client) GetUserStats(ctx context.Context, limit int) ([]userStat, error) {
	var out []userStat
	err := c.call(ctx, MethodGetUserStats, getUserStatsParams{Limit: limit}, &out)
	return out, err
}

// GetDatabaseStats returns corpus-wide totals and the post date range.
func (c *Client) GetDatabaseStats(ctx context.Context) (getDatabaseStatsResult, error) {
	var out getDatabaseStatsResult
	err := c.call(ctx, MethodGetDatabaseStats, struct{}{}, &out)
	return out, err
}

// GetUserList returns every known author.
func (c *Client) GetUserList(ctx context.Context) ([]string, error) {
	var out []string
	err := c.call(ctx, MethodGetUserList, struct{}{}, &out)
	return out, err
}

// SuggestUsers returns closest-match suggestions for unrecognised author names.
func (c *Client) SuggestUsers(ctx context.Context, names []string) (map[string][]string, error) {
	var out suggestUsersResult
	err := c.call(ctx, MethodSuggestUsers, suggestUsersParams{UserList: names}, &out)
	return out.Missing, err
}
