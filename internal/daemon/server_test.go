package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twilog/twilogd/internal/embedder"
	"github.com/twilog/twilogd/internal/postrepo"
	"github.com/twilog/twilogd/internal/rpc"
	"github.com/twilog/twilogd/internal/searchengine"
	"github.com/twilog/twilogd/internal/summaryrepo"
)

const testCSV = `1,https://x.com/alice/status/1,2023-01-01 00:00:00,hello world,1
2,https://x.com/bob/status/2,2023-06-01 00:00:00,machine learning,1
`

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "posts.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(testCSV), 0644))

	posts := postrepo.New()
	require.NoError(t, posts.Load(csvPath))
	summaries := summaryrepo.New()

	fn := func(_ context.Context, text string) ([]float32, error) {
		return make([]float32, embedder.Dims), nil
	}
	embed, err := embedder.New(fn, "test-model", 0)
	require.NoError(t, err)

	engine := searchengine.New(embed, nil, nil, nil, posts, summaries)
	handler := NewHandler(embed, engine, posts, summaries, nil, csvPath, "test-model")

	socketPath := filepath.Join(dir, "daemon.sock")
	return NewServer(socketPath, handler), socketPath
}

func runTestServer(t *testing.T, s *Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("server did not shut down in time")
		}
	})
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	for i := 0; i < 50; i++ {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("socket %s never appeared", path)
}

func TestServer_GetStatus(t *testing.T) {
	s, socketPath := newTestServer(t)
	runTestServer(t, s)
	waitForSocket(t, socketPath)

	client := NewClient(Config{SocketPath: socketPath, Timeout: 5 * time.Second})
	status, err := client.GetStatus(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ready", status.Status)
	assert.True(t, status.Ready)
	assert.Equal(t, "test-model", status.Model)
}

func TestServer_GetUserList(t *testing.T) {
	s, socketPath := newTestServer(t)
	runTestServer(t, s)
	waitForSocket(t, socketPath)

	client := NewClient(Config{SocketPath: socketPath, Timeout: 5 * time.Second})
	users, err := client.GetUserList(context.Background())

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, users)
}

func TestServer_GetUserStats(t *testing.T) {
	s, socketPath := newTestServer(t)
	runTestServer(t, s)
	waitForSocket(t, socketPath)

	client := NewClient(Config{SocketPath: socketPath, Timeout: 5 * time.Second})
	stats, err := client.GetUserStats(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 1, stats[0].PostCount)
}

func TestServer_EmbedText(t *testing.T) {
	s, socketPath := newTestServer(t)
	runTestServer(t, s)
	waitForSocket(t, socketPath)

	client := NewClient(Config{SocketPath: socketPath, Timeout: 5 * time.Second})
	vec, err := client.EmbedText(context.Background(), "hello")

	require.NoError(t, err)
	assert.NotEmpty(t, vec)
}

func TestServer_SuggestUsers(t *testing.T) {
	s, socketPath := newTestServer(t)
	runTestServer(t, s)
	waitForSocket(t, socketPath)

	client := NewClient(Config{SocketPath: socketPath, Timeout: 5 * time.Second})
	missing, err := client.SuggestUsers(context.Background(), []string{"alicee"})

	require.NoError(t, err)
	assert.Contains(t, missing["alicee"], "alice")
}

func TestServer_VectorSearch_NoTopKReturnsEveryRow(t *testing.T) {
	s, socketPath := newTestServer(t)
	runTestServer(t, s)
	waitForSocket(t, socketPath)

	client := NewClient(Config{SocketPath: socketPath, Timeout: 5 * time.Second})

	var rows int
	var firstStartRank = -1
	err := client.VectorSearch(context.Background(), "hello", 0, "content", nil, func(chunk vectorSearchResult) error {
		if firstStartRank == -1 {
			firstStartRank = chunk.StartRank
		}
		rows += len(chunk.Data)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, rows, "absent top_k must not truncate to the search_similar default of 10")
	assert.Equal(t, 1, firstStartRank, "the first chunk's start_rank must be 1-based")
}

func TestServer_SearchSimilar_RejectsOutOfRangeTopK(t *testing.T) {
	s, socketPath := newTestServer(t)
	runTestServer(t, s)
	waitForSocket(t, socketPath)

	client := NewClient(Config{SocketPath: socketPath, Timeout: 5 * time.Second})
	settings, err := json.Marshal(map[string]any{"top_k": 101})
	require.NoError(t, err)

	_, err = client.SearchSimilar(context.Background(), "hello", settings, "content", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top_k")
}

func TestServer_GetUserStats_RejectsOutOfRangeLimit(t *testing.T) {
	s, socketPath := newTestServer(t)
	runTestServer(t, s)
	waitForSocket(t, socketPath)

	client := NewClient(Config{SocketPath: socketPath, Timeout: 5 * time.Second})
	_, err := client.GetUserStats(context.Background(), 1001)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")
}

func TestServer_EmbedText_InvalidParamsMapsToInvalidParamsCode(t *testing.T) {
	s, socketPath := newTestServer(t)
	runTestServer(t, s)
	waitForSocket(t, socketPath)

	client := NewClient(Config{SocketPath: socketPath, Timeout: 5 * time.Second})
	var out embedTextResult
	err := client.call(context.Background(), MethodEmbedText, []int{1, 2, 3}, &out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("code %d", rpc.CodeInvalidParams))
}

func TestServer_UnknownMethod_ReturnsError(t *testing.T) {
	s, socketPath := newTestServer(t)
	runTestServer(t, s)
	waitForSocket(t, socketPath)

	client := NewClient(Config{SocketPath: socketPath, Timeout: 5 * time.Second})
	err := client.call(context.Background(), "no_such_method", struct{}{}, nil)

	require.Error(t, err)
}

func TestServer_StopServer_ShutsDownCleanly(t *testing.T) {
	s, socketPath := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()
	waitForSocket(t, socketPath)

	client := NewClient(Config{SocketPath: socketPath, Timeout: 5 * time.Second})
	require.NoError(t, client.StopServer(context.Background()))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after stop_server")
	}
}
