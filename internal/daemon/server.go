package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/twilog/twilogd/internal/rpc"
)

// rpcHandler answers one request's params and returns the wire-format
// result (or an error to be mapped via rpc.MapError). Built once into a
// map, never dispatched through reflection.
type rpcHandler func(ctx context.Context, params json.RawMessage) (any, error)

// Server listens on a Unix socket and serves JSON-RPC requests with the
// streaming extension. One goroutine per connection processes that
// connection's requests strictly in order, so responses for a given
// connection are never interleaved even for a chunked vector_search
// reply.
type Server struct {
	socketPath string
	listener   net.Listener
	handler    *Handler
	started    time.Time
	dispatch   map[string]rpcHandler

	mu       sync.Mutex
	shutdown bool
	wg       sync.WaitGroup
}

// NewServer builds a server bound to socketPath, with its dispatch table
// constructed once against h.
func NewServer(socketPath string, h *Handler) *Server {
	s := &Server{
		socketPath: socketPath,
		handler:    h,
		started:    time.Now(),
	}
	s.dispatch = map[string]rpcHandler{
		MethodGetStatus:         h.getStatus,
		MethodCheckInit:         h.checkInit,
		MethodStopServer:        s.stopServer,
		MethodEmbedText:         h.embedText,
		MethodSearchSimilar:     h.searchSimilar,
		MethodSearchPostsByText: h.searchPostsByText,
		MethodGetUserStats:      h.getUserStats,
		MethodGetDatabaseStats:  h.getDatabaseStats,
		MethodGetUserList:       h.getUserList,
		MethodSuggestUsers:      h.suggestUsers,
		// MethodVectorSearch is handled separately in handleRequest: its
		// reply is streamed in vectorSearchChunkSize-row chunks rather
		// than returned as a single rpcHandler result.
	}
	return s
}

func (s *Server) stopServer(context.Context, json.RawMessage) (any, error) {
	go s.Close()
	return stopServerResult{Status: "stopping"}, nil
}

// ListenAndServe accepts connections on socketPath until ctx is
// cancelled or Close is called.
func (s *Server) ListenAndServe(ctx context.Context) error {
	_ = os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	s.listener = listener

	defer func() {
		_ = listener.Close()
		_ = os.Remove(s.socketPath)
	}()

	slog.Info("daemon listening", slog.String("socket", s.socketPath))

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			shutdown := s.shutdown
			s.mu.Unlock()
			if shutdown {
				break
			}
			slog.Error("accept error", slog.String("error", err.Error()))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn)
		}()
	}

	s.wg.Wait()
	return nil
}

// serveConn processes every request on conn in order until the client
// disconnects or the connection errors out. Requests are handled
// sequentially per connection: the next frame isn't read until the
// previous reply (all of its chunks, for a streaming method) has been
// fully written.
func (s *Server) serveConn(ctx context.Context, netConn net.Conn) {
	defer netConn.Close()
	conn := rpc.NewConn(netConn)

	for {
		req, err := conn.ReadRequest()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("connection read error", slog.String("error", err.Error()))
			}
			return
		}

		if req.JSONRPC != "2.0" {
			_ = conn.WriteResponse(rpc.NewError(req.ID, rpc.CodeInvalidRequest, "jsonrpc version must be \"2.0\""))
			continue
		}

		if req.Method == MethodVectorSearch {
			s.handleVectorSearch(ctx, conn, req)
			continue
		}

		handler, ok := s.dispatch[req.Method]
		if !ok {
			_ = conn.WriteResponse(rpc.NewError(req.ID, rpc.CodeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method)))
			continue
		}

		result, err := handler(ctx, req.Params)
		if err != nil {
			code, msg := rpc.MapError(err)
			_ = conn.WriteResponse(rpc.NewError(req.ID, code, msg))
			continue
		}

		resp, err := rpc.NewResult(req.ID, result)
		if err != nil {
			_ = conn.WriteResponse(rpc.NewError(req.ID, rpc.CodeInternalError, err.Error()))
			continue
		}
		_ = conn.WriteResponse(resp)
	}
}

// handleVectorSearch streams the vector_search reply in
// vectorSearchChunkSize-row chunks, holding the connection's write lock
// for the whole sequence so no other reply interleaves with it.
func (s *Server) handleVectorSearch(ctx context.Context, conn *rpc.Conn, req rpc.Request) {
	chunks, err := s.handler.vectorSearchChunks(ctx, req.Params)
	if err != nil {
		code, msg := rpc.MapError(err)
		_ = conn.WriteResponse(rpc.NewError(req.ID, code, msg))
		return
	}

	conn.Lock()
	defer conn.Unlock()
	for i, chunk := range chunks {
		resp, err := rpc.NewChunk(req.ID, chunk, i == len(chunks)-1)
		if err != nil {
			return
		}
		if err := conn.WriteResponseLocked(resp); err != nil {
			return
		}
	}
}

// Close stops the server, causing ListenAndServe to return once active
// connections drain.
func (s *Server) Close() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
