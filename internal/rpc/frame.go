// Package rpc implements the length-delimited JSON-RPC 2.0 dialect used
// between the twilogd daemon and its clients, including the server's
// streaming-reply extension.
package rpc

import (
	"encoding/json"

	twerrors "github.com/twilog/twilogd/internal/errors"
)

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// twilogd-specific error codes, one per internal/errors.Kind that isn't
// already a protocol-layer code.
const (
	CodeNotReady                      = -32001
	CodeInvalidQuery                  = -32002
	CodeModeUnavailable               = -32003
	CodeHybridNotSupportedForTextOnly = -32004
	CodeValueOutOfRange               = -32005
	CodeCorruptStore                  = -32006
)

// Request is one JSON-RPC 2.0 request frame.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// RPCError is the JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is one JSON-RPC 2.0 response frame, with the streaming
// extension's "more" field. More is a pointer so its absence (nil) can
// be distinguished from an explicit false: a non-streaming method MUST
// NOT set it at all, while a streaming method sets it on every chunk,
// including the last (with value false).
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	More    *bool           `json:"more,omitempty"`
}

func boolPtr(b bool) *bool { return &b }

// NewResult builds a non-streaming success response.
func NewResult(id int64, result any) (Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return Response{}, err
	}
	return Response{JSONRPC: "2.0", ID: id, Result: raw}, nil
}

// NewChunk builds one chunk of a streaming reply. last marks the final
// chunk (More: false); every other chunk carries More: true.
func NewChunk(id int64, result any, last bool) (Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return Response{}, err
	}
	return Response{JSONRPC: "2.0", ID: id, Result: raw, More: boolPtr(!last)}, nil
}

// NewError builds a JSON-RPC error response.
func NewError(id int64, code int, message string) Response {
	return Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}

// MapError maps a twilogd error Kind to its JSON-RPC error code. Errors
// that aren't *errors.TwilogError are treated as internal errors.
// Grounded on the category-to-code mapping pattern in the teacher's
// internal/mcp/errors.go (MapError/mapAmanError), re-keyed from MCP
// error codes to this protocol's codes.
func MapError(err error) (code int, message string) {
	if err == nil {
		return CodeInternalError, ""
	}

	kind := twerrors.GetKind(err)
	switch kind {
	case twerrors.KindProtocolError:
		return CodeInvalidRequest, err.Error()
	case twerrors.KindInvalidParams:
		return CodeInvalidParams, err.Error()
	case twerrors.KindNotReady:
		return CodeNotReady, err.Error()
	case twerrors.KindInvalidQuery:
		return CodeInvalidQuery, err.Error()
	case twerrors.KindModeUnavailable:
		return CodeModeUnavailable, err.Error()
	case twerrors.KindHybridNotSupportedForTextOnly:
		return CodeHybridNotSupportedForTextOnly, err.Error()
	case twerrors.KindValueOutOfRange:
		return CodeValueOutOfRange, err.Error()
	case twerrors.KindCorruptStore:
		return CodeCorruptStore, err.Error()
	default:
		return CodeInternalError, err.Error()
	}
}
