package rpc

import (
	"bytes"
	"encoding/json"
	"testing"

	twerrors "github.com/twilog/twilogd/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipe struct {
	bytes.Buffer
}

func TestNewResult_HasNoMoreField(t *testing.T) {
	resp, err := NewResult(1, map[string]int{"x": 1})
	require.NoError(t, err)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"more"`)
}

func TestNewChunk_SetsMoreCorrectly(t *testing.T) {
	first, err := NewChunk(1, []int{1, 2}, false)
	require.NoError(t, err)
	require.NotNil(t, first.More)
	assert.True(t, *first.More)

	last, err := NewChunk(1, []int{3}, true)
	require.NoError(t, err)
	require.NotNil(t, last.More)
	assert.False(t, *last.More)
}

func TestMapError_KnownKinds(t *testing.T) {
	code, _ := MapError(twerrors.ModeUnavailable("average"))
	assert.Equal(t, CodeModeUnavailable, code)

	code, _ = MapError(twerrors.InvalidQuery("empty"))
	assert.Equal(t, CodeInvalidQuery, code)

	code, _ = MapError(twerrors.New(twerrors.KindProtocolError, "bad", nil))
	assert.Equal(t, CodeInvalidRequest, code)

	code, _ = MapError(twerrors.InvalidParams("bad params", nil))
	assert.Equal(t, CodeInvalidParams, code)
}

func TestConn_RoundTripsRequestAndResponse(t *testing.T) {
	var buf pipe
	conn := NewConn(&buf)

	req := Request{JSONRPC: "2.0", ID: 7, Method: "get_status"}
	require.NoError(t, conn.WriteValue(req))

	readBack, err := conn.ReadRequest()
	require.NoError(t, err)
	assert.Equal(t, req.Method, readBack.Method)
	assert.Equal(t, req.ID, readBack.ID)
}
