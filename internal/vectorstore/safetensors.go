package vectorstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// tensorInfo is one entry of a safetensors header.
type tensorInfo struct {
	Dtype       string  `json:"dtype"`
	Shape       []int   `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// safetensorsFile is the parsed header plus the raw tensor-data region of
// one .safetensors chunk file. No Go library for this container exists
// anywhere in the retrieval pack, so the reader is hand-rolled directly on
// the documented layout: an 8-byte little-endian header length, that many
// bytes of JSON header, then the raw tensor bytes referenced by each
// entry's data_offsets (relative to the end of the header).
type safetensorsFile struct {
	tensors map[string]tensorInfo
	data    []byte
}

func parseSafetensors(raw []byte) (*safetensorsFile, error) {
	if len(raw) < 8 {
		return nil, fmt.Errorf("file too short for safetensors header length")
	}
	headerLen := binary.LittleEndian.Uint64(raw[:8])
	if headerLen > uint64(len(raw)-8) {
		return nil, fmt.Errorf("header length %d exceeds file size", headerLen)
	}

	headerJSON := raw[8 : 8+headerLen]
	data := raw[8+headerLen:]

	var rawHeader map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &rawHeader); err != nil {
		return nil, fmt.Errorf("decode safetensors header: %w", err)
	}

	tensors := make(map[string]tensorInfo, len(rawHeader))
	for name, msg := range rawHeader {
		if name == "__metadata__" {
			continue
		}
		var info tensorInfo
		if err := json.Unmarshal(msg, &info); err != nil {
			return nil, fmt.Errorf("decode tensor %q: %w", name, err)
		}
		tensors[name] = info
	}

	return &safetensorsFile{tensors: tensors, data: data}, nil
}

// int64Tensor extracts a 1-D int64 tensor by name.
func (f *safetensorsFile) int64Tensor(name string) ([]int64, error) {
	info, ok := f.tensors[name]
	if !ok {
		return nil, fmt.Errorf("tensor %q not present", name)
	}
	if info.Dtype != "I64" {
		return nil, fmt.Errorf("tensor %q has dtype %q, want I64", name, info.Dtype)
	}
	start, end := info.DataOffsets[0], info.DataOffsets[1]
	if start < 0 || end > int64(len(f.data)) || start > end {
		return nil, fmt.Errorf("tensor %q data offsets out of range", name)
	}
	raw := f.data[start:end]
	n := len(raw) / 8
	if n*8 != len(raw) {
		return nil, fmt.Errorf("tensor %q byte length %d not a multiple of 8", name, len(raw))
	}
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(raw[i*8 : i*8+8]))
	}
	return out, nil
}

// float32Matrix extracts a 2-D float32 tensor by name, returned as one
// flat row-major slice plus the number of columns.
func (f *safetensorsFile) float32Matrix(name string) (flat []float32, cols int, err error) {
	info, ok := f.tensors[name]
	if !ok {
		return nil, 0, fmt.Errorf("tensor %q not present", name)
	}
	if info.Dtype != "F32" {
		return nil, 0, fmt.Errorf("tensor %q has dtype %q, want F32", name, info.Dtype)
	}
	if len(info.Shape) != 2 {
		return nil, 0, fmt.Errorf("tensor %q has %d dims, want 2", name, len(info.Shape))
	}
	rows, cols := info.Shape[0], info.Shape[1]
	start, end := info.DataOffsets[0], info.DataOffsets[1]
	if start < 0 || end > int64(len(f.data)) || start > end {
		return nil, 0, fmt.Errorf("tensor %q data offsets out of range", name)
	}
	raw := f.data[start:end]
	want := rows * cols * 4
	if len(raw) != want {
		return nil, 0, fmt.Errorf("tensor %q byte length %d, want %d for shape %v", name, len(raw), want, info.Shape)
	}
	flat = make([]float32, rows*cols)
	for i := range flat {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		flat[i] = math.Float32frombits(bits)
	}
	return flat, cols, nil
}

// EncodeVector serializes a single 1-D float32 vector as a one-tensor
// safetensors blob (tensor name "vector", dtype F32), the wire format
// embed_text reports its result in. This is the write-side counterpart
// of float32Matrix/parseSafetensors.
func EncodeVector(v []float32) ([]byte, error) {
	data := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(x))
	}

	header := map[string]tensorInfo{
		"vector": {
			Dtype:       "F32",
			Shape:       []int{len(v)},
			DataOffsets: [2]int64{0, int64(len(data))},
		},
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("encode safetensors header: %w", err)
	}

	out := make([]byte, 8+len(headerJSON)+len(data))
	binary.LittleEndian.PutUint64(out[:8], uint64(len(headerJSON)))
	copy(out[8:], headerJSON)
	copy(out[8+len(headerJSON):], data)
	return out, nil
}
