package bolt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePackStreamInt(t *testing.T) {
	tests := []struct {
		val  int64
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7F}},
		{-16, []byte{0xF0}},
		{-17, []byte{0xC8, 0xEF}},
		{-128, []byte{0xC8, 0x80}},
		{128, []byte{0xC9, 0x00, 0x80}},
		{-32768, []byte{0xC9, 0x80, 0x00}},
		{32768, []byte{0xCA, 0x00, 0x00, 0x80, 0x00}},
		{1 << 40, []byte{0xCB, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00}},
	}
	for _, tt := range tests {
		enc := encodePackStreamIntInto(nil, tt.val)
		assert.Equal(t, tt.want, enc, "encoding %d", tt.val)

		got, n, err := decodePackStreamValue(enc, 0)
		require.NoError(t, err)
		assert.Equal(t, len(enc), n)
		assert.Equal(t, tt.val, got)
	}
}

func TestDecodePackStreamValue_Structure(t *testing.T) {
	// Node{id: 1, labels: ["Person"], properties: {}}
	data := []byte{0xB3, 0x4E, 0x01, 0x91, 0x86}
	data = append(data, "Person"...)
	data = append(data, 0xA0)

	v, n, err := decodePackStreamValue(data, 0)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, Structure{
		Signature: 0x4E,
		Fields:    []any{int64(1), []any{"Person"}, map[string]any{}},
	}, v)
}

func TestDecodePackStreamValue_Truncated(t *testing.T) {
	full := encodePackStreamValueInto(nil, map[string]any{
		"query": strings.Repeat("x", 300),
		"n":     int64(-1),
		"flags": []any{true, nil, 1.5},
	})
	for cut := 0; cut < len(full); cut += 7 {
		_, _, err := decodePackStreamValue(full[:cut], 0)
		assert.Error(t, err, "cut at %d", cut)
	}

	_, _, err := decodePackStreamValue([]byte{0xE0}, 0)
	assert.ErrorContains(t, err, "unknown marker")
}

func TestMessage_ChunksLargePayloads(t *testing.T) {
	query := strings.Repeat("RETURN 1 UNION ", 6000)
	var buf bytes.Buffer
	require.NoError(t, writeMessage(&buf, MsgRun, query, map[string]any{}, map[string]any{"db": "neo4j"}))

	raw := buf.Bytes()
	first := int(raw[0])<<8 | int(raw[1])
	assert.Equal(t, maxChunkSize, first, "payload is split at the chunk limit")
	assert.Equal(t, []byte{0x00, 0x00}, raw[len(raw)-2:])

	sig, fields, err := readMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, MsgRun, sig)
	require.Len(t, fields, 3)
	assert.Equal(t, query, fields[0])
	assert.Equal(t, map[string]any{"db": "neo4j"}, fields[2])
}

func TestReadMessage_SkipsNoop(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x00})
	require.NoError(t, writeMessage(&buf, MsgSuccess, map[string]any{}))

	sig, _, err := readMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, MsgSuccess, sig)
}
