package bolt

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Structure is a PackStream structure the client has no dedicated type for.
// Nodes, relationships and paths in result records decode to it.
type Structure struct {
	Signature byte
	Fields    []any
}

// ============================================================================
// PackStream Encoding
// ============================================================================

func encodePackStreamMapInto(dst []byte, m map[string]any) []byte {
	size := len(m)
	if size < 16 {
		dst = append(dst, byte(0xA0+size))
	} else if size < 256 {
		dst = append(dst, 0xD8, byte(size))
	} else {
		dst = append(dst, 0xD9, byte(size>>8), byte(size))
	}
	for k, v := range m {
		dst = encodePackStreamStringInto(dst, k)
		dst = encodePackStreamValueInto(dst, v)
	}
	return dst
}

func encodePackStreamListInto(dst []byte, items []any) []byte {
	size := len(items)
	if size < 16 {
		dst = append(dst, byte(0x90+size))
	} else if size < 256 {
		dst = append(dst, 0xD4, byte(size))
	} else {
		dst = append(dst, 0xD5, byte(size>>8), byte(size))
	}
	for _, item := range items {
		dst = encodePackStreamValueInto(dst, item)
	}
	return dst
}

func encodePackStreamStringInto(dst []byte, s string) []byte {
	length := len(s)
	if length < 16 {
		dst = append(dst, byte(0x80+length))
	} else if length < 256 {
		dst = append(dst, 0xD0, byte(length))
	} else if length < 65536 {
		dst = append(dst, 0xD1, byte(length>>8), byte(length))
	} else {
		dst = append(dst, 0xD2, byte(length>>24), byte(length>>16), byte(length>>8), byte(length))
	}
	return append(dst, s...)
}

// encodePackStreamValueInto appends v. Types the query protocol never sends
// are encoded as null.
func encodePackStreamValueInto(dst []byte, v any) []byte {
	switch val := v.(type) {
	case nil:
		return append(dst, 0xC0)
	case bool:
		if val {
			return append(dst, 0xC3)
		}
		return append(dst, 0xC2)
	case int:
		return encodePackStreamIntInto(dst, int64(val))
	case int32:
		return encodePackStreamIntInto(dst, int64(val))
	case int64:
		return encodePackStreamIntInto(dst, val)
	case float64:
		dst = append(dst, 0xC1)
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(val))
	case string:
		return encodePackStreamStringInto(dst, val)
	case []string:
		items := make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
		return encodePackStreamListInto(dst, items)
	case []any:
		return encodePackStreamListInto(dst, val)
	case map[string]any:
		return encodePackStreamMapInto(dst, val)
	default:
		return append(dst, 0xC0)
	}
}

func encodePackStreamIntInto(dst []byte, val int64) []byte {
	// Tiny int: -16 to 127 (inline, 1 byte)
	if val >= -16 && val <= 127 {
		return append(dst, byte(val))
	}
	if val >= -128 && val < -16 {
		return append(dst, 0xC8, byte(val))
	}
	if val >= -32768 && val <= 32767 {
		return append(dst, 0xC9, byte(val>>8), byte(val))
	}
	if val >= -2147483648 && val <= 2147483647 {
		return append(dst, 0xCA, byte(val>>24), byte(val>>16), byte(val>>8), byte(val))
	}
	return append(dst, 0xCB,
		byte(val>>56), byte(val>>48), byte(val>>40), byte(val>>32),
		byte(val>>24), byte(val>>16), byte(val>>8), byte(val),
	)
}

// ============================================================================
// PackStream Decoding
// ============================================================================

// sizeAfter reads a big-endian size of width bytes that follows the marker at
// offset. It returns the size and the header length (marker included).
func sizeAfter(data []byte, offset, width int, what string) (int, int, error) {
	if offset+width >= len(data) {
		return 0, 0, fmt.Errorf("incomplete %s", what)
	}
	size := 0
	for i := 1; i <= width; i++ {
		size = size<<8 | int(data[offset+i])
	}
	return size, 1 + width, nil
}

func decodePackStreamString(data []byte, offset int) (string, int, error) {
	if offset >= len(data) {
		return "", 0, fmt.Errorf("offset out of bounds")
	}
	marker := data[offset]

	var length, header int
	var err error
	switch {
	case marker >= 0x80 && marker <= 0x8F:
		length, header = int(marker-0x80), 1
	case marker == 0xD0:
		length, header, err = sizeAfter(data, offset, 1, "STRING8")
	case marker == 0xD1:
		length, header, err = sizeAfter(data, offset, 2, "STRING16")
	case marker == 0xD2:
		length, header, err = sizeAfter(data, offset, 4, "STRING32")
	default:
		return "", 0, fmt.Errorf("not a string marker: 0x%02X", marker)
	}
	if err != nil {
		return "", 0, err
	}

	start := offset + header
	if start+length > len(data) {
		return "", 0, fmt.Errorf("string data out of bounds")
	}
	return string(data[start : start+length]), header + length, nil
}

func decodePackStreamMap(data []byte, offset int) (map[string]any, int, error) {
	if offset >= len(data) {
		return nil, 0, fmt.Errorf("offset out of bounds")
	}
	marker := data[offset]

	var size, header int
	var err error
	switch {
	case marker >= 0xA0 && marker <= 0xAF:
		size, header = int(marker-0xA0), 1
	case marker == 0xD8:
		size, header, err = sizeAfter(data, offset, 1, "MAP8")
	case marker == 0xD9:
		size, header, err = sizeAfter(data, offset, 2, "MAP16")
	case marker == 0xDA:
		size, header, err = sizeAfter(data, offset, 4, "MAP32")
	default:
		return nil, 0, fmt.Errorf("not a map marker: 0x%02X", marker)
	}
	if err != nil {
		return nil, 0, err
	}

	pos := offset + header
	result := make(map[string]any, size)
	for i := 0; i < size; i++ {
		key, n, err := decodePackStreamString(data, pos)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to decode map key: %w", err)
		}
		pos += n

		value, n, err := decodePackStreamValue(data, pos)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to decode map value for key %s: %w", key, err)
		}
		pos += n
		result[key] = value
	}
	return result, pos - offset, nil
}

func decodePackStreamList(data []byte, offset int) ([]any, int, error) {
	if offset >= len(data) {
		return nil, 0, fmt.Errorf("offset out of bounds")
	}
	marker := data[offset]

	var size, header int
	var err error
	switch {
	case marker >= 0x90 && marker <= 0x9F:
		size, header = int(marker-0x90), 1
	case marker == 0xD4:
		size, header, err = sizeAfter(data, offset, 1, "LIST8")
	case marker == 0xD5:
		size, header, err = sizeAfter(data, offset, 2, "LIST16")
	case marker == 0xD6:
		size, header, err = sizeAfter(data, offset, 4, "LIST32")
	default:
		return nil, 0, fmt.Errorf("not a list marker: 0x%02X", marker)
	}
	if err != nil {
		return nil, 0, err
	}

	pos := offset + header
	result := make([]any, size)
	for i := 0; i < size; i++ {
		value, n, err := decodePackStreamValue(data, pos)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to decode list item %d: %w", i, err)
		}
		result[i] = value
		pos += n
	}
	return result, pos - offset, nil
}

func decodePackStreamValue(data []byte, offset int) (any, int, error) {
	if offset >= len(data) {
		return nil, 0, fmt.Errorf("offset out of bounds")
	}
	marker := data[offset]

	switch {
	case marker == 0xC0:
		return nil, 1, nil
	case marker == 0xC2:
		return false, 1, nil
	case marker == 0xC3:
		return true, 1, nil
	case marker <= 0x7F:
		return int64(marker), 1, nil
	case marker >= 0xF0:
		return int64(int8(marker)), 1, nil
	case marker == 0xC8:
		if offset+1 >= len(data) {
			return nil, 0, fmt.Errorf("incomplete INT8")
		}
		return int64(int8(data[offset+1])), 2, nil
	case marker == 0xC9:
		if offset+2 >= len(data) {
			return nil, 0, fmt.Errorf("incomplete INT16")
		}
		return int64(int16(binary.BigEndian.Uint16(data[offset+1:]))), 3, nil
	case marker == 0xCA:
		if offset+4 >= len(data) {
			return nil, 0, fmt.Errorf("incomplete INT32")
		}
		return int64(int32(binary.BigEndian.Uint32(data[offset+1:]))), 5, nil
	case marker == 0xCB:
		if offset+8 >= len(data) {
			return nil, 0, fmt.Errorf("incomplete INT64")
		}
		return int64(binary.BigEndian.Uint64(data[offset+1:])), 9, nil
	case marker == 0xC1:
		if offset+8 >= len(data) {
			return nil, 0, fmt.Errorf("incomplete Float64")
		}
		return math.Float64frombits(binary.BigEndian.Uint64(data[offset+1:])), 9, nil
	case marker == 0xCC || marker == 0xCD || marker == 0xCE:
		width := map[byte]int{0xCC: 1, 0xCD: 2, 0xCE: 4}[marker]
		size, header, err := sizeAfter(data, offset, width, "BYTES")
		if err != nil {
			return nil, 0, err
		}
		start := offset + header
		if start+size > len(data) {
			return nil, 0, fmt.Errorf("incomplete BYTES payload")
		}
		out := make([]byte, size)
		copy(out, data[start:start+size])
		return out, header + size, nil
	case marker >= 0x80 && marker <= 0x8F, marker == 0xD0, marker == 0xD1, marker == 0xD2:
		return decodePackStreamString(data, offset)
	case marker >= 0x90 && marker <= 0x9F, marker == 0xD4, marker == 0xD5, marker == 0xD6:
		return decodePackStreamList(data, offset)
	case marker >= 0xA0 && marker <= 0xAF, marker == 0xD8, marker == 0xD9, marker == 0xDA:
		return decodePackStreamMap(data, offset)
	case marker >= 0xB0 && marker <= 0xBF:
		return decodeStructure(data, offset, int(marker-0xB0), 1)
	case marker == 0xDC:
		size, header, err := sizeAfter(data, offset, 1, "STRUCT8")
		if err != nil {
			return nil, 0, err
		}
		return decodeStructure(data, offset, size, header)
	case marker == 0xDD:
		size, header, err := sizeAfter(data, offset, 2, "STRUCT16")
		if err != nil {
			return nil, 0, err
		}
		return decodeStructure(data, offset, size, header)
	}
	return nil, 0, fmt.Errorf("unknown marker: 0x%02X", marker)
}

// decodeStructure decodes fieldCount fields after the signature byte, which
// sits header bytes past offset.
func decodeStructure(data []byte, offset, fieldCount, header int) (Structure, int, error) {
	pos := offset + header
	if pos >= len(data) {
		return Structure{}, 0, fmt.Errorf("incomplete structure: missing signature")
	}
	st := Structure{Signature: data[pos], Fields: make([]any, fieldCount)}
	pos++
	for i := 0; i < fieldCount; i++ {
		value, n, err := decodePackStreamValue(data, pos)
		if err != nil {
			return Structure{}, 0, fmt.Errorf("failed to decode structure field %d: %w", i, err)
		}
		st.Fields[i] = value
		pos += n
	}
	return st, pos - offset, nil
}
