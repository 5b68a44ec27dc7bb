package sampledb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Header field numbers.  Numbers are never reused; readers skip fields they
// don't know.
const (
	rowSizeField           protowire.Number = 1
	colSizeField           protowire.Number = 2
	dataLayoutVersionField protowire.Number = 3
	sceneNameField         protowire.Number = 4
	fingerprintField       protowire.Number = 5
)

type header struct {
	RowSize           uint64
	ColSize           uint64
	DataLayoutVersion uint64
	SceneName         string
	Fingerprint       uint64
}

func marshalHeader(h *header) []byte {
	var b []byte
	b = protowire.AppendTag(b, rowSizeField, protowire.VarintType)
	b = protowire.AppendVarint(b, h.RowSize)
	b = protowire.AppendTag(b, colSizeField, protowire.VarintType)
	b = protowire.AppendVarint(b, h.ColSize)
	b = protowire.AppendTag(b, dataLayoutVersionField, protowire.VarintType)
	b = protowire.AppendVarint(b, h.DataLayoutVersion)
	if h.SceneName != "" {
		b = protowire.AppendTag(b, sceneNameField, protowire.BytesType)
		b = protowire.AppendString(b, h.SceneName)
	}
	b = protowire.AppendTag(b, fingerprintField, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, h.Fingerprint)
	return b
}

func unmarshalHeader(b []byte) (*header, error) {
	h := &header{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("while reading field tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == rowSizeField && typ == protowire.VarintType:
			h.RowSize, n = protowire.ConsumeVarint(b)
		case num == colSizeField && typ == protowire.VarintType:
			h.ColSize, n = protowire.ConsumeVarint(b)
		case num == dataLayoutVersionField && typ == protowire.VarintType:
			h.DataLayoutVersion, n = protowire.ConsumeVarint(b)
		case num == sceneNameField && typ == protowire.BytesType:
			h.SceneName, n = protowire.ConsumeString(b)
		case num == fingerprintField && typ == protowire.Fixed64Type:
			h.Fingerprint, n = protowire.ConsumeFixed64(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nil, fmt.Errorf("while reading field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return h, nil
}
