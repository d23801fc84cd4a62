package store

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// CodecVersion is written into every network artifact.
const CodecVersion = 1

// networkRecord is the gob payload of one network artifact. Each layer holds
// the gonum binary encoding of its weight matrix.
type networkRecord struct {
	CodecVersion int
	Layers       [][]byte
}

// EncodeNetwork serialises one network's weight matrices as gzip-compressed gob.
func EncodeNetwork(layers []*mat.Dense) ([]byte, error) {
	rec := networkRecord{CodecVersion: CodecVersion, Layers: make([][]byte, len(layers))}
	for i, l := range layers {
		b, err := l.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("failed to marshal layer %d: %w", i, err)
		}
		rec.Layers[i] = b
	}

	var buf bytes.Buffer
	gzWriter := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gzWriter).Encode(rec); err != nil {
		return nil, fmt.Errorf("failed to encode network: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress network: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeNetwork is the inverse of EncodeNetwork.
func DecodeNetwork(payload []byte) ([]*mat.Dense, error) {
	gzReader, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for network: %w", err)
	}
	defer gzReader.Close()

	var rec networkRecord
	if err := gob.NewDecoder(gzReader).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode network: %w", err)
	}
	if rec.CodecVersion != CodecVersion {
		return nil, fmt.Errorf("unsupported network codec version %d", rec.CodecVersion)
	}

	layers := make([]*mat.Dense, len(rec.Layers))
	for i, b := range rec.Layers {
		d := new(mat.Dense)
		if err := d.UnmarshalBinary(b); err != nil {
			return nil, fmt.Errorf("failed to unmarshal layer %d: %w", i, err)
		}
		layers[i] = d
	}
	return layers, nil
}

// EncodeMetadata renders metadata as indented JSON so saved runs stay readable.
func EncodeMetadata(m Metadata) ([]byte, error) {
	if m.FitnessHistory == nil {
		m.FitnessHistory = []float64{}
	}
	return json.MarshalIndent(m, "", "  ")
}

// DecodeMetadata parses the output of EncodeMetadata.
func DecodeMetadata(payload []byte) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(payload, &m); err != nil {
		return Metadata{}, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return m, nil
}
