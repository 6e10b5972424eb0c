package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/mezhov/kingdoms/internal/kingdom"
	"github.com/mezhov/kingdoms/internal/war"
)

// CodecVersion tags encoded blobs. Decoding accepts any version at or
// below the current one; unknown JSON fields are skipped either way, so
// older decoders tolerate newer optional fields too.
const CodecVersion = 1

// RealmState is the full persisted state graph.
type RealmState struct {
	Version  int                   `json:"version"`
	Registry kingdom.RegistryState `json:"registry"`
	Wars     war.EngineState       `json:"wars"`
}

// Encode serializes the state to a gzip-compressed JSON blob.
func Encode(st RealmState) ([]byte, error) {
	st.Version = CodecVersion
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(st); err != nil {
		return nil, fmt.Errorf("encoding realm state: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing realm state: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a blob produced by Encode. Missing optional fields come
// back as zero values; the caller treats those as defaults.
func Decode(blob []byte) (RealmState, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return RealmState{}, fmt.Errorf("decompressing realm state: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return RealmState{}, fmt.Errorf("reading realm state: %w", err)
	}
	var st RealmState
	if err := json.Unmarshal(raw, &st); err != nil {
		return RealmState{}, fmt.Errorf("decoding realm state: %w", err)
	}
	if st.Version > CodecVersion {
		return RealmState{}, fmt.Errorf("realm state version %d is newer than supported %d", st.Version, CodecVersion)
	}
	return st, nil
}
