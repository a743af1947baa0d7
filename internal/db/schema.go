package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

const (
	// DistanceL2 is Euclidean distance.
	DistanceL2 DistanceMetric = "L2"
	// DistanceIP is inner product distance.
	DistanceIP DistanceMetric = "IP"
	// DistanceCosine is cosine distance.
	DistanceCosine DistanceMetric = "COSINE"
)

// ParseDistanceMetric maps a config value onto a metric.
func ParseDistanceMetric(s string) (DistanceMetric, error) {
	switch m := DistanceMetric(s); m {
	case DistanceL2, DistanceIP, DistanceCosine:
		return m, nil
	default:
		return "", errors.New("unknown distance metric " + strconv.Quote(s))
	}
}

// VectorAlgorithm selects the ANN structure behind a vector field.
type VectorAlgorithm string

const (
	// VectorHNSW is the approximate graph index.
	VectorHNSW VectorAlgorithm = "HNSW"
	// VectorFlat is brute force; exact, for small catalogs.
	VectorFlat VectorAlgorithm = "FLAT"
)

// IndexFieldType enumerates the field kinds the item index uses.
type IndexFieldType int

const (
	// IndexFieldTag is an exact-match tag field.
	IndexFieldTag IndexFieldType = iota
	// IndexFieldVector is a FLOAT32 vector field.
	IndexFieldVector
)

// VectorParams configures a vector field. Zero M, EFConstruct and BlockSize
// leave the server defaults.
type VectorParams struct {
	Algorithm   VectorAlgorithm
	Dim         int
	Metric      DistanceMetric
	M           int // HNSW max edges per node
	EFConstruct int // HNSW build-time candidate list size
	BlockSize   int // FLAT
}

// IndexField is one SCHEMA entry. Vector is set only for vector fields.
type IndexField struct {
	Name   string
	Type   IndexFieldType
	Vector *VectorParams
}

// TagField declares a TAG field.
func TagField(name string) IndexField {
	return IndexField{Name: name, Type: IndexFieldTag}
}

// VectorField declares a vector field. An empty algorithm means HNSW and an
// empty metric means COSINE.
func VectorField(name string, p VectorParams) IndexField {
	if p.Algorithm == "" {
		p.Algorithm = VectorHNSW
	}
	if p.Metric == "" {
		p.Metric = DistanceCosine
	}
	return IndexField{Name: name, Type: IndexFieldVector, Vector: &p}
}

// IndexDefinition is an FT.CREATE request over HASH keys.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// NewIndexDefinition assembles and validates a definition indexing hashes
// under prefix.
func NewIndexDefinition(name, prefix string, fields ...IndexField) (*IndexDefinition, error) {
	def := &IndexDefinition{Name: name, Fields: fields}
	if prefix != "" {
		def.Prefixes = []string{prefix}
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// Validate checks that the definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if !IsValidIdentifier(idx.Name) {
		return fmt.Errorf("invalid index name %q", idx.Name)
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]struct{}, len(idx.Fields))
	for i, f := range idx.Fields {
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate field name: %s", f.Name)
		}
		seen[f.Name] = struct{}{}

		if f.Type != IndexFieldVector {
			continue
		}
		if f.Vector == nil || f.Vector.Dim <= 0 {
			return fmt.Errorf("vector field %s: positive DIM required", f.Name)
		}
		if _, err := ParseDistanceMetric(string(f.Vector.Metric)); err != nil {
			return fmt.Errorf("vector field %s: %w", f.Name, err)
		}
	}
	return nil
}

// String renders a short FT.CREATE-like summary for logs.
func (idx *IndexDefinition) String() string {
	var b strings.Builder
	b.WriteString(idx.Name)
	if len(idx.Prefixes) > 0 {
		b.WriteString(" prefix=" + strings.Join(idx.Prefixes, ","))
	}
	for _, f := range idx.Fields {
		b.WriteString(" " + f.Name)
		if f.Vector != nil {
			fmt.Fprintf(&b, "[%s %s dim=%d]", f.Vector.Algorithm, f.Vector.Metric, f.Vector.Dim)
		}
	}
	return b.String()
}

// IsValidIdentifier reports whether s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == ':' || r == '-':
		default:
			return false
		}
	}
	return true
}
