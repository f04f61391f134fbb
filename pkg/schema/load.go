package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed graph_schema.json
var graphSchemaJSON []byte

// Format is the encoding of a schema document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor picks the format from a file extension; anything that is not
// .yaml or .yml is treated as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

type fileProperty struct {
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
	PrimaryKey bool   `json:"primary_key" yaml:"primary_key"`
	Nullable   bool   `json:"nullable" yaml:"nullable"`
}

type fileLabel struct {
	Name       string         `json:"name" yaml:"name"`
	Directed   bool           `json:"directed" yaml:"directed"`
	Relations  [][]string     `json:"relations" yaml:"relations"`
	Properties []fileProperty `json:"properties" yaml:"properties"`
}

type fileSchema struct {
	Name         string      `json:"name" yaml:"name"`
	VertexLabels []fileLabel `json:"vertex_labels" yaml:"vertex_labels"`
	EdgeLabels   []fileLabel `json:"edge_labels" yaml:"edge_labels"`
}

// LoadFromFile reads and validates a schema file.
func LoadFromFile(path string) (*GraphSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	g, err := Parse(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Parse decodes a schema document. JSON documents are checked against the
// embedded JSON Schema first; both formats then go through Validate.
func Parse(data []byte, format Format) (*GraphSchema, error) {
	var fs fileSchema
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &fs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
		}
	default:
		if err := validateJSON(data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &fs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
		}
	}

	g, err := fs.build()
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return g, nil
}

func validateJSON(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(graphSchemaJSON),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("failed to validate schema document: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("schema document validation failed: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// build assigns ids in file order: vertex labels first, then edge labels.
// Property ids restart at zero for every label.
func (fs *fileSchema) build() (*GraphSchema, error) {
	g := &GraphSchema{Name: fs.Name}
	id := 0
	for _, fl := range fs.VertexLabels {
		g.VertexLabels = append(g.VertexLabels, fl.label(id, VertexLabel))
		id++
	}
	for _, fl := range fs.EdgeLabels {
		l := fl.label(id, EdgeLabel)
		l.Directed = fl.Directed
		for _, pair := range fl.Relations {
			if len(pair) != 2 {
				return nil, fmt.Errorf("edge %q: relation must be a [from, to] pair, got %d names", fl.Name, len(pair))
			}
			l.Relations = append(l.Relations, Relation{From: pair[0], To: pair[1]})
		}
		g.EdgeLabels = append(g.EdgeLabels, l)
		id++
	}
	return g, nil
}

func (fl fileLabel) label(id int, kind LabelKind) *Label {
	l := &Label{Name: fl.Name, ID: id, Kind: kind}
	for i, fp := range fl.Properties {
		l.Properties = append(l.Properties, &Property{
			Name:       fp.Name,
			ID:         i,
			Type:       PropertyType(strings.ToUpper(fp.Type)),
			PrimaryKey: fp.PrimaryKey,
			Nullable:   fp.Nullable,
		})
	}
	return l
}
