package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"study-abroad-engine/internal/models"
)

// FileProvider serves a catalog loaded once from a JSON or YAML file. It is also the
// in-memory provider for tests and tools.
type FileProvider struct {
	name         string
	universities []models.University
	byID         map[int64]int
}

// catalogDocument is the wrapped form `{"universities": [...]}`.
type catalogDocument struct {
	Universities []models.University `json:"universities" yaml:"universities"`
}

// NewFileProvider loads path. Malformed records fail the load.
func NewFileProvider(path string) (*FileProvider, error) {
	universities, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if errs := ValidateRecords(universities); len(errs) > 0 {
		return nil, fmt.Errorf("catalog %s: %w", path, errs[0])
	}
	p := NewStaticProvider(universities)
	p.name = "file"
	return p, nil
}

// NewStaticProvider serves universities from memory. Later duplicates of an id are ignored.
func NewStaticProvider(universities []models.University) *FileProvider {
	p := &FileProvider{
		name:         "static",
		universities: make([]models.University, 0, len(universities)),
		byID:         make(map[int64]int, len(universities)),
	}
	for _, u := range universities {
		if _, dup := p.byID[u.ID]; dup {
			continue
		}
		p.byID[u.ID] = len(p.universities)
		p.universities = append(p.universities, u)
	}
	return p
}

// LoadFile decodes a catalog file. The format follows the extension: .yaml and .yml are YAML,
// everything else JSON. Both a bare list and a `universities` wrapper are accepted.
func LoadFile(path string) ([]models.University, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return decodeYAML(data)
	default:
		return decodeJSON(data)
	}
}

func decodeJSON(data []byte) ([]models.University, error) {
	data = bytes.TrimSpace(data)
	if bytes.HasPrefix(data, []byte("[")) {
		var list []models.University
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode catalog json: %w", err)
		}
		return list, nil
	}
	var doc catalogDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog json: %w", err)
	}
	return doc.Universities, nil
}

func decodeYAML(data []byte) ([]models.University, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode catalog yaml: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var list []models.University
		if err := root.Decode(&list); err != nil {
			return nil, fmt.Errorf("decode catalog yaml: %w", err)
		}
		return list, nil
	}
	var doc catalogDocument
	if err := root.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog yaml: %w", err)
	}
	return doc.Universities, nil
}

// ValidateRecords returns one error per malformed or duplicate record.
func ValidateRecords(universities []models.University) []error {
	var errs []error
	seen := make(map[int64]bool, len(universities))
	for _, u := range universities {
		if err := ValidateRecord(u); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[u.ID] {
			errs = append(errs, fmt.Errorf("%w: duplicate id %d", ErrInvalidRecord, u.ID))
		}
		seen[u.ID] = true
	}
	return errs
}

func (p *FileProvider) Name() string { return p.name }

// All returns every record ordered by id.
func (p *FileProvider) All() []models.University {
	out := make([]models.University, len(p.universities))
	copy(out, p.universities)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (p *FileProvider) GetByID(ctx context.Context, id int64) (*models.University, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i, ok := p.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	u := p.universities[i]
	return &u, nil
}

func (p *FileProvider) Search(ctx context.Context, text string) ([]models.University, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.University, 0)
	for _, u := range p.universities {
		if matchesText(u, text) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (p *FileProvider) Filter(ctx context.Context, f Filter) ([]models.University, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.Apply(p.universities)
}
