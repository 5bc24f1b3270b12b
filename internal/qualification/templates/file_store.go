package templates

import (
	"context"
	"fmt"
	"os"
	"strings"

	"converzia_backend/internal/qualification/scoring"

	"gopkg.in/yaml.v3"
)

type templateFile struct {
	Templates []scoring.Template `yaml:"templates"`
}

// FileStore serves global default templates loaded from a YAML file.
type FileStore struct {
	byType map[string]scoring.Template
}

var _ GlobalStore = (*FileStore)(nil)

// LoadFileStore reads and validates a YAML template file.
func LoadFileStore(path string) (*FileStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scoring templates: %w", err)
	}
	return ParseFileStore(raw)
}

// ParseFileStore builds a FileStore from YAML content.
func ParseFileStore(raw []byte) (*FileStore, error) {
	var file templateFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse scoring templates: %w", err)
	}

	store := &FileStore{byType: make(map[string]scoring.Template, len(file.Templates))}
	for i, tpl := range file.Templates {
		key := strings.ToUpper(strings.TrimSpace(tpl.OfferType))
		if key == "" {
			return nil, fmt.Errorf("scoring template %d: offerType is required", i)
		}
		if err := tpl.Validate(); err != nil {
			return nil, fmt.Errorf("scoring template %s: %w", key, err)
		}
		if _, dup := store.byType[key]; dup {
			return nil, fmt.Errorf("scoring template %s: duplicate offerType", key)
		}
		tpl.OfferType = key
		tpl.Source = scoring.SourceFile
		store.byType[key] = tpl
	}
	return store, nil
}

// GlobalTemplate returns the file template for offerType.
func (s *FileStore) GlobalTemplate(_ context.Context, offerType string) (scoring.Template, error) {
	tpl, ok := s.byType[strings.ToUpper(strings.TrimSpace(offerType))]
	if !ok {
		return scoring.Template{}, ErrNotFound
	}
	return tpl, nil
}
