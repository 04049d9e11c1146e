package services

import (
	_ "embed"
	"fmt"
	"strings"

	"flow-orchestrator/backend/internal/engine"
	"flow-orchestrator/backend/pkg/models"

	"github.com/goccy/go-yaml"
)

//go:embed templates.yaml
var builtinTemplatesYAML []byte

// TemplateIDPrefix marks ids of built-in templates, which are not stored.
const TemplateIDPrefix = "tpl-"

type templateFile struct {
	Templates []templateSpec `yaml:"templates"`
}

type templateSpec struct {
	Slug        string           `yaml:"slug"`
	Name        string           `yaml:"name"`
	Category    string           `yaml:"category"`
	Description string           `yaml:"description"`
	Thumbnail   string           `yaml:"thumbnail"`
	Flow        models.FlowGraph `yaml:"flow"`
}

// TemplateCatalog is a read-only set of flow templates shared by every
// scope.
type TemplateCatalog struct {
	templates []*models.Flow
	index     map[string]int
}

// BuiltinTemplates parses the templates compiled into the binary.
func BuiltinTemplates() (*TemplateCatalog, error) {
	return LoadTemplates(builtinTemplatesYAML)
}

// LoadTemplates parses a YAML template document. Every template graph must
// pass full validation so it can be executed as-is.
func LoadTemplates(data []byte) (*TemplateCatalog, error) {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	c := &TemplateCatalog{index: make(map[string]int, len(file.Templates))}
	for _, t := range file.Templates {
		if t.Slug == "" || t.Name == "" {
			return nil, fmt.Errorf("template %q: slug and name are required", t.Name)
		}
		id := TemplateIDPrefix + t.Slug
		if _, dup := c.index[id]; dup {
			return nil, fmt.Errorf("template %q: duplicate slug", t.Slug)
		}
		if err := engine.Validate(t.Flow); err != nil {
			return nil, fmt.Errorf("template %q: %w", t.Slug, err)
		}
		category := t.Category
		if category == "" {
			category = models.DefaultCategory
		}
		c.index[id] = len(c.templates)
		c.templates = append(c.templates, &models.Flow{
			ID:          id,
			Name:        t.Name,
			Category:    category,
			Description: t.Description,
			Thumbnail:   t.Thumbnail,
			IsTemplate:  true,
			Builtin:     true,
			Graph:       t.Flow,
		})
	}
	return c, nil
}

// List returns templates in file order, optionally filtered by category
// (case-insensitive).
func (c *TemplateCatalog) List(category string) []*models.Flow {
	out := make([]*models.Flow, 0, len(c.templates))
	for _, t := range c.templates {
		if category != "" && !strings.EqualFold(category, t.Category) {
			continue
		}
		out = append(out, cloneFlow(t))
	}
	return out
}

// Get returns a copy of the template with the given id.
func (c *TemplateCatalog) Get(id string) (*models.Flow, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return cloneFlow(c.templates[i]), true
}

// Len reports the number of templates.
func (c *TemplateCatalog) Len() int {
	return len(c.templates)
}

func cloneFlow(f *models.Flow) *models.Flow {
	out := *f
	out.Graph = f.Graph.Clone()
	return &out
}
