package sheet

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"inspection/api/internal/grid"
)

//go:embed templates/*.yaml
var builtinTemplates embed.FS

var ErrUnknownTemplate = errors.New("unknown sheet template")

// GridTemplate describes one grid of a sheet.
type GridTemplate struct {
	Name    string        `yaml:"name" json:"name"`
	Title   string        `yaml:"title" json:"title"`
	MaxRows int           `yaml:"maxRows,omitempty" json:"maxRows,omitempty"`
	Columns []grid.Column `yaml:"columns" json:"columns"`

	layout *grid.Layout
}

func (t *GridTemplate) Layout() *grid.Layout {
	return t.layout
}

// Template is a page definition: one primary grid plus the secondary grids
// that follow its rows.
type Template struct {
	Name        string         `yaml:"name" json:"name"`
	Title       string         `yaml:"title" json:"title"`
	DefaultRows int            `yaml:"defaultRows" json:"defaultRows"`
	Primary     GridTemplate   `yaml:"primary" json:"primary"`
	Secondaries []GridTemplate `yaml:"secondaries,omitempty" json:"secondaries,omitempty"`
}

func ParseTemplate(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	tmpl.Name = strings.TrimSpace(tmpl.Name)
	if tmpl.Name == "" {
		return nil, fmt.Errorf("parse template: %w: missing name", grid.ErrInvalidLayout)
	}
	if tmpl.DefaultRows <= 0 {
		tmpl.DefaultRows = 1
	}
	seen := map[string]bool{}
	grids := append([]*GridTemplate{&tmpl.Primary}, secondaryRefs(&tmpl)...)
	for _, gt := range grids {
		if gt.Name == "" || seen[gt.Name] {
			return nil, fmt.Errorf("template %s: %w: grid name %q missing or repeated", tmpl.Name, grid.ErrInvalidLayout, gt.Name)
		}
		seen[gt.Name] = true
		layout, err := grid.NewLayout(tmpl.Name+"/"+gt.Name, gt.Columns)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", tmpl.Name, err)
		}
		gt.layout = layout
		gt.Columns = layout.Columns()
	}
	for _, sec := range tmpl.Secondaries {
		for _, col := range sec.Columns {
			if col.Kind != grid.Mirror {
				continue
			}
			if _, ok := tmpl.Primary.layout.Index(col.Source); !ok {
				return nil, fmt.Errorf("template %s: %w: %s.%s mirrors unknown column %q", tmpl.Name, grid.ErrInvalidLayout, sec.Name, col.Key, col.Source)
			}
		}
	}
	return &tmpl, nil
}

func secondaryRefs(tmpl *Template) []*GridTemplate {
	refs := make([]*GridTemplate, len(tmpl.Secondaries))
	for i := range tmpl.Secondaries {
		refs[i] = &tmpl.Secondaries[i]
	}
	return refs
}

// Catalog holds the templates sheets can be created from.
type Catalog struct {
	templates map[string]*Template
}

// LoadCatalog reads the built-in templates and then any *.yaml files in dir,
// which replace built-ins of the same name.
func LoadCatalog(dir string) (*Catalog, error) {
	catalog := &Catalog{templates: map[string]*Template{}}
	if err := catalog.loadFS(builtinTemplates, "templates"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(dir) == "" {
		return catalog, nil
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return catalog, nil
	}
	if err := catalog.loadFS(os.DirFS(dir), "."); err != nil {
		return nil, err
	}
	return catalog, nil
}

func (c *Catalog) loadFS(fsys fs.FS, dir string) error {
	paths, err := fs.Glob(fsys, filepath.ToSlash(filepath.Join(dir, "*.yaml")))
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}
	sort.Strings(paths)
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}
		tmpl, err := ParseTemplate(data)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		c.templates[tmpl.Name] = tmpl
	}
	return nil
}

func (c *Catalog) Get(name string) (*Template, error) {
	tmpl, ok := c.templates[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	return tmpl, nil
}

func (c *Catalog) List() []*Template {
	out := make([]*Template, 0, len(c.templates))
	for _, tmpl := range c.templates {
		out = append(out, tmpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
