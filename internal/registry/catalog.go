package registry

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"api-conformance/internal/types"

	"gopkg.in/yaml.v3"
)

//go:embed catalog/*.yaml
var builtin embed.FS

// File is the on-disk shape of one module's catalog.
type File struct {
	Module    string               `yaml:"module"`
	Body      string               `yaml:"body,omitempty"`
	Endpoints []types.EndpointSpec `yaml:"endpoints"`
}

// Module is one resource area of the API, e.g. "orders".
type Module struct {
	Name      string
	Body      types.BodyConvention
	Endpoints []types.EndpointSpec
}

// Catalog holds every module's endpoints in load order.
type Catalog struct {
	modules []*Module
	byName  map[string]*Module
}

// Default loads the catalog compiled into the binary.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(builtin, "catalog")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// LoadDir loads every *.yaml file in dir.
func LoadDir(dir string) (*Catalog, error) {
	return Load(os.DirFS(dir))
}

// Load reads every *.yaml / *.yml file at the root of fsys, sorted by name.
func Load(fsys fs.FS) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading catalog directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		ext := path.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	c := &Catalog{byName: make(map[string]*Module)}
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading catalog %s: %w", name, err)
		}
		m, err := parseFile(name, data)
		if err != nil {
			return nil, err
		}
		if err := c.add(m); err != nil {
			return nil, err
		}
	}

	if len(c.modules) == 0 {
		return nil, fmt.Errorf("catalog has no modules defined")
	}
	return c, nil
}

func parseFile(name string, data []byte) (*Module, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", name, err)
	}

	if f.Module == "" {
		f.Module = strings.TrimSuffix(name, path.Ext(name))
	}
	body, err := types.ParseBodyConvention(f.Body)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", name, err)
	}

	m := &Module{Name: strings.ToLower(f.Module), Body: body}
	for i, e := range f.Endpoints {
		method, err := types.ParseMethod(string(e.Method))
		if err != nil {
			return nil, fmt.Errorf("catalog %s: endpoint %d (%s): %w", name, i, e.Name, err)
		}
		if e.Path == "" {
			return nil, fmt.Errorf("catalog %s: endpoint %d (%s): path is required", name, i, e.Name)
		}
		e.Method = method
		e.Module = m.Name
		e.Expect = types.Success
		if e.Name == "" {
			e.Name = e.Key()
		}
		if method.Mutating() && e.Body == nil {
			e.Body = body.Payload()
		}
		m.Endpoints = append(m.Endpoints, e)
	}
	return m, nil
}

func (c *Catalog) add(m *Module) error {
	if existing, ok := c.byName[m.Name]; ok {
		if existing.Body != m.Body {
			return fmt.Errorf("module %q declared twice with different body conventions", m.Name)
		}
		existing.Endpoints = append(existing.Endpoints, m.Endpoints...)
		return nil
	}
	c.byName[m.Name] = m
	c.modules = append(c.modules, m)
	return nil
}

// Modules returns every module in load order.
func (c *Catalog) Modules() []*Module {
	return append([]*Module(nil), c.modules...)
}

// Module looks a module up by name, case-insensitively.
func (c *Catalog) Module(name string) (*Module, bool) {
	m, ok := c.byName[strings.ToLower(name)]
	return m, ok
}

// Select returns the named modules in the order given, or every module when
// names is empty.
func (c *Catalog) Select(names []string) ([]*Module, error) {
	if len(names) == 0 {
		return c.Modules(), nil
	}
	out := make([]*Module, 0, len(names))
	for _, n := range names {
		m, ok := c.Module(n)
		if !ok {
			return nil, fmt.Errorf("unknown module %q", n)
		}
		out = append(out, m)
	}
	return out, nil
}

// Endpoints returns a module's endpoints, or nil for an unknown module.
func (c *Catalog) Endpoints(module string) []types.EndpointSpec {
	m, ok := c.Module(module)
	if !ok {
		return nil
	}
	return append([]types.EndpointSpec(nil), m.Endpoints...)
}

// Size is the total number of endpoints across modules, duplicates included.
func (c *Catalog) Size() int {
	n := 0
	for _, m := range c.modules {
		n += len(m.Endpoints)
	}
	return n
}

// Marshal renders a module back into catalog file form.
func Marshal(f File) ([]byte, error) {
	return yaml.Marshal(f)
}
