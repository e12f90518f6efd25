package testdata

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"api-conformance/internal/openapi"
	"api-conformance/internal/registry"
	"api-conformance/internal/types"
)

// Generator turns an API document into catalog files, one per module
type Generator struct {
	outputDir string
	bodies    map[string]types.BodyConvention
	logger    *slog.Logger
}

// NewGenerator creates a new instance of Generator. Modules named "orders" use
// the order body convention unless bodies says otherwise; every other module
// uses the standard one.
func NewGenerator(outputDir string, bodies map[string]types.BodyConvention, logger *slog.Logger) *Generator {
	merged := map[string]types.BodyConvention{"orders": types.BodyOrder}
	for k, v := range bodies {
		merged[strings.ToLower(k)] = v
	}
	return &Generator{
		outputDir: outputDir,
		bodies:    merged,
		logger:    logger,
	}
}

// Build groups the document's operations into catalog files, in the order each
// module is first seen. Operations whose path is not a valid template are
// dropped with a warning.
func (g *Generator) Build(doc *openapi.Document) []registry.File {
	var order []string
	byModule := make(map[string]*registry.File)

	for _, op := range doc.Operations {
		if _, err := registry.ParseTemplate(op.Path); err != nil {
			g.logger.Warn("skipping operation", "method", op.Method, "path", op.Path, "error", err)
			continue
		}

		module := ModuleName(op)
		f, ok := byModule[module]
		if !ok {
			body := types.BodyStandard
			if b, found := g.bodies[module]; found {
				body = b
			}
			f = &registry.File{Module: module, Body: string(body)}
			byModule[module] = f
			order = append(order, module)
		}

		name := op.OperationID
		if name == "" {
			name = OperationName(op.Method, op.Path)
		}
		f.Endpoints = append(f.Endpoints, types.EndpointSpec{
			Name:   name,
			Method: op.Method,
			Path:   op.Path,
		})
	}

	files := make([]registry.File, 0, len(order))
	for _, m := range order {
		files = append(files, *byModule[m])
	}
	return files
}

// Generate builds the catalog files and writes them to the output directory as
// <module>.yaml. It returns the written paths.
func (g *Generator) Generate(doc *openapi.Document) ([]string, error) {
	files := g.Build(doc)
	if len(files) == 0 {
		return nil, fmt.Errorf("document has no usable operations")
	}

	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		data, err := registry.Marshal(f)
		if err != nil {
			return paths, fmt.Errorf("failed to marshal module %s: %w", f.Module, err)
		}

		outputPath := filepath.Join(g.outputDir, f.Module+".yaml")
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			return paths, fmt.Errorf("failed to write catalog file: %w", err)
		}

		g.logger.Info("catalog generated", "module", f.Module, "endpoints", len(f.Endpoints), "path", outputPath)
		paths = append(paths, outputPath)
	}
	return paths, nil
}

// ModuleName picks the module for an operation: its first tag, else the first
// literal path segment.
func ModuleName(op openapi.Operation) string {
	if len(op.Tags) > 0 && strings.TrimSpace(op.Tags[0]) != "" {
		return slug(op.Tags[0])
	}
	for _, seg := range strings.Split(op.Path, "/") {
		if seg != "" && !strings.HasPrefix(seg, "{") {
			return slug(seg)
		}
	}
	return "root"
}

// OperationName derives a name such as "getGiftCardsById" from a method and
// path.
func OperationName(method types.Method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(string(method)))
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			b.WriteString("By")
			seg = strings.Trim(seg, "{}")
		}
		for _, word := range strings.FieldsFunc(seg, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			r := []rune(word)
			r[0] = unicode.ToUpper(r[0])
			b.WriteString(string(r))
		}
	}
	return b.String()
}

func slug(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return "root"
	}
	return strings.Join(fields, "-")
}
