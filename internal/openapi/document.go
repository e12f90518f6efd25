// Package openapi reads OpenAPI 3 and Swagger 2.0 documents into a flat list of
// operations for the catalog generator.
package openapi

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"api-conformance/internal/types"

	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for documents that declare neither "openapi" nor
// "swagger".
var ErrUnknownFormat = errors.New("document is neither OpenAPI 3 nor Swagger 2.0")

// Operation is one method on one path.
type Operation struct {
	Method      types.Method
	Path        string
	OperationID string
	Summary     string
	Tags        []string
	HasBody     bool
}

// Document is the parsed form of an API description.
type Document struct {
	Title    string
	Version  string
	BasePath string
	// Operations are sorted by path, then by GET, POST, PUT, PATCH, DELETE.
	Operations []Operation
	// Skipped counts operations on verbs the catalog does not support.
	Skipped int
}

// Parse detects the document flavour and parses it.
func Parse(data []byte) (*Document, error) {
	var probe struct {
		OpenAPI string `yaml:"openapi"`
		Swagger string `yaml:"swagger"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to read document header: %w", err)
	}

	var (
		doc *Document
		err error
	)
	switch {
	case strings.HasPrefix(probe.OpenAPI, "3."):
		doc, err = parseV3(data)
	case strings.HasPrefix(probe.Swagger, "2."):
		doc, err = parseV2(data)
	default:
		return nil, ErrUnknownFormat
	}
	if err != nil {
		return nil, err
	}

	sortOperations(doc.Operations)
	return doc, nil
}

func methodRank(m types.Method) int {
	for i, known := range types.Methods {
		if m == known {
			return i
		}
	}
	return len(types.Methods)
}

func sortOperations(ops []Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].Path != ops[j].Path {
			return ops[i].Path < ops[j].Path
		}
		return methodRank(ops[i].Method) < methodRank(ops[j].Method)
	})
}
