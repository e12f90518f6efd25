package openapi

import (
	"fmt"

	"api-conformance/internal/types"

	"github.com/getkin/kin-openapi/openapi3"
)

// parseV3 reads an OpenAPI 3 document with kin-openapi.
func parseV3(data []byte) (*Document, error) {
	loader := openapi3.NewLoader()
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI doc: %w", err)
	}

	doc := &Document{}
	if spec.Info != nil {
		doc.Title = spec.Info.Title
		doc.Version = spec.Info.Version
	}
	if spec.Paths == nil {
		return doc, nil
	}

	for path, pathItem := range spec.Paths.Map() {
		for method, op := range pathItem.Operations() {
			m, err := types.ParseMethod(method)
			if err != nil {
				doc.Skipped++
				continue
			}
			doc.Operations = append(doc.Operations, Operation{
				Method:      m,
				Path:        path,
				OperationID: op.OperationID,
				Summary:     op.Summary,
				Tags:        op.Tags,
				HasBody:     op.RequestBody != nil,
			})
		}
	}
	return doc, nil
}
