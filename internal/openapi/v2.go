package openapi

import (
	"errors"
	"fmt"

	"api-conformance/internal/types"

	"github.com/pb33f/libopenapi"
	v2high "github.com/pb33f/libopenapi/datamodel/high/v2"
)

// parseV2 reads a Swagger 2.0 document with libopenapi.
func parseV2(data []byte) (*Document, error) {
	document, err := libopenapi.NewDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to create swagger document: %w", err)
	}

	docModel, buildErrs := document.BuildV2Model()
	if docModel == nil {
		return nil, fmt.Errorf("failed to build Swagger v2 model: %w", errors.Join(buildErrs...))
	}

	doc := &Document{BasePath: docModel.Model.BasePath}
	if docModel.Model.Info != nil {
		doc.Title = docModel.Model.Info.Title
		doc.Version = docModel.Model.Info.Version
	}
	if docModel.Model.Paths == nil {
		return doc, nil
	}

	for pathPair := docModel.Model.Paths.PathItems.First(); pathPair != nil; pathPair = pathPair.Next() {
		path := pathPair.Key()
		pathItem := pathPair.Value()

		ops := []struct {
			method types.Method
			op     *v2high.Operation
		}{
			{types.MethodGet, pathItem.Get},
			{types.MethodPost, pathItem.Post},
			{types.MethodPut, pathItem.Put},
			{types.MethodPatch, pathItem.Patch},
			{types.MethodDelete, pathItem.Delete},
		}
		for _, o := range ops {
			if o.op == nil {
				continue
			}
			doc.Operations = append(doc.Operations, Operation{
				Method:      o.method,
				Path:        path,
				OperationID: o.op.OperationId,
				Summary:     o.op.Summary,
				Tags:        o.op.Tags,
				HasBody:     hasBodyParam(o.op),
			})
		}
		for _, other := range []*v2high.Operation{pathItem.Head, pathItem.Options} {
			if other != nil {
				doc.Skipped++
			}
		}
	}
	return doc, nil
}

func hasBodyParam(op *v2high.Operation) bool {
	for _, p := range op.Parameters {
		if p != nil && p.In == "body" {
			return true
		}
	}
	return false
}
