// Package suite organizes a module's endpoints into verb groups and runs them.
package suite

import (
	"api-conformance/internal/types"
)

// Group is the endpoints of one verb, in catalog order.
type Group struct {
	Method    types.Method
	Endpoints []types.EndpointSpec
}

// GroupByMethod splits endpoints into groups ordered GET, POST, PUT, PATCH,
// DELETE. Any other verb gets its own trailing group in first-seen order so
// that no endpoint is lost. Empty groups are omitted and duplicates are kept.
func GroupByMethod(endpoints []types.EndpointSpec) []Group {
	byMethod := make(map[types.Method][]types.EndpointSpec, len(types.Methods))
	var others []types.Method
	for _, e := range endpoints {
		if !e.Method.Supported() && len(byMethod[e.Method]) == 0 {
			others = append(others, e.Method)
		}
		byMethod[e.Method] = append(byMethod[e.Method], e)
	}

	groups := make([]Group, 0, len(byMethod))
	for _, m := range append(append([]types.Method(nil), types.Methods...), others...) {
		if eps := byMethod[m]; len(eps) > 0 {
			groups = append(groups, Group{Method: m, Endpoints: eps})
		}
	}
	return groups
}
