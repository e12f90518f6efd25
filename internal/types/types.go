package types

import (
	"fmt"
	"strings"
)

// Sentinel is the literal substituted for every path parameter that a catalog
// entry does not set explicitly.
const Sentinel = "test-id"

// Method is an HTTP verb accepted by the catalog.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

// Methods lists the supported verbs in the order groups are run.
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete}

// ParseMethod normalizes and validates a verb.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if m.Supported() {
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, s)
}

// Supported reports whether m is exactly one of Methods.
func (m Method) Supported() bool {
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

// Mutating reports whether requests with this verb carry a body.
func (m Method) Mutating() bool {
	return m == MethodPost || m == MethodPut || m == MethodPatch
}

// StatusRange is a closed interval of acceptable HTTP status codes.
type StatusRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Success is the 200-series range every endpoint is expected to satisfy.
var Success = StatusRange{Min: 200, Max: 299}

// Contains reports whether status lies within the range, inclusive.
func (r StatusRange) Contains(status int) bool {
	return status >= r.Min && status <= r.Max
}

// EndpointSpec represents one documented API operation.
type EndpointSpec struct {
	Name   string            `json:"name" yaml:"name"`
	Module string            `json:"module" yaml:"-"`
	Method Method            `json:"method" yaml:"method"`
	Path   string            `json:"path" yaml:"path"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Body   map[string]any    `json:"body,omitempty" yaml:"body,omitempty"`
	Expect StatusRange       `json:"expect" yaml:"-"`
}

// Key is the method and template joined as "GET /path/{id}".
func (e EndpointSpec) Key() string {
	return fmt.Sprintf("%s %s", e.Method, e.Path)
}

// Param returns the substitution value for a placeholder, falling back to the
// sentinel.
func (e EndpointSpec) Param(name string) string {
	if v, ok := e.Params[name]; ok && v != "" {
		return v
	}
	return Sentinel
}

// BodyConvention names one of the fixed request payload shapes a module uses
// for mutating verbs.
type BodyConvention string

const (
	BodyStandard BodyConvention = "standard"
	BodyOrder    BodyConvention = "order"
)

// Payload returns a fresh copy of the convention's literal body.
func (c BodyConvention) Payload() map[string]any {
	switch c {
	case BodyOrder:
		return map[string]any{
			"items": []any{
				map[string]any{"productId": Sentinel, "quantity": 1},
			},
			"shippingAddress": "Test Address",
		}
	default:
		return map[string]any{
			"name":   "Test",
			"value":  "test-value",
			"status": "active",
		}
	}
}

// ParseBodyConvention validates a convention name; empty means standard.
func ParseBodyConvention(s string) (BodyConvention, error) {
	switch BodyConvention(strings.ToLower(s)) {
	case "", BodyStandard:
		return BodyStandard, nil
	case BodyOrder:
		return BodyOrder, nil
	}
	return "", fmt.Errorf("unknown body convention %q", s)
}
