package suite

import (
	"context"
	"testing"

	"api-conformance/internal/registry"
	"api-conformance/internal/types"
)

// RunT drives the runner from a Go test binary: one subtest per module, per
// verb group and per endpoint. Modules run in parallel subtests; everything
// inside a module runs in order.
func RunT(t *testing.T, r *Runner, modules []*registry.Module) {
	t.Helper()
	for _, m := range modules {
		t.Run(m.Name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			session := r.Session(ctx, m.Name)
			if !session.Authenticated() {
				t.Logf("no token for module %s, running unauthenticated", m.Name)
			}

			for _, g := range GroupByMethod(m.Endpoints) {
				t.Run(string(g.Method), func(t *testing.T) {
					for _, e := range g.Endpoints {
						t.Run(e.Name, func(t *testing.T) {
							res := r.RunCase(ctx, session, e)
							switch res.Outcome {
							case types.OutcomeFail, types.OutcomeError:
								t.Error(res.Message)
							}
						})
					}
				})
			}
		})
	}
}
