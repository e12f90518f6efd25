package suite

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"api-conformance/internal/auth"
	"api-conformance/internal/executor"
	"api-conformance/internal/registry"
	"api-conformance/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ep(name string, m types.Method, path string) types.EndpointSpec {
	return types.EndpointSpec{Name: name, Module: "test", Method: m, Path: path, Expect: types.Success}
}

type fakeAuth struct {
	mu     sync.Mutex
	calls  int
	token  string
	status int
}

func (f *fakeAuth) Login(context.Context, auth.Credentials) *auth.Session {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return &auth.Session{Token: f.token, Status: f.status}
}

// fakeDispatcher fails any path listed in failing and records call order.
type fakeDispatcher struct {
	mu      sync.Mutex
	failing map[string]bool
	calls   []string
	tokens  []string
}

func (f *fakeDispatcher) Dispatch(_ context.Context, s *auth.Session, e types.EndpointSpec) (types.CaseResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, e.Name)
	f.tokens = append(f.tokens, s.Token)
	f.mu.Unlock()

	res := types.CaseResult{Module: e.Module, Group: e.Method, Name: e.Name, Method: e.Method, Template: e.Path, Path: e.Path, Status: 200, Outcome: types.OutcomePass}
	if f.failing[e.Name] {
		res.Status = 500
		res.Outcome = types.OutcomeFail
		res.Message = "Expected 200-series for " + string(e.Method) + " " + e.Path
	}
	return res, nil
}

type recorder struct {
	mu    sync.Mutex
	auths []string
	cases int
}

func (r *recorder) ObserveAuth(module string, _ *auth.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auths = append(r.auths, module)
}

func (r *recorder) ObserveCase(types.CaseResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cases++
}

func TestGroupByMethod(t *testing.T) {
	endpoints := []types.EndpointSpec{
		ep("d1", types.MethodDelete, "/a/{id}"),
		ep("g1", types.MethodGet, "/a"),
		ep("p1", types.MethodPatch, "/a/{id}"),
		ep("g2", types.MethodGet, "/a/{id}"),
		ep("po1", types.MethodPost, "/a"),
		ep("g3", types.MethodGet, "/a"),
	}

	groups := GroupByMethod(endpoints)

	var order []types.Method
	var names [][]string
	for _, g := range groups {
		order = append(order, g.Method)
		var n []string
		for _, e := range g.Endpoints {
			n = append(n, e.Name)
		}
		names = append(names, n)
	}
	assert.Equal(t, []types.Method{types.MethodGet, types.MethodPost, types.MethodPatch, types.MethodDelete}, order)
	assert.Equal(t, [][]string{{"g1", "g2", "g3"}, {"po1"}, {"p1"}, {"d1"}}, names)
}

func TestGroupByMethodKeepsUnknownVerbs(t *testing.T) {
	endpoints := []types.EndpointSpec{
		ep("lower", "get", "/a"),
		ep("g1", types.MethodGet, "/a"),
		ep("opt", "OPTIONS", "/a"),
		ep("lower2", "get", "/b"),
	}

	groups := GroupByMethod(endpoints)

	require.Len(t, groups, 3)
	assert.Equal(t, types.MethodGet, groups[0].Method)
	assert.Equal(t, types.Method("get"), groups[1].Method)
	assert.Len(t, groups[1].Endpoints, 2)
	assert.Equal(t, types.Method("OPTIONS"), groups[2].Method)

	total := 0
	for _, g := range groups {
		total += len(g.Endpoints)
	}
	assert.Equal(t, len(endpoints), total)
}

func TestRunModuleRecordsUnknownVerbAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logger := quietLogger()
	r := NewRunner(
		&fakeAuth{token: "tok"},
		executor.NewDispatcher(srv.Client(), executor.Options{BaseURL: srv.URL, ExpectAnyStatus: true}, logger),
		Options{},
		logger,
	)
	m := &registry.Module{Name: "seo", Endpoints: []types.EndpointSpec{
		ep("audits", types.MethodGet, "/seo/audits"),
		ep("lowerAudits", "get", "/seo/audits"),
	}}

	cases := r.RunModule(context.Background(), m).Cases()

	require.Len(t, cases, 2)
	assert.Equal(t, types.OutcomePass, cases[0].Outcome)
	assert.Equal(t, types.OutcomeError, cases[1].Outcome)
	assert.Contains(t, cases[1].Message, types.ErrUnsupportedMethod.Error())
}

func TestRunModuleDuplicatesRunTwice(t *testing.T) {
	m := &registry.Module{Name: "security", Endpoints: []types.EndpointSpec{
		ep("getSecurityEvent", types.MethodGet, "/security/events/{id}"),
		ep("getSecurityEventDetails", types.MethodGet, "/security/events/{id}"),
	}}
	d := &fakeDispatcher{}
	r := NewRunner(&fakeAuth{token: "t"}, d, Options{}, quietLogger())

	res := r.RunModule(context.Background(), m)

	require.Len(t, res.Groups, 1)
	assert.Len(t, res.Groups[0].Cases, 2)
	assert.Equal(t, []string{"getSecurityEvent", "getSecurityEventDetails"}, d.calls)
	assert.Equal(t, types.Counts{Total: 2, Passed: 2}, res.Counts())
}

func TestRunModuleCasesAreIndependent(t *testing.T) {
	m := &registry.Module{Name: "orders", Endpoints: []types.EndpointSpec{
		ep("first", types.MethodGet, "/orders"),
		ep("broken", types.MethodPost, "/orders"),
		ep("last", types.MethodDelete, "/orders/{id}"),
	}}
	d := &fakeDispatcher{failing: map[string]bool{"broken": true}}
	r := NewRunner(&fakeAuth{}, d, Options{}, quietLogger())

	res := r.RunModule(context.Background(), m)

	assert.Equal(t, []string{"first", "broken", "last"}, d.calls)
	c := res.Counts()
	assert.Equal(t, 3, c.Total)
	assert.Equal(t, 2, c.Passed)
	assert.Equal(t, 1, c.Failed)
	assert.False(t, c.OK())
	assert.False(t, res.Auth.Authenticated)
}

func TestRunModuleAuthenticatesOnceAndSharesToken(t *testing.T) {
	m := &registry.Module{Name: "bulk", Endpoints: []types.EndpointSpec{
		ep("a", types.MethodGet, "/bulk"),
		ep("b", types.MethodPost, "/bulk"),
		ep("c", types.MethodPut, "/bulk/{id}"),
	}}
	a := &fakeAuth{token: "shared", status: 200}
	d := &fakeDispatcher{}
	r := NewRunner(a, d, Options{}, quietLogger())

	res := r.RunModule(context.Background(), m)

	assert.Equal(t, 1, a.calls)
	assert.Equal(t, []string{"shared", "shared", "shared"}, d.tokens)
	assert.True(t, res.Auth.Authenticated)
	assert.Equal(t, 200, res.Auth.Status)
}

func TestRunStaticTokenSkipsLogin(t *testing.T) {
	a := &fakeAuth{}
	d := &fakeDispatcher{}
	rec := &recorder{}
	r := NewRunner(a, d, Options{Token: "preset", Observer: rec}, quietLogger())

	r.RunModule(context.Background(), &registry.Module{Name: "seo", Endpoints: []types.EndpointSpec{ep("x", types.MethodGet, "/seo")}})

	assert.Zero(t, a.calls)
	assert.Equal(t, []string{"preset"}, d.tokens)
	assert.Equal(t, []string{"seo"}, rec.auths)
	assert.Equal(t, 1, rec.cases)
}

func TestRunKeepsModuleOrder(t *testing.T) {
	var modules []*registry.Module
	for _, name := range []string{"bulk", "customer", "gift-cards", "orders", "security", "seo", "social"} {
		modules = append(modules, &registry.Module{Name: name, Endpoints: []types.EndpointSpec{
			ep(name+"-list", types.MethodGet, "/"+name),
		}})
	}
	a := &fakeAuth{token: "t"}
	r := NewRunner(a, &fakeDispatcher{}, Options{MaxWorkers: 3}, quietLogger())

	results := r.Run(context.Background(), modules)

	require.Len(t, results, len(modules))
	for i, res := range results {
		assert.Equal(t, modules[i].Name, res.Module)
		assert.Equal(t, 1, res.Counts().Passed)
	}
	assert.Equal(t, len(modules), a.calls)
}

func TestRunT(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			_, _ = w.Write([]byte(`{"data":{"accessToken":"abc"}}`))
			return
		}
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	catalog, err := registry.Default()
	require.NoError(t, err)
	bulk, ok := catalog.Module("bulk")
	require.True(t, ok)

	logger := quietLogger()
	r := NewRunner(
		auth.NewBootstrapper(srv.Client(), srv.URL, "", logger),
		executor.NewDispatcher(srv.Client(), executor.Options{BaseURL: srv.URL, ExpectAnyStatus: true}, logger),
		Options{},
		logger,
	)

	t.Run("conformance", func(t *testing.T) {
		RunT(t, r, []*registry.Module{bulk})
	})

	assert.Len(t, paths, len(bulk.Endpoints))
	assert.Contains(t, paths, "GET /bulk/test-id/jobs/test-id/progress")
}
