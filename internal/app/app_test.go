package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/wrapgrid/internal/core"
	"github.com/vk/wrapgrid/internal/hcl"
	"github.com/vk/wrapgrid/internal/plugin"
	"github.com/vk/wrapgrid/internal/testutil"
)

const greeterConfig = `
concurrency = 2

redirect {
  from = "wrap://ens/greeter"
  to   = "wrap://plugin/greeter"
}
`

const greeterQuery = `
query "hi" {
  uri    = "wrap://ens/greeter"
  method = "greet"
  args = {
    name = var.first
  }
}

query "hi" {
  uri    = "wrap://ens/greeter"
  method = "greet"
  args = {
    name = "bob"
  }
}
`

func greeterModule() *testutil.SimpleModule {
	return &testutil.SimpleModule{
		URI: "wrap://plugin/greeter",
		Methods: map[string]*plugin.Method{
			"greet": testutil.Untyped(func(_ context.Context, _ core.Invoker, args map[string]any) (any, error) {
				name, _ := args["name"].(string)
				if name == "" {
					return nil, errors.New("name is required")
				}
				return "hello " + name, nil
			}),
		},
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newTestApp(t *testing.T, cfg Config) (*App, *bytes.Buffer) {
	t.Helper()
	cfg.LogLevel = "debug"
	appConfig, err := NewConfig(cfg)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	logs := &testutil.SafeBuffer{}
	a, err := NewApp(context.Background(), out, logs, appConfig, hcl.NewLoader(), greeterModule())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, a.Close(context.Background()))
		if os.Getenv("WRAPGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return a, out
}

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "query", cfg: Config{QueryPath: "q.hcl"}},
		{name: "invoke", cfg: Config{URI: "wrap://a/b", Method: "m"}},
		{name: "nothing", cfg: Config{}, wantErr: "either a query document or a uri is required"},
		{name: "both", cfg: Config{QueryPath: "q.hcl", URI: "wrap://a/b", Method: "m"}, wantErr: "a query document and a uri cannot be used together"},
		{name: "no method", cfg: Config{URI: "wrap://a/b"}, wantErr: "method is required when invoking a uri directly"},
		{name: "negative concurrency", cfg: Config{QueryPath: "q.hcl", Concurrency: -1}, wantErr: "concurrency cannot be negative, got -1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewConfig(tc.cfg)
			if tc.wantErr != "" {
				require.EqualError(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.cfg, *got)
		})
	}
}

func TestApp_RunQuery(t *testing.T) {
	dir := t.TempDir()
	a, out := newTestApp(t, Config{
		ConfigPaths: []string{writeFile(t, dir, "client.hcl", greeterConfig)},
		QueryPath:   writeFile(t, dir, "query.hcl", greeterQuery),
		Vars:        map[string]any{"first": "ada"},
	})

	require.NoError(t, a.Run(context.Background()))
	assert.JSONEq(t, `{"data":{"hi":"hello ada","hi_1":"hello bob"}}`, out.String())
}

func TestApp_RunQuery_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	a, out := newTestApp(t, Config{
		ConfigPaths: []string{writeFile(t, dir, "client.hcl", greeterConfig)},
		QueryPath:   writeFile(t, dir, "query.hcl", greeterQuery),
		Vars:        map[string]any{"first": ""},
	})

	err := a.Run(context.Background())
	require.EqualError(t, err, "query finished with 1 error(s)")
	assert.JSONEq(t, `{"data":{"hi":null,"hi_1":"hello bob"},"errors":["hi: name is required"]}`, out.String())
}

func TestApp_RunQuery_MissingDocument(t *testing.T) {
	a, _ := newTestApp(t, Config{QueryPath: filepath.Join(t.TempDir(), "missing.hcl")})

	err := a.Run(context.Background())
	require.ErrorContains(t, err, "failed to read query document")
}

func TestApp_RunInvoke(t *testing.T) {
	dir := t.TempDir()
	a, out := newTestApp(t, Config{
		ConfigPaths: []string{writeFile(t, dir, "client.hcl", greeterConfig)},
		URI:         "wrap://ens/greeter",
		Method:      "greet",
		Args:        map[string]any{"name": "eve"},
	})

	require.NoError(t, a.Run(context.Background()))
	assert.JSONEq(t, `{"data":"hello eve"}`, out.String())
}

func TestApp_RunInvoke_Failure(t *testing.T) {
	a, out := newTestApp(t, Config{URI: "wrap://plugin/greeter", Method: "missing"})

	err := a.Run(context.Background())
	require.Error(t, err)

	var notFound *core.MethodNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, out.String(), `"data":null`)
	assert.Contains(t, out.String(), `"error":`)
}

func TestApp_ModulesRoot(t *testing.T) {
	a, out := newTestApp(t, Config{
		ModulesRoot: t.TempDir(),
		URI:         "wrap://fs/absent",
		Method:      "run",
	})

	assert.Contains(t, uris(a), "wrap://fs/**")
	require.Error(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), `"error":`)
}

func TestNewApp_Errors(t *testing.T) {
	dir := t.TempDir()
	appConfig, err := NewConfig(Config{
		ConfigPaths: []string{writeFile(t, dir, "client.hcl", `redirect {`)},
		URI:         "wrap://ens/greeter",
		Method:      "greet",
	})
	require.NoError(t, err)
	_, err = NewApp(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, appConfig, hcl.NewLoader())
	require.ErrorContains(t, err, "failed to load configuration")

	appConfig.ConfigPaths = []string{writeFile(t, dir, "client.hcl", `
redirect {
  from = "wrap://ens/loop"
  to   = "wrap://ens/loop"
}
`)}
	_, err = NewApp(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, appConfig, hcl.NewLoader())
	require.Error(t, err)
}

type closingModule struct {
	*testutil.SimpleModule
	closed int
}

func (m *closingModule) Close() error {
	m.closed++
	return nil
}

func TestApp_CloseReleasesModules(t *testing.T) {
	appConfig, err := NewConfig(Config{URI: "wrap://plugin/greeter", Method: "greet"})
	require.NoError(t, err)

	mod := &closingModule{SimpleModule: greeterModule()}
	a, err := NewApp(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, appConfig, hcl.NewLoader(), mod)
	require.NoError(t, err)

	require.NoError(t, a.Close(context.Background()))
	assert.Equal(t, 1, mod.closed)
}

func uris(a *App) []string {
	var out []string
	for _, r := range a.Client().Redirects() {
		out = append(out, r.From.String())
	}
	return out
}
