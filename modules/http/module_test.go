package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/wrapgrid/internal/plugin"
	"github.com/vk/wrapgrid/internal/testutil"
	"github.com/vk/wrapgrid/internal/uri"
)

func newPlugin(t *testing.T, client *http.Client) *plugin.Plugin {
	t.Helper()
	m := &Module{Client: client}
	r := plugin.NewRegistry().Load(m)
	t.Cleanup(func() { require.NoError(t, m.Close()) })
	pkg, ok := r.Package(URI)
	require.True(t, ok)
	return plugin.New(uri.MustParse(URI), pkg)
}

func TestRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Method", r.Method)
		w.Header().Set("X-Token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(append([]byte("echo:"), body...))
	}))
	defer srv.Close()

	ctx, _ := testutil.Context(t)
	res := newPlugin(t, srv.Client()).Invoke(ctx, "request", map[string]any{
		"url":     srv.URL,
		"method":  "post",
		"headers": map[string]any{"Authorization": "Bearer x"},
		"body":    "hello",
		"timeout": "5s",
	}, nil)
	require.NoError(t, res.Error)

	out, ok := res.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusCreated), out["status_code"])
	assert.Equal(t, "echo:hello", out["body"])
	headers := out["headers"].(map[string]any)
	assert.Equal(t, "POST", headers["X-Method"])
	assert.Equal(t, "Bearer x", headers["X-Token"])
}

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Method))
	}))
	defer srv.Close()

	ctx, _ := testutil.Context(t)
	res := newPlugin(t, srv.Client()).Invoke(ctx, "get", map[string]any{"url": srv.URL}, nil)
	require.NoError(t, res.Error)
	assert.Equal(t, "GET", res.Data.(map[string]any)["body"])
}

func TestRequest_Errors(t *testing.T) {
	ctx, _ := testutil.Context(t)
	p := newPlugin(t, nil)

	res := p.Invoke(ctx, "request", map[string]any{"url": "http://127.0.0.1:1", "timeout": "soon"}, nil)
	require.ErrorContains(t, res.Error, "failed to parse timeout")

	res = p.Invoke(ctx, "request", map[string]any{"url": "://bad"}, nil)
	require.ErrorContains(t, res.Error, "failed to execute request")
}

func TestUpload(t *testing.T) {
	var gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	src := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"ok":true}`), 0o644))

	ctx, _ := testutil.Context(t)
	p := newPlugin(t, srv.Client())

	res := p.Invoke(ctx, "upload", map[string]any{"source_path": src, "url": srv.URL}, nil)
	require.NoError(t, res.Error)
	assert.Equal(t, true, res.Data.(map[string]any)["success"])
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, `{"ok":true}`, string(gotBody))

	res = p.Invoke(ctx, "upload", map[string]any{"source_path": filepath.Join(t.TempDir(), "missing"), "url": srv.URL}, nil)
	require.ErrorContains(t, res.Error, "failed to open source file")
}

func TestModule_Close(t *testing.T) {
	m := &Module{}
	plugin.NewRegistry().Load(m)
	require.Len(t, m.clients, 1)

	require.NoError(t, m.Close())
	assert.Empty(t, m.clients)
	require.NoError(t, m.Close())
}
