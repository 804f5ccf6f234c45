package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/wrapgrid/internal/config"
)

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(`
concurrency  = 8
modules_root = "/srv/modules"

redirect {
  from = "wrap://ens/calc"
  to   = "wrap://fs/calc"
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.hcl"), []byte(`
concurrency = 2

redirect {
  from = "wrap://ens/legacy/*"
  to   = "wrap://ens/calc"
}
`), 0o644))

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, &config.Model{
		Redirects: []config.RedirectDefinition{
			{From: "wrap://ens/calc", To: "wrap://fs/calc"},
			{From: "wrap://ens/legacy/*", To: "wrap://ens/calc"},
		},
		Concurrency: 2,
		ModulesRoot: "/srv/modules",
	}, model)
}

func TestLoader_Errors(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	_, err := NewLoader().Load(ctx, filepath.Join(dir, "missing.hcl"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.hcl")
	require.NoError(t, os.WriteFile(bad, []byte(`redirect {`), 0o644))
	_, err = NewLoader().Load(ctx, bad)
	require.ErrorContains(t, err, "failed to parse")

	testCases := []struct {
		name string
		src  string
	}{
		{name: "missing to", src: `redirect { from = "wrap://a/b" }`},
		{name: "unknown attribute", src: `workers = 3`},
		{name: "negative concurrency", src: `concurrency = -1`},
		{name: "wrong type", src: `concurrency = "many"`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader().LoadBytes(ctx, []byte(tc.src), "client.hcl")
			require.Error(t, err)
		})
	}
}

func TestLoader_LoadBytesEmpty(t *testing.T) {
	model, err := NewLoader().LoadBytes(context.Background(), nil, "empty.hcl")
	require.NoError(t, err)
	assert.Empty(t, model.Redirects)
	assert.Zero(t, model.Concurrency)
}
