package socketio

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/wrapgrid/internal/plugin"
	"github.com/vk/wrapgrid/internal/testutil"
	"github.com/vk/wrapgrid/internal/uri"
)

func newPlugin(t *testing.T) *plugin.Plugin {
	t.Helper()
	r := plugin.NewRegistry().Load(&Module{})
	pkg, ok := r.Package(URI)
	require.True(t, ok)
	return plugin.New(uri.MustParse(URI), pkg)
}

func TestEmitAndWait_InvalidInput(t *testing.T) {
	ctx, _ := testutil.Context(t)
	p := newPlugin(t)

	res := p.Invoke(ctx, "emitAndWait", map[string]any{"url": "http://localhost:1"}, nil)
	require.EqualError(t, res.Error, "on_event must not be empty")

	res = p.Invoke(ctx, "emitAndWait", map[string]any{"url": "not a url", "on_event": "reply"}, nil)
	require.ErrorContains(t, res.Error, "failed to parse URL")
}

func TestEmitAndWait_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, _ := testutil.Context(t)
	res := newPlugin(t).Invoke(ctx, "emitAndWait", map[string]any{
		"url":      "http://" + addr,
		"on_event": "reply",
		"timeout":  "300ms",
	}, nil)

	require.Error(t, res.Error)
	assert.Nil(t, res.Data)
}
