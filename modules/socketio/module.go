// Package socketio publishes a one-shot Socket.IO exchange at
// wrap://plugin/socketio.
package socketio

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/vk/wrapgrid/internal/core"
	"github.com/vk/wrapgrid/internal/ctxlog"
	"github.com/vk/wrapgrid/internal/plugin"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// URI is where the plugin is registered.
const URI = "wrap://plugin/socketio"

const defaultTimeout = 10 * time.Second

// Module implements the plugin.Module interface for this package.
type Module struct{}

// Input defines the arguments of the 'emitAndWait' method.
type Input struct {
	URL                string `wrap:"url"`
	Namespace          string `wrap:"namespace"`
	OnEvent            string `wrap:"on_event"`
	EmitEvent          string `wrap:"emit_event"`
	EmitData           any    `wrap:"emit_data"`
	Timeout            string `wrap:"timeout"`
	InsecureSkipVerify bool   `wrap:"insecure_skip_verify"`
}

// Output is the first payload received for OnEvent.
type Output struct {
	ResponseData any `wrap:"response_data"`
}

type opResult struct {
	value *Output
	err   error
}

// EmitAndWait connects, optionally emits one event and returns the first
// payload received for input.OnEvent.
func EmitAndWait(ctx context.Context, _ core.Invoker, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("plugin", URI, "url", input.URL, "onEvent", input.OnEvent, "emitEvent", input.EmitEvent)
	logger.Debug("Handler started")
	defer logger.Debug("Handler finished")

	if input.OnEvent == "" {
		return nil, errors.New("on_event must not be empty")
	}

	timeout := defaultTimeout
	if input.Timeout != "" {
		d, err := time.ParseDuration(input.Timeout)
		if err != nil {
			logger.Warn("Failed to parse timeout, using default", "inputTimeout", input.Timeout, "default", defaultTimeout, "error", err)
		} else {
			timeout = d
		}
	}

	parsedURL, err := url.Parse(input.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("failed to parse URL: '%s' has no scheme or host", input.URL)
	}

	var isConnected atomic.Bool
	done := make(chan opResult, 1)
	finish := func(r opResult) {
		select {
		case done <- r:
		default:
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if input.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	namespace := input.Namespace
	if namespace == "" {
		namespace = "/"
	}

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Info("Successfully connected", "namespace", namespace, "sid", io.Id())
		if input.EmitEvent != "" {
			logger.Info("Emitting event", "event", input.EmitEvent)
			io.Emit(input.EmitEvent, input.EmitData)
		}
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connection failed")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = fmt.Errorf("connection failed: %w", e)
			} else {
				err = fmt.Errorf("connection failed: %v", errs[0])
			}
		}
		finish(opResult{err: err})
	})

	io.On(types.EventName(input.OnEvent), func(data ...any) {
		var responseData any
		if len(data) > 0 {
			responseData = data[0]
		}
		finish(opResult{value: &Output{ResponseData: responseData}})
	})

	io.Connect()

	select {
	case <-opCtx.Done():
		if isConnected.Load() {
			return nil, fmt.Errorf("timed out after connecting while waiting for event '%s'", input.OnEvent)
		}
		return nil, errors.New("timed out while waiting for initial connection")
	case res := <-done:
		return res.value, res.err
	}
}

// Register registers the package with the registry.
func (m *Module) Register(r *plugin.Registry) {
	r.Register(&plugin.Package{
		URI: URI,
		Methods: map[string]*plugin.Method{
			"emitAndWait": {
				NewInput: func() any { return new(Input) },
				Fn:       EmitAndWait,
			},
		},
	})
}
