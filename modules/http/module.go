// Package http publishes outbound HTTP at wrap://plugin/http.
package http

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vk/wrapgrid/internal/core"
	"github.com/vk/wrapgrid/internal/ctxlog"
	"github.com/vk/wrapgrid/internal/plugin"
	"resty.dev/v3"
)

// URI is where the plugin is registered.
const URI = "wrap://plugin/http"

// Module implements the plugin.Module interface for this package. A nil
// Client selects a client with pooled connections and a 30s timeout.
type Module struct {
	Client *http.Client

	mu      sync.Mutex
	clients []*resty.Client
}

// RequestInput defines the arguments of the 'request' method.
type RequestInput struct {
	URL     string            `wrap:"url"`
	Method  string            `wrap:"method"`
	Headers map[string]string `wrap:"headers"`
	Body    *string           `wrap:"body"`
	Timeout string            `wrap:"timeout"`
}

// GetInput defines the arguments of the 'get' method.
type GetInput struct {
	URL string `wrap:"url"`
}

// UploadInput defines the arguments of the 'upload' method, which PUTs a
// local file to a pre-signed URL.
type UploadInput struct {
	SourcePath  string `wrap:"source_path"`
	URL         string `wrap:"url"`
	ContentType string `wrap:"content_type"`
}

// Response is returned by 'request' and 'get'.
type Response struct {
	StatusCode int               `wrap:"status_code"`
	Status     string            `wrap:"status"`
	Headers    map[string]string `wrap:"headers"`
	Body       string            `wrap:"body"`
}

// UploadOutput is returned by 'upload'.
type UploadOutput struct {
	Success bool   `wrap:"success"`
	Status  string `wrap:"status"`
}

func newClient(hc *http.Client) *resty.Client {
	if hc != nil {
		return resty.NewWithClient(hc)
	}
	return resty.NewWithTransportSettings(&resty.TransportSettings{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}).SetTimeout(30 * time.Second)
}

type handlers struct {
	client *resty.Client
}

// request is the handler for the 'request' method.
func (h *handlers) request(ctx context.Context, _ core.Invoker, input *RequestInput) (*Response, error) {
	method := strings.ToUpper(input.Method)
	if method == "" {
		method = http.MethodGet
	}
	logger := ctxlog.FromContext(ctx).With("plugin", URI, "method", method, "url", input.URL)
	logger.Info("Making HTTP request")

	if input.Timeout != "" {
		timeout, err := time.ParseDuration(input.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timeout: %w", err)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req := h.client.R().SetContext(ctx).SetHeaders(input.Headers)
	if input.Body != nil {
		req.SetBody(*input.Body)
	}

	resp, err := req.Execute(method, input.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	logger.Info("Received HTTP response", "status", resp.Status())

	return &Response{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Headers:    flattenHeaders(resp.Header()),
		Body:       string(resp.Bytes()),
	}, nil
}

// get is the handler for the 'get' method.
func (h *handlers) get(ctx context.Context, client core.Invoker, input *GetInput) (*Response, error) {
	return h.request(ctx, client, &RequestInput{URL: input.URL, Method: http.MethodGet})
}

// upload contains the logic for uploading a file to a pre-signed URL.
func (h *handlers) upload(ctx context.Context, _ core.Invoker, input *UploadInput) (*UploadOutput, error) {
	logger := ctxlog.FromContext(ctx).With("plugin", URI, "action", "upload")

	data, err := os.ReadFile(input.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file '%s': %w", input.SourcePath, err)
	}

	contentType := input.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(input.SourcePath))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	logger.Info("Uploading file", "source", input.SourcePath, "size", len(data), "contentType", contentType)

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(data).
		Put(input.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to execute upload request: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("upload failed with status: %s", resp.Status())
	}

	logger.Info("Successfully uploaded file", "status", resp.Status())
	return &UploadOutput{Success: true, Status: resp.Status()}, nil
}

// flattenHeaders joins repeated header values with ", ".
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

// Close releases the clients created by Register.
func (m *Module) Close() error {
	m.mu.Lock()
	clients := m.clients
	m.clients = nil
	m.mu.Unlock()

	var errs []error
	for _, c := range clients {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Register registers the package with the registry.
func (m *Module) Register(r *plugin.Registry) {
	client := newClient(m.Client)
	m.mu.Lock()
	m.clients = append(m.clients, client)
	m.mu.Unlock()
	h := &handlers{client: client}

	r.Register(&plugin.Package{
		URI: URI,
		Methods: map[string]*plugin.Method{
			"request": {
				NewInput: func() any { return new(RequestInput) },
				Fn:       h.request,
			},
			"get": {
				NewInput: func() any { return new(GetInput) },
				Fn:       h.get,
			},
			"upload": {
				NewInput: func() any { return new(UploadInput) },
				Fn:       h.upload,
			},
		},
	})
}
