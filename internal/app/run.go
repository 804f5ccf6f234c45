package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/vk/wrapgrid/internal/ctxlog"
)

// invokeOutput is the JSON shape printed for a direct invocation.
type invokeOutput struct {
	Data  any    `json:"data"`
	Error string `json:"error,omitempty"`
}

// Run executes the configured query or invocation and prints the result as
// JSON. The returned error is non-nil when any request failed.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer a.logger.Debug("App.Run method finished.")

	if a.config.URI != "" {
		return a.runInvoke(ctx)
	}
	return a.runQuery(ctx)
}

func (a *App) runQuery(ctx context.Context) error {
	document, err := os.ReadFile(a.config.QueryPath)
	if err != nil {
		return fmt.Errorf("failed to read query document: %w", err)
	}

	a.logger.Info("Running query.", "path", a.config.QueryPath)
	result := a.client.Query(ctx, string(document), a.config.Vars)
	if err := a.write(result); err != nil {
		return err
	}
	if n := len(result.Errors); n > 0 {
		return fmt.Errorf("query finished with %d error(s)", n)
	}
	a.logger.Info("Query finished.", "requests", len(result.Keys))
	return nil
}

func (a *App) runInvoke(ctx context.Context) error {
	a.logger.Info("Invoking.", "uri", a.config.URI, "method", a.config.Method)
	res := a.client.Invoke(ctx, a.config.URI, a.config.Method, a.config.Args)

	out := invokeOutput{Data: res.Data}
	if res.Error != nil {
		out.Error = res.Error.Error()
	}
	if err := a.write(out); err != nil {
		return err
	}
	if res.Error != nil {
		return fmt.Errorf("invocation failed: %w", res.Error)
	}
	return nil
}

func (a *App) write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(a.outW, string(b))
	return err
}
