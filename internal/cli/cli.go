package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/wrapgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// stringList collects every occurrence of a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("wrapgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
wrapgrid - resolve and invoke wrap:// Uris.

Usage:
  wrapgrid [options] [QUERY_PATH]
  wrapgrid [options] -uri URI -method METHOD [-args JSON]

Arguments:
  QUERY_PATH
    Path to an HCL query document.

Options:
`)
		flagSet.PrintDefaults()
	}

	var configPaths, vars stringList
	flagSet.Var(&configPaths, "config", "Path to a client config file or directory. Repeatable.")
	queryFlag := flagSet.String("query", "", "Path to the query document.")
	qFlag := flagSet.String("q", "", "Path to the query document (shorthand).")
	flagSet.Var(&vars, "var", "Query variable as key=value. Repeatable.")
	uriFlag := flagSet.String("uri", "", "Uri to invoke directly instead of running a query.")
	methodFlag := flagSet.String("method", "", "Method to call with -uri.")
	argsFlag := flagSet.String("args", "", "JSON object of arguments for -uri.")
	modulesPathFlag := flagSet.String("modules-path", "modules", "Directory served under wrap://fs/. Empty disables it.")
	concurrencyFlag := flagSet.Int("concurrency", 0, "Maximum concurrent requests per query. 0 uses the config file value.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *queryFlag != "" {
		path = *queryFlag
	} else if *qFlag != "" {
		path = *qFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" && *uriFlag == "" {
		slog.Debug("No query or uri provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	variables, err := parseVars(vars)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	var invokeArgs map[string]any
	if *argsFlag != "" {
		if invokeArgs, err = parseArgs(*argsFlag); err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ConfigPaths: configPaths,
		ModulesRoot: *modulesPathFlag,
		QueryPath:   path,
		Vars:        variables,
		URI:         *uriFlag,
		Method:      *methodFlag,
		Args:        invokeArgs,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
		Concurrency: *concurrencyFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// parseVars turns key=value pairs into string variables.
func parseVars(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid var '%s': must be key=value", p)
		}
		out[k] = v
	}
	return out, nil
}

// parseArgs decodes a JSON object, keeping integral numbers as int64.
func parseArgs(raw string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid args: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("invalid args: must be a JSON object")
	}
	return normalizeNumbers(obj).(map[string]any), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	default:
		return v
	}
}
