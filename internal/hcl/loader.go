package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/wrapgrid/internal/config"
	"github.com/vk/wrapgrid/internal/ctxlog"
	"github.com/vk/wrapgrid/internal/fsutil"
)

// clientFileSchema is the top-level structure of a client configuration file.
type clientFileSchema struct {
	Concurrency *int             `hcl:"concurrency,optional"`
	ModulesRoot *string          `hcl:"modules_root,optional"`
	Redirects   []*redirectBlock `hcl:"redirect,block"`
}

type redirectBlock struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found under paths and merges them in order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading client configuration...", "paths", paths)

	files, err := fsutil.CollectFiles(paths, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to find configuration files: %w", err)
	}

	parser := hclparse.NewParser()
	model := config.NewModel()
	for _, path := range files {
		file, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
		}
		part, diags := decodeClientFile(file.Body)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
		}
		model.Merge(part)
		logger.Debug("Loaded configuration file.", "file", path, "redirects", len(part.Redirects))
	}

	logger.Info("Client configuration loaded.", "files", len(files), "redirects", len(model.Redirects))
	return model, nil
}

// LoadBytes parses a single configuration document held in memory.
func (l *Loader) LoadBytes(ctx context.Context, src []byte, filename string) (*config.Model, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	model, diags := decodeClientFile(file.Body)
	if diags.HasErrors() {
		return nil, diags
	}
	ctxlog.FromContext(ctx).Debug("Loaded in-memory configuration.", "file", filename, "redirects", len(model.Redirects))
	return model, nil
}

func decodeClientFile(body hcl.Body) (*config.Model, hcl.Diagnostics) {
	var schema clientFileSchema
	diags := gohcl.DecodeBody(body, nil, &schema)
	if diags.HasErrors() {
		return nil, diags
	}

	model := config.NewModel()
	if schema.Concurrency != nil {
		if *schema.Concurrency < 0 {
			return nil, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid concurrency",
				Detail:   "The 'concurrency' attribute cannot be negative.",
			}}
		}
		model.Concurrency = *schema.Concurrency
	}
	if schema.ModulesRoot != nil {
		model.ModulesRoot = *schema.ModulesRoot
	}
	for _, r := range schema.Redirects {
		model.Redirects = append(model.Redirects, config.RedirectDefinition{From: r.From, To: r.To})
	}
	return model, diags
}
