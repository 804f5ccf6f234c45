package wasm

import (
	"context"
	"fmt"
	"io/fs"
	"path"

	"github.com/vk/wrapgrid/internal/core"
	"github.com/vk/wrapgrid/internal/ctxlog"
	"github.com/vk/wrapgrid/internal/uri"
)

const (
	// ManifestFile is the manifest's file name inside a module directory.
	ManifestFile = "wrap.hcl"
	// ProgramFile is the compiled program's file name inside a module directory.
	ProgramFile = "wrap.wasm"
)

// FSLoader builds Modules from directories of a file system. The path of a
// wrap://fs Uri is the module directory relative to the loader's root.
type FSLoader struct {
	fsys    fs.FS
	runtime Runtime
}

// NewFSLoader creates a loader reading from fsys and compiling with runtime.
func NewFSLoader(fsys fs.FS, runtime Runtime) *FSLoader {
	return &FSLoader{fsys: fsys, runtime: runtime}
}

// Load reads, parses and compiles the module stored at u.
func (l *FSLoader) Load(ctx context.Context, u, origin uri.Uri) (*Module, error) {
	logger := ctxlog.FromContext(ctx)
	dir := path.Clean(u.Path())
	logger.Debug("Loading module from file system.", "uri", u.String(), "dir", dir)

	manifestPath := path.Join(dir, ManifestFile)
	src, err := fs.ReadFile(l.fsys, manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	manifest, err := ParseManifest(ctx, src, manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	code, err := fs.ReadFile(l.fsys, path.Join(dir, ProgramFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}
	program, err := l.runtime.Compile(ctx, manifest.Name, code)
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded module.", "uri", u.String(), "module", manifest.Name)
	return NewModule(u, origin, manifest, program), nil
}

// Factory adapts Load to a redirect factory.
func (l *FSLoader) Factory() core.Factory {
	return func(ctx context.Context, matched, origin uri.Uri) (core.Implementation, error) {
		m, err := l.Load(ctx, matched, origin)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}
