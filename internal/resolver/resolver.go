// Package resolver walks a Uri through a redirect table until it reaches a
// rule that binds it to a concrete implementation.
package resolver

import (
	"context"
	"errors"

	"github.com/vk/wrapgrid/internal/core"
	"github.com/vk/wrapgrid/internal/ctxlog"
	"github.com/vk/wrapgrid/internal/redirect"
	"github.com/vk/wrapgrid/internal/uri"
)

// Memo lets a caller short-circuit a walk with already-bound Uris and guard
// factory construction. The implementation cache is the production Memo.
type Memo interface {
	// Lookup returns the implementation already bound to u, if any.
	Lookup(u uri.Uri) (core.Implementation, bool)
	// Instantiate runs build for the factory rule matched at u, making sure
	// concurrent walks reaching the same rule share one construction.
	Instantiate(ctx context.Context, at uri.Uri, build func(context.Context) (core.Implementation, error)) (core.Implementation, error)
}

// Resolution is the outcome of a successful walk.
type Resolution struct {
	Implementation core.Implementation
	// Path lists every hop visited, starting with the requested Uri. When
	// the walk was short-circuited by a Memo, the last hop is the one
	// that was already bound.
	Path []uri.Uri
	// Cached is true when the implementation came from the Memo rather
	// than from a factory.
	Cached bool
}

// Resolver walks a single, immutable redirect table.
type Resolver struct {
	table *redirect.Table
}

// New creates a Resolver over table.
func New(table *redirect.Table) *Resolver {
	return &Resolver{table: table}
}

// Table returns the table the resolver walks.
func (r *Resolver) Table() *redirect.Table {
	return r.table
}

// Resolve walks u through the table. The walk ends on the first factory
// rule, on a Uri no rule matches (*core.UnresolvedUriError) or on a Uri
// visited twice (*core.RedirectCycleError), so it terminates within one hop
// per rule. memo may be nil.
func (r *Resolver) Resolve(ctx context.Context, u uri.Uri, memo Memo) (Resolution, error) {
	logger := ctxlog.FromContext(ctx).With("uri", u.String())
	if u.IsZero() {
		return Resolution{}, &uri.InvalidUriError{Reason: "uri was never parsed"}
	}

	visited := map[string]struct{}{u.String(): {}}
	path := []uri.Uri{u}
	current := u

	for {
		if memo != nil {
			if impl, ok := memo.Lookup(current); ok {
				logger.Debug("Resolution reached a bound uri.", "hop", current.String(), "hops", len(path))
				return Resolution{Implementation: impl, Path: path, Cached: true}, nil
			}
		}

		rule, ok := r.table.Match(current)
		if !ok {
			logger.Debug("No redirect matches uri.", "hop", current.String())
			return Resolution{Path: path}, &core.UnresolvedUriError{Uri: current.String(), Path: pathStrings(path)}
		}

		if rule.IsTerminal() {
			matched := current
			logger.Debug("Redirect binds uri to a factory.", "hop", matched.String(), "rule", rule.String())

			build := func(ctx context.Context) (core.Implementation, error) {
				impl, err := rule.Factory(ctx, matched, u)
				if err != nil {
					var instErr *core.InstantiationError
					if errors.As(err, &instErr) {
						return nil, err
					}
					return nil, &core.InstantiationError{Uri: matched.String(), Err: err}
				}
				if impl == nil {
					return nil, &core.InstantiationError{Uri: matched.String(), Err: errors.New("factory returned no implementation")}
				}
				return impl, nil
			}

			var impl core.Implementation
			var err error
			if memo != nil {
				impl, err = memo.Instantiate(ctx, matched, build)
			} else {
				impl, err = build(ctx)
			}
			if err != nil {
				return Resolution{Path: path}, err
			}
			return Resolution{Implementation: impl, Path: path}, nil
		}

		next := rule.To
		if _, seen := visited[next.String()]; seen {
			cycle := append(pathStrings(path), next.String())
			logger.Debug("Redirect cycle detected.", "path", cycle)
			return Resolution{Path: path}, &core.RedirectCycleError{Path: cycle}
		}
		logger.Debug("Following redirect.", "from", current.String(), "to", next.String())

		visited[next.String()] = struct{}{}
		path = append(path, next)
		current = next
	}
}

func pathStrings(path []uri.Uri) []string {
	out := make([]string, len(path))
	for i, u := range path {
		out[i] = u.String()
	}
	return out
}
