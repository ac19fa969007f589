// Package dayplan is the entry point of the task-ordering and sync engine.
//
// It opens a gateway backend by name and re-exports the engine types a UI
// needs, so most callers import only this package and types.
package dayplan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/arthur-debert/dayplan/dayplan/engine"
	"github.com/arthur-debert/dayplan/dayplan/gateway"
	"github.com/arthur-debert/dayplan/dayplan/gateway/jsonfile"
	"github.com/arthur-debert/dayplan/dayplan/gateway/postgres"
	"github.com/arthur-debert/dayplan/dayplan/gateway/sqlite"
)

// Engine is an alias for engine.Engine
type Engine = engine.Engine

// Gateway is an alias for gateway.Gateway
type Gateway = gateway.Gateway

// Supported backends
const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// ErrUnknownBackend is returned by OpenGateway for unsupported names
var ErrUnknownBackend = errors.New("unknown backend")

// BackendOptions selects and configures a gateway backend
type BackendOptions struct {
	// Backend is one of json, sqlite, postgres or memory
	Backend string

	// Path is the table file for json and the database file for sqlite
	Path string

	// DSN is the postgres connection string
	DSN string

	Logger *slog.Logger
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// OpenGateway opens the configured backend. The returned closer releases
// its resources and must be called once the engine is closed.
func OpenGateway(ctx context.Context, opts BackendOptions) (Gateway, io.Closer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Backend {
	case BackendJSON, "":
		if opts.Path == "" {
			return nil, nil, fmt.Errorf("json backend needs a file path")
		}
		st, err := jsonfile.New(opts.Path, jsonfile.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil

	case BackendSQLite:
		if opts.Path == "" {
			return nil, nil, fmt.Errorf("sqlite backend needs a database path")
		}
		repo, err := sqlite.Open(opts.Path)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil

	case BackendPostgres:
		if opts.DSN == "" {
			return nil, nil, fmt.Errorf("postgres backend needs a dsn")
		}
		pool, repo, err := postgres.Connect(ctx, opts.DSN)
		if err != nil {
			return nil, nil, err
		}
		return repo.WithLogger(logger), closerFunc(func() error {
			pool.Close()
			return nil
		}), nil

	case BackendMemory:
		return gateway.NewMemory(), closerFunc(func() error { return nil }), nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
}
