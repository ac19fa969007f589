// Package postgres is a gateway.Gateway on PostgreSQL via pgx.
// Statements are generated with squirrel; every mutation pairs the row id
// with the owner id in its WHERE clause.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arthur-debert/dayplan/dayplan/gateway"
	"github.com/arthur-debert/dayplan/types"
)

// DBTX is the subset of pgxpool.Pool and pgx.Tx the repository needs
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Repository provides access to task storage using pgx
type Repository struct {
	db      DBTX
	builder *SQLBuilder
	logger  *slog.Logger
	now     func() time.Time
}

var _ gateway.Gateway = (*Repository)(nil)

// Connect opens a pool for dsn, verifies it and ensures the schema exists
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, *Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to reach database: %w", err)
	}
	repo := NewRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pool, repo, nil
}

// NewRepository creates a repository on an existing connection or pool
func NewRepository(db DBTX) *Repository {
	return &Repository{
		db:      db,
		builder: NewSQLBuilder(),
		logger:  slog.Default(),
		now:     time.Now,
	}
}

// WithLogger sets the logger used for query tracing
func (r *Repository) WithLogger(logger *slog.Logger) *Repository {
	r.logger = logger
	return r
}

// Migrate creates the tasks table if needed
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// ListTasks implements gateway.Gateway.ListTasks
func (r *Repository) ListTasks(ctx context.Context, ownerID string, from, to types.Date) ([]types.Task, error) {
	if err := gateway.ValidateRange(ownerID, from, to); err != nil {
		return nil, err
	}
	query, args, err := r.builder.BuildList(ownerID, from, to)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("sql_query", "operation", "list", "sql", query)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var out []types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return out, nil
}

// InsertTasks implements gateway.Gateway.InsertTasks
func (r *Repository) InsertTasks(ctx context.Context, drafts []types.TaskDraft) ([]types.Task, error) {
	if err := gateway.ValidateDrafts(drafts); err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return []types.Task{}, nil
	}

	now := r.now().UTC().Truncate(time.Microsecond)
	tasks := make([]types.Task, len(drafts))
	for i, d := range drafts {
		tasks[i] = d.Task(uuid.New().String(), now)
	}

	query, args, err := r.builder.BuildInsert(tasks)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("sql_query", "operation", "insert", "sql", query, "rows", len(tasks))

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to insert tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask implements gateway.Gateway.UpdateTask
func (r *Repository) UpdateTask(ctx context.Context, id, ownerID string, patch types.TaskPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	cols := patch.Columns()
	if len(cols) == 0 {
		return r.exists(ctx, id, ownerID)
	}

	query, args, err := r.builder.BuildUpdate(id, ownerID, cols)
	if err != nil {
		return err
	}
	r.logger.Debug("sql_query", "operation", "update", "sql", query)
	return r.execOne(ctx, id, query, args)
}

// DeleteTask implements gateway.Gateway.DeleteTask
func (r *Repository) DeleteTask(ctx context.Context, id, ownerID string) error {
	query, args, err := r.builder.BuildDelete(id, ownerID)
	if err != nil {
		return err
	}
	r.logger.Debug("sql_query", "operation", "delete", "sql", query)
	return r.execOne(ctx, id, query, args)
}

// BulkUpdateCategory implements gateway.Gateway.BulkUpdateCategory
func (r *Repository) BulkUpdateCategory(ctx context.Context, ownerID, oldCategory string, newCategory *string) error {
	if ownerID == "" {
		return types.ErrMissingOwner
	}
	query, args, err := r.builder.BuildBulkCategory(ownerID, oldCategory, newCategory)
	if err != nil {
		return err
	}
	r.logger.Debug("sql_query", "operation", "bulk_category", "sql", query)
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update categories: %w", err)
	}
	return nil
}

func (r *Repository) execOne(ctx context.Context, id, query string, args []interface{}) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to write task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", gateway.ErrNotFound, id)
	}
	return nil
}

func (r *Repository) exists(ctx context.Context, id, ownerID string) error {
	query, args, err := r.builder.BuildExists(id, ownerID)
	if err != nil {
		return err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to find task: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to find task: %w", err)
		}
		return fmt.Errorf("%w: %s", gateway.ErrNotFound, id)
	}
	return nil
}

func scanTask(rows pgx.Rows) (types.Task, error) {
	var (
		t        types.Task
		date     string
		priority int
		until    *string
	)
	err := rows.Scan(
		&t.ID, &t.OwnerID, &date, &t.Title, &t.Category, &t.Done, &priority,
		&t.RepeatEveryDays, &until, &t.SortOrder, &t.Notes, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Task{}, gateway.ErrNotFound
		}
		return types.Task{}, fmt.Errorf("failed to scan task: %w", err)
	}
	t.Date = types.Date(date)
	t.Priority = types.Priority(priority)
	if until != nil {
		d := types.Date(*until)
		t.RepeatUntil = &d
	}
	return t, nil
}
