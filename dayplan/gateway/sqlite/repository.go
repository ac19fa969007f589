// Package sqlite is a gateway.Gateway on a GORM-managed SQLite database.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/arthur-debert/dayplan/dayplan/gateway"
	"github.com/arthur-debert/dayplan/types"
)

// Repository provides access to task storage
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ gateway.Gateway = (*Repository)(nil)

// Open opens the SQLite database at path (":memory:" works) and migrates it
func Open(path string) (*Repository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would get its own empty in-memory database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return New(db)
}

// New wraps an existing connection and migrates the tasks table
func New(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&TaskRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Repository{db: db, now: time.Now}, nil
}

// Close closes the underlying connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ListTasks implements gateway.Gateway.ListTasks
func (r *Repository) ListTasks(ctx context.Context, ownerID string, from, to types.Date) ([]types.Task, error) {
	if err := gateway.ValidateRange(ownerID, from, to); err != nil {
		return nil, err
	}

	var rows []TaskRow
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND date >= ? AND date <= ?", ownerID, string(from), string(to)).
		Order("date ASC").Order("sort_order ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	out := make([]types.Task, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.task())
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

	now := r.now().UTC()
	tasks := make([]types.Task, len(drafts))
	rows := make([]TaskRow, len(drafts))
	for i, d := range drafts {
		tasks[i] = d.Task(uuid.New().String(), now)
		rows[i] = rowFromTask(tasks[i])
	}

	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
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

	result := r.db.WithContext(ctx).Model(&TaskRow{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(cols)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", gateway.ErrNotFound, id)
	}
	return nil
}

// DeleteTask implements gateway.Gateway.DeleteTask
func (r *Repository) DeleteTask(ctx context.Context, id, ownerID string) error {
	result := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&TaskRow{})
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", gateway.ErrNotFound, id)
	}
	return nil
}

// BulkUpdateCategory implements gateway.Gateway.BulkUpdateCategory
func (r *Repository) BulkUpdateCategory(ctx context.Context, ownerID, oldCategory string, newCategory *string) error {
	if ownerID == "" {
		return types.ErrMissingOwner
	}
	var value interface{}
	if newCategory != nil {
		value = *newCategory
	}
	err := r.db.WithContext(ctx).Model(&TaskRow{}).
		Where("owner_id = ? AND category = ?", ownerID, oldCategory).
		Update("category", value).Error
	if err != nil {
		return fmt.Errorf("failed to update categories: %w", err)
	}
	return nil
}

func (r *Repository) exists(ctx context.Context, id, ownerID string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&TaskRow{}).Where("id = ? AND owner_id = ?", id, ownerID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to find task: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", gateway.ErrNotFound, id)
	}
	return nil
}
