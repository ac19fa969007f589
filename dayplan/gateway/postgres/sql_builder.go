package postgres

import (
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/arthur-debert/dayplan/types"
)

const tableName = "tasks"

// taskColumns is the column order used by every SELECT and INSERT
var taskColumns = []string{
	"id", "owner_id", "date", "title", "category", "done", "priority",
	"repeat_every_days", "repeat_until", "sort_order", "notes", "created_at",
}

// updatableColumns guards UPDATE statements against unknown keys
var updatableColumns = map[string]bool{
	"title": true, "date": true, "done": true, "priority": true,
	"sort_order": true, "category": true, "notes": true,
}

// schema creates the tasks table
const schema = `
CREATE TABLE IF NOT EXISTS tasks (
    id                TEXT PRIMARY KEY,
    owner_id          TEXT NOT NULL,
    date              TEXT NOT NULL,
    title             TEXT NOT NULL,
    category          TEXT NULL,
    done              BOOLEAN NOT NULL DEFAULT FALSE,
    priority          INTEGER NOT NULL DEFAULT 1,
    repeat_every_days INTEGER NULL,
    repeat_until      TEXT NULL,
    sort_order        DOUBLE PRECISION NOT NULL DEFAULT 0,
    notes             TEXT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS tasks_owner_date_idx ON tasks (owner_id, date, sort_order);
`

// SQLBuilder wraps squirrel to provide safe SQL generation
type SQLBuilder struct {
	sq squirrel.StatementBuilderType
}

// NewSQLBuilder creates a builder using Postgres placeholders
func NewSQLBuilder() *SQLBuilder {
	return &SQLBuilder{
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// BuildList builds the range query of ListTasks
func (b *SQLBuilder) BuildList(ownerID string, from, to types.Date) (string, []interface{}, error) {
	return b.sq.Select(taskColumns...).
		From(tableName).
		Where(squirrel.Eq{"owner_id": ownerID}).
		Where(squirrel.GtOrEq{"date": string(from)}).
		Where(squirrel.LtOrEq{"date": string(to)}).
		OrderBy("date ASC", "sort_order ASC", "id ASC").
		ToSql()
}

// BuildInsert builds one multi-row INSERT for tasks
func (b *SQLBuilder) BuildInsert(tasks []types.Task) (string, []interface{}, error) {
	if len(tasks) == 0 {
		return "", nil, fmt.Errorf("no rows specified for insert")
	}

	insert := b.sq.Insert(tableName).Columns(taskColumns...)
	for _, t := range tasks {
		var until interface{}
		if t.RepeatUntil != nil {
			until = string(*t.RepeatUntil)
		}
		insert = insert.Values(
			t.ID, t.OwnerID, string(t.Date), t.Title, t.Category, t.Done, int(t.Priority),
			t.RepeatEveryDays, until, t.SortOrder, t.Notes, t.CreatedAt,
		)
	}
	return insert.ToSql()
}

// BuildUpdate builds a single-row UPDATE scoped by id and owner
func (b *SQLBuilder) BuildUpdate(id, ownerID string, setClauses map[string]interface{}) (string, []interface{}, error) {
	if len(setClauses) == 0 {
		return "", nil, fmt.Errorf("no SET clauses specified for update")
	}
	for col := range setClauses {
		if !updatableColumns[col] {
			return "", nil, fmt.Errorf("column %q cannot be updated", col)
		}
	}

	return b.sq.Update(tableName).
		SetMap(setClauses).
		Where(squirrel.Eq{"id": id, "owner_id": ownerID}).
		ToSql()
}

// BuildDelete builds a single-row DELETE scoped by id and owner
func (b *SQLBuilder) BuildDelete(id, ownerID string) (string, []interface{}, error) {
	return b.sq.Delete(tableName).
		Where(squirrel.Eq{"id": id, "owner_id": ownerID}).
		ToSql()
}

// BuildBulkCategory builds the cascade UPDATE for category rename/clear
func (b *SQLBuilder) BuildBulkCategory(ownerID, oldCategory string, newCategory *string) (string, []interface{}, error) {
	var value interface{}
	if newCategory != nil {
		value = *newCategory
	}
	return b.sq.Update(tableName).
		Set("category", value).
		Where(squirrel.Eq{"owner_id": ownerID, "category": oldCategory}).
		ToSql()
}

// BuildExists builds the existence probe used for empty patches
func (b *SQLBuilder) BuildExists(id, ownerID string) (string, []interface{}, error) {
	return b.sq.Select("1").
		From(tableName).
		Where(squirrel.Eq{"id": id, "owner_id": ownerID}).
		ToSql()
}
