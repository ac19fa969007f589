package sqlite

import (
	"time"

	"github.com/arthur-debert/dayplan/types"
)

// TaskRow is the GORM model of the tasks table
type TaskRow struct {
	ID              string    `gorm:"primarykey;size:36"`
	OwnerID         string    `gorm:"size:64;not null;index:idx_owner_date,priority:1"`
	Date            string    `gorm:"size:10;not null;index:idx_owner_date,priority:2"`
	Title           string    `gorm:"not null"`
	Category        *string   `gorm:"index"`
	Done            bool      `gorm:"not null;default:false"`
	Priority        int       `gorm:"not null;default:1"`
	RepeatEveryDays *int
	RepeatUntil     *string `gorm:"size:10"`
	SortOrder       float64 `gorm:"not null;default:0"`
	Notes           *string
	CreatedAt       time.Time
}

// TableName returns the table name for TaskRow.
func (TaskRow) TableName() string {
	return "tasks"
}

func rowFromTask(t types.Task) TaskRow {
	c := t.Clone()
	row := TaskRow{
		ID:              c.ID,
		OwnerID:         c.OwnerID,
		Date:            string(c.Date),
		Title:           c.Title,
		Category:        c.Category,
		Done:            c.Done,
		Priority:        int(c.Priority),
		RepeatEveryDays: c.RepeatEveryDays,
		SortOrder:       c.SortOrder,
		Notes:           c.Notes,
		CreatedAt:       c.CreatedAt,
	}
	if c.RepeatUntil != nil {
		until := string(*c.RepeatUntil)
		row.RepeatUntil = &until
	}
	return row
}

func (r TaskRow) task() types.Task {
	t := types.Task{
		ID:              r.ID,
		OwnerID:         r.OwnerID,
		Date:            types.Date(r.Date),
		Title:           r.Title,
		Category:        r.Category,
		Done:            r.Done,
		Priority:        types.Priority(r.Priority),
		RepeatEveryDays: r.RepeatEveryDays,
		SortOrder:       r.SortOrder,
		Notes:           r.Notes,
		CreatedAt:       r.CreatedAt,
	}
	if r.RepeatUntil != nil {
		until := types.Date(*r.RepeatUntil)
		t.RepeatUntil = &until
	}
	return t.Clone()
}
