package main

import (
	"fmt"
	"io"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/arthur-debert/dayplan/types"
)

const shortIDLen = 8

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

// categoryLabel renders a category name as a heading, "Uncategorized"
// for none
func categoryLabel(name string) string {
	if name == "" {
		return "Uncategorized"
	}
	return cases.Title(language.Und).String(name)
}

// dayLabel renders "Monday 2024-03-04"
func dayLabel(d types.Date) string {
	t, err := d.Time()
	if err != nil {
		return d.String()
	}
	return fmt.Sprintf("%s %s", t.Weekday(), d)
}

// renderTask writes one task line
func renderTask(w io.Writer, t types.Task) {
	box := "[ ]"
	if t.Done {
		box = "[x]"
	}
	mark := " "
	if t.Priority == types.PriorityHigh {
		mark = "!"
	}
	tag := ""
	if t.Category != nil {
		tag = fmt.Sprintf("  (%s)", categoryLabel(*t.Category))
	}
	fmt.Fprintf(w, "  %s %s %-8s  %s%s\n", box, mark, shortID(t.ID), t.Title, tag)
	if t.Notes != nil && *t.Notes != "" {
		fmt.Fprintf(w, "                  %s\n", *t.Notes)
	}
}

// renderDay writes a heading and the day's tasks in display order
func renderDay(w io.Writer, d, today types.Date, tasks []types.Task) {
	heading := dayLabel(d)
	if d == today {
		heading += " (today)"
	}
	fmt.Fprintln(w, heading)
	for _, t := range tasks {
		renderTask(w, t)
	}
}

// filterCategory keeps tasks of one category; "" keeps everything
func filterCategory(tasks []types.Task, name string) []types.Task {
	if name == "" {
		return tasks
	}
	out := tasks[:0:0]
	for _, t := range tasks {
		if t.HasCategory(name) {
			out = append(out, t)
		}
	}
	return out
}
