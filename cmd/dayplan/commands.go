package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/dayplan/dayplan/engine"
	"github.com/arthur-debert/dayplan/dayplan/search"
	"github.com/arthur-debert/dayplan/types"
)

func (cli *CLI) newAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task to the end of its day",
		Long: `Add a task. It is placed last among the day's tasks of the same priority.

With --every N the task repeats every N days up to --until (inclusive);
without --until a single task is created.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withSession(cmd.Context(), func(s *session) error {
				return cli.runAdd(cmd, s, strings.Join(args, " "))
			})
		},
	}
	cmd.Flags().String("date", "today", "Day of the task")
	cmd.Flags().StringP("category", "c", "", "Category (default: the selected one)")
	cmd.Flags().Bool("high", false, "High priority")
	cmd.Flags().StringP("notes", "n", "", "Free-form notes")
	cmd.Flags().Int("every", 0, "Repeat every N days")
	cmd.Flags().String("until", "", "Last day of the repetition")
	return cmd
}

func (cli *CLI) runAdd(cmd *cobra.Command, s *session, title string) error {
	today := s.eng.View().Today()
	rawDate, _ := cmd.Flags().GetString("date")
	date, err := parseDay(rawDate, today)
	if err != nil {
		return NewValidationError("add", "date", rawDate, CommonSuggestions.CheckDate)
	}

	draft := types.TaskDraft{Date: date, Title: title, Priority: types.PriorityNormal}
	if high, _ := cmd.Flags().GetBool("high"); high {
		draft.Priority = types.PriorityHigh
	}
	category, _ := cmd.Flags().GetString("category")
	if category == "" {
		category, _ = s.eng.View().SelectedCategory()
	}
	if category != "" {
		draft.Category = types.StringPtr(category)
	}
	if notes, _ := cmd.Flags().GetString("notes"); notes != "" {
		draft.Notes = types.StringPtr(notes)
	}
	if cmd.Flags().Changed("every") {
		every, _ := cmd.Flags().GetInt("every")
		draft.RepeatEveryDays = &every
	}
	if rawUntil, _ := cmd.Flags().GetString("until"); rawUntil != "" {
		until, err := parseDay(rawUntil, today)
		if err != nil {
			return NewValidationError("add", "until", rawUntil, CommonSuggestions.CheckDate)
		}
		draft.RepeatUntil = &until
	}

	if err := s.ensureLoaded(cmd.Context(), date); err != nil {
		return WrapError("add", err, CommonSuggestions.CheckDB)
	}
	created, err := s.eng.AddTask(cmd.Context(), draft)
	if err != nil {
		return WrapError("add", err, CommonSuggestions.RunHelp)
	}
	for _, t := range created {
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s %q on %s\n", shortID(t.ID), t.Title, dayLabel(t.Date))
	}
	return nil
}

func (cli *CLI) newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [date]",
		Short: "Show the loaded days, or one day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withSession(cmd.Context(), func(s *session) error {
				return cli.runList(cmd, s, args)
			})
		},
	}
	cmd.Flags().StringP("category", "c", "", "Only show one category (default: the selected one)")
	return cmd
}

func (cli *CLI) runList(cmd *cobra.Command, s *session, args []string) error {
	view := s.eng.View()
	today := view.Today()

	from, to := s.cfg.From, s.cfg.To
	if len(args) == 1 {
		d, err := parseDay(args[0], today)
		if err != nil {
			return NewValidationError("list", "date", args[0], CommonSuggestions.CheckDate)
		}
		if err := s.ensureLoaded(cmd.Context(), d); err != nil {
			return WrapError("list", err, CommonSuggestions.CheckDB)
		}
		from, to = d, d
	}

	category, _ := cmd.Flags().GetString("category")
	if category == "" {
		category, _ = view.SelectedCategory()
	}

	out := cmd.OutOrStdout()
	days, err := daysBetween(from, to)
	if err != nil {
		return WrapError("list", err)
	}
	for i, d := range days {
		if i > 0 {
			fmt.Fprintln(out)
		}
		tasks := filterCategory(view.Day(d), category)
		renderDay(out, d, today, tasks)
		if len(tasks) == 0 {
			fmt.Fprintln(out, "  (nothing planned)")
		}
	}
	return nil
}

func (cli *CLI) newDoneCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "done <id>",
		Aliases: []string{"toggle"},
		Short:   "Toggle a task between done and not done",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withSession(cmd.Context(), func(s *session) error {
				t, err := s.task("toggle", args[0])
				if err != nil {
					return err
				}
				p, err := s.eng.ToggleTask(t.ID)
				if err := settle("toggle", p, err); err != nil {
					return err
				}
				// completions are announced by the TaskCompleted hook
				if t.Done {
					fmt.Fprintf(cmd.OutOrStdout(), "Reopened %q\n", t.Title)
				}
				return nil
			})
		},
	}
}

func (cli *CLI) newEditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's title, category, notes or priority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withSession(cmd.Context(), func(s *session) error {
				return cli.runEdit(cmd, s, args[0])
			})
		},
	}
	cmd.Flags().StringP("title", "t", "", "New title")
	cmd.Flags().StringP("category", "c", "", "New category")
	cmd.Flags().Bool("clear-category", false, "Remove the category")
	cmd.Flags().StringP("notes", "n", "", "New notes")
	cmd.Flags().Bool("clear-notes", false, "Remove the notes")
	cmd.Flags().StringP("priority", "p", "", "normal or high")
	return cmd
}

func (cli *CLI) runEdit(cmd *cobra.Command, s *session, ref string) error {
	t, err := s.task("edit", ref)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	var patch types.TaskPatch
	if flags.Changed("title") {
		title, _ := flags.GetString("title")
		patch.Title = &title
	}
	switch unset, _ := flags.GetBool("clear-category"); {
	case unset:
		patch.SetCategory = true
	case flags.Changed("category"):
		category, _ := flags.GetString("category")
		patch.SetCategory = true
		patch.Category = types.StringPtr(category)
	}
	switch unset, _ := flags.GetBool("clear-notes"); {
	case unset:
		patch.SetNotes = true
	case flags.Changed("notes"):
		notes, _ := flags.GetString("notes")
		patch.SetNotes = true
		patch.Notes = types.StringPtr(notes)
	}
	if flags.Changed("priority") {
		raw, _ := flags.GetString("priority")
		priority, err := types.ParsePriority(raw)
		if err != nil {
			return NewValidationError("edit", "priority", raw, "Use normal or high")
		}
		patch.Priority = &priority
	}
	if patch.IsEmpty() {
		return NewValidationError("edit", "changes", "", "Pass at least one of --title, --category, --notes, --priority")
	}

	p, err := s.eng.EditTask(t.ID, patch)
	if err := settle("edit", p, err); err != nil {
		return err
	}
	updated, _ := s.eng.View().Task(t.ID)
	renderTask(cmd.OutOrStdout(), updated)
	return nil
}

func (cli *CLI) newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withSession(cmd.Context(), func(s *session) error {
				t, err := s.task("delete", args[0])
				if err != nil {
					return err
				}
				p, err := s.eng.DeleteTask(t.ID)
				if err := settle("delete", p, err); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", t.Title)
				cli.undoHint(cmd, s)
				return nil
			})
		},
	}
}

// undoHint tells shell users how long the latest delete can be undone
func (cli *CLI) undoHint(cmd *cobra.Command, s *session) {
	if cli.session == nil {
		return
	}
	if entry, ok := s.eng.View().PendingUndo(); ok {
		left := entry.ExpiresAt.Sub(cli.now()).Round(100 * time.Millisecond)
		fmt.Fprintf(cmd.OutOrStdout(), "Type 'undo' within %s to restore it\n", left)
	}
}

func (cli *CLI) newMoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <id> <date>",
		Short: "Move a task to another day",
		Long: `Move a task to another day. It lands last in its group unless
--above or --below names a task of the same priority on that day.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withSession(cmd.Context(), func(s *session) error {
				return cli.runMove(cmd, s, args[0], args[1])
			})
		},
	}
	addRelativeFlags(cmd)
	return cmd
}

func (cli *CLI) runMove(cmd *cobra.Command, s *session, ref, rawDate string) error {
	t, err := s.task("move", ref)
	if err != nil {
		return err
	}
	to, err := parseDay(rawDate, s.eng.View().Today())
	if err != nil {
		return NewValidationError("move", "date", rawDate, CommonSuggestions.CheckDate)
	}
	if err := s.ensureLoaded(cmd.Context(), to); err != nil {
		return WrapError("move", err, CommonSuggestions.CheckDB)
	}

	target := engine.DropTarget{Date: to}
	overRef, pos, err := relativeTo(cmd, "move", false)
	if err != nil {
		return err
	}
	if overRef != "" {
		if target.OverTaskID, err = s.resolveID("move", overRef); err != nil {
			return err
		}
		target.Position = pos
	}

	p, err := s.eng.HandleDrop(types.MovePayload{TaskID: t.ID, FromDate: t.Date}, target)
	if err := settle("move", p, err); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Moved %q to %s\n", t.Title, dayLabel(to))
	return nil
}

func (cli *CLI) newReorderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reorder <id>",
		Short: "Place a task above or below another task of the same day",
		Long: `Place a task directly above or below another task. Both tasks must
share day, done state and priority; otherwise nothing changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withSession(cmd.Context(), func(s *session) error {
				t, err := s.task("reorder", args[0])
				if err != nil {
					return err
				}
				overRef, pos, err := relativeTo(cmd, "reorder", true)
				if err != nil {
					return err
				}
				over, err := s.resolveID("reorder", overRef)
				if err != nil {
					return err
				}
				p, err := s.eng.HandleDrop(
					types.ReorderPayload{TaskID: t.ID, FromDate: t.Date},
					engine.DropTarget{Date: t.Date, OverTaskID: over, Position: pos},
				)
				if err := settle("reorder", p, err); err != nil {
					return err
				}
				renderDay(cmd.OutOrStdout(), t.Date, s.eng.View().Today(), s.eng.View().Day(t.Date))
				return nil
			})
		},
	}
	addRelativeFlags(cmd)
	return cmd
}

func addRelativeFlags(cmd *cobra.Command) {
	cmd.Flags().String("above", "", "Place directly above this task")
	cmd.Flags().String("below", "", "Place directly below this task")
	cmd.MarkFlagsMutuallyExclusive("above", "below")
}

// relativeTo reads --above/--below
func relativeTo(cmd *cobra.Command, operation string, required bool) (string, types.Position, error) {
	if above, _ := cmd.Flags().GetString("above"); above != "" {
		return above, types.Above, nil
	}
	if below, _ := cmd.Flags().GetString("below"); below != "" {
		return below, types.Below, nil
	}
	if required {
		return "", "", NewValidationError(operation, "target", "", "Pass --above <id> or --below <id>")
	}
	return "", "", nil
}

func (cli *CLI) newCategoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"cat"},
		Short:   "Manage categories",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List categories; the selected one is starred",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return cli.withSession(cmd.Context(), func(s *session) error {
					selected, _ := s.eng.View().SelectedCategory()
					for _, name := range s.eng.View().Categories() {
						mark := " "
						if name == selected {
							mark = "*"
						}
						fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", mark, categoryLabel(name))
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "add <name>",
			Short: "Add a category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return cli.withSession(cmd.Context(), func(s *session) error {
					return WrapError("add category", s.eng.AddCategory(args[0]))
				})
			},
		},
		&cobra.Command{
			Use:   "rename <from> <to>",
			Short: "Rename a category on every loaded task; an existing name merges",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return cli.withSession(cmd.Context(), func(s *session) error {
					p, err := s.eng.RenameCategory(args[0], args[1])
					return settle("rename category", p, err)
				})
			},
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a category and uncategorize its tasks",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return cli.withSession(cmd.Context(), func(s *session) error {
					affected := len(filterCategory(s.eng.View().Tasks(), args[0]))
					p, err := s.eng.DeleteCategory(args[0])
					if err := settle("delete category", p, err); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %q (%d tasks uncategorized)\n", args[0], affected)
					cli.undoHint(cmd, s)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "select [name]",
			Short: "Select the category used by add and list; no name clears it",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return cli.withSession(cmd.Context(), func(s *session) error {
					name := ""
					if len(args) == 1 {
						name = args[0]
					}
					return WrapError("select category", s.eng.SelectCategory(name),
						"Use 'dayplan category list' to see categories")
				})
			},
		},
	)
	return cmd
}

func (cli *CLI) newFindCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find <text>",
		Short: "Search loaded tasks by title, notes and category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withSession(cmd.Context(), func(s *session) error {
				return cli.runFind(cmd, s, strings.Join(args, " "))
			})
		},
	}
	cmd.Flags().StringSlice("fields", nil, "Fields to search (title, notes, category)")
	cmd.Flags().Bool("case-sensitive", false, "Match case")
	cmd.Flags().Bool("exact", false, "Require the whole field to match")
	cmd.Flags().Int("limit", 0, "Show at most this many results")
	return cmd
}

func (cli *CLI) runFind(cmd *cobra.Command, s *session, query string) error {
	opts := search.Options{Query: query, Highlight: true}
	names, _ := cmd.Flags().GetStringSlice("fields")
	for _, name := range names {
		opts.Fields = append(opts.Fields, search.Field(strings.ToLower(name)))
	}
	opts.CaseSensitive, _ = cmd.Flags().GetBool("case-sensitive")
	opts.ExactMatch, _ = cmd.Flags().GetBool("exact")
	opts.MaxResults, _ = cmd.Flags().GetInt("limit")

	results, err := search.New(s.eng.View()).Search(opts)
	if err != nil {
		return NewValidationError("find", "fields", strings.Join(names, ","), "Use title, notes or category")
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintf(out, "No loaded task matches %q\n", query)
		return nil
	}
	for _, r := range results {
		title := r.Task.Title
		if marked, ok := r.Highlights[search.FieldTitle]; ok {
			title = marked
		}
		fmt.Fprintf(out, "%s  %s  %s\n", dayLabel(r.Task.Date), shortID(r.Task.ID), title)
		if notes, ok := r.Highlights[search.FieldNotes]; ok {
			fmt.Fprintf(out, "    %s\n", notes)
		}
	}
	return nil
}

func (cli *CLI) newUndoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Undo the latest delete (shell only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cli.session == nil {
				return &CLIError{
					Operation:   "undo",
					Cause:       "nothing to undo",
					Suggestions: []string{"Deletes can be undone inside 'dayplan shell'"},
				}
			}
			if err := cli.session.eng.Undo(cmd.Context()); err != nil {
				return WrapError("undo", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Restored")
			return nil
		},
	}
}

// daysBetween lists every day from from to to, inclusive
func daysBetween(from, to types.Date) ([]types.Date, error) {
	var days []types.Date
	for d := from; !to.Before(d); {
		days = append(days, d)
		next, err := d.AddDays(1)
		if err != nil {
			return nil, err
		}
		d = next
	}
	return days, nil
}
